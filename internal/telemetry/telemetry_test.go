package telemetry_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mibar/hierdoc/internal/telemetry"
)

func TestGetLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"ERROR":   slog.LevelError,
	}
	for in, want := range cases {
		lvl, err := telemetry.GetLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, lvl, in)
	}

	_, err := telemetry.GetLevel("bogus")
	require.ErrorIs(t, err, telemetry.ErrUnknownLevel)
}

func TestGetFormat(t *testing.T) {
	t.Parallel()

	f, err := telemetry.GetFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, telemetry.FormatJSON, f)

	_, err = telemetry.GetFormat("yaml")
	require.ErrorIs(t, err, telemetry.ErrUnknownFormat)
}

func TestHandlerFromStringsText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h, err := telemetry.HandlerFromStrings(&buf, "info", "text")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Info("hello", "key", "value")
	require.Contains(t, buf.String(), "msg=hello")
	require.Contains(t, buf.String(), "key=value")
}

func TestHandlerFromStringsJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h, err := telemetry.HandlerFromStrings(&buf, "debug", "json")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Debug("hi")
	require.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
}

func TestHandlerFromStringsRejectsBadLevel(t *testing.T) {
	t.Parallel()

	_, err := telemetry.HandlerFromStrings(nil, "bogus", "text")
	require.ErrorIs(t, err, telemetry.ErrUnknownLevel)
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := telemetry.NewConfig()
	require.Equal(t, "info", cfg.Level)
	require.Equal(t, "text", cfg.Format)
	require.Equal(t, "log-level", cfg.Flags.Level)
	require.Equal(t, "log-format", cfg.Flags.Format)
}

func TestConfigRegisterFlags(t *testing.T) {
	t.Parallel()

	cfg := telemetry.NewConfig()
	cmd := &cobra.Command{Use: "test"}
	cfg.RegisterFlags(cmd.Flags())

	require.NoError(t, cmd.Flags().Set("log-level", "warn"))
	require.Equal(t, "warn", cfg.Level)

	require.NoError(t, cfg.RegisterCompletions(cmd))
}

func TestConfigNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cfg := telemetry.NewConfig()
	cfg.Level = "warn"

	logger, err := cfg.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("should be filtered out")
	require.Empty(t, buf.String())

	logger.Warn("should appear")
	require.Contains(t, buf.String(), "should appear")
}

func TestLoggerNormalizesNil(t *testing.T) {
	t.Parallel()

	require.Same(t, slog.Default(), telemetry.Logger(nil))

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	require.Same(t, custom, telemetry.Logger(custom))
}
