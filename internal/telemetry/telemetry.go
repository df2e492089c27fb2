// Package telemetry provides structured logging handler construction for
// the diff/merge engines, grounded on the teacher's log package: multiple
// output formats, CLI flag wiring via pflag, and shell completion via
// cobra. Unlike the teacher's package, there is no Publisher/TUI fan-out —
// this module has no TUI surface to feed.
package telemetry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Format selects a slog handler's output encoding.
type Format string

const (
	// FormatText renders key=value pairs via slog's text handler.
	FormatText Format = "text"
	// FormatJSON renders one JSON object per record.
	FormatJSON Format = "json"
	// FormatLogfmt is an alias of FormatText kept for flag-string
	// compatibility with tools that distinguish the two names.
	FormatLogfmt Format = "logfmt"
)

// Sentinel errors, matching on strings the CLI surfaces to a user.
var (
	ErrUnknownLevel  = errors.New("unknown log level")
	ErrUnknownFormat = errors.New("unknown log format")
)

func allLevels() []string { return []string{"debug", "info", "warn", "error"} }
func allFormats() []Format { return []Format{FormatText, FormatJSON, FormatLogfmt} }

// GetLevel parses a log level string.
func GetLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
}

// GetFormat parses a log format string.
func GetFormat(format string) (Format, error) {
	f := Format(strings.ToLower(format))
	if slices.Contains(allFormats(), f) {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Handler builds a slog.Handler writing to w at the given level and format.
func Handler(w io.Writer, level slog.Level, format Format) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// HandlerFromStrings parses level and format and builds a handler for w.
func HandlerFromStrings(w io.Writer, level, format string) (slog.Handler, error) {
	lvl, err := GetLevel(level)
	if err != nil {
		return nil, err
	}
	fmtt, err := GetFormat(format)
	if err != nil {
		return nil, err
	}
	return Handler(w, lvl, fmtt), nil
}

// Flags holds the CLI flag names telemetry registers, letting a caller
// rename them while keeping NewConfig's defaults.
type Flags struct {
	Level  string
	Format string
}

// Config holds the logging configuration a CLI command exposes as flags.
type Config struct {
	Level  string
	Format string
	Flags  Flags
}

// NewConfig returns a Config with the default flag names "log-level" and
// "log-format".
func NewConfig() *Config {
	return &Config{
		Level:  "info",
		Format: string(FormatText),
		Flags:  Flags{Level: "log-level", Format: "log-format"},
	}
}

// RegisterFlags adds the logging flags to flags.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Level, c.Flags.Level, c.Level,
		fmt.Sprintf("log level, one of: %s", strings.Join(allLevels(), ", ")))
	flags.StringVar(&c.Format, c.Flags.Format, c.Format,
		fmt.Sprintf("log format, one of: text, json, logfmt"))
}

// RegisterCompletions registers shell completions for the logging flags.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	if err := cmd.RegisterFlagCompletionFunc(c.Flags.Level,
		cobra.FixedCompletions(allLevels(), cobra.ShellCompDirectiveNoFileComp)); err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Level, err)
	}
	names := make([]string, 0, len(allFormats()))
	for _, f := range allFormats() {
		names = append(names, string(f))
	}
	if err := cmd.RegisterFlagCompletionFunc(c.Flags.Format,
		cobra.FixedCompletions(names, cobra.ShellCompDirectiveNoFileComp)); err != nil {
		return fmt.Errorf("registering %s completion: %w", c.Flags.Format, err)
	}
	return nil
}

// NewHandler builds a slog.Handler writing to w from the configured level
// and format.
func (c *Config) NewHandler(w io.Writer) (slog.Handler, error) {
	return HandlerFromStrings(w, c.Level, c.Format)
}

// NewLogger is a convenience wrapper around NewHandler.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	h, err := c.NewHandler(w)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

// orDefault returns logger if non-nil, else slog.Default(). Every engine
// entry point that accepts an optional *slog.Logger routes through this so
// a nil logger never has to be special-cased at the call site.
func orDefault(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// Logger normalizes an optional *slog.Logger to a non-nil one.
func Logger(logger *slog.Logger) *slog.Logger { return orDefault(logger) }
