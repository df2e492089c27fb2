// Package main provides the CLI entry point for hierdoc, a tool that diffs
// and three-way merges normalized hierarchical documents encoded as YAML.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mibar/hierdoc/internal/telemetry"
)

func main() {
	logCfg := telemetry.NewConfig()

	rootCmd := &cobra.Command{
		Use:           "hierdoc",
		Short:         "Diff and three-way merge normalized hierarchical documents",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	logCfg.RegisterFlags(rootCmd.PersistentFlags())
	if err := logCfg.RegisterCompletions(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	rootCmd.AddCommand(newDiffCmd(logCfg))
	rootCmd.AddCommand(newMergeCmd(logCfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// readFile reads path, or stdin when path is empty or "-" (cmd/shake's
// file-or-stdin convention).
func readFile(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writeFile writes out to path, or stdout when path is empty or "-".
func writeFile(path string, out []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
