package main

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/mibar/hierdoc/internal/telemetry"
	"github.com/mibar/hierdoc/pkg/hierdoc"
)

type diffFlags struct {
	schema string
	base   string
	later  string
	output string
}

func newDiffCmd(logCfg *telemetry.Config) *cobra.Command {
	f := &diffFlags{}

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Print the commands that transform base into later",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDiff(f, logCfg)
		},
	}

	cmd.Flags().StringVar(&f.schema, "schema", "", "path to schema YAML file (required)")
	cmd.Flags().StringVar(&f.base, "base", "", "path to base document YAML (default: stdin)")
	cmd.Flags().StringVar(&f.later, "later", "", "path to later document YAML (required)")
	cmd.Flags().StringVar(&f.output, "output", "", "path to write the command list (default: stdout)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("later")

	return cmd
}

func runDiff(f *diffFlags, logCfg *telemetry.Config) error {
	if _, err := logCfg.NewLogger(os.Stderr); err != nil {
		return err
	}

	schemaBytes, err := readFile(f.schema)
	if err != nil {
		return err
	}
	var ws wireSchema
	if err := yaml.Unmarshal(schemaBytes, &ws); err != nil {
		return err
	}
	sch, err := buildSchema(ws)
	if err != nil {
		return err
	}

	base, err := loadDocument(sch, f.base)
	if err != nil {
		return err
	}
	later, err := loadDocument(sch, f.later)
	if err != nil {
		return err
	}

	cmds := hierdoc.Diff(base, later)

	out, err := yaml.Marshal(toWireCommands(cmds))
	if err != nil {
		return err
	}
	return writeFile(f.output, out)
}
