package main

import (
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/mibar/hierdoc/internal/telemetry"
	"github.com/mibar/hierdoc/pkg/hierdoc"
)

type mergeFlags struct {
	schema string
	base   string
	mine   string
	their  string
	output string
}

func newMergeCmd(logCfg *telemetry.Config) *cobra.Command {
	f := &mergeFlags{}

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Three-way merge mine and their, both derived from base",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMerge(f, logCfg)
		},
	}

	cmd.Flags().StringVar(&f.schema, "schema", "", "path to schema YAML file (required)")
	cmd.Flags().StringVar(&f.base, "base", "", "path to base document YAML (required)")
	cmd.Flags().StringVar(&f.mine, "mine", "", "path to mine document YAML (required)")
	cmd.Flags().StringVar(&f.their, "their", "", "path to their document YAML (required)")
	cmd.Flags().StringVar(&f.output, "output", "", "path to write the merged document (default: stdout)")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("mine")
	_ = cmd.MarkFlagRequired("their")

	return cmd
}

type mergeResult struct {
	Document  wireDocument                               `yaml:"document"`
	Conflicts map[string]map[string]wireElementConflict `yaml:"conflicts,omitempty"`
}

type wireFieldConflict struct {
	Base   any    `yaml:"base,omitempty"`
	Mine   any    `yaml:"mine,omitempty"`
	Their  any    `yaml:"their,omitempty"`
	Merged any    `yaml:"merged,omitempty"`
	Status string `yaml:"status"`
}

type wirePositionConflict struct {
	ClonedElements []string `yaml:"clonedElements,omitempty"`
	Status         string   `yaml:"status"`
}

type wireElementConflict struct {
	InfoConflicts    map[string]wireFieldConflict `yaml:"infoConflicts,omitempty"`
	PositionConflict *wirePositionConflict        `yaml:"positionConflict,omitempty"`
}

func runMerge(f *mergeFlags, logCfg *telemetry.Config) error {
	logger, err := logCfg.NewLogger(os.Stderr)
	if err != nil {
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
	mine, err := loadDocument(sch, f.mine)
	if err != nil {
		return err
	}
	their, err := loadDocument(sch, f.their)
	if err != nil {
		return err
	}

	merged, conflicts, err := hierdoc.ThreeWayMerge(base, mine, their, logger)
	if err != nil {
		return err
	}

	result := mergeResult{Document: toWireDocument(merged)}
	if len(conflicts) > 0 {
		result.Conflicts = toWireConflicts(conflicts)
	}

	out, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	return writeFile(f.output, out)
}

func loadDocument(sch *hierdoc.Schema, path string) (*hierdoc.Document, error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var wd wireDocument
	if err := yaml.Unmarshal(raw, &wd); err != nil {
		return nil, err
	}
	return buildDocument(sch, wd)
}

func toWireConflicts(conflicts hierdoc.Conflicts) map[string]map[string]wireElementConflict {
	out := make(map[string]map[string]wireElementConflict, len(conflicts))
	for typ, byID := range conflicts {
		wbyID := make(map[string]wireElementConflict, len(byID))
		for id, e := range byID {
			wec := wireElementConflict{}
			if len(e.InfoConflicts) > 0 {
				wec.InfoConflicts = make(map[string]wireFieldConflict, len(e.InfoConflicts))
				for field, fc := range e.InfoConflicts {
					wec.InfoConflicts[field] = wireFieldConflict{
						Base: fc.Base, Mine: fc.Mine, Their: fc.Their, Merged: fc.Merged,
						Status: string(fc.Status),
					}
				}
			}
			if e.PositionConflicts != nil {
				wec.PositionConflict = &wirePositionConflict{
					ClonedElements: e.PositionConflicts.ClonedElements,
					Status:         string(e.PositionConflicts.Status),
				}
			}
			wbyID[id] = wec
		}
		out[typ] = wbyID
	}
	return out
}
