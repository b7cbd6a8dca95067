package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"fractal-ledger/fractal"
	"fractal-ledger/models"
)

var (
	segmentsLevel  int
	segmentsOutput string
)

func init() {
	segmentsCmd.Flags().IntVar(&segmentsLevel, "level", 1, "subdivision level")
	segmentsCmd.Flags().StringVarP(&segmentsOutput, "output", "o", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(segmentsCmd)
}

type segmentRow struct {
	ID string  `json:"id" yaml:"id"`
	X  float64 `json:"x" yaml:"x"`
	Y  float64 `json:"y" yaml:"y"`
}

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "Print the segment ids and coordinates of a level",
	RunE: func(cmd *cobra.Command, args []string) error {
		segments, err := fractal.ComputeSegments(models.Level(segmentsLevel))
		if err != nil {
			return err
		}
		rows := make([]segmentRow, len(segments))
		for i, s := range segments {
			rows[i] = segmentRow{ID: string(s.ID), X: s.Coordinate.X, Y: s.Coordinate.Y}
		}

		out := cmd.OutOrStdout()
		switch segmentsOutput {
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(rows)
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		default:
			return fmt.Errorf("unknown output format %q", segmentsOutput)
		}
	},
}
