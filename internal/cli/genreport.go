package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geoandes/seismic-harvest/internal/accel"
)

func newGenReportCmd() *cobra.Command {
	var samples int
	var hz, pgaV, pgaN, pgaE float64
	var out string

	cmd := &cobra.Command{
		Use:   "genreport",
		Short: "Generate a synthetic acceleration report for testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if samples < 1 {
				return fmt.Errorf("--samples must be at least 1")
			}
			content := accel.Synthesize(samples, hz, pgaV, pgaN, pgaE)
			if out == "" {
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			}
			return os.WriteFile(out, []byte(content), 0o644)
		},
	}

	cmd.Flags().IntVar(&samples, "samples", 100, "number of samples")
	cmd.Flags().Float64Var(&hz, "hz", 100, "sampling frequency")
	cmd.Flags().Float64Var(&pgaV, "pga-v", 10, "vertical PGA amplitude")
	cmd.Flags().Float64Var(&pgaN, "pga-n", 8, "north PGA amplitude")
	cmd.Flags().Float64Var(&pgaE, "pga-e", 6, "east PGA amplitude")
	cmd.Flags().StringVar(&out, "out", "", "write to file instead of stdout")
	return cmd
}
