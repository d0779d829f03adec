package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"symreg/pkg/symreg"
)

func newCompareCommand(opts *globalOptions) *cobra.Command {
	var (
		req          symreg.CompareRequest
		artifactsDir string
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Tabulate an expression against the hidden quadratic over a grid",
		Long: "Without --run-id or --latest the built-in champion expression is compared. " +
			"Stored runs are read from the store, or from --artifacts when the store does not hold them.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("step") && req.Step <= 0 {
				return fmt.Errorf("--step must be > 0, got %g", req.Step)
			}
			client, err := opts.client(symreg.Options{ArtifactsDir: artifactsDir})
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			report, err := client.Compare(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source: %s\n", report.Source)
			fmt.Fprintf(out, "expression: %s\n", report.Expression)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "x\ty\texpected\tpredicted\t")
			for _, row := range report.Rows {
				fmt.Fprintf(tw, "%g\t%g\t%g\t%.6g\t\n", row.X, row.Y, row.Expected, row.Predicted)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "total_abs_error=%g\n", report.TotalError)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&req.RunID, "run-id", "", "compare the winner of a stored run")
	fs.BoolVar(&req.Latest, "latest", false, "compare the winner of the most recent stored run")
	fs.Float64Var(&req.Low, "low", 0, "grid lower bound")
	fs.Float64Var(&req.High, "high", 10, "grid upper bound")
	fs.Float64Var(&req.Step, "step", 1, "grid step")
	fs.StringVar(&artifactsDir, "artifacts", "", "artifacts directory written by learning --out")
	return cmd
}
