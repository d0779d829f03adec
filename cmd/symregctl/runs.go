package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"symreg/pkg/symreg"
)

func newRunsCommand(opts *globalOptions) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client(symreg.Options{})
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			runs, err := client.Runs(cmd.Context(), symreg.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(out, "run_id=%s started=%s seed=%d pop=%d generations=%d converged=%t score=%g winner=%s\n",
					r.RunID, r.StartedAtUTC, r.Seed, r.Population, r.Generations, r.Converged, r.WinnerScore, r.WinnerText)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit runs as JSON")
	return cmd
}

func newFitnessCommand(opts *globalOptions) *cobra.Command {
	var (
		runID        string
		latest       bool
		average      bool
		averageRuns  int
		limit        int
		jsonOut      bool
		artifactsDir string
	)
	cmd := &cobra.Command{
		Use:   "fitness",
		Short: "Print the best score of every generation of a stored run",
		Long: "Runs are visible across invocations with a persistent store (--store sqlite) " +
			"or through the --artifacts directory of learning --out. " +
			"--average prints the generation-wise mean over the most recent stored runs.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runID != "" && latest {
				return errors.New("use either --run-id or --latest, not both")
			}
			if !average && runID == "" && !latest {
				return errors.New("fitness requires --run-id, --latest or --average")
			}
			if average && (runID != "" || latest) {
				return errors.New("--average cannot be combined with --run-id or --latest")
			}
			client, err := opts.client(symreg.Options{ArtifactsDir: artifactsDir})
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			var history []float64
			if average {
				history, err = client.AverageFitnessHistory(cmd.Context(), symreg.AverageFitnessRequest{
					Runs:  averageRuns,
					Limit: limit,
				})
			} else {
				history, err = client.FitnessHistory(cmd.Context(), symreg.FitnessHistoryRequest{
					RunID:  runID,
					Latest: latest,
					Limit:  limit,
				})
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(history)
			}
			if len(history) == 0 {
				fmt.Fprintln(out, "no fitness history")
				return nil
			}
			for i, best := range history {
				fmt.Fprintf(out, "generation=%d best=%g\n", i, best)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run id")
	cmd.Flags().BoolVar(&latest, "latest", false, "use the most recent stored run")
	cmd.Flags().BoolVar(&average, "average", false, "average the histories of recent stored runs")
	cmd.Flags().IntVar(&averageRuns, "runs", 20, "number of recent runs to average with --average")
	cmd.Flags().StringVar(&artifactsDir, "artifacts", "", "artifacts directory written by learning --out")
	cmd.Flags().IntVar(&limit, "limit", 0, "max generations to print (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit fitness history as JSON")
	return cmd
}
