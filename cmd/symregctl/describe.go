package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"symreg/pkg/symreg"
)

func newDescribeCommand(opts *globalOptions) *cobra.Command {
	var (
		req          symreg.DescribeRequest
		artifactsDir string
		jsonOut      bool
	)
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Show the recorded config, winner and score summary of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if artifactsDir == "" {
				return fmt.Errorf("describe requires --artifacts")
			}
			client, err := opts.client(symreg.Options{ArtifactsDir: artifactsDir})
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			desc, err := client.Describe(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				desc.Summary = desc.Summary.Finite()
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(desc)
			}

			cfg := desc.Config
			fmt.Fprintf(out, "run_id=%s seed=%d pop=%d max_generations=%d selection=%s metric=%s\n",
				desc.RunID, cfg.Seed, cfg.PopulationSize, cfg.MaxGenerations, cfg.Selection, cfg.Metric)
			fmt.Fprintf(out, "winner: %s\n", desc.Winner.Text)
			fmt.Fprintf(out, "score: %g\n", desc.Winner.Score)

			sig := desc.Winner.Signature
			fmt.Fprintf(out, "fingerprint=%s size=%d depth=%d variables=%v\n",
				sig.Fingerprint, sig.Summary.Size, sig.Summary.Depth, sig.Summary.Variables)
			kinds := make([]string, 0, len(sig.Summary.Kinds))
			for kind := range sig.Summary.Kinds {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)
			for _, kind := range kinds {
				fmt.Fprintf(out, "  %s=%d\n", kind, sig.Summary.Kinds[kind])
			}

			s := desc.Summary
			fmt.Fprintf(out, "generations=%d initial_best=%g final_best=%g improvement=%g\n",
				s.Generations, s.InitialBest, s.FinalBest, s.Improvement)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&req.RunID, "run-id", "", "run id")
	fs.BoolVar(&req.Latest, "latest", false, "describe the most recent run")
	fs.StringVar(&artifactsDir, "artifacts", "", "artifacts directory written by learning --out")
	fs.BoolVar(&jsonOut, "json", false, "emit the description as JSON")
	return cmd
}
