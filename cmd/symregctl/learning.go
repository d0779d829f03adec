package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"symreg/internal/evo"
	"symreg/internal/telemetry"
	"symreg/pkg/symreg"
)

func newLearningCommand(opts *globalOptions) *cobra.Command {
	flags := &learningFlags{}
	cmd := &cobra.Command{
		Use:   "learning",
		Short: "Evolve an expression against the hidden quadratic or a CSV dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadRunConfig(flags.configPath)
			if err != nil {
				return err
			}
			flags.apply(cmd.Flags(), &cfg)
			if err := cfg.validate(); err != nil {
				return err
			}
			return runLearning(cmd, opts, flags, cfg)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func runLearning(cmd *cobra.Command, opts *globalOptions, flags *learningFlags, cfg runConfig) error {
	out := cmd.OutOrStdout()
	seed := time.Now().UnixNano()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}

	var registry *prometheus.Registry
	clientOpts := symreg.Options{ArtifactsDir: flags.outDir}
	if flags.dumpMetrics {
		registry = prometheus.NewRegistry()
		clientOpts.Registerer = registry
	}
	client, err := opts.client(clientOpts)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	req := cfg.request(flags.runID, seed)
	if !flags.quiet {
		req.Observers = []evo.Observer{evo.ObserverFunc(func(r evo.GenerationReport) {
			fmt.Fprintf(out, "generation=%d best=%g\n", r.Generation, r.BestScore)
		})}
	}

	summary, err := client.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run_id=%s seed=%d generations=%d converged=%t\n", summary.RunID, seed, summary.Generations, summary.Converged)
	fmt.Fprintf(out, "winner: %s\n", summary.WinnerText)
	fmt.Fprintf(out, "score: %g\n", summary.WinnerScore)
	fmt.Fprintf(out, "improvement=%g mean_best=%g std_best=%g\n", summary.Summary.Improvement, summary.Summary.Mean, summary.Summary.Std)
	if summary.ArtifactsDir != "" {
		fmt.Fprintf(out, "artifacts: %s\n", summary.ArtifactsDir)
	}
	if registry != nil {
		return telemetry.WriteText(out, registry)
	}
	return nil
}
