package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"symreg/internal/evo"
	"symreg/internal/expr"
	"symreg/internal/target"
)

func newExamplesCommand(_ *globalOptions) *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "examples",
		Short: "Evaluate the demonstration tree and show one random tree, mutation and crossover",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			return runExamples(cmd, seed)
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: time based)")
	return cmd
}

func runExamples(cmd *cobra.Command, seed int64) error {
	out := cmd.OutOrStdout()
	example := target.Example()
	fmt.Fprintf(out, "example: %s\n", example)
	for _, probe := range []expr.Context{{"x": 2, "y": 3}, {"x": 5, "y": 3}} {
		value, err := example.Evaluate(probe)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  x=%g y=%g -> %g\n", probe["x"], probe["y"], value)
	}

	rng := rand.New(rand.NewSource(seed))
	opts := evo.DefaultGenerateOptions()
	first, err := evo.RandomExpr(rng, target.Variables, opts)
	if err != nil {
		return err
	}
	second, err := evo.RandomExpr(rng, target.Variables, opts)
	if err != nil {
		return err
	}
	mutated, err := evo.Mutate(rng, first, target.Variables, 0.1)
	if err != nil {
		return err
	}
	child, err := evo.Crossover(rng, first, second, 0.7)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "seed: %d\n", seed)
	fmt.Fprintf(out, "random:    %s\n", first)
	fmt.Fprintf(out, "mutated:   %s\n", mutated)
	fmt.Fprintf(out, "donor:     %s\n", second)
	fmt.Fprintf(out, "crossover: %s\n", child)
	return nil
}
