package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"symreg/internal/fitness"
	"symreg/internal/target"
)

func newDatasetCommand(_ *globalOptions) *cobra.Command {
	var (
		seed    int64
		samples int
		low     float64
		high    float64
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Write a CSV sample of the hidden quadratic, usable with learning --data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			ds, err := target.Sample(rand.New(rand.NewSource(seed)), samples, low, high)
			if err != nil {
				return err
			}

			if outPath == "" || outPath == "-" {
				return writeDataset(cmd.OutOrStdout(), ds)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			return saveDataset(f, outPath, ds)
		},
	}
	fs := cmd.Flags()
	fs.Int64Var(&seed, "seed", 0, "random seed (default: time based)")
	fs.IntVar(&samples, "samples", target.DefaultSamples, "number of probes")
	fs.Float64Var(&low, "low", target.DefaultLow, "lower bound for x and y")
	fs.Float64Var(&high, "high", target.DefaultHigh, "upper bound (exclusive) for x and y")
	fs.StringVar(&outPath, "out", "", "output path (default: stdout)")
	return cmd
}

func writeDataset(w io.Writer, ds fitness.Dataset) error {
	if err := fitness.WriteCSV(w, ds, "target"); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

// saveDataset writes ds to f and closes it. A failed close fails the write.
func saveDataset(f io.WriteCloser, path string, ds fitness.Dataset) error {
	if err := writeDataset(f, ds); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close dataset %s: %w", path, err)
	}
	return nil
}
