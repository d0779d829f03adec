package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"symreg/internal/storage"
	"symreg/pkg/symreg"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	logLevel  string
	storeKind string
	dbPath    string
	stderr    io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{stderr: stderr}
	root := &cobra.Command{
		Use:           "symregctl",
		Short:         "Search for arithmetic expressions that fit sampled data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	flags.StringVar(&opts.storeKind, "store", storage.DefaultStoreKind(), "run store backend: memory|sqlite")
	flags.StringVar(&opts.dbPath, "db-path", "symreg.db", "sqlite database path")

	root.AddCommand(
		newExamplesCommand(opts),
		newLearningCommand(opts),
		newCompareCommand(opts),
		newRunsCommand(opts),
		newFitnessCommand(opts),
		newDatasetCommand(opts),
		newDescribeCommand(opts),
	)
	return root
}

func (o *globalOptions) logger() (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(o.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "", "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level: %s", o.logLevel)
	}
	return slog.New(slog.NewTextHandler(o.stderr, &slog.HandlerOptions{Level: level})), nil
}

func (o *globalOptions) client(extra symreg.Options) (*symreg.Client, error) {
	logger, err := o.logger()
	if err != nil {
		return nil, err
	}
	extra.StoreKind = o.storeKind
	extra.DBPath = o.dbPath
	extra.Logger = logger
	return symreg.New(extra)
}
