package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"symreg/pkg/symreg"
)

var configValidate = validator.New()

// runConfig is the learning configuration as read from YAML and flags.
type runConfig struct {
	Seed           *int64  `yaml:"seed"`
	Population     int     `yaml:"population" validate:"gte=1"`
	Generations    int     `yaml:"generations" validate:"gte=0"`
	MutationRate   float64 `yaml:"mutation_rate" validate:"gte=0,lte=1"`
	BreedingRate   float64 `yaml:"breeding_rate" validate:"gte=0,lte=1"`
	PExp           float64 `yaml:"pexp" validate:"gt=0,lt=1"`
	PNew           float64 `yaml:"pnew" validate:"gte=0,lte=1"`
	EliteCount     int     `yaml:"elite_count" validate:"gte=0"`
	Selection      string  `yaml:"selection" validate:"oneof=rank_biased tournament uniform"`
	TournamentSize int     `yaml:"tournament_size" validate:"gte=0"`
	MaxDepth       int     `yaml:"max_depth" validate:"gte=0"`
	Workers        int     `yaml:"workers" validate:"gte=0"`
	Metric         string  `yaml:"metric" validate:"oneof=abs squared"`
	Parsimony      float64 `yaml:"parsimony" validate:"gte=0"`
	Samples        int     `yaml:"samples" validate:"gte=1"`
	DataPath       string  `yaml:"data_path"`
	TargetColumn   string  `yaml:"target_column"`
}

func defaultRunConfig() runConfig {
	req := symreg.DefaultRunRequest()
	return runConfig{
		Population:   req.Population,
		Generations:  req.Generations,
		MutationRate: req.MutationRate,
		BreedingRate: req.BreedingRate,
		PExp:         req.PExp,
		PNew:         req.PNew,
		EliteCount:   req.EliteCount,
		Selection:    req.Selection,
		MaxDepth:     req.MaxDepth,
		Metric:       req.Metric,
		Samples:      req.Samples,
	}
}

// loadRunConfig overlays the YAML file at path on the defaults. Unknown keys
// are rejected.
func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return runConfig{}, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return runConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// learningFlags holds flag values; only flags the user changed override the file.
type learningFlags struct {
	configPath     string
	runID          string
	outDir         string
	dumpMetrics    bool
	quiet          bool
	seed           int64
	population     int
	generations    int
	mutationRate   float64
	breedingRate   float64
	pexp           float64
	pnew           float64
	eliteCount     int
	selection      string
	tournamentSize int
	maxDepth       int
	workers        int
	metric         string
	parsimony      float64
	samples        int
	dataPath       string
	targetColumn   string
}

func (f *learningFlags) register(fs *pflag.FlagSet) {
	defaults := defaultRunConfig()
	fs.StringVar(&f.configPath, "config", "", "YAML run configuration")
	fs.StringVar(&f.runID, "run-id", "", "run id (default: random UUID)")
	fs.StringVar(&f.outDir, "out", "", "directory for run artifacts (empty disables)")
	fs.BoolVar(&f.dumpMetrics, "metrics", false, "print Prometheus metrics after the run")
	fs.BoolVar(&f.quiet, "quiet", false, "suppress per-generation output")
	fs.Int64Var(&f.seed, "seed", 0, "random seed (default: time based)")
	fs.IntVar(&f.population, "pop", defaults.Population, "population size")
	fs.IntVar(&f.generations, "gens", defaults.Generations, "maximum generation index")
	fs.Float64Var(&f.mutationRate, "mutation", defaults.MutationRate, "mutation rate")
	fs.Float64Var(&f.breedingRate, "breeding", defaults.BreedingRate, "crossover swap probability")
	fs.Float64Var(&f.pexp, "pexp", defaults.PExp, "rank-biased selection decay in (0,1)")
	fs.Float64Var(&f.pnew, "pnew", defaults.PNew, "probability of injecting a fresh random tree")
	fs.IntVar(&f.eliteCount, "elite", defaults.EliteCount, "individuals copied unchanged each generation")
	fs.StringVar(&f.selection, "selection", defaults.Selection, "parent selection: rank_biased|tournament|uniform")
	fs.IntVar(&f.tournamentSize, "tournament-size", 0, "tournament size for tournament selection")
	fs.IntVar(&f.maxDepth, "max-depth", defaults.MaxDepth, "maximum depth of generated trees")
	fs.IntVar(&f.workers, "workers", 0, "parallel scoring workers (0: GOMAXPROCS)")
	fs.StringVar(&f.metric, "metric", defaults.Metric, "score metric: abs|squared")
	fs.Float64Var(&f.parsimony, "parsimony", 0, "score penalty per tree node")
	fs.IntVar(&f.samples, "samples", defaults.Samples, "probes sampled from the built-in target")
	fs.StringVar(&f.dataPath, "data", "", "CSV dataset with a header row")
	fs.StringVar(&f.targetColumn, "target", "", "CSV column holding the expected value (default: last)")
}

func (f *learningFlags) apply(fs *pflag.FlagSet, cfg *runConfig) {
	if fs.Changed("seed") {
		seed := f.seed
		cfg.Seed = &seed
	}
	if fs.Changed("pop") {
		cfg.Population = f.population
	}
	if fs.Changed("gens") {
		cfg.Generations = f.generations
	}
	if fs.Changed("mutation") {
		cfg.MutationRate = f.mutationRate
	}
	if fs.Changed("breeding") {
		cfg.BreedingRate = f.breedingRate
	}
	if fs.Changed("pexp") {
		cfg.PExp = f.pexp
	}
	if fs.Changed("pnew") {
		cfg.PNew = f.pnew
	}
	if fs.Changed("elite") {
		cfg.EliteCount = f.eliteCount
	}
	if fs.Changed("selection") {
		cfg.Selection = f.selection
	}
	if fs.Changed("tournament-size") {
		cfg.TournamentSize = f.tournamentSize
	}
	if fs.Changed("max-depth") {
		cfg.MaxDepth = f.maxDepth
	}
	if fs.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fs.Changed("metric") {
		cfg.Metric = f.metric
	}
	if fs.Changed("parsimony") {
		cfg.Parsimony = f.parsimony
	}
	if fs.Changed("samples") {
		cfg.Samples = f.samples
	}
	if fs.Changed("data") {
		cfg.DataPath = f.dataPath
	}
	if fs.Changed("target") {
		cfg.TargetColumn = f.targetColumn
	}
}

func (c runConfig) validate() error {
	err := configValidate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid run config: %s", strings.Join(msgs, "; "))
}

func (c runConfig) request(runID string, seed int64) symreg.RunRequest {
	return symreg.RunRequest{
		RunID:          runID,
		Seed:           seed,
		Population:     c.Population,
		Generations:    c.Generations,
		MutationRate:   c.MutationRate,
		BreedingRate:   c.BreedingRate,
		PExp:           c.PExp,
		PNew:           c.PNew,
		EliteCount:     c.EliteCount,
		Selection:      c.Selection,
		TournamentSize: c.TournamentSize,
		MaxDepth:       c.MaxDepth,
		Workers:        c.Workers,
		Metric:         c.Metric,
		Parsimony:      c.Parsimony,
		DataPath:       c.DataPath,
		TargetColumn:   c.TargetColumn,
		Samples:        c.Samples,
	}
}
