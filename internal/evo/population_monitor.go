package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"symreg/internal/expr"
)

const DefaultEpsilon = 1e-6

var (
	ErrEmptyRanking   = errors.New("ranking returned no individuals")
	ErrInvalidRanking = errors.New("ranking violates contract")
)

type ScoredExpr struct {
	Score float64   `json:"score"`
	Expr  expr.Expr `json:"-"`
}

// ScoredPopulation is ordered best-first: ascending score, 0 is a perfect fit.
type ScoredPopulation []ScoredExpr

// Ranker scores a population and returns it sorted ascending by score. The
// output has the same length as the input.
type Ranker interface {
	Rank(ctx context.Context, population []expr.Expr) (ScoredPopulation, error)
}

type RankFunc func(ctx context.Context, population []expr.Expr) (ScoredPopulation, error)

func (f RankFunc) Rank(ctx context.Context, population []expr.Expr) (ScoredPopulation, error) {
	return f(ctx, population)
}

type RunResult struct {
	Winner           expr.Expr
	WinnerScore      float64
	Converged        bool
	Generations      int
	BestByGeneration []float64
	Diagnostics      []GenerationDiagnostics
	FinalPopulation  ScoredPopulation
}

type GenerationDiagnostics struct {
	Generation          int             `json:"generation"`
	BestScore           float64         `json:"best_score"`
	MeanScore           float64         `json:"mean_score"`
	WorstScore          float64         `json:"worst_score"`
	MeanSize            float64         `json:"mean_size"`
	MeanDepth           float64         `json:"mean_depth"`
	DistinctExpressions int             `json:"distinct_expressions"`
	NonFiniteScores     int             `json:"non_finite_scores"`
	Offspring           OffspringCounts `json:"offspring"`
}

type MonitorConfig struct {
	VariableNames  []string
	PopulationSize int
	Ranker         Ranker
	MaxGenerations int
	MutationRate   float64
	// BreedingRate is the crossover swap probability.
	BreedingRate float64
	// PExp is the rank-biased selection decay, used when Selector is nil.
	PExp       float64
	PNew       float64
	EliteCount int
	Selector   Selector
	// Generate is used as given; DefaultMonitorConfig seeds it.
	Generate   GenerateOptions
	Epsilon    float64
	Seed       int64
	Observers  []Observer
	Logger     *slog.Logger
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		MaxGenerations: 500,
		MutationRate:   0.1,
		BreedingRate:   0.4,
		PExp:           0.7,
		PNew:           0.05,
		EliteCount:     2,
		Generate:       DefaultGenerateOptions(),
		Epsilon:        DefaultEpsilon,
	}
}

type PopulationMonitor struct {
	cfg      MonitorConfig
	rng      *rand.Rand
	mutation Operator
	breeder  Breeder
	logger   *slog.Logger
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Ranker == nil {
		return nil, fmt.Errorf("ranker is required")
	}
	if err := checkVariables(cfg.VariableNames); err != nil {
		return nil, err
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("%w: population size must be > 0", ErrContractViolation)
	}
	if cfg.MaxGenerations < 0 {
		return nil, fmt.Errorf("%w: max generations must be >= 0", ErrContractViolation)
	}
	if err := checkProbability("mutation rate", cfg.MutationRate); err != nil {
		return nil, err
	}
	if err := checkProbability("breeding rate", cfg.BreedingRate); err != nil {
		return nil, err
	}
	if err := checkProbability("fresh injection probability", cfg.PNew); err != nil {
		return nil, err
	}
	if cfg.EliteCount < 0 {
		return nil, fmt.Errorf("%w: elite count must be >= 0", ErrContractViolation)
	}
	if cfg.EliteCount > cfg.PopulationSize {
		cfg.EliteCount = cfg.PopulationSize
	}
	if err := cfg.Generate.Validate(); err != nil {
		return nil, err
	}
	if cfg.Selector == nil {
		selector := RankBiasedSelector{PExp: cfg.PExp}
		if err := selector.Validate(); err != nil {
			return nil, err
		}
		cfg.Selector = selector
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &PopulationMonitor{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		mutation: MutationOperator{Variables: cfg.VariableNames, ChangeProb: cfg.MutationRate},
		breeder:  CrossoverOperator{SwapProb: cfg.BreedingRate},
		logger:   logger,
	}, nil
}

// Evolve builds a monitor from cfg and runs it from a random population.
func Evolve(ctx context.Context, cfg MonitorConfig) (RunResult, error) {
	monitor, err := NewPopulationMonitor(cfg)
	if err != nil {
		return RunResult{}, err
	}
	return monitor.Run(ctx, nil)
}

// Run ranks, reports and replaces the population for generations
// 0..MaxGenerations inclusive, stopping early once the best score is within
// Epsilon of zero. A nil initial population is grown with cfg.Generate.
func (m *PopulationMonitor) Run(ctx context.Context, initial []expr.Expr) (RunResult, error) {
	population, err := m.initialPopulation(initial)
	if err != nil {
		return RunResult{}, err
	}

	bestHistory := make([]float64, 0, m.cfg.MaxGenerations+1)
	diagnostics := make([]GenerationDiagnostics, 0, m.cfg.MaxGenerations+1)
	counts := OffspringCounts{Seed: len(population)}

	var (
		scored    ScoredPopulation
		converged bool
	)
	for gen := 0; gen <= m.cfg.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		started := time.Now()
		scored, err = m.rank(ctx, population)
		if err != nil {
			return RunResult{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		elapsed := time.Since(started)

		best := scored[0]
		bestHistory = append(bestHistory, best.Score)
		diag := summarizeGeneration(scored, gen, counts)
		diagnostics = append(diagnostics, diag)
		m.notify(GenerationReport{
			Generation:   gen,
			BestScore:    best.Score,
			Best:         best.Expr,
			Diagnostics:  diag,
			RankDuration: elapsed,
		})
		m.logger.Debug("generation ranked",
			slog.Int("generation", gen),
			slog.Float64("best_score", best.Score),
			slog.Float64("mean_score", diag.MeanScore),
			slog.Int("distinct", diag.DistinctExpressions),
			slog.Duration("rank_duration", elapsed),
		)

		if math.Abs(best.Score) < m.cfg.Epsilon {
			converged = true
			break
		}
		if gen == m.cfg.MaxGenerations {
			break
		}

		population, counts, err = m.nextGeneration(scored)
		if err != nil {
			return RunResult{}, fmt.Errorf("generation %d: %w", gen, err)
		}
	}

	m.logger.Info("evolution finished",
		slog.Bool("converged", converged),
		slog.Int("generations", len(bestHistory)),
		slog.Float64("best_score", scored[0].Score),
	)

	return RunResult{
		Winner:           scored[0].Expr,
		WinnerScore:      scored[0].Score,
		Converged:        converged,
		Generations:      len(bestHistory),
		BestByGeneration: bestHistory,
		Diagnostics:      diagnostics,
		FinalPopulation:  scored,
	}, nil
}

func (m *PopulationMonitor) initialPopulation(initial []expr.Expr) ([]expr.Expr, error) {
	if initial != nil {
		if len(initial) != m.cfg.PopulationSize {
			return nil, fmt.Errorf("initial population mismatch: got=%d want=%d", len(initial), m.cfg.PopulationSize)
		}
		population := make([]expr.Expr, len(initial))
		for i, e := range initial {
			if e == nil {
				return nil, fmt.Errorf("%w: initial population has nil individual at %d", ErrContractViolation, i)
			}
			population[i] = e
		}
		return population, nil
	}

	population := make([]expr.Expr, m.cfg.PopulationSize)
	for i := range population {
		population[i] = grow(m.rng, m.cfg.VariableNames, m.cfg.Generate.MaxDepth, m.cfg.Generate)
	}
	return population, nil
}

func (m *PopulationMonitor) rank(ctx context.Context, population []expr.Expr) (ScoredPopulation, error) {
	scored, err := m.cfg.Ranker.Rank(ctx, population)
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		return nil, ErrEmptyRanking
	}
	if len(scored) != len(population) {
		return nil, fmt.Errorf("%w: got %d scores for %d individuals", ErrInvalidRanking, len(scored), len(population))
	}
	for i := range scored {
		if scored[i].Expr == nil {
			return nil, fmt.Errorf("%w: nil individual at rank %d", ErrInvalidRanking, i)
		}
		if math.IsNaN(scored[i].Score) {
			return nil, fmt.Errorf("%w: NaN score at rank %d", ErrInvalidRanking, i)
		}
		if i > 0 && scored[i].Score < scored[i-1].Score {
			return nil, fmt.Errorf("%w: rank %d scores %v after %v", ErrInvalidRanking, i, scored[i].Score, scored[i-1].Score)
		}
	}
	return scored, nil
}

// nextGeneration keeps the EliteCount best untouched and fills every other
// slot either by crossover+mutation of two rank-selected parents or, with
// probability PNew, by a freshly grown tree.
func (m *PopulationMonitor) nextGeneration(ranked ScoredPopulation) ([]expr.Expr, OffspringCounts, error) {
	next := make([]expr.Expr, m.cfg.PopulationSize)
	var counts OffspringCounts

	elites := m.cfg.EliteCount
	if elites > len(ranked) {
		elites = len(ranked)
	}
	for i := 0; i < elites; i++ {
		next[i] = ranked[i].Expr
		counts.Elite++
	}

	for i := elites; i < len(next); i++ {
		if m.rng.Float64() > m.cfg.PNew {
			recipient := ranked[m.cfg.Selector.SelectIndex(m.rng, len(ranked))].Expr
			donor := ranked[m.cfg.Selector.SelectIndex(m.rng, len(ranked))].Expr
			child, err := m.breeder.Breed(m.rng, recipient, donor)
			if err != nil {
				return nil, OffspringCounts{}, fmt.Errorf("%s: %w", m.breeder.Name(), err)
			}
			child, err = m.mutation.Apply(m.rng, child)
			if err != nil {
				return nil, OffspringCounts{}, fmt.Errorf("%s: %w", m.mutation.Name(), err)
			}
			next[i] = child
			counts.Bred++
			continue
		}
		next[i] = grow(m.rng, m.cfg.VariableNames, m.cfg.Generate.MaxDepth, m.cfg.Generate)
		counts.Fresh++
	}
	return next, counts, nil
}

func (m *PopulationMonitor) notify(report GenerationReport) {
	for _, observer := range m.cfg.Observers {
		if observer != nil {
			observer.ObserveGeneration(report)
		}
	}
}

func summarizeGeneration(scored ScoredPopulation, generation int, counts OffspringCounts) GenerationDiagnostics {
	if len(scored) == 0 {
		return GenerationDiagnostics{Generation: generation, Offspring: counts}
	}

	var totalScore, totalSize, totalDepth float64
	finite := 0
	worst := scored[0].Score
	fingerprints := make(map[string]struct{}, len(scored))
	for _, item := range scored {
		if math.IsInf(item.Score, 0) || math.IsNaN(item.Score) {
			continue
		}
		finite++
		totalScore += item.Score
		worst = item.Score
	}
	for _, item := range scored {
		totalSize += float64(expr.Size(item.Expr))
		totalDepth += float64(expr.Depth(item.Expr))
		fingerprints[Fingerprint(item.Expr)] = struct{}{}
	}
	mean := worst
	if finite > 0 {
		mean = totalScore / float64(finite)
	}
	n := float64(len(scored))
	return GenerationDiagnostics{
		Generation:          generation,
		BestScore:           scored[0].Score,
		MeanScore:           mean,
		WorstScore:          worst,
		MeanSize:            totalSize / n,
		MeanDepth:           totalDepth / n,
		DistinctExpressions: len(fingerprints),
		NonFiniteScores:     len(scored) - finite,
		Offspring:           counts,
	}
}
