package evo

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symreg/internal/expr"
)

// absErrorRanker scores against y = 2x + 1 on a handful of points.
func absErrorRanker(calls *int, seen *[][]expr.Expr) RankFunc {
	points := []float64{0, 1, 2, 3, 4}
	return func(_ context.Context, population []expr.Expr) (ScoredPopulation, error) {
		if calls != nil {
			*calls++
		}
		if seen != nil {
			*seen = append(*seen, append([]expr.Expr(nil), population...))
		}
		out := make(ScoredPopulation, 0, len(population))
		for _, e := range population {
			total := 0.0
			for _, x := range points {
				got, err := e.Evaluate(expr.Context{"x": x, "y": 0})
				if err != nil {
					return nil, err
				}
				total += math.Abs(got - (2*x + 1))
			}
			if math.IsNaN(total) {
				total = math.Inf(1)
			}
			out = append(out, ScoredExpr{Score: total, Expr: e})
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
		return out, nil
	}
}

func testMonitorConfig(ranker Ranker) MonitorConfig {
	cfg := DefaultMonitorConfig()
	cfg.VariableNames = testVariables
	cfg.PopulationSize = 30
	cfg.MaxGenerations = 15
	cfg.Ranker = ranker
	cfg.Seed = 99
	return cfg
}

func TestPopulationMonitorZeroGenerationsRanksOnce(t *testing.T) {
	calls := 0
	var seen [][]expr.Expr
	cfg := testMonitorConfig(absErrorRanker(&calls, &seen))
	cfg.MaxGenerations = 0

	result, err := Evolve(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, result.Generations)
	require.Len(t, result.BestByGeneration, 1)
	require.Len(t, result.FinalPopulation, cfg.PopulationSize)
	assert.Equal(t, result.FinalPopulation[0].Score, result.WinnerScore)
	assert.True(t, expr.Equal(result.FinalPopulation[0].Expr, result.Winner))
	assert.Len(t, seen[0], cfg.PopulationSize)
}

func TestPopulationMonitorBestScoreNeverWorsens(t *testing.T) {
	cfg := testMonitorConfig(absErrorRanker(nil, nil))
	cfg.MaxGenerations = 25

	result, err := Evolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, result.BestByGeneration)
	for i := 1; i < len(result.BestByGeneration); i++ {
		assert.LessOrEqual(t, result.BestByGeneration[i], result.BestByGeneration[i-1], "generation %d", i)
	}
	last := result.BestByGeneration[len(result.BestByGeneration)-1]
	assert.Equal(t, last, result.WinnerScore)
}

func TestPopulationMonitorCarriesElitesUnchanged(t *testing.T) {
	var seen [][]expr.Expr
	ranker := absErrorRanker(nil, &seen)
	var ranked []ScoredPopulation
	recording := RankFunc(func(ctx context.Context, population []expr.Expr) (ScoredPopulation, error) {
		out, err := ranker(ctx, population)
		ranked = append(ranked, out)
		return out, err
	})
	cfg := testMonitorConfig(recording)
	cfg.MaxGenerations = 4
	cfg.Epsilon = 1e-300

	_, err := Evolve(context.Background(), cfg)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(seen), 2)
	for gen := 1; gen < len(seen); gen++ {
		assert.True(t, expr.Equal(ranked[gen-1][0].Expr, seen[gen][0]), "generation %d slot 0", gen)
		assert.True(t, expr.Equal(ranked[gen-1][1].Expr, seen[gen][1]), "generation %d slot 1", gen)
	}
}

func TestPopulationMonitorStopsOnPerfectScore(t *testing.T) {
	calls := 0
	perfect := RankFunc(func(_ context.Context, population []expr.Expr) (ScoredPopulation, error) {
		calls++
		out := make(ScoredPopulation, len(population))
		for i, e := range population {
			out[i] = ScoredExpr{Score: float64(i + 1), Expr: e}
		}
		if calls == 3 {
			out[0].Score = 5e-7
		}
		return out, nil
	})
	cfg := testMonitorConfig(perfect)
	cfg.MaxGenerations = 100

	result, err := Evolve(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, result.Converged)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, result.Generations)
	assert.Equal(t, 5e-7, result.WinnerScore)
}

func TestPopulationMonitorIsReproducibleFromSeed(t *testing.T) {
	run := func() RunResult {
		result, err := Evolve(context.Background(), testMonitorConfig(absErrorRanker(nil, nil)))
		require.NoError(t, err)
		return result
	}
	a, b := run(), run()
	assert.Equal(t, a.BestByGeneration, b.BestByGeneration)
	assert.Equal(t, expr.Render(a.Winner), expr.Render(b.Winner))
}

func TestPopulationMonitorReportsEveryGeneration(t *testing.T) {
	var reports []GenerationReport
	cfg := testMonitorConfig(absErrorRanker(nil, nil))
	cfg.MaxGenerations = 6
	cfg.Epsilon = 1e-300
	cfg.Observers = []Observer{ObserverFunc(func(r GenerationReport) {
		reports = append(reports, r)
	})}

	result, err := Evolve(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, reports, result.Generations)
	for i, report := range reports {
		assert.Equal(t, i, report.Generation)
		assert.Equal(t, result.BestByGeneration[i], report.BestScore)
		assert.NotNil(t, report.Best)
	}

	assert.Equal(t, cfg.PopulationSize, reports[0].Diagnostics.Offspring.Seed)
	for _, report := range reports[1:] {
		counts := report.Diagnostics.Offspring
		assert.Equal(t, 2, counts.Elite)
		assert.Equal(t, cfg.PopulationSize, counts.Elite+counts.Bred+counts.Fresh)
		assert.Positive(t, report.Diagnostics.DistinctExpressions)
	}
}

func TestPopulationMonitorRejectsEmptyRanking(t *testing.T) {
	empty := RankFunc(func(context.Context, []expr.Expr) (ScoredPopulation, error) {
		return nil, nil
	})
	_, err := Evolve(context.Background(), testMonitorConfig(empty))
	assert.ErrorIs(t, err, ErrEmptyRanking)
}

func TestPopulationMonitorRejectsInvalidRanking(t *testing.T) {
	short := RankFunc(func(_ context.Context, population []expr.Expr) (ScoredPopulation, error) {
		return ScoredPopulation{{Score: 1, Expr: population[0]}}, nil
	})
	_, err := Evolve(context.Background(), testMonitorConfig(short))
	assert.ErrorIs(t, err, ErrInvalidRanking)

	unsorted := RankFunc(func(_ context.Context, population []expr.Expr) (ScoredPopulation, error) {
		out := make(ScoredPopulation, len(population))
		for i, e := range population {
			out[i] = ScoredExpr{Score: float64(len(population) - i), Expr: e}
		}
		return out, nil
	})
	_, err = Evolve(context.Background(), testMonitorConfig(unsorted))
	assert.ErrorIs(t, err, ErrInvalidRanking)
}

func TestPopulationMonitorPropagatesRankerErrors(t *testing.T) {
	missing := RankFunc(func(_ context.Context, population []expr.Expr) (ScoredPopulation, error) {
		_, err := expr.Param{Name: "z"}.Evaluate(expr.Context{})
		return nil, err
	})
	_, err := Evolve(context.Background(), testMonitorConfig(missing))
	assert.ErrorIs(t, err, expr.ErrMissingVariable)
}

func TestPopulationMonitorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Evolve(ctx, testMonitorConfig(absErrorRanker(nil, nil)))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPopulationMonitorUsesInitialPopulation(t *testing.T) {
	var seen [][]expr.Expr
	cfg := testMonitorConfig(absErrorRanker(nil, &seen))
	cfg.PopulationSize = 2
	cfg.MaxGenerations = 0
	monitor, err := NewPopulationMonitor(cfg)
	require.NoError(t, err)

	exact := expr.Add{Left: expr.Mul{Left: expr.Const{Value: 2}, Right: expr.Param{Name: "x"}}, Right: expr.Const{Value: 1}}
	result, err := monitor.Run(context.Background(), []expr.Expr{expr.Param{Name: "x"}, exact})
	require.NoError(t, err)
	assert.True(t, result.Converged)
	assert.Equal(t, 0.0, result.WinnerScore)
	assert.True(t, expr.Equal(exact, result.Winner))

	_, err = monitor.Run(context.Background(), []expr.Expr{exact})
	assert.Error(t, err)
}

func TestNewPopulationMonitorValidatesConfig(t *testing.T) {
	base := testMonitorConfig(absErrorRanker(nil, nil))
	cases := map[string]func(*MonitorConfig){
		"population":  func(c *MonitorConfig) { c.PopulationSize = 0 },
		"generations": func(c *MonitorConfig) { c.MaxGenerations = -1 },
		"mutation":    func(c *MonitorConfig) { c.MutationRate = 2 },
		"breeding":    func(c *MonitorConfig) { c.BreedingRate = -1 },
		"pnew":        func(c *MonitorConfig) { c.PNew = 1.01 },
		"pexp":        func(c *MonitorConfig) { c.PExp = 1 },
		"elite":       func(c *MonitorConfig) { c.EliteCount = -1 },
		"variables":   func(c *MonitorConfig) { c.VariableNames = nil },
		"depth":       func(c *MonitorConfig) { c.Generate.MaxDepth = -2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			_, err := NewPopulationMonitor(cfg)
			assert.ErrorIs(t, err, ErrContractViolation)
		})
	}

	cfg := base
	cfg.Ranker = nil
	_, err := NewPopulationMonitor(cfg)
	assert.Error(t, err)
}

func TestPopulationMonitorSingleIndividual(t *testing.T) {
	cfg := testMonitorConfig(absErrorRanker(nil, nil))
	cfg.PopulationSize = 1
	cfg.MaxGenerations = 3
	cfg.Epsilon = 1e-300

	result, err := Evolve(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Generations)
	assert.Len(t, result.FinalPopulation, 1)
}

func TestPopulationMonitorKeepsExplicitZeroGenerateOptions(t *testing.T) {
	var seen [][]expr.Expr
	cfg := testMonitorConfig(absErrorRanker(nil, &seen))
	cfg.MaxGenerations = 0
	cfg.Generate = GenerateOptions{MaxDepth: 0, FunctionProb: 0, ParamProb: 0}

	_, err := Evolve(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	for i, e := range seen[0] {
		require.IsType(t, expr.Const{}, e, "individual %d", i)
		assert.Equal(t, 1, expr.Depth(e))
	}
}

func TestPopulationMonitorRejectsNaNScores(t *testing.T) {
	nanFirst := RankFunc(func(_ context.Context, population []expr.Expr) (ScoredPopulation, error) {
		out := make(ScoredPopulation, len(population))
		for i, e := range population {
			out[i] = ScoredExpr{Score: float64(i), Expr: e}
		}
		out[0].Score = math.NaN()
		return out, nil
	})
	_, err := Evolve(context.Background(), testMonitorConfig(nanFirst))
	assert.ErrorIs(t, err, ErrInvalidRanking)

	nanLast := RankFunc(func(_ context.Context, population []expr.Expr) (ScoredPopulation, error) {
		out := make(ScoredPopulation, len(population))
		for i, e := range population {
			out[i] = ScoredExpr{Score: float64(i), Expr: e}
		}
		out[len(out)-1].Score = math.NaN()
		return out, nil
	})
	_, err = Evolve(context.Background(), testMonitorConfig(nanLast))
	assert.ErrorIs(t, err, ErrInvalidRanking)
}
