package fitness

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"symreg/internal/evo"
	"symreg/internal/expr"
)

// Ranker implements evo.Ranker over a fixed dataset. Scoring consumes no
// randomness, so any worker count yields the same ranking.
type Ranker struct {
	Dataset Dataset
	Metric  Metric
	// Workers bounds concurrent scoring; zero means GOMAXPROCS.
	Workers int
	// Parsimony is added to the score once per tree node.
	Parsimony float64
}

func (r Ranker) Validate() error {
	if len(r.Dataset) == 0 {
		return fmt.Errorf("dataset is empty")
	}
	if _, err := ParseMetric(string(r.Metric)); err != nil {
		return err
	}
	if r.Parsimony < 0 {
		return fmt.Errorf("parsimony must be >= 0, got %v", r.Parsimony)
	}
	return nil
}

func (r Ranker) Rank(ctx context.Context, population []expr.Expr) (evo.ScoredPopulation, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	scored := make(evo.ScoredPopulation, len(population))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range population {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score, err := Score(e, r.Dataset, r.Metric)
			if err != nil {
				return fmt.Errorf("score individual %d: %w", i, err)
			}
			if r.Parsimony > 0 {
				score += r.Parsimony * float64(expr.Size(e))
			}
			scored[i] = evo.ScoredExpr{Score: score, Expr: e}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})
	return scored, nil
}
