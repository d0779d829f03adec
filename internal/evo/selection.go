package evo

import (
	"fmt"
	"math"
	"math/rand"
)

// Selector chooses a parent position from a population ranked best-first.
type Selector interface {
	Name() string
	SelectIndex(rng *rand.Rand, n int) int
}

// RankBiasedSelector draws floor(ln(u)/ln(PExp)) for u uniform in (0,1),
// so index 0 is most likely and each later rank is PExp times as likely as
// the one before it. The draw is clamped into [0, n-1].
type RankBiasedSelector struct {
	PExp float64
}

func (RankBiasedSelector) Name() string {
	return "rank_biased"
}

func (s RankBiasedSelector) Validate() error {
	if !(s.PExp > 0 && s.PExp < 1) {
		return fmt.Errorf("%w: selection decay must be in (0, 1), got %v", ErrContractViolation, s.PExp)
	}
	return nil
}

func (s RankBiasedSelector) SelectIndex(rng *rand.Rand, n int) int {
	if n <= 1 {
		return 0
	}
	u := rng.Float64()
	for u == 0 {
		u = rng.Float64()
	}
	return clampIndex(math.Log(u)/math.Log(s.PExp), n)
}

func clampIndex(raw float64, n int) int {
	if math.IsNaN(raw) || raw < 0 {
		return 0
	}
	if raw >= float64(n-1) {
		return n - 1
	}
	return int(math.Floor(raw))
}

// UniformSelector ignores rank entirely; it is the no-pressure baseline.
type UniformSelector struct{}

func (UniformSelector) Name() string {
	return "uniform"
}

func (UniformSelector) SelectIndex(rng *rand.Rand, n int) int {
	if n <= 1 {
		return 0
	}
	return rng.Intn(n)
}

// TournamentSelector samples Size positions uniformly and keeps the best
// ranked one, which is the smallest index.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) SelectIndex(rng *rand.Rand, n int) int {
	if n <= 1 {
		return 0
	}
	size := s.Size
	if size <= 0 {
		size = 3
	}
	best := rng.Intn(n)
	for i := 1; i < size; i++ {
		if candidate := rng.Intn(n); candidate < best {
			best = candidate
		}
	}
	return best
}

// SelectorByName resolves the selection strategies exposed on the CLI.
func SelectorByName(name string, pexp float64, tournamentSize int) (Selector, error) {
	switch name {
	case "", "rank_biased":
		s := RankBiasedSelector{PExp: pexp}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return s, nil
	case "tournament":
		return TournamentSelector{Size: tournamentSize}, nil
	case "uniform":
		return UniformSelector{}, nil
	default:
		return nil, fmt.Errorf("unsupported selection strategy: %s", name)
	}
}
