package evo

import (
	"fmt"
	"math/rand"

	"symreg/internal/expr"
)

// Crossover recombines recipient with donor. The offspring keeps the
// recipient's shape at the root; below it, each position is replaced by the
// donor-side candidate with probability swapProb, otherwise the recipient's
// child is crossed recursively against a random child of the donor-side
// candidate. Terminals on either side stop the descent and keep the
// recipient's node.
func Crossover(rng *rand.Rand, recipient, donor expr.Expr, swapProb float64) (expr.Expr, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if recipient == nil || donor == nil {
		return nil, fmt.Errorf("%w: crossover requires two trees", ErrContractViolation)
	}
	if err := checkProbability("swap probability", swapProb); err != nil {
		return nil, err
	}
	return crossover(rng, recipient, donor, swapProb, true)
}

func crossover(rng *rand.Rand, e1, e2 expr.Expr, swapProb float64, root bool) (expr.Expr, error) {
	if !root && rng.Float64() < swapProb {
		return e2, nil
	}
	if e1.IsTerminal() || e2.IsTerminal() {
		return e1, nil
	}

	var err error
	cross := func(c expr.Expr) expr.Expr {
		if err != nil {
			return nil
		}
		var out expr.Expr
		out, err = crossover(rng, c, e2.RandomChild(rng), swapProb, false)
		return out
	}

	var out expr.Expr
	switch n := e1.(type) {
	case expr.Add:
		out = expr.Add{Left: cross(n.Left), Right: cross(n.Right)}
	case expr.Sub:
		out = expr.Sub{Left: cross(n.Left), Right: cross(n.Right)}
	case expr.Mul:
		out = expr.Mul{Left: cross(n.Left), Right: cross(n.Right)}
	case expr.Gt:
		out = expr.Gt{Left: cross(n.Left), Right: cross(n.Right)}
	case expr.If:
		out = expr.If{Cond: cross(n.Cond), Then: cross(n.Then), Else: cross(n.Else)}
	default:
		return nil, fmt.Errorf("crossover: %w: %T", expr.ErrUnknownKind, e1)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CrossoverOperator binds Crossover to a swap probability.
type CrossoverOperator struct {
	SwapProb float64
}

func (CrossoverOperator) Name() string {
	return "crossover"
}

func (o CrossoverOperator) Breed(rng *rand.Rand, recipient, donor expr.Expr) (expr.Expr, error) {
	return Crossover(rng, recipient, donor, o.SwapProb)
}
