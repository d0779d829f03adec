package evo

import (
	"fmt"
	"math/rand"

	"symreg/internal/expr"
)

// Mutate returns a perturbed copy of e. At every node, with probability
// changeProb, the whole subtree is replaced by a fresh tree grown with
// DefaultGenerateOptions; otherwise non-terminals are rebuilt from
// independently mutated children and terminals are kept.
func Mutate(rng *rand.Rand, e expr.Expr, variables []string, changeProb float64) (expr.Expr, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if e == nil {
		return nil, fmt.Errorf("%w: mutate requires a tree", ErrContractViolation)
	}
	if err := checkVariables(variables); err != nil {
		return nil, err
	}
	if err := checkProbability("change probability", changeProb); err != nil {
		return nil, err
	}
	return mutate(rng, e, variables, changeProb)
}

func mutate(rng *rand.Rand, e expr.Expr, variables []string, changeProb float64) (expr.Expr, error) {
	if rng.Float64() < changeProb {
		return grow(rng, variables, DefaultGenerateOptions().MaxDepth, DefaultGenerateOptions()), nil
	}

	var err error
	child := func(c expr.Expr) expr.Expr {
		if err != nil {
			return nil
		}
		var out expr.Expr
		out, err = mutate(rng, c, variables, changeProb)
		return out
	}

	var out expr.Expr
	switch n := e.(type) {
	case expr.Const, expr.Param:
		return n, nil
	case expr.Add:
		out = expr.Add{Left: child(n.Left), Right: child(n.Right)}
	case expr.Sub:
		out = expr.Sub{Left: child(n.Left), Right: child(n.Right)}
	case expr.Mul:
		out = expr.Mul{Left: child(n.Left), Right: child(n.Right)}
	case expr.Gt:
		out = expr.Gt{Left: child(n.Left), Right: child(n.Right)}
	case expr.If:
		out = expr.If{Cond: child(n.Cond), Then: child(n.Then), Else: child(n.Else)}
	default:
		return nil, fmt.Errorf("mutate: %w: %T", expr.ErrUnknownKind, e)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MutationOperator binds Mutate to a variable set and rate.
type MutationOperator struct {
	Variables  []string
	ChangeProb float64
}

func (MutationOperator) Name() string {
	return "mutate"
}

func (o MutationOperator) Apply(rng *rand.Rand, e expr.Expr) (expr.Expr, error) {
	return Mutate(rng, e, o.Variables, o.ChangeProb)
}
