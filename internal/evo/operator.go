package evo

import (
	"math/rand"

	"symreg/internal/expr"
)

// Operator derives one tree from another.
type Operator interface {
	Name() string
	Apply(rng *rand.Rand, e expr.Expr) (expr.Expr, error)
}

// Breeder derives one tree from two parents.
type Breeder interface {
	Name() string
	Breed(rng *rand.Rand, recipient, donor expr.Expr) (expr.Expr, error)
}
