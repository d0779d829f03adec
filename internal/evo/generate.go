package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"symreg/internal/expr"
)

// ErrContractViolation marks arguments outside an operator's documented domain.
var ErrContractViolation = errors.New("contract violation")

// GenerateOptions bounds the shape of randomly grown trees.
type GenerateOptions struct {
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
	// FunctionProb is the chance of a non-terminal where depth budget remains.
	FunctionProb float64 `json:"function_prob" yaml:"function_prob"`
	// ParamProb is the chance a terminal is a Param rather than a Const.
	ParamProb float64 `json:"param_prob" yaml:"param_prob"`
}

func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		MaxDepth:     4,
		FunctionProb: 0.5,
		ParamProb:    0.6,
	}
}

func (o GenerateOptions) Validate() error {
	if o.MaxDepth < 0 {
		return fmt.Errorf("%w: max depth must be >= 0, got %d", ErrContractViolation, o.MaxDepth)
	}
	if err := checkProbability("function probability", o.FunctionProb); err != nil {
		return err
	}
	return checkProbability("param probability", o.ParamProb)
}

// RandomExpr grows a tree whose depth never exceeds opts.MaxDepth+1 nodes.
func RandomExpr(rng *rand.Rand, variables []string, opts GenerateOptions) (expr.Expr, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := checkVariables(variables); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return grow(rng, variables, opts.MaxDepth, opts), nil
}

func grow(rng *rand.Rand, variables []string, depth int, opts GenerateOptions) expr.Expr {
	if depth > 0 && rng.Float64() < opts.FunctionProb {
		child := func() expr.Expr { return grow(rng, variables, depth-1, opts) }
		switch expr.NonTerminalKinds[rng.Intn(len(expr.NonTerminalKinds))] {
		case expr.KindAdd:
			return expr.Add{Left: child(), Right: child()}
		case expr.KindSub:
			return expr.Sub{Left: child(), Right: child()}
		case expr.KindMul:
			return expr.Mul{Left: child(), Right: child()}
		case expr.KindIf:
			return expr.If{Cond: child(), Then: child(), Else: child()}
		case expr.KindGt:
			return expr.Gt{Left: child(), Right: child()}
		default:
			panic("evo: non-terminal kind table out of sync with grow")
		}
	}
	if rng.Float64() < opts.ParamProb {
		return expr.Param{Name: variables[rng.Intn(len(variables))]}
	}
	return expr.Const{Value: rng.Float64()}
}

func checkProbability(name string, p float64) error {
	if !(p >= 0 && p <= 1) {
		return fmt.Errorf("%w: %s must be in [0, 1], got %v", ErrContractViolation, name, p)
	}
	return nil
}

func checkVariables(variables []string) error {
	if len(variables) == 0 {
		return fmt.Errorf("%w: at least one variable name is required", ErrContractViolation)
	}
	for i, name := range variables {
		if name == "" {
			return fmt.Errorf("%w: variable name at index %d is empty", ErrContractViolation, i)
		}
	}
	return nil
}
