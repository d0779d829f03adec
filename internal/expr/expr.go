// Package expr defines the closed expression language evolved by the search:
// two terminal kinds (constants and named parameters) and five non-terminal
// kinds (add, sub, mul, greater-than, if). Trees are immutable values and
// subtrees may be shared between parents.
package expr

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrMissingVariable = errors.New("missing variable")
	ErrUnknownKind     = errors.New("unknown expression kind")
)

// MissingVariableError reports a Param lookup that the evaluation context
// could not satisfy. It matches ErrMissingVariable under errors.Is.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("%s: %q not present in context", ErrMissingVariable, e.Name)
}

func (e *MissingVariableError) Is(target error) bool {
	return target == ErrMissingVariable
}

// Context binds parameter names to values for one evaluation.
type Context map[string]float64

type Kind int

const (
	KindConst Kind = iota
	KindParam
	KindAdd
	KindSub
	KindMul
	KindIf
	KindGt
)

// NonTerminalKinds lists the kinds the generator draws from, in draw order.
var NonTerminalKinds = []Kind{KindAdd, KindSub, KindMul, KindIf, KindGt}

var kindNames = map[Kind]string{
	KindConst: "const",
	KindParam: "param",
	KindAdd:   "add",
	KindSub:   "sub",
	KindMul:   "mul",
	KindIf:    "if",
	KindGt:    "gt",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind resolves the lowercase kind name used by the JSON codec.
func ParseKind(name string) (Kind, error) {
	for kind, candidate := range kindNames {
		if candidate == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Arity is the number of children a node of this kind carries.
func (k Kind) Arity() int {
	switch k {
	case KindConst, KindParam:
		return 0
	case KindAdd, KindSub, KindMul, KindGt:
		return 2
	case KindIf:
		return 3
	default:
		return -1
	}
}

// Expr is implemented only by the node types of this package.
type Expr interface {
	Kind() Kind
	Evaluate(ctx Context) (float64, error)
	IsTerminal() bool
	// RandomChild returns one direct child picked uniformly; terminals return
	// themselves.
	RandomChild(rng *rand.Rand) Expr
	String() string

	sealed()
}

type Const struct {
	Value float64
}

type Param struct {
	Name string
}

type Add struct {
	Left, Right Expr
}

type Sub struct {
	Left, Right Expr
}

type Mul struct {
	Left, Right Expr
}

// Gt evaluates to 1 when Left is strictly greater than Right and 0 otherwise.
type Gt struct {
	Left, Right Expr
}

// If evaluates Then when Cond is strictly positive and Else otherwise.
type If struct {
	Cond, Then, Else Expr
}

func (Const) sealed() {}
func (Param) sealed() {}
func (Add) sealed()   {}
func (Sub) sealed()   {}
func (Mul) sealed()   {}
func (Gt) sealed()    {}
func (If) sealed()    {}

func (Const) Kind() Kind { return KindConst }
func (Param) Kind() Kind { return KindParam }
func (Add) Kind() Kind   { return KindAdd }
func (Sub) Kind() Kind   { return KindSub }
func (Mul) Kind() Kind   { return KindMul }
func (Gt) Kind() Kind    { return KindGt }
func (If) Kind() Kind    { return KindIf }

func (Const) IsTerminal() bool { return true }
func (Param) IsTerminal() bool { return true }
func (Add) IsTerminal() bool   { return false }
func (Sub) IsTerminal() bool   { return false }
func (Mul) IsTerminal() bool   { return false }
func (Gt) IsTerminal() bool    { return false }
func (If) IsTerminal() bool    { return false }

func (c Const) Evaluate(Context) (float64, error) {
	return c.Value, nil
}

func (p Param) Evaluate(ctx Context) (float64, error) {
	v, ok := ctx[p.Name]
	if !ok {
		return 0, &MissingVariableError{Name: p.Name}
	}
	return v, nil
}

func (e Add) Evaluate(ctx Context) (float64, error) {
	l, r, err := evaluatePair(ctx, e.Left, e.Right)
	if err != nil {
		return 0, err
	}
	return l + r, nil
}

func (e Sub) Evaluate(ctx Context) (float64, error) {
	l, r, err := evaluatePair(ctx, e.Left, e.Right)
	if err != nil {
		return 0, err
	}
	return l - r, nil
}

func (e Mul) Evaluate(ctx Context) (float64, error) {
	l, r, err := evaluatePair(ctx, e.Left, e.Right)
	if err != nil {
		return 0, err
	}
	return l * r, nil
}

func (e Gt) Evaluate(ctx Context) (float64, error) {
	l, r, err := evaluatePair(ctx, e.Left, e.Right)
	if err != nil {
		return 0, err
	}
	if l > r {
		return 1, nil
	}
	return 0, nil
}

func (e If) Evaluate(ctx Context) (float64, error) {
	cond, err := e.Cond.Evaluate(ctx)
	if err != nil {
		return 0, err
	}
	if cond > 0 {
		return e.Then.Evaluate(ctx)
	}
	return e.Else.Evaluate(ctx)
}

func evaluatePair(ctx Context, left, right Expr) (float64, float64, error) {
	l, err := left.Evaluate(ctx)
	if err != nil {
		return 0, 0, err
	}
	r, err := right.Evaluate(ctx)
	if err != nil {
		return 0, 0, err
	}
	return l, r, nil
}

func (c Const) RandomChild(*rand.Rand) Expr { return c }
func (p Param) RandomChild(*rand.Rand) Expr { return p }

func (e Add) RandomChild(rng *rand.Rand) Expr { return pickOfTwo(rng, e.Left, e.Right) }
func (e Sub) RandomChild(rng *rand.Rand) Expr { return pickOfTwo(rng, e.Left, e.Right) }
func (e Mul) RandomChild(rng *rand.Rand) Expr { return pickOfTwo(rng, e.Left, e.Right) }
func (e Gt) RandomChild(rng *rand.Rand) Expr  { return pickOfTwo(rng, e.Left, e.Right) }

func (e If) RandomChild(rng *rand.Rand) Expr {
	switch rng.Intn(3) {
	case 0:
		return e.Cond
	case 1:
		return e.Then
	default:
		return e.Else
	}
}

func pickOfTwo(rng *rand.Rand, a, b Expr) Expr {
	if rng.Intn(2) == 0 {
		return a
	}
	return b
}
