package evo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"symreg/internal/expr"
)

var testVariables = []string{"x", "y"}

func exampleTree() expr.Expr {
	return expr.If{
		Cond: expr.Gt{Left: expr.Param{Name: "x"}, Right: expr.Const{Value: 3}},
		Then: expr.Add{Left: expr.Param{Name: "y"}, Right: expr.Const{Value: 5}},
		Else: expr.Sub{Left: expr.Param{Name: "y"}, Right: expr.Const{Value: 2}},
	}
}

func TestRandomExprRespectsDepthAndVariables(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	opts := GenerateOptions{MaxDepth: 3, FunctionProb: 0.9, ParamProb: 0.6}
	for i := 0; i < 200; i++ {
		tree, err := RandomExpr(rng, testVariables, opts)
		require.NoError(t, err)
		assert.LessOrEqual(t, expr.Depth(tree), opts.MaxDepth+1)
		for _, name := range expr.Variables(tree) {
			assert.Contains(t, testVariables, name)
		}
		_, err = tree.Evaluate(expr.Context{"x": 1, "y": 2})
		require.NoError(t, err)
	}
}

func TestRandomExprTerminalChoices(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 50; i++ {
		tree, err := RandomExpr(rng, testVariables, GenerateOptions{MaxDepth: 4, FunctionProb: 0, ParamProb: 1})
		require.NoError(t, err)
		require.IsType(t, expr.Param{}, tree)
	}

	for i := 0; i < 50; i++ {
		tree, err := RandomExpr(rng, testVariables, GenerateOptions{MaxDepth: 0, FunctionProb: 1, ParamProb: 0})
		require.NoError(t, err)
		c, ok := tree.(expr.Const)
		require.True(t, ok, "expected const, got %T", tree)
		assert.GreaterOrEqual(t, c.Value, 0.0)
		assert.Less(t, c.Value, 1.0)
	}
}

func TestRandomExprDrawsEveryNonTerminal(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	seen := map[expr.Kind]int{}
	for i := 0; i < 500; i++ {
		tree, err := RandomExpr(rng, testVariables, GenerateOptions{MaxDepth: 1, FunctionProb: 1, ParamProb: 0.5})
		require.NoError(t, err)
		seen[tree.Kind()]++
	}
	for _, kind := range expr.NonTerminalKinds {
		assert.Greater(t, seen[kind], 50, kind.String())
	}
}

func TestRandomExprRejectsInvalidArguments(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	cases := map[string]struct {
		vars []string
		opts GenerateOptions
	}{
		"negative depth":    {testVariables, GenerateOptions{MaxDepth: -1, FunctionProb: 0.5, ParamProb: 0.5}},
		"function prob > 1": {testVariables, GenerateOptions{MaxDepth: 2, FunctionProb: 1.5, ParamProb: 0.5}},
		"param prob < 0":    {testVariables, GenerateOptions{MaxDepth: 2, FunctionProb: 0.5, ParamProb: -0.1}},
		"no variables":      {nil, DefaultGenerateOptions()},
		"empty variable":    {[]string{"x", ""}, DefaultGenerateOptions()},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := RandomExpr(rng, tc.vars, tc.opts)
			assert.ErrorIs(t, err, ErrContractViolation)
		})
	}

	_, err := RandomExpr(nil, testVariables, DefaultGenerateOptions())
	assert.Error(t, err)
}

func TestMutateWithZeroChangeKeepsStructure(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	tree := exampleTree()
	for i := 0; i < 20; i++ {
		mutated, err := Mutate(rng, tree, testVariables, 0)
		require.NoError(t, err)
		assert.True(t, expr.Equal(tree, mutated))
	}
}

func TestMutateWithFullChangeReplacesRoot(t *testing.T) {
	tree := exampleTree()

	got, err := Mutate(rand.New(rand.NewSource(6)), tree, testVariables, 1)
	require.NoError(t, err)

	replay := rand.New(rand.NewSource(6))
	replay.Float64()
	want := grow(replay, testVariables, DefaultGenerateOptions().MaxDepth, DefaultGenerateOptions())
	assert.True(t, expr.Equal(want, got), "want %s got %s", want, got)
}

func TestMutateLeavesInputUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := exampleTree()
	before := expr.Render(tree)
	changed := 0
	for i := 0; i < 50; i++ {
		mutated, err := Mutate(rng, tree, testVariables, 0.3)
		require.NoError(t, err)
		if !expr.Equal(tree, mutated) {
			changed++
		}
	}
	assert.Equal(t, before, expr.Render(tree))
	assert.Greater(t, changed, 0)
}

func TestMutateRejectsInvalidArguments(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	_, err := Mutate(rng, exampleTree(), testVariables, 1.1)
	assert.ErrorIs(t, err, ErrContractViolation)
	_, err = Mutate(rng, nil, testVariables, 0.1)
	assert.ErrorIs(t, err, ErrContractViolation)
	_, err = Mutate(rng, exampleTree(), nil, 0.1)
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestCrossoverWithTerminalReturnsRecipient(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	tree := exampleTree()
	leaf := expr.Const{Value: 0.5}

	got, err := Crossover(rng, tree, leaf, 0.7)
	require.NoError(t, err)
	assert.True(t, expr.Equal(tree, got))

	got, err = Crossover(rng, expr.Param{Name: "x"}, tree, 0.7)
	require.NoError(t, err)
	assert.Equal(t, expr.Param{Name: "x"}, got)
}

func TestCrossoverWithZeroSwapKeepsRecipientShape(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	donor := expr.Mul{
		Left:  expr.Add{Left: expr.Param{Name: "x"}, Right: expr.Param{Name: "x"}},
		Right: expr.Gt{Left: expr.Const{Value: 0.1}, Right: expr.Param{Name: "y"}},
	}
	for i := 0; i < 30; i++ {
		got, err := Crossover(rng, exampleTree(), donor, 0)
		require.NoError(t, err)
		assert.True(t, expr.Equal(exampleTree(), got), "got %s", got)
	}
}

func TestCrossoverWithFullSwapSplicesDonorChildren(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	donor := expr.Mul{
		Left:  expr.Add{Left: expr.Param{Name: "x"}, Right: expr.Const{Value: 9}},
		Right: expr.Const{Value: 7},
	}
	donorChildren := expr.Children(donor)
	for i := 0; i < 30; i++ {
		got, err := Crossover(rng, exampleTree(), donor, 1)
		require.NoError(t, err)
		require.Equal(t, expr.KindIf, got.Kind())
		for _, child := range expr.Children(got) {
			assert.True(t,
				expr.Equal(child, donorChildren[0]) || expr.Equal(child, donorChildren[1]),
				"child %s is not a donor child", child)
		}
	}
}

func TestCrossoverRootKindFollowsRecipient(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	for i := 0; i < 100; i++ {
		a, err := RandomExpr(rng, testVariables, DefaultGenerateOptions())
		require.NoError(t, err)
		b, err := RandomExpr(rng, testVariables, DefaultGenerateOptions())
		require.NoError(t, err)
		before := expr.Render(a)

		child, err := Crossover(rng, a, b, 0.7)
		require.NoError(t, err)
		assert.Equal(t, a.Kind(), child.Kind())
		assert.Equal(t, before, expr.Render(a))
	}
}

func TestCrossoverRejectsInvalidArguments(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	_, err := Crossover(rng, exampleTree(), exampleTree(), -0.5)
	assert.ErrorIs(t, err, ErrContractViolation)
	_, err = Crossover(rng, nil, exampleTree(), 0.5)
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestOperatorsExposeNames(t *testing.T) {
	var op Operator = MutationOperator{Variables: testVariables, ChangeProb: 0}
	var breeder Breeder = CrossoverOperator{SwapProb: 0}
	assert.Equal(t, "mutate", op.Name())
	assert.Equal(t, "crossover", breeder.Name())

	rng := rand.New(rand.NewSource(14))
	out, err := op.Apply(rng, exampleTree())
	require.NoError(t, err)
	assert.True(t, expr.Equal(exampleTree(), out))

	out, err = breeder.Breed(rng, exampleTree(), exampleTree())
	require.NoError(t, err)
	assert.True(t, expr.Equal(exampleTree(), out))
}

func TestComputeExprSignature(t *testing.T) {
	sig := ComputeExprSignature(exampleTree())
	assert.Equal(t, 10, sig.Summary.Size)
	assert.Equal(t, 3, sig.Summary.Depth)
	assert.Equal(t, []string{"x", "y"}, sig.Summary.Variables)
	assert.Equal(t, 1, sig.Summary.Kinds["if"])
	assert.Equal(t, 3, sig.Summary.Kinds["const"])
	assert.Equal(t, Fingerprint(exampleTree()), sig.Fingerprint)
	assert.NotEqual(t, sig.Fingerprint, Fingerprint(expr.Const{Value: 1}))
}
