package expr

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() Expr {
	return If{
		Cond: Gt{Left: Param{Name: "x"}, Right: Const{Value: 3}},
		Then: Add{Left: Param{Name: "y"}, Right: Const{Value: 5}},
		Else: Sub{Left: Param{Name: "y"}, Right: Const{Value: 2}},
	}
}

func TestEvaluateSelectsBranchByCondition(t *testing.T) {
	tree := sampleTree()

	got, err := tree.Evaluate(Context{"x": 2, "y": 3})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = tree.Evaluate(Context{"x": 5, "y": 3})
	require.NoError(t, err)
	assert.Equal(t, 8.0, got)
}

func TestEvaluateArithmetic(t *testing.T) {
	ctx := Context{"a": 4, "b": 1.5}
	cases := []struct {
		name string
		e    Expr
		want float64
	}{
		{"const", Const{Value: 0.25}, 0.25},
		{"param", Param{Name: "a"}, 4},
		{"add", Add{Left: Param{Name: "a"}, Right: Param{Name: "b"}}, 5.5},
		{"sub", Sub{Left: Param{Name: "a"}, Right: Param{Name: "b"}}, 2.5},
		{"mul", Mul{Left: Param{Name: "a"}, Right: Param{Name: "b"}}, 6},
		{"gt true", Gt{Left: Param{Name: "a"}, Right: Param{Name: "b"}}, 1},
		{"gt equal", Gt{Left: Param{Name: "a"}, Right: Const{Value: 4}}, 0},
		{"if zero takes else", If{Cond: Const{Value: 0}, Then: Const{Value: 1}, Else: Const{Value: 2}}, 2},
		{"if negative takes else", If{Cond: Const{Value: -1}, Then: Const{Value: 1}, Else: Const{Value: 2}}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.e.Evaluate(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	tree := Mul{Left: sampleTree(), Right: Sub{Left: Param{Name: "x"}, Right: Const{Value: 0.5}}}
	ctx := Context{"x": 7.25, "y": -1}
	first, err := tree.Evaluate(ctx)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := tree.Evaluate(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEvaluateMissingVariable(t *testing.T) {
	_, err := Param{Name: "z"}.Evaluate(Context{"x": 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingVariable))

	var missing *MissingVariableError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "z", missing.Name)

	_, err = Add{Left: Const{Value: 1}, Right: Param{Name: "z"}}.Evaluate(Context{})
	assert.ErrorIs(t, err, ErrMissingVariable)
}

func TestEvaluateSkipsUntakenBranch(t *testing.T) {
	tree := If{Cond: Const{Value: 1}, Then: Const{Value: 9}, Else: Param{Name: "absent"}}
	got, err := tree.Evaluate(Context{})
	require.NoError(t, err)
	assert.Equal(t, 9.0, got)
}

func TestIsTerminalMatchesKind(t *testing.T) {
	leaf := Const{Value: 1}
	nodes := []Expr{
		Const{Value: 1},
		Param{Name: "x"},
		Add{Left: leaf, Right: leaf},
		Sub{Left: leaf, Right: leaf},
		Mul{Left: leaf, Right: leaf},
		Gt{Left: leaf, Right: leaf},
		If{Cond: leaf, Then: leaf, Else: leaf},
	}
	for _, n := range nodes {
		want := n.Kind() == KindConst || n.Kind() == KindParam
		assert.Equal(t, want, n.IsTerminal(), n.Kind().String())
		assert.Equal(t, len(Children(n)), n.Kind().Arity(), n.Kind().String())
	}
}

func TestRandomChildCoversAllChildren(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a, b, c := Const{Value: 1}, Const{Value: 2}, Const{Value: 3}

	binary := Add{Left: a, Right: b}
	seen := map[float64]int{}
	for i := 0; i < 400; i++ {
		seen[binary.RandomChild(rng).(Const).Value]++
	}
	assert.Len(t, seen, 2)
	assert.InDelta(t, 200, seen[1], 60)

	ternary := If{Cond: a, Then: b, Else: c}
	seen = map[float64]int{}
	for i := 0; i < 600; i++ {
		seen[ternary.RandomChild(rng).(Const).Value]++
	}
	assert.Len(t, seen, 3)
	for _, count := range seen {
		assert.InDelta(t, 200, count, 70)
	}

	leaf := Param{Name: "x"}
	assert.Equal(t, leaf, leaf.RandomChild(rng))
}

func TestRender(t *testing.T) {
	assert.Equal(t,
		"(if (x > 3) > 0 then (y + 5) else (y - 2))",
		sampleTree().String())
	assert.Equal(t, "(0.5 * x)", Mul{Left: Const{Value: 0.5}, Right: Param{Name: "x"}}.String())
}

func TestDepthSizeVariables(t *testing.T) {
	tree := sampleTree()
	assert.Equal(t, 3, Depth(tree))
	assert.Equal(t, 10, Size(tree))
	assert.Equal(t, []string{"x", "y"}, Variables(tree))
	assert.Equal(t, 1, Depth(Const{Value: 0}))
	assert.Equal(t, 0, Size(nil))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(sampleTree(), sampleTree()))
	assert.False(t, Equal(sampleTree(), Add{Left: Const{Value: 1}, Right: Const{Value: 2}}))
	assert.False(t, Equal(Const{Value: 1}, Const{Value: 2}))
	assert.False(t, Equal(Param{Name: "x"}, Param{Name: "y"}))
	assert.False(t, Equal(Add{Left: Const{Value: 1}, Right: Const{Value: 2}}, Sub{Left: Const{Value: 1}, Right: Const{Value: 2}}))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, Const{}))
}

func TestCodecPreservesTree(t *testing.T) {
	tree := Mul{Left: sampleTree(), Right: Const{Value: 0}}
	data, err := Marshal(tree)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, Equal(tree, decoded), "decoded %s", decoded)
}

func TestUnmarshalRejectsMalformedNodes(t *testing.T) {
	cases := map[string]string{
		"unknown kind":   `{"kind":"div","children":[{"kind":"const","value":1},{"kind":"const","value":1}]}`,
		"wrong arity":    `{"kind":"add","children":[{"kind":"const","value":1}]}`,
		"missing value":  `{"kind":"const"}`,
		"missing name":   `{"kind":"param"}`,
		"leaf with kids": `{"kind":"param","name":"x","children":[{"kind":"const","value":1}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(payload))
			assert.Error(t, err)
		})
	}

	_, err := Unmarshal([]byte(`{"kind":"div"}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}
