package expr

import "sort"

// Children returns the direct children of e in positional order.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case Const, Param:
		return nil
	case Add:
		return []Expr{n.Left, n.Right}
	case Sub:
		return []Expr{n.Left, n.Right}
	case Mul:
		return []Expr{n.Left, n.Right}
	case Gt:
		return []Expr{n.Left, n.Right}
	case If:
		return []Expr{n.Cond, n.Then, n.Else}
	default:
		return nil
	}
}

// Depth counts nodes on the longest root-to-leaf path; a terminal has depth 1.
func Depth(e Expr) int {
	if e == nil {
		return 0
	}
	deepest := 0
	for _, child := range Children(e) {
		if d := Depth(child); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Size counts every node of the tree, shared subtrees counted once per use.
func Size(e Expr) int {
	if e == nil {
		return 0
	}
	total := 1
	for _, child := range Children(e) {
		total += Size(child)
	}
	return total
}

// Equal reports whether a and b have the same shape and leaf values.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Const:
		return x.Value == b.(Const).Value
	case Param:
		return x.Name == b.(Param).Name
	}
	ac, bc := Children(a), Children(b)
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !Equal(ac[i], bc[i]) {
			return false
		}
	}
	return true
}

// Variables returns the sorted distinct parameter names referenced by e.
func Variables(e Expr) []string {
	seen := map[string]struct{}{}
	collectVariables(e, seen)
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectVariables(e Expr, seen map[string]struct{}) {
	if p, ok := e.(Param); ok {
		seen[p.Name] = struct{}{}
		return
	}
	for _, child := range Children(e) {
		collectVariables(child, seen)
	}
}
