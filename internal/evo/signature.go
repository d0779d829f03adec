package evo

import (
	"crypto/sha1"
	"encoding/hex"

	"symreg/internal/expr"
)

// ShapeSummary captures the structural size of one expression.
type ShapeSummary struct {
	Size      int            `json:"size"`
	Depth     int            `json:"depth"`
	Variables []string       `json:"variables"`
	Kinds     map[string]int `json:"kinds"`
}

type ExprSignature struct {
	Fingerprint string       `json:"fingerprint"`
	Summary     ShapeSummary `json:"summary"`
}

// Fingerprint hashes the rendered tree, so structurally equal trees share it.
func Fingerprint(e expr.Expr) string {
	digest := sha1.Sum([]byte(expr.Render(e)))
	return hex.EncodeToString(digest[:8])
}

func ComputeExprSignature(e expr.Expr) ExprSignature {
	kinds := map[string]int{}
	countKinds(e, kinds)
	return ExprSignature{
		Fingerprint: Fingerprint(e),
		Summary: ShapeSummary{
			Size:      expr.Size(e),
			Depth:     expr.Depth(e),
			Variables: expr.Variables(e),
			Kinds:     kinds,
		},
	}
}

func countKinds(e expr.Expr, kinds map[string]int) {
	if e == nil {
		return
	}
	kinds[e.Kind().String()]++
	for _, child := range expr.Children(e) {
		countKinds(child, kinds)
	}
}
