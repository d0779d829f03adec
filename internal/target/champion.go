package target

import "symreg/internal/expr"

func c(v float64) expr.Expr { return expr.Const{Value: v} }

func p(name string) expr.Expr { return expr.Param{Name: name} }

func add(a, b expr.Expr) expr.Expr { return expr.Add{Left: a, Right: b} }

func sub(a, b expr.Expr) expr.Expr { return expr.Sub{Left: a, Right: b} }

func mul(a, b expr.Expr) expr.Expr { return expr.Mul{Left: a, Right: b} }

func gt(a, b expr.Expr) expr.Expr { return expr.Gt{Left: a, Right: b} }

func cond(test, then, otherwise expr.Expr) expr.Expr {
	return expr.If{Cond: test, Then: then, Else: otherwise}
}

// Example is the hand-built demonstration tree: y+5 when x > 3, else y-2.
func Example() expr.Expr {
	return cond(
		gt(p("x"), c(3)),
		add(p("y"), c(5)),
		sub(p("y"), c(2)),
	)
}

// Champion is the best expression recorded from a long search
// (population 5000, 5000 generations) against Quadratic on [0, 40).
func Champion() expr.Expr {
	x, y := p("x"), p("y")

	left := add(
		add(
			x,
			add(x, add(add(y, y), add(x, cond(c(0.3982698023252428), x, y)))),
		),
		add(
			gt(x, mul(c(0.7533623462933614), sub(sub(y, x), y))),
			c(3.1314018632511154e-4),
		),
	)

	nested := gt(
		c(0.42073487141258725),
		gt(gt(c(0.8270598172038693), c(0.849312995975535)), x),
	)
	right := add(
		add(
			add(
				add(
					y,
					sub(
						add(add(c(0.9993627460496781), nested), c(0.8058432992914634)),
						add(x, y),
					),
				),
				c(0.16247309044011993),
			),
			c(0.30125583749684914),
		),
		c(0.7308423254198689),
	)

	tail := mul(
		sub(mul(c(0.0020075377330577293), c(0.0017882992836799616)), x),
		x,
	)

	return sub(add(left, right), tail)
}
