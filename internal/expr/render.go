package expr

import (
	"strconv"
	"strings"
)

// Render returns the fully parenthesized infix form of e. The output is meant
// for inspection only; nothing parses it back.
func Render(e Expr) string {
	var b strings.Builder
	render(&b, e)
	return b.String()
}

func (c Const) String() string { return Render(c) }
func (p Param) String() string { return Render(p) }
func (e Add) String() string   { return Render(e) }
func (e Sub) String() string   { return Render(e) }
func (e Mul) String() string   { return Render(e) }
func (e Gt) String() string    { return Render(e) }
func (e If) String() string    { return Render(e) }

func render(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case Const:
		b.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
	case Param:
		b.WriteString(n.Name)
	case Add:
		renderBinary(b, n.Left, " + ", n.Right)
	case Sub:
		renderBinary(b, n.Left, " - ", n.Right)
	case Mul:
		renderBinary(b, n.Left, " * ", n.Right)
	case Gt:
		renderBinary(b, n.Left, " > ", n.Right)
	case If:
		b.WriteString("(if ")
		render(b, n.Cond)
		b.WriteString(" > 0 then ")
		render(b, n.Then)
		b.WriteString(" else ")
		render(b, n.Else)
		b.WriteByte(')')
	case nil:
		b.WriteString("<nil>")
	default:
		b.WriteString("<" + e.Kind().String() + ">")
	}
}

func renderBinary(b *strings.Builder, left Expr, op string, right Expr) {
	b.WriteByte('(')
	render(b, left)
	b.WriteString(op)
	render(b, right)
	b.WriteByte(')')
}
