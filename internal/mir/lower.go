package mir

import (
	"math"
	"strconv"

	"github.com/funvibe/funxc/internal/cgtype"
	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/kernel"
)

// Context supplies the recorded types of names in scope. Opaque, when set,
// renders a subexpression that has no control-flow form as Go code of type
// (GoType, error); it must report false when it cannot.
type Context struct {
	Locals  map[string]cgtype.Type
	Globals map[string]cgtype.Type
	Opaque  func(e kernel.Expr, t cgtype.Type) (string, bool)
}

func (c *Context) local(name string) (cgtype.Type, bool) {
	if c == nil {
		return cgtype.Type{}, false
	}
	t, ok := c.Locals[name]
	return t, ok
}

func (c *Context) global(name string) (cgtype.Type, bool) {
	if c == nil {
		return cgtype.Type{}, false
	}
	t, ok := c.Globals[name]
	return t, ok
}

// Lower converts expr, expected to produce a value of type want, into a
// control-flow function. It reports false whenever the expression has a
// shape the form cannot represent; that is never an error.
func Lower(expr kernel.Expr, want cgtype.Type, ctx *Context) (*Function, bool) {
	if !want.IsPrimitive() {
		return nil, false
	}
	l := &lowerer{ctx: ctx}

	if ife, ok := expr.(*kernel.If); ok {
		cond, ok := l.leaf(ife.Cond, cgtype.TBool, 1, true)
		if !ok {
			return nil, false
		}
		then, ok := l.leaf(ife.Then, want, 1, true)
		if !ok {
			return nil, false
		}
		els, ok := l.leaf(ife.Else, want, 1, true)
		if !ok {
			return nil, false
		}
		return &Function{
			Entry:  0,
			Result: want,
			Blocks: map[int]*Block{
				0: {ID: 0, Term: &Branch{Cond: cond, Then: 1, Else: 2}},
				1: {ID: 1, Term: &Return{Value: then}},
				2: {ID: 2, Term: &Return{Value: els}},
			},
		}, true
	}

	root, ok := l.leaf(expr, want, 0, false)
	if !ok {
		return nil, false
	}
	return &Function{
		Entry:  0,
		Result: want,
		Blocks: map[int]*Block{0: {ID: 0, Term: &Return{Value: root}}},
	}, true
}

type lowerer struct {
	ctx *Context
}

var arithOps = map[string]bool{"+": true, "-": true, "*": true}

var compareOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

// promotingOps turn an Int operand into a Float when the other operand is a
// Float. Equality never does: Int 1 and Float 1.0 are different values.
var promotingOps = map[string]bool{"+": true, "-": true, "*": true, "<": true, "<=": true, ">": true, ">=": true}

func (l *lowerer) leaf(e kernel.Expr, want cgtype.Type, depth int, opaqueOK bool) (Expr, bool) {
	if depth > config.MirDepthBudget {
		return nil, false
	}
	switch e := e.(type) {
	case *kernel.Number:
		return numberLit(e.Text, want)

	case *kernel.BoolLit:
		if want.Kind != cgtype.Bool {
			return nil, false
		}
		return BoolLit{Value: e.Value}, true

	case *kernel.Local:
		if t, ok := l.ctx.local(e.Name); ok && t.Equal(want) {
			return &Local{Name: e.Name, Ty: want}, true
		}
		return nil, false

	case *kernel.Global:
		if t, ok := l.ctx.global(e.Name); ok && t.Equal(want) {
			return &Global{Name: e.Name, Ty: want}, true
		}
		return nil, false

	case *kernel.Binary:
		return l.binary(e, want, depth)

	case *kernel.If:
		return nil, false
	}

	if !opaqueOK || l.ctx == nil || l.ctx.Opaque == nil || containsIf(e) {
		return nil, false
	}
	code, ok := l.ctx.Opaque(e, want)
	if !ok {
		return nil, false
	}
	return &Opaque{Code: code, Ty: want}, true
}

func (l *lowerer) binary(e *kernel.Binary, want cgtype.Type, depth int) (Expr, bool) {
	var operand cgtype.Type
	switch {
	case arithOps[e.Op]:
		if want.Kind != cgtype.Int && want.Kind != cgtype.Float {
			return nil, false
		}
		operand = want
	case compareOps[e.Op]:
		if want.Kind != cgtype.Bool {
			return nil, false
		}
		t, ok := l.operandType(e.Left, e.Right)
		if !ok {
			return nil, false
		}
		if t.Kind == cgtype.Bool && e.Op != "==" && e.Op != "!=" {
			return nil, false
		}
		operand = t
	case e.Op == "&&" || e.Op == "||":
		if want.Kind != cgtype.Bool {
			return nil, false
		}
		operand = cgtype.TBool
	default:
		// Division and remainder must fault on zero in the boxed runtime.
		return nil, false
	}

	promote := operand.Kind == cgtype.Float && promotingOps[e.Op]
	left, ok := l.operand(e.Left, e.Right, operand, depth+1, promote)
	if !ok {
		return nil, false
	}
	right, ok := l.operand(e.Right, e.Left, operand, depth+1, promote)
	if !ok {
		return nil, false
	}
	if isLiteral(left) && isLiteral(right) {
		return fold(e.Op, left, right)
	}
	return &Binary{Op: e.Op, Left: left, Right: right, Ty: want}, true
}

// operand lowers one side of a binary operation. An integer literal stands
// for a float only under a promoting operator and only next to an operand
// that is not an integer literal itself, since Int op Int stays an Int.
func (l *lowerer) operand(e, other kernel.Expr, t cgtype.Type, depth int, promote bool) (Expr, bool) {
	if n, ok := e.(*kernel.Number); ok && t.Kind == cgtype.Float && isIntText(n.Text) {
		if !promote || isIntNumber(other) {
			return nil, false
		}
		v, _ := strconv.ParseInt(n.Text, 10, 64)
		return FloatLit{Value: float64(v)}, true
	}
	return l.leaf(e, t, depth, true)
}

func isIntNumber(e kernel.Expr) bool {
	n, ok := e.(*kernel.Number)
	return ok && isIntText(n.Text)
}

// operandType picks the operand type of a comparison, preferring a name or
// operation whose type is recorded over a numeric literal.
func (l *lowerer) operandType(left, right kernel.Expr) (cgtype.Type, bool) {
	var guess *cgtype.Type
	for _, e := range []kernel.Expr{left, right} {
		t, certain, ok := l.infer(e, 0)
		if !ok {
			continue
		}
		if certain {
			return t, true
		}
		// Int literals also lower as floats, so a float guess wins.
		if guess == nil || t.Kind == cgtype.Float {
			guess = &t
		}
	}
	if guess == nil {
		return cgtype.Type{}, false
	}
	return *guess, true
}

func (l *lowerer) infer(e kernel.Expr, depth int) (t cgtype.Type, certain, ok bool) {
	if depth > config.MirDepthBudget {
		return cgtype.Type{}, false, false
	}
	switch e := e.(type) {
	case *kernel.Number:
		if isIntText(e.Text) {
			return cgtype.TInt, false, true
		}
		return cgtype.TFloat, false, true
	case *kernel.BoolLit:
		return cgtype.TBool, true, true
	case *kernel.Local:
		t, ok := l.ctx.local(e.Name)
		return t, ok, ok && t.IsPrimitive()
	case *kernel.Global:
		t, ok := l.ctx.global(e.Name)
		return t, ok, ok && t.IsPrimitive()
	case *kernel.Binary:
		if compareOps[e.Op] || e.Op == "&&" || e.Op == "||" {
			return cgtype.TBool, true, true
		}
		lt, lc, lok := l.infer(e.Left, depth+1)
		rt, rc, rok := l.infer(e.Right, depth+1)
		switch {
		case lok && lc:
			return lt, true, true
		case rok && rc:
			return rt, true, true
		case lok:
			return lt, false, true
		case rok:
			return rt, false, true
		}
	}
	return cgtype.Type{}, false, false
}

// numberLit lowers a literal standing on its own. The boxed runtime reads
// base-10 integer text as an Int and anything else as a Float, so the text
// alone decides which of the two it can be.
func numberLit(text string, want cgtype.Type) (Expr, bool) {
	switch want.Kind {
	case cgtype.Int:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, false
		}
		return IntLit{Value: n}, true
	case cgtype.Float:
		if isIntText(text) {
			return nil, false
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, false
		}
		return FloatLit{Value: f}, true
	}
	return nil, false
}

func isIntText(text string) bool {
	_, err := strconv.ParseInt(text, 10, 64)
	return err == nil
}

func isLiteral(e Expr) bool {
	switch e.(type) {
	case IntLit, FloatLit, BoolLit:
		return true
	}
	return false
}

// fold evaluates an operation over two literals with the same semantics as
// Interpret. A non-finite float result is not representable.
func fold(op string, left, right Expr) (Expr, bool) {
	bits, err := evalBinary(op, left.Type(), lit(left), lit(right))
	if err != nil {
		return nil, false
	}
	switch {
	case compareOps[op] || op == "&&" || op == "||":
		return BoolLit{Value: bits != 0}, true
	case left.Type().Kind == cgtype.Int:
		return IntLit{Value: int64(bits)}, true
	default:
		f := math.Float64frombits(bits)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, false
		}
		return FloatLit{Value: f}, true
	}
}

func lit(e Expr) uint64 {
	switch e := e.(type) {
	case IntLit:
		return IntBits(e.Value)
	case FloatLit:
		return FloatBits(e.Value)
	case BoolLit:
		return BoolBits(e.Value)
	}
	return 0
}

func containsIf(e kernel.Expr) bool {
	found := false
	kernel.Inspect(e, func(n kernel.Expr) bool {
		if _, ok := n.(*kernel.If); ok {
			found = true
		}
		return !found
	})
	return found
}
