package backend

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/mir"
)

// Structural renders the control-flow form directly as nested Go
// statements. It is the fallback backend and the only one that accepts
// opaque leaves.
type Structural struct{}

func (Structural) Name() string { return config.BackendStructural }

func (s Structural) Generate(fn *mir.Function, ctx *Context) (*Output, bool) {
	body, ok := Render(fn, ctx)
	if !ok {
		return nil, false
	}
	return &Output{Backend: s.Name(), Body: body}, true
}

// Render renders fn as the statements of a function returning
// (GoType, error). Checked leaves are hoisted into temporaries ahead of the
// statement that uses them.
func Render(fn *mir.Function, ctx *Context) (string, bool) {
	r := &structRenderer{ctx: ctx, zero: fn.Result.ZeroValue()}
	if !r.block(fn, fn.Entry, 0) {
		return "", false
	}
	return r.out.String(), true
}

type structRenderer struct {
	ctx  *Context
	zero string
	out  strings.Builder
	tmp  int
}

func (r *structRenderer) block(fn *mir.Function, id, depth int) bool {
	blk, ok := fn.Blocks[id]
	if !ok || depth > len(fn.Blocks) {
		return false
	}
	switch t := blk.Term.(type) {
	case *mir.Return:
		v, ok := r.expr(t.Value)
		if !ok {
			return false
		}
		fmt.Fprintf(&r.out, "return %s, nil\n", v)
		return true
	case *mir.Branch:
		cond, ok := r.expr(t.Cond)
		if !ok {
			return false
		}
		fmt.Fprintf(&r.out, "if %s {\n", cond)
		if !r.block(fn, t.Then, depth+1) {
			return false
		}
		r.out.WriteString("} else {\n")
		if !r.block(fn, t.Else, depth+1) {
			return false
		}
		r.out.WriteString("}\n")
		return true
	}
	return false
}

func (r *structRenderer) hoist(code string) string {
	name := "t" + strconv.Itoa(r.tmp)
	r.tmp++
	r.out.WriteString(checkedCall(name, code, r.zero))
	return name
}

func (r *structRenderer) expr(e mir.Expr) (string, bool) {
	switch e := e.(type) {
	case mir.IntLit, mir.FloatLit, mir.BoolLit:
		return Literal(e), true

	case *mir.Local:
		p, ok := r.ctx.param(e.Name)
		if !ok || !p.Type.Equal(e.Ty) {
			return "", false
		}
		return p.GoName, true

	case *mir.Global:
		g, ok := r.ctx.Globals[e.Name]
		if !ok || !g.Type.Equal(e.Ty) {
			return "", false
		}
		return r.hoist(g.Typed + "(r)"), true

	case *mir.Opaque:
		return r.hoist(e.Code), true

	case *mir.Binary:
		left, ok := r.expr(e.Left)
		if !ok {
			return "", false
		}
		if e.Op == "&&" || e.Op == "||" {
			// The right operand may not run, so it cannot be hoisted.
			if hasCheckedLeaf(e.Right) {
				return "", false
			}
		}
		right, ok := r.expr(e.Right)
		if !ok {
			return "", false
		}
		return "(" + left + " " + e.Op + " " + right + ")", true
	}
	return "", false
}

func hasCheckedLeaf(e mir.Expr) bool {
	switch e := e.(type) {
	case *mir.Global, *mir.Opaque:
		return true
	case *mir.Binary:
		return hasCheckedLeaf(e.Left) || hasCheckedLeaf(e.Right)
	}
	return false
}

// Literal renders a constant as a typed Go expression.
func Literal(e mir.Expr) string {
	switch e := e.(type) {
	case mir.IntLit:
		return "int64(" + strconv.FormatInt(e.Value, 10) + ")"
	case mir.FloatLit:
		if e.Value == 0 && math.Signbit(e.Value) {
			return "math.Copysign(0, -1)"
		}
		return "float64(" + strconv.FormatFloat(e.Value, 'g', -1, 64) + ")"
	case mir.BoolLit:
		return strconv.FormatBool(e.Value)
	}
	return ""
}
