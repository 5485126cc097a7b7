package backend

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/funvibe/funxc/internal/cgtype"
	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/mir"
	"github.com/funvibe/funxc/internal/ssa"
)

// SSA lowers the control-flow form into SSA, verifies it and renders a Go
// helper with labels and goto. The typed sibling evaluates the free names
// of the definition and calls the helper.
type SSA struct{}

func (SSA) Name() string { return config.BackendSSA }

func (s SSA) Generate(fn *mir.Function, ctx *Context) (*Output, bool) {
	helper := ctx.Def + config.SSASuffix
	f, keys, ok := LowerSSA(fn, helper, ctx)
	if !ok {
		return nil, false
	}

	zero := fn.Result.ZeroValue()
	var body strings.Builder
	args := make([]string, len(keys))
	for i, key := range keys {
		if name, ok := strings.CutPrefix(key, globalKey); ok {
			args[i] = "gv" + strconv.Itoa(i)
			body.WriteString(checkedCall(args[i], ctx.Globals[name].Typed+"(r)", zero))
			continue
		}
		p, _ := ctx.param(key)
		args[i] = p.GoName
	}
	fmt.Fprintf(&body, "return %s(%s), nil\n", helper, strings.Join(args, ", "))

	return &Output{
		Backend: s.Name(),
		Body:    body.String(),
		Decls:   []string{ssa.Render(f)},
		Helper:  helper,
	}, true
}

// globalKey marks a global among the free names of a function so that a
// local and a global of the same name stay distinct.
const globalKey = "@"

// LowerSSA converts fn into a verified SSA function named name. The free
// names become parameters in sorted order, which is returned alongside;
// globals appear with a leading "@". ctx may be nil when fn reads no
// globals.
func LowerSSA(fn *mir.Function, name string, ctx *Context) (*ssa.Func, []string, bool) {
	if fn.HasOpaque() {
		return nil, nil, false
	}
	result, ok := ssaType(fn.Result)
	if !ok {
		return nil, nil, false
	}

	types := map[string]ssa.Type{}
	valid := true
	fn.Walk(func(e mir.Expr) {
		var key string
		switch e := e.(type) {
		case *mir.Local:
			key = e.Name
		case *mir.Global:
			// Globals must come from SSA-produced siblings.
			if ctx == nil || ctx.Globals[e.Name].Helper == "" {
				valid = false
			}
			key = globalKey + e.Name
		default:
			if _, ok := ssaType(e.Type()); !ok {
				valid = false
			}
			return
		}
		t, ok := ssaType(e.Type())
		if !ok {
			valid = false
			return
		}
		if prev, seen := types[key]; seen && prev != t {
			valid = false
		}
		types[key] = t
	})
	if !valid {
		return nil, nil, false
	}
	keys := make([]string, 0, len(types))
	for k := range types {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	g := &ssaGen{b: ssa.NewBuilder(name, result), fn: fn}
	for _, k := range keys {
		pname := k
		if rest, ok := strings.CutPrefix(k, globalKey); ok {
			pname = "g_" + rest
		}
		p := g.b.Param(pname, types[k])
		// Param binds the parameter name; reads use the key.
		g.b.WriteVariable(k, g.b.Block(), p)
	}
	if err := g.block(fn.Entry, 0); err != nil {
		return nil, nil, false
	}
	f := g.b.Func()
	ssa.DCE(f)
	if err := ssa.Verify(f); err != nil {
		return nil, nil, false
	}
	return f, keys, true
}

func ssaType(t cgtype.Type) (ssa.Type, bool) {
	switch t.Kind {
	case cgtype.Int:
		return ssa.I64, true
	case cgtype.Float:
		return ssa.F64, true
	case cgtype.Bool:
		return ssa.Bool, true
	}
	return 0, false
}

type ssaGen struct {
	b  *ssa.Builder
	fn *mir.Function
	sc int
}

func (g *ssaGen) block(id, depth int) error {
	blk, ok := g.fn.Blocks[id]
	if !ok {
		return fmt.Errorf("missing block bb%d", id)
	}
	if depth > len(g.fn.Blocks) {
		return fmt.Errorf("cyclic control flow at bb%d", id)
	}
	switch t := blk.Term.(type) {
	case *mir.Return:
		v, err := g.expr(t.Value)
		if err != nil {
			return err
		}
		g.b.Return(v)
		return nil
	case *mir.Branch:
		cond, err := g.expr(t.Cond)
		if err != nil {
			return err
		}
		then, els := g.b.NewBlock(), g.b.NewBlock()
		g.b.Branch(cond, then, els)
		for _, next := range []struct {
			blk *ssa.Block
			id  int
		}{{then, t.Then}, {els, t.Else}} {
			if err := g.b.SealBlock(next.blk); err != nil {
				return err
			}
			g.b.SetBlock(next.blk)
			if err := g.block(next.id, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("bb%d has no terminator", id)
}

func (g *ssaGen) expr(e mir.Expr) (*ssa.Value, error) {
	switch e := e.(type) {
	case mir.IntLit:
		return g.b.Const(ssa.I64, mir.IntBits(e.Value)), nil
	case mir.FloatLit:
		return g.b.Const(ssa.F64, mir.FloatBits(e.Value)), nil
	case mir.BoolLit:
		return g.b.Const(ssa.Bool, mir.BoolBits(e.Value)), nil
	case *mir.Local:
		t, _ := ssaType(e.Ty)
		return g.b.ReadVariable(e.Name, t, g.b.Block())
	case *mir.Global:
		t, _ := ssaType(e.Ty)
		return g.b.ReadVariable(globalKey+e.Name, t, g.b.Block())
	case *mir.Binary:
		if e.Op == "&&" || e.Op == "||" {
			return g.shortCircuit(e)
		}
		op, ok := ssa.OpFor(e.Op)
		if !ok {
			return nil, fmt.Errorf("unsupported operator %s", e.Op)
		}
		x, err := g.expr(e.Left)
		if err != nil {
			return nil, err
		}
		y, err := g.expr(e.Right)
		if err != nil {
			return nil, err
		}
		return g.b.Binary(op, x, y), nil
	}
	return nil, fmt.Errorf("cannot lower %T", e)
}

// shortCircuit evaluates the right operand in its own block and joins both
// outcomes with a phi.
func (g *ssaGen) shortCircuit(e *mir.Binary) (*ssa.Value, error) {
	left, err := g.expr(e.Left)
	if err != nil {
		return nil, err
	}
	v := "%sc" + strconv.Itoa(g.sc)
	g.sc++
	g.b.WriteVariable(v, g.b.Block(), left)

	rhs, join := g.b.NewBlock(), g.b.NewBlock()
	if e.Op == "&&" {
		g.b.Branch(left, rhs, join)
	} else {
		g.b.Branch(left, join, rhs)
	}
	if err := g.b.SealBlock(rhs); err != nil {
		return nil, err
	}
	g.b.SetBlock(rhs)
	right, err := g.expr(e.Right)
	if err != nil {
		return nil, err
	}
	g.b.WriteVariable(v, g.b.Block(), right)
	g.b.Jump(join)
	if err := g.b.SealBlock(join); err != nil {
		return nil, err
	}
	g.b.SetBlock(join)
	return g.b.ReadVariable(v, ssa.Bool, join)
}
