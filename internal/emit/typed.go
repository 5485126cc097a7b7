package emit

import (
	"strings"

	"github.com/funvibe/funxc/internal/backend"
	"github.com/funvibe/funxc/internal/cgtype"
	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/kernel"
	"github.com/funvibe/funxc/internal/mir"
	"github.com/funvibe/funxc/internal/ssa"
)

type sibling struct {
	backend string
	global  backend.Global
	code    []string
}

// siblings attempts a _typed sibling for every eligible definition. A
// definition may only read globals that already have a sibling, so attempts
// repeat until no new sibling appears. Failures are silent.
func (m *module) siblings(groups []kernel.Group, types map[string]cgtype.Type, backends []backend.Backend) map[string]sibling {
	out := make(map[string]sibling)
	if len(backends) == 0 {
		return out
	}
	globals := make(map[string]backend.Global)
	for changed := true; changed; {
		changed = false
		for _, g := range groups {
			if _, done := out[g.Name]; done || !m.eligible(g, types) {
				continue
			}
			s, ok := m.sibling(g.Clauses[0], types[g.Name], globals, backends)
			if !ok {
				continue
			}
			out[g.Name] = s
			globals[g.Name] = s.global
			changed = true
		}
	}
	return out
}

func (m *module) eligible(g kernel.Group, types map[string]cgtype.Type) bool {
	if len(g.Clauses) != 1 || g.Name == config.EntryPointName {
		return false
	}
	def := m.names.def(g.Name)
	if _, taken := m.goNames[def+config.TypedSuffix]; taken {
		return false
	}
	if _, taken := m.goNames[def+config.SSASuffix]; taken {
		return false
	}
	t, ok := types[g.Name]
	return ok && t.IsClosed()
}

// sibling renders the typed sibling of d with the first backend that
// accepts it.
func (m *module) sibling(d kernel.Def, t cgtype.Type, globals map[string]backend.Global, backends []backend.Backend) (sibling, bool) {
	ctx, body, ok := m.typedContext(d, t)
	if !ok {
		return sibling{}, false
	}
	for name, g := range globals {
		if name != d.Name {
			ctx.Globals[name] = g
		}
	}

	decls, npat := m.mark()
	fn, ok := mir.Lower(body, ctx.Result, ctx.MIR(m.opaque(ctx)))
	if !ok {
		m.rollback(decls, npat)
		return sibling{}, false
	}
	for _, b := range backends {
		out, ok := b.Generate(fn, ctx)
		if !ok {
			continue
		}
		typedName := m.names.typed(d.Name)
		doc := loweringComment(typedName, fn)
		if d.Inline {
			doc += "//\n" + inlineDirective(true)
		}
		return sibling{
			backend: b.Name(),
			global:  backend.Global{Type: t, Typed: typedName, Helper: out.Helper},
			code:    append([]string{doc + signature(typedName, ctx) + out.Body + "}"}, out.Decls...),
		}, true
	}
	m.rollback(decls, npat)
	return sibling{}, false
}

// typedContext peels the leading lambdas of d against its descriptor t and
// returns the backend context and the remaining body.
func (m *module) typedContext(d kernel.Def, t cgtype.Type) (*backend.Context, kernel.Expr, bool) {
	var names []string
	body := d.Expr
	for {
		lam, ok := body.(*kernel.Lambda)
		if !ok {
			break
		}
		names = append(names, lam.Param)
		body = lam.Body
	}
	ptypes, result, ok := t.Peel(len(names))
	if !ok || !result.IsPrimitive() {
		return nil, nil, false
	}

	ctx := &backend.Context{
		Def:     m.names.def(d.Name),
		Result:  result,
		Globals: make(map[string]backend.Global),
	}
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		goName := "l_" + ssa.Sanitize(name)
		if seen[goName] {
			return nil, nil, false
		}
		seen[goName] = true
		ctx.Params = append(ctx.Params, backend.Param{Name: name, GoName: goName, Type: ptypes[i]})
	}
	return ctx, body, true
}

// loweringComment renders the control-flow form a typed sibling was
// generated from.
func loweringComment(name string, fn *mir.Function) string {
	var b strings.Builder
	b.WriteString("// " + name + " is generated from:\n//\n")
	for _, line := range strings.Split(strings.TrimRight(mir.Dump(fn), "\n"), "\n") {
		b.WriteString("//\t" + line + "\n")
	}
	return b.String()
}

func signature(name string, ctx *backend.Context) string {
	var b strings.Builder
	b.WriteString("func " + name + "(r *rt.Runtime")
	for _, p := range ctx.Params {
		b.WriteString(", " + p.GoName + " " + p.Type.GoType())
	}
	b.WriteString(") (" + ctx.Result.GoType() + ", error) {\n")
	return b.String()
}

// opaque returns the renderer for subexpressions the control-flow form
// cannot express: the expression is evaluated by boxed code over boxed
// copies of the parameters and the result is unboxed.
func (m *module) opaque(ctx *backend.Context) func(kernel.Expr, cgtype.Type) (string, bool) {
	return func(e kernel.Expr, t cgtype.Type) (string, bool) {
		decls, npat := m.mark()
		sc := newScope()
		var prologue strings.Builder
		for _, p := range ctx.Params {
			name := sc.bind(p.Name)
			prologue.WriteString(name + " := " + cgtype.EmitBox(p.Type, p.GoName) + "\n_ = " + name + "\n")
		}
		f := newFn(m, sc)
		f.b.WriteString(prologue.String())
		v, err := f.expr(e)
		if err != nil {
			m.rollback(decls, npat)
			return "", false
		}
		return "func() (" + t.GoType() + ", error) {\n" +
			"v, err := func() (rt.Value, error) {\n" +
			f.b.String() +
			"return " + v + ", nil\n" +
			"}()\n" +
			"if err != nil {\n" +
			"return " + t.ZeroValue() + ", err\n" +
			"}\n" +
			"return " + cgtype.EmitUnbox(t, "v") + "\n" +
			"}()", true
	}
}
