package emit

import (
	"strconv"
	"strings"

	"github.com/funvibe/funxc/internal/backend"
	"github.com/funvibe/funxc/internal/kernel"
	"github.com/funvibe/funxc/internal/mir"
	"github.com/funvibe/funxc/pkg/rt"
)

// boxedOps are the strict operators evaluated by rt.Binary. && and || are
// compiled to short-circuit code instead.
var boxedOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"+": true, "-": true, "*": true, "/": true, "%": true, "++": true,
}

// fn emits the statements of one generated function tree into b. Every
// generated Go function it writes returns (rt.Value, error), so failures
// always propagate as "return nil, err".
type fn struct {
	m     *module
	b     *strings.Builder
	sc    *scope
	temps int
}

func newFn(m *module, sc *scope) *fn {
	return &fn{m: m, b: &strings.Builder{}, sc: sc}
}

func (f *fn) tmp() string {
	t := "t" + strconv.Itoa(f.temps)
	f.temps++
	return t
}

func (f *fn) line(parts ...string) {
	for _, p := range parts {
		f.b.WriteString(p)
	}
	f.b.WriteByte('\n')
}

// call assigns the (rt.Value, error) result of call to a fresh temporary.
func (f *fn) call(call string) string {
	t := f.tmp()
	f.line(t, ", err := ", call)
	f.check()
	return t
}

func (f *fn) check() {
	f.line("if err != nil {")
	f.line("return nil, err")
	f.line("}")
}

// nested renders the body of a nested Go function that returns
// (rt.Value, error), with sc as its scope.
func (f *fn) nested(sc *scope, body func() (string, error)) (string, error) {
	saved, savedScope := f.b, f.sc
	f.b, f.sc = &strings.Builder{}, sc
	defer func() { f.b, f.sc = saved, savedScope }()

	result, err := body()
	if err != nil {
		return "", err
	}
	f.line("return ", result, ", nil")
	return f.b.String(), nil
}

// expr emits e and returns a Go expression of type rt.Value holding its
// value. The returned expression has no side effects.
func (f *fn) expr(e kernel.Expr) (string, error) {
	switch e := e.(type) {
	case *kernel.Local:
		name, ok := f.sc.lookup(e.Name)
		if !ok {
			return "", codegenErrorf("unbound local %s", e.Name)
		}
		return name, nil

	case *kernel.Global:
		if !f.m.isDefined(e.Name) {
			return "", codegenErrorf("unknown global %s", e.Name)
		}
		return f.call(f.m.names.def(e.Name) + "(r)"), nil

	case *kernel.Builtin:
		if !rt.HasBuiltin(e.Name) {
			return "", codegenErrorf("unknown builtin %s", e.Name)
		}
		return f.call("r.Builtin(" + strconv.Quote(e.Name) + ")"), nil

	case *kernel.Ctor:
		arity, ok := f.m.reg.ConstructorArity(e.Name)
		if !ok {
			return "", codegenErrorf("unknown constructor %s", e.Name)
		}
		return "rt.ConstructorFunc(" + strconv.Quote(e.Name) + ", " + strconv.Itoa(arity) + ")", nil

	case *kernel.Number:
		lit, err := number(e.Text)
		if err != nil {
			return "", err
		}
		if _, ok := lit.(mir.IntLit); ok {
			return "rt.Int(" + backend.Literal(lit) + ")", nil
		}
		return "rt.Float(" + backend.Literal(lit) + ")", nil

	case *kernel.TextLit:
		return "rt.Text(" + strconv.Quote(e.Value) + ")", nil

	case *kernel.BoolLit:
		return "rt.Bool(" + strconv.FormatBool(e.Value) + ")", nil

	case *kernel.DateTimeLit:
		return "rt.DateTime(" + strconv.Quote(e.Value) + ")", nil

	case *kernel.SigilLit:
		return sigilRecord(e.Tag, e.Body, e.Flags), nil

	case *kernel.Interp:
		return f.interp(e)

	case *kernel.Lambda:
		sc := f.sc.child()
		param := sc.bind(e.Param)
		body, err := f.nested(sc, func() (string, error) { return f.expr(e.Body) })
		if err != nil {
			return "", err
		}
		t := f.tmp()
		f.line(t, " := &rt.Closure{Fn: func(r *rt.Runtime, ", param, " rt.Value) (rt.Value, error) {")
		f.b.WriteString(body)
		f.line("}}")
		return t, nil

	case *kernel.App:
		var args []kernel.Expr
		var head kernel.Expr = e
		for {
			app, ok := head.(*kernel.App)
			if !ok {
				break
			}
			args = append(args, app.Arg)
			head = app.Func
		}
		fv, err := f.expr(head)
		if err != nil {
			return "", err
		}
		ops := []string{fv}
		for i := len(args) - 1; i >= 0; i-- {
			a, err := f.expr(args[i])
			if err != nil {
				return "", err
			}
			ops = append(ops, a)
		}
		return f.call("r.Apply(" + strings.Join(ops, ", ") + ")"), nil

	case *kernel.Pipe:
		x, err := f.expr(e.Left)
		if err != nil {
			return "", err
		}
		fv, err := f.expr(e.Right)
		if err != nil {
			return "", err
		}
		return f.call("r.Apply(" + fv + ", " + x + ")"), nil

	case *kernel.ListLit:
		return f.list(e)

	case *kernel.TupleLit:
		items := make([]string, len(e.Items))
		for i, it := range e.Items {
			v, err := f.expr(it)
			if err != nil {
				return "", err
			}
			items[i] = v
		}
		return "rt.Tuple{" + strings.Join(items, ", ") + "}", nil

	case *kernel.RecordLit:
		return f.record(e)

	case *kernel.Patch:
		return f.patch(e)

	case *kernel.FieldAccess:
		base, err := f.expr(e.Base)
		if err != nil {
			return "", err
		}
		return f.call("rt.Field(" + base + ", " + strconv.Quote(e.Field) + ")"), nil

	case *kernel.Index:
		base, err := f.expr(e.Base)
		if err != nil {
			return "", err
		}
		idx, err := f.expr(e.Index)
		if err != nil {
			return "", err
		}
		return f.call("rt.Index(" + base + ", " + idx + ")"), nil

	case *kernel.If:
		return f.ifExpr(e)

	case *kernel.Binary:
		return f.binary(e)

	case *kernel.Block:
		if e.Kind == kernel.DoBlock {
			return f.doBlock(e)
		}
		return f.block(e)

	case *kernel.Match:
		return f.match(e)

	case nil:
		return "", codegenErrorf("missing expression")
	}
	return "", codegenErrorf("unsupported expression %T", e)
}

func sigilRecord(tag, body, flags string) string {
	return `rt.Record{"tag": rt.Text(` + strconv.Quote(tag) +
		`), "body": rt.Text(` + strconv.Quote(body) +
		`), "flags": rt.Text(` + strconv.Quote(flags) + `)}`
}

func (f *fn) interp(e *kernel.Interp) (string, error) {
	if len(e.Parts) == 0 {
		return `rt.Text("")`, nil
	}
	parts := make([]string, 0, len(e.Parts))
	for _, p := range e.Parts {
		if p.Expr == nil {
			parts = append(parts, strconv.Quote(p.Text))
			continue
		}
		v, err := f.expr(p.Expr)
		if err != nil {
			return "", err
		}
		parts = append(parts, "rt.Format("+v+")")
	}
	return "rt.Text(" + strings.Join(parts, " + ") + ")", nil
}

func (f *fn) list(e *kernel.ListLit) (string, error) {
	spread := false
	for _, it := range e.Items {
		spread = spread || it.Spread
	}
	if !spread {
		items := make([]string, len(e.Items))
		for i, it := range e.Items {
			v, err := f.expr(it.Expr)
			if err != nil {
				return "", err
			}
			items[i] = v
		}
		return "rt.List{" + strings.Join(items, ", ") + "}", nil
	}

	acc := f.tmp()
	f.line(acc, " := rt.List{}")
	for _, it := range e.Items {
		v, err := f.expr(it.Expr)
		if err != nil {
			return "", err
		}
		next := f.tmp()
		if it.Spread {
			f.line(next, ", err := rt.Spread(", acc, ", ", v, ")")
			f.check()
		} else {
			f.line(next, " := append(", acc, ", ", v, ")")
		}
		acc = next
	}
	return acc, nil
}

func (f *fn) record(e *kernel.RecordLit) (string, error) {
	rec := f.tmp()
	f.line(rec, " := rt.Record{}")
	for i, field := range e.Fields {
		v, err := f.expr(field.Value)
		if err != nil {
			return "", err
		}
		switch {
		case field.Spread:
			f.line("if err := rt.SpreadRecord(", rec, ", ", v, "); err != nil {")
			f.line("return nil, err")
			f.line("}")
		case len(field.Path) == 0:
			return "", codegenErrorf("record field %d has an empty path", i)
		case len(field.Path) == 1:
			f.line(rec, "[", strconv.Quote(field.Path[0]), "] = ", v)
		default:
			f.line("if err := rt.SetPath(", rec, ", []string{", quoteAll(field.Path), "}, ", v, "); err != nil {")
			f.line("return nil, err")
			f.line("}")
		}
	}
	return rec, nil
}

func (f *fn) patch(e *kernel.Patch) (string, error) {
	target, err := f.expr(e.Target)
	if err != nil {
		return "", err
	}
	fields := make([]string, len(e.Fields))
	for i, pf := range e.Fields {
		if len(pf.Path) == 0 {
			return "", codegenErrorf("patch field %d has an empty path", i)
		}
		segs := make([]string, len(pf.Path))
		for j, seg := range pf.Path {
			switch {
			case seg.Index != nil:
				idx, err := f.expr(seg.Index)
				if err != nil {
					return "", err
				}
				segs[j] = "{Index: " + idx + "}"
			case seg.Where != "":
				segs[j] = "{Where: " + strconv.Quote(seg.Where) + "}"
			default:
				segs[j] = "{Field: " + strconv.Quote(seg.Field) + "}"
			}
		}
		v, err := f.expr(pf.Value)
		if err != nil {
			return "", err
		}
		fields[i] = "{Path: []rt.PathSeg{" + strings.Join(segs, ", ") + "}, Updater: " + v + "}"
	}
	return f.call("r.Patch(" + target + ", []rt.PatchField{" + strings.Join(fields, ", ") + "})"), nil
}

// cond emits e and converts it to a Go bool.
func (f *fn) cond(e kernel.Expr) (string, error) {
	v, err := f.expr(e)
	if err != nil {
		return "", err
	}
	c := f.tmp()
	f.line(c, ", err := rt.AsBool(", v, ")")
	f.check()
	return c, nil
}

func (f *fn) ifExpr(e *kernel.If) (string, error) {
	c, err := f.cond(e.Cond)
	if err != nil {
		return "", err
	}
	out := f.tmp()
	f.line("var ", out, " rt.Value")
	f.line("if ", c, " {")
	if err := f.assign(out, e.Then); err != nil {
		return "", err
	}
	f.line("} else {")
	if err := f.assign(out, e.Else); err != nil {
		return "", err
	}
	f.line("}")
	return out, nil
}

func (f *fn) assign(out string, e kernel.Expr) error {
	v, err := f.expr(e)
	if err != nil {
		return err
	}
	f.line(out, " = ", v)
	return nil
}

func (f *fn) binary(e *kernel.Binary) (string, error) {
	if e.Op == "&&" || e.Op == "||" {
		l, err := f.cond(e.Left)
		if err != nil {
			return "", err
		}
		out := f.tmp()
		if e.Op == "&&" {
			f.line("var ", out, " rt.Value = rt.Bool(false)")
			f.line("if ", l, " {")
		} else {
			f.line("var ", out, " rt.Value = rt.Bool(true)")
			f.line("if !", l, " {")
		}
		r, err := f.cond(e.Right)
		if err != nil {
			return "", err
		}
		f.line(out, " = rt.Bool(", r, ")")
		f.line("}")
		return out, nil
	}
	if !boxedOps[e.Op] {
		return "", codegenErrorf("unsupported operator %s", e.Op)
	}
	l, err := f.expr(e.Left)
	if err != nil {
		return "", err
	}
	r, err := f.expr(e.Right)
	if err != nil {
		return "", err
	}
	return f.call("rt.Binary(" + strconv.Quote(e.Op) + ", " + l + ", " + r + ")"), nil
}

// bind destructures v against p in the current scope. A failed match is a
// runtime error.
func (f *fn) bind(p kernel.Pattern, v string) error {
	switch p := p.(type) {
	case *kernel.PatVar:
		name := f.sc.bind(p.Name)
		f.line(name, " := ", v)
		f.line("_ = ", name)
		return nil
	case *kernel.PatWildcard, nil:
		f.line("_ = ", v)
		return nil
	}
	pat, err := f.m.matcher(p)
	if err != nil {
		return err
	}
	b := f.tmp()
	f.line(b, " := rt.Bindings{}")
	f.line("if !", pat, "(", v, ", ", b, ") {")
	f.line(`return nil, rt.Errorf("pattern match failed")`)
	f.line("}")
	for _, x := range kernel.Binders(p) {
		name := f.sc.bind(x)
		f.line(name, " := ", b, "[", strconv.Quote(x), "]")
		f.line("_ = ", name)
	}
	return nil
}

func (f *fn) block(e *kernel.Block) (string, error) {
	if len(e.Items) == 0 {
		return "rt.Unit{}", nil
	}
	saved := f.sc
	f.sc = f.sc.child()
	defer func() { f.sc = saved }()

	result := "rt.Unit{}"
	for i, it := range e.Items {
		last := i == len(e.Items)-1
		switch it.Kind {
		case kernel.ItemExpr:
			v, err := f.expr(it.Expr)
			if err != nil {
				return "", err
			}
			if last {
				result = v
			} else {
				f.line("_ = ", v)
			}
		case kernel.ItemLet:
			v, err := f.expr(it.Expr)
			if err != nil {
				return "", err
			}
			if err := f.bind(it.Pattern, v); err != nil {
				return "", err
			}
		default:
			return "", codegenErrorf("effect binding outside a do block")
		}
	}
	return result, nil
}

// doBlock compiles a do block into an effect whose Run performs the items
// in order.
func (f *fn) doBlock(e *kernel.Block) (string, error) {
	sc := f.sc.child()
	body, err := f.nested(sc, func() (string, error) {
		result := "rt.Unit{}"
		for i, it := range e.Items {
			last := i == len(e.Items)-1
			v, err := f.expr(it.Expr)
			if err != nil {
				return "", err
			}
			switch it.Kind {
			case kernel.ItemExpr:
				res := f.call("r.RunEffect(" + v + ")")
				if last {
					result = res
				} else {
					f.line("_ = ", res)
				}
			case kernel.ItemLet:
				if err := f.bind(it.Pattern, v); err != nil {
					return "", err
				}
			case kernel.ItemBind:
				res := f.call("r.RunEffect(" + v + ")")
				if err := f.bind(it.Pattern, res); err != nil {
					return "", err
				}
			}
		}
		return result, nil
	})
	if err != nil {
		return "", err
	}
	t := f.tmp()
	f.line(t, " := &rt.Effect{Run: func(r *rt.Runtime) (rt.Value, error) {")
	f.b.WriteString(body)
	f.line("}}")
	return t, nil
}

func (f *fn) match(e *kernel.Match) (string, error) {
	scrut, err := f.expr(e.Scrutinee)
	if err != nil {
		return "", err
	}
	if len(e.Arms) == 0 {
		return "", codegenErrorf("match has no arms")
	}
	arms := make([]string, len(e.Arms))
	for i, arm := range e.Arms {
		pat, err := f.m.matcher(arm.Pattern)
		if err != nil {
			return "", err
		}
		sc := f.sc.child()
		var prologue strings.Builder
		for _, x := range kernel.Binders(arm.Pattern) {
			name := sc.bind(x)
			prologue.WriteString(name + " := b[" + strconv.Quote(x) + "]\n_ = " + name + "\n")
		}

		var s strings.Builder
		s.WriteString("{Match: " + pat)
		if arm.Guard != nil {
			guard, err := f.nested(sc, func() (string, error) {
				f.b.WriteString(prologue.String())
				return f.expr(arm.Guard)
			})
			if err != nil {
				return "", err
			}
			s.WriteString(", Guard: func(r *rt.Runtime, b rt.Bindings) (rt.Value, error) {\n" + guard + "}")
		}
		body, err := f.nested(sc, func() (string, error) {
			f.b.WriteString(prologue.String())
			return f.expr(arm.Body)
		})
		if err != nil {
			return "", err
		}
		s.WriteString(", Body: func(r *rt.Runtime, b rt.Bindings) (rt.Value, error) {\n" + body + "}}")
		arms[i] = s.String()
	}
	return f.call("r.Match(" + scrut + ", []rt.Arm{\n" + strings.Join(arms, ",\n") + ",\n})"), nil
}
