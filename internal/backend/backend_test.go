package backend

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/funvibe/funxc/internal/cgtype"
	"github.com/funvibe/funxc/internal/kernel"
	"github.com/funvibe/funxc/internal/mir"
	"github.com/funvibe/funxc/internal/ssa"
)

func local(name string) kernel.Expr  { return &kernel.Local{Name: name} }
func global(name string) kernel.Expr { return &kernel.Global{Name: name} }
func num(text string) kernel.Expr    { return &kernel.Number{Text: text} }
func bin(op string, l, r kernel.Expr) kernel.Expr {
	return &kernel.Binary{Op: op, Left: l, Right: r}
}

func newCtx(result cgtype.Type, params ...Param) *Context {
	return &Context{Def: "g_f", Params: params, Result: result, Globals: map[string]Global{}}
}

func intParam(name string) Param {
	return Param{Name: name, GoName: "l_" + name, Type: cgtype.TInt}
}

func lower(t *testing.T, e kernel.Expr, ctx *Context, opaque func(kernel.Expr, cgtype.Type) (string, bool)) *mir.Function {
	t.Helper()
	fn, ok := mir.Lower(e, ctx.Result, ctx.MIR(opaque))
	if !ok {
		t.Fatalf("mir.Lower = None")
	}
	return fn
}

func TestStructural_Render(t *testing.T) {
	ctx := newCtx(cgtype.TInt, intParam("a"), intParam("b"))
	ctx.Globals["k"] = Global{Type: cgtype.TInt, Typed: "g_k_typed"}

	tests := []struct {
		name string
		expr kernel.Expr
		want string
	}{
		{"add", bin("+", local("a"), local("b")), "return (l_a + l_b), nil\n"},
		{"literal", bin("*", local("a"), num("-2")), "return (l_a * int64(-2)), nil\n"},
		{"branch", &kernel.If{Cond: bin("<", local("a"), local("b")), Then: local("a"), Else: local("b")},
			"if (l_a < l_b) {\nreturn l_a, nil\n} else {\nreturn l_b, nil\n}\n"},
		{"global", bin("+", global("k"), local("a")),
			"t0, err := g_k_typed(r)\nif err != nil {\nreturn 0, err\n}\nreturn (t0 + l_a), nil\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Render(lower(t, tt.expr, ctx, nil), ctx)
			if !ok {
				t.Fatal("Render = None")
			}
			if got != tt.want {
				t.Errorf("Render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStructural_CheckedLeafUnderShortCircuit(t *testing.T) {
	ctx := newCtx(cgtype.TBool, Param{Name: "p", GoName: "l_p", Type: cgtype.TBool})
	ctx.Globals["q"] = Global{Type: cgtype.TBool, Typed: "g_q_typed"}

	fn := lower(t, bin("&&", local("p"), global("q")), ctx, nil)
	if got, ok := Render(fn, ctx); ok {
		t.Errorf("Render = %q, want None", got)
	}

	fn = lower(t, bin("||", global("q"), local("p")), ctx, nil)
	got, ok := Render(fn, ctx)
	if !ok {
		t.Fatal("checked leaf on the left of || was rejected")
	}
	if !strings.HasSuffix(got, "return (t0 || l_p), nil\n") {
		t.Errorf("Render = %q", got)
	}
}

func TestStructural_Opaque(t *testing.T) {
	ctx := newCtx(cgtype.TInt, intParam("x"))
	opaque := func(e kernel.Expr, _ cgtype.Type) (string, bool) { return "call()", true }
	fn := lower(t, bin("+", &kernel.App{Func: global("g"), Arg: local("x")}, local("x")), ctx, opaque)

	out, ok := Structural{}.Generate(fn, ctx)
	if !ok {
		t.Fatal("Generate = None")
	}
	want := "t0, err := call()\nif err != nil {\nreturn 0, err\n}\nreturn (t0 + l_x), nil\n"
	if out.Body != want {
		t.Errorf("Body = %q, want %q", out.Body, want)
	}
	if _, ok := (SSA{}).Generate(fn, ctx); ok {
		t.Error("SSA accepted an opaque leaf")
	}
}

func TestLiteral_NegativeZero(t *testing.T) {
	if got := Literal(mir.FloatLit{Value: math.Copysign(0, -1)}); got != "math.Copysign(0, -1)" {
		t.Errorf("Literal(-0) = %q", got)
	}
	if got := Literal(mir.FloatLit{Value: 2.5}); got != "float64(2.5)" {
		t.Errorf("Literal(2.5) = %q", got)
	}
}

func TestSSA_Generate(t *testing.T) {
	ctx := newCtx(cgtype.TInt, intParam("a"), intParam("b"))
	out, ok := SSA{}.Generate(lower(t, bin("+", local("a"), local("b")), ctx, nil), ctx)
	if !ok {
		t.Fatal("Generate = None")
	}
	if want := "return g_f_ssa(l_a, l_b), nil\n"; out.Body != want {
		t.Errorf("Body = %q, want %q", out.Body, want)
	}
	if out.Helper != "g_f_ssa" || len(out.Decls) != 1 {
		t.Fatalf("Helper = %q, Decls = %d", out.Helper, len(out.Decls))
	}
	if !strings.HasPrefix(out.Decls[0], "func g_f_ssa(p0_a int64, p1_b int64) int64 {\n") {
		t.Errorf("Decls[0] = %q", out.Decls[0])
	}
}

func TestSSA_Globals(t *testing.T) {
	ctx := newCtx(cgtype.TInt, intParam("a"))
	ctx.Globals["k"] = Global{Type: cgtype.TInt, Typed: "g_k_typed"}
	e := bin("+", local("a"), global("k"))

	if _, ok := (SSA{}).Generate(lower(t, e, ctx, nil), ctx); ok {
		t.Error("SSA accepted a global with a structural sibling")
	}

	ctx.Globals["k"] = Global{Type: cgtype.TInt, Typed: "g_k_typed", Helper: "g_k_ssa"}
	out, ok := SSA{}.Generate(lower(t, e, ctx, nil), ctx)
	if !ok {
		t.Fatal("Generate = None")
	}
	want := "gv0, err := g_k_typed(r)\nif err != nil {\nreturn 0, err\n}\nreturn g_f_ssa(gv0, l_a), nil\n"
	if out.Body != want {
		t.Errorf("Body = %q, want %q", out.Body, want)
	}
}

func TestLowerSSA_SortedParams(t *testing.T) {
	ctx := newCtx(cgtype.TInt, intParam("a"), intParam("b"), intParam("c"))
	for _, e := range []kernel.Expr{
		bin("+", local("c"), bin("-", local("a"), local("b"))),
		bin("+", local("b"), bin("-", local("c"), local("a"))),
	} {
		f, keys, ok := LowerSSA(lower(t, e, ctx, nil), "f", ctx)
		if !ok {
			t.Fatal("LowerSSA = None")
		}
		if want := []string{"a", "b", "c"}; !reflect.DeepEqual(keys, want) {
			t.Errorf("keys = %v, want %v", keys, want)
		}
		for i, p := range f.Params {
			if p.Name != keys[i] {
				t.Errorf("param %d = %s, want %s", i, p.Name, keys[i])
			}
		}
	}
}

func TestNew(t *testing.T) {
	got := Ordered([]string{"ssa", "bogus", "structural"})
	if len(got) != 2 || got[0].Name() != "ssa" || got[1].Name() != "structural" {
		t.Errorf("Ordered = %v", got)
	}
	if _, ok := New("vm"); ok {
		t.Error(`New("vm") succeeded`)
	}
}

// Fixtures evaluated three ways must agree bit for bit: the control-flow
// interpreter and the compiled SSA form here, generated Go in the emit
// end-to-end tests.
func TestConformance(t *testing.T) {
	types := map[string]cgtype.Type{
		"a": cgtype.TInt, "b": cgtype.TInt,
		"x": cgtype.TFloat, "y": cgtype.TFloat,
		"p": cgtype.TBool, "q": cgtype.TBool,
	}
	fixtures := []struct {
		name   string
		expr   kernel.Expr
		result cgtype.Type
	}{
		{"int arithmetic", bin("-", bin("*", local("a"), local("b")), num("7")), cgtype.TInt},
		{"float arithmetic", bin("+", bin("*", local("x"), local("y")), num("0.5")), cgtype.TFloat},
		{"min", &kernel.If{Cond: bin("<=", local("a"), local("b")), Then: local("a"), Else: local("b")}, cgtype.TInt},
		{"float branch", &kernel.If{Cond: bin(">", local("x"), num("0")), Then: local("x"), Else: bin("*", local("x"), num("-1"))}, cgtype.TFloat},
		{"short circuit", bin("||", bin("&&", local("p"), bin("<", local("a"), local("b"))), local("q")), cgtype.TBool},
		{"bool equality", bin("!=", local("p"), bin("==", local("x"), local("y"))), cgtype.TBool},
		{"nested short circuit in branch", &kernel.If{
			Cond: bin("&&", local("p"), bin("||", local("q"), bin(">=", local("a"), num("0")))),
			Then: bin("+", local("a"), num("1")),
			Else: bin("-", local("b"), num("1")),
		}, cgtype.TInt},
	}
	inputs := []map[string]uint64{
		{"a": mir.IntBits(3), "b": mir.IntBits(4), "x": mir.FloatBits(1.5), "y": mir.FloatBits(-2), "p": 1, "q": 0},
		{"a": mir.IntBits(-9), "b": mir.IntBits(math.MaxInt64), "x": mir.FloatBits(0), "y": mir.FloatBits(0), "p": 0, "q": 1},
		{"a": mir.IntBits(math.MinInt64), "b": mir.IntBits(-1), "x": mir.FloatBits(math.Copysign(0, -1)), "y": mir.FloatBits(1e308), "p": 1, "q": 1},
	}

	for _, fx := range fixtures {
		fx := fx
		t.Run(fx.name, func(t *testing.T) {
			t.Parallel()
			ctx := newCtx(fx.result)
			for name, ty := range types {
				ctx.Params = append(ctx.Params, Param{Name: name, GoName: "l_" + name, Type: ty})
			}
			fn := lower(t, fx.expr, ctx, nil)
			f, keys, ok := LowerSSA(fn, "f", ctx)
			if !ok {
				t.Fatalf("LowerSSA = None for\n%s", mir.Dump(fn))
			}
			compiled, err := ssa.Compile(f)
			if err != nil {
				t.Fatal(err)
			}
			for _, env := range inputs {
				want, err := mir.Interpret(fn, env)
				if err != nil {
					t.Fatal(err)
				}
				args := make([]uint64, len(keys))
				for i, k := range keys {
					args[i] = env[k]
				}
				if got := compiled.Call(args...); got != want {
					t.Errorf("env %v: compiled = %#x, interpreted = %#x", env, got, want)
				}
			}
		})
	}
}
