package ssa

import (
	"math"
	"strings"
	"testing"
)

func buildAdd(t *testing.T) *Func {
	t.Helper()
	b := NewBuilder("g_add_ssa", I64)
	x := b.Param("a", I64)
	y := b.Param("b", I64)
	b.Return(b.Binary(OP_ADD, x, y))
	f := b.Func()
	DCE(f)
	if err := Verify(f); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	return f
}

// buildAnd builds p && q with a join block and reads p again after the join.
func buildAnd(t *testing.T, readPAfterJoin bool) *Func {
	t.Helper()
	b := NewBuilder("and", Bool)
	p := b.Param("p", Bool)
	b.Param("q", Bool)
	b.WriteVariable("sc", b.Block(), p)

	rhs := b.NewBlock()
	join := b.NewBlock()
	b.Branch(p, rhs, join)
	if err := b.SealBlock(rhs); err != nil {
		t.Fatal(err)
	}

	b.SetBlock(rhs)
	q, err := b.ReadVariable("q", Bool, rhs)
	if err != nil {
		t.Fatal(err)
	}
	b.WriteVariable("sc", rhs, q)
	b.Jump(join)
	if err := b.SealBlock(join); err != nil {
		t.Fatal(err)
	}

	b.SetBlock(join)
	r, err := b.ReadVariable("sc", Bool, join)
	if err != nil {
		t.Fatal(err)
	}
	if readPAfterJoin {
		again, err := b.ReadVariable("p", Bool, join)
		if err != nil {
			t.Fatal(err)
		}
		if again != p {
			t.Errorf("ReadVariable(p) after join = %s, want the parameter %s", again, p)
		}
		r = b.Binary(OP_EQ, r, again)
	}
	b.Return(r)
	f := b.Func()
	DCE(f)
	if err := Verify(f); err != nil {
		t.Fatalf("Verify: %v\n%s", err, f)
	}
	return f
}

func TestRender_Add(t *testing.T) {
	want := "func g_add_ssa(p0_a int64, p1_b int64) int64 {\n" +
		"\tvar v2 int64\n" +
		"\tv2 = p0_a + p1_b\n" +
		"\treturn v2\n" +
		"}\n"
	if got := Render(buildAdd(t)); got != want {
		t.Errorf("Render =\n%s\nwant\n%s", got, want)
	}
}

func TestCompile_Add(t *testing.T) {
	c, err := Compile(buildAdd(t))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Call(3, 4); got != 7 {
		t.Errorf("add(3, 4) = %d, want 7", got)
	}
	if got := int64(c.Call(uint64(math.MaxInt64), 1)); got != math.MinInt64 {
		t.Errorf("add(MaxInt64, 1) = %d, want wraparound", got)
	}
	if c.NumParams() != 2 {
		t.Errorf("NumParams = %d, want 2", c.NumParams())
	}
}

func TestBuilder_ShortCircuitPhi(t *testing.T) {
	f := buildAnd(t, false)
	phis := 0
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v.Op == OP_PHI {
				phis++
				if len(v.Args) != len(b.Preds) {
					t.Errorf("phi %s has %d args for %d preds", v, len(v.Args), len(b.Preds))
				}
			}
		}
	}
	if phis != 1 {
		t.Errorf("phis = %d, want 1\n%s", phis, f)
	}

	c, err := Compile(f)
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct{ p, q, want uint64 }{{0, 0, 0}, {0, 1, 0}, {1, 0, 0}, {1, 1, 1}} {
		if got := c.Call(tt.p, tt.q); got != tt.want {
			t.Errorf("%d && %d = %d, want %d", tt.p, tt.q, got, tt.want)
		}
	}

	src := Render(f)
	for _, frag := range []string{"goto b1", "goto b2", "b1:\n", "b2:\n", "var v2 bool"} {
		if !strings.Contains(src, frag) {
			t.Errorf("Render missing %q:\n%s", frag, src)
		}
	}
}

func TestBuilder_TrivialPhiRemoved(t *testing.T) {
	f := buildAnd(t, true)
	c, err := Compile(f)
	if err != nil {
		t.Fatal(err)
	}
	// (p && q) == p
	for _, tt := range []struct{ p, q, want uint64 }{{0, 0, 1}, {1, 0, 0}, {1, 1, 1}} {
		if got := c.Call(tt.p, tt.q); got != tt.want {
			t.Errorf("(%d && %d) == %d = %d, want %d", tt.p, tt.q, tt.p, got, tt.want)
		}
	}
}

func TestDCE_DropsUnusedValues(t *testing.T) {
	b := NewBuilder("f", F64)
	x := b.Param("x", F64)
	b.Binary(OP_MUL, x, x)
	b.Const(I64, 9)
	b.Return(x)
	f := b.Func()
	DCE(f)
	if n := f.NumValues(); n != 1 {
		t.Errorf("NumValues after DCE = %d, want 1 (the parameter)\n%s", n, f)
	}
}

func TestVerify_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Func
		want  string
	}{
		{"missing terminator", func() *Func {
			b := NewBuilder("f", I64)
			b.Param("x", I64)
			return b.Func()
		}, "no terminator"},
		{"unsealed block", func() *Func {
			b := NewBuilder("f", I64)
			x := b.Param("x", I64)
			next := b.NewBlock()
			b.Jump(next)
			b.SetBlock(next)
			b.Return(x)
			return b.Func()
		}, "not sealed"},
		{"wrong result type", func() *Func {
			b := NewBuilder("f", I64)
			b.Return(b.Const(Bool, 1))
			return b.Func()
		}, "must return"},
		{"mixed operand types", func() *Func {
			b := NewBuilder("f", I64)
			x := b.Param("x", I64)
			y := b.Param("y", F64)
			b.Return(b.Binary(OP_ADD, x, y))
			return b.Func()
		}, "operands"},
		{"ordering bools", func() *Func {
			b := NewBuilder("f", Bool)
			x := b.Param("x", Bool)
			b.Return(b.Binary(OP_LT, x, x))
			return b.Func()
		}, "orders bool"},
		{"phi arity", func() *Func {
			b := NewBuilder("f", I64)
			x := b.Param("x", I64)
			c := b.Binary(OP_LT, x, x)
			l, r, join := b.NewBlock(), b.NewBlock(), b.NewBlock()
			b.Branch(c, l, r)
			for _, blk := range []*Block{l, r} {
				b.SealBlock(blk)
				b.SetBlock(blk)
				b.Jump(join)
			}
			b.SealBlock(join)
			b.SetBlock(join)
			phi := b.newValue(join, OP_PHI, I64, x)
			b.Return(phi)
			return b.Func()
		}, "arguments for 2 predecessors"},
		{"definition does not dominate use", func() *Func {
			b := NewBuilder("f", I64)
			x := b.Param("x", I64)
			c := b.Binary(OP_LT, x, x)
			l, r := b.NewBlock(), b.NewBlock()
			b.Branch(c, l, r)
			b.SealBlock(l)
			b.SealBlock(r)
			b.SetBlock(l)
			y := b.Binary(OP_ADD, x, x)
			b.Return(y)
			b.SetBlock(r)
			b.Return(y)
			return b.Func()
		}, "does not dominate"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Verify(tt.build())
			if err == nil {
				t.Fatalf("Verify succeeded, want error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Verify = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestFormatBits(t *testing.T) {
	tests := []struct {
		t    Type
		bits uint64
		want string
	}{
		{I64, uint64(1<<64 - 5), "-5"},
		{F64, math.Float64bits(3), "3.0"},
		{F64, math.Float64bits(0.25), "0.25"},
		{F64, math.Float64bits(math.Copysign(0, -1)), "math.Copysign(0, -1)"},
		{F64, math.Float64bits(1e300), "1e+300"},
		{Bool, 1, "true"},
	}
	for _, tt := range tests {
		if got := formatBits(tt.t, tt.bits); got != tt.want {
			t.Errorf("formatBits(%s, %#x) = %q, want %q", tt.t, tt.bits, got, tt.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	for in, want := range map[string]string{"x": "x", "x'": "x_q", "a-b": "a_2db", "n_1": "n_1"} {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
