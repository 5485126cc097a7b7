package cgtype

import (
	"reflect"
	"strings"
	"testing"

	"github.com/funvibe/funxc/internal/kernel"
	"github.com/funvibe/funxc/internal/typesystem"
	"github.com/funvibe/funxc/pkg/rt"
)

func con(name string) typesystem.Type { return typesystem.TCon{Name: name} }

func testRegistry(t *testing.T) *kernel.Registry {
	t.Helper()
	reg := kernel.NewRegistry()
	if err := reg.AddADT(kernel.ADT{Name: "Tree", Constructors: []kernel.Constructor{
		{Name: "Leaf"},
		{Name: "Node", Payload: []typesystem.Type{con("Tree"), con("Int"), con("Tree")}},
	}}); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddAlias("Score", con("Float")); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestLower(t *testing.T) {
	reg := testRegistry(t)
	pairParams := []string{"a"}

	tests := []struct {
		name   string
		in     typesystem.Type
		want   string
		closed bool
	}{
		{"int", con("Int"), "Int", true},
		{"string is text", con("String"), "Text", true},
		{"unknown con", con("Widget"), "Dynamic", false},
		{"type var", typesystem.TVar{Name: "a"}, "Dynamic", false},
		{"curried func", typesystem.TFunc{Params: []typesystem.Type{con("Int"), con("Int")}, ReturnType: con("Bool")},
			"(Int -> (Int -> Bool))", true},
		{"list", typesystem.TApp{Constructor: con("List"), Args: []typesystem.Type{con("Float")}}, "[Float]", true},
		{"option is not recognised", typesystem.TApp{Constructor: con("Option"), Args: []typesystem.Type{con("Int")}}, "Dynamic", false},
		{"empty tuple is unit", typesystem.TTuple{}, "Unit", true},
		{"tuple with var", typesystem.TTuple{Elements: []typesystem.Type{con("Int"), typesystem.TVar{Name: "b"}}}, "(Int, Dynamic)", false},
		{"closed record", typesystem.TRecord{Fields: map[string]typesystem.Type{"y": con("Int"), "x": con("Bool")}}, "{x: Bool, y: Int}", true},
		{"open record", typesystem.TRecord{Fields: map[string]typesystem.Type{"x": con("Int")}, IsOpen: true}, "Dynamic", false},
		{"adt", con("Tree"), "Tree", true},
		{"registry alias", con("Score"), "Float", true},
		{"inline alias", typesystem.TCon{Name: "Meters", UnderlyingType: con("Float")}, "Float", true},
		{"parameterized alias", typesystem.TApp{
			Constructor: typesystem.TCon{
				Name:           "Pair",
				UnderlyingType: typesystem.TTuple{Elements: []typesystem.Type{typesystem.TVar{Name: "a"}, typesystem.TVar{Name: "a"}}},
				TypeParams:     &pairParams,
			},
			Args: []typesystem.Type{con("Int")},
		}, "(Int, Int)", true},
		{"forall without vars", typesystem.TForall{Type: con("Int")}, "Int", true},
		{"forall with vars", typesystem.TForall{Vars: []typesystem.TVar{{Name: "a"}}, Type: typesystem.TVar{Name: "a"}}, "Dynamic", false},
		{"forall over unused vars", typesystem.TForall{
			Vars: []typesystem.TVar{{Name: "a"}},
			Type: typesystem.TFunc{Params: []typesystem.Type{con("Int")}, ReturnType: con("Bool")},
		}, "(Int -> Bool)", true},
		{"forall over a var used deep", typesystem.TForall{
			Vars: []typesystem.TVar{{Name: "a"}},
			Type: typesystem.TFunc{Params: []typesystem.Type{con("Int")}, ReturnType: typesystem.TTuple{Elements: []typesystem.Type{typesystem.TVar{Name: "a"}}}},
		}, "Dynamic", false},
		{"forall keeps outer vars free", typesystem.TForall{
			Vars: []typesystem.TVar{{Name: "a"}},
			Type: typesystem.TVar{Name: "b"},
		}, "Dynamic", false},
		{"alias of alias", typesystem.TCon{Name: "Km", UnderlyingType: typesystem.TCon{Name: "Meters", UnderlyingType: con("Float")}}, "Float", true},
		{"union", typesystem.TUnion{Types: []typesystem.Type{con("Int"), con("Text")}}, "Dynamic", false},
		{"nil", nil, "Dynamic", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Lower(tt.in, reg)
			if got.String() != tt.want {
				t.Errorf("Lower = %s, want %s", got, tt.want)
			}
			if got.IsClosed() != tt.closed {
				t.Errorf("IsClosed = %v, want %v", got.IsClosed(), tt.closed)
			}
		})
	}
}

func TestLower_ADTPayloadsStayEmpty(t *testing.T) {
	got := Lower(con("Tree"), testRegistry(t))
	if got.Kind != Adt || len(got.Ctors) != 2 {
		t.Fatalf("Lower(Tree) = %#v", got)
	}
	if got.Ctors[0].Name != "Leaf" || got.Ctors[1].Name != "Node" {
		t.Errorf("constructor order = %s, %s; want Leaf, Node", got.Ctors[0].Name, got.Ctors[1].Name)
	}
	for _, c := range got.Ctors {
		if len(c.Payload) != 0 {
			t.Errorf("constructor %s has payload %v, want none", c.Name, c.Payload)
		}
	}
}

func TestLower_SelfReferentialTerminates(t *testing.T) {
	// Stream = List Stream, built as a cyclic value.
	args := make([]typesystem.Type, 1)
	stream := typesystem.TCon{Name: "Stream", UnderlyingType: typesystem.TApp{Constructor: con("List"), Args: args}}
	args[0] = stream

	got := LowerWithBudget(stream, nil, 10)
	if got.IsClosed() {
		t.Fatalf("Lower(Stream) = %s, want a Dynamic leaf", got)
	}
	depth := 0
	for got.Kind == List {
		got = *got.Elem
		depth++
	}
	if got.Kind != Dynamic {
		t.Errorf("innermost = %s, want Dynamic", got)
	}
	if depth == 0 || depth > 10 {
		t.Errorf("list depth = %d, want within the budget", depth)
	}

	if d := Lower(stream, nil); d.IsClosed() {
		t.Errorf("default budget: Lower(Stream) = %s, want not closed", d)
	}
}

func TestEqual(t *testing.T) {
	a := RecordOf(Field{"b", TInt}, Field{"a", ListOf(TBool)})
	b := RecordOf(Field{"a", ListOf(TBool)}, Field{"b", TInt})
	if !a.Equal(b) {
		t.Errorf("%s != %s, want equal regardless of field order", a, b)
	}
	if a.Equal(RecordOf(Field{"a", ListOf(TInt)}, Field{"b", TInt})) {
		t.Error("records with different element types compare equal")
	}
	if FuncOf(TInt, TInt).Equal(FuncOf(TInt, TFloat)) {
		t.Error("functions with different results compare equal")
	}
}

func TestBoxUnbox_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		t    Type
		v    any
	}{
		{"int", TInt, int64(-42)},
		{"float", TFloat, 2.5},
		{"bool", TBool, true},
		{"text", TText, "héllo"},
		{"unit", TUnit, struct{}{}},
		{"datetime", TDateTime, "2024-03-01T10:00:00Z"},
		{"list of lists", ListOf(ListOf(TInt)), [][]int64{{1, 2}, {}, {3}}},
		{"tuple", TupleOf(TInt, TText, ListOf(TBool)), []any{int64(1), "x", []bool{true, false}}},
		{"record", RecordOf(Field{"n", TFloat}, Field{"tags", ListOf(TText)}), map[string]any{"n": 1.5, "tags": []string{"a"}}},
		{"function is identity", FuncOf(TInt, TInt), rt.Value(&rt.Builtin{Name: "f", Arity: 1})},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !tt.t.IsClosed() {
				t.Fatalf("%s is not closed", tt.t)
			}
			boxed, err := Box(tt.t, tt.v)
			if err != nil {
				t.Fatalf("Box: %v", err)
			}
			back, err := Unbox(tt.t, boxed)
			if err != nil {
				t.Fatalf("Unbox: %v", err)
			}
			if !reflect.DeepEqual(back, tt.v) {
				t.Errorf("Unbox(Box(v)) = %#v, want %#v", back, tt.v)
			}
		})
	}
}

func TestUnbox_Mismatch(t *testing.T) {
	tests := []struct {
		t Type
		v rt.Value
	}{
		{TInt, rt.Float(1)},
		{ListOf(TInt), rt.List{rt.Int(1), rt.Text("x")}},
		{TupleOf(TInt, TInt), rt.Tuple{rt.Int(1)}},
		{RecordOf(Field{"a", TInt}), rt.Record{"b": rt.Int(1)}},
	}
	for _, tt := range tests {
		_, err := Unbox(tt.t, tt.v)
		if err == nil || !strings.Contains(err.Error(), "type mismatch") {
			t.Errorf("Unbox(%s, %s) error = %v, want type mismatch", tt.t, tt.v.Inspect(), err)
		}
	}
}

func TestEmitBoxUnbox(t *testing.T) {
	tests := []struct {
		t         Type
		box, unbx string
	}{
		{TInt, "rt.BoxInt(x)", "rt.UnboxInt(x)"},
		{ListOf(TFloat), "rt.BoxList(x, rt.BoxFloat)", "rt.UnboxList(x, rt.UnboxFloat)"},
		{ListOf(ListOf(TBool)),
			"rt.BoxList(x, func(x []bool) rt.Value { return rt.BoxList(x, rt.BoxBool) })",
			"rt.UnboxList(x, func(v rt.Value) ([]bool, error) { return rt.UnboxList(v, rt.UnboxBool) })"},
		{TupleOf(TInt, TText),
			"rt.BoxTuple(x, func(x any) rt.Value { return rt.BoxInt(x.(int64)) }, func(x any) rt.Value { return rt.BoxText(x.(string)) })",
			"rt.UnboxTuple(x, func(v rt.Value) (any, error) { return rt.UnboxInt(v) }, func(v rt.Value) (any, error) { return rt.UnboxText(v) })"},
		{FuncOf(TInt, TInt), "x", "rt.Identity(x)"},
	}
	for _, tt := range tests {
		if got := EmitBox(tt.t, "x"); got != tt.box {
			t.Errorf("EmitBox(%s) = %q, want %q", tt.t, got, tt.box)
		}
		if got := EmitUnbox(tt.t, "x"); got != tt.unbx {
			t.Errorf("EmitUnbox(%s) = %q, want %q", tt.t, got, tt.unbx)
		}
	}
}

func TestPeel(t *testing.T) {
	f := FuncOf(TInt, FuncOf(TFloat, TBool))
	params, result, ok := f.Peel(2)
	if !ok || len(params) != 2 || !params[1].Equal(TFloat) || !result.Equal(TBool) {
		t.Errorf("Peel(2) = %v, %s, %v", params, result, ok)
	}
	if _, _, ok := f.Peel(3); ok {
		t.Error("Peel(3) of a two-parameter function succeeded")
	}
}
