package rt

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// clause builds a one-argument closure that matches p and returns body.
func clause(p Pattern, body Value) *Closure {
	m := Compile(p)
	return &Closure{Fn: func(r *Runtime, arg Value) (Value, error) {
		return r.Match(arg, []Arm{{
			Match: m,
			Body:  func(*Runtime, Bindings) (Value, error) { return body, nil },
		}})
	}}
}

func TestMultiClause_SelectsMatchingClause(t *testing.T) {
	r := New(nil)
	m := &MultiClause{Clauses: []Value{
		clause(PInt(0), Text("zero")),
		clause(PInt(1), Text("one")),
		clause(PWild(), Text("many")),
	}}

	tests := []struct {
		arg  Value
		want Value
	}{
		{Int(0), Text("zero")},
		{Int(1), Text("one")},
		{Int(7), Text("many")},
	}
	for _, tt := range tests {
		got, err := r.Apply(m, tt.arg)
		if err != nil {
			t.Fatalf("Apply(%s): %v", tt.arg.Inspect(), err)
		}
		if !Equal(got, tt.want) {
			t.Errorf("Apply(%s) = %s, want %s", tt.arg.Inspect(), got.Inspect(), tt.want.Inspect())
		}
	}
}

func TestMultiClause_AllRejectIsNonExhaustive(t *testing.T) {
	r := New(nil)
	m := &MultiClause{Clauses: []Value{
		clause(PInt(0), Unit{}),
		clause(PInt(1), Unit{}),
	}}
	_, err := r.Apply(m, Int(2))
	if !IsNonExhaustive(err) {
		t.Fatalf("error = %v, want non-exhaustive", err)
	}
}

func TestMultiClause_PropagatesRealError(t *testing.T) {
	r := New(nil)
	boom := Errorf("boom")
	m := &MultiClause{Clauses: []Value{
		clause(PInt(0), Unit{}),
		&Closure{Fn: func(*Runtime, Value) (Value, error) { return nil, boom }},
	}}
	_, err := r.Apply(m, Int(2))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
}

func TestMultiClause_CallablesRegroup(t *testing.T) {
	r := New(nil)
	// Two-argument clauses: the first argument selects nothing yet, so both
	// partial applications survive and the second argument dispatches.
	twoArg := func(second int64, result string) *Closure {
		return &Closure{Fn: func(*Runtime, Value) (Value, error) {
			return clause(PInt(second), Text(result)), nil
		}}
	}
	m := &MultiClause{Clauses: []Value{twoArg(1, "a"), twoArg(2, "b")}}

	got, err := r.Apply(m, Unit{}, Int(2))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != Text("b") {
		t.Errorf("Apply = %s, want \"b\"", got.Inspect())
	}
}

func TestBuiltin_PartialApplication(t *testing.T) {
	r := New(nil)
	foldl, err := r.Builtin("foldl")
	if err != nil {
		t.Fatal(err)
	}
	add := &Closure{Fn: func(r *Runtime, a Value) (Value, error) {
		return &Closure{Fn: func(_ *Runtime, b Value) (Value, error) { return Binary("+", a, b) }}, nil
	}}
	partial, err := r.Apply(foldl, add, Int(0))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := partial.(*Builtin); !ok {
		t.Fatalf("partial application = %T, want *Builtin", partial)
	}
	got, err := r.Apply(partial, List{Int(1), Int(2), Int(3)})
	if err != nil {
		t.Fatal(err)
	}
	if got != Int(6) {
		t.Errorf("foldl = %s, want 6", got.Inspect())
	}

	if _, err := r.Builtin("nope"); err == nil {
		t.Error("Builtin(nope) succeeded, want error")
	}
	if !HasBuiltin("println") || HasBuiltin("nope") {
		t.Error("HasBuiltin disagrees with the prelude")
	}
}

func TestRunEffect_Println(t *testing.T) {
	var out bytes.Buffer
	r := New(&out)
	pl, _ := r.Builtin("println")
	eff, err := r.Apply(pl, Text("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Fatalf("applying println wrote %q before the effect ran", out.String())
	}
	if _, err := r.RunEffect(eff); err != nil {
		t.Fatal(err)
	}
	if out.String() != "hello\n" {
		t.Errorf("output = %q, want %q", out.String(), "hello\n")
	}

	v, err := r.RunEffect(Int(3))
	if err != nil || v != Int(3) {
		t.Errorf("RunEffect(3) = %v, %v; want 3, nil", v, err)
	}
}

func TestBinary(t *testing.T) {
	tests := []struct {
		op      string
		a, b    Value
		want    Value
		wantErr string
	}{
		{"+", Int(2), Int(3), Int(5), ""},
		{"+", Int(2), Float(0.5), Float(2.5), ""},
		{"+", Text("a"), Text("b"), Text("ab"), ""},
		{"-", Float(1), Int(3), Float(-2), ""},
		{"*", Int(4), Int(5), Int(20), ""},
		{"/", Int(7), Int(2), Int(3), ""},
		{"/", Int(1), Int(0), nil, "division by zero"},
		{"%", Int(1), Int(0), nil, "division by zero"},
		{"%", Int(7), Int(3), Int(1), ""},
		{"<", Int(1), Float(1.5), Bool(true), ""},
		{">=", Text("b"), Text("a"), Bool(true), ""},
		{"==", List{Int(1)}, List{Int(1)}, Bool(true), ""},
		{"!=", Int(1), Float(1), Bool(true), ""},
		{"&&", Bool(true), Bool(false), Bool(false), ""},
		{"&&", Int(1), Bool(false), nil, "&&"},
		{"++", List{Int(1)}, List{Int(2)}, List{Int(1), Int(2)}, ""},
		{"^", Int(1), Int(2), nil, "unsupported binary operator"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.op+" "+tt.a.Inspect()+" "+tt.b.Inspect(), func(t *testing.T) {
			t.Parallel()
			got, err := Binary(tt.op, tt.a, tt.b)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !Equal(got, tt.want) {
				t.Errorf("Binary = %s, want %s", got.Inspect(), tt.want.Inspect())
			}
		})
	}
}

func TestPatch(t *testing.T) {
	r := New(nil)
	inc := &Closure{Fn: func(_ *Runtime, v Value) (Value, error) { return Binary("+", v, Int(1)) }}
	orig := Record{
		"name":  Text("box"),
		"size":  Record{"w": Int(1), "h": Int(2)},
		"items": List{Record{"on": Bool(true), "n": Int(1)}, Record{"on": Bool(false), "n": Int(1)}},
	}

	got, err := r.Patch(orig, []PatchField{
		{Path: []PathSeg{{Field: "size"}, {Field: "w"}}, Updater: inc},
		{Path: []PathSeg{{Field: "name"}}, Updater: Text("crate")},
		{Path: []PathSeg{{Field: "items"}, {Where: "on"}, {Field: "n"}}, Updater: Int(9)},
		{Path: []PathSeg{{Field: "tags"}}, Updater: List{}},
	})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}

	want := Record{
		"name":  Text("crate"),
		"size":  Record{"w": Int(2), "h": Int(2)},
		"items": List{Record{"on": Bool(true), "n": Int(9)}, Record{"on": Bool(false), "n": Int(1)}},
		"tags":  List{},
	}
	if !Equal(got, want) {
		t.Errorf("Patch = %s, want %s", got.Inspect(), want.Inspect())
	}
	if orig["size"].(Record)["w"] != Int(1) {
		t.Error("Patch mutated its target")
	}

	if _, err := r.Patch(List{Int(1)}, []PatchField{{Path: []PathSeg{{Index: Int(3)}}, Updater: Int(0)}}); err == nil {
		t.Error("out-of-bounds index patch succeeded, want error")
	}
}

func TestBoxUnbox(t *testing.T) {
	if x, err := UnboxInt(BoxInt(42)); err != nil || x != 42 {
		t.Errorf("UnboxInt(BoxInt(42)) = %d, %v", x, err)
	}
	if _, err := UnboxInt(Float(1)); err == nil || !strings.Contains(err.Error(), "type mismatch") {
		t.Errorf("UnboxInt(Float) error = %v, want type mismatch", err)
	}

	xs, err := UnboxList(BoxList([]float64{1.5, 2}, BoxFloat), UnboxFloat)
	if err != nil || len(xs) != 2 || xs[0] != 1.5 {
		t.Errorf("list round trip = %v, %v", xs, err)
	}
	if _, err := UnboxList(List{Int(1), Text("x")}, UnboxInt); err == nil {
		t.Error("UnboxList with a bad element succeeded")
	}

	anyInt := func(v Value) (any, error) { return UnboxInt(v) }
	if _, err := UnboxTuple(Tuple{Int(1)}, anyInt, anyInt); err == nil {
		t.Error("UnboxTuple with wrong arity succeeded")
	}
	rec, err := UnboxRecord(Record{"x": Int(1)}, map[string]func(Value) (any, error){"x": anyInt})
	if err != nil || rec["x"] != int64(1) {
		t.Errorf("UnboxRecord = %v, %v", rec, err)
	}
	if _, err := UnboxRecord(Record{"x": Int(1), "y": Int(2)}, map[string]func(Value) (any, error){"x": anyInt}); err == nil {
		t.Error("UnboxRecord with an extra field succeeded")
	}
}
