package kernel

import (
	"reflect"
	"testing"

	"github.com/funvibe/funxc/internal/typesystem"
)

func TestGroups_PreservesOrder(t *testing.T) {
	defs := []Def{
		{Name: "f", Expr: &Number{Text: "1"}},
		{Name: "main", Expr: &Number{Text: "2"}},
		{Name: "f", Expr: &Number{Text: "3"}},
		{Name: "g", Expr: &Number{Text: "4"}},
	}
	groups := Groups(defs)

	var names []string
	for _, g := range groups {
		names = append(names, g.Name)
	}
	if want := []string{"f", "main", "g"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("group names = %v, want %v", names, want)
	}
	f := groups[0].Clauses
	if len(f) != 2 || f[0].Expr.(*Number).Text != "1" || f[1].Expr.(*Number).Text != "3" {
		t.Errorf("clauses of f = %#v, want declaration order", f)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if err := reg.AddADT(ADT{Name: "Option", Constructors: []Constructor{
		{Name: "Some", Payload: []typesystem.Type{typesystem.TVar{Name: "a"}}},
		{Name: "None"},
	}}); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddADT(ADT{Name: "Option"}); err == nil {
		t.Error("duplicate type accepted")
	}
	if err := reg.AddAlias("Option", typesystem.TCon{Name: "Int"}); err == nil {
		t.Error("alias shadowing a type accepted")
	}
	if n, ok := reg.ConstructorArity("Some"); !ok || n != 1 {
		t.Errorf("arity(Some) = %d, %v; want 1, true", n, ok)
	}
	if _, ok := reg.ConstructorArity("Missing"); ok {
		t.Error("arity(Missing) found")
	}

	var nilReg *Registry
	if _, ok := nilReg.ADT("Option"); ok {
		t.Error("nil registry reported a type")
	}
}

func TestInspect_VisitsGuardsAndPatchValues(t *testing.T) {
	patch := &Patch{Target: &Local{Name: "r"}, Fields: []PatchField{{
		Path:  []PathSeg{{Field: "n"}},
		Value: &Global{Name: "inc"},
	}}}
	e := &Match{
		Scrutinee: &Local{Name: "x"},
		Arms: []Arm{{
			Pattern: &PatVar{Name: "y"},
			Guard:   &Global{Name: "ok"},
			Body:    &Block{Items: []BlockItem{{Kind: ItemExpr, Expr: patch}}},
		}},
	}

	var globals []string
	sawPatch := false
	Inspect(e, func(n Expr) bool {
		switch n := n.(type) {
		case *Global:
			globals = append(globals, n.Name)
		case *Patch:
			sawPatch = true
		}
		return true
	})
	if !sawPatch {
		t.Error("patch inside a block was not visited")
	}
	if want := []string{"ok", "inc"}; !reflect.DeepEqual(globals, want) {
		t.Errorf("globals = %v, want %v", globals, want)
	}
}

func TestBinders(t *testing.T) {
	rest := &PatVar{Name: "tail"}
	p := &PatAt{Name: "all", Pattern: &PatTuple{Items: []Pattern{
		&PatCtor{Name: "Some", Args: []Pattern{&PatVar{Name: "x"}}},
		&PatList{Items: []Pattern{&PatVar{Name: "h"}, &PatWildcard{}}, Rest: rest},
		&PatRecord{Fields: []PatField{{Path: []string{"a", "b"}, Pattern: &PatVar{Name: "ab"}}}},
	}}}
	want := []string{"all", "x", "h", "tail", "ab"}
	if got := Binders(p); !reflect.DeepEqual(got, want) {
		t.Errorf("Binders = %v, want %v", got, want)
	}
}
