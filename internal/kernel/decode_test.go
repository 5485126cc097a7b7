package kernel

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/funxc/internal/typesystem"
)

const shapesModule = `
module: shapes
aliases:
  - name: Point
    type: {kind: tuple, elems: [Float, Float]}
adts:
  - name: Shape
    constructors:
      - name: Circle
        payload: [Point, Float]
      - name: Dot
defs:
  - name: add
    type: {kind: func, params: [Int, Int], result: Int}
    expr:
      kind: lambda
      params: [a, b]
      body: {kind: binary, op: "+", left: {kind: local, name: a}, right: {kind: local, name: b}}
  - name: radius
    type: {kind: func, params: [Shape], result: Float}
    expr:
      kind: lambda
      param: s
      body:
        kind: match
        scrutinee: {kind: local, name: s}
        arms:
          - pattern: {kind: ctor, name: Circle, args: [_, r]}
            guard: {kind: binary, op: ">", left: {kind: local, name: r}, right: {kind: number, value: "0"}}
            body: {kind: local, name: r}
          - pattern: _
            body: {kind: number, value: "0.0"}
  - name: main
    expr:
      kind: block
      do: true
      items:
        - bind: x
          expr: {kind: app, func: {kind: builtin, name: pure}, args: [{kind: number, value: "1"}]}
        - expr:
            kind: app
            func: {kind: builtin, name: println}
            arg:
              kind: interp
              parts:
                - text: "x = "
                - expr: {kind: local, name: x}
`

func TestDecodeModule(t *testing.T) {
	m, err := DecodeModule([]byte(shapesModule), "shapes.kernel.yaml")
	if err != nil {
		t.Fatalf("DecodeModule: %v", err)
	}
	if m.Name != "shapes" {
		t.Errorf("Name = %q, want %q", m.Name, "shapes")
	}
	if len(m.Defs) != 3 {
		t.Fatalf("len(Defs) = %d, want 3", len(m.Defs))
	}

	add := m.Defs[0]
	if got := add.Type.String(); got != "(Int, Int) -> Int" {
		t.Errorf("add type = %q, want %q", got, "(Int, Int) -> Int")
	}
	outer, ok := add.Expr.(*Lambda)
	if !ok || outer.Param != "a" {
		t.Fatalf("add expr = %#v, want lambda a", add.Expr)
	}
	if inner, ok := outer.Body.(*Lambda); !ok || inner.Param != "b" {
		t.Errorf("add body = %#v, want lambda b", outer.Body)
	}

	match := m.Defs[1].Expr.(*Lambda).Body.(*Match)
	if len(match.Arms) != 2 {
		t.Fatalf("arms = %d, want 2", len(match.Arms))
	}
	if match.Arms[0].Guard == nil || match.Arms[1].Guard != nil {
		t.Error("guard placement is wrong")
	}
	ctor := match.Arms[0].Pattern.(*PatCtor)
	if _, ok := ctor.Args[0].(*PatWildcard); !ok {
		t.Errorf("ctor arg 0 = %#v, want wildcard", ctor.Args[0])
	}
	if v, ok := ctor.Args[1].(*PatVar); !ok || v.Name != "r" {
		t.Errorf("ctor arg 1 = %#v, want var r", ctor.Args[1])
	}

	main := m.Defs[2]
	if main.Type != nil {
		t.Errorf("main type = %v, want nil", main.Type)
	}
	block := main.Expr.(*Block)
	if block.Kind != DoBlock || block.Items[0].Kind != ItemBind || block.Items[1].Kind != ItemExpr {
		t.Errorf("block = %#v, want do block with bind then expr", block)
	}

	adt, ok := m.Registry.ADT("Shape")
	if !ok || len(adt.Constructors) != 2 {
		t.Fatalf("Shape = %#v, want two constructors", adt)
	}
	circle := adt.Constructors[0]
	point, ok := circle.Payload[0].(typesystem.TCon)
	if !ok || point.UnderlyingType == nil {
		t.Errorf("Circle payload 0 = %#v, want alias Point with underlying type", circle.Payload[0])
	}
	if n, ok := m.Registry.ConstructorArity("Dot"); !ok || n != 0 {
		t.Errorf("arity(Dot) = %d, %v; want 0, true", n, ok)
	}
}

func TestDecodeModule_JSON(t *testing.T) {
	src := `{"module": "j", "defs": [{"name": "one", "type": "Int", "expr": {"kind": "number", "value": "1"}}]}`
	m, err := DecodeModule([]byte(src), "j.kernel.json")
	if err != nil {
		t.Fatalf("DecodeModule: %v", err)
	}
	if n, ok := m.Defs[0].Expr.(*Number); !ok || n.Text != "1" {
		t.Errorf("expr = %#v, want number 1", m.Defs[0].Expr)
	}
}

func TestDecodeModule_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "unknown expression kind",
			src:     "defs:\n  - name: f\n    expr: {kind: lambda, param: x, body: {kind: frob}}\n",
			wantErr: `defs[0].expr.body (line 3): unknown expression kind "frob"`,
		},
		{
			name:    "missing expr",
			src:     "defs:\n  - name: f\n",
			wantErr: "defs[0]: definition f has no expr",
		},
		{
			name:    "missing binary operand",
			src:     "defs:\n  - name: f\n    expr: {kind: binary, op: '+', left: {kind: number, value: '1'}}\n",
			wantErr: "defs[0].expr (line 3): missing right",
		},
		{
			name:    "bind in plain block",
			src:     "defs:\n  - name: f\n    expr: {kind: block, items: [{bind: x, expr: {kind: local, name: y}}]}\n",
			wantErr: "defs[0].expr.items[0]",
		},
		{
			name:    "unknown type kind",
			src:     "defs:\n  - name: f\n    type: {kind: blob}\n    expr: {kind: number, value: '1'}\n",
			wantErr: `defs[0].type (line 3): unknown type kind "blob"`,
		},
		{
			name:    "duplicate constructor",
			src:     "adts:\n  - name: A\n    constructors: [{name: X}]\n  - name: B\n    constructors: [{name: X}]\n",
			wantErr: "adts[1]: constructor X of B is already declared by A",
		},
		{
			name:    "pattern without kind",
			src:     "defs:\n  - name: f\n    expr: {kind: match, scrutinee: {kind: local, name: x}, arms: [{pattern: {name: y}, body: {kind: local, name: y}}]}\n",
			wantErr: "defs[0].expr.arms[0].pattern (line 3): pattern has no kind",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeModule([]byte(tt.src), "bad.kernel.yaml")
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want containing %q", err.Error(), tt.wantErr)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("error %T is not a *DecodeError", err)
			}
		})
	}
}

func TestLoadModule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shapes.kernel.yaml")
	if err := os.WriteFile(path, []byte(shapesModule), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadModule(path)
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	if m.Name != "shapes" {
		t.Errorf("Name = %q, want shapes", m.Name)
	}

	if _, err := LoadModule(filepath.Join(dir, "missing.kernel.yaml")); err == nil {
		t.Error("LoadModule of a missing file succeeded")
	}
}
