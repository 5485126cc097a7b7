// Package cgtype derives closed layout descriptors from checker types. A
// descriptor with no Dynamic leaf is closed and may use an unboxed Go
// representation.
package cgtype

import (
	"sort"
	"strings"

	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/kernel"
	"github.com/funvibe/funxc/internal/typesystem"
)

type Kind uint8

const (
	Dynamic Kind = iota
	Int
	Float
	Bool
	Text
	Unit
	DateTime
	Func
	List
	Tuple
	Record
	Adt
)

// Type is an immutable layout descriptor.
type Type struct {
	Kind Kind

	// Func
	Param, Result *Type
	// List
	Elem *Type
	// Tuple
	Elems []Type
	// Record, sorted by name
	Fields []Field
	// Adt
	Name  string
	Ctors []Ctor
}

type Field struct {
	Name string
	Type Type
}

// Ctor is an ADT constructor. Payloads are not lowered and stay empty.
type Ctor struct {
	Name    string
	Payload []Type
}

var (
	TDynamic  = Type{Kind: Dynamic}
	TInt      = Type{Kind: Int}
	TFloat    = Type{Kind: Float}
	TBool     = Type{Kind: Bool}
	TText     = Type{Kind: Text}
	TUnit     = Type{Kind: Unit}
	TDateTime = Type{Kind: DateTime}
)

func FuncOf(param, result Type) Type {
	return Type{Kind: Func, Param: &param, Result: &result}
}

func ListOf(elem Type) Type {
	return Type{Kind: List, Elem: &elem}
}

func TupleOf(elems ...Type) Type {
	return Type{Kind: Tuple, Elems: elems}
}

// RecordOf builds a record descriptor; fields are sorted by name.
func RecordOf(fields ...Field) Type {
	fs := append([]Field(nil), fields...)
	sort.Slice(fs, func(i, j int) bool { return fs[i].Name < fs[j].Name })
	return Type{Kind: Record, Fields: fs}
}

// Lower derives the descriptor of t with the default depth budget.
func Lower(t typesystem.Type, reg *kernel.Registry) Type {
	return LowerWithBudget(t, reg, config.CgTypeDepthBudget)
}

// LowerWithBudget derives the descriptor of t. Every recursive step costs
// one unit of budget; an exhausted budget yields Dynamic, which bounds the
// work on self-referential types.
func LowerWithBudget(t typesystem.Type, reg *kernel.Registry, budget int) Type {
	if budget <= 0 || t == nil {
		return TDynamic
	}
	next := budget - 1

	switch t := t.(type) {
	case typesystem.TCon:
		if t.UnderlyingType != nil {
			return LowerWithBudget(typesystem.UnwrapUnderlying(t), reg, next)
		}
		switch t.Name {
		case config.IntTypeName:
			return TInt
		case config.FloatTypeName:
			return TFloat
		case config.BoolTypeName:
			return TBool
		case config.TextTypeName, config.StringTypeName:
			return TText
		case config.UnitTypeName:
			return TUnit
		case config.DateTimeTypeName:
			return TDateTime
		}
		if adt, ok := reg.ADT(t.Name); ok {
			return adtOf(adt)
		}
		if u, ok := reg.Alias(t.Name); ok {
			return LowerWithBudget(u, reg, next)
		}
		return TDynamic

	case typesystem.TApp:
		con, ok := t.Constructor.(typesystem.TCon)
		if !ok {
			return TDynamic
		}
		if con.UnderlyingType != nil {
			return LowerWithBudget(typesystem.ExpandTypeAlias(t), reg, next)
		}
		if con.Name == config.ListTypeName && len(t.Args) == 1 {
			return ListOf(LowerWithBudget(t.Args[0], reg, next))
		}
		if adt, ok := reg.ADT(con.Name); ok {
			return adtOf(adt)
		}
		if _, ok := reg.Alias(con.Name); ok {
			return LowerWithBudget(typesystem.TCon{Name: con.Name}, reg, next)
		}
		return TDynamic

	case typesystem.TTuple:
		if len(t.Elements) == 0 {
			return TUnit
		}
		elems := make([]Type, len(t.Elements))
		for i, e := range t.Elements {
			elems[i] = LowerWithBudget(e, reg, next)
		}
		return TupleOf(elems...)

	case typesystem.TRecord:
		if t.IsOpen || t.Row != nil {
			return TDynamic
		}
		fields := make([]Field, 0, len(t.Fields))
		for _, name := range t.FieldNames() {
			fields = append(fields, Field{Name: name, Type: LowerWithBudget(t.Fields[name], reg, next)})
		}
		return RecordOf(fields...)

	case typesystem.TFunc:
		if len(t.Params) == 0 {
			return TDynamic
		}
		result := LowerWithBudget(t.ReturnType, reg, next)
		for i := len(t.Params) - 1; i >= 0; i-- {
			result = FuncOf(LowerWithBudget(t.Params[i], reg, next), result)
		}
		return result

	case typesystem.TForall:
		// A quantifier binding nothing its body mentions is transparent.
		if t.Type != nil && len(t.FreeTypeVariables()) == len(t.Type.FreeTypeVariables()) {
			return LowerWithBudget(t.Type, reg, next)
		}
		return TDynamic
	}
	return TDynamic
}

func adtOf(adt *kernel.ADT) Type {
	ctors := make([]Ctor, len(adt.Constructors))
	for i, c := range adt.Constructors {
		ctors[i] = Ctor{Name: c.Name}
	}
	return Type{Kind: Adt, Name: adt.Name, Ctors: ctors}
}

// IsClosed reports whether t has no Dynamic leaf.
func (t Type) IsClosed() bool {
	switch t.Kind {
	case Dynamic:
		return false
	case Func:
		return t.Param.IsClosed() && t.Result.IsClosed()
	case List:
		return t.Elem.IsClosed()
	case Tuple:
		for _, e := range t.Elems {
			if !e.IsClosed() {
				return false
			}
		}
	case Record:
		for _, f := range t.Fields {
			if !f.Type.IsClosed() {
				return false
			}
		}
	case Adt:
		for _, c := range t.Ctors {
			for _, p := range c.Payload {
				if !p.IsClosed() {
					return false
				}
			}
		}
	}
	return true
}

// Equal reports structural equality.
func (t Type) Equal(u Type) bool {
	if t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case Func:
		return t.Param.Equal(*u.Param) && t.Result.Equal(*u.Result)
	case List:
		return t.Elem.Equal(*u.Elem)
	case Tuple:
		return equalAll(t.Elems, u.Elems)
	case Record:
		if len(t.Fields) != len(u.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != u.Fields[i].Name || !t.Fields[i].Type.Equal(u.Fields[i].Type) {
				return false
			}
		}
	case Adt:
		if t.Name != u.Name || len(t.Ctors) != len(u.Ctors) {
			return false
		}
		for i := range t.Ctors {
			if t.Ctors[i].Name != u.Ctors[i].Name || !equalAll(t.Ctors[i].Payload, u.Ctors[i].Payload) {
				return false
			}
		}
	}
	return true
}

func equalAll(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

var kindNames = [...]string{
	Dynamic:  "Dynamic",
	Int:      "Int",
	Float:    "Float",
	Bool:     "Bool",
	Text:     "Text",
	Unit:     "Unit",
	DateTime: "DateTime",
}

func (t Type) String() string {
	switch t.Kind {
	case Func:
		return "(" + t.Param.String() + " -> " + t.Result.String() + ")"
	case List:
		return "[" + t.Elem.String() + "]"
	case Tuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case Record:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Name + ": " + f.Type.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Adt:
		return t.Name
	}
	return kindNames[t.Kind]
}

// IsPrimitive reports whether t is Int, Float or Bool, the kinds the
// control-flow backends operate on.
func (t Type) IsPrimitive() bool {
	return t.Kind == Int || t.Kind == Float || t.Kind == Bool
}

// GoType spells the unboxed Go type of t. Functions, ADTs and dynamic
// values stay boxed.
func (t Type) GoType() string {
	switch t.Kind {
	case Int:
		return "int64"
	case Float:
		return "float64"
	case Bool:
		return "bool"
	case Text, DateTime:
		return "string"
	case Unit:
		return "struct{}"
	case List:
		return "[]" + t.Elem.GoType()
	case Tuple:
		return "[]any"
	case Record:
		return "map[string]any"
	}
	return "rt.Value"
}

// ZeroValue spells the Go zero value of GoType, used on error returns.
func (t Type) ZeroValue() string {
	switch t.Kind {
	case Int, Float:
		return "0"
	case Bool:
		return "false"
	case Text, DateTime:
		return `""`
	case Unit:
		return "struct{}{}"
	}
	return "nil"
}

// Peel splits n curried parameters off a function descriptor.
func (t Type) Peel(n int) ([]Type, Type, bool) {
	params := make([]Type, 0, n)
	for i := 0; i < n; i++ {
		if t.Kind != Func {
			return nil, Type{}, false
		}
		params = append(params, *t.Param)
		t = *t.Result
	}
	return params, t, true
}
