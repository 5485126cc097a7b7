package cgtype

import (
	"strconv"
	"strings"
)

// EmitBox returns Go source converting expr, an unboxed value of t, into an
// rt.Value expression.
func EmitBox(t Type, expr string) string {
	switch t.Kind {
	case Int, Float, Bool, Text, Unit, DateTime:
		return boxerName(t) + "(" + expr + ")"
	case List:
		return "rt.BoxList(" + expr + ", " + boxFunc(*t.Elem) + ")"
	case Tuple:
		var b strings.Builder
		b.WriteString("rt.BoxTuple(" + expr)
		for _, e := range t.Elems {
			b.WriteString(", func(x any) rt.Value { return " + EmitBox(e, "x.("+e.GoType()+")") + " }")
		}
		b.WriteString(")")
		return b.String()
	case Record:
		var b strings.Builder
		b.WriteString("rt.BoxRecord(" + expr + ", map[string]func(any) rt.Value{")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(f.Name) + ": func(x any) rt.Value { return " + EmitBox(f.Type, "x.("+f.Type.GoType()+")") + " }")
		}
		b.WriteString("})")
		return b.String()
	}
	return expr
}

// EmitUnbox returns Go source of type (GoType, error) converting expr, an
// rt.Value, into the unboxed representation of t.
func EmitUnbox(t Type, expr string) string {
	switch t.Kind {
	case Int, Float, Bool, Text, Unit, DateTime:
		return unboxerName(t) + "(" + expr + ")"
	case List:
		return "rt.UnboxList(" + expr + ", " + unboxFunc(*t.Elem) + ")"
	case Tuple:
		var b strings.Builder
		b.WriteString("rt.UnboxTuple(" + expr)
		for _, e := range t.Elems {
			b.WriteString(", func(v rt.Value) (any, error) { return " + EmitUnbox(e, "v") + " }")
		}
		b.WriteString(")")
		return b.String()
	case Record:
		var b strings.Builder
		b.WriteString("rt.UnboxRecord(" + expr + ", map[string]func(rt.Value) (any, error){")
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(f.Name) + ": func(v rt.Value) (any, error) { return " + EmitUnbox(f.Type, "v") + " }")
		}
		b.WriteString("})")
		return b.String()
	}
	return "rt.Identity(" + expr + ")"
}

func boxFunc(t Type) string {
	switch t.Kind {
	case Int, Float, Bool, Text, Unit, DateTime:
		return boxerName(t)
	}
	return "func(x " + t.GoType() + ") rt.Value { return " + EmitBox(t, "x") + " }"
}

func unboxFunc(t Type) string {
	switch t.Kind {
	case Int, Float, Bool, Text, Unit, DateTime:
		return unboxerName(t)
	}
	return "func(v rt.Value) (" + t.GoType() + ", error) { return " + EmitUnbox(t, "v") + " }"
}

func boxerName(t Type) string   { return "rt.Box" + kindNames[t.Kind] }
func unboxerName(t Type) string { return "rt.Unbox" + kindNames[t.Kind] }
