// Package rt is the runtime support library imported by code generated by funxc.
//
// Every definition compiled by funxc produces or consumes Value, a closed
// tagged union shared by boxed functions, typed siblings and the effect runtime.
// New runtime shapes are added by extending this union only.
package rt

import (
	"sort"
	"strconv"
	"strings"
)

type ValueType string

const (
	UNIT_VAL        = "UNIT"
	BOOL_VAL        = "BOOL"
	INT_VAL         = "INT"
	FLOAT_VAL       = "FLOAT"
	TEXT_VAL        = "TEXT"
	DATETIME_VAL    = "DATETIME"
	BYTES_VAL       = "BYTES"
	LIST_VAL        = "LIST"
	MAP_VAL         = "MAP"
	SET_VAL         = "SET"
	TUPLE_VAL       = "TUPLE"
	RECORD_VAL      = "RECORD"
	CONSTRUCTOR_VAL = "CONSTRUCTOR"
	CLOSURE_VAL     = "CLOSURE"
	BUILTIN_VAL     = "BUILTIN"
	MULTICLAUSE_VAL = "MULTI_CLAUSE"
	EFFECT_VAL      = "EFFECT"
	HANDLE_VAL      = "HANDLE"
)

// Value is the dynamic representation of every runtime value.
type Value interface {
	Type() ValueType
	Inspect() string
}

type Unit struct{}

func (Unit) Type() ValueType { return UNIT_VAL }
func (Unit) Inspect() string { return "Unit" }

type Bool bool

func (Bool) Type() ValueType { return BOOL_VAL }
func (b Bool) Inspect() string {
	if b {
		return "True"
	}
	return "False"
}

type Int int64

func (Int) Type() ValueType   { return INT_VAL }
func (i Int) Inspect() string { return strconv.FormatInt(int64(i), 10) }

type Float float64

func (Float) Type() ValueType   { return FLOAT_VAL }
func (f Float) Inspect() string { return formatFloat(float64(f)) }

type Text string

func (Text) Type() ValueType   { return TEXT_VAL }
func (t Text) Inspect() string { return strconv.Quote(string(t)) }

// DateTime holds an ISO-8601 timestamp literal as written in source.
type DateTime string

func (DateTime) Type() ValueType   { return DATETIME_VAL }
func (d DateTime) Inspect() string { return string(d) }

type Bytes []byte

func (Bytes) Type() ValueType { return BYTES_VAL }
func (b Bytes) Inspect() string {
	var sb strings.Builder
	sb.WriteString("#[")
	for i, c := range b {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(int(c)))
	}
	sb.WriteString("]")
	return sb.String()
}

// List is an immutable ordered sequence. Operations never mutate a List in place.
type List []Value

func (List) Type() ValueType   { return LIST_VAL }
func (l List) Inspect() string { return "[" + inspectAll(l) + "]" }

type Tuple []Value

func (Tuple) Type() ValueType   { return TUPLE_VAL }
func (t Tuple) Inspect() string { return "(" + inspectAll(t) + ")" }

// Record maps field names to values. Records are copied on update.
type Record map[string]Value

func (Record) Type() ValueType { return RECORD_VAL }

func (r Record) Inspect() string {
	keys := r.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + r[k].Inspect()
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// With returns a copy of r with name set to v.
func (r Record) With(name string, v Value) Record {
	out := make(Record, len(r)+1)
	for k, old := range r {
		out[k] = old
	}
	out[name] = v
	return out
}

// Constructor is an algebraic data value: a constructor name and positional payload.
type Constructor struct {
	Name string
	Args []Value
}

func (*Constructor) Type() ValueType { return CONSTRUCTOR_VAL }

func (c *Constructor) Inspect() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		s := a.Inspect()
		if ctor, ok := a.(*Constructor); ok && len(ctor.Args) > 0 {
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return c.Name + " " + strings.Join(parts, " ")
}

// Func is the calling convention of compiled one-argument functions.
type Func func(r *Runtime, arg Value) (Value, error)

// Closure is a compiled lambda together with its captured environment.
type Closure struct {
	Name string
	Fn   Func
}

func (*Closure) Type() ValueType { return CLOSURE_VAL }
func (c *Closure) Inspect() string {
	if c.Name != "" {
		return "<closure " + c.Name + ">"
	}
	return "<closure>"
}

// Builtin is a native function of fixed arity, curried one argument at a time.
type Builtin struct {
	Name  string
	Arity int
	Args  []Value
	Fn    func(r *Runtime, args []Value) (Value, error)
}

func (*Builtin) Type() ValueType   { return BUILTIN_VAL }
func (b *Builtin) Inspect() string { return "<builtin " + b.Name + ">" }

// MultiClause is an overload set: clauses are tried in declaration order.
type MultiClause struct {
	Clauses []Value
}

func (*MultiClause) Type() ValueType { return MULTICLAUSE_VAL }
func (m *MultiClause) Inspect() string {
	return "<multi-clause " + strconv.Itoa(len(m.Clauses)) + ">"
}

// Effect is a suspended computation executed by Runtime.RunEffect.
type Effect struct {
	Run func(r *Runtime) (Value, error)
}

func (*Effect) Type() ValueType { return EFFECT_VAL }
func (*Effect) Inspect() string { return "<effect>" }

// Handle wraps runtime-internal resources: files, channels, sockets.
type Handle struct {
	Kind     string
	Resource any
}

func (*Handle) Type() ValueType   { return HANDLE_VAL }
func (h *Handle) Inspect() string { return "<" + h.Kind + ">" }

func inspectAll(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.Inspect()
	}
	return strings.Join(parts, ", ")
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnI") {
		s += ".0"
	}
	return s
}

// Callable reports whether v can be applied to an argument.
func Callable(v Value) bool {
	switch v.(type) {
	case *Closure, *Builtin, *MultiClause:
		return true
	}
	return false
}
