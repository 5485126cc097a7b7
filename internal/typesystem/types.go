// Package typesystem models the checker types attached to kernel definitions.
//
// funxc does not infer types. It receives the checker's per-definition
// annotations as data and only needs to inspect, substitute and print them.
package typesystem

import (
	"fmt"
	"sort"
	"strings"
)

// Type is the interface for all checker types.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVariables() []TVar
}

// TVar is an unresolved type variable (e.g. 'a', 't1').
type TVar struct {
	Name string
}

func (t TVar) String() string { return t.Name }

func (t TVar) Apply(s Subst) Type { return ApplyWithCycleCheck(t, s, map[string]bool{}) }

func (t TVar) FreeTypeVariables() []TVar { return []TVar{t} }

// TCon is a type constant or constructor (e.g. Int, List, Option).
type TCon struct {
	Name           string
	Module         string    // Optional module path for imported types
	UnderlyingType Type      // For type aliases: the aliased type
	TypeParams     *[]string // Parameter names of a parameterized alias
}

func (t TCon) String() string {
	if t.Module != "" {
		return t.Module + "." + t.Name
	}
	return t.Name
}

func (t TCon) Apply(s Subst) Type { return ApplyWithCycleCheck(t, s, map[string]bool{}) }

func (t TCon) FreeTypeVariables() []TVar { return nil }

// TApp is a type application (e.g. List Int).
type TApp struct {
	Constructor Type
	Args        []Type
}

func (t TApp) String() string {
	if len(t.Args) == 0 {
		return t.Constructor.String()
	}
	args := make([]string, len(t.Args))
	for i, arg := range t.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("(%s %s)", t.Constructor.String(), strings.Join(args, " "))
}

func (t TApp) Apply(s Subst) Type { return ApplyWithCycleCheck(t, s, map[string]bool{}) }

func (t TApp) FreeTypeVariables() []TVar {
	vars := t.Constructor.FreeTypeVariables()
	for _, arg := range t.Args {
		vars = append(vars, arg.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TTuple is a tuple type (e.g. (Int, Bool)).
type TTuple struct {
	Elements []Type
}

func (t TTuple) String() string {
	parts := make([]string, len(t.Elements))
	for i, el := range t.Elements {
		parts[i] = el.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t TTuple) Apply(s Subst) Type { return ApplyWithCycleCheck(t, s, map[string]bool{}) }

func (t TTuple) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, el := range t.Elements {
		vars = append(vars, el.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TRecord is a record type (e.g. { x: Int, y: Bool }).
type TRecord struct {
	Fields map[string]Type
	IsOpen bool // Row-polymorphic record that may carry more fields
	Row    Type // Row variable, usually a TVar
}

// FieldNames returns the field names in sorted order.
func (t TRecord) FieldNames() []string {
	keys := make([]string, 0, len(t.Fields))
	for k := range t.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t TRecord) String() string {
	var fields []string
	for _, k := range t.FieldNames() {
		fields = append(fields, fmt.Sprintf("%s: %s", k, t.Fields[k].String()))
	}
	suffix := ""
	if t.Row != nil {
		suffix = " | " + t.Row.String()
	} else if t.IsOpen {
		suffix = ", ..."
	}
	return fmt.Sprintf("{ %s%s }", strings.Join(fields, ", "), suffix)
}

func (t TRecord) Apply(s Subst) Type { return ApplyWithCycleCheck(t, s, map[string]bool{}) }

func (t TRecord) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, k := range t.FieldNames() {
		vars = append(vars, t.Fields[k].FreeTypeVariables()...)
	}
	if t.Row != nil {
		vars = append(vars, t.Row.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TUnion is an untagged union (e.g. Int | Text). Never closed.
type TUnion struct {
	Types []Type
}

func (t TUnion) String() string {
	parts := make([]string, len(t.Types))
	for i, typ := range t.Types {
		parts[i] = typ.String()
	}
	return strings.Join(parts, " | ")
}

func (t TUnion) Apply(s Subst) Type { return ApplyWithCycleCheck(t, s, map[string]bool{}) }

func (t TUnion) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, typ := range t.Types {
		vars = append(vars, typ.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TFunc is a function type (e.g. (Int, Int) -> Bool).
type TFunc struct {
	Params     []Type
	ReturnType Type
}

func (t TFunc) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(params, ", "), t.ReturnType.String())
}

func (t TFunc) Apply(s Subst) Type { return ApplyWithCycleCheck(t, s, map[string]bool{}) }

func (t TFunc) FreeTypeVariables() []TVar {
	var vars []TVar
	for _, p := range t.Params {
		vars = append(vars, p.FreeTypeVariables()...)
	}
	vars = append(vars, t.ReturnType.FreeTypeVariables()...)
	return uniqueTVars(vars)
}

// TForall is a universally quantified type: forall a b. T.
type TForall struct {
	Vars []TVar
	Type Type
}

func (t TForall) String() string {
	vars := make([]string, len(t.Vars))
	for i, v := range t.Vars {
		vars[i] = v.String()
	}
	return fmt.Sprintf("forall %s. %s", strings.Join(vars, " "), t.Type.String())
}

func (t TForall) Apply(s Subst) Type { return ApplyWithCycleCheck(t, s, map[string]bool{}) }

func (t TForall) FreeTypeVariables() []TVar {
	bound := make(map[string]bool, len(t.Vars))
	for _, v := range t.Vars {
		bound[v.Name] = true
	}
	var free []TVar
	for _, v := range t.Type.FreeTypeVariables() {
		if !bound[v.Name] {
			free = append(free, v)
		}
	}
	return free
}

// Subst is a mapping from type variable names to types.
type Subst map[string]Type

// ApplyWithCycleCheck applies s to t, leaving variables on a substitution
// cycle unexpanded.
func ApplyWithCycleCheck(t Type, s Subst, visited map[string]bool) Type {
	if t == nil {
		return nil
	}

	switch typ := t.(type) {
	case TVar:
		if visited[typ.Name] {
			return typ
		}
		replacement, ok := s[typ.Name]
		if !ok {
			return typ
		}
		if tv, ok := replacement.(TVar); ok && tv.Name == typ.Name {
			return typ
		}
		return ApplyWithCycleCheck(replacement, s, withVisited(visited, typ.Name))

	case TCon:
		// Alias parameters are represented as TCons inside the alias body.
		replacement, ok := s[typ.Name]
		if !ok || visited[typ.Name] {
			return typ
		}
		if tc, ok := replacement.(TCon); ok && tc.Name == typ.Name {
			return typ
		}
		return ApplyWithCycleCheck(replacement, s, withVisited(visited, typ.Name))

	case TApp:
		args := make([]Type, len(typ.Args))
		for i, arg := range typ.Args {
			args[i] = ApplyWithCycleCheck(arg, s, visited)
		}
		ctor := ApplyWithCycleCheck(typ.Constructor, s, visited)
		// (Result Text) Int flattens to Result Text Int
		if inner, ok := ctor.(TApp); ok {
			merged := append(append([]Type{}, inner.Args...), args...)
			return TApp{Constructor: inner.Constructor, Args: merged}
		}
		return TApp{Constructor: ctor, Args: args}

	case TFunc:
		params := make([]Type, len(typ.Params))
		for i, p := range typ.Params {
			params[i] = ApplyWithCycleCheck(p, s, visited)
		}
		return TFunc{Params: params, ReturnType: ApplyWithCycleCheck(typ.ReturnType, s, visited)}

	case TTuple:
		elems := make([]Type, len(typ.Elements))
		for i, e := range typ.Elements {
			elems[i] = ApplyWithCycleCheck(e, s, visited)
		}
		return TTuple{Elements: elems}

	case TRecord:
		fields := make(map[string]Type, len(typ.Fields))
		for k, v := range typ.Fields {
			fields[k] = ApplyWithCycleCheck(v, s, visited)
		}
		var row Type
		if typ.Row != nil {
			row = ApplyWithCycleCheck(typ.Row, s, visited)
		}
		return TRecord{Fields: fields, Row: row, IsOpen: typ.IsOpen}

	case TUnion:
		types := make([]Type, len(typ.Types))
		for i, u := range typ.Types {
			types[i] = ApplyWithCycleCheck(u, s, visited)
		}
		return TUnion{Types: types}

	case TForall:
		inner := make(Subst, len(s))
		for k, v := range s {
			inner[k] = v
		}
		for _, v := range typ.Vars {
			delete(inner, v.Name)
		}
		return TForall{Vars: typ.Vars, Type: ApplyWithCycleCheck(typ.Type, inner, visited)}

	default:
		return t.Apply(s)
	}
}

func withVisited(m map[string]bool, name string) map[string]bool {
	out := make(map[string]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[name] = true
	return out
}

// UnwrapUnderlying follows TCon.UnderlyingType until reaching a non-alias type.
func UnwrapUnderlying(t Type) Type {
	for {
		tCon, ok := t.(TCon)
		if !ok || tCon.UnderlyingType == nil {
			return t
		}
		t = tCon.UnderlyingType
	}
}

// ExpandTypeAlias expands an applied parameterized alias:
// Pair Int where Pair a = (a, a) becomes (Int, Int).
// Returns t unchanged when it is not an alias application or lacks arguments.
func ExpandTypeAlias(t Type) Type {
	tApp, ok := t.(TApp)
	if !ok {
		return t
	}
	tCon, ok := tApp.Constructor.(TCon)
	if !ok || tCon.UnderlyingType == nil {
		return t
	}

	numParams := 0
	if tCon.TypeParams != nil {
		numParams = len(*tCon.TypeParams)
	}
	if len(tApp.Args) < numParams {
		return t
	}

	expanded := tCon.UnderlyingType
	if numParams > 0 {
		subst := make(Subst, numParams)
		for i, name := range *tCon.TypeParams {
			subst[name] = tApp.Args[i]
		}
		expanded = expanded.Apply(subst)
	}

	rest := tApp.Args[numParams:]
	if len(rest) == 0 {
		return expanded
	}
	if inner, ok := expanded.(TApp); ok {
		merged := append(append([]Type{}, inner.Args...), rest...)
		return TApp{Constructor: inner.Constructor, Args: merged}
	}
	return TApp{Constructor: expanded, Args: rest}
}

func uniqueTVars(vars []TVar) []TVar {
	var unique []TVar
	seen := map[string]bool{}
	for _, v := range vars {
		if !seen[v.Name] {
			seen[v.Name] = true
			unique = append(unique, v)
		}
	}
	return unique
}
