package kernel

import (
	"fmt"
	"sort"

	"github.com/funvibe/funxc/internal/typesystem"
)

// Def is one top-level definition. Type is the checker type, or nil when
// the definition is only usable dynamically. Definitions sharing a name
// form a clause group.
type Def struct {
	Name   string
	Expr   Expr
	Type   typesystem.Type
	Inline bool
}

// Module is a compilation unit.
type Module struct {
	Name     string
	Defs     []Def
	Registry *Registry
}

// Constructor is an ADT constructor with its payload types.
type Constructor struct {
	Name    string
	Payload []typesystem.Type
}

// ADT is a registered algebraic data type.
type ADT struct {
	Name         string
	Constructors []Constructor
}

// Registry maps ADT and alias names to their declarations. It is built once
// before emission and only read afterwards.
type Registry struct {
	adts    map[string]*ADT
	ctors   map[string]ctorRef
	aliases map[string]typesystem.Type
}

type ctorRef struct {
	adt   string
	arity int
}

func NewRegistry() *Registry {
	return &Registry{
		adts:    make(map[string]*ADT),
		ctors:   make(map[string]ctorRef),
		aliases: make(map[string]typesystem.Type),
	}
}

// AddADT registers an ADT. Type and constructor names must be unique.
func (r *Registry) AddADT(adt ADT) error {
	if _, exists := r.adts[adt.Name]; exists {
		return fmt.Errorf("duplicate type %s", adt.Name)
	}
	if _, exists := r.aliases[adt.Name]; exists {
		return fmt.Errorf("type %s is already declared as an alias", adt.Name)
	}
	for _, c := range adt.Constructors {
		if prev, exists := r.ctors[c.Name]; exists {
			return fmt.Errorf("constructor %s of %s is already declared by %s", c.Name, adt.Name, prev.adt)
		}
	}
	for _, c := range adt.Constructors {
		r.ctors[c.Name] = ctorRef{adt: adt.Name, arity: len(c.Payload)}
	}
	a := adt
	r.adts[adt.Name] = &a
	return nil
}

// AddAlias registers a type alias.
func (r *Registry) AddAlias(name string, underlying typesystem.Type) error {
	if _, exists := r.aliases[name]; exists {
		return fmt.Errorf("duplicate alias %s", name)
	}
	if _, exists := r.adts[name]; exists {
		return fmt.Errorf("alias %s is already declared as a type", name)
	}
	r.aliases[name] = underlying
	return nil
}

// ADT looks up a registered type by name.
func (r *Registry) ADT(name string) (*ADT, bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.adts[name]
	return a, ok
}

// Alias returns the underlying type of an alias.
func (r *Registry) Alias(name string) (typesystem.Type, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.aliases[name]
	return t, ok
}

// ConstructorArity returns the payload arity of a constructor.
func (r *Registry) ConstructorArity(name string) (int, bool) {
	if r == nil {
		return 0, false
	}
	c, ok := r.ctors[name]
	return c.arity, ok
}

// TypeNames returns the registered ADT names, sorted.
func (r *Registry) TypeNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.adts))
	for name := range r.adts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Group is a clause group: every definition sharing one name, in
// declaration order.
type Group struct {
	Name    string
	Clauses []Def
}

// Groups partitions defs by name, preserving first-appearance order of
// names and declaration order within each group.
// Inline reports whether any clause of g asks to be inlined.
func (g Group) Inline() bool {
	for _, c := range g.Clauses {
		if c.Inline {
			return true
		}
	}
	return false
}

func Groups(defs []Def) []Group {
	index := make(map[string]int)
	var out []Group
	for _, d := range defs {
		i, ok := index[d.Name]
		if !ok {
			i = len(out)
			index[d.Name] = i
			out = append(out, Group{Name: d.Name})
		}
		out[i].Clauses = append(out[i].Clauses, d)
	}
	return out
}
