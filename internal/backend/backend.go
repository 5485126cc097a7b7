// Package backend provides the typed code generators.
// This allows switching between the SSA and the structural generator for
// the typed sibling of a definition.
package backend

import (
	"github.com/funvibe/funxc/internal/cgtype"
	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/kernel"
	"github.com/funvibe/funxc/internal/mir"
)

// Backend is the interface for typed code generators
type Backend interface {
	// Generate renders the typed sibling of one definition. It reports
	// false when the function has a shape this backend cannot handle.
	Generate(fn *mir.Function, ctx *Context) (*Output, bool)

	// Name returns the backend name used in configuration
	Name() string
}

// Param is one parameter of a typed sibling.
type Param struct {
	Name   string // source name
	GoName string
	Type   cgtype.Type
}

// Global describes a definition that already has a typed sibling.
type Global struct {
	Type   cgtype.Type
	Typed  string // Go name of the typed sibling
	Helper string // Go name of its SSA helper, empty for structural siblings
}

// Context is everything a backend may know about the definition it renders.
type Context struct {
	Def     string // Go name of the boxed function
	Params  []Param
	Result  cgtype.Type
	Globals map[string]Global
}

// MIR builds the lowering context for the definition. opaque may be nil.
func (c *Context) MIR(opaque func(kernel.Expr, cgtype.Type) (string, bool)) *mir.Context {
	m := &mir.Context{
		Locals:  make(map[string]cgtype.Type, len(c.Params)),
		Globals: make(map[string]cgtype.Type),
		Opaque:  opaque,
	}
	for _, p := range c.Params {
		m.Locals[p.Name] = p.Type
	}
	for name, g := range c.Globals {
		// Only nullary siblings can be read as values.
		if g.Type.IsPrimitive() {
			m.Globals[name] = g.Type
		}
	}
	return m
}

func (c *Context) param(name string) (Param, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Output is a rendered typed sibling.
type Output struct {
	Backend string
	Body    string   // statements of a function returning (T, error)
	Decls   []string // extra top-level declarations
	Helper  string   // Go name of the SSA helper, if any
}

// New returns the backend registered under name.
func New(name string) (Backend, bool) {
	switch name {
	case config.BackendSSA:
		return SSA{}, true
	case config.BackendStructural:
		return Structural{}, true
	}
	return nil, false
}

// Ordered returns the backends named by order, skipping unknown names.
func Ordered(order []string) []Backend {
	var out []Backend
	for _, name := range order {
		if b, ok := New(name); ok {
			out = append(out, b)
		}
	}
	return out
}

// checkedCall renders a call of a typed sibling that propagates its error.
func checkedCall(tmp, call, zero string) string {
	return tmp + ", err := " + call + "\n" +
		"if err != nil {\n" +
		"return " + zero + ", err\n" +
		"}\n"
}
