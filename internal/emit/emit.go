// Package emit is the native code generator. It turns a kernel module into
// Go source that links against pkg/rt: every definition gets a boxed
// function, and definitions with a closed type may additionally get an
// unboxed _typed sibling produced by one of the typed backends.
package emit

import (
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/funvibe/funxc/internal/backend"
	"github.com/funvibe/funxc/internal/cgtype"
	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/kernel"
	"github.com/funvibe/funxc/internal/reuse"
)

// Options selects the output shape.
type Options struct {
	// Kind is config.KindProgram or config.KindLibrary.
	Kind string

	// Package names a generated library. Programs always use package main.
	Package string

	// Backends lists the typed backends to try, most preferred first.
	// Empty disables typed siblings.
	Backends []string

	// DepthBudget bounds type lowering; zero means the default.
	DepthBudget int
}

// OptionsFrom derives emission options from a loaded configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Kind:        cfg.Kind,
		Package:     cfg.Package,
		Backends:    cfg.BackendOrder(),
		DepthBudget: cfg.DepthBudget,
	}
}

// GeneratedFile is one generated Go source file.
type GeneratedFile struct {
	Filename string
	Content  string
}

// Output is the result of emitting a module.
type Output struct {
	File GeneratedFile

	// Plan is the advisory reuse plan, also rendered into File.
	Plan reuse.Plan

	// Typed maps each definition that got a _typed sibling to the backend
	// that produced it.
	Typed map[string]string

	// Types holds the layout descriptor of every definition with a
	// checker type.
	Types map[string]cgtype.Type
}

// module is the emission state shared by all definitions of a module.
type module struct {
	names   namer
	reg     *kernel.Registry
	goNames map[string]string // Go identifier -> definition
	decls   []string
	npat    int
}

func newModule(m *kernel.Module, library bool) *module {
	mod := &module{
		names:   namer{library: library},
		reg:     m.Registry,
		goNames: make(map[string]string, len(m.Defs)),
	}
	for _, g := range kernel.Groups(m.Defs) {
		for _, n := range mod.boxedNames(g) {
			if _, ok := mod.goNames[n]; !ok {
				mod.goNames[n] = g.Name
			}
		}
	}
	return mod
}

func (m *module) isDefined(name string) bool {
	return m.goNames[m.names.def(name)] == name
}

// boxedNames lists the Go functions emitted for the boxed form of g.
func (m *module) boxedNames(g kernel.Group) []string {
	names := []string{m.names.def(g.Name)}
	if len(g.Clauses) > 1 {
		for i := range g.Clauses {
			names = append(names, m.names.clause(g.Name, i))
		}
	}
	return names
}

// checkNames fails when two definitions map to the same Go identifier.
func (m *module) checkNames(groups []kernel.Group) error {
	for _, g := range groups {
		for _, n := range m.boxedNames(g) {
			if prev := m.goNames[n]; prev != g.Name {
				return codegenErrorf("definitions %s and %s both compile to %s", prev, g.Name, n)
			}
		}
	}
	return nil
}

// mark and rollback undo package-level declarations of a failed attempt.
func (m *module) mark() (int, int) { return len(m.decls), m.npat }

func (m *module) rollback(decls, npat int) {
	m.decls = m.decls[:decls]
	m.npat = npat
}

// EmitSource emits m and returns the formatted Go source.
func EmitSource(m *kernel.Module, opts Options) (string, error) {
	out, err := Emit(m, opts)
	if err != nil {
		return "", err
	}
	return out.File.Content, nil
}

// Emit compiles a kernel module to Go source.
func Emit(m *kernel.Module, opts Options) (*Output, error) {
	if len(m.Defs) == 0 {
		return nil, codegenErrorf("no definitions to compile")
	}
	library := opts.Kind == config.KindLibrary
	if !library {
		mains := 0
		for _, d := range m.Defs {
			if d.Name == config.EntryPointName {
				mains++
			}
		}
		switch {
		case mains == 0:
			return nil, codegenErrorf("native backend expects a main definition")
		case mains > 1:
			return nil, codegenErrorf("native backend expects exactly one main definition")
		}
	}
	budget := opts.DepthBudget
	if budget <= 0 {
		budget = config.CgTypeDepthBudget
	}

	mod := newModule(m, library)
	types := make(map[string]cgtype.Type)
	for _, d := range m.Defs {
		if d.Type != nil {
			types[d.Name] = cgtype.LowerWithBudget(d.Type, m.Registry, budget)
		}
	}
	plan := reuse.Analyze(m.Defs, types)
	groups := kernel.Groups(m.Defs)
	if err := mod.checkNames(groups); err != nil {
		return nil, err
	}

	funcs := make(map[string][]string, len(groups))
	for _, g := range groups {
		code, err := mod.group(g)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g.Name, err)
		}
		funcs[g.Name] = code
	}

	siblings := mod.siblings(groups, types, backend.Ordered(opts.Backends))
	typed := make(map[string]string, len(siblings))
	for name, s := range siblings {
		funcs[name] = append(funcs[name], s.code...)
		typed[name] = s.backend
	}

	var ordered []string
	for _, g := range groups {
		ordered = append(ordered, funcs[g.Name]...)
	}

	pkg := "main"
	if library {
		pkg = opts.Package
		if pkg == "" {
			pkg = config.DefaultLibraryPackage
		}
	}
	src, err := render(sourceData{
		Package: pkg,
		Runtime: config.RuntimeImportPath,
		Plan:    strings.TrimRight(plan.Comment(), "\n"),
		Decls:   mod.decls,
		Funcs:   ordered,
		Entry:   !library,
		Main:    mod.names.def(config.EntryPointName),
	})
	if err != nil {
		return nil, err
	}

	name := m.Name
	if name == "" {
		name = pkg
	}
	return &Output{
		File:  GeneratedFile{Filename: FileName(name), Content: src},
		Plan:  plan,
		Typed: typed,
		Types: types,
	}, nil
}

// FileName returns the name of the Go file generated for module.
func FileName(module string) string {
	return strings.ToLower(strings.Trim(identifierOf(module), "_")) + ".go"
}

func identifierOf(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "module"
	}
	return b.String()
}

// group emits the boxed functions of one clause group.
func (m *module) group(g kernel.Group) ([]string, error) {
	def := m.names.def(g.Name)
	if len(g.Clauses) == 1 {
		code, err := m.boxed(def, g.Clauses[0].Expr, g.Clauses[0].Inline)
		if err != nil {
			return nil, err
		}
		return []string{code}, nil
	}

	var out []string
	var b strings.Builder
	b.WriteString(inlineDirective(g.Inline()) + "func " + def + "(r *rt.Runtime) (rt.Value, error) {\n")
	clauses := make([]string, len(g.Clauses))
	for i, c := range g.Clauses {
		name := m.names.clause(g.Name, i)
		code, err := m.boxed(name, c.Expr, c.Inline)
		if err != nil {
			return nil, fmt.Errorf("clause %d: %w", i, err)
		}
		out = append(out, code)
		clauses[i] = fmt.Sprintf("c%d", i)
		b.WriteString(clauses[i] + ", err := " + name + "(r)\n")
		b.WriteString("if err != nil {\nreturn nil, err\n}\n")
	}
	b.WriteString("return &rt.MultiClause{Clauses: []rt.Value{" + strings.Join(clauses, ", ") + "}}, nil\n}")
	return append(out, b.String()), nil
}

// boxed emits the uniformly boxed function name computing e.
func (m *module) boxed(name string, e kernel.Expr, inline bool) (string, error) {
	f := newFn(m, newScope())
	v, err := f.expr(e)
	if err != nil {
		return "", err
	}
	return inlineDirective(inline) + "func " + name + "(r *rt.Runtime) (rt.Value, error) {\n" + f.b.String() + "return " + v + ", nil\n}", nil
}

// inlineDirective marks a function whose definition asked to be inlined.
func inlineDirective(on bool) string {
	if !on {
		return ""
	}
	return "//funxc:inline\n"
}

type sourceData struct {
	Package string
	Runtime string
	Plan    string
	Decls   []string
	Funcs   []string
	Entry   bool
	Main    string
}

const sourceTemplate = `// Code generated by funxc. DO NOT EDIT.

package {{.Package}}

import (
	"fmt"
	"math"
	"os"

	"{{.Runtime}}"
)

{{.Plan}}
{{- range .Decls}}

{{.}}
{{- end}}
{{- range .Funcs}}

{{.}}
{{- end}}
{{- if .Entry}}

func main() {
	r := rt.New(os.Stdout)
	v, err := {{.Main}}(r)
	if err == nil {
		_, err = r.RunEffect(v)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
{{- end}}
`

func render(data sourceData) (string, error) {
	tmpl, err := template.New("source").Parse(sourceTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	src, err := imports.Process("generated.go", []byte(buf.String()), nil)
	if err != nil {
		return "", fmt.Errorf("formatting generated code: %w", err)
	}
	return string(src), nil
}
