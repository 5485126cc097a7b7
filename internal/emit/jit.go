package emit

import (
	"fmt"
	"math"
	"strconv"

	"github.com/funvibe/funxc/internal/backend"
	"github.com/funvibe/funxc/internal/cgtype"
	"github.com/funvibe/funxc/internal/config"
	"github.com/funvibe/funxc/internal/kernel"
	"github.com/funvibe/funxc/internal/mir"
	"github.com/funvibe/funxc/internal/object"
	"github.com/funvibe/funxc/internal/ssa"
)

// lowerSSA lowers definition d to a standalone SSA function. Globals and
// opaque subexpressions are unavailable outside generated Go code.
func (m *module) lowerSSA(d kernel.Def, t cgtype.Type) (*ssa.Func, *backend.Context, []string, bool) {
	if !t.IsClosed() {
		return nil, nil, nil, false
	}
	ctx, body, ok := m.typedContext(d, t)
	if !ok {
		return nil, nil, nil, false
	}
	fn, ok := mir.Lower(body, ctx.Result, ctx.MIR(nil))
	if !ok {
		return nil, nil, nil, false
	}
	f, keys, ok := backend.LowerSSA(fn, ctx.Def+config.SSASuffix, ctx)
	if !ok {
		return nil, nil, nil, false
	}
	return f, ctx, keys, true
}

// EmitObject writes every definition that lowers to standalone SSA into an
// object buffer and returns it with the names of the definitions included.
func EmitObject(m *kernel.Module, opts Options) ([]byte, []string, error) {
	if len(m.Defs) == 0 {
		return nil, nil, codegenErrorf("no definitions to compile")
	}
	budget := opts.DepthBudget
	if budget <= 0 {
		budget = config.CgTypeDepthBudget
	}
	mod := newModule(m, opts.Kind == config.KindLibrary)
	var funcs []*ssa.Func
	var names []string
	for _, g := range kernel.Groups(m.Defs) {
		d := g.Clauses[0]
		if len(g.Clauses) != 1 || d.Type == nil {
			continue
		}
		f, _, _, ok := mod.lowerSSA(d, cgtype.LowerWithBudget(d.Type, m.Registry, budget))
		if !ok {
			continue
		}
		funcs = append(funcs, f)
		names = append(names, g.Name)
	}
	return object.Encode(m.Name, funcs), names, nil
}

// Compiled is a definition compiled in memory.
type Compiled struct {
	Name   string
	Params []backend.Param
	Result cgtype.Type

	code *ssa.Compiled
	// order[i] is the index into Params of the i-th SSA parameter.
	order []int
}

// JIT compiles the definition name of m in memory.
func JIT(m *kernel.Module, name string) (*Compiled, error) {
	var def *kernel.Def
	for i := range m.Defs {
		if m.Defs[i].Name != name {
			continue
		}
		if def != nil {
			return nil, fmt.Errorf("%s has several clauses", name)
		}
		def = &m.Defs[i]
	}
	if def == nil {
		return nil, fmt.Errorf("no definition named %s", name)
	}
	if def.Type == nil {
		return nil, fmt.Errorf("%s has no type", name)
	}

	mod := newModule(m, false)
	f, ctx, keys, ok := mod.lowerSSA(*def, cgtype.Lower(def.Type, m.Registry))
	if !ok {
		return nil, fmt.Errorf("%s cannot be compiled natively", name)
	}
	code, err := ssa.Compile(f)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}
	c := &Compiled{Name: name, Params: ctx.Params, Result: ctx.Result, code: code}
	for _, key := range keys {
		for i, p := range ctx.Params {
			if p.Name == key {
				c.order = append(c.order, i)
				break
			}
		}
	}
	return c, nil
}

// Call runs the compiled definition. args are the bit patterns of the
// parameters in declaration order.
func (c *Compiled) Call(args ...uint64) (uint64, error) {
	if len(args) != len(c.Params) {
		return 0, fmt.Errorf("%s expects %d arguments, got %d", c.Name, len(c.Params), len(args))
	}
	in := make([]uint64, len(c.order))
	for i, j := range c.order {
		in[i] = args[j]
	}
	return c.code.Call(in...), nil
}

// ParseArg parses text as a value of primitive type t and returns its bits.
func ParseArg(t cgtype.Type, text string) (uint64, error) {
	switch t.Kind {
	case cgtype.Int:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid Int %q", text)
		}
		return mir.IntBits(n), nil
	case cgtype.Float:
		x, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid Float %q", text)
		}
		return mir.FloatBits(x), nil
	case cgtype.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return 0, fmt.Errorf("invalid Bool %q", text)
		}
		return mir.BoolBits(b), nil
	}
	return 0, fmt.Errorf("parameters of type %s cannot be passed in", t)
}

// FormatResult renders bits as a value of primitive type t.
func FormatResult(t cgtype.Type, bits uint64) string {
	switch t.Kind {
	case cgtype.Int:
		return strconv.FormatInt(int64(bits), 10)
	case cgtype.Float:
		return strconv.FormatFloat(math.Float64frombits(bits), 'g', -1, 64)
	case cgtype.Bool:
		return strconv.FormatBool(bits != 0)
	}
	return fmt.Sprintf("%#x", bits)
}
