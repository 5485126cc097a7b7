package emit

import (
	"math"
	"strconv"
	"strings"

	"github.com/funvibe/funxc/internal/backend"
	"github.com/funvibe/funxc/internal/kernel"
	"github.com/funvibe/funxc/internal/mir"
)

// matcher hoists the compiled form of p to a package-level variable and
// returns its name.
func (m *module) matcher(p kernel.Pattern) (string, error) {
	src, err := m.pattern(p)
	if err != nil {
		return "", err
	}
	name := "pat_" + strconv.Itoa(m.npat)
	m.npat++
	m.decls = append(m.decls, "var "+name+" = rt.Compile("+src+")")
	return name, nil
}

// pattern renders p as a Go expression of type rt.Pattern.
func (m *module) pattern(p kernel.Pattern) (string, error) {
	switch p := p.(type) {
	case *kernel.PatWildcard:
		return "rt.PWild()", nil
	case *kernel.PatVar:
		return "rt.PVar(" + strconv.Quote(p.Name) + ")", nil
	case *kernel.PatAt:
		inner, err := m.pattern(p.Pattern)
		if err != nil {
			return "", err
		}
		return "rt.PAt(" + strconv.Quote(p.Name) + ", " + inner + ")", nil
	case *kernel.PatNumber:
		lit, err := number(p.Text)
		if err != nil {
			return "", err
		}
		if _, ok := lit.(mir.IntLit); ok {
			return "rt.PInt(" + backend.Literal(lit) + ")", nil
		}
		return "rt.PFloat(" + backend.Literal(lit) + ")", nil
	case *kernel.PatText:
		return "rt.PText(" + strconv.Quote(p.Value) + ")", nil
	case *kernel.PatBool:
		return "rt.PBool(" + strconv.FormatBool(p.Value) + ")", nil
	case *kernel.PatDateTime:
		return "rt.PDateTime(" + strconv.Quote(p.Value) + ")", nil
	case *kernel.PatSigil:
		return "rt.PSigil(" + quoteAll([]string{p.Tag, p.Body, p.Flags}) + ")", nil
	case *kernel.PatCtor:
		arity, ok := m.reg.ConstructorArity(p.Name)
		if !ok {
			return "", codegenErrorf("unknown constructor %s in pattern", p.Name)
		}
		if arity != len(p.Args) {
			return "", codegenErrorf("constructor %s expects %d arguments, pattern has %d", p.Name, arity, len(p.Args))
		}
		args, err := m.patterns(p.Args)
		if err != nil {
			return "", err
		}
		if len(args) == 0 {
			return "rt.PCtor(" + strconv.Quote(p.Name) + ")", nil
		}
		return "rt.PCtor(" + strconv.Quote(p.Name) + ", " + strings.Join(args, ", ") + ")", nil
	case *kernel.PatTuple:
		items, err := m.patterns(p.Items)
		if err != nil {
			return "", err
		}
		return "rt.PTuple(" + strings.Join(items, ", ") + ")", nil
	case *kernel.PatList:
		items, err := m.patterns(p.Items)
		if err != nil {
			return "", err
		}
		rest := "nil"
		if p.Rest != nil {
			r, err := m.pattern(p.Rest)
			if err != nil {
				return "", err
			}
			rest = "rt.Rest(" + r + ")"
		}
		return "rt.PList([]rt.Pattern{" + strings.Join(items, ", ") + "}, " + rest + ")", nil
	case *kernel.PatRecord:
		fields := make([]string, len(p.Fields))
		for i, f := range p.Fields {
			if len(f.Path) == 0 {
				return "", codegenErrorf("record pattern field %d has an empty path", i)
			}
			inner, err := m.pattern(f.Pattern)
			if err != nil {
				return "", err
			}
			fields[i] = "rt.PField([]string{" + quoteAll(f.Path) + "}, " + inner + ")"
		}
		return "rt.PRecord(" + strings.Join(fields, ", ") + ")", nil
	case nil:
		return "", codegenErrorf("missing pattern")
	}
	return "", codegenErrorf("unsupported pattern %T", p)
}

func (m *module) patterns(ps []kernel.Pattern) ([]string, error) {
	out := make([]string, len(ps))
	for i, p := range ps {
		s, err := m.pattern(p)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// number parses a numeric literal in source form: base-10 integer text is
// an Int, anything else that reads as a finite float is a Float.
func number(text string) (mir.Expr, error) {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return mir.IntLit{Value: n}, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, codegenErrorf("invalid number literal %q", text)
	}
	return mir.FloatLit{Value: f}, nil
}
