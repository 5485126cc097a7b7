package ssa

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Render emits f as a Go function named f.Name. Parameters keep their
// positions; every other value is declared up front and assigned once.
// Blocks other than the entry get labels and are reached with goto.
func Render(f *Func) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", ParamName(p), p.Type.GoType())
	}
	fmt.Fprintf(&sb, ") %s {\n", f.Result.GoType())

	byType := map[Type][]string{}
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v.Op != OP_PARAM {
				byType[v.Type] = append(byType[v.Type], v.String())
			}
		}
	}
	for _, t := range []Type{I64, F64, Bool} {
		if names := byType[t]; len(names) > 0 {
			fmt.Fprintf(&sb, "\tvar %s %s\n", strings.Join(names, ", "), t.GoType())
		}
	}

	for _, b := range f.Blocks {
		if b != f.Entry() {
			fmt.Fprintf(&sb, "%s:\n", label(b))
		}
		for _, v := range b.Values {
			switch v.Op {
			case OP_PARAM, OP_PHI:
				// Phis are assigned on the incoming edges.
			case OP_CONST:
				fmt.Fprintf(&sb, "\t%s = %s\n", v, formatBits(v.Type, v.Bits))
			default:
				fmt.Fprintf(&sb, "\t%s = %s %s %s\n", v, operand(v.Args[0]), opSymbols[v.Op], operand(v.Args[1]))
			}
		}
		switch b.Kind {
		case KIND_RETURN:
			fmt.Fprintf(&sb, "\treturn %s\n", operand(b.Control))
		case KIND_JUMP:
			writeEdge(&sb, "\t", b, b.Succs[0])
		case KIND_BRANCH:
			fmt.Fprintf(&sb, "\tif %s {\n", operand(b.Control))
			writeEdge(&sb, "\t\t", b, b.Succs[0])
			sb.WriteString("\t}\n")
			writeEdge(&sb, "\t", b, b.Succs[1])
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// writeEdge assigns the phis of to for the edge from -> to, then jumps.
// The graph is acyclic, so no phi argument is a phi of the same target and
// the copies need no temporaries.
func writeEdge(sb *strings.Builder, indent string, from, to *Block) {
	k := predIndex(to, from)
	for _, v := range to.Values {
		if v.Op != OP_PHI {
			break
		}
		fmt.Fprintf(sb, "%s%s = %s\n", indent, v, operand(v.Args[k]))
	}
	fmt.Fprintf(sb, "%sgoto %s\n", indent, label(to))
}

func predIndex(b, pred *Block) int {
	for i, p := range b.Preds {
		if p == pred {
			return i
		}
	}
	return -1
}

func label(b *Block) string {
	return fmt.Sprintf("b%d", b.ID)
}

func operand(v *Value) string {
	if v.Op == OP_PARAM {
		return ParamName(v)
	}
	return v.String()
}

// ParamName is the Go identifier used for a parameter.
func ParamName(p *Value) string {
	return fmt.Sprintf("p%d_%s", p.Aux, Sanitize(p.Name))
}

// Sanitize maps a source name to the characters allowed in Go identifiers.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '\'':
			b.WriteString("_q")
		default:
			fmt.Fprintf(&b, "_%x", r)
		}
	}
	return b.String()
}

// formatBits renders a constant as a Go literal of type t.
func formatBits(t Type, bits uint64) string {
	switch t {
	case I64:
		return strconv.FormatInt(int64(bits), 10)
	case F64:
		f := math.Float64frombits(bits)
		if f == 0 && math.Signbit(f) {
			return "math.Copysign(0, -1)"
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case Bool:
		return strconv.FormatBool(bits != 0)
	}
	return "0"
}
