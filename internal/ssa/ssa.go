// Package ssa is a small static single assignment form for typed
// definitions over 64-bit integers, floats and booleans. Functions are
// built block by block with Builder, cleaned with DCE, checked with Verify
// and then either rendered to Go (Render) or compiled in memory (Compile).
package ssa

import (
	"fmt"
	"strings"
)

// Type is the machine type of a value.
type Type byte

const (
	I64 Type = iota + 1
	F64
	Bool
)

func (t Type) String() string {
	switch t {
	case I64:
		return "i64"
	case F64:
		return "f64"
	case Bool:
		return "bool"
	}
	return "invalid"
}

// GoType is the Go spelling of t.
func (t Type) GoType() string {
	switch t {
	case I64:
		return "int64"
	case F64:
		return "float64"
	case Bool:
		return "bool"
	}
	return "invalid"
}

// Op is the operation computing a value.
type Op byte

const (
	OP_PARAM Op = iota // Function parameter, Aux is its index
	OP_CONST           // Constant, Bits holds the value
	OP_PHI             // Phi, one argument per predecessor in order

	// Arithmetic, operands and result share a type
	OP_ADD
	OP_SUB
	OP_MUL

	// Comparison, result is Bool
	OP_EQ
	OP_NE
	OP_LT
	OP_LE
	OP_GT
	OP_GE
)

var opNames = map[Op]string{
	OP_PARAM: "param",
	OP_CONST: "const",
	OP_PHI:   "phi",
	OP_ADD:   "add",
	OP_SUB:   "sub",
	OP_MUL:   "mul",
	OP_EQ:    "eq",
	OP_NE:    "ne",
	OP_LT:    "lt",
	OP_LE:    "le",
	OP_GT:    "gt",
	OP_GE:    "ge",
}

var opSymbols = map[Op]string{
	OP_ADD: "+",
	OP_SUB: "-",
	OP_MUL: "*",
	OP_EQ:  "==",
	OP_NE:  "!=",
	OP_LT:  "<",
	OP_LE:  "<=",
	OP_GT:  ">",
	OP_GE:  ">=",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op%d", byte(op))
}

// IsCompare reports whether op yields Bool from two operands.
func (op Op) IsCompare() bool {
	return op >= OP_EQ && op <= OP_GE
}

// IsArith reports whether op is an arithmetic operation.
func (op Op) IsArith() bool {
	return op >= OP_ADD && op <= OP_MUL
}

// OpFor maps an infix operator to its operation.
func OpFor(symbol string) (Op, bool) {
	for op, s := range opSymbols {
		if s == symbol {
			return op, true
		}
	}
	return 0, false
}

// Value is the single definition of an SSA name.
type Value struct {
	ID    int
	Op    Op
	Type  Type
	Args  []*Value
	Block *Block

	Bits uint64 // OP_CONST
	Aux  int    // OP_PARAM index
	Name string // OP_PARAM source name
}

func (v *Value) String() string {
	return fmt.Sprintf("v%d", v.ID)
}

// LongString renders the full definition of v.
func (v *Value) LongString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "v%d = %s %s", v.ID, v.Op, v.Type)
	switch v.Op {
	case OP_CONST:
		fmt.Fprintf(&b, " %s", formatBits(v.Type, v.Bits))
	case OP_PARAM:
		fmt.Fprintf(&b, " %d %s", v.Aux, v.Name)
	}
	for _, a := range v.Args {
		fmt.Fprintf(&b, " %s", a)
	}
	return b.String()
}

// Kind is the kind of block terminator.
type Kind byte

const (
	KIND_INVALID Kind = iota
	KIND_RETURN       // Control = returned value
	KIND_JUMP         // Succs[0]
	KIND_BRANCH       // Control = condition, Succs = then, else
)

// Block is a basic block. Phis come first in Values.
type Block struct {
	ID      int
	Values  []*Value
	Preds   []*Block
	Succs   []*Block
	Kind    Kind
	Control *Value
	Sealed  bool
}

func (b *Block) String() string {
	return fmt.Sprintf("b%d", b.ID)
}

// Func is a function in SSA form. Blocks[0] is the entry block.
type Func struct {
	Name   string
	Params []*Value
	Result Type
	Blocks []*Block
}

// Entry returns the entry block.
func (f *Func) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NumValues counts the values of all blocks.
func (f *Func) NumValues() int {
	n := 0
	for _, b := range f.Blocks {
		n += len(b.Values)
	}
	return n
}

// String renders f in a stable textual form.
func (f *Func) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", p.Name, p.Type)
	}
	fmt.Fprintf(&sb, ") %s\n", f.Result)
	for _, b := range f.Blocks {
		fmt.Fprintf(&sb, "%s:", b)
		if len(b.Preds) > 0 {
			sb.WriteString(" <-")
			for _, p := range b.Preds {
				fmt.Fprintf(&sb, " %s", p)
			}
		}
		sb.WriteString("\n")
		for _, v := range b.Values {
			fmt.Fprintf(&sb, "  %s\n", v.LongString())
		}
		switch b.Kind {
		case KIND_RETURN:
			fmt.Fprintf(&sb, "  return %s\n", b.Control)
		case KIND_JUMP:
			fmt.Fprintf(&sb, "  jump %s\n", b.Succs[0])
		case KIND_BRANCH:
			fmt.Fprintf(&sb, "  branch %s %s %s\n", b.Control, b.Succs[0], b.Succs[1])
		default:
			sb.WriteString("  <no terminator>\n")
		}
	}
	return sb.String()
}
