// Package mir is the typed control-flow form shared by the typed backends.
// A Function is an entry block plus blocks terminated by Return or a
// two-way Branch; only Int, Float and Bool values are represented.
package mir

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/funvibe/funxc/internal/cgtype"
)

// Expr is a typed control-flow expression.
type Expr interface {
	Type() cgtype.Type
	String() string
}

type IntLit struct{ Value int64 }
type FloatLit struct{ Value float64 }
type BoolLit struct{ Value bool }

// Local reads a parameter of the definition being compiled.
type Local struct {
	Name string
	Ty   cgtype.Type
}

// Global reads another definition through its typed sibling.
type Global struct {
	Name string
	Ty   cgtype.Type
}

// Binary is an infix operation. Operands share one type; comparisons yield
// Bool.
type Binary struct {
	Op          string
	Left, Right Expr
	Ty          cgtype.Type
}

// Opaque is pre-rendered Go code of type (GoType, error) that evaluates a
// subexpression the control-flow form cannot represent. Only the
// structural backend accepts it.
type Opaque struct {
	Code string
	Ty   cgtype.Type
}

func (IntLit) Type() cgtype.Type     { return cgtype.TInt }
func (FloatLit) Type() cgtype.Type   { return cgtype.TFloat }
func (BoolLit) Type() cgtype.Type    { return cgtype.TBool }
func (e *Local) Type() cgtype.Type   { return e.Ty }
func (e *Global) Type() cgtype.Type  { return e.Ty }
func (e *Binary) Type() cgtype.Type  { return e.Ty }
func (e *Opaque) Type() cgtype.Type  { return e.Ty }
func (e IntLit) String() string      { return strconv.FormatInt(e.Value, 10) }
func (e FloatLit) String() string    { return strconv.FormatFloat(e.Value, 'g', -1, 64) + "f" }
func (e BoolLit) String() string     { return strconv.FormatBool(e.Value) }
func (e *Local) String() string      { return "%" + e.Name }
func (e *Global) String() string     { return "@" + e.Name }
func (e *Opaque) String() string     { return "opaque<" + e.Ty.String() + ">" }
func (e *Binary) String() string {
	return "(" + e.Left.String() + " " + e.Op + " " + e.Right.String() + ")"
}

// Terminator ends a block.
type Terminator interface {
	terminator()
}

type Return struct {
	Value Expr
}

type Branch struct {
	Cond       Expr
	Then, Else int
}

func (*Return) terminator() {}
func (*Branch) terminator() {}

type Block struct {
	ID   int
	Term Terminator
}

// Function is a lowered definition body.
type Function struct {
	Entry  int
	Blocks map[int]*Block
	Result cgtype.Type
}

// BlockIDs returns the block ids in ascending order.
func (f *Function) BlockIDs() []int {
	ids := make([]int, 0, len(f.Blocks))
	for id := range f.Blocks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Walk calls fn for every expression of every block, operands first.
func (f *Function) Walk(fn func(Expr)) {
	var walk func(Expr)
	walk = func(e Expr) {
		if b, ok := e.(*Binary); ok {
			walk(b.Left)
			walk(b.Right)
		}
		fn(e)
	}
	for _, id := range f.BlockIDs() {
		switch t := f.Blocks[id].Term.(type) {
		case *Return:
			walk(t.Value)
		case *Branch:
			walk(t.Cond)
		}
	}
}

// HasOpaque reports whether any leaf of f is Opaque.
func (f *Function) HasOpaque() bool {
	found := false
	f.Walk(func(e Expr) {
		if _, ok := e.(*Opaque); ok {
			found = true
		}
	})
	return found
}

// Dump renders f in a stable textual form.
func Dump(f *Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fn -> %s entry bb%d\n", f.Result, f.Entry)
	for _, id := range f.BlockIDs() {
		switch t := f.Blocks[id].Term.(type) {
		case *Return:
			fmt.Fprintf(&b, "bb%d: return %s\n", id, t.Value)
		case *Branch:
			fmt.Fprintf(&b, "bb%d: branch %s bb%d bb%d\n", id, t.Cond, t.Then, t.Else)
		}
	}
	return b.String()
}
