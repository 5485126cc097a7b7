// Package kernel holds the post-desugar intermediate representation that the
// code generator consumes: expressions, patterns, definitions and the ADT
// registry. Nodes are plain data; no node refers back to surface syntax.
package kernel

// Expr is a kernel expression.
type Expr interface {
	exprNode()
}

// Local references a lambda parameter or a block/match binding.
type Local struct {
	Name string
}

// Global references a module-level definition.
type Global struct {
	Name string
}

// Builtin references a prelude function by name.
type Builtin struct {
	Name string
}

// Ctor references a constructor of a registered ADT as a value.
type Ctor struct {
	Name string
}

// Number is a numeric literal kept in source form. A literal containing
// '.', 'e' or 'E' is a float, everything else an integer.
type Number struct {
	Text string
}

type TextLit struct {
	Value string
}

type BoolLit struct {
	Value bool
}

// DateTimeLit is an ISO-8601 timestamp literal.
type DateTimeLit struct {
	Value string
}

// SigilLit is a tagged string literal such as ~r/a+/i.
type SigilLit struct {
	Tag, Body, Flags string
}

// TextPart is one piece of an interpolated text: either a literal chunk or
// an expression whose value is formatted in place.
type TextPart struct {
	Text string
	Expr Expr
}

// Interp is an interpolated text literal.
type Interp struct {
	Parts []TextPart
}

// Lambda is a one-parameter function; multi-parameter lambdas are curried.
type Lambda struct {
	Param string
	Body  Expr
}

// App applies Func to a single argument.
type App struct {
	Func Expr
	Arg  Expr
}

// Pipe is x |> f, applying Right to Left.
type Pipe struct {
	Left  Expr
	Right Expr
}

// ListItem is a list element; a spread item splices a list value in.
type ListItem struct {
	Expr   Expr
	Spread bool
}

type ListLit struct {
	Items []ListItem
}

type TupleLit struct {
	Items []Expr
}

// RecordField sets the value at a dotted path, or spreads a record when
// Spread is set (Path is then empty).
type RecordField struct {
	Path   []string
	Value  Expr
	Spread bool
}

type RecordLit struct {
	Fields []RecordField
}

// PathSeg is one step of a patch path: a field name, an index expression,
// or a traversal of list elements whose Where field is true.
type PathSeg struct {
	Field string
	Index Expr
	Where string
}

type PatchField struct {
	Path  []PathSeg
	Value Expr
}

// Patch is a functional record update: target <| { path: value, ... }.
// A value that evaluates to a function is applied to the old field value.
type Patch struct {
	Target Expr
	Fields []PatchField
}

type FieldAccess struct {
	Base  Expr
	Field string
}

type Index struct {
	Base  Expr
	Index Expr
}

type If struct {
	Cond Expr
	Then Expr
	Else Expr
}

type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

type BlockKind uint8

const (
	PlainBlock BlockKind = iota
	DoBlock
)

type ItemKind uint8

const (
	// ItemExpr evaluates an expression; in a do block its effect runs.
	ItemExpr ItemKind = iota
	// ItemLet binds a pure value to a pattern.
	ItemLet
	// ItemBind runs an effect and binds its result (do blocks only).
	ItemBind
)

type BlockItem struct {
	Kind    ItemKind
	Pattern Pattern
	Expr    Expr
}

// Block sequences items. The value of the block is the value of its last
// item; a do block evaluates to an effect that performs the items in order.
type Block struct {
	Kind  BlockKind
	Items []BlockItem
}

// Arm is a match arm; Guard may be nil.
type Arm struct {
	Pattern Pattern
	Guard   Expr
	Body    Expr
}

type Match struct {
	Scrutinee Expr
	Arms      []Arm
}

func (*Local) exprNode()       {}
func (*Global) exprNode()      {}
func (*Builtin) exprNode()     {}
func (*Ctor) exprNode()        {}
func (*Number) exprNode()      {}
func (*TextLit) exprNode()     {}
func (*BoolLit) exprNode()     {}
func (*DateTimeLit) exprNode() {}
func (*SigilLit) exprNode()    {}
func (*Interp) exprNode()      {}
func (*Lambda) exprNode()      {}
func (*App) exprNode()         {}
func (*Pipe) exprNode()        {}
func (*ListLit) exprNode()     {}
func (*TupleLit) exprNode()    {}
func (*RecordLit) exprNode()   {}
func (*Patch) exprNode()       {}
func (*FieldAccess) exprNode() {}
func (*Index) exprNode()       {}
func (*If) exprNode()          {}
func (*Binary) exprNode()      {}
func (*Block) exprNode()       {}
func (*Match) exprNode()       {}

// Apply builds the curried application f a1 a2 ... .
func Apply(f Expr, args ...Expr) Expr {
	for _, a := range args {
		f = &App{Func: f, Arg: a}
	}
	return f
}

// Lambdas builds the curried lambda params => body.
func Lambdas(body Expr, params ...string) Expr {
	for i := len(params) - 1; i >= 0; i-- {
		body = &Lambda{Param: params[i], Body: body}
	}
	return body
}
