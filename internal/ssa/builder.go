package ssa

import "fmt"

// Builder constructs a Func directly in SSA form. Source variables are
// written and read per block; reads in a block whose predecessors are not
// all known yet produce incomplete phis that are filled in when the block
// is sealed. Phis that end up selecting a single value are removed.
type Builder struct {
	fn      *Func
	cur     *Block
	nextID  int
	defs    map[*Block]map[string]*Value
	pending map[*Block][]*Value
	names   map[*Value]string
}

// NewBuilder starts a function with an empty, sealed entry block.
func NewBuilder(name string, result Type) *Builder {
	b := &Builder{
		fn:      &Func{Name: name, Result: result},
		defs:    make(map[*Block]map[string]*Value),
		pending: make(map[*Block][]*Value),
		names:   make(map[*Value]string),
	}
	entry := b.NewBlock()
	entry.Sealed = true
	b.cur = entry
	return b
}

// NewBlock appends an unsealed block to the function.
func (b *Builder) NewBlock() *Block {
	blk := &Block{ID: len(b.fn.Blocks)}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

// SetBlock makes blk the block new values are appended to.
func (b *Builder) SetBlock(blk *Block) { b.cur = blk }

// Block returns the current block.
func (b *Builder) Block() *Block { return b.cur }

func (b *Builder) newValue(blk *Block, op Op, t Type, args ...*Value) *Value {
	v := &Value{ID: b.nextID, Op: op, Type: t, Args: args, Block: blk}
	b.nextID++
	if op == OP_PHI {
		i := 0
		for i < len(blk.Values) && blk.Values[i].Op == OP_PHI {
			i++
		}
		blk.Values = append(blk.Values, nil)
		copy(blk.Values[i+1:], blk.Values[i:])
		blk.Values[i] = v
	} else {
		blk.Values = append(blk.Values, v)
	}
	return v
}

// Param declares the next parameter in the entry block and binds it to the
// variable of the same name.
func (b *Builder) Param(name string, t Type) *Value {
	entry := b.fn.Entry()
	v := b.newValue(entry, OP_PARAM, t)
	v.Aux = len(b.fn.Params)
	v.Name = name
	b.fn.Params = append(b.fn.Params, v)
	b.WriteVariable(name, entry, v)
	return v
}

// Const appends a constant to the current block.
func (b *Builder) Const(t Type, bits uint64) *Value {
	v := b.newValue(b.cur, OP_CONST, t)
	v.Bits = bits
	return v
}

// Binary appends op(x, y) to the current block.
func (b *Builder) Binary(op Op, x, y *Value) *Value {
	t := x.Type
	if op.IsCompare() {
		t = Bool
	}
	return b.newValue(b.cur, op, t, x, y)
}

func (b *Builder) terminate(kind Kind, control *Value, succs ...*Block) {
	blk := b.cur
	if blk.Kind != KIND_INVALID {
		panic(fmt.Sprintf("ssa: %s is already terminated", blk))
	}
	blk.Kind = kind
	blk.Control = control
	blk.Succs = succs
	for _, s := range succs {
		if s.Sealed {
			panic(fmt.Sprintf("ssa: edge %s -> %s added after sealing", blk, s))
		}
		s.Preds = append(s.Preds, blk)
	}
}

// Return ends the current block by returning v.
func (b *Builder) Return(v *Value) { b.terminate(KIND_RETURN, v) }

// Jump ends the current block with an unconditional edge to target.
func (b *Builder) Jump(target *Block) { b.terminate(KIND_JUMP, nil, target) }

// Branch ends the current block with a two-way conditional edge.
func (b *Builder) Branch(cond *Value, then, els *Block) {
	b.terminate(KIND_BRANCH, cond, then, els)
}

// WriteVariable records v as the current definition of name in blk.
func (b *Builder) WriteVariable(name string, blk *Block, v *Value) {
	m := b.defs[blk]
	if m == nil {
		m = make(map[string]*Value)
		b.defs[blk] = m
	}
	m[name] = v
}

// ReadVariable returns the definition of name reaching blk.
func (b *Builder) ReadVariable(name string, t Type, blk *Block) (*Value, error) {
	if v, ok := b.defs[blk][name]; ok {
		return v, nil
	}
	return b.readRecursive(name, t, blk)
}

func (b *Builder) readRecursive(name string, t Type, blk *Block) (*Value, error) {
	var v *Value
	switch {
	case !blk.Sealed:
		v = b.newValue(blk, OP_PHI, t)
		b.names[v] = name
		b.pending[blk] = append(b.pending[blk], v)
	case len(blk.Preds) == 0:
		return nil, fmt.Errorf("variable %s is not defined in %s", name, blk)
	case len(blk.Preds) == 1:
		var err error
		v, err = b.ReadVariable(name, t, blk.Preds[0])
		if err != nil {
			return nil, err
		}
	default:
		phi := b.newValue(blk, OP_PHI, t)
		b.names[phi] = name
		b.WriteVariable(name, blk, phi)
		var err error
		v, err = b.addPhiOperands(name, phi)
		if err != nil {
			return nil, err
		}
	}
	b.WriteVariable(name, blk, v)
	return v, nil
}

func (b *Builder) addPhiOperands(name string, phi *Value) (*Value, error) {
	for _, pred := range phi.Block.Preds {
		arg, err := b.ReadVariable(name, phi.Type, pred)
		if err != nil {
			return nil, err
		}
		phi.Args = append(phi.Args, arg)
	}
	return b.tryRemoveTrivialPhi(phi), nil
}

// tryRemoveTrivialPhi replaces a phi whose operands are all the same value
// (or the phi itself) with that value.
func (b *Builder) tryRemoveTrivialPhi(phi *Value) *Value {
	var same *Value
	for _, a := range phi.Args {
		if a == same || a == phi {
			continue
		}
		if same != nil {
			return phi
		}
		same = a
	}
	if same == nil {
		// Unreachable or undefined; leave it for the verifier.
		return phi
	}

	var users []*Value
	for _, blk := range b.fn.Blocks {
		for _, v := range blk.Values {
			if v == phi {
				continue
			}
			for i, a := range v.Args {
				if a == phi {
					v.Args[i] = same
					if v.Op == OP_PHI {
						users = append(users, v)
					}
				}
			}
		}
		if blk.Control == phi {
			blk.Control = same
		}
	}
	for blk, m := range b.defs {
		for name, v := range m {
			if v == phi {
				b.defs[blk][name] = same
			}
		}
	}
	removeValue(phi.Block, phi)
	delete(b.names, phi)

	for _, u := range users {
		b.tryRemoveTrivialPhi(u)
	}
	return same
}

// SealBlock declares that every predecessor of blk is known.
func (b *Builder) SealBlock(blk *Block) error {
	if blk.Sealed {
		return nil
	}
	blk.Sealed = true
	for _, phi := range b.pending[blk] {
		if _, err := b.addPhiOperands(b.names[phi], phi); err != nil {
			return err
		}
	}
	delete(b.pending, blk)
	return nil
}

// Func returns the function under construction.
func (b *Builder) Func() *Func { return b.fn }

func removeValue(blk *Block, v *Value) {
	for i, x := range blk.Values {
		if x == v {
			blk.Values = append(blk.Values[:i], blk.Values[i+1:]...)
			return
		}
	}
}
