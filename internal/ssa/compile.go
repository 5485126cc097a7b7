package ssa

import (
	"fmt"
	"math"
)

// Compiled is an executable form of a verified Func. Every value owns a
// slot in a frame of 64-bit words; each block is a slice of closures
// followed by a terminator closure. Values use the same bit encoding as
// the control-flow interpreter: two's complement for i64, IEEE-754 bits
// for f64 and 0 or 1 for bool.
type Compiled struct {
	Name    string
	Result  Type
	nparams int
	nslots  int
	blocks  []cblock
}

type step func(fr []uint64)

// term returns the next block index, or -1 with the result.
type term func(fr []uint64) (int, uint64)

type cblock struct {
	steps []step
	term  term
}

// Compile verifies f and converts it into closures.
func Compile(f *Func) (*Compiled, error) {
	if err := Verify(f); err != nil {
		return nil, err
	}
	slots := make(map[*Value]int)
	for _, p := range f.Params {
		slots[p] = p.Aux
	}
	n := len(f.Params)
	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if v.Op != OP_PARAM {
				slots[v] = n
				n++
			}
		}
	}
	blockIndex := make(map[*Block]int, len(f.Blocks))
	for i, b := range f.Blocks {
		blockIndex[b] = i
	}

	c := &Compiled{Name: f.Name, Result: f.Result, nparams: len(f.Params), nslots: n}
	for _, b := range f.Blocks {
		var cb cblock
		for _, v := range b.Values {
			s, err := compileValue(v, slots)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			if s != nil {
				cb.steps = append(cb.steps, s)
			}
		}
		switch b.Kind {
		case KIND_RETURN:
			src := slots[b.Control]
			cb.term = func(fr []uint64) (int, uint64) { return -1, fr[src] }
		case KIND_JUMP:
			cb.term = edge(b, b.Succs[0], slots, blockIndex)
		case KIND_BRANCH:
			cond := slots[b.Control]
			then := edge(b, b.Succs[0], slots, blockIndex)
			els := edge(b, b.Succs[1], slots, blockIndex)
			cb.term = func(fr []uint64) (int, uint64) {
				if fr[cond] != 0 {
					return then(fr)
				}
				return els(fr)
			}
		}
		c.blocks = append(c.blocks, cb)
	}
	return c, nil
}

func edge(from, to *Block, slots map[*Value]int, blockIndex map[*Block]int) term {
	k := predIndex(to, from)
	var dst, src []int
	for _, v := range to.Values {
		if v.Op != OP_PHI {
			break
		}
		dst = append(dst, slots[v])
		src = append(src, slots[v.Args[k]])
	}
	next := blockIndex[to]
	return func(fr []uint64) (int, uint64) {
		for i := range dst {
			fr[dst[i]] = fr[src[i]]
		}
		return next, 0
	}
}

func compileValue(v *Value, slots map[*Value]int) (step, error) {
	dst := slots[v]
	switch v.Op {
	case OP_PARAM, OP_PHI:
		return nil, nil
	case OP_CONST:
		bits := v.Bits
		return func(fr []uint64) { fr[dst] = bits }, nil
	}
	x, y := slots[v.Args[0]], slots[v.Args[1]]
	switch v.Args[0].Type {
	case I64:
		f, ok := intOps[v.Op]
		if !ok {
			break
		}
		return func(fr []uint64) { fr[dst] = f(int64(fr[x]), int64(fr[y])) }, nil
	case F64:
		f, ok := floatOps[v.Op]
		if !ok {
			break
		}
		return func(fr []uint64) {
			fr[dst] = f(math.Float64frombits(fr[x]), math.Float64frombits(fr[y]))
		}, nil
	case Bool:
		switch v.Op {
		case OP_EQ:
			return func(fr []uint64) { fr[dst] = boolBits(fr[x] == fr[y]) }, nil
		case OP_NE:
			return func(fr []uint64) { fr[dst] = boolBits(fr[x] != fr[y]) }, nil
		}
	}
	return nil, fmt.Errorf("cannot compile %s", v.LongString())
}

var intOps = map[Op]func(a, b int64) uint64{
	OP_ADD: func(a, b int64) uint64 { return uint64(a + b) },
	OP_SUB: func(a, b int64) uint64 { return uint64(a - b) },
	OP_MUL: func(a, b int64) uint64 { return uint64(a * b) },
	OP_EQ:  func(a, b int64) uint64 { return boolBits(a == b) },
	OP_NE:  func(a, b int64) uint64 { return boolBits(a != b) },
	OP_LT:  func(a, b int64) uint64 { return boolBits(a < b) },
	OP_LE:  func(a, b int64) uint64 { return boolBits(a <= b) },
	OP_GT:  func(a, b int64) uint64 { return boolBits(a > b) },
	OP_GE:  func(a, b int64) uint64 { return boolBits(a >= b) },
}

var floatOps = map[Op]func(a, b float64) uint64{
	OP_ADD: func(a, b float64) uint64 { return math.Float64bits(a + b) },
	OP_SUB: func(a, b float64) uint64 { return math.Float64bits(a - b) },
	OP_MUL: func(a, b float64) uint64 { return math.Float64bits(a * b) },
	OP_EQ:  func(a, b float64) uint64 { return boolBits(a == b) },
	OP_NE:  func(a, b float64) uint64 { return boolBits(a != b) },
	OP_LT:  func(a, b float64) uint64 { return boolBits(a < b) },
	OP_LE:  func(a, b float64) uint64 { return boolBits(a <= b) },
	OP_GT:  func(a, b float64) uint64 { return boolBits(a > b) },
	OP_GE:  func(a, b float64) uint64 { return boolBits(a >= b) },
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// NumParams is the number of arguments Call expects.
func (c *Compiled) NumParams() int { return c.nparams }

// Call runs the function. It panics when the argument count is wrong.
func (c *Compiled) Call(args ...uint64) uint64 {
	if len(args) != c.nparams {
		panic(fmt.Sprintf("ssa: %s called with %d arguments, want %d", c.Name, len(args), c.nparams))
	}
	fr := make([]uint64, c.nslots)
	copy(fr, args)
	b := 0
	for {
		cb := &c.blocks[b]
		for _, s := range cb.steps {
			s(fr)
		}
		next, result := cb.term(fr)
		if next < 0 {
			return result
		}
		b = next
	}
}
