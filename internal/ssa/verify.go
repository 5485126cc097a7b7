package ssa

import "fmt"

// DCE removes values that no terminator depends on. Every operation is
// pure, so an unused value can always be dropped.
func DCE(f *Func) {
	live := make(map[*Value]bool)
	var work []*Value
	mark := func(v *Value) {
		if v != nil && !live[v] {
			live[v] = true
			work = append(work, v)
		}
	}
	for _, b := range f.Blocks {
		mark(b.Control)
	}
	for len(work) > 0 {
		v := work[len(work)-1]
		work = work[:len(work)-1]
		for _, a := range v.Args {
			mark(a)
		}
	}
	for _, b := range f.Blocks {
		kept := b.Values[:0]
		for _, v := range b.Values {
			if live[v] || v.Op == OP_PARAM {
				kept = append(kept, v)
			}
		}
		b.Values = kept
	}
}

// Verify checks the structural invariants of f: every block is sealed and
// terminated with edges to blocks of f, operand types agree, phis have one
// argument per predecessor and every definition dominates its uses.
func Verify(f *Func) error {
	if len(f.Blocks) == 0 {
		return fmt.Errorf("%s: no blocks", f.Name)
	}
	index := make(map[*Block]int, len(f.Blocks))
	for i, b := range f.Blocks {
		index[b] = i
	}
	if len(f.Entry().Preds) != 0 {
		return fmt.Errorf("%s: entry block has predecessors", f.Name)
	}

	pos := make(map[*Value]int)
	for _, b := range f.Blocks {
		if !b.Sealed {
			return fmt.Errorf("%s: %s is not sealed", f.Name, b)
		}
		seenNonPhi := false
		for i, v := range b.Values {
			if v.Block != b {
				return fmt.Errorf("%s: %s is listed in %s but belongs to %v", f.Name, v, b, v.Block)
			}
			if _, dup := pos[v]; dup {
				return fmt.Errorf("%s: %s is defined twice", f.Name, v)
			}
			pos[v] = i
			if v.Op == OP_PHI {
				if seenNonPhi {
					return fmt.Errorf("%s: phi %s follows a non-phi value in %s", f.Name, v, b)
				}
			} else {
				seenNonPhi = true
			}
		}
		if err := verifyTerminator(f, b, index); err != nil {
			return err
		}
	}
	for _, p := range f.Params {
		if p.Op != OP_PARAM || p.Block != f.Entry() {
			return fmt.Errorf("%s: parameter %s is not a param of the entry block", f.Name, p)
		}
	}

	idom := dominators(f, index)
	dominates := func(a, b *Block) bool {
		for {
			if a == b {
				return true
			}
			next := idom[b]
			if next == nil || next == b {
				return false
			}
			b = next
		}
	}
	defined := func(arg *Value) error {
		if _, ok := pos[arg]; !ok {
			return fmt.Errorf("%s: %s is used but not defined", f.Name, arg)
		}
		return nil
	}

	for _, b := range f.Blocks {
		for _, v := range b.Values {
			if err := verifyTypes(f, v); err != nil {
				return err
			}
			if v.Op == OP_PHI {
				if len(v.Args) != len(b.Preds) {
					return fmt.Errorf("%s: phi %s has %d arguments for %d predecessors", f.Name, v, len(v.Args), len(b.Preds))
				}
				for i, a := range v.Args {
					if err := defined(a); err != nil {
						return err
					}
					if !dominates(a.Block, b.Preds[i]) {
						return fmt.Errorf("%s: %s does not dominate edge %s -> %s of %s", f.Name, a, b.Preds[i], b, v)
					}
				}
				continue
			}
			for _, a := range v.Args {
				if err := defined(a); err != nil {
					return err
				}
				if a.Block == b {
					if pos[a] >= pos[v] {
						return fmt.Errorf("%s: %s is used by %s before its definition", f.Name, a, v)
					}
				} else if !dominates(a.Block, b) {
					return fmt.Errorf("%s: %s does not dominate its use in %s", f.Name, a, v)
				}
			}
		}
		if c := b.Control; c != nil {
			if err := defined(c); err != nil {
				return err
			}
			if !dominates(c.Block, b) {
				return fmt.Errorf("%s: %s does not dominate its use as the control of %s", f.Name, c, b)
			}
		}
	}
	return nil
}

func verifyTerminator(f *Func, b *Block, index map[*Block]int) error {
	var want int
	switch b.Kind {
	case KIND_RETURN:
		if b.Control == nil || b.Control.Type != f.Result {
			return fmt.Errorf("%s: %s must return a %s", f.Name, b, f.Result)
		}
	case KIND_JUMP:
		want = 1
		if b.Control != nil {
			return fmt.Errorf("%s: jump in %s has a control value", f.Name, b)
		}
	case KIND_BRANCH:
		want = 2
		if b.Control == nil || b.Control.Type != Bool {
			return fmt.Errorf("%s: branch in %s needs a bool condition", f.Name, b)
		}
	default:
		return fmt.Errorf("%s: %s has no terminator", f.Name, b)
	}
	if len(b.Succs) != want {
		return fmt.Errorf("%s: %s has %d successors, want %d", f.Name, b, len(b.Succs), want)
	}
	for _, s := range b.Succs {
		i, ok := index[s]
		if !ok || f.Blocks[i] != s {
			return fmt.Errorf("%s: %s jumps to a block outside the function", f.Name, b)
		}
		found := false
		for _, p := range s.Preds {
			if p == b {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("%s: %s is not a predecessor of %s", f.Name, b, s)
		}
	}
	return nil
}

func verifyTypes(f *Func, v *Value) error {
	switch {
	case v.Op == OP_PARAM || v.Op == OP_CONST:
		if len(v.Args) != 0 {
			return fmt.Errorf("%s: %s takes no arguments", f.Name, v)
		}
	case v.Op == OP_PHI:
		for _, a := range v.Args {
			if a.Type != v.Type {
				return fmt.Errorf("%s: phi %s mixes %s and %s", f.Name, v, v.Type, a.Type)
			}
		}
	case v.Op.IsArith() || v.Op.IsCompare():
		if len(v.Args) != 2 {
			return fmt.Errorf("%s: %s needs two operands", f.Name, v)
		}
		x, y := v.Args[0].Type, v.Args[1].Type
		if x != y {
			return fmt.Errorf("%s: %s has operands %s and %s", f.Name, v, x, y)
		}
		if v.Op.IsArith() && (x == Bool || v.Type != x) {
			return fmt.Errorf("%s: %s cannot %s %s values", f.Name, v, v.Op, x)
		}
		if v.Op.IsCompare() {
			if v.Type != Bool {
				return fmt.Errorf("%s: comparison %s must yield bool", f.Name, v)
			}
			if x == Bool && v.Op != OP_EQ && v.Op != OP_NE {
				return fmt.Errorf("%s: %s orders bool values", f.Name, v)
			}
		}
	default:
		return fmt.Errorf("%s: %s has unknown operation %s", f.Name, v, v.Op)
	}
	return nil
}

// dominators computes immediate dominators with the iterative algorithm of
// Cooper, Harvey and Kennedy over a reverse postorder. Unreachable blocks
// map to nil.
func dominators(f *Func, index map[*Block]int) map[*Block]*Block {
	var order []*Block
	seen := make(map[*Block]bool)
	var visit func(*Block)
	visit = func(b *Block) {
		seen[b] = true
		for _, s := range b.Succs {
			if _, ok := index[s]; ok && !seen[s] {
				visit(s)
			}
		}
		order = append(order, b)
	}
	visit(f.Entry())
	rpo := make(map[*Block]int, len(order))
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	for i, b := range order {
		rpo[b] = i
	}

	idom := map[*Block]*Block{f.Entry(): f.Entry()}
	intersect := func(a, b *Block) *Block {
		for a != b {
			for rpo[a] > rpo[b] {
				a = idom[a]
			}
			for rpo[b] > rpo[a] {
				b = idom[b]
			}
		}
		return a
	}
	for changed := true; changed; {
		changed = false
		for _, b := range order[1:] {
			var d *Block
			for _, p := range b.Preds {
				if idom[p] == nil {
					continue
				}
				if d == nil {
					d = p
				} else {
					d = intersect(p, d)
				}
			}
			if d != nil && idom[b] != d {
				idom[b] = d
				changed = true
			}
		}
	}
	return idom
}
