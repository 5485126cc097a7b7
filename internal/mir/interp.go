package mir

import (
	"fmt"
	"math"

	"github.com/funvibe/funxc/internal/cgtype"
)

// Values are exchanged as 64-bit patterns: Int as two's complement, Float
// as IEEE-754 bits, Bool as 0 or 1. The SSA closure compiler uses the same
// encoding so results compare bit for bit.

func IntBits(n int64) uint64     { return uint64(n) }
func FloatBits(f float64) uint64 { return math.Float64bits(f) }

func BoolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Interpret evaluates f with reference semantics. env holds the bit
// patterns of every local and global the function reads.
func Interpret(f *Function, env map[string]uint64) (uint64, error) {
	id := f.Entry
	for steps := 0; steps <= len(f.Blocks); steps++ {
		b, ok := f.Blocks[id]
		if !ok {
			return 0, fmt.Errorf("missing block bb%d", id)
		}
		switch t := b.Term.(type) {
		case *Return:
			return eval(t.Value, env)
		case *Branch:
			c, err := eval(t.Cond, env)
			if err != nil {
				return 0, err
			}
			if c != 0 {
				id = t.Then
			} else {
				id = t.Else
			}
		default:
			return 0, fmt.Errorf("bb%d has no terminator", id)
		}
	}
	return 0, fmt.Errorf("control flow does not terminate")
}

func eval(e Expr, env map[string]uint64) (uint64, error) {
	switch e := e.(type) {
	case IntLit:
		return IntBits(e.Value), nil
	case FloatLit:
		return FloatBits(e.Value), nil
	case BoolLit:
		return BoolBits(e.Value), nil
	case *Local:
		return lookup(env, e.Name)
	case *Global:
		return lookup(env, e.Name)
	case *Binary:
		l, err := eval(e.Left, env)
		if err != nil {
			return 0, err
		}
		if e.Op == "&&" && l == 0 {
			return 0, nil
		}
		if e.Op == "||" && l != 0 {
			return 1, nil
		}
		r, err := eval(e.Right, env)
		if err != nil {
			return 0, err
		}
		return evalBinary(e.Op, e.Left.Type(), l, r)
	case *Opaque:
		return 0, fmt.Errorf("cannot interpret opaque code")
	}
	return 0, fmt.Errorf("unknown expression %T", e)
}

func lookup(env map[string]uint64, name string) (uint64, error) {
	v, ok := env[name]
	if !ok {
		return 0, fmt.Errorf("unbound name %s", name)
	}
	return v, nil
}

// evalBinary applies op to operands of type operand.
func evalBinary(op string, operand cgtype.Type, l, r uint64) (uint64, error) {
	switch operand.Kind {
	case cgtype.Int:
		x, y := int64(l), int64(r)
		switch op {
		case "+":
			return IntBits(x + y), nil
		case "-":
			return IntBits(x - y), nil
		case "*":
			return IntBits(x * y), nil
		case "==":
			return BoolBits(x == y), nil
		case "!=":
			return BoolBits(x != y), nil
		case "<":
			return BoolBits(x < y), nil
		case "<=":
			return BoolBits(x <= y), nil
		case ">":
			return BoolBits(x > y), nil
		case ">=":
			return BoolBits(x >= y), nil
		}
	case cgtype.Float:
		x, y := math.Float64frombits(l), math.Float64frombits(r)
		switch op {
		case "+":
			return FloatBits(x + y), nil
		case "-":
			return FloatBits(x - y), nil
		case "*":
			return FloatBits(x * y), nil
		case "==":
			return BoolBits(x == y), nil
		case "!=":
			return BoolBits(x != y), nil
		case "<":
			return BoolBits(x < y), nil
		case "<=":
			return BoolBits(x <= y), nil
		case ">":
			return BoolBits(x > y), nil
		case ">=":
			return BoolBits(x >= y), nil
		}
	case cgtype.Bool:
		x, y := l != 0, r != 0
		switch op {
		case "&&":
			return BoolBits(x && y), nil
		case "||":
			return BoolBits(x || y), nil
		case "==":
			return BoolBits(x == y), nil
		case "!=":
			return BoolBits(x != y), nil
		}
	}
	return 0, fmt.Errorf("unsupported operation %s on %s", op, operand)
}
