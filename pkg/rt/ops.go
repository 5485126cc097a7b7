package rt

import (
	"math"
	"strings"
)

// Binary evaluates a strict binary operator over two boxed operands.
// Mixed Int/Float arithmetic and comparisons promote to Float.
func Binary(op string, a, b Value) (Value, error) {
	switch op {
	case "==":
		return Bool(Equal(a, b)), nil
	case "!=":
		return Bool(!Equal(a, b)), nil
	case "&&", "||":
		x, okA := a.(Bool)
		y, okB := b.(Bool)
		if !okA || !okB {
			return nil, unsupportedOperands(op, a, b)
		}
		if op == "&&" {
			return x && y, nil
		}
		return x || y, nil
	case "++":
		return concat(a, b)
	case "+", "-", "*", "/", "%":
		return arith(op, a, b)
	case "<", "<=", ">", ">=":
		return compare(op, a, b)
	}
	return nil, Errorf("unsupported binary operator %s", op)
}

func arith(op string, a, b Value) (Value, error) {
	if x, ok := a.(Int); ok {
		if y, ok := b.(Int); ok {
			return intArith(op, x, y)
		}
	}
	x, okA := toFloat(a)
	y, okB := toFloat(b)
	if !okA || !okB {
		if op == "+" {
			if _, isText := a.(Text); isText {
				return concat(a, b)
			}
		}
		return nil, unsupportedOperands(op, a, b)
	}
	switch op {
	case "+":
		return Float(x + y), nil
	case "-":
		return Float(x - y), nil
	case "*":
		return Float(x * y), nil
	case "/":
		return Float(x / y), nil
	default:
		return Float(math.Mod(x, y)), nil
	}
}

func intArith(op string, x, y Int) (Value, error) {
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		if y == 0 {
			return nil, Errorf("division by zero")
		}
		return x / y, nil
	default:
		if y == 0 {
			return nil, Errorf("division by zero")
		}
		return x % y, nil
	}
}

func compare(op string, a, b Value) (Value, error) {
	var c int
	switch x := a.(type) {
	case Text:
		y, ok := b.(Text)
		if !ok {
			return nil, unsupportedOperands(op, a, b)
		}
		c = strings.Compare(string(x), string(y))
	case DateTime:
		y, ok := b.(DateTime)
		if !ok {
			return nil, unsupportedOperands(op, a, b)
		}
		c = strings.Compare(string(x), string(y))
	default:
		if xi, ok := a.(Int); ok {
			if yi, ok := b.(Int); ok {
				c = cmpInt(xi, yi)
				break
			}
		}
		fx, okA := toFloat(a)
		fy, okB := toFloat(b)
		if !okA || !okB {
			return nil, unsupportedOperands(op, a, b)
		}
		// NaN compares false under every ordering operator.
		switch op {
		case "<":
			return Bool(fx < fy), nil
		case "<=":
			return Bool(fx <= fy), nil
		case ">":
			return Bool(fx > fy), nil
		default:
			return Bool(fx >= fy), nil
		}
	}
	switch op {
	case "<":
		return Bool(c < 0), nil
	case "<=":
		return Bool(c <= 0), nil
	case ">":
		return Bool(c > 0), nil
	default:
		return Bool(c >= 0), nil
	}
}

func cmpInt(x, y Int) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func concat(a, b Value) (Value, error) {
	switch x := a.(type) {
	case Text:
		if y, ok := b.(Text); ok {
			return x + y, nil
		}
	case List:
		if y, ok := b.(List); ok {
			out := make(List, 0, len(x)+len(y))
			return append(append(out, x...), y...), nil
		}
	case Bytes:
		if y, ok := b.(Bytes); ok {
			out := make(Bytes, 0, len(x)+len(y))
			return append(append(out, x...), y...), nil
		}
	}
	return nil, unsupportedOperands("++", a, b)
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}

func unsupportedOperands(op string, a, b Value) error {
	return Errorf("unsupported operands for %s: %s and %s", op, inspectOrNil(a), inspectOrNil(b))
}

func inspectOrNil(v Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Inspect()
}

// Field projects a record field.
func Field(v Value, name string) (Value, error) {
	rec, ok := v.(Record)
	if !ok {
		return nil, TypeMismatch("Record", v)
	}
	f, ok := rec[name]
	if !ok {
		return nil, Errorf("missing field %s", name)
	}
	return f, nil
}

// Index reads a list or tuple position, or a map key.
func Index(base, idx Value) (Value, error) {
	switch b := base.(type) {
	case List:
		return indexSlice(b, idx)
	case Tuple:
		return indexSlice(b, idx)
	case *Map:
		v, ok := b.Get(idx)
		if !ok {
			return nil, Errorf("missing map key %s", inspectOrNil(idx))
		}
		return v, nil
	}
	return nil, Errorf("index on unsupported value %s", inspectOrNil(base))
}

func indexSlice(items []Value, idx Value) (Value, error) {
	i, ok := idx.(Int)
	if !ok {
		return nil, TypeMismatch("Int", idx)
	}
	if i < 0 || int(i) >= len(items) {
		return nil, Errorf("index out of bounds")
	}
	return items[i], nil
}

// Spread appends the elements of list v to out.
func Spread(out List, v Value) (List, error) {
	items, ok := v.(List)
	if !ok {
		return nil, Errorf("expected List for spread, got %s", inspectOrNil(v))
	}
	return append(out, items...), nil
}

// SpreadRecord copies the fields of record v into rec.
func SpreadRecord(rec Record, v Value) error {
	src, ok := v.(Record)
	if !ok {
		return Errorf("record spread expects a record, got %s", inspectOrNil(v))
	}
	for k, f := range src {
		rec[k] = f
	}
	return nil
}

// SetPath stores v under a dotted path in rec, creating intermediate
// records. Nested records met on the way are copied, so values spread into
// rec earlier are never mutated.
func SetPath(rec Record, path []string, v Value) error {
	for _, seg := range path[:len(path)-1] {
		child := Record{}
		if next, ok := rec[seg]; ok {
			existing, ok := next.(Record)
			if !ok {
				return Errorf("field %s is not a record", seg)
			}
			for k, f := range existing {
				child[k] = f
			}
		}
		rec[seg] = child
		rec = child
	}
	rec[path[len(path)-1]] = v
	return nil
}
