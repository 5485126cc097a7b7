package rt

import "bytes"

// Equal performs a deep structural equality check. Functions, effects and
// handles compare by identity.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}

	switch av := a.(type) {
	case Unit:
		return true
	case Bool:
		return av == b.(Bool)
	case Int:
		return av == b.(Int)
	case Float:
		return av == b.(Float)
	case Text:
		return av == b.(Text)
	case DateTime:
		return av == b.(DateTime)
	case Bytes:
		return bytes.Equal(av, b.(Bytes))
	case List:
		return equalSlices(av, b.(List))
	case Tuple:
		return equalSlices(av, b.(Tuple))
	case Record:
		bv := b.(Record)
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			w, ok := bv[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case *Constructor:
		bv := b.(*Constructor)
		return av.Name == bv.Name && equalSlices(av.Args, bv.Args)
	case *Map:
		bv := b.(*Map)
		if av.Len() != bv.Len() {
			return false
		}
		for i, k := range av.keys {
			w, ok := bv.Get(k)
			if !ok || !Equal(av.vals[i], w) {
				return false
			}
		}
		return true
	case *Set:
		bv := b.(*Set)
		if av.Len() != bv.Len() {
			return false
		}
		for _, it := range av.items {
			if !bv.Has(it) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
