package rt

// PathSeg is one step of a functional update path.
type PathSeg struct {
	// Field selects a record field.
	Field string
	// Index, when non-nil, selects a list or tuple position.
	Index Value
	// Where, when set, updates every list element that is a record whose
	// Where field is True.
	Where string
}

// PatchField is one (path, updater) pair of a patch expression.
type PatchField struct {
	Path    []PathSeg
	Updater Value
}

// Patch applies functional updates to target and returns the new value.
// An updater that is callable receives the old value; any other updater
// replaces it. target is never mutated.
func (r *Runtime) Patch(target Value, fields []PatchField) (Value, error) {
	acc := target
	for _, f := range fields {
		next, err := r.patchPath(acc, f.Path, f.Updater)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

func (r *Runtime) patchPath(target Value, path []PathSeg, updater Value) (Value, error) {
	if len(path) == 0 {
		if Callable(updater) {
			return r.Apply(updater, target)
		}
		return updater, nil
	}

	seg, rest := path[0], path[1:]
	switch {
	case seg.Index != nil:
		i, ok := seg.Index.(Int)
		if !ok {
			return nil, TypeMismatch("Int", seg.Index)
		}
		var items []Value
		switch t := target.(type) {
		case List:
			items = append(List(nil), t...)
		case Tuple:
			items = append(Tuple(nil), t...)
		default:
			return nil, Errorf("expected List/Tuple + Int for index patch, got %s", inspectOrNil(target))
		}
		if i < 0 || int(i) >= len(items) {
			return nil, Errorf("index out of bounds")
		}
		v, err := r.patchPath(items[i], rest, updater)
		if err != nil {
			return nil, err
		}
		items[i] = v
		if _, isTuple := target.(Tuple); isTuple {
			return Tuple(items), nil
		}
		return List(items), nil

	case seg.Where != "":
		list, ok := target.(List)
		if !ok {
			return nil, Errorf("expected List for traversal patch, got %s", inspectOrNil(target))
		}
		out := make(List, len(list))
		for j, item := range list {
			out[j] = item
			rec, ok := item.(Record)
			if !ok || !Equal(rec[seg.Where], Bool(true)) {
				continue
			}
			v, err := r.patchPath(item, rest, updater)
			if err != nil {
				return nil, err
			}
			out[j] = v
		}
		return out, nil

	default:
		rec, ok := target.(Record)
		if !ok {
			return nil, Errorf("expected Record for field patch, got %s", inspectOrNil(target))
		}
		old, ok := rec[seg.Field]
		if !ok {
			old = Unit{}
		}
		v, err := r.patchPath(old, rest, updater)
		if err != nil {
			return nil, err
		}
		return rec.With(seg.Field, v), nil
	}
}
