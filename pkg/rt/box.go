package rt

// Box and unbox helpers convert between unboxed Go values used by typed
// siblings and the dynamic representation. Unboxing checks the tag and
// fails with a type-mismatch error.

func BoxInt(x int64) Value       { return Int(x) }
func BoxFloat(x float64) Value   { return Float(x) }
func BoxBool(x bool) Value       { return Bool(x) }
func BoxText(x string) Value     { return Text(x) }
func BoxUnit(struct{}) Value     { return Unit{} }
func BoxDateTime(x string) Value { return DateTime(x) }

func UnboxInt(v Value) (int64, error) {
	x, ok := v.(Int)
	if !ok {
		return 0, TypeMismatch("Int", v)
	}
	return int64(x), nil
}

func UnboxFloat(v Value) (float64, error) {
	x, ok := v.(Float)
	if !ok {
		return 0, TypeMismatch("Float", v)
	}
	return float64(x), nil
}

func UnboxBool(v Value) (bool, error) {
	x, ok := v.(Bool)
	if !ok {
		return false, TypeMismatch("Bool", v)
	}
	return bool(x), nil
}

func UnboxText(v Value) (string, error) {
	x, ok := v.(Text)
	if !ok {
		return "", TypeMismatch("Text", v)
	}
	return string(x), nil
}

func UnboxUnit(v Value) (struct{}, error) {
	if _, ok := v.(Unit); !ok {
		return struct{}{}, TypeMismatch("Unit", v)
	}
	return struct{}{}, nil
}

func UnboxDateTime(v Value) (string, error) {
	x, ok := v.(DateTime)
	if !ok {
		return "", TypeMismatch("DateTime", v)
	}
	return string(x), nil
}

// BoxList boxes every element with box.
func BoxList[T any](xs []T, box func(T) Value) Value {
	out := make(List, len(xs))
	for i, x := range xs {
		out[i] = box(x)
	}
	return out
}

// UnboxList unboxes a List element-wise.
func UnboxList[T any](v Value, unbox func(Value) (T, error)) ([]T, error) {
	l, ok := v.(List)
	if !ok {
		return nil, TypeMismatch("List", v)
	}
	out := make([]T, len(l))
	for i, item := range l {
		x, err := unbox(item)
		if err != nil {
			return nil, Errorf("list element %d: %v", i, err)
		}
		out[i] = x
	}
	return out, nil
}

// BoxTuple boxes positional elements, one boxer per position.
func BoxTuple(xs []any, boxers ...func(any) Value) Value {
	out := make(Tuple, len(boxers))
	for i, box := range boxers {
		out[i] = box(xs[i])
	}
	return out
}

// UnboxTuple unboxes a Tuple of exactly len(unboxers) elements.
func UnboxTuple(v Value, unboxers ...func(Value) (any, error)) ([]any, error) {
	t, ok := v.(Tuple)
	if !ok {
		return nil, TypeMismatch("Tuple", v)
	}
	if len(t) != len(unboxers) {
		return nil, Errorf("type mismatch: expected tuple of %d elements, got %d", len(unboxers), len(t))
	}
	out := make([]any, len(t))
	for i, unbox := range unboxers {
		x, err := unbox(t[i])
		if err != nil {
			return nil, Errorf("tuple element %d: %v", i, err)
		}
		out[i] = x
	}
	return out, nil
}

// BoxRecord boxes the named fields of m.
func BoxRecord(m map[string]any, boxers map[string]func(any) Value) Value {
	out := make(Record, len(boxers))
	for name, box := range boxers {
		out[name] = box(m[name])
	}
	return out
}

// UnboxRecord unboxes exactly the fields named in unboxers; extra fields
// are a type mismatch because closed records have a fixed field set.
func UnboxRecord(v Value, unboxers map[string]func(Value) (any, error)) (map[string]any, error) {
	rec, ok := v.(Record)
	if !ok {
		return nil, TypeMismatch("Record", v)
	}
	if len(rec) != len(unboxers) {
		return nil, Errorf("type mismatch: expected record with %d fields, got %s", len(unboxers), rec.Inspect())
	}
	out := make(map[string]any, len(unboxers))
	for name, unbox := range unboxers {
		f, ok := rec[name]
		if !ok {
			return nil, Errorf("type mismatch: record is missing field %s", name)
		}
		x, err := unbox(f)
		if err != nil {
			return nil, Errorf("field %s: %v", name, err)
		}
		out[name] = x
	}
	return out, nil
}

// Identity is the box and unbox conversion of function and algebraic types,
// which always stay in the dynamic representation.
func Identity(v Value) (Value, error) { return v, nil }
