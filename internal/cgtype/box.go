package cgtype

import (
	"fmt"
	"reflect"

	"github.com/funvibe/funxc/pkg/rt"
)

var valueType = reflect.TypeOf((*rt.Value)(nil)).Elem()

// ReflectType is the Go type Unbox produces for t.
func (t Type) ReflectType() reflect.Type {
	switch t.Kind {
	case Int:
		return reflect.TypeOf(int64(0))
	case Float:
		return reflect.TypeOf(float64(0))
	case Bool:
		return reflect.TypeOf(false)
	case Text, DateTime:
		return reflect.TypeOf("")
	case Unit:
		return reflect.TypeOf(struct{}{})
	case List:
		return reflect.SliceOf(t.Elem.ReflectType())
	case Tuple:
		return reflect.TypeOf([]any(nil))
	case Record:
		return reflect.TypeOf(map[string]any(nil))
	}
	return valueType
}

// Box converts an unboxed Go value of descriptor t into the dynamic
// representation.
func Box(t Type, native any) (rt.Value, error) {
	switch t.Kind {
	case Int:
		x, ok := native.(int64)
		if !ok {
			return nil, nativeMismatch(t, native)
		}
		return rt.BoxInt(x), nil
	case Float:
		x, ok := native.(float64)
		if !ok {
			return nil, nativeMismatch(t, native)
		}
		return rt.BoxFloat(x), nil
	case Bool:
		x, ok := native.(bool)
		if !ok {
			return nil, nativeMismatch(t, native)
		}
		return rt.BoxBool(x), nil
	case Text, DateTime:
		x, ok := native.(string)
		if !ok {
			return nil, nativeMismatch(t, native)
		}
		if t.Kind == DateTime {
			return rt.BoxDateTime(x), nil
		}
		return rt.BoxText(x), nil
	case Unit:
		if _, ok := native.(struct{}); !ok {
			return nil, nativeMismatch(t, native)
		}
		return rt.Unit{}, nil
	case List:
		rv := reflect.ValueOf(native)
		if rv.Kind() != reflect.Slice {
			return nil, nativeMismatch(t, native)
		}
		out := make(rt.List, rv.Len())
		for i := range out {
			v, err := Box(*t.Elem, rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case Tuple:
		xs, ok := native.([]any)
		if !ok || len(xs) != len(t.Elems) {
			return nil, nativeMismatch(t, native)
		}
		out := make(rt.Tuple, len(xs))
		for i, e := range t.Elems {
			v, err := Box(e, xs[i])
			if err != nil {
				return nil, fmt.Errorf("tuple element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case Record:
		m, ok := native.(map[string]any)
		if !ok || len(m) != len(t.Fields) {
			return nil, nativeMismatch(t, native)
		}
		out := make(rt.Record, len(m))
		for _, f := range t.Fields {
			x, ok := m[f.Name]
			if !ok {
				return nil, fmt.Errorf("record is missing field %s", f.Name)
			}
			v, err := Box(f.Type, x)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			out[f.Name] = v
		}
		return out, nil
	}
	v, ok := native.(rt.Value)
	if !ok && native != nil {
		return nil, nativeMismatch(t, native)
	}
	return v, nil
}

// Unbox converts a dynamic value into the unboxed representation of t.
// Functions, ADTs and dynamic descriptors return the value unchanged.
func Unbox(t Type, v rt.Value) (any, error) {
	switch t.Kind {
	case Int:
		return rt.UnboxInt(v)
	case Float:
		return rt.UnboxFloat(v)
	case Bool:
		return rt.UnboxBool(v)
	case Text:
		return rt.UnboxText(v)
	case DateTime:
		return rt.UnboxDateTime(v)
	case Unit:
		return rt.UnboxUnit(v)
	case List:
		l, ok := v.(rt.List)
		if !ok {
			return nil, rt.TypeMismatch(t.String(), v)
		}
		out := reflect.MakeSlice(t.ReflectType(), len(l), len(l))
		for i, item := range l {
			x, err := Unbox(*t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", i, err)
			}
			if x != nil {
				out.Index(i).Set(reflect.ValueOf(x))
			}
		}
		return out.Interface(), nil
	case Tuple:
		unboxers := make([]func(rt.Value) (any, error), len(t.Elems))
		for i, e := range t.Elems {
			e := e
			unboxers[i] = func(v rt.Value) (any, error) { return Unbox(e, v) }
		}
		return rt.UnboxTuple(v, unboxers...)
	case Record:
		unboxers := make(map[string]func(rt.Value) (any, error), len(t.Fields))
		for _, f := range t.Fields {
			ft := f.Type
			unboxers[f.Name] = func(v rt.Value) (any, error) { return Unbox(ft, v) }
		}
		return rt.UnboxRecord(v, unboxers)
	}
	return rt.Identity(v)
}

func nativeMismatch(t Type, native any) error {
	return fmt.Errorf("cannot box %T as %s", native, t)
}
