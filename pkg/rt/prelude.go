package rt

import (
	"fmt"
	"sort"
	"strings"
)

func prelude() map[string]Value {
	b := map[string]Value{}
	def := func(name string, arity int, fn func(r *Runtime, args []Value) (Value, error)) {
		b[name] = &Builtin{Name: name, Arity: arity, Fn: fn}
	}

	def("print", 1, func(_ *Runtime, args []Value) (Value, error) {
		v := args[0]
		return &Effect{Run: func(r *Runtime) (Value, error) {
			_, err := fmt.Fprint(r.Out, Format(v))
			return Unit{}, err
		}}, nil
	})
	def("println", 1, func(_ *Runtime, args []Value) (Value, error) {
		v := args[0]
		return &Effect{Run: func(r *Runtime) (Value, error) {
			_, err := fmt.Fprintln(r.Out, Format(v))
			return Unit{}, err
		}}, nil
	})
	def("pure", 1, func(_ *Runtime, args []Value) (Value, error) {
		return Pure(args[0]), nil
	})
	def("fail", 1, func(_ *Runtime, args []Value) (Value, error) {
		msg := Format(args[0])
		return &Effect{Run: func(*Runtime) (Value, error) {
			return nil, &RuntimeError{Message: msg}
		}}, nil
	})
	def("show", 1, func(_ *Runtime, args []Value) (Value, error) {
		return Text(args[0].Inspect()), nil
	})
	def("toText", 1, func(_ *Runtime, args []Value) (Value, error) {
		return Text(Format(args[0])), nil
	})
	def("not", 1, func(_ *Runtime, args []Value) (Value, error) {
		x, err := AsBool(args[0])
		if err != nil {
			return nil, err
		}
		return Bool(!x), nil
	})
	def("length", 1, func(_ *Runtime, args []Value) (Value, error) {
		switch v := args[0].(type) {
		case List:
			return Int(len(v)), nil
		case Tuple:
			return Int(len(v)), nil
		case Text:
			return Int(len([]rune(string(v)))), nil
		case Bytes:
			return Int(len(v)), nil
		case *Map:
			return Int(v.Len()), nil
		case *Set:
			return Int(v.Len()), nil
		}
		return nil, Errorf("length of unsupported value %s", inspectOrNil(args[0]))
	})
	def("map", 2, func(r *Runtime, args []Value) (Value, error) {
		l, ok := args[1].(List)
		if !ok {
			return nil, TypeMismatch("List", args[1])
		}
		out := make(List, len(l))
		for i, item := range l {
			v, err := r.Apply(args[0], item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	})
	def("filter", 2, func(r *Runtime, args []Value) (Value, error) {
		l, ok := args[1].(List)
		if !ok {
			return nil, TypeMismatch("List", args[1])
		}
		var out List
		for _, item := range l {
			keep, err := r.Apply(args[0], item)
			if err != nil {
				return nil, err
			}
			ok, err := AsBool(keep)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, item)
			}
		}
		if out == nil {
			out = List{}
		}
		return out, nil
	})
	def("foldl", 3, func(r *Runtime, args []Value) (Value, error) {
		l, ok := args[2].(List)
		if !ok {
			return nil, TypeMismatch("List", args[2])
		}
		acc := args[1]
		for _, item := range l {
			next, err := r.Apply(args[0], acc, item)
			if err != nil {
				return nil, err
			}
			acc = next
		}
		return acc, nil
	})
	def("range", 2, func(_ *Runtime, args []Value) (Value, error) {
		lo, err := UnboxInt(args[0])
		if err != nil {
			return nil, err
		}
		hi, err := UnboxInt(args[1])
		if err != nil {
			return nil, err
		}
		out := List{}
		for i := lo; i < hi; i++ {
			out = append(out, Int(i))
		}
		return out, nil
	})
	def("join", 2, func(_ *Runtime, args []Value) (Value, error) {
		sep, err := UnboxText(args[0])
		if err != nil {
			return nil, err
		}
		parts, err := UnboxList(args[1], UnboxText)
		if err != nil {
			return nil, err
		}
		return Text(strings.Join(parts, sep)), nil
	})
	def("mapOf", 1, func(_ *Runtime, args []Value) (Value, error) {
		l, ok := args[0].(List)
		if !ok {
			return nil, TypeMismatch("List", args[0])
		}
		pairs := make([]Value, 0, 2*len(l))
		for _, item := range l {
			t, ok := item.(Tuple)
			if !ok || len(t) != 2 {
				return nil, TypeMismatch("(key, value) tuple", item)
			}
			pairs = append(pairs, t[0], t[1])
		}
		return NewMap(pairs...), nil
	})
	def("setOf", 1, func(_ *Runtime, args []Value) (Value, error) {
		l, ok := args[0].(List)
		if !ok {
			return nil, TypeMismatch("List", args[0])
		}
		return NewSet(l...), nil
	})
	def("bytes", 1, func(_ *Runtime, args []Value) (Value, error) {
		s, err := UnboxText(args[0])
		if err != nil {
			return nil, err
		}
		return Bytes(s), nil
	})
	def("stderr", 1, func(_ *Runtime, args []Value) (Value, error) {
		v := args[0]
		return &Effect{Run: func(r *Runtime) (Value, error) {
			_, err := fmt.Fprintln(r.Err, Format(v))
			return Unit{}, err
		}}, nil
	})
	def("channel", 1, func(_ *Runtime, args []Value) (Value, error) {
		size, err := UnboxInt(args[0])
		if err != nil {
			return nil, err
		}
		return &Effect{Run: func(*Runtime) (Value, error) {
			return &Handle{Kind: "channel", Resource: make(chan Value, size)}, nil
		}}, nil
	})
	def("send", 2, func(_ *Runtime, args []Value) (Value, error) {
		ch, err := channelOf(args[0])
		if err != nil {
			return nil, err
		}
		v := args[1]
		return &Effect{Run: func(*Runtime) (Value, error) {
			ch <- v
			return Unit{}, nil
		}}, nil
	})
	def("recv", 1, func(_ *Runtime, args []Value) (Value, error) {
		ch, err := channelOf(args[0])
		if err != nil {
			return nil, err
		}
		return &Effect{Run: func(*Runtime) (Value, error) {
			return <-ch, nil
		}}, nil
	})
	return b
}

func channelOf(v Value) (chan Value, error) {
	h, ok := v.(*Handle)
	if ok {
		if ch, ok := h.Resource.(chan Value); ok {
			return ch, nil
		}
	}
	return nil, TypeMismatch("channel", v)
}

// BuiltinNames lists the prelude functions available to generated code, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, 24)
	for name := range prelude() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasBuiltin reports whether name is a prelude function.
func HasBuiltin(name string) bool {
	_, ok := prelude()[name]
	return ok
}
