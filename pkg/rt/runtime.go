package rt

import (
	"io"
	"os"
)

// Runtime carries all mutable state of a running program. Generated
// functions receive it explicitly; generated code keeps no package-level
// mutable state.
type Runtime struct {
	Out io.Writer
	Err io.Writer

	builtins map[string]Value
}

// New creates a runtime writing program output to out (os.Stdout when nil).
func New(out io.Writer) *Runtime {
	if out == nil {
		out = os.Stdout
	}
	r := &Runtime{Out: out, Err: os.Stderr}
	r.builtins = prelude()
	return r
}

// Builtin returns the named prelude function.
func (r *Runtime) Builtin(name string) (Value, error) {
	if b, ok := r.builtins[name]; ok {
		return b, nil
	}
	return nil, Errorf("missing builtin %s", name)
}

// Apply applies f to args one at a time (curried application).
func (r *Runtime) Apply(f Value, args ...Value) (Value, error) {
	var err error
	for _, arg := range args {
		f, err = r.applyOne(f, arg)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Call applies f to all args at once. It is equivalent to Apply.
func (r *Runtime) Call(f Value, args []Value) (Value, error) {
	return r.Apply(f, args...)
}

func (r *Runtime) applyOne(f Value, arg Value) (Value, error) {
	switch fn := f.(type) {
	case *Closure:
		return fn.Fn(r, arg)
	case *Builtin:
		args := make([]Value, len(fn.Args)+1)
		copy(args, fn.Args)
		args[len(fn.Args)] = arg
		if len(args) < fn.Arity {
			return &Builtin{Name: fn.Name, Arity: fn.Arity, Args: args, Fn: fn.Fn}, nil
		}
		return fn.Fn(r, args)
	case *MultiClause:
		return r.applyMulti(fn, arg)
	default:
		if f == nil {
			return nil, Errorf("attempted to call a missing value")
		}
		return nil, Errorf("attempted to call a non-function: %s", f.Inspect())
	}
}

// RunEffect runs v if it is an effect and returns its result; any other
// value is returned unchanged.
func (r *Runtime) RunEffect(v Value) (Value, error) {
	eff, ok := v.(*Effect)
	if !ok {
		return v, nil
	}
	return eff.Run(r)
}

// Pure wraps v into an effect that yields it.
func Pure(v Value) *Effect {
	return &Effect{Run: func(*Runtime) (Value, error) { return v, nil }}
}

// ConstructorFunc returns the curried constructor function for name.
// Nullary constructors are plain values.
func ConstructorFunc(name string, arity int) Value {
	if arity == 0 {
		return &Constructor{Name: name}
	}
	return &Builtin{
		Name:  name,
		Arity: arity,
		Fn: func(_ *Runtime, args []Value) (Value, error) {
			return &Constructor{Name: name, Args: args}, nil
		},
	}
}

// Format renders v for text interpolation: text is inserted verbatim,
// everything else uses its Inspect form.
func Format(v Value) string {
	switch val := v.(type) {
	case Text:
		return string(val)
	case nil:
		return ""
	default:
		return v.Inspect()
	}
}

// AsBool extracts a Bool condition.
func AsBool(v Value) (bool, error) {
	b, ok := v.(Bool)
	if !ok {
		return false, TypeMismatch("Bool", v)
	}
	return bool(b), nil
}
