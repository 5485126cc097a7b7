package rt

import (
	"errors"
	"fmt"
)

// ErrNonExhaustive is raised when no match arm (or no clause of an overload
// set) accepts a value.
var ErrNonExhaustive = errors.New("non-exhaustive match")

// RuntimeError is a failure raised by generated code or the runtime itself.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

// Errorf builds a RuntimeError.
func Errorf(format string, args ...any) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// TypeMismatch reports a value whose tag differs from the one expected.
func TypeMismatch(want string, got Value) error {
	if got == nil {
		return Errorf("type mismatch: expected %s, got nothing", want)
	}
	return Errorf("type mismatch: expected %s, got %s", want, got.Inspect())
}

// NonExhaustive returns ErrNonExhaustive. Generated code calls it after the last arm.
func NonExhaustive() error { return ErrNonExhaustive }

// IsNonExhaustive reports whether err is a non-exhaustive match failure.
func IsNonExhaustive(err error) bool { return errors.Is(err, ErrNonExhaustive) }
