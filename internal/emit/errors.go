package emit

import "fmt"

// CodegenError is a hard failure of a compilation unit. It is raised only
// for inputs the boxed path cannot represent; typed-path failures are never
// reported.
type CodegenError struct {
	Reason string
}

func (e *CodegenError) Error() string { return e.Reason }

func codegenErrorf(format string, args ...any) *CodegenError {
	return &CodegenError{Reason: fmt.Sprintf(format, args...)}
}
