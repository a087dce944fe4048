package htn

import (
	"errors"
	"fmt"
)

var (
	// ErrDepthExceeded is recorded by an Evaluator when precondition
	// evaluation nests deeper than its MaxDepth.
	ErrDepthExceeded = errors.New("htn: evaluation depth exceeded")

	// ErrUnknownFunction is raised when a call names a native function
	// that was never registered.
	ErrUnknownFunction = errors.New("htn: native function not registered")

	// ErrNotImplemented is raised by the placeholder native functions
	// htnc generates for a domain package.
	ErrNotImplemented = errors.New("htn: native function not implemented")

	// ErrNilResult is raised when a native function returns nil instead of
	// a term.
	ErrNilResult = errors.New("htn: native function returned nil")

	// ErrNotNumber is raised by numeric builtins given a non-number.
	ErrNotNumber = errors.New("htn: not a number")

	// ErrArity is raised by builtins called with the wrong argument count.
	ErrArity = errors.New("htn: wrong number of arguments")

	// ErrNonGroundAtom is raised when a non-ground atom would be added to
	// the state.
	ErrNonGroundAtom = errors.New("htn: atom is not ground")
)

// NativeError reports the failure of a native function. Native functions
// signal failure by panicking with a *NativeError; the panic propagates
// through the engine and is recovered at the worker boundary.
type NativeError struct {
	Name string
	Err  error
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("htn: native function %q: %v", e.Name, e.Err)
}

func (e *NativeError) Unwrap() error { return e.Err }
