package htn

import (
	"sort"
	"sync"
)

// Function is a native function callable from domain descriptions with
// (call name args...). Call receives ground arguments and must return a
// non-nil term; it signals failure by panicking with a *NativeError.
//
// Used in a precondition, a Nil result means false and anything else
// means true.
type Function interface {
	Call(args []Term) Term
}

// FunctionFunc adapts an ordinary function to the Function interface.
type FunctionFunc func(args []Term) Term

// Call invokes f.
func (f FunctionFunc) Call(args []Term) Term { return f(args) }

// ComparatorFactory builds a sort comparator keyed on one variable of the
// binding being sorted.
type ComparatorFactory func(varIndex int) Comparator

// Registry holds the native functions and comparators available to a
// domain. The zero value is not usable; create one with NewRegistry.
// A Registry is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	funcs       map[string]Function
	comparators map[string]ComparatorFactory
}

// NewRegistry returns a registry preloaded with the standard library
// functions and the less/more comparators.
func NewRegistry() *Registry {
	r := &Registry{
		funcs:       make(map[string]Function, len(StdLib)),
		comparators: make(map[string]ComparatorFactory),
	}
	for name, fn := range StdLib {
		r.funcs[name] = fn
	}
	r.comparators["less"] = CompLess
	r.comparators["more"] = CompMore
	return r
}

// Register adds or replaces a native function.
func (r *Registry) Register(name string, fn Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// RegisterComparator adds or replaces a sort comparator.
func (r *Registry) RegisterComparator(name string, f ComparatorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comparators[name] = f
}

// Function looks up a native function by name.
func (r *Registry) Function(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Comparator looks up a comparator factory by name.
func (r *Registry) Comparator(name string) (ComparatorFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.comparators[name]
	return f, ok
}

// Names returns the registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the function registered under name. If none is
// registered yet it returns a proxy that looks name up again on every call
// and fails with ErrUnknownFunction while it is still missing. This lets
// domains load before every native function is provided.
func (r *Registry) Resolve(name string) Function {
	if fn, ok := r.Function(name); ok {
		return fn
	}
	return FunctionFunc(func(args []Term) Term {
		if fn, ok := r.Function(name); ok {
			return fn.Call(args)
		}
		panic(&NativeError{Name: name, Err: ErrUnknownFunction})
	})
}
