package htn

import "strings"

// Binding maps the variables of one lexical scope to their values. It has
// exactly one slot per variable of the scope; a nil slot means the
// variable is unbound.
type Binding []Term

// NewBinding creates an empty binding for a scope of n variables.
func NewBinding(n int) Binding {
	return make(Binding, n)
}

// Clone returns an independent copy of b.
func (b Binding) Clone() Binding {
	if b == nil {
		return nil
	}
	out := make(Binding, len(b))
	copy(out, b)
	return out
}

// Len returns the number of bound slots.
func (b Binding) Len() int {
	n := 0
	for _, t := range b {
		if t != nil {
			n++
		}
	}
	return n
}

// Format renders the bound slots as ?var<i>=value pairs.
func (b Binding) Format(names Names) string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for i, t := range b {
		if t == nil {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		Var(i).write(&sb, names)
		sb.WriteByte('=')
		t.write(&sb, names)
	}
	sb.WriteByte('}')
	return sb.String()
}

func (b Binding) String() string { return b.Format(nil) }

// Merge combines two bindings of the same scope slot by slot, taking the
// primary value where both are bound. The result has the length of the
// longer input; neither input is modified.
func Merge(primary, secondary Binding) Binding {
	n := max(len(primary), len(secondary))
	out := make(Binding, n)
	copy(out, secondary)
	for i, t := range primary {
		if t != nil {
			out[i] = t
		}
	}
	return out
}
