package htn

import "strings"

// Predicate is a logical atom: a head symbol applied to a parameter list.
// VarCount is the number of variables of the scope the predicate was
// written in, which is the length of the bindings used with it.
type Predicate struct {
	Head     int
	VarCount int
	Params   List
}

// NewPredicate creates a predicate with the given head and parameters.
func NewPredicate(head, varCount int, params ...Term) Predicate {
	return Predicate{Head: head, VarCount: varCount, Params: NewList(params...)}
}

// Unify extends b so that p and other become equal. Heads must match.
func (p Predicate) Unify(other Predicate, b Binding) bool {
	if p.Head != other.Head {
		return false
	}
	return unify(p.Params, other.Params, b)
}

// Match binds the variables of p against a query written in another
// scope. Ground parts of the query must agree with p; non-ground parts
// of the query match anything and bind nothing.
func (p Predicate) Match(query Predicate, b Binding) bool {
	if p.Head != query.Head {
		return false
	}
	return match(p.Params, query.Params, b)
}

// ApplySubstitution returns p with the variables bound in b replaced.
func (p Predicate) ApplySubstitution(b Binding) Predicate {
	return Predicate{Head: p.Head, VarCount: p.VarCount, Params: p.Params.Bind(b).(List)}
}

// IsGround reports whether p contains no variables.
func (p Predicate) IsGround() bool {
	return p.Params.IsGround()
}

// Equal checks structural equality of head and parameters.
func (p Predicate) Equal(other Predicate) bool {
	return p.Head == other.Head && p.Params.Equal(other.Params)
}

// Format renders p using names for the head and constant symbols.
// Head symbols share the constant table.
func (p Predicate) Format(names Names) string {
	var sb strings.Builder
	p.write(&sb, names, names)
	return sb.String()
}

func (p Predicate) String() string { return p.Format(nil) }

// write renders p, resolving the head symbol through heads.
func (p Predicate) write(sb *strings.Builder, heads, names Names) {
	sb.WriteByte('(')
	Const(p.Head).write(sb, heads)
	for _, t := range p.Params.normalize().Items {
		sb.WriteByte(' ')
		t.write(sb, names)
	}
	if tail := p.Params.normalize().Tail; tail != nil {
		sb.WriteString(" . ")
		tail.write(sb, names)
	}
	sb.WriteByte(')')
}
