package htn

import "strings"

// Effect is an entry of an operator's delete or add list.
type Effect interface {
	format(sb *strings.Builder, names Names)
}

// AtomicEffect deletes or adds one atom.
type AtomicEffect struct {
	Atom Predicate
}

// ProtectionEffect protects an atom (in the add list) or releases one
// protection (in the delete list).
type ProtectionEffect struct {
	Atom Predicate
}

// ForAllEffect deletes or adds Atoms once for every satisfier of Pre.
type ForAllEffect struct {
	Pre   Expr
	Atoms []Predicate
}

func (e *AtomicEffect) format(sb *strings.Builder, names Names) {
	e.Atom.write(sb, names, names)
}

func (e *ProtectionEffect) format(sb *strings.Builder, names Names) {
	sb.WriteString("(:protection ")
	e.Atom.write(sb, names, names)
	sb.WriteByte(')')
}

func (e *ForAllEffect) format(sb *strings.Builder, names Names) {
	sb.WriteString("(forall ")
	e.Pre.format(sb, names)
	sb.WriteString(" (")
	for i, a := range e.Atoms {
		if i > 0 {
			sb.WriteByte(' ')
		}
		a.write(sb, names, names)
	}
	sb.WriteString("))")
}

// Deletion records an atom removed from the state, or from the protection
// table, and the bucket index it occupied. An Index of -1 in Undo.Unprotected
// means the protection count dropped but the entry stayed.
type Deletion struct {
	Atom  Predicate
	Index int
}

// Undo records everything one operator application changed.
type Undo struct {
	Deleted     []Deletion
	Added       []Predicate
	Unprotected []Deletion
	Protected   []Predicate
}

// Empty reports whether the application changed nothing.
func (u *Undo) Empty() bool {
	return len(u.Deleted) == 0 && len(u.Added) == 0 &&
		len(u.Unprotected) == 0 && len(u.Protected) == 0
}

// Apply applies an operator's effects to the evaluator's state under b:
// the delete list first, then the add list. ForAll effects enumerate all
// their satisfiers before touching the state.
//
// If a delete hits a protected atom Apply stops and returns false along
// with the record of what it had already changed. It does not roll that
// back; the caller decides, usually by passing the record to Undo.
func (ev *Evaluator) Apply(b Binding, del, add []Effect) (*Undo, bool) {
	u := &Undo{}
	for _, e := range del {
		switch x := e.(type) {
		case *AtomicEffect:
			if !ev.delete(x.Atom.ApplySubstitution(b), u) {
				return u, false
			}
		case *ProtectionEffect:
			p := x.Atom.ApplySubstitution(b)
			p.VarCount = 0
			if i, ok := ev.State.unprotect(p); ok {
				u.Unprotected = append(u.Unprotected, Deletion{Atom: p, Index: i})
				ev.mutated(MutationUnprotect)
			}
		case *ForAllEffect:
			for _, d := range ev.satisfiers(x.Pre, b) {
				full := Merge(b, d)
				for _, a := range x.Atoms {
					if !ev.delete(a.ApplySubstitution(full), u) {
						return u, false
					}
				}
			}
		}
	}
	for _, e := range add {
		switch x := e.(type) {
		case *AtomicEffect:
			ev.add(x.Atom.ApplySubstitution(b), u)
		case *ProtectionEffect:
			p := x.Atom.ApplySubstitution(b)
			p.VarCount = 0
			ev.State.AddProtection(p)
			u.Protected = append(u.Protected, p)
			ev.mutated(MutationProtect)
		case *ForAllEffect:
			for _, d := range ev.satisfiers(x.Pre, b) {
				full := Merge(b, d)
				for _, a := range x.Atoms {
					ev.add(a.ApplySubstitution(full), u)
				}
			}
		}
	}
	return u, true
}

// Undo reverts an application recorded by Apply.
func (ev *Evaluator) Undo(u *Undo) {
	ev.State.Undo(u)
	ev.mutated(MutationUndo)
}

func (ev *Evaluator) delete(p Predicate, u *Undo) bool {
	p.VarCount = 0
	if ev.State.IsProtected(p) {
		return false
	}
	if i := ev.State.Del(p); i >= 0 {
		u.Deleted = append(u.Deleted, Deletion{Atom: p, Index: i})
		ev.mutated(MutationDelete)
	}
	return true
}

func (ev *Evaluator) add(p Predicate, u *Undo) {
	p.VarCount = 0
	if ev.State.Add(p) {
		u.Added = append(u.Added, p)
		ev.mutated(MutationAdd)
	}
}

// satisfiers collects every satisfier of e under b.
func (ev *Evaluator) satisfiers(e Expr, b Binding) []Binding {
	pre := ev.build(e, b, false)
	pre.Reset()
	var out []Binding
	for d := pre.NextBinding(); d != nil; d = pre.NextBinding() {
		out = append(out, d)
	}
	return out
}
