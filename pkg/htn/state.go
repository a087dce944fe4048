package htn

import (
	"fmt"
	"strings"
)

// State is the mutable world state searched by the planner: the ground
// facts currently true, bucketed by head symbol, and a table of protected
// atoms with reference counts.
//
// Facts keep their insertion order within a bucket. Undo relies on that
// order: every deletion records the index it removed, so that undoing an
// application restores the buckets to exactly their previous order and
// enumerators suspended across the change resume where they were.
//
// A State is not safe for concurrent use.
type State struct {
	atoms       [][]Predicate
	protections [][]numberedPredicate
}

// numberedPredicate is an entry of the protection table.
type numberedPredicate struct {
	atom  Predicate
	count int
}

// NewState creates an empty state sized for the given number of head
// symbols. Buckets grow on demand for larger heads.
func NewState(symbols int) *State {
	return &State{
		atoms:       make([][]Predicate, symbols),
		protections: make([][]numberedPredicate, symbols),
	}
}

func (s *State) grow(head int) {
	if head < len(s.atoms) {
		return
	}
	atoms := make([][]Predicate, head+1)
	copy(atoms, s.atoms)
	s.atoms = atoms
	prot := make([][]numberedPredicate, head+1)
	copy(prot, s.protections)
	s.protections = prot
}

// facts returns the bucket for head without copying.
func (s *State) facts(head int) []Predicate {
	if head < 0 || head >= len(s.atoms) {
		return nil
	}
	return s.atoms[head]
}

// Facts returns a copy of the facts with the given head, in order.
func (s *State) Facts(head int) []Predicate {
	src := s.facts(head)
	out := make([]Predicate, len(src))
	copy(out, src)
	return out
}

// Atoms returns every fact in bucket order.
func (s *State) Atoms() []Predicate {
	var out []Predicate
	for _, bucket := range s.atoms {
		out = append(out, bucket...)
	}
	return out
}

// Len returns the number of facts.
func (s *State) Len() int {
	n := 0
	for _, bucket := range s.atoms {
		n += len(bucket)
	}
	return n
}

// Contains reports whether p is a fact of the state.
func (s *State) Contains(p Predicate) bool {
	return s.indexOf(p) >= 0
}

func (s *State) indexOf(p Predicate) int {
	for i, f := range s.facts(p.Head) {
		if f.Equal(p) {
			return i
		}
	}
	return -1
}

// Load adds initial facts, rejecting atoms that are not ground.
func (s *State) Load(atoms ...Predicate) error {
	for _, p := range atoms {
		if !p.IsGround() {
			return fmt.Errorf("htn: initial atom %s: %w", p, ErrNonGroundAtom)
		}
		s.Add(p)
	}
	return nil
}

// Add appends p to its bucket unless an equal fact is already present.
// It reports whether the state changed. p must be ground.
func (s *State) Add(p Predicate) bool {
	if !p.IsGround() {
		panic(fmt.Errorf("htn: add %s: %w", p, ErrNonGroundAtom))
	}
	if s.Contains(p) {
		return false
	}
	p.VarCount = 0
	s.grow(p.Head)
	s.atoms[p.Head] = append(s.atoms[p.Head], p)
	return true
}

// Del removes p and returns the index it occupied in its bucket, or -1 if
// p was not a fact.
func (s *State) Del(p Predicate) int {
	i := s.indexOf(p)
	if i < 0 {
		return -1
	}
	bucket := s.atoms[p.Head]
	s.atoms[p.Head] = append(bucket[:i:i], bucket[i+1:]...)
	return i
}

// undel re-inserts p at index i of its bucket.
func (s *State) undel(p Predicate, i int) {
	s.grow(p.Head)
	bucket := s.atoms[p.Head]
	if i > len(bucket) {
		i = len(bucket)
	}
	out := make([]Predicate, 0, len(bucket)+1)
	out = append(out, bucket[:i]...)
	out = append(out, p)
	out = append(out, bucket[i:]...)
	s.atoms[p.Head] = out
}

// AddProtection increments the protection count of p.
func (s *State) AddProtection(p Predicate) bool {
	s.grow(p.Head)
	for i := range s.protections[p.Head] {
		if s.protections[p.Head][i].atom.Equal(p) {
			s.protections[p.Head][i].count++
			return true
		}
	}
	s.protections[p.Head] = append(s.protections[p.Head], numberedPredicate{atom: p, count: 1})
	return true
}

// DelProtection decrements the protection count of p. It reports false,
// and does nothing, if p is not protected.
func (s *State) DelProtection(p Predicate) bool {
	_, ok := s.unprotect(p)
	return ok
}

// unprotect decrements the protection count of p. When the count drops
// to zero the entry is removed and its index returned; otherwise the
// index is -1.
func (s *State) unprotect(p Predicate) (int, bool) {
	if p.Head < 0 || p.Head >= len(s.protections) {
		return -1, false
	}
	entries := s.protections[p.Head]
	for i := range entries {
		if !entries[i].atom.Equal(p) {
			continue
		}
		if entries[i].count <= 0 {
			return -1, false
		}
		entries[i].count--
		if entries[i].count == 0 {
			s.protections[p.Head] = append(entries[:i:i], entries[i+1:]...)
			return i, true
		}
		return -1, true
	}
	return -1, false
}

// reprotect reverts unprotect: a removed entry goes back to index i with
// a count of one.
func (s *State) reprotect(p Predicate, i int) {
	if i < 0 {
		s.AddProtection(p)
		return
	}
	s.grow(p.Head)
	entries := s.protections[p.Head]
	if i > len(entries) {
		i = len(entries)
	}
	out := make([]numberedPredicate, 0, len(entries)+1)
	out = append(out, entries[:i]...)
	out = append(out, numberedPredicate{atom: p, count: 1})
	out = append(out, entries[i:]...)
	s.protections[p.Head] = out
}

// IsProtected reports whether p has a positive protection count.
func (s *State) IsProtected(p Predicate) bool {
	if p.Head < 0 || p.Head >= len(s.protections) {
		return false
	}
	for _, e := range s.protections[p.Head] {
		if e.atom.Equal(p) {
			return e.count > 0
		}
	}
	return false
}

// Undo reverts the changes recorded in u, newest first.
func (s *State) Undo(u *Undo) {
	if u == nil {
		return
	}
	for i := len(u.Protected) - 1; i >= 0; i-- {
		s.DelProtection(u.Protected[i])
	}
	for i := len(u.Unprotected) - 1; i >= 0; i-- {
		s.reprotect(u.Unprotected[i].Atom, u.Unprotected[i].Index)
	}
	for i := len(u.Added) - 1; i >= 0; i-- {
		s.Del(u.Added[i])
	}
	for i := len(u.Deleted) - 1; i >= 0; i-- {
		s.undel(u.Deleted[i].Atom, u.Deleted[i].Index)
	}
}

// Format renders the facts one per line.
func (s *State) Format(names Names) string {
	var sb strings.Builder
	for _, p := range s.Atoms() {
		sb.WriteString(p.Format(names))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (s *State) String() string { return s.Format(nil) }
