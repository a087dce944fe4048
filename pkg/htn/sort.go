package htn

import "sort"

// Comparator orders two satisfiers. Compare returns a negative number
// when a sorts before b, a positive number when it sorts after, and zero
// when their relative order should be kept.
type Comparator interface {
	Compare(a, b Binding) int
}

// ComparatorFunc adapts a function to the Comparator interface.
type ComparatorFunc func(a, b Binding) int

// Compare invokes f.
func (f ComparatorFunc) Compare(a, b Binding) int { return f(a, b) }

// CompLess orders satisfiers by ascending numeric value of variable v.
// Satisfiers where v is not a number sort last.
func CompLess(v int) Comparator {
	return ComparatorFunc(func(a, b Binding) int { return compareNumbers(a, b, v, false) })
}

// CompMore orders satisfiers by descending numeric value of variable v.
// Satisfiers where v is not a number sort last.
func CompMore(v int) Comparator {
	return ComparatorFunc(func(a, b Binding) int { return compareNumbers(a, b, v, true) })
}

func compareNumbers(a, b Binding, v int, desc bool) int {
	x, xok := slotNumber(a, v)
	y, yok := slotNumber(b, v)
	switch {
	case !xok && !yok:
		return 0
	case !xok:
		return 1
	case !yok:
		return -1
	}
	if desc {
		x, y = y, x
	}
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func slotNumber(b Binding, v int) (float64, bool) {
	if v >= len(b) {
		return 0, false
	}
	n, ok := b[v].(Number)
	return float64(n), ok
}

// sortNode decorates a precondition so that its satisfiers come out in
// comparator order. The inner satisfiers are materialized on the first
// NextBinding after a Reset or Bind.
type sortNode struct {
	base
	inner  Precondition
	cmp    Comparator
	items  []Binding
	pos    int
	loaded bool
}

func (s *sortNode) Reset() {
	s.resetBase()
	s.inner.Reset()
	s.items = nil
	s.pos = 0
	s.loaded = false
}

func (s *sortNode) Bind(b Binding) {
	s.base.Bind(b)
	s.loaded = false
}

func (s *sortNode) NextBinding() Binding {
	return s.step(KindSort, func() Binding {
		if !s.loaded {
			s.load()
		}
		if s.pos >= len(s.items) {
			return nil
		}
		d := s.items[s.pos]
		s.pos++
		return d
	})
}

func (s *sortNode) load() {
	s.loaded = true
	s.items = s.items[:0]
	s.pos = 0
	s.inner.Reset()
	s.inner.Bind(s.ctx)
	var full []Binding
	for d := s.inner.NextBinding(); d != nil; d = s.inner.NextBinding() {
		s.items = append(s.items, d)
		full = append(full, Merge(d, s.ctx))
	}
	idx := make([]int, len(s.items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return s.cmp.Compare(full[idx[i]], full[idx[j]]) < 0
	})
	sorted := make([]Binding, len(idx))
	for i, k := range idx {
		sorted[i] = s.items[k]
	}
	s.items = sorted
}
