package htn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateAddIsIdempotent(t *testing.T) {
	s := NewState(2)
	assert.True(t, s.Add(fact(symAt, Const(symR1))))
	assert.False(t, s.Add(fact(symAt, Const(symR1))))
	assert.Equal(t, 1, s.Len())

	// Buckets grow past the initial size.
	assert.True(t, s.Add(fact(symMove, Const(symA))))
	assert.True(t, s.Contains(fact(symMove, Const(symA))))
}

func TestStateLoadRejectsNonGround(t *testing.T) {
	s := NewState(symCount)
	err := s.Load(fact(symAt, Const(symR1)), NewPredicate(symAt, 1, Var(0)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonGroundAtom)
	assert.Equal(t, 1, s.Len())
}

func TestDeleteUndoRestoresOrder(t *testing.T) {
	atoms := []Predicate{
		fact(symAt, Const(symA)),
		fact(symAt, Const(symB)),
		fact(symAt, Const(symC)),
		fact(symAt, Const(symR1)),
	}
	for i := range atoms {
		t.Run(FormatTerm(atoms[i].Params.Items[0], testNames), func(t *testing.T) {
			ev := newTestEvaluator(nil, atoms...)
			before := ev.State.Facts(symAt)

			u, ok := ev.Apply(NewBinding(0), []Effect{&AtomicEffect{Atom: atoms[i]}}, nil)
			require.True(t, ok)
			require.Len(t, u.Deleted, 1)
			assert.Equal(t, i, u.Deleted[0].Index)
			assert.False(t, ev.State.Contains(atoms[i]))

			ev.Undo(u)
			assert.Equal(t, before, ev.State.Facts(symAt))
		})
	}
}

func TestApplyThenUndoIsExact(t *testing.T) {
	ev := newTestEvaluator(nil,
		fact(symAt, Const(symA)),
		fact(symAt, Const(symB)),
		fact(symRoom, Const(symA)),
	)
	before := ev.State.Atoms()

	del := []Effect{&AtomicEffect{Atom: fact(symAt, Const(symA))}, &AtomicEffect{Atom: fact(symRoom, Const(symA))}}
	add := []Effect{
		&AtomicEffect{Atom: fact(symAt, Const(symA))},
		&AtomicEffect{Atom: fact(symAt, Const(symC))},
		&ProtectionEffect{Atom: fact(symAt, Const(symC))},
	}
	u, ok := ev.Apply(NewBinding(0), del, add)
	require.True(t, ok)
	assert.Equal(t, []Predicate{fact(symAt, Const(symB)), fact(symAt, Const(symA)), fact(symAt, Const(symC))}, ev.State.Facts(symAt))
	assert.True(t, ev.State.IsProtected(fact(symAt, Const(symC))))

	ev.Undo(u)
	assert.Equal(t, before, ev.State.Atoms())
	assert.False(t, ev.State.IsProtected(fact(symAt, Const(symC))))
}

func TestProtectionCounts(t *testing.T) {
	s := NewState(symCount)
	p := fact(symAt, Const(symR1))
	assert.False(t, s.DelProtection(p), "unprotecting an unprotected atom is a no-op")

	s.AddProtection(p)
	s.AddProtection(p)
	assert.True(t, s.IsProtected(p))
	assert.True(t, s.DelProtection(p))
	assert.True(t, s.IsProtected(p))
	assert.True(t, s.DelProtection(p))
	assert.False(t, s.IsProtected(p))
}

func protected(s *State, head int) []Predicate {
	var out []Predicate
	for _, e := range s.protections[head] {
		out = append(out, e.atom)
	}
	return out
}

func TestUndoUnprotectRestoresOrder(t *testing.T) {
	ev := newTestEvaluator(nil)
	for _, r := range []int{symR1, symR2, symA} {
		ev.State.AddProtection(fact(symAt, Const(r)))
	}
	ev.State.AddProtection(fact(symAt, Const(symA)))
	before := protected(ev.State, symAt)

	del := []Effect{
		&ProtectionEffect{Atom: fact(symAt, Const(symR1))},
		&ProtectionEffect{Atom: fact(symAt, Const(symA))},
	}
	u, ok := ev.Apply(NewBinding(0), del, nil)
	require.True(t, ok)
	assert.Equal(t, []Predicate{fact(symAt, Const(symR2)), fact(symAt, Const(symA))}, protected(ev.State, symAt))
	require.Len(t, u.Unprotected, 2)
	assert.Equal(t, 0, u.Unprotected[0].Index)
	assert.Equal(t, -1, u.Unprotected[1].Index, "a is still protected once")

	ev.Undo(u)
	assert.Equal(t, before, protected(ev.State, symAt))
	assert.Equal(t, 2, ev.State.protections[symAt][2].count)
}

func TestProtectedDeleteFails(t *testing.T) {
	ev := newTestEvaluator(nil, fact(symAt, Const(symR1)), fact(symAt, Const(symR2)))
	ev.State.AddProtection(fact(symAt, Const(symR2)))

	del := []Effect{
		&AtomicEffect{Atom: fact(symAt, Const(symR1))},
		&AtomicEffect{Atom: fact(symAt, Const(symR2))},
	}
	u, ok := ev.Apply(NewBinding(0), del, []Effect{&AtomicEffect{Atom: fact(symLit, Const(symR1))}})
	require.False(t, ok)

	// The deletion applied before the failure is not rolled back, and the
	// add list never ran.
	assert.False(t, ev.State.Contains(fact(symAt, Const(symR1))))
	assert.False(t, ev.State.Contains(fact(symLit, Const(symR1))))
	require.Len(t, u.Deleted, 1)

	// The partial record is enough to restore the state.
	ev.Undo(u)
	assert.Equal(t, []Predicate{fact(symAt, Const(symR1)), fact(symAt, Const(symR2))}, ev.State.Facts(symAt))
}

func TestProtectedDeleteInsideForAll(t *testing.T) {
	ev := newTestEvaluator(nil,
		fact(symRoom, Const(symR1)),
		fact(symRoom, Const(symR2)),
		fact(symLit, Const(symR1)),
		fact(symLit, Const(symR2)),
	)
	ev.State.AddProtection(fact(symLit, Const(symR2)))
	before := ev.State.Atoms()

	del := []Effect{&ForAllEffect{
		Pre:   &Atomic{Pred: NewPredicate(symRoom, 1, Var(0))},
		Atoms: []Predicate{NewPredicate(symLit, 1, Var(0))},
	}}
	u, ok := ev.Apply(NewBinding(1), del, nil)
	require.False(t, ok)
	assert.False(t, ev.State.Contains(fact(symLit, Const(symR1))), "earlier forall deletions stay applied")

	ev.Undo(u)
	assert.Equal(t, before, ev.State.Atoms())
}

func TestForAllEffect(t *testing.T) {
	ev := newTestEvaluator(nil,
		fact(symRoom, Const(symR1)),
		fact(symRoom, Const(symR2)),
		fact(symLit, Const(symR1)),
	)
	add := []Effect{&ForAllEffect{
		Pre:   &Atomic{Pred: NewPredicate(symRoom, 1, Var(0))},
		Atoms: []Predicate{NewPredicate(symLit, 1, Var(0))},
	}}
	u, ok := ev.Apply(NewBinding(1), nil, add)
	require.True(t, ok)
	assert.Equal(t, []Predicate{fact(symLit, Const(symR2))}, u.Added, "existing facts are not recorded")
	assert.Len(t, ev.State.Facts(symLit), 2)
}

func moveOperator() *Operator {
	return &Operator{
		Head: NewPredicate(0, 2, Var(0), Var(1)),
		Pre:  &LogicalPrecondition{Expr: &Atomic{Pred: NewPredicate(symAt, 2, Var(0))}},
		Del:  []Effect{&AtomicEffect{Atom: NewPredicate(symAt, 2, Var(0))}},
		Add:  []Effect{&AtomicEffect{Atom: NewPredicate(symAt, 2, Var(1))}},
	}
}

func TestMoveScenario(t *testing.T) {
	d := NewDomain("move")
	d.Constants = testNames
	d.PrimitiveTasks = []string{"!move"}
	op := moveOperator()
	d.AddOperator(op)
	ev := newTestEvaluator(d, fact(symAt, Const(symR1)))

	step := func(from, to int) *Undo {
		t.Helper()
		b := op.Unify(NewPredicate(0, 0, Const(from), Const(to)))
		require.NotNil(t, b)
		pre := op.Iterator(ev, b, 0)
		pre.Reset()
		delta := pre.NextBinding()
		require.NotNil(t, delta, "precondition of move %d %d", from, to)
		u, ok := op.Apply(ev, Merge(delta, b))
		require.True(t, ok)
		return u
	}

	u1 := step(symR1, symR2)
	assert.Equal(t, []Predicate{fact(symAt, Const(symR2))}, ev.State.Atoms())

	u2 := step(symR2, symR1)
	assert.Equal(t, []Predicate{fact(symAt, Const(symR1))}, ev.State.Atoms())

	ev.Undo(u2)
	ev.Undo(u1)
	assert.Equal(t, []Predicate{fact(symAt, Const(symR1))}, ev.State.Atoms())

	inst, cost, err := op.Instance(Binding{Const(symR1), Const(symR2)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, cost)
	assert.Equal(t, "(!move r1 r2)", d.FormatTask(inst, true))
}
