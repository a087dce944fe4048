package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/gokanplan/pkg/htn"
)

const (
	at = iota
	visited
	r1
	r2
	r3
)

// Task ids.
const (
	opMove = iota
	opMark
	opFail

	taskGo = 0
)

func roomsDomain() *htn.Domain {
	d := htn.NewDomain("rooms")
	d.Constants = []string{"at", "visited", "r1", "r2", "r3"}
	d.PrimitiveTasks = []string{"!move", "!mark", "!fail"}
	d.CompoundTasks = []string{"go"}

	d.AddOperator(&htn.Operator{
		Head: htn.NewPredicate(opMove, 2, htn.Var(0), htn.Var(1)),
		Pre:  &htn.LogicalPrecondition{Expr: &htn.Atomic{Pred: htn.NewPredicate(at, 2, htn.Var(0))}},
		Del:  []htn.Effect{&htn.AtomicEffect{Atom: htn.NewPredicate(at, 2, htn.Var(0))}},
		Add:  []htn.Effect{&htn.AtomicEffect{Atom: htn.NewPredicate(at, 2, htn.Var(1))}},
		Cost: htn.Number(2),
	})
	d.AddOperator(&htn.Operator{
		Head: htn.NewPredicate(opMark, 1, htn.Var(0)),
		Add:  []htn.Effect{&htn.AtomicEffect{Atom: htn.NewPredicate(visited, 1, htn.Var(0))}},
	})
	d.AddOperator(&htn.Operator{
		Head: htn.NewPredicate(opFail, 1, htn.Var(0)),
		Pre: &htn.LogicalPrecondition{Expr: &htn.CallExpr{
			Call: htn.NewCall("distance", d.Registry.Resolve("distance"), htn.Var(0)),
		}},
	})

	// (go ?to): done if already there, otherwise move from wherever we are.
	d.AddMethod(&htn.Method{
		Head: htn.NewPredicate(taskGo, 2, htn.Var(0)),
		Branches: []htn.MethodBranch{
			{
				Label:    "there",
				Pre:      &htn.LogicalPrecondition{Expr: &htn.Atomic{Pred: htn.NewPredicate(at, 2, htn.Var(0))}},
				Subtasks: htn.EmptyTaskList(),
			},
			{
				Label:    "walk",
				Pre:      &htn.LogicalPrecondition{Expr: &htn.Atomic{Pred: htn.NewPredicate(at, 2, htn.Var(1))}},
				Subtasks: htn.NewTaskList(true, prim(opMove, htn.Var(1), htn.Var(0))),
			},
		},
	})
	return d
}

func prim(head int, args ...htn.Term) *htn.TaskList {
	return htn.NewTask(&htn.TaskAtom{Pred: htn.NewPredicate(head, 2, args...), Primitive: true})
}

func compound(head int, args ...htn.Term) *htn.TaskList {
	return htn.NewTask(&htn.TaskAtom{Pred: htn.NewPredicate(head, 2, args...)})
}

func startAt(t *testing.T, d *htn.Domain, room int) *htn.State {
	t.Helper()
	s := d.NewState()
	require.NoError(t, s.Load(htn.NewPredicate(at, 0, htn.Const(room))))
	return s
}

func steps(d *htn.Domain, p *htn.Plan) []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = d.FormatTask(s.Op, true)
	}
	return out
}

func TestFindPlansMove(t *testing.T) {
	d := roomsDomain()
	state := startAt(t, d, r1)

	plans, err := New(d, nil).FindPlans(context.Background(), state,
		htn.NewTaskList(true, prim(opMove, htn.Const(r1), htn.Const(r2))))
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, []string{"(!move r1 r2)"}, steps(d, plans[0]))
	assert.Equal(t, 2.0, plans[0].Cost)

	assert.Equal(t, []htn.Predicate{htn.NewPredicate(at, 0, htn.Const(r1))}, state.Atoms(),
		"search leaves the state unchanged")
}

func TestFindPlansMethodBranches(t *testing.T) {
	tests := []struct {
		name  string
		start int
		want  []string
	}{
		{"first branch holds", r2, []string{}},
		{"falls through to second", r1, []string{"(!move r1 r2)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := roomsDomain()
			plans, err := New(d, nil).FindPlans(context.Background(), startAt(t, d, tt.start),
				htn.NewTaskList(true, compound(taskGo, htn.Const(r2))))
			require.NoError(t, err)
			require.Len(t, plans, 1)
			assert.Equal(t, tt.want, steps(d, plans[0]))
		})
	}
}

func TestFindPlansOrderedSequence(t *testing.T) {
	d := roomsDomain()
	tasks := htn.NewTaskList(true,
		compound(taskGo, htn.Const(r2)),
		prim(opMark, htn.Const(r2)),
		compound(taskGo, htn.Const(r3)),
	)
	plans, err := New(d, nil).FindPlans(context.Background(), startAt(t, d, r1), tasks)
	require.NoError(t, err)
	assert.Equal(t, []string{"(!move r1 r2)", "(!mark r2)", "(!move r2 r3)"}, steps(d, plans[0]))
	assert.Equal(t, 5.0, plans[0].Cost)
}

func TestFindPlansUnordered(t *testing.T) {
	d := roomsDomain()
	cfg := DefaultConfig()
	cfg.AllPlans = true
	cfg.PlanLimit = 0

	tasks := htn.NewTaskList(false, prim(opMark, htn.Const(r1)), prim(opMark, htn.Const(r2)))
	plans, err := New(d, cfg).FindPlans(context.Background(), startAt(t, d, r1), tasks)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, []string{"(!mark r1)", "(!mark r2)"}, steps(d, plans[0]))
	assert.Equal(t, []string{"(!mark r2)", "(!mark r1)"}, steps(d, plans[1]))

	cfg.PlanLimit = 1
	plans, err = New(d, cfg).FindPlans(context.Background(), startAt(t, d, r1), tasks)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestFindPlansImmediateFirst(t *testing.T) {
	d := roomsDomain()
	cfg := DefaultConfig()
	cfg.AllPlans = true
	cfg.PlanLimit = 0

	urgent := prim(opMark, htn.Const(r2))
	urgent.Atom.Immediate = true
	tasks := htn.NewTaskList(false, prim(opMark, htn.Const(r1)), urgent)

	plans, err := New(d, cfg).FindPlans(context.Background(), startAt(t, d, r1), tasks)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, []string{"(!mark r2)", "(!mark r1)"}, steps(d, plans[0]))
}

func TestFindPlansNoPlan(t *testing.T) {
	d := roomsDomain()
	state := startAt(t, d, r1)
	plans, err := New(d, nil).FindPlans(context.Background(), state,
		htn.NewTaskList(true, prim(opMark, htn.Const(r3)), prim(opMove, htn.Const(r2), htn.Const(r3))))
	assert.ErrorIs(t, err, ErrNoPlan)
	assert.Empty(t, plans)
	assert.Equal(t, 1, state.Len(), "failed branch was undone")
}

func TestFindPlansInvalidInput(t *testing.T) {
	d := roomsDomain()
	_, err := New(d, nil).FindPlans(context.Background(), nil, htn.EmptyTaskList())
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = New(nil, nil).FindPlans(context.Background(), d.NewState(), htn.EmptyTaskList())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFindPlansCancelled(t *testing.T) {
	d := roomsDomain()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(d, nil).FindPlans(ctx, startAt(t, d, r1),
		htn.NewTaskList(true, prim(opMark, htn.Const(r1))))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindPlansNativePanic(t *testing.T) {
	d := roomsDomain()
	_, err := New(d, nil).FindPlans(context.Background(), startAt(t, d, r1),
		htn.NewTaskList(true, prim(opFail, htn.Const(r1))))
	require.Error(t, err)

	var native *htn.NativeError
	require.True(t, errors.As(err, &native))
	assert.Equal(t, "distance", native.Name)
	assert.ErrorIs(t, err, htn.ErrUnknownFunction)
}

func TestFindPlansMonitor(t *testing.T) {
	d := roomsDomain()
	stats := htn.NewStatsMonitor()
	_, err := New(d, nil, WithMonitor(stats)).FindPlans(context.Background(), startAt(t, d, r1),
		htn.NewTaskList(true, compound(taskGo, htn.Const(r3))))
	require.NoError(t, err)

	got := stats.GetStats()
	assert.Equal(t, 1, got.Plans)
	assert.Equal(t, 1, got.Backtracks)
	assert.Equal(t, 1, got.Mutations[htn.MutationUndo])
	assert.Positive(t, got.Bindings[htn.KindAtomic])
}

func TestFirstTasks(t *testing.T) {
	a := prim(opMark, htn.Const(r1))
	b := prim(opMark, htn.Const(r2))
	c := prim(opMark, htn.Const(r3))

	ordered := htn.NewTaskList(true, htn.NewTaskList(false, a, b), c)
	assert.Equal(t, []*htn.TaskList{a, b}, firstTasks(ordered))

	rest := replace(ordered, a, nil)
	assert.Equal(t, []*htn.TaskList{b}, firstTasks(rest))
	assert.Same(t, c, rest.Subtasks[1], "untouched subtrees are shared")

	rest = replace(rest, b, nil)
	assert.Equal(t, []*htn.TaskList{c}, firstTasks(rest))
	assert.True(t, replace(rest, c, nil).IsEmpty())
}
