package planner_test

import (
	"context"
	"fmt"

	"github.com/gitrdm/gokanplan/pkg/htn"
	"github.com/gitrdm/gokanplan/pkg/planner"
)

// ExamplePlanner_FindPlans plans a single move.
func ExamplePlanner_FindPlans() {
	const (
		at = iota
		r1
		r2
	)
	d := htn.NewDomain("rooms")
	d.Constants = []string{"at", "r1", "r2"}
	d.PrimitiveTasks = []string{"!move"}
	d.AddOperator(&htn.Operator{
		Head: htn.NewPredicate(0, 2, htn.Var(0), htn.Var(1)),
		Pre:  &htn.LogicalPrecondition{Expr: &htn.Atomic{Pred: htn.NewPredicate(at, 2, htn.Var(0))}},
		Del:  []htn.Effect{&htn.AtomicEffect{Atom: htn.NewPredicate(at, 2, htn.Var(0))}},
		Add:  []htn.Effect{&htn.AtomicEffect{Atom: htn.NewPredicate(at, 2, htn.Var(1))}},
	})

	state := d.NewState()
	_ = state.Load(htn.NewPredicate(at, 0, htn.Const(r1)))
	task := htn.NewTask(&htn.TaskAtom{
		Pred:      htn.NewPredicate(0, 0, htn.Const(r1), htn.Const(r2)),
		Primitive: true,
	})

	plans, err := planner.New(d, nil).FindPlans(context.Background(), state, htn.NewTaskList(true, task))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Print(plans[0].Format(d))
	// Output:
	// (!move r1 r2)
	// cost 1
}
