package htn

import (
	"fmt"
	"strings"
)

// PlanStep is one ground operator instance of a plan.
type PlanStep struct {
	Op   Predicate
	Cost float64
}

// Plan is a sequence of operator instances with their total cost.
type Plan struct {
	Steps []PlanStep
	Cost  float64
}

// Push appends a step.
func (p *Plan) Push(op Predicate, cost float64) {
	p.Steps = append(p.Steps, PlanStep{Op: op, Cost: cost})
	p.Cost += cost
}

// Pop removes the last step.
func (p *Plan) Pop() {
	last := p.Steps[len(p.Steps)-1]
	p.Steps = p.Steps[:len(p.Steps)-1]
	p.Cost -= last.Cost
}

// Len returns the number of steps.
func (p *Plan) Len() int { return len(p.Steps) }

// Clone returns an independent copy of p.
func (p *Plan) Clone() *Plan {
	steps := make([]PlanStep, len(p.Steps))
	copy(steps, p.Steps)
	return &Plan{Steps: steps, Cost: p.Cost}
}

// Format renders the plan one step per line, followed by its cost.
func (p *Plan) Format(d *Domain) string {
	var sb strings.Builder
	for _, s := range p.Steps {
		if d != nil {
			sb.WriteString(d.FormatTask(s.Op, true))
		} else {
			sb.WriteString(s.Op.String())
		}
		if s.Cost != 1 {
			fmt.Fprintf(&sb, " [%g]", s.Cost)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "cost %g\n", p.Cost)
	return sb.String()
}

func (p *Plan) String() string { return p.Format(nil) }
