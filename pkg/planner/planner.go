// Package planner is a depth-first HTN search driver over the htn runtime.
//
// It decomposes a task list the way SHOP does: ordered lists expose their
// first pending task, unordered lists expose every pending task, and an
// :immediate task is chosen ahead of its siblings. Compound tasks are
// decomposed by the first method branch whose precondition holds;
// primitive tasks are achieved by applying an operator to the state.
// Every state change is undone on the way back, so the state passed to
// FindPlans is left as it was found.
//
// The search runs on a dedicated goroutine (see internal/worker) so that
// native functions that panic abort the run with an error instead of
// crashing the process.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gitrdm/gokanplan/internal/worker"
	"github.com/gitrdm/gokanplan/pkg/htn"
)

var (
	// ErrNoPlan is returned when the search space is exhausted without a plan.
	ErrNoPlan = errors.New("planner: no plan found")
	// ErrInvalidInput is returned for a nil domain, state or task list.
	ErrInvalidInput = errors.New("planner: invalid input")
)

// Config controls a search.
type Config struct {
	// MaxDepth bounds both precondition nesting and decomposition depth.
	// Zero disables the bound.
	MaxDepth int
	// MaxStack is the goroutine stack limit of the search worker in bytes.
	MaxStack int
	// AllPlans keeps searching after the first plan.
	AllPlans bool
	// PlanLimit caps the number of plans collected when AllPlans is set.
	// Zero means no cap.
	PlanLimit int
}

// DefaultConfig returns the configuration used by New when cfg is nil.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth:  htn.DefaultMaxDepth,
		MaxStack:  worker.DefaultMaxStack,
		PlanLimit: 1,
	}
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// WithMonitor attaches a monitor to every evaluator the planner creates.
func WithMonitor(m htn.Monitor) Option {
	return func(p *Planner) { p.monitor = m }
}

// Planner finds plans for task lists of one domain.
type Planner struct {
	domain  *htn.Domain
	cfg     Config
	logger  *slog.Logger
	monitor htn.Monitor
}

// New creates a planner for d.
func New(d *htn.Domain, cfg *Config, opts ...Option) *Planner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := &Planner{
		domain: d,
		cfg:    *cfg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FindPlans searches for plans achieving tasks from state. It returns
// ErrNoPlan when none exists. When the search stops early, because ctx
// was cancelled or a native function failed, the plans found so far are
// returned together with the error.
func (p *Planner) FindPlans(ctx context.Context, state *htn.State, tasks *htn.TaskList) ([]*htn.Plan, error) {
	if p.domain == nil || state == nil || tasks == nil {
		return nil, ErrInvalidInput
	}

	runID := uuid.NewString()
	log := p.logger.With("run_id", runID, "domain", p.domain.Name)
	log.Debug("search started", "tasks", tasks.Format(p.domain), "atoms", state.Len())
	start := time.Now()

	ev := htn.NewEvaluator(p.domain, state)
	ev.MaxDepth = p.cfg.MaxDepth
	ev.Monitor = p.monitor
	s := &search{
		cfg:  p.cfg,
		ev:   ev,
		plan: &htn.Plan{},
		mon:  p.monitor,
	}

	err := worker.Run(ctx, p.cfg.MaxStack, func(ctx context.Context) error {
		s.ctx = ctx
		_, err := s.solve(tasks, 0)
		return err
	})
	if err != nil {
		log.Warn("search aborted", "error", err, "plans", len(s.plans), "elapsed", time.Since(start))
		return s.plans, fmt.Errorf("search %s: %w", runID, err)
	}
	if len(s.plans) == 0 {
		log.Info("search exhausted", "elapsed", time.Since(start))
		return nil, ErrNoPlan
	}
	log.Info("plans found", "plans", len(s.plans), "cost", s.plans[0].Cost, "elapsed", time.Since(start))
	return s.plans, nil
}

// search holds the mutable state of one FindPlans call.
type search struct {
	ctx   context.Context
	cfg   Config
	ev    *htn.Evaluator
	mon   htn.Monitor
	plan  *htn.Plan
	plans []*htn.Plan
}

// done reports whether enough plans have been collected.
func (s *search) done() bool {
	if !s.cfg.AllPlans {
		return len(s.plans) > 0
	}
	return s.cfg.PlanLimit > 0 && len(s.plans) >= s.cfg.PlanLimit
}

// solve returns true once the search should stop.
func (s *search) solve(tl *htn.TaskList, depth int) (bool, error) {
	if err := s.ctx.Err(); err != nil {
		return true, err
	}
	if s.cfg.MaxDepth > 0 && depth > s.cfg.MaxDepth {
		return true, fmt.Errorf("%w: decomposition deeper than %d", htn.ErrDepthExceeded, s.cfg.MaxDepth)
	}
	if tl.IsEmpty() {
		s.plans = append(s.plans, s.plan.Clone())
		if s.mon != nil {
			s.mon.RecordPlan()
		}
		return s.done(), nil
	}

	for _, leaf := range preferImmediate(firstTasks(tl)) {
		var (
			stop bool
			err  error
		)
		if leaf.Atom.Primitive {
			stop, err = s.achieve(tl, leaf, depth)
		} else {
			stop, err = s.decompose(tl, leaf, depth)
		}
		if stop || err != nil {
			return stop, err
		}
	}
	return false, nil
}

// achieve tries every operator instance for a primitive task.
func (s *search) achieve(tl, leaf *htn.TaskList, depth int) (bool, error) {
	task := leaf.Atom.Pred
	rest := replace(tl, leaf, nil)
	for _, op := range s.ev.Domain.OperatorsFor(task.Head) {
		b := op.Unify(task)
		if b == nil {
			continue
		}
		it := op.Iterator(s.ev, b, 0)
		it.Reset()
		for {
			if err := s.ctx.Err(); err != nil {
				return true, err
			}
			delta := it.NextBinding()
			if delta == nil {
				break
			}
			full := htn.Merge(b, delta)
			inst, cost, err := op.Instance(full)
			if err != nil {
				return true, err
			}

			undo, ok := op.Apply(s.ev, full)
			stop := false
			if ok {
				s.plan.Push(inst, cost)
				stop, err = s.solve(rest, depth+1)
				s.plan.Pop()
			}
			s.ev.Undo(undo)
			if s.mon != nil {
				s.mon.RecordBacktrack()
			}
			if stop || err != nil {
				return stop, err
			}
		}
		if err := s.ev.Err(); err != nil {
			return true, err
		}
	}
	return false, nil
}

// decompose tries the methods of a compound task. Within a method only
// the first branch whose precondition holds is explored.
func (s *search) decompose(tl, leaf *htn.TaskList, depth int) (bool, error) {
	task := leaf.Atom.Pred
	for _, m := range s.ev.Domain.MethodsFor(task.Head) {
		b := m.Unify(task)
		if b == nil {
			continue
		}
		for i, br := range m.Branches {
			it := m.Iterator(s.ev, b, i)
			it.Reset()
			matched := false
			for {
				if err := s.ctx.Err(); err != nil {
					return true, err
				}
				delta := it.NextBinding()
				if delta == nil {
					break
				}
				matched = true
				sub := br.Subtasks.ApplySubstitution(htn.Merge(b, delta))
				stop, err := s.solve(replace(tl, leaf, sub), depth+1)
				if stop || err != nil {
					return stop, err
				}
			}
			if err := s.ev.Err(); err != nil {
				return true, err
			}
			if matched {
				break
			}
		}
	}
	return false, nil
}
