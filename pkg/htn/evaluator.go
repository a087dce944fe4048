package htn

import "fmt"

// DefaultMaxDepth bounds the nesting of precondition evaluation when an
// Evaluator is created with NewEvaluator.
const DefaultMaxDepth = 10000

// Evaluator is the shared context of every precondition it compiles: the
// state facts are read from, the domain axioms are taken from, and a
// recursion-depth guard.
//
// Axioms may call each other recursively, so evaluation depth is bounded.
// When MaxDepth is exceeded the evaluator records ErrDepthExceeded; from
// then on every node reports exhaustion and negations fail, so the search
// unwinds without producing results that depend on the truncation. The
// error is sticky and is reported by Err.
//
// An Evaluator is not safe for concurrent use.
type Evaluator struct {
	State    *State
	Domain   *Domain
	MaxDepth int
	Monitor  Monitor

	depth int
	peak  int
	err   error
}

// NewEvaluator creates an evaluator over d and s with DefaultMaxDepth.
func NewEvaluator(d *Domain, s *State) *Evaluator {
	return &Evaluator{State: s, Domain: d, MaxDepth: DefaultMaxDepth}
}

// Err returns the error that stopped evaluation, if any.
func (ev *Evaluator) Err() error { return ev.err }

// ClearErr forgets a previous error so the evaluator can be reused.
func (ev *Evaluator) ClearErr() {
	ev.err = nil
	ev.depth = 0
}

// Depth returns the current evaluation depth.
func (ev *Evaluator) Depth() int { return ev.depth }

func (ev *Evaluator) enter() bool {
	if ev.err != nil {
		return false
	}
	ev.depth++
	if ev.MaxDepth > 0 && ev.depth > ev.MaxDepth {
		ev.depth--
		ev.err = fmt.Errorf("%w: limit %d", ErrDepthExceeded, ev.MaxDepth)
		return false
	}
	if ev.depth > ev.peak {
		ev.peak = ev.depth
		if ev.Monitor != nil {
			ev.Monitor.RecordDepth(ev.depth)
		}
	}
	return true
}

func (ev *Evaluator) leave() { ev.depth-- }

func (ev *Evaluator) observe(kind NodeKind) {
	if ev.Monitor != nil {
		ev.Monitor.RecordBinding(kind)
	}
}

func (ev *Evaluator) mutated(op Mutation) {
	if ev.Monitor != nil {
		ev.Monitor.RecordMutation(op)
	}
}

// Compile builds the runtime node tree of lp with b as its initial
// context. A nil precondition is always satisfied once.
func (ev *Evaluator) Compile(lp *LogicalPrecondition, b Binding) Precondition {
	if lp == nil {
		return ev.build(nil, b, false)
	}
	if lp.Sort != nil {
		inner := ev.build(lp.Expr, b, false)
		return &sortNode{base: base{ev: ev, init: b, ctx: b}, inner: inner, cmp: ev.comparator(lp.Sort)}
	}
	return ev.build(lp.Expr, b, lp.First)
}

// CompileExpr builds the node tree of a bare expression.
func (ev *Evaluator) CompileExpr(e Expr, b Binding) Precondition {
	return ev.build(e, b, false)
}

func (ev *Evaluator) build(e Expr, init Binding, first bool) Precondition {
	b := base{ev: ev, init: init, ctx: init, first: first}
	switch x := e.(type) {
	case nil, *NilExpr:
		b.first = true
		return &nilNode{base: b}
	case *Atomic:
		return &atomicNode{base: b, pred: x.Pred}
	case *Not:
		b.first = true
		return &notNode{base: b, inner: ev.build(x.X, init, false)}
	case *ForAll:
		b.first = true
		return &forAllNode{
			base:        b,
			premise:     ev.build(x.Premise, init, false),
			consequence: ev.build(x.Consequence, init, false),
		}
	case *Assign:
		b.first = true
		return &assignNode{base: b, v: x.Var, term: x.Term}
	case *CallExpr:
		b.first = true
		return &callNode{base: b, call: x.Call}
	case *And:
		if len(x.Xs) == 0 {
			b.first = true
			return &nilNode{base: b}
		}
		parts := make([]Precondition, len(x.Xs))
		for i, sub := range x.Xs {
			parts[i] = ev.build(sub, init, false)
		}
		return &andNode{base: b, parts: parts}
	case *Or:
		parts := make([]Precondition, len(x.Xs))
		for i, sub := range x.Xs {
			parts[i] = ev.build(sub, init, false)
		}
		return &orNode{base: b, parts: parts}
	default:
		panic(fmt.Sprintf("htn: unknown expression type %T", e))
	}
}

func (ev *Evaluator) comparator(s *SortSpec) Comparator {
	if s.Comparator != nil {
		return s.Comparator
	}
	switch s.Name {
	case "", "less":
		return CompLess(s.Var)
	case "more":
		return CompMore(s.Var)
	}
	if ev.Domain != nil && ev.Domain.Registry != nil {
		if f, ok := ev.Domain.Registry.Comparator(s.Name); ok {
			return f(s.Var)
		}
	}
	panic(&NativeError{Name: s.Name, Err: ErrUnknownFunction})
}
