package htn

// Precondition lazily enumerates the satisfiers of a logical expression
// against the evaluator's state.
//
// # Protocol
//
// A node is built by Evaluator.Compile with an initial binding, usually
// the unifier of an element head with a task or query. Its lifecycle is:
//
//	Reset()            restore the initial context, reset children
//	Bind(b)*           enrich the context; earlier values win
//	NextBinding()*     next satisfier, or nil when exhausted
//
// The bindings returned are deltas: they hold only the variables the node
// itself bound, not the context it was evaluated in. Callers merge them
// with their own context.
//
// Deterministic nodes (negation, forall, assign, call, nil, and any node
// marked first) yield at most one satisfier between two resets.
type Precondition interface {
	Reset()
	Bind(b Binding)
	NextBinding() Binding
}

// base carries the context shared by every node variant.
type base struct {
	ev    *Evaluator
	init  Binding
	ctx   Binding
	first bool
	done  bool
}

func (n *base) resetBase() {
	n.ctx = n.init
	n.done = false
}

func (n *base) Bind(b Binding) {
	n.ctx = Merge(n.ctx, b)
}

func (n *base) empty() Binding {
	return NewBinding(len(n.init))
}

// step runs one enumeration step under the depth guard.
func (n *base) step(kind NodeKind, next func() Binding) Binding {
	if n.done || !n.ev.enter() {
		return nil
	}
	defer n.ev.leave()
	r := next()
	if r == nil || n.ev.err != nil {
		n.done = true
		return nil
	}
	if n.first {
		n.done = true
	}
	n.ev.observe(kind)
	return r
}

// atomicNode enumerates the state facts unifying with its predicate, then
// the instances proven by axioms with the same head.
type atomicNode struct {
	base
	pred  Predicate
	query *Predicate

	fact int

	axiom     int
	branch    int
	axBinding Binding
	branchPre Precondition
	branchHit bool
}

func (a *atomicNode) Reset() {
	a.resetBase()
	a.query = nil
	a.fact = 0
	a.axiom = 0
	a.branch = 0
	a.axBinding = nil
	a.branchPre = nil
	a.branchHit = false
}

func (a *atomicNode) Bind(b Binding) {
	a.base.Bind(b)
	a.query = nil
}

func (a *atomicNode) NextBinding() Binding {
	return a.step(KindAtomic, a.next)
}

func (a *atomicNode) next() Binding {
	if a.query == nil {
		q := a.pred.ApplySubstitution(a.ctx)
		a.query = &q
	}
	q := *a.query
	facts := a.ev.State.facts(q.Head)
	for a.fact < len(facts) {
		f := facts[a.fact]
		a.fact++
		b := a.empty()
		if q.Unify(f, b) {
			return b
		}
	}
	return a.fromAxioms(q)
}

// fromAxioms proves q through the axioms of its head. The branches of one
// axiom are tried in order and the first branch with any satisfier is the
// only one used.
func (a *atomicNode) fromAxioms(q Predicate) Binding {
	if a.ev.Domain == nil {
		return nil
	}
	axioms := a.ev.Domain.AxiomsFor(q.Head)
	for a.axiom < len(axioms) {
		ax := axioms[a.axiom]
		if a.branchPre == nil {
			if a.axBinding == nil {
				ab := NewBinding(ax.Head.VarCount)
				if !ax.Head.Match(q, ab) {
					a.nextAxiom()
					continue
				}
				a.axBinding = ab
				a.branchHit = false
			}
			if a.branch >= len(ax.Branches) {
				a.nextAxiom()
				continue
			}
			a.branchPre = ax.Iterator(a.ev, a.axBinding, a.branch)
			a.branchPre.Reset()
		}
		d := a.branchPre.NextBinding()
		if d == nil {
			a.branchPre = nil
			if a.branchHit || a.ev.err != nil {
				a.nextAxiom()
			} else {
				a.branch++
			}
			continue
		}
		a.branchHit = true
		inst := ax.Head.ApplySubstitution(Merge(d, a.axBinding))
		if !inst.IsGround() {
			continue
		}
		b := a.empty()
		if q.Unify(inst, b) {
			return b
		}
	}
	return nil
}

func (a *atomicNode) nextAxiom() {
	a.axiom++
	a.branch = 0
	a.axBinding = nil
	a.branchPre = nil
	a.branchHit = false
}

// notNode succeeds with an empty binding iff its operand has no satisfier.
type notNode struct {
	base
	inner Precondition
}

func (n *notNode) Reset() {
	n.resetBase()
	n.inner.Reset()
}

func (n *notNode) NextBinding() Binding {
	return n.step(KindNegation, func() Binding {
		n.inner.Reset()
		n.inner.Bind(n.ctx)
		if n.inner.NextBinding() != nil || n.ev.err != nil {
			return nil
		}
		return n.empty()
	})
}

// forAllNode succeeds iff every satisfier of the premise also satisfies
// the consequence.
type forAllNode struct {
	base
	premise     Precondition
	consequence Precondition
}

func (f *forAllNode) Reset() {
	f.resetBase()
	f.premise.Reset()
	f.consequence.Reset()
}

func (f *forAllNode) NextBinding() Binding {
	return f.step(KindForAll, func() Binding {
		f.premise.Reset()
		f.premise.Bind(f.ctx)
		for d := f.premise.NextBinding(); d != nil; d = f.premise.NextBinding() {
			f.consequence.Reset()
			f.consequence.Bind(Merge(f.ctx, d))
			if f.consequence.NextBinding() == nil {
				return nil
			}
		}
		if f.ev.err != nil {
			return nil
		}
		return f.empty()
	})
}

// assignNode binds a variable to the value of a term. An already bound
// variable must hold an equal value.
type assignNode struct {
	base
	v    int
	term Term
}

func (n *assignNode) Reset() { n.resetBase() }

func (n *assignNode) NextBinding() Binding {
	return n.step(KindAssign, func() Binding {
		value := n.term.Bind(n.ctx)
		if cur := n.ctx[n.v]; cur != nil {
			if !cur.Equal(value) {
				return nil
			}
			return n.empty()
		}
		b := n.empty()
		b[n.v] = value
		return b
	})
}

// callNode succeeds when its call evaluates to anything but Nil.
type callNode struct {
	base
	call Call
}

func (n *callNode) Reset() { n.resetBase() }

func (n *callNode) NextBinding() Binding {
	return n.step(KindCall, func() Binding {
		result := n.call.Bind(n.ctx)
		if _, pending := result.(Call); pending {
			panic(&NativeError{Name: n.call.Name, Err: ErrNonGroundAtom})
		}
		if l, ok := result.(List); ok && l.IsNil() {
			return nil
		}
		return n.empty()
	})
}

// nilNode always succeeds once.
type nilNode struct {
	base
}

func (n *nilNode) Reset() { n.resetBase() }

func (n *nilNode) NextBinding() Binding {
	return n.step(KindNil, n.empty)
}

// andNode enumerates the cross product of its conjuncts by backtracking.
// Each conjunct is bound with the context plus the deltas of the
// conjuncts to its left before it is enumerated.
type andNode struct {
	base
	parts   []Precondition
	deltas  []Binding
	started bool
}

func (a *andNode) Reset() {
	a.resetBase()
	a.started = false
	a.deltas = nil
	for _, p := range a.parts {
		p.Reset()
	}
}

func (a *andNode) NextBinding() Binding {
	return a.step(KindConjunction, a.next)
}

func (a *andNode) next() Binding {
	k := len(a.parts)
	i := k - 1
	if !a.started {
		a.started = true
		a.deltas = make([]Binding, k)
		a.parts[0].Reset()
		a.parts[0].Bind(a.ctx)
		i = 0
	}
	for i >= 0 {
		d := a.parts[i].NextBinding()
		if d == nil {
			i--
			continue
		}
		a.deltas[i] = d
		if i == k-1 {
			out := a.empty()
			for _, x := range a.deltas {
				out = Merge(out, x)
			}
			return out
		}
		acc := a.ctx
		for _, x := range a.deltas[:i+1] {
			acc = Merge(acc, x)
		}
		i++
		a.parts[i].Reset()
		a.parts[i].Bind(acc)
	}
	return nil
}

// orNode yields the satisfiers of each disjunct in declared order.
type orNode struct {
	base
	parts  []Precondition
	cur    int
	primed bool
}

func (o *orNode) Reset() {
	o.resetBase()
	o.cur = 0
	o.primed = false
	for _, p := range o.parts {
		p.Reset()
	}
}

func (o *orNode) NextBinding() Binding {
	return o.step(KindDisjunction, func() Binding {
		for o.cur < len(o.parts) {
			p := o.parts[o.cur]
			if !o.primed {
				p.Reset()
				p.Bind(o.ctx)
				o.primed = true
			}
			if d := p.NextBinding(); d != nil {
				return d
			}
			o.cur++
			o.primed = false
		}
		return nil
	})
}
