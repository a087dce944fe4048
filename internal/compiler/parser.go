package compiler

import (
	"fmt"
	"log/slog"

	"github.com/gitrdm/gokanplan/pkg/htn"
)

// Option configures parsing.
type Option func(*options)

type options struct {
	registry *htn.Registry
	logger   *slog.Logger
}

// WithRegistry resolves native functions through r. Functions may be
// registered after parsing; they are looked up again when called.
func WithRegistry(r *htn.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = htn.NewRegistry()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// ParseDomain parses a defdomain form.
func ParseDomain(file string, src []byte, opts ...Option) (def *DomainDef, err error) {
	o := buildOptions(opts)
	toks, err := lex(file, src)
	if err != nil {
		return nil, err
	}
	p := newParser(file, toks, o.registry)
	defer p.recover(&err)

	def = p.domain()
	o.logger.Debug("parsed domain", "file", file, "domain", def.Name,
		"operators", len(def.Operators), "methods", len(def.Methods), "axioms", len(def.Axioms))
	return def, nil
}

// ParseProblems parses defproblem and def-problem-set forms against the
// symbol tables of the domain described by m.
func ParseProblems(file string, src []byte, m *Manifest, opts ...Option) (pf *ProblemFile, err error) {
	if m == nil {
		return nil, &SemanticError{File: file, Msg: "no domain manifest given"}
	}
	o := buildOptions(opts)
	toks, err := lex(file, src)
	if err != nil {
		return nil, err
	}
	p := newParser(file, toks, o.registry)
	p.lookupTasks = true
	defer p.recover(&err)

	pf = p.problemFile(m)
	for _, prob := range pf.Problems {
		if len(prob.Constants) > 0 {
			o.logger.Info("problem introduces constants", "problem", prob.Name, "constants", prob.Constants)
		}
	}
	return pf, nil
}

type parser struct {
	file string
	toks []token
	pos  int

	constants *symbolTable
	compound  *symbolTable
	primitive *symbolTable
	// lookupTasks rejects task names the domain does not declare.
	lookupTasks bool

	scope    map[string]int
	maxScope int
	ids      idAllocator

	registry    *htn.Registry
	natives     nameSet
	comparators nameSet
}

func newParser(file string, toks []token, reg *htn.Registry) *parser {
	return &parser{
		file:      file,
		toks:      toks,
		constants: newSymbolTable(nil),
		compound:  newSymbolTable(nil),
		primitive: newSymbolTable(nil),
		registry:  reg,
	}
}

// parseError carries an error out of the recursive descent.
type parseError struct{ err error }

func (p *parser) recover(errp *error) {
	if r := recover(); r != nil {
		pe, ok := r.(parseError)
		if !ok {
			panic(r)
		}
		*errp = pe.err
	}
}

func (p *parser) errorf(t token, format string, args ...any) {
	panic(parseError{&SyntaxError{File: p.file, Line: t.line, Column: t.col, Msg: fmt.Sprintf(format, args...)}})
}

func (p *parser) semanticf(t token, format string, args ...any) {
	panic(parseError{&SemanticError{File: p.file, Line: t.line, Column: t.col, Msg: fmt.Sprintf(format, args...)}})
}

// ---------------------------------------------------------------------------
// Token access
// ---------------------------------------------------------------------------

func (p *parser) peek() token { return p.peekAt(0) }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(kind tokenKind) bool { return p.peek().kind == kind }

func (p *parser) atText(kind tokenKind, text string) bool { return p.peek().is(kind, text) }

func (p *parser) expect(kind tokenKind) token {
	t := p.next()
	if t.kind != kind {
		p.errorf(t, "expected %s, found %s", kind, t)
	}
	return t
}

func (p *parser) expectText(kind tokenKind, text string) token {
	t := p.next()
	if !t.is(kind, text) {
		p.errorf(t, "expected %q, found %s", text, t)
	}
	return t
}

// ---------------------------------------------------------------------------
// Variable scopes
// ---------------------------------------------------------------------------

// openScope numbers the variables of the form starting at the current
// '(' in order of first appearance. Every predicate of the form is sized
// to the whole scope.
func (p *parser) openScope() {
	p.scope = make(map[string]int)
	depth := 0
scan:
	for _, t := range p.toks[p.pos:] {
		switch t.kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
			if depth == 0 {
				break scan
			}
		case tokVar:
			if _, ok := p.scope[t.text]; !ok {
				p.scope[t.text] = len(p.scope)
			}
		case tokEOF:
			break scan
		}
	}
}

func (p *parser) closeScope() int {
	n := len(p.scope)
	p.maxScope = max(p.maxScope, n)
	p.scope = nil
	return n
}

func (p *parser) varCount() int { return len(p.scope) }

func (p *parser) variable(t token) int { return p.scope[t.text] }

// ---------------------------------------------------------------------------
// Domain
// ---------------------------------------------------------------------------

func (p *parser) domain() *DomainDef {
	p.expect(tokLParen)
	p.expectText(tokKeyword, "defdomain")
	def := &DomainDef{Name: p.expect(tokID).text, registry: p.registry}
	p.expect(tokLParen)
	for p.at(tokLParen) {
		switch h := p.peekAt(1); {
		case h.is(tokColon, ":operator"):
			def.Operators = append(def.Operators, p.operator())
		case h.is(tokColon, ":method"):
			def.Methods = append(def.Methods, p.method())
		case h.is(tokColon, ":-"):
			def.Axioms = append(def.Axioms, p.axiom())
		default:
			p.errorf(h, "expected :operator, :method or :-, found %s", h)
		}
	}
	if len(def.Operators)+len(def.Methods)+len(def.Axioms) == 0 {
		p.errorf(p.peek(), "domain %s has no operators, methods or axioms", def.Name)
	}
	p.expect(tokRParen)
	p.expect(tokRParen)
	p.expect(tokEOF)

	def.Constants = p.constants.snapshot()
	def.CompoundTasks = p.compound.snapshot()
	def.PrimitiveTasks = p.primitive.snapshot()
	def.Natives = p.natives.names
	def.Comparators = p.comparators.names
	def.VarsMaxSize = p.maxScope
	return def
}

// operator parses (:operator (!name args) pre del add [cost]).
func (p *parser) operator() *htn.Operator {
	p.openScope()
	p.expect(tokLParen)
	p.expectText(tokColon, ":operator")
	p.expect(tokLParen)
	name := p.expect(tokOpID)
	args := p.terms()
	p.expect(tokRParen)

	op := &htn.Operator{Pre: p.precondition()}
	op.Del = p.effects()
	op.Add = p.effects()
	if !p.at(tokRParen) {
		op.Cost = p.term()
	}
	p.expect(tokRParen)
	p.ids.nextOperator()

	n := p.closeScope()
	op.Head = htn.NewPredicate(p.primitive.intern(name.text), n, args...)
	return op
}

// method parses (:method (name args) [label] pre subtasks ...).
func (p *parser) method() *htn.Method {
	p.openScope()
	p.expect(tokLParen)
	p.expectText(tokColon, ":method")
	p.expect(tokLParen)
	name := p.expect(tokID)
	args := p.terms()
	p.expect(tokRParen)

	no := p.ids.nextMethod()
	m := &htn.Method{}
	for !p.at(tokRParen) {
		label := fmt.Sprintf("Method%dBranch%d", no, len(m.Branches))
		if p.at(tokID) {
			label = p.next().text
		}
		pre := p.precondition()
		m.Branches = append(m.Branches, htn.MethodBranch{Label: label, Pre: pre, Subtasks: p.taskList()})
	}
	if len(m.Branches) == 0 {
		p.errorf(p.peek(), "method %s has no branches", name.text)
	}
	p.expect(tokRParen)

	n := p.closeScope()
	m.Head = htn.NewPredicate(p.compound.intern(name.text), n, args...)
	return m
}

// axiom parses (:- head [label] pre ...).
func (p *parser) axiom() *htn.Axiom {
	p.openScope()
	p.expect(tokLParen)
	p.expectText(tokColon, ":-")
	a := &htn.Axiom{Head: p.atom()}

	no := p.ids.nextAxiom()
	for !p.at(tokRParen) {
		label := fmt.Sprintf("Axiom%dBranch%d", no, len(a.Branches))
		if p.at(tokID) {
			label = p.next().text
		}
		a.Branches = append(a.Branches, htn.AxiomBranch{Label: label, Pre: p.precondition()})
	}
	if len(a.Branches) == 0 {
		p.errorf(p.peek(), "axiom has no branches")
	}
	p.expect(tokRParen)
	a.Head.VarCount = p.closeScope()
	return a
}

// ---------------------------------------------------------------------------
// Preconditions
// ---------------------------------------------------------------------------

func (p *parser) precondition() *htn.LogicalPrecondition {
	if p.at(tokLParen) {
		switch h := p.peekAt(1); {
		case h.is(tokColon, ":first"):
			p.next()
			p.next()
			e := p.expr()
			p.expect(tokRParen)
			return &htn.LogicalPrecondition{Expr: e, First: true}
		case h.is(tokColon, ":sort-by"):
			p.next()
			p.next()
			v := p.expect(tokVar)
			name := ""
			if !p.at(tokLParen) && !p.at(tokVar) && !p.atText(tokKeyword, "nil") {
				name = p.functionName()
			}
			e := p.expr()
			p.expect(tokRParen)
			if name != "" && name != "less" && name != "more" {
				p.comparators.add(name)
			}
			return &htn.LogicalPrecondition{Expr: e, Sort: &htn.SortSpec{Var: p.variable(v), Name: name}}
		}
	}
	return &htn.LogicalPrecondition{Expr: p.expr()}
}

func (p *parser) expr() htn.Expr {
	t := p.peek()
	switch {
	case t.is(tokKeyword, "nil"):
		p.next()
		return &htn.NilExpr{}
	case t.kind == tokVar:
		p.semanticf(t, "variable atom %s is not supported", t.text)
	case t.kind != tokLParen:
		p.errorf(t, "expected logical expression, found %s", t)
	}

	switch h := p.peekAt(1); {
	case h.kind == tokID:
		return &htn.Atomic{Pred: p.atom()}
	case h.is(tokKeyword, "or"):
		p.next()
		p.next()
		var xs []htn.Expr
		for !p.at(tokRParen) {
			xs = append(xs, p.expr())
		}
		if len(xs) == 0 {
			p.errorf(p.peek(), "or needs at least one disjunct")
		}
		p.expect(tokRParen)
		if len(xs) == 1 {
			return xs[0]
		}
		return &htn.Or{Xs: xs}
	case h.is(tokKeyword, "not"):
		p.next()
		p.next()
		x := p.expr()
		p.expect(tokRParen)
		return &htn.Not{X: x}
	case h.is(tokKeyword, "imply"):
		p.next()
		p.next()
		premise := p.expr()
		consequence := p.expr()
		p.expect(tokRParen)
		return &htn.Or{Xs: []htn.Expr{&htn.Not{X: premise}, consequence}}
	case h.is(tokKeyword, "forall"):
		p.next()
		p.next()
		p.varList()
		premise := p.expr()
		consequence := p.expr()
		p.expect(tokRParen)
		return &htn.ForAll{Premise: premise, Consequence: consequence}
	case h.is(tokKeyword, "assign"):
		p.next()
		p.next()
		v := p.expect(tokVar)
		val := p.term()
		p.expect(tokRParen)
		return &htn.Assign{Var: p.variable(v), Term: val}
	case h.is(tokKeyword, "call"):
		p.next()
		p.next()
		name := p.functionName()
		args := p.terms()
		p.expect(tokRParen)
		return &htn.CallExpr{Call: p.call(name, args)}
	case h.is(tokKeyword, "and"), h.is(tokKeyword, "nil"),
		h.kind == tokLParen, h.kind == tokRParen, h.kind == tokVar:
		p.next()
		if p.atText(tokKeyword, "and") {
			p.next()
		}
		var xs []htn.Expr
		for !p.at(tokRParen) {
			xs = append(xs, p.expr())
		}
		p.expect(tokRParen)
		switch len(xs) {
		case 0:
			return &htn.NilExpr{}
		case 1:
			return xs[0]
		}
		return &htn.And{Xs: xs}
	default:
		p.errorf(h, "unexpected %s in logical expression", h)
	}
	return nil
}

// varList skips the (?x ?y) list of a forall; the variables are already
// part of the enclosing scope.
func (p *parser) varList() {
	if p.atText(tokKeyword, "nil") {
		p.next()
		return
	}
	p.expect(tokLParen)
	for p.at(tokVar) {
		p.next()
	}
	p.expect(tokRParen)
}

func (p *parser) functionName() string {
	t := p.next()
	switch {
	case t.kind == tokID, t.kind == tokSymbol:
		return t.text
	case t.is(tokKeyword, "member"):
		return "member"
	}
	p.errorf(t, "expected function name, found %s", t)
	return ""
}

func (p *parser) call(name string, args []htn.Term) htn.Call {
	if canon, ok := htn.StdLibName(name); ok {
		return htn.NewCall(canon, htn.StdLib[canon], args...)
	}
	p.natives.add(name)
	return htn.NewCall(name, p.registry.Resolve(name), args...)
}

// ---------------------------------------------------------------------------
// Atoms and terms
// ---------------------------------------------------------------------------

func (p *parser) atom() htn.Predicate {
	if t := p.peek(); t.kind == tokVar {
		p.semanticf(t, "variable atom %s is not supported", t.text)
	}
	p.expect(tokLParen)
	name := p.expect(tokID)
	args := p.terms()
	p.expect(tokRParen)
	return htn.NewPredicate(p.constants.intern(name.text), p.varCount(), args...)
}

func (p *parser) startsTerm() bool {
	t := p.peek()
	switch t.kind {
	case tokVar, tokID, tokNum, tokLParen:
		return true
	}
	return t.is(tokKeyword, "nil")
}

func (p *parser) terms() []htn.Term {
	var out []htn.Term
	for p.startsTerm() {
		out = append(out, p.term())
	}
	return out
}

func (p *parser) term() htn.Term {
	t := p.peek()
	switch t.kind {
	case tokVar:
		p.next()
		return htn.Var(p.variable(t))
	case tokID:
		p.next()
		return htn.Const(p.constants.intern(t.text))
	case tokNum:
		p.next()
		return htn.Number(t.num)
	case tokKeyword:
		if t.text == "nil" {
			p.next()
			return htn.Nil
		}
	case tokLParen:
		p.next()
		if p.atText(tokKeyword, "call") {
			p.next()
			name := p.functionName()
			args := p.terms()
			p.expect(tokRParen)
			return p.call(name, args)
		}
		items := p.terms()
		if p.at(tokDot) {
			p.next()
			tail := p.term()
			p.expect(tokRParen)
			return htn.List{Items: items, Tail: tail}
		}
		p.expect(tokRParen)
		return htn.NewList(items...)
	}
	p.errorf(t, "expected term, found %s", t)
	return nil
}

// ---------------------------------------------------------------------------
// Effects
// ---------------------------------------------------------------------------

func (p *parser) effects() []htn.Effect {
	t := p.peek()
	switch {
	case t.is(tokKeyword, "nil"):
		p.next()
		return nil
	case t.kind == tokVar:
		p.semanticf(t, "variable delete or add list %s is not supported", t.text)
	}
	p.expect(tokLParen)
	var out []htn.Effect
	for !p.at(tokRParen) {
		out = append(out, p.effect())
	}
	p.expect(tokRParen)
	return out
}

func (p *parser) effect() htn.Effect {
	if p.at(tokLParen) {
		switch h := p.peekAt(1); {
		case h.is(tokColon, ":protection"):
			p.next()
			p.next()
			a := p.atom()
			p.expect(tokRParen)
			return &htn.ProtectionEffect{Atom: a}
		case h.is(tokKeyword, "forall"):
			p.next()
			p.next()
			p.varList()
			pre := p.expr()
			atoms := p.atomList()
			p.expect(tokRParen)
			return &htn.ForAllEffect{Pre: pre, Atoms: atoms}
		}
	}
	return &htn.AtomicEffect{Atom: p.atom()}
}

func (p *parser) atomList() []htn.Predicate {
	if p.atText(tokKeyword, "nil") {
		p.next()
		return nil
	}
	p.expect(tokLParen)
	var out []htn.Predicate
	for !p.at(tokRParen) {
		out = append(out, p.atom())
	}
	p.expect(tokRParen)
	return out
}

// ---------------------------------------------------------------------------
// Task lists
// ---------------------------------------------------------------------------

func (p *parser) taskList() *htn.TaskList {
	if p.atText(tokKeyword, "nil") {
		p.next()
		return htn.EmptyTaskList()
	}
	p.expect(tokLParen)
	ordered := true
	if p.atText(tokColon, ":unordered") {
		p.next()
		ordered = false
	}
	var subs []*htn.TaskList
	for !p.at(tokRParen) {
		h := p.peek()
		switch {
		case h.is(tokKeyword, "nil"):
			subs = append(subs, p.taskList())
		case h.kind == tokLParen:
			n := p.peekAt(1)
			if n.kind == tokID || n.kind == tokOpID || n.is(tokColon, ":immediate") {
				subs = append(subs, htn.NewTask(p.taskAtom()))
			} else {
				subs = append(subs, p.taskList())
			}
		default:
			p.errorf(h, "expected task or task list, found %s", h)
		}
	}
	p.expect(tokRParen)
	return htn.NewTaskList(ordered, subs...)
}

func (p *parser) taskAtom() *htn.TaskAtom {
	p.expect(tokLParen)
	a := &htn.TaskAtom{}
	if p.atText(tokColon, ":immediate") {
		p.next()
		a.Immediate = true
	}
	var head int
	switch t := p.next(); t.kind {
	case tokID:
		head = p.task(p.compound, t, "compound")
	case tokOpID:
		head = p.task(p.primitive, t, "primitive")
		a.Primitive = true
	default:
		p.errorf(t, "expected task name, found %s", t)
	}
	args := p.terms()
	p.expect(tokRParen)
	a.Pred = htn.NewPredicate(head, p.varCount(), args...)
	return a
}

func (p *parser) task(table *symbolTable, t token, kind string) int {
	if !p.lookupTasks {
		return table.intern(t.text)
	}
	id, ok := table.lookup(t.text)
	if !ok {
		p.semanticf(t, "unknown %s task %s", kind, t.text)
	}
	return id
}

// ---------------------------------------------------------------------------
// Problems
// ---------------------------------------------------------------------------

func (p *parser) problemFile(m *Manifest) *ProblemFile {
	pf := &ProblemFile{}
	for !p.at(tokEOF) {
		if !p.at(tokLParen) {
			p.errorf(p.peek(), "expected '(', found %s", p.peek())
		}
		switch h := p.peekAt(1); {
		case h.is(tokKeyword, "defproblem"):
			pf.Problems = append(pf.Problems, p.problem(m))
		case h.is(tokKeyword, "def-problem-set"):
			pf.Sets = append(pf.Sets, p.problemSet())
		default:
			p.errorf(h, "expected defproblem or def-problem-set, found %s", h)
		}
	}
	if len(pf.Problems) == 0 && len(pf.Sets) == 0 {
		p.errorf(p.peek(), "no problems defined")
	}
	return pf
}

// problem parses (defproblem name domain (atoms...) tasks). Each problem
// starts from the domain's symbol tables, so problem-only constants are
// private to it.
func (p *parser) problem(m *Manifest) *Problem {
	p.openScope()
	p.expect(tokLParen)
	p.expectText(tokKeyword, "defproblem")
	name := p.expect(tokID)
	dom := p.expect(tokID)
	if dom.text != m.Domain {
		p.semanticf(dom, "problem %s is defined for domain %s, not %s", name.text, dom.text, m.Domain)
	}
	p.constants = newSymbolTable(m.Constants)
	p.compound = newSymbolTable(m.CompoundTasks)
	p.primitive = newSymbolTable(m.PrimitiveTasks)
	p.natives = nameSet{}

	prob := &Problem{Name: name.text, Domain: dom.text, DomainConstants: len(m.Constants)}
	if p.atText(tokKeyword, "nil") {
		p.next()
	} else {
		p.expect(tokLParen)
		for !p.at(tokRParen) {
			t := p.peek()
			a := p.atom()
			if !a.IsGround() {
				p.semanticf(t, "initial state atom %s is not ground", a.Format(p.constants))
			}
			a.VarCount = 0
			prob.State = append(prob.State, a)
		}
		p.expect(tokRParen)
	}
	prob.Tasks = p.taskList()
	p.expect(tokRParen)

	prob.VarCount = p.closeScope()
	prob.Constants = p.constants.names[len(m.Constants):]
	prob.Natives = p.natives.names
	return prob
}

func (p *parser) problemSet() ProblemSet {
	p.expect(tokLParen)
	p.expectText(tokKeyword, "def-problem-set")
	set := ProblemSet{Name: p.expect(tokID).text}
	p.expect(tokLParen)
	for p.at(tokID) {
		set.Problems = append(set.Problems, p.next().text)
	}
	if len(set.Problems) == 0 {
		p.errorf(p.peek(), "problem set %s is empty", set.Name)
	}
	p.expect(tokRParen)
	p.expect(tokRParen)
	return set
}
