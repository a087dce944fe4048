package htn

import (
	"fmt"
	"strings"
)

// Element is implemented by operators, methods and axioms: the domain
// entries a task or query can be matched against.
type Element interface {
	// HeadPredicate returns the head the element is indexed by.
	HeadPredicate() Predicate
	// Unify matches the head against a query and returns the resulting
	// binding of the element's own scope, or nil if they do not match.
	Unify(query Predicate) Binding
	// Iterator compiles the precondition of branch which (ignored by
	// operators) with b as its initial context.
	Iterator(ev *Evaluator, b Binding, which int) Precondition
}

// Operator is a primitive action.
type Operator struct {
	Head Predicate
	Pre  *LogicalPrecondition
	Del  []Effect
	Add  []Effect
	// Cost is evaluated under the precondition's binding; nil means 1.
	Cost Term
}

// MethodBranch is one alternative decomposition of a method.
type MethodBranch struct {
	Label    string
	Pre      *LogicalPrecondition
	Subtasks *TaskList
}

// Method decomposes a compound task. Its branches act as an
// if-then-else chain: the first branch whose precondition holds is used.
type Method struct {
	Head     Predicate
	Branches []MethodBranch
}

// AxiomBranch is one alternative body of an axiom.
type AxiomBranch struct {
	Label string
	Pre   *LogicalPrecondition
}

// Axiom derives atoms that are not stored in the state. Like method
// branches, its branches are tried in order and only the first that
// holds contributes.
type Axiom struct {
	Head     Predicate
	Branches []AxiomBranch
}

func unifyHead(head, query Predicate) Binding {
	b := NewBinding(head.VarCount)
	if !head.Match(query, b) {
		return nil
	}
	return b
}

// HeadPredicate returns the operator head.
func (o *Operator) HeadPredicate() Predicate { return o.Head }

// Unify matches the operator head against a task atom.
func (o *Operator) Unify(task Predicate) Binding { return unifyHead(o.Head, task) }

// Iterator compiles the operator precondition.
func (o *Operator) Iterator(ev *Evaluator, b Binding, _ int) Precondition {
	return ev.Compile(o.Pre, b)
}

// Apply applies the operator's effects under b.
func (o *Operator) Apply(ev *Evaluator, b Binding) (*Undo, bool) {
	return ev.Apply(b, o.Del, o.Add)
}

// Instance returns the ground operator instance and its cost under b.
func (o *Operator) Instance(b Binding) (Predicate, float64, error) {
	p := o.Head.ApplySubstitution(b)
	if o.Cost == nil {
		return p, 1, nil
	}
	c, ok := o.Cost.Bind(b).(Number)
	if !ok {
		return p, 0, fmt.Errorf("htn: cost of %s is not a number", p)
	}
	return p, float64(c), nil
}

// HeadPredicate returns the method head.
func (m *Method) HeadPredicate() Predicate { return m.Head }

// Unify matches the method head against a task atom.
func (m *Method) Unify(task Predicate) Binding { return unifyHead(m.Head, task) }

// Iterator compiles the precondition of branch which.
func (m *Method) Iterator(ev *Evaluator, b Binding, which int) Precondition {
	return ev.Compile(m.Branches[which].Pre, b)
}

// HeadPredicate returns the axiom head.
func (a *Axiom) HeadPredicate() Predicate { return a.Head }

// Unify matches the axiom head against a query atom.
func (a *Axiom) Unify(query Predicate) Binding { return unifyHead(a.Head, query) }

// Iterator compiles the precondition of branch which.
func (a *Axiom) Iterator(ev *Evaluator, b Binding, which int) Precondition {
	return ev.Compile(a.Branches[which].Pre, b)
}

// Domain is a compiled planning domain: the symbol tables and the element
// tables indexed by head symbol. Methods are indexed by compound task id,
// operators by primitive task id and axioms by constant id.
type Domain struct {
	Name string

	Constants      []string
	CompoundTasks  []string
	PrimitiveTasks []string

	Methods   [][]*Method
	Operators [][]*Operator
	Axioms    [][]*Axiom

	// VarsMaxSize is the largest variable scope of any element.
	VarsMaxSize int

	// Registry resolves custom sort comparators at evaluation time.
	Registry *Registry

	problemConstants []string
}

// NewDomain creates an empty domain.
func NewDomain(name string) *Domain {
	return &Domain{Name: name, Registry: NewRegistry()}
}

// SetProblemConstants appends constants introduced by a problem after
// the domain's own constants.
func (d *Domain) SetProblemConstants(names []string) {
	d.problemConstants = append([]string(nil), names...)
}

// ProblemConstants returns the constants set by SetProblemConstants.
func (d *Domain) ProblemConstants() []string { return d.problemConstants }

// Symbols returns the total number of constant symbols.
func (d *Domain) Symbols() int {
	return len(d.Constants) + len(d.problemConstants)
}

// ConstantName resolves a constant id, including problem constants.
func (d *Domain) ConstantName(id int) string {
	switch {
	case id >= 0 && id < len(d.Constants):
		return d.Constants[id]
	case id >= len(d.Constants) && id < d.Symbols():
		return d.problemConstants[id-len(d.Constants)]
	}
	return ""
}

// AddMethod indexes m by its head.
func (d *Domain) AddMethod(m *Method) {
	d.Methods = growTable(d.Methods, m.Head.Head)
	d.Methods[m.Head.Head] = append(d.Methods[m.Head.Head], m)
	d.VarsMaxSize = max(d.VarsMaxSize, m.Head.VarCount)
}

// AddOperator indexes o by its head.
func (d *Domain) AddOperator(o *Operator) {
	d.Operators = growTable(d.Operators, o.Head.Head)
	d.Operators[o.Head.Head] = append(d.Operators[o.Head.Head], o)
	d.VarsMaxSize = max(d.VarsMaxSize, o.Head.VarCount)
}

// AddAxiom indexes a by its head.
func (d *Domain) AddAxiom(a *Axiom) {
	d.Axioms = growTable(d.Axioms, a.Head.Head)
	d.Axioms[a.Head.Head] = append(d.Axioms[a.Head.Head], a)
	d.VarsMaxSize = max(d.VarsMaxSize, a.Head.VarCount)
}

func growTable[T any](table [][]T, head int) [][]T {
	if head < len(table) {
		return table
	}
	out := make([][]T, head+1)
	copy(out, table)
	return out
}

// MethodsFor returns the methods of a compound task.
func (d *Domain) MethodsFor(task int) []*Method {
	if task < 0 || task >= len(d.Methods) {
		return nil
	}
	return d.Methods[task]
}

// OperatorsFor returns the operators of a primitive task.
func (d *Domain) OperatorsFor(task int) []*Operator {
	if task < 0 || task >= len(d.Operators) {
		return nil
	}
	return d.Operators[task]
}

// AxiomsFor returns the axioms whose head is the given constant.
func (d *Domain) AxiomsFor(head int) []*Axiom {
	if head < 0 || head >= len(d.Axioms) {
		return nil
	}
	return d.Axioms[head]
}

// NewState creates an empty state sized for the domain's symbols.
func (d *Domain) NewState() *State {
	return NewState(d.Symbols())
}

// taskNames formats task heads through the compound or primitive table.
type taskNames struct {
	d         *Domain
	primitive bool
}

func (t taskNames) ConstantName(id int) string {
	table := t.d.CompoundTasks
	if t.primitive {
		table = t.d.PrimitiveTasks
	}
	if id >= 0 && id < len(table) {
		return table[id]
	}
	return ""
}

// FormatTask renders a task atom with its task name.
func (d *Domain) FormatTask(p Predicate, primitive bool) string {
	var sb strings.Builder
	p.write(&sb, taskNames{d: d, primitive: primitive}, d)
	return sb.String()
}

// Describe summarizes the domain tables.
func (d *Domain) Describe() string {
	methods, ops, axioms := 0, 0, 0
	for _, ms := range d.Methods {
		methods += len(ms)
	}
	for _, os := range d.Operators {
		ops += len(os)
	}
	for _, as := range d.Axioms {
		axioms += len(as)
	}
	return fmt.Sprintf("domain %s: %d constants, %d compound tasks, %d primitive tasks, %d methods, %d operators, %d axioms",
		d.Name, len(d.Constants), len(d.CompoundTasks), len(d.PrimitiveTasks), methods, ops, axioms)
}
