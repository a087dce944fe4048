package htn

import "strings"

// Expr is a logical expression as written in a domain description. An
// Evaluator compiles an Expr into a Precondition tree bound to an initial
// binding.
type Expr interface {
	format(sb *strings.Builder, names Names)
}

// Atomic is satisfied by state facts and by axioms that prove the atom.
type Atomic struct {
	Pred Predicate
}

// Not is negation as failure.
type Not struct {
	X Expr
}

// And is satisfied when all of its conjuncts are, left to right.
type And struct {
	Xs []Expr
}

// Or is satisfied by any disjunct, tried in declared order.
type Or struct {
	Xs []Expr
}

// ForAll holds when every satisfier of Premise also satisfies Consequence.
type ForAll struct {
	Premise     Expr
	Consequence Expr
}

// Assign binds Var to the value of Term.
type Assign struct {
	Var  int
	Term Term
}

// CallExpr is satisfied when the call evaluates to anything other than Nil.
type CallExpr struct {
	Call Call
}

// NilExpr is always satisfied, exactly once.
type NilExpr struct{}

// SortSpec orders the satisfiers of a precondition by the numeric value
// of one variable. Name is "less", "more" or a custom comparator name;
// Comparator, when set, overrides the lookup by name.
type SortSpec struct {
	Var        int
	Name       string
	Comparator Comparator
}

// LogicalPrecondition is the precondition of an operator or a method or
// axiom branch. First restricts it to its first satisfier. Sort orders its
// satisfiers. The two are mutually exclusive.
type LogicalPrecondition struct {
	Expr  Expr
	First bool
	Sort  *SortSpec
}

// FormatExpr renders e using names for symbols.
func FormatExpr(e Expr, names Names) string {
	var sb strings.Builder
	e.format(&sb, names)
	return sb.String()
}

func (e *Atomic) format(sb *strings.Builder, names Names) {
	e.Pred.write(sb, names, names)
}

func (e *Not) format(sb *strings.Builder, names Names) {
	sb.WriteString("(not ")
	e.X.format(sb, names)
	sb.WriteByte(')')
}

func (e *And) format(sb *strings.Builder, names Names) {
	formatList(sb, "and", e.Xs, names)
}

func (e *Or) format(sb *strings.Builder, names Names) {
	formatList(sb, "or", e.Xs, names)
}

func (e *ForAll) format(sb *strings.Builder, names Names) {
	sb.WriteString("(forall ")
	e.Premise.format(sb, names)
	sb.WriteByte(' ')
	e.Consequence.format(sb, names)
	sb.WriteByte(')')
}

func (e *Assign) format(sb *strings.Builder, names Names) {
	sb.WriteString("(assign ")
	Var(e.Var).write(sb, names)
	sb.WriteByte(' ')
	e.Term.write(sb, names)
	sb.WriteByte(')')
}

func (e *CallExpr) format(sb *strings.Builder, names Names) {
	e.Call.write(sb, names)
}

func (e *NilExpr) format(sb *strings.Builder, _ Names) {
	sb.WriteString("nil")
}

func formatList(sb *strings.Builder, op string, xs []Expr, names Names) {
	sb.WriteByte('(')
	sb.WriteString(op)
	for _, x := range xs {
		sb.WriteByte(' ')
		x.format(sb, names)
	}
	sb.WriteByte(')')
}
