package htn

import (
	"fmt"
	"strconv"
	"strings"
)

// Term represents any symbolic value manipulated by the planner.
// Terms are immutable: Bind and the other transformations return new
// values and never modify their receiver.
//
// The set of Term implementations is closed: Var, Const, Number, List
// and Call. Only Var is non-ground.
type Term interface {
	// Bind substitutes the variables bound in b. Variables that are unbound
	// in b are returned as they are. A Call whose arguments become ground
	// is evaluated immediately and collapses to its result.
	Bind(b Binding) Term

	// Equal checks structural equality. A variable never equals anything,
	// not even itself: equality is only meaningful after substitution.
	Equal(other Term) bool

	// FindUnifier extends b so that the receiver and other become equal.
	// It returns false if no such extension exists. On failure b may hold
	// partial bindings; callers must discard it.
	FindUnifier(other Term, b Binding) bool

	// IsGround reports whether the term contains no variables.
	IsGround() bool

	// String returns a human-readable representation of the term.
	String() string

	write(sb *strings.Builder, names Names)
}

// Names resolves constant symbol ids to their textual names.
// A nil Names prints constants as c<id>.
type Names interface {
	ConstantName(id int) string
}

// FormatTerm renders t using the symbol names in names.
func FormatTerm(t Term, names Names) string {
	var sb strings.Builder
	t.write(&sb, names)
	return sb.String()
}

// Var is a logic variable, identified by its index within the lexical
// scope (operator, method or axiom body) it appears in.
type Var int

// Bind resolves v through b.
func (v Var) Bind(b Binding) Term {
	t := Term(v)
	// Follow var-to-var chains; the bound applies to cyclic chains.
	for i := 0; i <= len(b); i++ {
		cur, ok := t.(Var)
		if !ok || int(cur) >= len(b) || b[cur] == nil {
			break
		}
		if next, isVar := b[cur].(Var); isVar && next == cur {
			break
		}
		t = b[cur]
	}
	if _, ok := t.(Var); ok {
		return t
	}
	return t.Bind(b)
}

// Equal always returns false for variables.
func (v Var) Equal(other Term) bool { return false }

// FindUnifier binds v to other unless v is already bound, in which case
// the existing binding must unify with other.
func (v Var) FindUnifier(other Term, b Binding) bool {
	return unify(v, other, b)
}

// IsGround always returns false for variables.
func (v Var) IsGround() bool { return false }

func (v Var) String() string { return FormatTerm(v, nil) }

func (v Var) write(sb *strings.Builder, _ Names) {
	sb.WriteString("?var")
	sb.WriteString(strconv.Itoa(int(v)))
}

// bindTo records t as the value of v in b. t is first resolved through
// b, so no chain of variables ever leads back to v.
func (v Var) bindTo(t Term, b Binding) bool {
	t = walk(t, b)
	if tv, ok := t.(Var); ok && tv == v {
		return true
	}
	if cur := b[v]; cur != nil {
		return unify(cur, t, b)
	}
	b[v] = t
	return true
}

// walk follows t through variables bound in b and returns the first term
// that is not a bound variable.
func walk(t Term, b Binding) Term {
	for range len(b) + 1 {
		v, ok := t.(Var)
		if !ok || int(v) >= len(b) || b[v] == nil {
			return t
		}
		t = b[v]
	}
	return t
}

// Const is a constant symbol, identified by its interned id.
type Const int

// Bind returns c unchanged.
func (c Const) Bind(Binding) Term { return c }

// Equal checks whether other is the same constant symbol.
func (c Const) Equal(other Term) bool {
	o, ok := other.(Const)
	return ok && o == c
}

// FindUnifier succeeds against an unbound variable or the same constant.
func (c Const) FindUnifier(other Term, b Binding) bool {
	return unify(c, other, b)
}

// IsGround always returns true for constants.
func (c Const) IsGround() bool { return true }

func (c Const) String() string { return FormatTerm(c, nil) }

func (c Const) write(sb *strings.Builder, names Names) {
	if names != nil {
		if name := names.ConstantName(int(c)); name != "" {
			sb.WriteString(name)
			return
		}
	}
	sb.WriteString("c")
	sb.WriteString(strconv.Itoa(int(c)))
}

// Number is a numeric constant.
type Number float64

// Bind returns n unchanged.
func (n Number) Bind(Binding) Term { return n }

// Equal checks numeric equality.
func (n Number) Equal(other Term) bool {
	o, ok := other.(Number)
	return ok && o == n
}

// FindUnifier succeeds against an unbound variable or an equal number.
func (n Number) FindUnifier(other Term, b Binding) bool {
	return unify(n, other, b)
}

// IsGround always returns true for numbers.
func (n Number) IsGround() bool { return true }

func (n Number) String() string { return FormatTerm(n, nil) }

func (n Number) write(sb *strings.Builder, _ Names) {
	sb.WriteString(strconv.FormatFloat(float64(n), 'g', -1, 64))
}

// List is a sequence of terms with an optional tail. A nil Tail denotes a
// proper list; a non-nil Tail is the continuation written after the dot
// in (a b . ?rest). The empty list is Nil.
type List struct {
	Items []Term
	Tail  Term
}

// Nil is the empty list. By convention it also denotes logical false in
// the results of native functions.
var Nil = List{}

// NewList creates a proper list of the given items.
func NewList(items ...Term) List {
	return List{Items: items}
}

// IsNil reports whether l is the empty list.
func (l List) IsNil() bool {
	n := l.normalize()
	return len(n.Items) == 0 && n.Tail == nil
}

// Bind substitutes into every item and the tail.
func (l List) Bind(b Binding) Term {
	var items []Term
	if len(l.Items) > 0 {
		items = make([]Term, len(l.Items))
		for i, t := range l.Items {
			items[i] = t.Bind(b)
		}
	}
	out := List{Items: items}
	if l.Tail != nil {
		out.Tail = l.Tail.Bind(b)
	}
	return out.normalize()
}

// Equal checks element-wise structural equality.
func (l List) Equal(other Term) bool {
	o, ok := other.(List)
	if !ok {
		return false
	}
	x, y := l.normalize(), o.normalize()
	if len(x.Items) != len(y.Items) {
		return false
	}
	for i := range x.Items {
		if !x.Items[i].Equal(y.Items[i]) {
			return false
		}
	}
	if x.Tail == nil || y.Tail == nil {
		return x.Tail == nil && y.Tail == nil
	}
	return x.Tail.Equal(y.Tail)
}

// FindUnifier unifies two lists element by element, binding tails to the
// remaining elements where needed.
func (l List) FindUnifier(other Term, b Binding) bool {
	return unify(l, other, b)
}

// IsGround reports whether all items and the tail are ground.
func (l List) IsGround() bool {
	for _, t := range l.Items {
		if !t.IsGround() {
			return false
		}
	}
	return l.Tail == nil || l.Tail.IsGround()
}

func (l List) String() string { return FormatTerm(l, nil) }

func (l List) write(sb *strings.Builder, names Names) {
	n := l.normalize()
	if len(n.Items) == 0 && n.Tail == nil {
		sb.WriteString("nil")
		return
	}
	sb.WriteByte('(')
	for i, t := range n.Items {
		if i > 0 {
			sb.WriteByte(' ')
		}
		t.write(sb, names)
	}
	if n.Tail != nil {
		sb.WriteString(" . ")
		n.Tail.write(sb, names)
	}
	sb.WriteByte(')')
}

// normalize splices list-valued tails into the item slice so that a
// normalized list's Tail is nil or a non-list term.
func (l List) normalize() List {
	for {
		tail, ok := l.Tail.(List)
		if !ok {
			return l
		}
		var items []Term
		if n := len(l.Items) + len(tail.Items); n > 0 {
			items = make([]Term, 0, n)
			items = append(items, l.Items...)
			items = append(items, tail.Items...)
		}
		l = List{Items: items, Tail: tail.Tail}
	}
}

// drop returns what remains of a normalized list after its first n items.
func (l List) drop(n int) Term {
	if n < len(l.Items) {
		return List{Items: l.Items[n:], Tail: l.Tail}
	}
	if l.Tail != nil {
		return l.Tail
	}
	return Nil
}

// Call is a deferred invocation of a native function. It is evaluated as
// soon as Bind makes all its arguments ground.
type Call struct {
	Name string
	Fn   Function
	Args List
}

// NewCall creates a call term for fn.
func NewCall(name string, fn Function, args ...Term) Call {
	return Call{Name: name, Fn: fn, Args: NewList(args...)}
}

// Bind substitutes into the arguments and evaluates the call once they
// are all ground.
func (c Call) Bind(b Binding) Term {
	args := c.Args.Bind(b).(List)
	if args.IsGround() {
		return c.eval(args)
	}
	return Call{Name: c.Name, Fn: c.Fn, Args: args}
}

// Eval evaluates a call whose arguments are already ground.
func (c Call) Eval() Term {
	return c.Bind(nil)
}

func (c Call) eval(args List) Term {
	if c.Fn == nil {
		panic(&NativeError{Name: c.Name, Err: ErrUnknownFunction})
	}
	result := c.Fn.Call(args.Items)
	if result == nil {
		panic(&NativeError{Name: c.Name, Err: ErrNilResult})
	}
	return result
}

// Equal compares function names and arguments.
func (c Call) Equal(other Term) bool {
	o, ok := other.(Call)
	return ok && o.Name == c.Name && c.Args.Equal(o.Args)
}

// FindUnifier only succeeds against an unbound variable or an equal call.
func (c Call) FindUnifier(other Term, b Binding) bool {
	return unify(c, other, b)
}

// IsGround reports whether all the arguments are ground.
func (c Call) IsGround() bool { return c.Args.IsGround() }

func (c Call) String() string { return FormatTerm(c, nil) }

func (c Call) write(sb *strings.Builder, names Names) {
	sb.WriteString("(call ")
	sb.WriteString(c.Name)
	for _, t := range c.Args.Items {
		sb.WriteByte(' ')
		t.write(sb, names)
	}
	sb.WriteByte(')')
}

// unify performs the unification algorithm, recording variable bindings
// in b. Variables on either side bind to the opposite term.
func unify(t1, t2 Term, b Binding) bool {
	if v, ok := t1.(Var); ok {
		return v.bindTo(t2, b)
	}
	if v, ok := t2.(Var); ok {
		return v.bindTo(t1, b)
	}
	l1, ok := t1.(List)
	if !ok {
		return t1.Equal(t2)
	}
	l2, ok := t2.(List)
	if !ok {
		return false
	}
	x, y := l1.normalize(), l2.normalize()
	n := min(len(x.Items), len(y.Items))
	for i := 0; i < n; i++ {
		if !unify(x.Items[i], y.Items[i], b) {
			return false
		}
	}
	rx, ry := x.drop(n), y.drop(n)
	lx, xIsList := rx.(List)
	ly, yIsList := ry.(List)
	if xIsList && yIsList {
		// At least one side ran out of items, so both must be empty.
		return len(lx.Items) == 0 && len(ly.Items) == 0
	}
	return unify(rx, ry, b)
}

// match is a one-sided unification used when a template from one scope
// is matched against a query from another. Non-ground parts of the query
// act as wildcards: they never bind template variables, so no variable of
// the query's scope leaks into the template's binding.
func match(tmpl, query Term, b Binding) bool {
	if _, ok := query.(Var); ok {
		return true
	}
	switch t := tmpl.(type) {
	case Var:
		if !query.IsGround() {
			if cur := b[t]; cur != nil {
				return match(cur, query, b)
			}
			return true
		}
		return t.bindTo(query, b)
	case List:
		q, ok := query.(List)
		if !ok {
			return false
		}
		x, y := t.normalize(), q.normalize()
		n := min(len(x.Items), len(y.Items))
		for i := 0; i < n; i++ {
			if !match(x.Items[i], y.Items[i], b) {
				return false
			}
		}
		rx, ry := x.drop(n), y.drop(n)
		lx, xIsList := rx.(List)
		ly, yIsList := ry.(List)
		if xIsList && yIsList {
			return len(lx.Items) == 0 && len(ly.Items) == 0
		}
		return match(rx, ry, b)
	default:
		return tmpl.Equal(query)
	}
}

// numberOf extracts the float value of a Number term.
func numberOf(name string, t Term) float64 {
	n, ok := t.(Number)
	if !ok {
		panic(&NativeError{Name: name, Err: fmt.Errorf("%w: %s", ErrNotNumber, t)})
	}
	return float64(n)
}
