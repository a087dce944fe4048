package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	gotoken "go/token"
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/gitrdm/gokanplan/pkg/htn"
)

const runtimeImport = "github.com/gitrdm/gokanplan/pkg/htn"
const plannerImport = "github.com/gitrdm/gokanplan/pkg/planner"

// EmitOptions controls code generation.
type EmitOptions struct {
	// Package names the generated domain package. Empty derives it from
	// the domain name.
	Package string
	// DomainImport is the import path of the generated domain package.
	// Problem drivers need it.
	DomainImport string
	// Source is the input file name quoted in the generated header.
	Source string
	// AllPlans makes problem drivers print every plan instead of the first.
	AllPlans bool
}

// ErrNoDomainImport is returned when emitting a problem driver without
// EmitOptions.DomainImport.
var ErrNoDomainImport = errors.New("compiler: domain import path is required to emit problems")

// PackageName turns a domain name into a Go package name.
func PackageName(domain string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(domain) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		}
	}
	name := sb.String()
	switch {
	case name == "":
		return "domain"
	case unicode.IsDigit(rune(name[0])):
		return "d" + name
	case gotoken.IsKeyword(name):
		return name + "domain"
	}
	return name
}

// exportedName turns a domain language identifier into a Go identifier
// part: path-length becomes PathLength.
func exportedName(name string) string {
	var sb strings.Builder
	upper := true
	for _, r := range name {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r)) || r >= unicode.MaxASCII {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	if sb.Len() == 0 {
		return "Fn"
	}
	return sb.String()
}

// nativeFields assigns a distinct struct field to every native name.
func nativeFields(natives []string) map[string]string {
	fields := make(map[string]string, len(natives))
	used := make(map[string]bool, len(natives))
	for _, n := range natives {
		f := "calculate" + exportedName(n)
		for i := 2; used[f]; i++ {
			f = fmt.Sprintf("calculate%s%d", exportedName(n), i)
		}
		used[f] = true
		fields[n] = f
	}
	return fields
}

// emitter renders runtime values as Go expressions that rebuild them.
type emitter struct {
	constants names
	compound  names
	primitive names
	// native returns the expression yielding a user native function.
	native func(name string) string
}

type names []string

func (n names) ConstantName(id int) string {
	if id >= 0 && id < len(n) {
		return n[id]
	}
	return ""
}

func comment(n names, id int) string {
	if s := n.ConstantName(id); s != "" {
		return " /* " + s + " */"
	}
	return ""
}

func (e *emitter) term(t htn.Term) string {
	switch x := t.(type) {
	case htn.Var:
		return fmt.Sprintf("htn.Var(%d)", int(x))
	case htn.Const:
		return fmt.Sprintf("htn.Const(%d%s)", int(x), comment(e.constants, int(x)))
	case htn.Number:
		return "htn.Number(" + strconv.FormatFloat(float64(x), 'g', -1, 64) + ")"
	case htn.List:
		if x.Tail == nil {
			if len(x.Items) == 0 {
				return "htn.Nil"
			}
			return "htn.NewList(" + e.terms(x.Items) + ")"
		}
		return fmt.Sprintf("htn.List{Items: []htn.Term{%s}, Tail: %s}", e.terms(x.Items), e.term(x.Tail))
	case htn.Call:
		args := ""
		if len(x.Args.Items) > 0 {
			args = ", " + e.terms(x.Args.Items)
		}
		return fmt.Sprintf("htn.NewCall(%q, %s%s)", x.Name, e.function(x.Name), args)
	}
	panic(fmt.Sprintf("compiler: cannot emit term %T", t))
}

func (e *emitter) terms(ts []htn.Term) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = e.term(t)
	}
	return strings.Join(parts, ", ")
}

func (e *emitter) function(name string) string {
	if htn.IsStdLib(name) {
		return "htn.Std" + strings.ToUpper(name[:1]) + name[1:]
	}
	return e.native(name)
}

func (e *emitter) pred(p htn.Predicate, heads names) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "htn.NewPredicate(%d%s, %d", p.Head, comment(heads, p.Head), p.VarCount)
	if len(p.Params.Items) > 0 {
		sb.WriteString(", ")
		sb.WriteString(e.terms(p.Params.Items))
	}
	sb.WriteByte(')')
	return sb.String()
}

func (e *emitter) atom(p htn.Predicate) string { return e.pred(p, e.constants) }

func (e *emitter) exprs(xs []htn.Expr) string {
	var sb strings.Builder
	sb.WriteString("[]htn.Expr{\n")
	for _, x := range xs {
		sb.WriteString(e.expr(x))
		sb.WriteString(",\n")
	}
	sb.WriteByte('}')
	return sb.String()
}

func (e *emitter) expr(x htn.Expr) string {
	switch x := x.(type) {
	case nil, *htn.NilExpr:
		return "&htn.NilExpr{}"
	case *htn.Atomic:
		return "&htn.Atomic{Pred: " + e.atom(x.Pred) + "}"
	case *htn.Not:
		return "&htn.Not{X: " + e.expr(x.X) + "}"
	case *htn.And:
		return "&htn.And{Xs: " + e.exprs(x.Xs) + "}"
	case *htn.Or:
		return "&htn.Or{Xs: " + e.exprs(x.Xs) + "}"
	case *htn.ForAll:
		return fmt.Sprintf("&htn.ForAll{\nPremise: %s,\nConsequence: %s,\n}", e.expr(x.Premise), e.expr(x.Consequence))
	case *htn.Assign:
		return fmt.Sprintf("&htn.Assign{Var: %d, Term: %s}", x.Var, e.term(x.Term))
	case *htn.CallExpr:
		return "&htn.CallExpr{Call: " + e.term(x.Call) + "}"
	}
	panic(fmt.Sprintf("compiler: cannot emit expression %T", x))
}

func (e *emitter) precondition(lp *htn.LogicalPrecondition) string {
	if lp == nil {
		return "nil"
	}
	var sb strings.Builder
	sb.WriteString("&htn.LogicalPrecondition{\nExpr: ")
	sb.WriteString(e.expr(lp.Expr))
	sb.WriteString(",\n")
	if lp.First {
		sb.WriteString("First: true,\n")
	}
	if lp.Sort != nil {
		fmt.Fprintf(&sb, "Sort: &htn.SortSpec{Var: %d, Name: %q},\n", lp.Sort.Var, lp.Sort.Name)
	}
	sb.WriteByte('}')
	return sb.String()
}

func (e *emitter) effects(list []htn.Effect) string {
	if len(list) == 0 {
		return "nil"
	}
	var sb strings.Builder
	sb.WriteString("[]htn.Effect{\n")
	for _, eff := range list {
		switch x := eff.(type) {
		case *htn.AtomicEffect:
			sb.WriteString("&htn.AtomicEffect{Atom: " + e.atom(x.Atom) + "}")
		case *htn.ProtectionEffect:
			sb.WriteString("&htn.ProtectionEffect{Atom: " + e.atom(x.Atom) + "}")
		case *htn.ForAllEffect:
			atoms := make([]string, len(x.Atoms))
			for i, a := range x.Atoms {
				atoms[i] = e.atom(a) + ",\n"
			}
			fmt.Fprintf(&sb, "&htn.ForAllEffect{\nPre: %s,\nAtoms: []htn.Predicate{\n%s},\n}", e.expr(x.Pre), strings.Join(atoms, ""))
		default:
			panic(fmt.Sprintf("compiler: cannot emit effect %T", eff))
		}
		sb.WriteString(",\n")
	}
	sb.WriteByte('}')
	return sb.String()
}

func (e *emitter) taskList(tl *htn.TaskList) string {
	if tl.Atom != nil {
		heads := e.compound
		if tl.Atom.Primitive {
			heads = e.primitive
		}
		var sb strings.Builder
		sb.WriteString("htn.NewTask(&htn.TaskAtom{Pred: ")
		sb.WriteString(e.pred(tl.Atom.Pred, heads))
		if tl.Atom.Immediate {
			sb.WriteString(", Immediate: true")
		}
		if tl.Atom.Primitive {
			sb.WriteString(", Primitive: true")
		}
		sb.WriteString("})")
		return sb.String()
	}
	if tl.Ordered && len(tl.Subtasks) == 0 {
		return "htn.EmptyTaskList()"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "htn.NewTaskList(%t", tl.Ordered)
	for _, sub := range tl.Subtasks {
		sb.WriteString(",\n")
		sb.WriteString(e.taskList(sub))
	}
	if len(tl.Subtasks) > 0 {
		sb.WriteString(",\n")
	}
	sb.WriteByte(')')
	return sb.String()
}

// headString renders an element head for doc comments.
func (e *emitter) headString(p htn.Predicate, heads names) string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(heads.ConstantName(p.Head))
	for _, t := range p.Params.Items {
		sb.WriteByte(' ')
		sb.WriteString(htn.FormatTerm(t, e.constants))
	}
	sb.WriteByte(')')
	return sb.String()
}

func stringSlice(ss []string) string {
	if len(ss) == 0 {
		return "[]string{}"
	}
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = strconv.Quote(s)
	}
	return "[]string{" + strings.Join(quoted, ", ") + "}"
}

func header(buf *bytes.Buffer, source string) {
	if source == "" {
		source = "a domain description"
	} else {
		source = path.Base(source)
	}
	fmt.Fprintf(buf, "// Code generated by htnc from %s. DO NOT EDIT.\n\n", source)
}

func gofmt(src []byte) ([]byte, error) {
	out, err := format.Source(src)
	if err != nil {
		return nil, fmt.Errorf("format generated code: %w", err)
	}
	return out, nil
}

// EmitDomain generates the Go package that constructs def. The package
// has one constructor per element and a New function that indexes them
// into an htn.Domain.
func EmitDomain(def *DomainDef, opts EmitOptions) ([]byte, error) {
	pkg := opts.Package
	if pkg == "" {
		pkg = PackageName(def.Name)
	}
	fields := nativeFields(def.Natives)
	e := &emitter{
		constants: def.Constants,
		compound:  def.CompoundTasks,
		primitive: def.PrimitiveTasks,
		native:    func(name string) string { return "n." + fields[name] },
	}

	var buf bytes.Buffer
	header(&buf, opts.Source)
	fmt.Fprintf(&buf, "// Package %s builds the %s planning domain.\n", pkg, def.Name)
	fmt.Fprintf(&buf, "package %s\n\nimport %q\n\n", pkg, runtimeImport)
	fmt.Fprintf(&buf, "// Name is the domain name.\nconst Name = %q\n\n", def.Name)
	fmt.Fprintf(&buf, "// VarsMaxSize is the largest variable scope of any element.\nconst VarsMaxSize = %d\n\n", def.VarsMaxSize)
	fmt.Fprintf(&buf, "// Natives lists the native functions New resolves through the registry.\nvar Natives = %s\n\n", stringSlice(def.Natives))
	fmt.Fprintf(&buf, "// Comparators lists the sort comparators the registry must provide.\nvar Comparators = %s\n\n", stringSlice(def.Comparators))

	buf.WriteString("// natives holds one function per native name, shared by all elements.\ntype natives struct {\n")
	for _, n := range def.Natives {
		fmt.Fprintf(&buf, "%s htn.Function\n", fields[n])
	}
	buf.WriteString("}\n\n")

	if needsRegister(def) {
		fmt.Fprintf(&buf, `// New builds the %s domain. Native functions resolve through reg; a nil
// reg selects a fresh registry holding the standard library and the
// functions installed by Register.
func New(reg *htn.Registry) *htn.Domain {
	d := htn.NewDomain(Name)
	if reg != nil {
		d.Registry = reg
	} else {
		Register(d.Registry)
	}
`, def.Name)
	} else {
		fmt.Fprintf(&buf, `// New builds the %s domain. A nil reg selects a fresh registry holding
// the standard library.
func New(reg *htn.Registry) *htn.Domain {
	d := htn.NewDomain(Name)
	if reg != nil {
		d.Registry = reg
	}
`, def.Name)
	}
	fmt.Fprintf(&buf, `d.Constants = %s
	d.CompoundTasks = %s
	d.PrimitiveTasks = %s
	d.VarsMaxSize = VarsMaxSize

`, stringSlice(def.Constants), stringSlice(def.CompoundTasks), stringSlice(def.PrimitiveTasks))
	buf.WriteString("n := &natives{\n")
	for _, n := range def.Natives {
		fmt.Fprintf(&buf, "%s: d.Registry.Resolve(%q),\n", fields[n], n)
	}
	buf.WriteString("}\n")
	for i := range def.Operators {
		fmt.Fprintf(&buf, "d.AddOperator(n.operator%d())\n", i)
	}
	for i := range def.Methods {
		fmt.Fprintf(&buf, "d.AddMethod(n.method%d())\n", i)
	}
	for i := range def.Axioms {
		fmt.Fprintf(&buf, "d.AddAxiom(n.axiom%d())\n", i)
	}
	buf.WriteString("return d\n}\n\n")

	for i, op := range def.Operators {
		fmt.Fprintf(&buf, "// operator%d achieves %s.\n", i, e.headString(op.Head, e.primitive))
		fmt.Fprintf(&buf, "func (n *natives) operator%d() *htn.Operator {\nreturn &htn.Operator{\n", i)
		fmt.Fprintf(&buf, "Head: %s,\n", e.pred(op.Head, e.primitive))
		fmt.Fprintf(&buf, "Pre: %s,\n", e.precondition(op.Pre))
		fmt.Fprintf(&buf, "Del: %s,\n", e.effects(op.Del))
		fmt.Fprintf(&buf, "Add: %s,\n", e.effects(op.Add))
		if op.Cost != nil {
			fmt.Fprintf(&buf, "Cost: %s,\n", e.term(op.Cost))
		}
		buf.WriteString("}\n}\n\n")
	}

	for i, m := range def.Methods {
		fmt.Fprintf(&buf, "// method%d decomposes %s.\n", i, e.headString(m.Head, e.compound))
		fmt.Fprintf(&buf, "func (n *natives) method%d() *htn.Method {\nreturn &htn.Method{\n", i)
		fmt.Fprintf(&buf, "Head: %s,\nBranches: []htn.MethodBranch{\n", e.pred(m.Head, e.compound))
		for _, br := range m.Branches {
			fmt.Fprintf(&buf, "{\nLabel: %q,\nPre: %s,\nSubtasks: %s,\n},\n", br.Label, e.precondition(br.Pre), e.taskList(br.Subtasks))
		}
		buf.WriteString("},\n}\n}\n\n")
	}

	for i, a := range def.Axioms {
		fmt.Fprintf(&buf, "// axiom%d proves %s.\n", i, e.headString(a.Head, e.constants))
		fmt.Fprintf(&buf, "func (n *natives) axiom%d() *htn.Axiom {\nreturn &htn.Axiom{\n", i)
		fmt.Fprintf(&buf, "Head: %s,\nBranches: []htn.AxiomBranch{\n", e.atom(a.Head))
		for _, br := range a.Branches {
			fmt.Fprintf(&buf, "{\nLabel: %q,\nPre: %s,\n},\n", br.Label, e.precondition(br.Pre))
		}
		buf.WriteString("},\n}\n}\n\n")
	}

	return gofmt(buf.Bytes())
}

// needsRegister reports whether the domain package must provide a
// Register function.
func needsRegister(def *DomainDef) bool {
	return len(def.Natives) > 0 || len(def.Comparators) > 0
}

// EmitNatives generates the natives.go file of a domain package: a
// Register function installing a placeholder for every native function
// and custom comparator def references. The file is meant to be edited,
// so it carries no generated-code header. EmitNatives returns nil when def
// references none.
func EmitNatives(def *DomainDef, opts EmitOptions) ([]byte, error) {
	if !needsRegister(def) {
		return nil, nil
	}
	pkg := opts.Package
	if pkg == "" {
		pkg = PackageName(def.Name)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Native functions of the %s domain. htnc writes this file once and\n", def.Name)
	buf.WriteString("// never overwrites it; replace the placeholders below.\n\n")
	fmt.Fprintf(&buf, "package %s\n\nimport %q\n\n", pkg, runtimeImport)
	fmt.Fprintf(&buf, "// Register installs the native functions and sort comparators of the\n// %s domain into reg.\n", def.Name)
	buf.WriteString("func Register(reg *htn.Registry) {\n")
	for _, n := range def.Natives {
		fmt.Fprintf(&buf, `reg.Register(%q, htn.FunctionFunc(func(args []htn.Term) htn.Term {
	panic(&htn.NativeError{Name: %q, Err: htn.ErrNotImplemented})
}))
`, n, n)
	}
	for _, c := range def.Comparators {
		fmt.Fprintf(&buf, "reg.RegisterComparator(%q, htn.CompLess)\n", c)
	}
	buf.WriteString("}\n")
	return gofmt(buf.Bytes())
}

// EmitProblem generates a main package that builds the domain, loads the
// problem's initial state and prints the plans found for its task list.
// m supplies the domain's symbol tables for the generated comments.
func EmitProblem(p *Problem, m *Manifest, opts EmitOptions) ([]byte, error) {
	if opts.DomainImport == "" {
		return nil, ErrNoDomainImport
	}
	e := &emitter{
		constants: append(append(names(nil), m.Constants...), p.Constants...),
		compound:  m.CompoundTasks,
		primitive: m.PrimitiveTasks,
		native:    func(name string) string { return fmt.Sprintf("d.Registry.Resolve(%q)", name) },
	}

	var buf bytes.Buffer
	header(&buf, opts.Source)
	fmt.Fprintf(&buf, "// Command %s plans problem %s of domain %s.\n", exportedName(p.Name), p.Name, p.Domain)
	fmt.Fprintf(&buf, `package main

import (
	"context"
	"fmt"
	"os"

	%q
	%q

	domain %q
)

`, runtimeImport, plannerImport, opts.DomainImport)

	fmt.Fprintf(&buf, "// problem registers the problem constants with d and returns the\n// initial state and task list.\n")
	buf.WriteString("func problem(d *htn.Domain) (*htn.State, *htn.TaskList, error) {\n")
	fmt.Fprintf(&buf, "d.SetProblemConstants(%s)\n", stringSlice(p.Constants))
	buf.WriteString("s := d.NewState()\nif err := s.Load(\n")
	for _, a := range p.State {
		buf.WriteString(e.atom(a))
		buf.WriteString(",\n")
	}
	buf.WriteString("); err != nil {\nreturn nil, nil, err\n}\n")
	fmt.Fprintf(&buf, "return s, %s, nil\n}\n\n", e.taskList(p.Tasks))

	fmt.Fprintf(&buf, `func main() {
	d := domain.New(nil)
	s, tasks, err := problem(d)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := planner.DefaultConfig()
	cfg.AllPlans = %t
	cfg.PlanLimit = 0
	plans, err := planner.New(d, cfg).FindPlans(context.Background(), s, tasks)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for i, p := range plans {
		fmt.Printf("plan %%d:\n%%s", i+1, p.Format(d))
	}
}
`, opts.AllPlans)

	return gofmt(buf.Bytes())
}
