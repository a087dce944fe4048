package compiler

import "github.com/gitrdm/gokanplan/pkg/htn"

// DomainDef is a parsed domain description: its symbol tables and its
// elements in declaration order. Element i of Operators, Methods and
// Axioms carries the id i used to name its generated constructor.
type DomainDef struct {
	Name string

	Constants      []string
	CompoundTasks  []string
	PrimitiveTasks []string

	Operators []*htn.Operator
	Methods   []*htn.Method
	Axioms    []*htn.Axiom

	// Natives lists the user native functions in order of first use.
	Natives []string
	// Comparators lists the custom :sort-by comparators in order of first use.
	Comparators []string

	VarsMaxSize int

	registry *htn.Registry
}

// Problem is one defproblem form.
type Problem struct {
	Name   string
	Domain string

	// Constants holds the constants that appear only in the problem. Their
	// ids follow the domain's own constants.
	Constants []string
	// DomainConstants is the number of domain constants the problem was
	// compiled against.
	DomainConstants int

	State    []htn.Predicate
	Tasks    *htn.TaskList
	VarCount int

	// Natives lists native functions called from the task list.
	Natives []string
}

// ProblemSet names a group of problems.
type ProblemSet struct {
	Name     string
	Problems []string
}

// ProblemFile is the content of a problem source file.
type ProblemFile struct {
	Problems []*Problem
	Sets     []ProblemSet
}

// Problem returns the problem called name, or nil.
func (f *ProblemFile) Problem(name string) *Problem {
	for _, p := range f.Problems {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// symbolTable interns names into dense ids in insertion order.
type symbolTable struct {
	names []string
	index map[string]int
}

func newSymbolTable(seed []string) *symbolTable {
	t := &symbolTable{index: make(map[string]int, len(seed))}
	for _, n := range seed {
		t.intern(n)
	}
	return t
}

func (t *symbolTable) intern(name string) int {
	if id, ok := t.index[name]; ok {
		return id
	}
	id := len(t.names)
	t.names = append(t.names, name)
	t.index[name] = id
	return id
}

func (t *symbolTable) lookup(name string) (int, bool) {
	id, ok := t.index[name]
	return id, ok
}

// ConstantName makes a table usable as htn.Names.
func (t *symbolTable) ConstantName(id int) string {
	if id >= 0 && id < len(t.names) {
		return t.names[id]
	}
	return ""
}

func (t *symbolTable) snapshot() []string {
	return append([]string(nil), t.names...)
}

// idAllocator numbers elements per kind as they are declared.
type idAllocator struct {
	operators int
	methods   int
	axioms    int
}

func (a *idAllocator) nextOperator() int { a.operators++; return a.operators - 1 }
func (a *idAllocator) nextMethod() int   { a.methods++; return a.methods - 1 }
func (a *idAllocator) nextAxiom() int    { a.axioms++; return a.axioms - 1 }

// nameSet records names once, in order of first appearance.
type nameSet struct {
	names []string
	seen  map[string]bool
}

func (s *nameSet) add(name string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if !s.seen[name] {
		s.seen[name] = true
		s.names = append(s.names, name)
	}
}
