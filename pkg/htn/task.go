package htn

import "strings"

// TaskAtom is a single task: a compound task decomposed by methods or a
// primitive task achieved by an operator. Immediate tasks are preferred
// over their siblings when the planner picks the next task.
type TaskAtom struct {
	Pred      Predicate
	Immediate bool
	Primitive bool
}

// TaskList is a tree of tasks. A leaf holds an Atom; an inner node holds
// Subtasks, ordered or unordered. The empty task list has neither.
type TaskList struct {
	Atom     *TaskAtom
	Ordered  bool
	Subtasks []*TaskList
}

// EmptyTaskList returns a task list with no tasks.
func EmptyTaskList() *TaskList {
	return &TaskList{Ordered: true}
}

// NewTask wraps a single task atom.
func NewTask(a *TaskAtom) *TaskList {
	return &TaskList{Atom: a}
}

// NewTaskList creates an inner node.
func NewTaskList(ordered bool, subtasks ...*TaskList) *TaskList {
	return &TaskList{Ordered: ordered, Subtasks: subtasks}
}

// IsEmpty reports whether tl contains no task atom.
func (tl *TaskList) IsEmpty() bool {
	if tl == nil {
		return true
	}
	if tl.Atom != nil {
		return false
	}
	for _, s := range tl.Subtasks {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

// ApplySubstitution returns a copy of tl with the variables bound in b
// replaced.
func (tl *TaskList) ApplySubstitution(b Binding) *TaskList {
	if tl == nil {
		return nil
	}
	if tl.Atom != nil {
		a := *tl.Atom
		a.Pred = a.Pred.ApplySubstitution(b)
		return &TaskList{Atom: &a}
	}
	out := &TaskList{Ordered: tl.Ordered, Subtasks: make([]*TaskList, len(tl.Subtasks))}
	for i, s := range tl.Subtasks {
		out.Subtasks[i] = s.ApplySubstitution(b)
	}
	return out
}

// Format renders tl using the domain's task and constant names.
func (tl *TaskList) Format(d *Domain) string {
	var sb strings.Builder
	tl.write(&sb, d)
	return sb.String()
}

func (tl *TaskList) write(sb *strings.Builder, d *Domain) {
	if tl.Atom != nil {
		if tl.Atom.Immediate {
			sb.WriteString(":immediate ")
		}
		var heads Names = taskNames{d: d, primitive: tl.Atom.Primitive}
		if d == nil {
			heads = nil
		}
		var names Names
		if d != nil {
			names = d
		}
		tl.Atom.Pred.write(sb, heads, names)
		return
	}
	sb.WriteByte('(')
	if !tl.Ordered {
		sb.WriteString(":unordered")
		if len(tl.Subtasks) > 0 {
			sb.WriteByte(' ')
		}
	}
	for i, s := range tl.Subtasks {
		if i > 0 {
			sb.WriteByte(' ')
		}
		s.write(sb, d)
	}
	sb.WriteByte(')')
}
