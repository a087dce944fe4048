package planner

import "github.com/gitrdm/gokanplan/pkg/htn"

// firstTasks returns the leaves that may be worked on next: the first
// pending task of an ordered list, every pending task of an unordered one.
func firstTasks(tl *htn.TaskList) []*htn.TaskList {
	if tl == nil {
		return nil
	}
	if tl.Atom != nil {
		return []*htn.TaskList{tl}
	}
	var out []*htn.TaskList
	for _, sub := range tl.Subtasks {
		if sub.IsEmpty() {
			continue
		}
		out = append(out, firstTasks(sub)...)
		if tl.Ordered {
			break
		}
	}
	return out
}

// preferImmediate narrows candidates to the :immediate ones if any exist.
func preferImmediate(leaves []*htn.TaskList) []*htn.TaskList {
	var immediate []*htn.TaskList
	for _, l := range leaves {
		if l.Atom.Immediate {
			immediate = append(immediate, l)
		}
	}
	if len(immediate) > 0 {
		return immediate
	}
	return leaves
}

// replace returns a copy of tl in which leaf is swapped for with. A nil
// with removes the leaf. Untouched subtrees are shared.
func replace(tl, leaf, with *htn.TaskList) *htn.TaskList {
	if tl == leaf {
		if with == nil {
			return htn.EmptyTaskList()
		}
		return with
	}
	if tl.Atom != nil {
		return tl
	}
	out := &htn.TaskList{Ordered: tl.Ordered, Subtasks: make([]*htn.TaskList, len(tl.Subtasks))}
	changed := false
	for i, sub := range tl.Subtasks {
		out.Subtasks[i] = replace(sub, leaf, with)
		changed = changed || out.Subtasks[i] != sub
	}
	if !changed {
		return tl
	}
	return out
}
