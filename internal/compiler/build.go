package compiler

import (
	"fmt"

	"github.com/gitrdm/gokanplan/pkg/htn"
)

// Build wires def into a runtime domain for in-process planning. Native
// functions resolve through the registry def was parsed with, which must
// also provide every custom sort comparator.
func (def *DomainDef) Build() (*htn.Domain, error) {
	reg := def.registry
	if reg == nil {
		reg = htn.NewRegistry()
	}
	for _, name := range def.Comparators {
		if _, ok := reg.Comparator(name); !ok {
			return nil, &SemanticError{Msg: fmt.Sprintf("domain %s: unknown sort comparator %q", def.Name, name)}
		}
	}

	d := htn.NewDomain(def.Name)
	d.Registry = reg
	d.Constants = append([]string(nil), def.Constants...)
	d.CompoundTasks = append([]string(nil), def.CompoundTasks...)
	d.PrimitiveTasks = append([]string(nil), def.PrimitiveTasks...)
	d.VarsMaxSize = def.VarsMaxSize
	for _, op := range def.Operators {
		d.AddOperator(op)
	}
	for _, m := range def.Methods {
		d.AddMethod(m)
	}
	for _, a := range def.Axioms {
		d.AddAxiom(a)
	}
	return d, nil
}

// Build registers the problem's constants with d and returns its initial
// state and task list. d must be the domain the problem was compiled
// against.
func (p *Problem) Build(d *htn.Domain) (*htn.State, *htn.TaskList, error) {
	if d.Name != p.Domain {
		return nil, nil, &SemanticError{Msg: fmt.Sprintf("problem %s is defined for domain %s, not %s", p.Name, p.Domain, d.Name)}
	}
	if len(d.Constants) != p.DomainConstants {
		return nil, nil, &SemanticError{Msg: fmt.Sprintf("problem %s was compiled against %d domain constants, domain %s has %d",
			p.Name, p.DomainConstants, d.Name, len(d.Constants))}
	}
	d.SetProblemConstants(p.Constants)
	s := d.NewState()
	if err := s.Load(p.State...); err != nil {
		return nil, nil, fmt.Errorf("problem %s: %w", p.Name, err)
	}
	return s, p.Tasks, nil
}

// MissingNatives returns the native function names in lists that reg
// does not provide, each once, in order of first appearance.
func MissingNatives(reg *htn.Registry, lists ...[]string) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, names := range lists {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			if _, ok := reg.Function(name); !ok {
				missing = append(missing, name)
			}
		}
	}
	return missing
}
