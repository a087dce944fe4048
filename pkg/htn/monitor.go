package htn

// monitor.go: statistics hooks for evaluation, state changes and search

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// NodeKind identifies the precondition node variant that produced a binding.
type NodeKind string

const (
	KindAtomic      NodeKind = "atomic"
	KindNegation    NodeKind = "not"
	KindForAll      NodeKind = "forall"
	KindAssign      NodeKind = "assign"
	KindCall        NodeKind = "call"
	KindNil         NodeKind = "nil"
	KindConjunction NodeKind = "and"
	KindDisjunction NodeKind = "or"
	KindSort        NodeKind = "sort"
)

// Mutation identifies a state change.
type Mutation string

const (
	MutationAdd       Mutation = "add"
	MutationDelete    Mutation = "del"
	MutationProtect   Mutation = "protect"
	MutationUnprotect Mutation = "unprotect"
	MutationUndo      Mutation = "undo"
)

// Monitor receives events from the evaluator, the state and the search
// driver. Implementations must be cheap; they run on the hot path.
type Monitor interface {
	RecordBinding(kind NodeKind)
	RecordMutation(op Mutation)
	RecordDepth(depth int)
	RecordBacktrack()
	RecordPlan()
}

// Stats holds counters collected by a StatsMonitor.
type Stats struct {
	Bindings   map[NodeKind]int // Satisfiers yielded per node kind
	Mutations  map[Mutation]int // State changes per kind
	MaxDepth   int              // Deepest evaluation or search depth seen
	Backtracks int              // Effects undone by the search driver
	Plans      int              // Plans found
	Elapsed    time.Duration    // Time since the monitor was created
}

// StatsMonitor is a Monitor that keeps in-memory counters.
type StatsMonitor struct {
	mu        sync.Mutex
	stats     Stats
	startTime time.Time
}

// NewStatsMonitor creates a new statistics monitor
func NewStatsMonitor() *StatsMonitor {
	return &StatsMonitor{
		stats: Stats{
			Bindings:  make(map[NodeKind]int),
			Mutations: make(map[Mutation]int),
		},
		startTime: time.Now(),
	}
}

// GetStats returns a copy of the current statistics
func (m *StatsMonitor) GetStats() *Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	stats.Bindings = make(map[NodeKind]int, len(m.stats.Bindings))
	for k, v := range m.stats.Bindings {
		stats.Bindings[k] = v
	}
	stats.Mutations = make(map[Mutation]int, len(m.stats.Mutations))
	for k, v := range m.stats.Mutations {
		stats.Mutations[k] = v
	}
	stats.Elapsed = time.Since(m.startTime)
	return &stats
}

// RecordBinding records a satisfier produced by a node
func (m *StatsMonitor) RecordBinding(kind NodeKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Bindings[kind]++
}

// RecordMutation records a state change
func (m *StatsMonitor) RecordMutation(op Mutation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Mutations[op]++
}

// RecordDepth records the current depth
func (m *StatsMonitor) RecordDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if depth > m.stats.MaxDepth {
		m.stats.MaxDepth = depth
	}
}

// RecordBacktrack records an undone operator application
func (m *StatsMonitor) RecordBacktrack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Backtracks++
}

// RecordPlan records finding a plan
func (m *StatsMonitor) RecordPlan() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Plans++
}

// TotalBindings sums the bindings over all node kinds.
func (s *Stats) TotalBindings() int {
	total := 0
	for _, n := range s.Bindings {
		total += n
	}
	return total
}

// String returns a formatted string representation of the statistics
func (s *Stats) String() string {
	kinds := make([]string, 0, len(s.Bindings))
	for k, n := range s.Bindings {
		kinds = append(kinds, fmt.Sprintf("%s=%d", k, n))
	}
	sort.Strings(kinds)
	ops := make([]string, 0, len(s.Mutations))
	for k, n := range s.Mutations {
		ops = append(ops, fmt.Sprintf("%s=%d", k, n))
	}
	sort.Strings(ops)
	return fmt.Sprintf(
		"Planner Statistics:\n"+
			"  Search: %d plans, %d backtracks, max depth %d, %v time\n"+
			"  Bindings: %d [%s]\n"+
			"  State: [%s]",
		s.Plans, s.Backtracks, s.MaxDepth, s.Elapsed,
		s.TotalBindings(), strings.Join(kinds, " "),
		strings.Join(ops, " "),
	)
}

// multiMonitor fans events out to several monitors.
type multiMonitor []Monitor

// Monitors combines several monitors into one. Nil entries are skipped.
func Monitors(ms ...Monitor) Monitor {
	var out multiMonitor
	for _, m := range ms {
		if m != nil {
			out = append(out, m)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (mm multiMonitor) RecordBinding(kind NodeKind) {
	for _, m := range mm {
		m.RecordBinding(kind)
	}
}

func (mm multiMonitor) RecordMutation(op Mutation) {
	for _, m := range mm {
		m.RecordMutation(op)
	}
}

func (mm multiMonitor) RecordDepth(depth int) {
	for _, m := range mm {
		m.RecordDepth(depth)
	}
}

func (mm multiMonitor) RecordBacktrack() {
	for _, m := range mm {
		m.RecordBacktrack()
	}
}

func (mm multiMonitor) RecordPlan() {
	for _, m := range mm {
		m.RecordPlan()
	}
}
