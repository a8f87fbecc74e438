package phase

import (
	"context"

	"github.com/cadre-run/cadre/internal/core"
)

// Executor encapsulates one phase: it consumes a Context and produces an
// output artifact path (or an error).
type Executor interface {
	ID() core.Phase
	Execute(ctx context.Context, pc *Context) (outputPath string, err error)
}

// Registry holds the five PhaseExecutors indexed by phase id, and the gate
// (if any) that runs immediately before each.
type Registry struct {
	executors map[core.Phase]Executor
	gates     map[core.Phase]Gate
}

// NewRegistry builds a Registry from a set of executors, in no particular
// order; IssueOrchestrator.Run always iterates core.AllPhases() regardless
// of registration order.
func NewRegistry(executors ...Executor) *Registry {
	r := &Registry{
		executors: make(map[core.Phase]Executor, len(executors)),
		gates:     make(map[core.Phase]Gate),
	}
	for _, e := range executors {
		r.executors[e.ID()] = e
	}
	return r
}

// WithGate registers a gate to run immediately before the given phase.
func (r *Registry) WithGate(phase core.Phase, g Gate) *Registry {
	r.gates[phase] = g
	return r
}

// Executor returns the executor registered for a phase, if any.
func (r *Registry) Executor(p core.Phase) (Executor, bool) {
	e, ok := r.executors[p]
	return e, ok
}

// Gate returns the gate registered before a phase, if any.
func (r *Registry) Gate(p core.Phase) (Gate, bool) {
	g, ok := r.gates[p]
	return g, ok
}
