// Package queue implements the dependency-aware session scheduler used by
// the implementation phase: a TaskQueue that tracks pending, in-progress,
// completed, and blocked sessions and selects file-disjoint batches to run
// concurrently.
package queue

import (
	"fmt"
	"sync"

	"github.com/cadre-run/cadre/internal/core"
)

// TaskQueue tracks a set of sessions through pending/in-progress/completed/
// blocked transitions, rejecting unknown ids and detecting dependency
// cycles at construction.
type TaskQueue struct {
	mu sync.Mutex

	sessions map[core.SessionID]*core.Session

	inProgress map[core.SessionID]bool
	completed  map[core.SessionID]bool
	blocked    map[core.SessionID]bool
}

// New builds a TaskQueue from sessions, validating that every dependency
// refers to a known session and that the dependency graph has no cycle.
func New(sessions []*core.Session) (*TaskQueue, error) {
	q := &TaskQueue{
		sessions:   make(map[core.SessionID]*core.Session, len(sessions)),
		inProgress: make(map[core.SessionID]bool),
		completed:  make(map[core.SessionID]bool),
		blocked:    make(map[core.SessionID]bool),
	}

	for _, s := range sessions {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, exists := q.sessions[s.ID]; exists {
			return nil, core.ErrValidation("DUPLICATE_SESSION_ID", fmt.Sprintf("duplicate session id: %s", s.ID))
		}
		q.sessions[s.ID] = s
	}

	for _, s := range sessions {
		for _, dep := range s.Dependencies {
			if _, ok := q.sessions[dep]; !ok {
				return nil, core.ErrValidation("UNKNOWN_DEPENDENCY", fmt.Sprintf("session %s depends on unknown session %s", s.ID, dep))
			}
		}
	}

	if cycle := q.detectCycle(); cycle != "" {
		return nil, core.ErrValidation("CYCLE_DETECTED", fmt.Sprintf("session dependency graph contains a cycle at %s", cycle))
	}

	return q, nil
}

// detectCycle runs a DFS over the dependency graph, returning the id where
// a cycle was found, or "" if the graph is acyclic.
func (q *TaskQueue) detectCycle() core.SessionID {
	visited := make(map[core.SessionID]bool)
	onStack := make(map[core.SessionID]bool)

	var dfs func(id core.SessionID) core.SessionID
	dfs = func(id core.SessionID) core.SessionID {
		visited[id] = true
		onStack[id] = true
		for _, dep := range q.sessions[id].Dependencies {
			if !visited[dep] {
				if found := dfs(dep); found != "" {
					return found
				}
			} else if onStack[dep] {
				return id
			}
		}
		onStack[id] = false
		return ""
	}

	for id := range q.sessions {
		if !visited[id] {
			if found := dfs(id); found != "" {
				return found
			}
		}
	}
	return ""
}

// GetReady returns sessions not in completed ∪ blocked ∪ inProgress whose
// every dependency is in completed ∪ blocked. A blocked dependency still
// releases its dependents — an unfixable task never cascades a stall
// through the rest of the graph.
func (q *TaskQueue) GetReady() []*core.Session {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ready []*core.Session
	for id, s := range q.sessions {
		if q.completed[id] || q.blocked[id] || q.inProgress[id] {
			continue
		}
		if q.depsSatisfied(s) {
			ready = append(ready, s)
		}
	}
	return ready
}

func (q *TaskQueue) depsSatisfied(s *core.Session) bool {
	for _, dep := range s.Dependencies {
		if !q.completed[dep] && !q.blocked[dep] {
			return false
		}
	}
	return true
}

// Start transitions id into in-progress.
func (q *TaskQueue) Start(id core.SessionID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.sessions[id]; !ok {
		return fmt.Errorf("queue: unknown session %s", id)
	}
	q.inProgress[id] = true
	return nil
}

// Complete transitions id from in-progress to completed.
func (q *TaskQueue) Complete(id core.SessionID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.sessions[id]; !ok {
		return fmt.Errorf("queue: unknown session %s", id)
	}
	delete(q.inProgress, id)
	q.completed[id] = true
	return nil
}

// MarkBlocked transitions id from in-progress to blocked (retries
// exhausted).
func (q *TaskQueue) MarkBlocked(id core.SessionID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.sessions[id]; !ok {
		return fmt.Errorf("queue: unknown session %s", id)
	}
	delete(q.inProgress, id)
	q.blocked[id] = true
	return nil
}

// Requeue moves id out of in-progress back to pending, for a retry.
func (q *TaskQueue) Requeue(id core.SessionID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.sessions[id]; !ok {
		return fmt.Errorf("queue: unknown session %s", id)
	}
	delete(q.inProgress, id)
	return nil
}

// IsComplete reports whether every session is in completed ∪ blocked.
func (q *TaskQueue) IsComplete() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id := range q.sessions {
		if !q.completed[id] && !q.blocked[id] {
			return false
		}
	}
	return true
}

// RestoreState rehydrates completed/blocked sets on resume. Unknown ids are
// silently ignored, and the operation is idempotent.
func (q *TaskQueue) RestoreState(completed, blocked []core.SessionID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range completed {
		if _, ok := q.sessions[id]; ok {
			q.completed[id] = true
		}
	}
	for _, id := range blocked {
		if _, ok := q.sessions[id]; ok {
			q.blocked[id] = true
		}
	}
}

// Session returns a session by id.
func (q *TaskQueue) Session(id core.SessionID) (*core.Session, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.sessions[id]
	return s, ok
}
