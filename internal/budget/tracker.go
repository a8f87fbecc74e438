// Package budget tracks token spend by agent, issue, and phase, and gates
// further work against configured limits.
package budget

import "sync"

// Status is the result of a budget check against a limit.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusExceeded Status = "exceeded"
)

// warningThreshold is the fraction of a limit at which Check starts
// returning StatusWarning instead of StatusOK.
const warningThreshold = 0.8

// Tracker is an append-only record of token usage, aggregated by agent,
// issue, and phase as it accumulates.
type Tracker struct {
	mu      sync.RWMutex
	total   int64
	byAgent map[string]int64
	byIssue map[int]int64
	byPhase map[string]int64
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		byAgent: make(map[string]int64),
		byIssue: make(map[int]int64),
		byPhase: make(map[string]int64),
	}
}

// Record adds tokens to the running totals. Tokens are always
// non-negative; callers never record a decrease, preserving the
// monotonicity invariant of all aggregates.
func (t *Tracker) Record(agent string, issueNumber int, phase string, tokens int64) {
	if tokens <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total += tokens
	t.byAgent[agent] += tokens
	t.byIssue[issueNumber] += tokens
	t.byPhase[phase] += tokens
}

// Total returns the running total across all agents, issues, and phases.
func (t *Tracker) Total() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// ByIssue returns the running total for one issue.
func (t *Tracker) ByIssue(issueNumber int) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byIssue[issueNumber]
}

// ByAgent returns the running total for one agent.
func (t *Tracker) ByAgent(agent string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byAgent[agent]
}

// ByPhase returns the running total for one phase.
func (t *Tracker) ByPhase(phase string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byPhase[phase]
}

// Check reports status against limit for the given spend: a limit of 0
// means "no budget set" and always returns StatusOK.
func Check(spend, limit int64) Status {
	if limit <= 0 {
		return StatusOK
	}
	ratio := float64(spend) / float64(limit)
	switch {
	case ratio >= 1:
		return StatusExceeded
	case ratio >= warningThreshold:
		return StatusWarning
	default:
		return StatusOK
	}
}
