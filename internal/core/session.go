package core

import "fmt"

// SessionID uniquely identifies a session within an issue's implementation
// phase.
type SessionID string

// Complexity is the planner's estimate of a step's difficulty.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Step is a single unit of planned work inside a session.
type Step struct {
	ID                 string
	Files              []string
	Complexity         Complexity
	AcceptanceCriteria []string
}

// SessionStatus is the lifecycle state of a session inside the TaskQueue.
// Every session belongs to exactly one of four disjoint sets: pending,
// in-progress, completed, blocked.
type SessionStatus string

const (
	SessionPending    SessionStatus = "pending"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionBlocked    SessionStatus = "blocked"
)

// Session is the unit dispatched to the implementation phase. Its file set
// is the union of its steps' files, computed once at construction.
type Session struct {
	ID           SessionID
	Name         string
	Description  string
	Steps        []Step
	Dependencies []SessionID
	Files        []string

	Status     SessionStatus
	Attempts   int
	MaxRetries int
	Error      string
}

// NewSession builds a session from a planner-produced description,
// computing the Files union from its steps if Files was left empty.
func NewSession(id SessionID, name, description string, steps []Step, deps []SessionID, maxRetries int) *Session {
	s := &Session{
		ID:           id,
		Name:         name,
		Description:  description,
		Steps:        steps,
		Dependencies: deps,
		Status:       SessionPending,
		MaxRetries:   maxRetries,
	}
	s.Files = s.fileUnion()
	return s
}

func (s *Session) fileUnion() []string {
	seen := make(map[string]bool)
	var files []string
	for _, step := range s.Steps {
		for _, f := range step.Files {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files
}

// Validate checks session invariants (non-empty id, no self-dependency).
func (s *Session) Validate() error {
	if s.ID == "" {
		return ErrValidation("SESSION_ID_REQUIRED", "session ID cannot be empty")
	}
	for _, dep := range s.Dependencies {
		if dep == s.ID {
			return ErrValidation("SELF_DEPENDENCY", fmt.Sprintf("session %s depends on itself", s.ID))
		}
	}
	return nil
}

// CanRetry reports whether a blocked/failed session has retry budget left.
func (s *Session) CanRetry() bool {
	return s.Attempts < s.MaxRetries
}
