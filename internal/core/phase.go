package core

import "fmt"

// Phase represents one of the five ordered pipeline stages run for a
// single issue.
type Phase string

const (
	// PhaseAnalyze inspects the issue and produces an analysis artifact.
	PhaseAnalyze Phase = "analyze"

	// PhasePlan turns the analysis into an implementation plan: a list of
	// sessions with dependencies and file claims.
	PhasePlan Phase = "plan"

	// PhaseImplement runs the dependency-aware session queue against the
	// worktree, invoking one or more agents per session.
	PhaseImplement Phase = "implement"

	// PhaseIntegrate merges dependency branches, rebases, and commits the
	// accumulated changes onto the issue branch.
	PhaseIntegrate Phase = "integrate"

	// PhaseComposePR strips internal scratch files from history and opens
	// the pull request.
	PhaseComposePR Phase = "compose-pr"
)

// AllPhases returns all phases in execution order.
func AllPhases() []Phase {
	return []Phase{PhaseAnalyze, PhasePlan, PhaseImplement, PhaseIntegrate, PhaseComposePR}
}

// PhaseOrder returns the numeric order of a phase (0-indexed), matching the
// 1..5 phaseId space used by the phase registry (PhaseOrder+1).
func PhaseOrder(p Phase) int {
	switch p {
	case PhaseAnalyze:
		return 0
	case PhasePlan:
		return 1
	case PhaseImplement:
		return 2
	case PhaseIntegrate:
		return 3
	case PhaseComposePR:
		return 4
	default:
		return -1
	}
}

// IsCritical reports whether a failure of this phase must abort the issue
// pipeline. Phases 1-3 (analyze, plan, implement) are critical; phases 4-5
// (integrate, compose-pr) are non-critical and only logged.
func (p Phase) IsCritical() bool {
	switch p {
	case PhaseAnalyze, PhasePlan, PhaseImplement:
		return true
	default:
		return false
	}
}

// NextPhase returns the phase following the given phase.
// Returns empty string if current phase is the last.
func NextPhase(p Phase) Phase {
	switch p {
	case PhaseAnalyze:
		return PhasePlan
	case PhasePlan:
		return PhaseImplement
	case PhaseImplement:
		return PhaseIntegrate
	case PhaseIntegrate:
		return PhaseComposePR
	default:
		return ""
	}
}

// PrevPhase returns the phase preceding the given phase.
// Returns empty string if current phase is the first.
func PrevPhase(p Phase) Phase {
	switch p {
	case PhasePlan:
		return PhaseAnalyze
	case PhaseImplement:
		return PhasePlan
	case PhaseIntegrate:
		return PhaseImplement
	case PhaseComposePR:
		return PhaseIntegrate
	default:
		return ""
	}
}

// ValidPhase checks if a phase string is valid.
func ValidPhase(p Phase) bool {
	switch p {
	case PhaseAnalyze, PhasePlan, PhaseImplement, PhaseIntegrate, PhaseComposePR:
		return true
	default:
		return false
	}
}

// ParsePhase converts a string to a Phase with validation.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !ValidPhase(p) {
		return "", fmt.Errorf("invalid phase: %s", s)
	}
	return p, nil
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// Description returns a human-readable description of the phase.
func (p Phase) Description() string {
	switch p {
	case PhaseAnalyze:
		return "Analyze the issue"
	case PhasePlan:
		return "Plan sessions and file claims"
	case PhaseImplement:
		return "Implement sessions under the task queue"
	case PhaseIntegrate:
		return "Integrate branches and commit changes"
	case PhaseComposePR:
		return "Strip scratch files and open the pull request"
	default:
		return "Unknown phase"
	}
}
