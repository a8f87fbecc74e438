package core

// RunConfig is the resolved set of knobs a fleet run operates under. It is
// produced by the configuration layer (out of scope for this package) and
// threaded read-only through FleetOrchestrator, IssueOrchestrator, and every
// PhaseExecutor.
type RunConfig struct {
	// Agent selects the launcher backend ("claude" or "copilot") and model.
	Agent string
	Model string

	// WorktreeRoot is the directory under which per-issue worktrees live.
	WorktreeRoot string
	// BaseBranch is the ref new issue branches fork from ("main", "master").
	BaseBranch string
	GPGSign    bool

	MaxParallelIssues  int
	MaxParallelAgents  int
	MaxRetriesPerTask  int
	AgentTimeoutMs     int64

	// FleetTokenBudget and PerIssueTokenBudget of 0 mean "no budget set".
	FleetTokenBudget   int64
	PerIssueTokenBudget int64

	// DryRun stops the pipeline after phase 2 (plan), never invoking
	// implementation, integration, or PR composition.
	DryRun bool

	// MinTriageSeverity and MaxIssuesPerRun bound the end-of-run triage filing.
	MinTriageSeverity string
	MaxIssuesPerRun   int

	// WaitForChecks polls GitHub CI status after opening a pull request and
	// records the outcome as a fleet event before the phase returns.
	WaitForChecks   bool
	ChecksTimeoutMs int64
}

// DefaultRunConfig returns conservative defaults for fields a caller leaves
// unset.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Agent:             AgentClaude,
		BaseBranch:        "main",
		MaxParallelIssues: 1,
		MaxParallelAgents: 1,
		MaxRetriesPerTask: 2,
		AgentTimeoutMs:    30 * 60 * 1000,
		MinTriageSeverity: "low",
		MaxIssuesPerRun:   3,
		ChecksTimeoutMs:   30 * 60 * 1000,
	}
}
