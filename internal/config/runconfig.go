package config

import (
	"time"

	"github.com/cadre-run/cadre/internal/core"
)

// ToRunConfig projects the loaded Config onto the core.RunConfig shape every
// orchestrator and phase executor actually reads.
func (c *Config) ToRunConfig() core.RunConfig {
	rc := core.DefaultRunConfig()

	if c.Agent.Default != "" {
		rc.Agent = c.Agent.Default
	}
	rc.Model = c.modelFor(rc.Agent)

	if c.Git.WorktreeRoot != "" {
		rc.WorktreeRoot = c.Git.WorktreeRoot
	}
	if c.Git.BaseBranch != "" {
		rc.BaseBranch = c.Git.BaseBranch
	}
	rc.GPGSign = c.Git.GPGSign

	if c.Fleet.MaxParallelIssues > 0 {
		rc.MaxParallelIssues = c.Fleet.MaxParallelIssues
	}
	if c.Fleet.MaxParallelAgents > 0 {
		rc.MaxParallelAgents = c.Fleet.MaxParallelAgents
	}
	if c.Fleet.MaxRetriesPerTask > 0 {
		rc.MaxRetriesPerTask = c.Fleet.MaxRetriesPerTask
	}
	if d, err := time.ParseDuration(c.Fleet.AgentTimeout); err == nil && d > 0 {
		rc.AgentTimeoutMs = d.Milliseconds()
	}
	rc.DryRun = c.Fleet.DryRun

	rc.FleetTokenBudget = c.Budget.FleetTokenBudget
	rc.PerIssueTokenBudget = c.Budget.PerIssueTokenBudget

	if c.Triage.MinSeverity != "" {
		rc.MinTriageSeverity = c.Triage.MinSeverity
	}
	if c.Triage.MaxIssuesPerRun > 0 {
		rc.MaxIssuesPerRun = c.Triage.MaxIssuesPerRun
	}

	rc.WaitForChecks = c.GitHub.WaitForChecks
	if d, err := time.ParseDuration(c.GitHub.ChecksTimeout); err == nil && d > 0 {
		rc.ChecksTimeoutMs = d.Milliseconds()
	}

	return rc
}

// modelFor returns the configured model override for the selected backend,
// if any.
func (c *Config) modelFor(agent string) string {
	switch agent {
	case core.AgentClaude:
		return c.Agent.Claude.Model
	case core.AgentCopilot:
		return c.Agent.Copilot.Model
	default:
		return ""
	}
}

// BackendPath returns the configured CLI path for the selected agent
// backend, falling back to the backend's own name (resolved via PATH) when
// unset.
func (c *Config) BackendPath(agent string) string {
	var path string
	switch agent {
	case core.AgentClaude:
		path = c.Agent.Claude.Path
	case core.AgentCopilot:
		path = c.Agent.Copilot.Path
	}
	if path == "" {
		return agent
	}
	return path
}

// IssueProvider returns the configured issue-tracking platform, defaulting
// to GitHub.
func (c *Config) IssueProvider() core.IssueProvider {
	if c.GitHub.Provider == string(core.IssueProviderGitLab) {
		return core.IssueProviderGitLab
	}
	return core.IssueProviderGitHub
}
