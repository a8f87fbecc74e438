package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/triage"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

var validTriageSeverities = map[string]bool{
	string(triage.SeverityCritical): true,
	string(triage.SeveritySevere):   true,
	string(triage.SeverityHigh):     true,
	string(triage.SeverityMedium):   true,
	string(triage.SeverityLow):      true,
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateFleet(&cfg.Fleet)
	v.validateAgent(&cfg.Agent)
	v.validateBudget(&cfg.Budget)
	v.validateGit(&cfg.Git)
	v.validateGitHub(&cfg.GitHub)
	v.validateTriage(&cfg.Triage)
	v.validateState(&cfg.State)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{}
	for _, lvl := range core.LogLevels {
		validLevels[lvl] = true
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{}
	for _, f := range core.LogFormats {
		validFormats[f] = true
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateFleet(cfg *FleetConfig) {
	if cfg.MaxParallelIssues < 1 {
		v.addError("fleet.max_parallel_issues", cfg.MaxParallelIssues, "must be at least 1")
	}
	if cfg.MaxParallelAgents < 1 {
		v.addError("fleet.max_parallel_agents", cfg.MaxParallelAgents, "must be at least 1")
	}
	if cfg.MaxRetriesPerTask < 0 || cfg.MaxRetriesPerTask > 10 {
		v.addError("fleet.max_retries_per_task", cfg.MaxRetriesPerTask, "must be between 0 and 10")
	}
	if cfg.AgentTimeout == "" {
		v.addError("fleet.agent_timeout", cfg.AgentTimeout, "duration required")
	} else if _, err := time.ParseDuration(cfg.AgentTimeout); err != nil {
		v.addError("fleet.agent_timeout", cfg.AgentTimeout, "invalid duration format")
	}
}

func (v *Validator) validateAgent(cfg *AgentConfig) {
	switch cfg.Default {
	case core.AgentClaude, core.AgentCopilot:
		// ok
	default:
		v.addError("agent.default", cfg.Default, "must be one of: claude, copilot")
	}
}

func (v *Validator) validateBudget(cfg *BudgetConfig) {
	if cfg.FleetTokenBudget < 0 {
		v.addError("budget.fleet_token_budget", cfg.FleetTokenBudget, "must be non-negative")
	}
	if cfg.PerIssueTokenBudget < 0 {
		v.addError("budget.per_issue_token_budget", cfg.PerIssueTokenBudget, "must be non-negative")
	}
	if cfg.FleetTokenBudget > 0 && cfg.PerIssueTokenBudget > cfg.FleetTokenBudget {
		v.addError("budget.per_issue_token_budget", cfg.PerIssueTokenBudget,
			"must not exceed budget.fleet_token_budget")
	}
}

func (v *Validator) validateGit(cfg *GitConfig) {
	if cfg.WorktreeRoot == "" {
		v.addError("git.worktree_root", cfg.WorktreeRoot, "worktree root required")
	}
}

func (v *Validator) validateGitHub(cfg *GitHubConfig) {
	if cfg.Remote == "" {
		v.addError("github.remote", cfg.Remote, "remote name required")
	}
	switch cfg.Provider {
	case string(core.IssueProviderGitHub), string(core.IssueProviderGitLab):
		// ok
	default:
		v.addError("github.provider", cfg.Provider, "must be one of: github, gitlab")
	}
	if cfg.ChecksTimeout != "" {
		if _, err := time.ParseDuration(cfg.ChecksTimeout); err != nil {
			v.addError("github.checks_timeout", cfg.ChecksTimeout, "invalid duration format")
		}
	}
}

func (v *Validator) validateTriage(cfg *TriageConfig) {
	if cfg.MinSeverity != "" && !validTriageSeverities[cfg.MinSeverity] {
		v.addError("triage.min_severity", cfg.MinSeverity,
			"must be one of: critical, severe, high, medium, low")
	}
	if cfg.MaxIssuesPerRun < 0 {
		v.addError("triage.max_issues_per_run", cfg.MaxIssuesPerRun, "must be non-negative")
	}
}

func (v *Validator) validateState(cfg *StateConfig) {
	if cfg.BaseDir == "" {
		v.addError("state.base_dir", cfg.BaseDir, "base directory required")
	}
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}
