package config

// Config holds all configuration for a cadre fleet run: the fleet/agent/budget
// knobs fed into core.RunConfig, plus the ambient concerns (logging, git
// remotes, triage filing) that sit outside the run loop itself.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Fleet  FleetConfig  `mapstructure:"fleet"`
	Agent  AgentConfig  `mapstructure:"agent"`
	Budget BudgetConfig `mapstructure:"budget"`
	Git    GitConfig    `mapstructure:"git"`
	GitHub GitHubConfig `mapstructure:"github"`
	Triage TriageConfig `mapstructure:"triage"`
	State  StateConfig  `mapstructure:"state"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// FleetConfig configures the fleet and issue-pipeline concurrency model.
type FleetConfig struct {
	MaxParallelIssues int    `mapstructure:"max_parallel_issues"`
	MaxParallelAgents int    `mapstructure:"max_parallel_agents"`
	MaxRetriesPerTask int    `mapstructure:"max_retries_per_task"`
	AgentTimeout      string `mapstructure:"agent_timeout"`
	DryRun            bool   `mapstructure:"dry_run"`
}

// AgentConfig selects and configures the agent launcher backend.
type AgentConfig struct {
	Default string             `mapstructure:"default"`
	Claude  AgentBackendConfig `mapstructure:"claude"`
	Copilot AgentBackendConfig `mapstructure:"copilot"`
}

// AgentBackendConfig configures one agent CLI backend.
type AgentBackendConfig struct {
	Path  string `mapstructure:"path"`
	Model string `mapstructure:"model"`
}

// BudgetConfig configures token-spend ceilings. Zero means "no budget set".
type BudgetConfig struct {
	FleetTokenBudget    int64 `mapstructure:"fleet_token_budget"`
	PerIssueTokenBudget int64 `mapstructure:"per_issue_token_budget"`
}

// GitConfig configures worktree provisioning and commit signing.
type GitConfig struct {
	WorktreeRoot string `mapstructure:"worktree_root"`
	BaseBranch   string `mapstructure:"base_branch"`
	GPGSign      bool   `mapstructure:"gpg_sign"`
}

// GitHubConfig configures the code-hosting platform adapter used for PR
// composition and triage filing.
type GitHubConfig struct {
	Provider       string `mapstructure:"provider"` // "github" or "gitlab"
	Remote         string `mapstructure:"remote"`
	Token          string `mapstructure:"token"`
	WaitForChecks  bool   `mapstructure:"wait_for_checks"`
	ChecksTimeout  string `mapstructure:"checks_timeout"`
}

// TriageConfig configures the end-of-run triage collector's filing policy.
type TriageConfig struct {
	MinSeverity     string   `mapstructure:"min_severity"`
	MaxIssuesPerRun int      `mapstructure:"max_issues_per_run"`
	Labels          []string `mapstructure:"labels"`
}

// StateConfig configures where per-run and per-issue checkpoint state lives.
type StateConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}
