// Package core provides centralized constants for agents, models, phases and
// logging. All packages should import from here to ensure consistency
// across the codebase.
package core

// Agent identifiers. Only two launcher backends are implemented:
// claude (Claude Code CLI) and copilot (GitHub Copilot CLI).
const (
	AgentClaude  = "claude"
	AgentCopilot = "copilot"
)

// Agents is the ordered list of all supported agents.
var Agents = []string{
	AgentClaude,
	AgentCopilot,
}

// ValidAgents is a map for O(1) agent validation.
var ValidAgents = map[string]bool{
	AgentClaude:  true,
	AgentCopilot: true,
}

// IsValidAgent checks if the given agent name is valid.
func IsValidAgent(agent string) bool {
	return ValidAgents[agent]
}

// AgentModels maps each agent to its supported models. Aliases accepted by
// the CLI itself (e.g. "opus", "sonnet") are included alongside pinned
// model identifiers.
var AgentModels = map[string][]string{
	AgentClaude: {
		"claude-opus-4-6",
		"claude-sonnet-4-5-20250929",
		"claude-haiku-4-5-20251001",
		"opus",
		"sonnet",
		"haiku",
	},
	AgentCopilot: {
		"claude-sonnet-4.5",
		"claude-opus-4.6",
		"claude-haiku-4.5",
		"gpt-5.2",
		"gpt-5.1",
	},
}

// AgentDefaultModels maps each agent to its default model. An empty model
// override in configuration means "use the launcher's own default", which
// for claude/copilot is their CLI's built-in default rather than a pinned
// value here.
var AgentDefaultModels = map[string]string{
	AgentClaude:  "sonnet",
	AgentCopilot: "claude-sonnet-4.5",
}

// GetSupportedModels returns the list of supported models for an agent.
// Returns nil if the agent is not recognized.
func GetSupportedModels(agent string) []string {
	return AgentModels[agent]
}

// GetDefaultModel returns the default model for an agent.
// Returns empty string if the agent is not recognized.
func GetDefaultModel(agent string) string {
	return AgentDefaultModels[agent]
}

// IsValidModel checks if a model is valid for a given agent.
func IsValidModel(agent, model string) bool {
	for _, m := range AgentModels[agent] {
		if m == model {
			return true
		}
	}
	return false
}

// Log levels
const (
	LogDebug = "debug"
	LogInfo  = "info"
	LogWarn  = "warn"
	LogError = "error"
)

// LogLevels is the ordered list of log levels.
var LogLevels = []string{LogDebug, LogInfo, LogWarn, LogError}

// Log formats
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LogFormats is the ordered list of log formats.
var LogFormats = []string{LogFormatAuto, LogFormatText, LogFormatJSON}

// IssueProviders is the ordered list of issue providers.
// Constants are defined in issue_ports.go as IssueProvider type.
var IssueProviders = []string{string(IssueProviderGitHub), string(IssueProviderGitLab)}
