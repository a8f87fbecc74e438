package agentlauncher

import (
	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/supervisor"
)

// claudeAllowedTools is the bit-exact tool allowlist for Backend B.
const claudeAllowedTools = "Bash,Read,Write,Edit,MultiEdit,Glob,Grep,TodoRead,TodoWrite,mcp__*"

// ClaudeBackend drives a Claude-style CLI: `-p <prompt> --allowedTools
// <list> --output-format json [--model <m>]`.
type ClaudeBackend struct {
	Model string
}

func (b *ClaudeBackend) Name() string { return "claude" }

// BuildArgs builds the bit-exact Claude-style argument shape.
func (b *ClaudeBackend) BuildArgs(inv core.AgentInvocation, promptPath string) []string {
	args := []string{
		"-p", promptPath,
		"--allowedTools", claudeAllowedTools,
		"--output-format", "json",
	}
	if b.Model != "" {
		args = append(args, "--model", b.Model)
	}
	return args
}

// DetectSuccess requires only exit 0 and not timed out.
func (b *ClaudeBackend) DetectSuccess(res *supervisor.Result) bool {
	return !res.TimedOut && res.ExitCode == 0
}

// ParseTokenUsage delegates to the shared dual JSON/regex parser.
func (b *ClaudeBackend) ParseTokenUsage(res *supervisor.Result) core.TokenUsage {
	return parseTokenUsage(res.Stdout, res.Stderr)
}

// CheckAvailability implements Backend.
func (b *ClaudeBackend) CheckAvailability(path string) error {
	return checkCommandAvailable(path)
}
