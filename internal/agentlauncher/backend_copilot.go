package agentlauncher

import (
	"regexp"
	"strings"

	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/supervisor"
)

// CopilotBackend drives a Copilot-style CLI: `--agent <name> -p <prompt>
// --allow-all-tools --allow-all-paths --no-ask-user -s [--model <m>]`.
type CopilotBackend struct {
	Model string
}

var copilotFailurePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)no such agent:`),
	regexp.MustCompile(`(?i)error: option`),
	regexp.MustCompile(`(?i)is invalid\. allowed choices are`),
	regexp.MustCompile(`(?i)unknown option`),
}

func (b *CopilotBackend) Name() string { return "copilot" }

// BuildArgs builds the bit-exact Copilot-style argument shape.
func (b *CopilotBackend) BuildArgs(inv core.AgentInvocation, promptPath string) []string {
	args := []string{
		"--agent", inv.Agent,
		"-p", promptPath,
		"--allow-all-tools",
		"--allow-all-paths",
		"--no-ask-user",
		"-s",
	}
	if b.Model != "" {
		args = append(args, "--model", b.Model)
	}
	return args
}

// DetectSuccess requires exit 0, not timed out, and none of the known
// "agent not found" / invalid-option stderr patterns.
func (b *CopilotBackend) DetectSuccess(res *supervisor.Result) bool {
	if res.TimedOut || res.ExitCode != 0 {
		return false
	}
	for _, pat := range copilotFailurePatterns {
		if pat.MatchString(res.Stderr) {
			return false
		}
	}
	return true
}

// ParseTokenUsage delegates to the shared dual JSON/regex parser.
func (b *CopilotBackend) ParseTokenUsage(res *supervisor.Result) core.TokenUsage {
	return parseTokenUsage(res.Stdout, res.Stderr)
}

// CheckAvailability implements Backend.
func (b *CopilotBackend) CheckAvailability(path string) error {
	return checkCommandAvailable(path)
}

// AgentNotFoundError returns a typed error when stderr matches the
// dedicated "agent not found" pattern, nil otherwise.
func AgentNotFoundError(agent, stderr string) error {
	if strings.Contains(strings.ToLower(stderr), "no such agent:") {
		return core.ErrAgentNotFound(agent)
	}
	return nil
}
