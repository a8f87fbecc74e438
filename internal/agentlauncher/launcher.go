// Package agentlauncher runs agent CLIs (Claude-style, Copilot-style) as
// one-shot subprocesses through the supervisor, and extracts token usage
// and success/failure from their output.
package agentlauncher

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/logging"
	"github.com/cadre-run/cadre/internal/supervisor"
)

// checkCommandAvailable reports whether path runs successfully with
// "--version", the same liveness probe the teacher's `doctor` command uses
// for every external CLI it checks.
func checkCommandAvailable(path string) error {
	if path == "" {
		return core.ErrValidation("NO_PATH", "agentlauncher: no CLI path configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, path, "--version").Run(); err != nil {
		return fmt.Errorf("agentlauncher: %s not available: %w", path, err)
	}
	return nil
}

// ideEnvPrefixes lists host-IDE-injected environment variable prefixes
// stripped from every agent invocation's environment.
var ideEnvPrefixes = []string{"CURSOR_", "VSCODE_", "JETBRAINS_"}

// Backend knows how to build CLI arguments for an agent invocation and how
// to interpret the result it produced.
type Backend interface {
	Name() string
	BuildArgs(inv core.AgentInvocation, prompt string) []string
	DetectSuccess(res *supervisor.Result) bool
	ParseTokenUsage(res *supervisor.Result) core.TokenUsage
	// CheckAvailability reports whether the backend's CLI is reachable at
	// path, used by `cadre doctor` to probe a configured backend before a
	// run ever tries to launch it.
	CheckAvailability(path string) error
}

// Config holds per-agent launch settings, mirroring the teacher's
// AgentConfig but scoped to what a launcher actually needs.
type Config struct {
	Path    string
	Model   string
	Timeout time.Duration
	WorkDir string
}

// Launcher runs AgentInvocations against a configured Backend.
type Launcher struct {
	backend Backend
	config  Config
	sup     *supervisor.Supervisor
	logger  *logging.Logger
}

// New creates a Launcher for a given backend and configuration, with its own
// private Supervisor.
func New(backend Backend, cfg Config, logger *logging.Logger) *Launcher {
	return NewWithSupervisor(backend, cfg, logger, supervisor.New())
}

// NewWithSupervisor creates a Launcher sharing sup with other launchers, so a
// single fleet-wide Terminate sweeps every agent process across every issue
// and every backend.
func NewWithSupervisor(backend Backend, cfg Config, logger *logging.Logger, sup *supervisor.Supervisor) *Launcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Launcher{backend: backend, config: cfg, sup: sup, logger: logger}
}

// Supervisor returns the Launcher's underlying Supervisor, so a fleet-level
// owner can register a shared Terminate sweep.
func (l *Launcher) Supervisor() *supervisor.Supervisor {
	return l.sup
}

// SetLineCallback forwards stderr lines from the underlying process, used
// to stream agent progress in real time.
func (l *Launcher) SetLineCallback(cb supervisor.LineCallback) {
	l.sup.SetLineCallback(cb)
}

// Launch runs a single agent invocation to completion and returns its
// result. It never returns a Go error for agent-side failures (timeout,
// non-zero exit, crash) — those are reported through AgentResult so the
// phase executor can decide whether the failure is critical.
func (l *Launcher) Launch(ctx context.Context, inv core.AgentInvocation) (*core.AgentResult, error) {
	if l.config.Path == "" {
		return nil, core.ErrValidation("NO_PATH", fmt.Sprintf("agentlauncher: no CLI path configured for %s", l.backend.Name()))
	}

	timeout := time.Duration(inv.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = l.config.Timeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	prompt := inv.ContextPath
	if b, err := os.ReadFile(inv.ContextPath); err == nil {
		prompt = string(b)
	}

	args := l.backend.BuildArgs(inv, prompt)
	spec := supervisor.Spec{
		Path:    l.config.Path,
		Args:    args,
		Dir:     l.config.WorkDir,
		Env:     l.buildEnv(inv),
		Timeout: timeout,
	}

	l.logger.Info("agentlauncher: launching agent",
		"agent", inv.Agent,
		"issue", inv.IssueNumber,
		"phase", string(inv.Phase),
		"session", string(inv.SessionID),
	)

	res, err := l.sup.Run(ctx, spec)
	if err != nil {
		return nil, core.ErrAgentError(inv.Agent, err.Error())
	}

	result := &core.AgentResult{
		Agent:      inv.Agent,
		TimedOut:   res.TimedOut,
		Signal:     res.Signal,
		ExitCode:   res.ExitCode,
		DurationMs: res.Duration.Milliseconds(),
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		OutputPath: inv.OutputPath,
	}

	if res.TimedOut {
		result.Error = core.ErrAgentTimeout(inv.Agent, res.Duration.Milliseconds())
		l.logger.Error("agentlauncher: agent timed out", "agent", inv.Agent, "issue", inv.IssueNumber)
		return result, nil
	}

	result.Success = l.backend.DetectSuccess(res)
	result.TokenUsage = l.backend.ParseTokenUsage(res)

	if !result.Success {
		result.Error = core.ErrAgentError(inv.Agent, fmt.Sprintf("exit code %d", res.ExitCode))
	}

	l.logger.Info("agentlauncher: agent finished",
		"agent", inv.Agent,
		"issue", inv.IssueNumber,
		"success", result.Success,
		"duration_ms", result.DurationMs,
		"tokens", result.TokenUsage.Total,
	)

	return result, nil
}

// buildEnv constructs the child's full environment: the parent environment
// minus host-IDE-injected variables, plus the CADRE_* variables the agent
// CLI relies on to know what it's operating on.
func (l *Launcher) buildEnv(inv core.AgentInvocation) []string {
	parent := os.Environ()
	env := make([]string, 0, len(parent)+8)
	for _, kv := range parent {
		if !isIDEInjected(kv) {
			env = append(env, kv)
		}
	}

	env = append(env,
		fmt.Sprintf("CADRE_ISSUE_NUMBER=%d", inv.IssueNumber),
		fmt.Sprintf("CADRE_WORKTREE_PATH=%s", l.config.WorkDir),
		fmt.Sprintf("CADRE_PHASE=%s", string(inv.Phase)),
		"CADRE_MANAGED=true",
		fmt.Sprintf("CADRE_AGENT=%s", inv.Agent),
	)
	if inv.SessionID != "" {
		env = append(env, fmt.Sprintf("CADRE_SESSION_ID=%s", string(inv.SessionID)))
	}
	return env
}

// isIDEInjected reports whether an environment variable assignment ("NAME=value")
// carries one of the stripped host-IDE vendor prefixes.
func isIDEInjected(kv string) bool {
	for _, prefix := range ideEnvPrefixes {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}
	return false
}
