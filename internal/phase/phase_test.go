package phase

import (
	"path/filepath"
	"testing"

	"github.com/cadre-run/cadre/internal/agentlauncher"
	"github.com/cadre-run/cadre/internal/budget"
	"github.com/cadre-run/cadre/internal/checkpoint"
	"github.com/cadre-run/cadre/internal/core"
)

// newTestContext builds a Context wired to a real Launcher pointed at
// /bin/echo, so Execute runs a real (trivial) subprocess instead of a
// mock, matching agentlauncher's own test style.
func newTestContext(t *testing.T) *Context {
	t.Helper()
	dir := t.TempDir()
	tracker := budget.NewTracker()
	return &Context{
		Issue:    core.Issue{Number: 42, Title: "Fix the bug", Body: "details"},
		Config:   core.RunConfig{Agent: core.AgentClaude, MaxParallelAgents: 2, MaxRetriesPerTask: 1},
		Worktree: &core.IssueWorktree{IssueNumber: 42, Path: dir, Branch: "cadre/issue-42", BaseCommit: "deadbeef"},
		Store:    checkpoint.NewStore(filepath.Join(dir, ".cadre", "checkpoint.json")),
		Tracker:  tracker,
		Guard:    budget.NewGuard(tracker, 0, 0),
		Launcher: agentlauncher.New(&agentlauncher.ClaudeBackend{}, agentlauncher.Config{Path: "/bin/echo"}, nil),
		RunID:    "run-1",
		ProgressDir: filepath.Join(dir, ".cadre", "issues", "42"),
		PriorOutputs: map[core.Phase]string{},
	}
}
