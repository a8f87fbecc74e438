// Package phase implements the five PhaseExecutors that make up one
// issue's pipeline (analyze, plan, implement, integrate, compose-pr) and
// the gate that runs before each.
package phase

import (
	"github.com/cadre-run/cadre/internal/adapters/git"
	"github.com/cadre-run/cadre/internal/adapters/github"
	"github.com/cadre-run/cadre/internal/agentlauncher"
	"github.com/cadre-run/cadre/internal/budget"
	"github.com/cadre-run/cadre/internal/checkpoint"
	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/events"
	"github.com/cadre-run/cadre/internal/logging"
	"github.com/cadre-run/cadre/internal/queue"
	"github.com/cadre-run/cadre/internal/worktree"
)

// Context is the value every PhaseExecutor and Gate receives. It carries
// everything a phase needs to do its work and to report back: the issue
// under pipeline, the resolved run configuration, the provisioned
// worktree, a logger scoped to this issue, the checkpoint handle, the
// agent launcher, the output paths of already-completed phases, and (for
// the implementation phase only) a live TaskQueue.
type Context struct {
	Issue    core.Issue
	Config   core.RunConfig
	Worktree *core.IssueWorktree

	Logger     *logging.Logger
	Store      *checkpoint.Store
	Tracker    *budget.Tracker
	Guard      *budget.Guard
	Launcher   *agentlauncher.Launcher
	Bus        *events.EventBus
	RunID      string
	GitClient  *git.Client
	GitHub     *github.Client
	WorktreeMgr *worktree.Manager

	// ProgressDir is ".cadre/issues/<N>" inside the worktree.
	ProgressDir string

	// PriorOutputs maps a completed phase to its recorded output path, so a
	// later phase can read an earlier one's artifact (e.g. implement reads
	// plan's).
	PriorOutputs map[core.Phase]string

	// Queue is populated by the orchestrator only while the implementation
	// phase executor runs; nil for every other phase.
	Queue *queue.TaskQueue
}

// RecordTokens adds usage to the shared tracker and persists the running
// total into this issue's checkpoint.
func (c *Context) RecordTokens(agentName string, ph core.Phase, usage core.TokenUsage) {
	if usage.Total <= 0 {
		return
	}
	c.Tracker.Record(agentName, c.Issue.Number, string(ph), usage.Total)
}

// CheckBudget reports this issue's budget status against the per-issue
// limit, independent of the fleet-wide latch.
func (c *Context) CheckBudget() budget.Status {
	return c.Guard.CheckIssue(c.Issue.Number)
}

// NewCheckpoint builds a fresh CheckpointState for this issue, used as the
// Store.Mutate fallback when no checkpoint file exists yet.
func (c *Context) NewCheckpoint() *core.CheckpointState {
	return core.NewCheckpointState(c.Issue.Number, c.Worktree.Path, c.Worktree.Branch, c.Worktree.BaseCommit)
}

// Emit publishes a FleetEvent of the given type, scoped to this issue.
func (c *Context) Emit(eventType string, mutate func(*events.FleetEvent)) {
	if c.Bus == nil {
		return
	}
	ev := events.NewFleetEvent(eventType, c.RunID, c.Issue.Number)
	if mutate != nil {
		mutate(&ev)
	}
	c.Bus.Publish(ev)
}
