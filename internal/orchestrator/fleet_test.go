package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cadre-run/cadre/internal/agentlauncher"
	"github.com/cadre-run/cadre/internal/budget"
	"github.com/cadre-run/cadre/internal/checkpoint"
	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/phase"
)

func TestFleetOrchestrator_Run_DispatchesEveryIssue(t *testing.T) {
	reg := phase.NewRegistry(phase.AnalyzeExecutor{}, phase.PlanExecutor{})
	issueOrch := NewIssueOrchestrator(reg, true)

	tracker := budget.NewTracker()
	guard := budget.NewGuard(tracker, 0, 0)
	fleetStore := checkpoint.NewFleetStore(filepath.Join(t.TempDir(), "fleet.json"))

	newCtx := func(_ context.Context, issue core.Issue) (*phase.Context, error) {
		dir := t.TempDir()
		return &phase.Context{
			Issue:        issue,
			Config:       core.RunConfig{Agent: core.AgentClaude, MaxParallelAgents: 1, MaxRetriesPerTask: 1},
			Worktree:     &core.IssueWorktree{IssueNumber: issue.Number, Path: dir, Branch: "cadre/issue", BaseCommit: "deadbeef"},
			Store:        checkpoint.NewStore(filepath.Join(dir, ".cadre", "checkpoint.json")),
			Tracker:      tracker,
			Guard:        guard,
			Launcher:     agentlauncher.New(&agentlauncher.ClaudeBackend{}, agentlauncher.Config{Path: "/bin/echo"}, nil),
			ProgressDir:  filepath.Join(dir, ".cadre", "issues"),
			PriorOutputs: map[core.Phase]string{},
		}, nil
	}

	fleet := New(issueOrch, newCtx, FleetOrchestrator{
		Guard:       guard,
		FleetStore:  fleetStore,
		MaxParallel: 2,
		ProjectName: "acme/widgets",
		RunID:       "run-1",
	})

	issues := []core.Issue{{Number: 1, Title: "first"}, {Number: 2, Title: "second"}}
	res := fleet.Run(context.Background(), issues)

	if len(res.Issues) != 2 {
		t.Fatalf("len(Issues) = %d, want 2", len(res.Issues))
	}
	for _, ir := range res.Issues {
		if !ir.Success {
			t.Errorf("issue #%d failed: %v", ir.IssueNumber, ir.Error)
		}
	}
	if res.FleetExceeded {
		t.Error("FleetExceeded = true, want false with no budget configured")
	}

	fs, err := fleetStore.Load(context.Background())
	if err != nil {
		t.Fatalf("loading fleet checkpoint: %v", err)
	}
	if fs == nil || len(fs.Issues) != 2 {
		t.Errorf("fleet checkpoint issues = %+v, want 2 entries", fs)
	}
}

func TestFleetOrchestrator_Run_FleetBudgetLatchShortCircuitsPending(t *testing.T) {
	reg := phase.NewRegistry(phase.AnalyzeExecutor{}, phase.PlanExecutor{})
	issueOrch := NewIssueOrchestrator(reg, true)

	tracker := budget.NewTracker()
	tracker.Record("claude", 0, "fleet", 1000)
	guard := budget.NewGuard(tracker, 500, 0)

	newCtx := func(_ context.Context, issue core.Issue) (*phase.Context, error) {
		dir := t.TempDir()
		return &phase.Context{
			Issue:        issue,
			Config:       core.RunConfig{Agent: core.AgentClaude, MaxParallelAgents: 1},
			Worktree:     &core.IssueWorktree{IssueNumber: issue.Number, Path: dir, Branch: "cadre/issue", BaseCommit: "deadbeef"},
			Store:        checkpoint.NewStore(filepath.Join(dir, ".cadre", "checkpoint.json")),
			Tracker:      tracker,
			Guard:        guard,
			Launcher:     agentlauncher.New(&agentlauncher.ClaudeBackend{}, agentlauncher.Config{Path: "/bin/echo"}, nil),
			ProgressDir:  filepath.Join(dir, ".cadre", "issues"),
			PriorOutputs: map[core.Phase]string{},
		}, nil
	}

	fleet := New(issueOrch, newCtx, FleetOrchestrator{Guard: guard, MaxParallel: 1})

	res := fleet.Run(context.Background(), []core.Issue{{Number: 1}})
	if res.Issues[0].Success {
		t.Fatal("issue succeeded, want fleet-budget short-circuit")
	}
	if !res.FleetExceeded {
		t.Error("FleetExceeded = false, want true")
	}
}
