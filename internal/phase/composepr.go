package phase

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cadre-run/cadre/internal/adapters/github"
	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/events"
)

// ComposePRExecutor runs phase 5: strips internal scratch files from the
// issue branch's history, then opens the pull request. Non-critical — a
// failure here is logged and the pipeline still reports success if phases
// 1-3 succeeded.
type ComposePRExecutor struct {
	GPGSign bool
	Draft   bool
}

// ID implements Executor.
func (ComposePRExecutor) ID() core.Phase { return core.PhaseComposePR }

// Execute implements Executor.
func (e ComposePRExecutor) Execute(ctx context.Context, pc *Context) (string, error) {
	commits := newCommitManager(pc, e.GPGSign)
	if err := commits.StripCadreFiles(ctx, pc.Worktree.BaseCommit); err != nil {
		return "", fmt.Errorf("phase compose-pr: stripping scratch files: %w", err)
	}
	if err := pc.GitClient.PushForce(ctx, "origin", pc.Worktree.Branch); err != nil {
		return "", fmt.Errorf("phase compose-pr: pushing rewritten history: %w", err)
	}

	pr, err := pc.GitHub.CreatePR(ctx, github.PRCreateOptions{
		Title: fmt.Sprintf("%s (#%d)", pc.Issue.Title, pc.Issue.Number),
		Body:  fmt.Sprintf("Closes #%d\n\nOpened by cadre.", pc.Issue.Number),
		Base:  pc.Config.BaseBranch,
		Head:  pc.Worktree.Branch,
		Draft: e.Draft,
	})
	if err != nil {
		return "", fmt.Errorf("phase compose-pr: creating pull request: %w", err)
	}

	pc.Emit(events.TypePRCreated, func(ev *events.FleetEvent) {
		ev.Message = pr.URL
	})

	if pc.Config.WaitForChecks {
		e.waitForChecks(ctx, pc, pr.Number)
	}

	out, err := outputPath(pc, "pr.md")
	if err != nil {
		return "", err
	}
	body := fmt.Sprintf("# Pull request (issue #%d)\n\n%s\n", pc.Issue.Number, pr.URL)
	if err := os.WriteFile(out, []byte(body), 0o600); err != nil {
		return "", fmt.Errorf("phase compose-pr: writing output: %w", err)
	}
	return out, nil
}

// waitForChecks polls CI status on the freshly opened PR and records the
// outcome as a fleet event. Never fails the phase: a failing or timed-out
// check run is reported, not treated as a compose-pr error, since the PR
// itself was opened successfully.
func (e ComposePRExecutor) waitForChecks(ctx context.Context, pc *Context, prNumber int) {
	timeout := time.Duration(pc.Config.ChecksTimeoutMs) * time.Millisecond
	waiter := github.NewChecksWaiter(pc.GitHub).WithTimeout(timeout)

	result, err := waiter.Wait(ctx, prNumber)
	if err != nil {
		pc.Logger.Warn("waiting for checks", "issue", pc.Issue.Number, "pr", prNumber, "error", err)
		pc.Emit(events.TypeChecksFailed, func(ev *events.FleetEvent) {
			ev.Message = err.Error()
			ev.TimedOut = true
		})
		return
	}

	if result.AllPassed {
		pc.Emit(events.TypeChecksPassed, func(ev *events.FleetEvent) {
			ev.Message = fmt.Sprintf("%d checks passed", len(result.Checks))
		})
		return
	}

	pc.Emit(events.TypeChecksFailed, func(ev *events.FleetEvent) {
		ev.Message = fmt.Sprintf("failed checks: %s", strings.Join(result.FailedChecks, ", "))
	})
}
