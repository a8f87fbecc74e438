package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/cadre-run/cadre/internal/budget"
	"github.com/cadre-run/cadre/internal/checkpoint"
	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/events"
	"github.com/cadre-run/cadre/internal/logging"
	"github.com/cadre-run/cadre/internal/phase"
	"github.com/cadre-run/cadre/internal/supervisor"
	"github.com/cadre-run/cadre/internal/worktree"
)

// FleetResult aggregates every issue's outcome for one run.
type FleetResult struct {
	RunID         string
	Issues        []IssueResult
	FleetExceeded bool
}

// ContextFactory builds the per-issue phase.Context a FleetOrchestrator
// hands to IssueOrchestrator.Run. Constructing a Context touches the
// worktree and checkpoint layers, both issue-specific, so the fleet asks
// the caller to build one rather than assuming a shape.
type ContextFactory func(ctx context.Context, issue core.Issue) (*phase.Context, error)

// FleetOrchestrator is the bounded-concurrency driver over every issue in a
// run: at most MaxParallel IssueOrchestrator.Run invocations are active at
// once, fleet-wide budget is latched via Guard, and per-issue failures never
// propagate to siblings.
type FleetOrchestrator struct {
	Issue       *IssueOrchestrator
	NewContext  ContextFactory
	Guard       *budget.Guard
	FleetStore  *checkpoint.FleetStore
	Bus         *events.EventBus
	Logger      *logging.Logger
	Supervisor  *supervisor.Supervisor
	WorktreeMgr *worktree.Manager // optional; enables the janitor watch below
	MaxParallel int
	ProjectName string
	RunID       string
}

// New builds a FleetOrchestrator. A nil logger becomes a no-op logger; a
// MaxParallel below 1 is treated as 1 (no concurrency is still forward
// progress, just serialized).
func New(issueOrch *IssueOrchestrator, newCtx ContextFactory, opts FleetOrchestrator) *FleetOrchestrator {
	opts.Issue = issueOrch
	opts.NewContext = newCtx
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.MaxParallel < 1 {
		opts.MaxParallel = 1
	}
	return &opts
}

// Run dispatches every issue in issues, bounded by MaxParallel concurrent
// pipelines, and returns once every issue has reached a terminal state or
// ctx was cancelled. A SIGINT/SIGTERM-armed ctx triggers cooperative
// cancellation of in-flight pipelines; callers own arming ctx with signal.NotifyContext.
func (f *FleetOrchestrator) Run(ctx context.Context, issues []core.Issue) FleetResult {
	f.emitFleet(events.TypeFleetStarted, nil)

	if warning := f.preflight(); warning != "" {
		f.emitFleet(events.TypeBudgetWarning, func(e *events.FleetEvent) { e.Message = warning })
	}

	if f.WorktreeMgr != nil {
		active := make(map[int]bool, len(issues))
		for _, issue := range issues {
			active[issue.Number] = true
		}
		if stop, err := f.WorktreeMgr.StartJanitor(ctx, func() map[int]bool { return active }); err == nil {
			defer stop()
		}
	}

	results := make([]IssueResult, len(issues))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.MaxParallel)

	var mu sync.Mutex
	var interrupted bool

	for i, issue := range issues {
		i, issue := i, issue
		g.Go(func() error {
			if f.Guard != nil && f.Guard.CheckFleet() == budget.StatusExceeded {
				mu.Lock()
				results[i] = IssueResult{IssueNumber: issue.Number, Error: core.ErrFleetBudgetExceeded(0, 0)}
				mu.Unlock()
				return nil
			}
			if gctx.Err() != nil {
				mu.Lock()
				interrupted = true
				results[i] = IssueResult{IssueNumber: issue.Number, Error: core.ErrCancelled("fleet cancelled before dispatch")}
				mu.Unlock()
				return nil
			}

			pc, err := f.NewContext(gctx, issue)
			if err != nil {
				mu.Lock()
				results[i] = IssueResult{IssueNumber: issue.Number, Error: err}
				mu.Unlock()
				return nil
			}
			pc.RunID = f.RunID

			res := f.Issue.Run(gctx, pc)
			if res.Success {
				f.Logger.Info("orchestrator: issue pipeline completed", "issue", issue.Number)
			} else {
				f.Logger.Error("orchestrator: issue pipeline failed", "issue", issue.Number, "error", res.Error)
			}

			mu.Lock()
			results[i] = res
			mu.Unlock()

			f.recordFleetCheckpoint(gctx, issue, res)
			if f.Guard != nil {
				f.Guard.CheckFleet()
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		interrupted = true
	}
	if interrupted {
		f.emitFleet(events.TypeFleetInterrupted, nil)
		f.shutdown()
	} else {
		f.emitFleet(events.TypeFleetCompleted, nil)
	}

	return FleetResult{
		RunID:         f.RunID,
		Issues:        results,
		FleetExceeded: f.Guard != nil && f.Guard.FleetExceeded(),
	}
}

// preflight runs a lightweight headroom check before dispatching any issue,
// returning a human-readable warning (empty if headroom looks fine). It
// never blocks a run from starting — the spec calls for a single
// budget-warning event, not a hard failure, since disk/fd headroom can
// recover mid-run.
func (f *FleetOrchestrator) preflight() string {
	free, err := diskFreeBytes(".")
	if err != nil {
		return ""
	}
	const lowHeadroomBytes = 200 * 1024 * 1024
	if free < lowHeadroomBytes {
		return fmt.Sprintf("low disk headroom before worktree root: %d bytes free", free)
	}
	return ""
}

// shutdown triggers the hard-termination sweep: every process this fleet's
// Supervisor is still tracking receives SIGTERM, escalating to SIGKILL after
// the grace window.
func (f *FleetOrchestrator) shutdown() {
	if f.Supervisor == nil {
		return
	}
	f.Supervisor.Terminate(supervisor.GracePeriod)
}

func (f *FleetOrchestrator) recordFleetCheckpoint(ctx context.Context, issue core.Issue, res IssueResult) {
	if f.FleetStore == nil {
		return
	}
	status := core.IssueStatusCompleted
	errMsg := ""
	if !res.Success {
		status = core.IssueStatusFailed
		if res.Error != nil {
			errMsg = res.Error.Error()
		}
	}
	lastPhase := core.Phase("")
	if n := len(res.Phases); n > 0 {
		lastPhase = res.Phases[n-1].Phase
	}
	_, _ = f.FleetStore.SetIssueStatus(ctx, f.ProjectName, issue.Number, core.FleetIssueEntry{
		Status:    status,
		LastPhase: lastPhase,
		Error:     errMsg,
	})
}

func (f *FleetOrchestrator) emitFleet(eventType string, mutate func(*events.FleetEvent)) {
	if f.Bus == nil {
		return
	}
	ev := events.NewFleetEvent(eventType, f.RunID, 0)
	if mutate != nil {
		mutate(&ev)
	}
	f.Bus.Publish(ev)
}

// diskFreeBytes reports free space on the filesystem containing path.
func diskFreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
