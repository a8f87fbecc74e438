package phase

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/events"
	"github.com/cadre-run/cadre/internal/queue"
)

// sessionContext points an implementation agent at its session's steps.
type sessionContext struct {
	IssueNumber int         `json:"issueNumber"`
	SessionID   string      `json:"sessionId"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Steps       []core.Step `json:"steps"`
}

// ImplementExecutor runs phase 3: parses the plan's session list, builds a
// TaskQueue, and repeatedly launches file-disjoint batches of sessions
// concurrently until every session reaches a terminal state.
type ImplementExecutor struct{}

// ID implements Executor.
func (ImplementExecutor) ID() core.Phase { return core.PhaseImplement }

// Execute implements Executor.
func (ImplementExecutor) Execute(ctx context.Context, pc *Context) (string, error) {
	planPath, ok := pc.PriorOutputs[core.PhasePlan]
	if !ok {
		return "", fmt.Errorf("phase implement: no plan output recorded")
	}
	doc, err := os.ReadFile(planPath)
	if err != nil {
		return "", fmt.Errorf("phase implement: reading plan: %w", err)
	}

	sessions, err := ParsePlan(doc, pc.Config.MaxRetriesPerTask)
	if err != nil {
		return "", err
	}

	q, err := queue.New(sessions)
	if err != nil {
		return "", err
	}
	pc.Queue = q

	if cp, cerr := pc.Store.Load(ctx); cerr == nil && cp != nil {
		q.RestoreState(cp.CompletedTasks, cp.BlockedTasks)
	}

	for !q.IsComplete() {
		ready := q.GetReady()
		if len(ready) == 0 {
			return "", fmt.Errorf("phase implement: no sessions ready but queue incomplete")
		}

		batch := queue.SelectNonOverlappingBatch(ready, pc.Config.MaxParallelAgents)
		if len(batch) == 0 {
			return "", fmt.Errorf("phase implement: every ready session collides with another")
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, s := range batch {
			if err := q.Start(s.ID); err != nil {
				return "", err
			}
			s.Status = core.SessionInProgress
			wg.Add(1)
			go func(s *core.Session) {
				defer wg.Done()
				res := runSession(ctx, pc, s)
				mu.Lock()
				defer mu.Unlock()
				pc.applySessionResult(q, s, res)
			}(s)
		}
		wg.Wait()
	}

	return writeImplementSummary(pc, q, sessions)
}

// runSession launches exactly one agent invocation for a session and
// reports its token usage, regardless of outcome.
func runSession(ctx context.Context, pc *Context, s *core.Session) *core.AgentResult {
	contextPath, err := writeContext(pc, core.PhaseImplement, sessionContext{
		IssueNumber: pc.Issue.Number,
		SessionID:   string(s.ID),
		Name:        s.Name,
		Description: s.Description,
		Steps:       s.Steps,
	})
	if err != nil {
		return &core.AgentResult{Agent: pc.Config.Agent, Success: false, Error: err}
	}

	// A session's output file is keyed by a fresh invocation id rather than
	// just its session id, so a retried attempt's output never overwrites
	// the previous attempt's (both land under the same session, one
	// session can retry several times before exhausting MaxRetries).
	invocationID := uuid.New().String()
	out, err := outputPath(pc, fmt.Sprintf("session-%s-%s.md", s.ID, invocationID))
	if err != nil {
		return &core.AgentResult{Agent: pc.Config.Agent, Success: false, Error: err}
	}

	inv := core.AgentInvocation{
		Agent:       pc.Config.Agent,
		IssueNumber: pc.Issue.Number,
		Phase:       core.PhaseImplement,
		SessionID:   s.ID,
		ContextPath: contextPath,
		OutputPath:  out,
		TimeoutMs:   pc.Config.AgentTimeoutMs,
	}

	res, err := pc.Launcher.Launch(ctx, inv)
	if err != nil {
		return &core.AgentResult{Agent: pc.Config.Agent, Success: false, Error: err}
	}
	pc.RecordTokens(inv.Agent, core.PhaseImplement, res.TokenUsage)
	return res
}

// applySessionResult transitions the queue and persists the checkpoint for
// one session's outcome: completed on success; requeued for another
// attempt while retry budget remains; blocked once it is exhausted.
func (pc *Context) applySessionResult(q *queue.TaskQueue, s *core.Session, res *core.AgentResult) {
	ctx := context.Background()

	if res.Success {
		_ = q.Complete(s.ID)
		s.Status = core.SessionCompleted
		_, _ = pc.Store.Mutate(ctx, pc.NewCheckpoint, func(cp *core.CheckpointState) {
			cp.CompletedTasks = append(cp.CompletedTasks, s.ID)
			cp.CurrentTask = string(s.ID)
		})
		pc.Emit(events.TypeTaskCompleted, func(e *events.FleetEvent) { e.SessionID = string(s.ID) })
		return
	}

	s.Attempts++
	s.Error = errString(res.Error)
	if s.CanRetry() {
		_ = q.Requeue(s.ID)
		s.Status = core.SessionPending
		pc.Emit(events.TypeTaskRetry, func(e *events.FleetEvent) { e.SessionID = string(s.ID) })
		return
	}

	_ = q.MarkBlocked(s.ID)
	s.Status = core.SessionBlocked
	_, _ = pc.Store.Mutate(ctx, pc.NewCheckpoint, func(cp *core.CheckpointState) {
		cp.BlockedTasks = append(cp.BlockedTasks, s.ID)
	})
	pc.Emit(events.TypeTaskBlocked, func(e *events.FleetEvent) { e.SessionID = string(s.ID) })
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// writeImplementSummary records the terminal state of every session into a
// single markdown artifact returned as this phase's output.
func writeImplementSummary(pc *Context, q *queue.TaskQueue, sessions []*core.Session) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Implementation summary (issue #%d)\n\n", pc.Issue.Number))
	for _, s := range sessions {
		cur, _ := q.Session(s.ID)
		b.WriteString(fmt.Sprintf("- %s: %s (attempts=%d)\n", cur.ID, cur.Status, cur.Attempts))
	}

	out, err := outputPath(pc, "implement-summary.md")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(out, []byte(b.String()), 0o600); err != nil {
		return "", fmt.Errorf("phase implement: writing summary: %w", err)
	}
	return out, nil
}
