// Package orchestrator drives the full pipeline: IssueOrchestrator runs the
// five phases for a single issue, FleetOrchestrator fans that out, bounded,
// across every issue in a run.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/events"
	"github.com/cadre-run/cadre/internal/phase"
)

// IssueResult is the outcome of running one issue's full pipeline.
type IssueResult struct {
	IssueNumber int
	Success     bool
	Phases      []core.PhaseResult
	Error       error
}

// IssueOrchestrator runs the registered phases for one issue in
// core.AllPhases() order, honoring gates, checkpoints, and the
// critical/non-critical failure split.
type IssueOrchestrator struct {
	Registry *phase.Registry
	DryRun   bool
}

// NewIssueOrchestrator builds an IssueOrchestrator over reg.
func NewIssueOrchestrator(reg *phase.Registry, dryRun bool) *IssueOrchestrator {
	return &IssueOrchestrator{Registry: reg, DryRun: dryRun}
}

// Run executes every not-yet-completed phase in order, persisting a
// checkpoint after each. It stops at the first critical-phase failure, at
// the first gate rejection, or (in dry-run mode) before any phase past plan
// is started.
func (o *IssueOrchestrator) Run(ctx context.Context, pc *phase.Context) IssueResult {
	result := IssueResult{IssueNumber: pc.Issue.Number, Success: true}

	cp, err := pc.Store.Load(ctx)
	if err != nil {
		return IssueResult{IssueNumber: pc.Issue.Number, Error: err}
	}
	if cp == nil {
		cp = pc.NewCheckpoint()
	}

	pc.Emit(events.TypeIssueStarted, nil)

	for _, ph := range core.AllPhases() {
		if ctx.Err() != nil {
			result.Success = false
			result.Error = core.ErrCancelled(fmt.Sprintf("issue #%d cancelled before phase %s", pc.Issue.Number, ph))
			break
		}
		if cp.HasCompletedPhase(ph) {
			pc.Emit(events.TypeFleetPhaseSkipped, func(e *events.FleetEvent) { e.Phase = string(ph) })
			continue
		}

		if o.DryRun && core.PhaseOrder(ph) > core.PhaseOrder(core.PhasePlan) {
			break
		}

		if gate, ok := o.Registry.Gate(ph); ok {
			if err := gate.Check(ctx, pc, ph); err != nil {
				result.Success = false
				result.Error = err
				result.Phases = append(result.Phases, core.PhaseResult{Phase: ph, PhaseName: ph.Description(), Success: false, Error: err.Error()})
				break
			}
		}

		executor, ok := o.Registry.Executor(ph)
		if !ok {
			continue
		}

		pc.Emit(events.TypeFleetPhaseStarted, func(e *events.FleetEvent) { e.Phase = string(ph) })

		outputPath, execErr := executor.Execute(ctx, pc)
		pr := core.PhaseResult{Phase: ph, PhaseName: ph.Description(), OutputPath: outputPath}

		if execErr != nil {
			pr.Success = false
			pr.Error = execErr.Error()
			result.Phases = append(result.Phases, pr)

			if ph.IsCritical() {
				result.Success = false
				result.Error = core.ErrCriticalPhaseFailed(ph, execErr)
				break
			}
			result.Error = core.ErrNonCriticalPhaseFailed(ph, execErr)
			continue
		}

		pr.Success = true
		result.Phases = append(result.Phases, pr)
		pc.PriorOutputs[ph] = outputPath
		cp = o.persistPhase(ctx, pc, ph, outputPath)
		pc.Emit(events.TypeFleetPhaseCompleted, func(e *events.FleetEvent) { e.Phase = string(ph) })
	}

	if result.Success {
		pc.Emit(events.TypeIssueCompleted, nil)
	} else {
		pc.Emit(events.TypeIssueFailed, func(e *events.FleetEvent) {
			if result.Error != nil {
				e.Message = result.Error.Error()
			}
		})
	}
	return result
}

// persistPhase records a phase's completion (or attempted completion) into
// the checkpoint and returns the refreshed state, best-effort.
func (o *IssueOrchestrator) persistPhase(ctx context.Context, pc *phase.Context, ph core.Phase, outputPath string) *core.CheckpointState {
	cp, err := pc.Store.Mutate(ctx, pc.NewCheckpoint, func(state *core.CheckpointState) {
		state.MarkPhaseCompleted(ph, outputPath)
	})
	if err != nil {
		return pc.NewCheckpoint()
	}
	return cp
}
