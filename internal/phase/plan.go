package phase

import (
	"context"
	"fmt"

	"github.com/cadre-run/cadre/internal/core"
)

// planContext points the planning agent at the analysis phase's output,
// the only input it needs.
type planContext struct {
	IssueNumber  int    `json:"issueNumber"`
	AnalysisPath string `json:"analysisPath"`
}

// PlanExecutor runs phase 2: turns the analysis into an implementation
// plan, a markdown document embedding a cadre-json fenced session list
// that the implementation phase will parse.
type PlanExecutor struct{}

// ID implements Executor.
func (PlanExecutor) ID() core.Phase { return core.PhasePlan }

// Execute implements Executor.
func (PlanExecutor) Execute(ctx context.Context, pc *Context) (string, error) {
	contextPath, err := writeContext(pc, core.PhasePlan, planContext{
		IssueNumber:  pc.Issue.Number,
		AnalysisPath: pc.PriorOutputs[core.PhaseAnalyze],
	})
	if err != nil {
		return "", err
	}

	out, err := outputPath(pc, "plan.md")
	if err != nil {
		return "", err
	}

	inv := core.AgentInvocation{
		Agent:       pc.Config.Agent,
		IssueNumber: pc.Issue.Number,
		Phase:       core.PhasePlan,
		ContextPath: contextPath,
		OutputPath:  out,
		TimeoutMs:   pc.Config.AgentTimeoutMs,
	}

	res, err := pc.Launcher.Launch(ctx, inv)
	if err != nil {
		return "", err
	}
	pc.RecordTokens(inv.Agent, core.PhasePlan, res.TokenUsage)
	if !res.Success {
		if res.Error != nil {
			return "", res.Error
		}
		return "", fmt.Errorf("phase plan: agent %s did not succeed", inv.Agent)
	}
	return out, nil
}
