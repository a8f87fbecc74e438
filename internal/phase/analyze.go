package phase

import (
	"context"
	"fmt"

	"github.com/cadre-run/cadre/internal/core"
)

// analyzeContext is the payload written for the analysis agent: the issue
// as the agent sees it, nothing more — analysis never touches the file
// tree beyond reading it.
type analyzeContext struct {
	IssueNumber int      `json:"issueNumber"`
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Labels      []string `json:"labels"`
}

// AnalyzeExecutor runs phase 1: a single agent invocation that reads the
// issue and produces a written analysis artifact.
type AnalyzeExecutor struct{}

// ID implements Executor.
func (AnalyzeExecutor) ID() core.Phase { return core.PhaseAnalyze }

// Execute implements Executor.
func (AnalyzeExecutor) Execute(ctx context.Context, pc *Context) (string, error) {
	contextPath, err := writeContext(pc, core.PhaseAnalyze, analyzeContext{
		IssueNumber: pc.Issue.Number,
		Title:       pc.Issue.Title,
		Body:        pc.Issue.Body,
		Labels:      pc.Issue.Labels,
	})
	if err != nil {
		return "", err
	}

	out, err := outputPath(pc, "analysis.md")
	if err != nil {
		return "", err
	}

	inv := core.AgentInvocation{
		Agent:       pc.Config.Agent,
		IssueNumber: pc.Issue.Number,
		Phase:       core.PhaseAnalyze,
		ContextPath: contextPath,
		OutputPath:  out,
		TimeoutMs:   pc.Config.AgentTimeoutMs,
	}

	res, err := pc.Launcher.Launch(ctx, inv)
	if err != nil {
		return "", err
	}
	pc.RecordTokens(inv.Agent, core.PhaseAnalyze, res.TokenUsage)
	if !res.Success {
		if res.Error != nil {
			return "", res.Error
		}
		return "", fmt.Errorf("phase analyze: agent %s did not succeed", inv.Agent)
	}
	return out, nil
}
