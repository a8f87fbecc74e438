package phase

import (
	"context"
	"fmt"
	"os"

	"github.com/cadre-run/cadre/internal/core"
)

// IntegrateExecutor runs phase 4: commits whatever the implementation
// phase left uncommitted (excluding internal scratch files) and pushes the
// issue branch. Non-critical — a failure here is logged and the pipeline
// continues to compose-pr.
type IntegrateExecutor struct {
	GPGSign bool
}

// ID implements Executor.
func (IntegrateExecutor) ID() core.Phase { return core.PhaseIntegrate }

// Execute implements Executor.
func (e IntegrateExecutor) Execute(ctx context.Context, pc *Context) (string, error) {
	commits := newCommitManager(pc, e.GPGSign)

	dirty, err := pc.GitClient.HasUncommittedChanges(ctx)
	if err != nil {
		return "", fmt.Errorf("phase integrate: checking worktree status: %w", err)
	}
	if dirty {
		msg := fmt.Sprintf("cadre: integrate issue #%d", pc.Issue.Number)
		if _, err := commits.Commit(ctx, msg); err != nil {
			return "", fmt.Errorf("phase integrate: committing: %w", err)
		}
	}

	if err := pc.GitClient.Push(ctx, "origin", pc.Worktree.Branch); err != nil {
		return "", fmt.Errorf("phase integrate: pushing %s: %w", pc.Worktree.Branch, err)
	}

	out, err := outputPath(pc, "integrate.md")
	if err != nil {
		return "", err
	}
	body := fmt.Sprintf("# Integration (issue #%d)\n\nPushed %s to origin.\n", pc.Issue.Number, pc.Worktree.Branch)
	if err := os.WriteFile(out, []byte(body), 0o600); err != nil {
		return "", fmt.Errorf("phase integrate: writing output: %w", err)
	}
	return out, nil
}
