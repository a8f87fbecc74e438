package worktree

import (
	"context"
	"fmt"

	"github.com/cadre-run/cadre/internal/adapters/git"
)

// internalPatterns is the fixed set of pathspecs unstaged before a commit:
// the scratch directory and per-task planning notes. Agent instruction
// files written into the worktree this run are added on top, per instance.
var internalPatterns = []string{".cadre/", "task-*.md"}

// CommitManager stages, unstages internal artefacts, and commits inside a
// single issue's worktree.
type CommitManager struct {
	repo          *git.Client
	gpgSign       bool
	extraPatterns []string // agent instruction files written this run
}

// NewCommitManager creates a CommitManager for a worktree's git client.
func NewCommitManager(repo *git.Client, gpgSign bool, agentInstructionFiles []string) *CommitManager {
	return &CommitManager{repo: repo, gpgSign: gpgSign, extraPatterns: agentInstructionFiles}
}

// Commit stages all changes, then unstages the internal patterns — one
// pattern at a time, so a pathspec miss on one never aborts the rest — and
// commits with --no-verify (and GPG signing if configured).
func (c *CommitManager) Commit(ctx context.Context, message string) (string, error) {
	if err := c.repo.StageAll(ctx); err != nil {
		return "", fmt.Errorf("commit: staging changes: %w", err)
	}

	for _, pattern := range c.unstagePatterns() {
		_ = c.repo.Unstage(ctx, pattern) // best-effort: a pathspec miss must not abort the rest
	}

	sha, err := c.repo.CommitWith(ctx, message, git.CommitOptions{NoVerify: true, GPGSign: c.gpgSign})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return sha, nil
}

func (c *CommitManager) unstagePatterns() []string {
	patterns := make([]string, 0, len(internalPatterns)+len(c.extraPatterns))
	patterns = append(patterns, internalPatterns...)
	patterns = append(patterns, c.extraPatterns...)
	return patterns
}

// StripCadreFiles replays every commit between baseCommit and the current
// HEAD via cherry-pick --no-commit, removes internal artefacts from the
// staged index pattern-by-pattern, and then either recommits with -C <sha>
// (reusing the original author, timestamp, and message) or drops the
// commit entirely when nothing non-internal remains. Called once, right
// before the compose-pr phase opens a pull request, so the issue branch's
// history never exposes scratch files to a reviewer.
func (c *CommitManager) StripCadreFiles(ctx context.Context, baseCommit string) error {
	commits, err := c.repo.RevList(ctx, baseCommit)
	if err != nil {
		return fmt.Errorf("strip: listing commits: %w", err)
	}
	if len(commits) == 0 {
		return nil
	}

	if err := c.repo.ResetHard(ctx, baseCommit); err != nil {
		return fmt.Errorf("strip: resetting to base: %w", err)
	}

	for _, sha := range commits {
		if err := c.repo.CherryPickNoCommit(ctx, sha); err != nil {
			_ = c.repo.AbortCherryPick(ctx)
			return fmt.Errorf("strip: cherry-picking %s: %w", sha, err)
		}

		for _, pattern := range c.unstagePatterns() {
			_ = c.repo.Unstage(ctx, pattern) // best-effort: not every commit touches every pattern
		}

		hasChanges, err := c.repo.HasUncommittedChanges(ctx)
		if err != nil {
			return fmt.Errorf("strip: checking staged changes for %s: %w", sha, err)
		}
		if !hasChanges {
			continue // nothing non-internal survived this commit; drop it
		}
		if _, err := c.repo.CommitReuse(ctx, sha); err != nil {
			return fmt.Errorf("strip: recommitting %s: %w", sha, err)
		}
	}
	return nil
}
