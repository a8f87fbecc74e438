package worktree

import (
	"context"
	"fmt"

	"github.com/cadre-run/cadre/internal/adapters/git"
)

// RebaseOutcome is the result of RebaseContinue.
type RebaseOutcome string

const (
	RebaseClean         RebaseOutcome = "clean"
	RebaseStillConflict RebaseOutcome = "still-conflicted"
	RebaseNoneInFlight  RebaseOutcome = "none-in-progress"
)

// RebaseStatus reports whether a rebase is paused and, if so, which files
// are still conflicted.
type RebaseStatus struct {
	Paused        bool
	ConflictFiles []string
}

// RebaseStart detects an already-paused rebase left over from a prior run
// (rebase-merge/ or rebase-apply/ in the git-dir) and reports its
// conflicted files. It never starts a new rebase itself and never aborts
// the paused one — the caller decides whether to continue or abort.
func RebaseStart(ctx context.Context, repo *git.Client) (*RebaseStatus, error) {
	inProgress, err := repo.HasRebaseInProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("worktree: checking rebase state: %w", err)
	}
	if !inProgress {
		return &RebaseStatus{Paused: false}, nil
	}
	files, err := repo.GetConflictFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("worktree: listing conflict files: %w", err)
	}
	return &RebaseStatus{Paused: true, ConflictFiles: files}, nil
}

// RebaseContinue stages all changes and continues a paused rebase with
// GIT_EDITOR=true (so git never blocks on an editor prompt), distinguishing
// a clean continuation from unresolved markers still present and from "no
// rebase in progress" — the last of which is treated as success because the
// agent already finished it.
func RebaseContinue(ctx context.Context, repo *git.Client) (RebaseOutcome, error) {
	inProgress, err := repo.HasRebaseInProgress(ctx)
	if err != nil {
		return "", fmt.Errorf("worktree: checking rebase state: %w", err)
	}
	if !inProgress {
		return RebaseNoneInFlight, nil
	}

	if err := repo.StageAll(ctx); err != nil {
		return "", fmt.Errorf("worktree: staging rebase resolution: %w", err)
	}

	if err := repo.ContinueRebase(ctx); err != nil {
		stillConflicted, cErr := repo.HasRebaseInProgress(ctx)
		if cErr == nil && stillConflicted {
			return RebaseStillConflict, nil
		}
		return "", fmt.Errorf("worktree: continuing rebase: %w", err)
	}
	return RebaseClean, nil
}

// RebaseAbort restores the pre-rebase state.
func RebaseAbort(ctx context.Context, repo *git.Client) error {
	return repo.AbortRebase(ctx)
}
