package worktree_test

import (
	"context"
	"testing"

	"github.com/cadre-run/cadre/internal/adapters/git"
	"github.com/cadre-run/cadre/internal/testutil"
	"github.com/cadre-run/cadre/internal/worktree"
)

func TestRebaseStart_NoneInProgress(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("a.txt", "1")
	repo.Commit("initial")

	client, err := git.NewClient(repo.Path)
	testutil.AssertNoError(t, err)

	status, err := worktree.RebaseStart(context.Background(), client)
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, status.Paused, "no rebase should be in progress")
}

func TestRebaseContinue_NoneInProgress(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("a.txt", "1")
	repo.Commit("initial")

	client, err := git.NewClient(repo.Path)
	testutil.AssertNoError(t, err)

	outcome, err := worktree.RebaseContinue(context.Background(), client)
	testutil.AssertNoError(t, err)
	if outcome != worktree.RebaseNoneInFlight {
		t.Errorf("outcome = %q, want %q", outcome, worktree.RebaseNoneInFlight)
	}
}

func TestRebaseContinue_ResolvesConflictAndCompletes(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("a.txt", "base\n")
	repo.Commit("base")

	repo.CreateBranch("feature")
	repo.WriteFile("a.txt", "feature change\n")
	repo.Commit("feature change")

	repo.Checkout("main")
	repo.WriteFile("a.txt", "main change\n")
	repo.Commit("main change")

	repo.Checkout("feature")
	if _, err := repo.Run("rebase", "main"); err == nil {
		t.Fatal("expected rebase to conflict")
	}

	client, err := git.NewClient(repo.Path)
	testutil.AssertNoError(t, err)

	status, err := worktree.RebaseStart(context.Background(), client)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, status.Paused, "rebase should be paused after conflict")
	testutil.AssertLen(t, status.ConflictFiles, 1)

	repo.WriteFile("a.txt", "resolved\n")

	outcome, err := worktree.RebaseContinue(context.Background(), client)
	testutil.AssertNoError(t, err)
	if outcome != worktree.RebaseClean {
		t.Errorf("outcome = %q, want %q", outcome, worktree.RebaseClean)
	}
}
