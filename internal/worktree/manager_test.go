package worktree_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cadre-run/cadre/internal/adapters/git"
	"github.com/cadre-run/cadre/internal/testutil"
	"github.com/cadre-run/cadre/internal/worktree"
)

func newManager(t *testing.T, repo *testutil.GitRepo) (*worktree.Manager, *git.Client, string) {
	t.Helper()
	client, err := git.NewClient(repo.Path)
	testutil.AssertNoError(t, err)

	root := filepath.Join(repo.Path, "..", "worktrees")
	testutil.AssertNoError(t, os.MkdirAll(root, 0o755))

	return worktree.New(root, client, "main", nil), client, root
}

func TestManager_Provision_CreatesBranchAndWorktree(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("README.md", "# test")
	repo.Commit("initial")

	mgr, _, _ := newManager(t, repo)

	wt, err := mgr.Provision(context.Background(), 7)
	testutil.AssertNoError(t, err)

	if wt.Branch != "cadre/issue-7" {
		t.Errorf("Branch = %q, want cadre/issue-7", wt.Branch)
	}
	if _, err := os.Stat(wt.Path); err != nil {
		t.Errorf("worktree path %s does not exist: %v", wt.Path, err)
	}
	if _, err := os.Stat(filepath.Join(wt.Path, ".cadre")); err != nil {
		t.Errorf(".cadre dir missing: %v", err)
	}
}

func TestManager_Provision_IsIdempotent(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("README.md", "# test")
	repo.Commit("initial")

	mgr, _, _ := newManager(t, repo)

	first, err := mgr.Provision(context.Background(), 3)
	testutil.AssertNoError(t, err)

	second, err := mgr.Provision(context.Background(), 3)
	testutil.AssertNoError(t, err)

	if first.Path != second.Path || first.Branch != second.Branch {
		t.Errorf("second Provision() returned different worktree: %+v vs %+v", first, second)
	}
}

func TestManager_Resume_MissingRemoteBranch(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("README.md", "# test")
	repo.Commit("initial")

	mgr, _, _ := newManager(t, repo)

	_, err := mgr.Resume(context.Background(), 99)
	testutil.AssertError(t, err)
}

func TestManager_StartJanitor_StopsCleanly(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("README.md", "# test")
	repo.Commit("initial")

	mgr, _, _ := newManager(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop, err := mgr.StartJanitor(ctx, func() map[int]bool { return map[int]bool{} })
	testutil.AssertNoError(t, err)
	if stop == nil {
		t.Fatal("StartJanitor() stop = nil, want a stop func")
	}

	// Must return promptly even with no events ever observed.
	stop()
}

func TestManager_Prune_RemovesInactiveWorktrees(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("README.md", "# test")
	repo.Commit("initial")

	mgr, _, _ := newManager(t, repo)

	_, err := mgr.Provision(context.Background(), 1)
	testutil.AssertNoError(t, err)
	_, err = mgr.Provision(context.Background(), 2)
	testutil.AssertNoError(t, err)

	pruned, err := mgr.Prune(context.Background(), map[int]bool{1: true})
	testutil.AssertNoError(t, err)

	testutil.AssertLen(t, pruned, 1)
}
