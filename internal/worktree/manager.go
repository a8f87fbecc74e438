// Package worktree provisions and reconciles per-issue git worktrees on top
// of internal/adapters/git's Client, and commits agent changes while
// stripping internal scratch artefacts before they reach a pull request.
package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/cadre-run/cadre/internal/adapters/git"
	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/logging"
)

// agentFilesDir is the backend-specific directory synced into every
// provisioned worktree (instruction files, scratch notes) and excluded from
// the repo's history via a private git exclude, never the tracked
// .gitignore.
const agentFilesDir = ".cadre"

// Manager provisions, resumes, and reconciles per-issue worktrees rooted
// under a single worktreeRoot directory.
type Manager struct {
	root       string
	repo       *git.Client
	baseBranch string
	logger     *logging.Logger
}

// New creates a Manager rooted at worktreeRoot, operating on repo, with
// baseBranch as the default base ref ("main", "master", ...).
func New(root string, repo *git.Client, baseBranch string, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{root: root, repo: repo, baseBranch: baseBranch, logger: logger}
}

// IssuePath returns the worktree directory for an issue.
func (m *Manager) IssuePath(issueNumber int) string {
	return filepath.Join(m.root, fmt.Sprintf("issue-%d", issueNumber))
}

// Provision ensures a worktree exists for issueNumber, creating it (and its
// branch, if missing) off the resolved base commit. If the directory
// already exists it is treated as already provisioned and only its agent
// files are re-synced.
func (m *Manager) Provision(ctx context.Context, issueNumber int) (*core.IssueWorktree, error) {
	path := m.IssuePath(issueNumber)
	branch := IssueBranchName(issueNumber)

	if _, err := os.Stat(path); err == nil {
		if err := m.syncAgentFiles(path); err != nil {
			return nil, err
		}
		base, _ := m.repo.RevParse(ctx, branch)
		return &core.IssueWorktree{IssueNumber: issueNumber, Path: path, Branch: branch, BaseCommit: base}, nil
	}

	baseCommit, err := m.resolveBaseCommit(ctx)
	if err != nil {
		return nil, err
	}

	exists, err := m.repo.BranchExists(ctx, branch)
	if err != nil {
		return nil, fmt.Errorf("worktree: checking branch %s: %w", branch, err)
	}
	if !exists {
		if err := m.repo.CreateBranch(ctx, branch, baseCommit); err != nil {
			return nil, fmt.Errorf("worktree: creating branch %s: %w", branch, err)
		}
		// CreateBranch checks out the branch in the main tree; return to the
		// base so `git worktree add` below can attach the branch cleanly.
		_ = m.repo.CheckoutBranch(ctx, m.baseBranch)
	}

	if err := m.repo.CreateWorktree(ctx, path, branch); err != nil {
		return nil, fmt.Errorf("worktree: adding worktree for issue %d: %w", issueNumber, err)
	}

	if err := os.MkdirAll(filepath.Join(path, agentFilesDir), 0o750); err != nil {
		return nil, fmt.Errorf("worktree: creating %s: %w", agentFilesDir, err)
	}
	if err := m.appendPrivateExclude(path); err != nil {
		return nil, err
	}
	if err := m.syncAgentFiles(path); err != nil {
		return nil, err
	}

	return &core.IssueWorktree{IssueNumber: issueNumber, Path: path, Branch: branch, BaseCommit: baseCommit}, nil
}

// Resume re-attaches a worktree for an issue whose directory is missing but
// whose branch may still exist on the remote.
func (m *Manager) Resume(ctx context.Context, issueNumber int) (*core.IssueWorktree, error) {
	path := m.IssuePath(issueNumber)
	branch := IssueBranchName(issueNumber)

	if _, err := os.Stat(path); err == nil {
		return m.Provision(ctx, issueNumber)
	}

	if err := m.repo.Fetch(ctx, "origin"); err != nil {
		return nil, fmt.Errorf("worktree: fetching origin: %w", err)
	}
	remoteExists, err := m.remoteBranchExists(ctx, branch)
	if err != nil {
		return nil, err
	}
	if !remoteExists {
		return nil, core.ErrRemoteBranchMissing(branch)
	}

	if err := m.repo.CreateWorktree(ctx, path, branch); err != nil {
		return nil, fmt.Errorf("worktree: resuming worktree for issue %d: %w", issueNumber, err)
	}
	base, _ := m.repo.RevParse(ctx, branch)
	return &core.IssueWorktree{IssueNumber: issueNumber, Path: path, Branch: branch, BaseCommit: base}, nil
}

// ProvisionWithDeps merges depBranches onto a synthetic deps branch and
// creates the issue branch off the merged head. On conflict, resolve (if
// non-nil) is given the conflicting branch a chance to fix the tree before
// the merge is retried as a failure; if resolve is nil or declines, the
// conflict descriptor is returned as an error.
func (m *Manager) ProvisionWithDeps(ctx context.Context, issueNumber int, depBranches []string, resolve func(core.MergeConflictDetails) error) (*core.IssueWorktree, error) {
	depsBranch := DepsBranchName(issueNumber)
	baseCommit, err := m.resolveBaseCommit(ctx)
	if err != nil {
		return nil, err
	}

	if err := m.repo.CreateBranch(ctx, depsBranch, baseCommit); err != nil {
		return nil, fmt.Errorf("worktree: creating deps branch: %w", err)
	}

	for _, dep := range depBranches {
		if err := m.repo.Merge(ctx, dep, core.MergeOptions{NoFastForward: true}); err != nil {
			conflicted, _ := m.repo.GetConflictFiles(ctx)
			_ = m.repo.AbortMerge(ctx)
			details := core.MergeConflictDetails{ConflictedFiles: conflicted, DepsBranch: depsBranch, IssueBranch: IssueBranchName(issueNumber)}
			if resolve != nil {
				if rerr := resolve(details); rerr == nil {
					continue
				}
			}
			return nil, core.ErrMergeConflict(details)
		}
	}

	depsHead, err := m.repo.RevParse(ctx, depsBranch)
	if err != nil {
		return nil, fmt.Errorf("worktree: resolving deps head: %w", err)
	}

	branch := IssueBranchName(issueNumber)
	if err := m.repo.CreateBranch(ctx, branch, depsHead); err != nil {
		return nil, fmt.Errorf("worktree: creating issue branch off deps: %w", err)
	}
	_ = m.repo.CheckoutBranch(ctx, m.baseBranch)

	path := m.IssuePath(issueNumber)
	if err := m.repo.CreateWorktree(ctx, path, branch); err != nil {
		return nil, fmt.Errorf("worktree: adding worktree for issue %d: %w", issueNumber, err)
	}
	if err := os.MkdirAll(filepath.Join(path, agentFilesDir), 0o750); err != nil {
		return nil, fmt.Errorf("worktree: creating %s: %w", agentFilesDir, err)
	}
	if err := m.appendPrivateExclude(path); err != nil {
		return nil, err
	}

	return &core.IssueWorktree{IssueNumber: issueNumber, Path: path, Branch: branch, BaseCommit: depsHead}, nil
}

// resolveBaseCommit prefers origin/<base>, falling back to the local base
// branch.
func (m *Manager) resolveBaseCommit(ctx context.Context) (string, error) {
	if sha, err := m.repo.RevParse(ctx, "origin/"+m.baseBranch); err == nil {
		return strings.TrimSpace(sha), nil
	}
	sha, err := m.repo.RevParse(ctx, m.baseBranch)
	if err != nil {
		return "", fmt.Errorf("worktree: resolving base branch %s: %w", m.baseBranch, err)
	}
	return strings.TrimSpace(sha), nil
}

func (m *Manager) remoteBranchExists(ctx context.Context, branch string) (bool, error) {
	branches, err := m.repo.ListBranches(ctx)
	if err != nil {
		return false, fmt.Errorf("worktree: listing branches: %w", err)
	}
	for _, b := range branches {
		if b == "origin/"+branch || b == branch {
			return true, nil
		}
	}
	return false, nil
}

// syncAgentFiles is a placeholder sync point: real agent instruction files
// are written by the caller once the worktree exists. It exists so
// Provision has a single place to re-sync on repeated calls.
func (m *Manager) syncAgentFiles(path string) error {
	return os.MkdirAll(filepath.Join(path, agentFilesDir), 0o750)
}

// appendPrivateExclude appends agentFilesDir to the worktree's private git
// exclude file (info/exclude), never to the repo's tracked .gitignore.
func (m *Manager) appendPrivateExclude(worktreePath string) error {
	gitDirBytes, err := os.ReadFile(filepath.Join(worktreePath, ".git"))
	excludePath := filepath.Join(worktreePath, ".git", "info", "exclude")
	if err == nil {
		// worktree form: .git is a file pointing at the real git-dir.
		content := strings.TrimSpace(string(gitDirBytes))
		if strings.HasPrefix(content, "gitdir: ") {
			excludePath = filepath.Join(strings.TrimPrefix(content, "gitdir: "), "info", "exclude")
		}
	}

	if err := os.MkdirAll(filepath.Dir(excludePath), 0o750); err != nil {
		return fmt.Errorf("worktree: creating exclude dir: %w", err)
	}
	f, err := os.OpenFile(excludePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("worktree: opening private exclude: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(agentFilesDir + "/\n")
	return err
}

// Prune reconciles `git worktree list` against the known-active issue set,
// removing worktree registrations for issues no longer tracked.
func (m *Manager) Prune(ctx context.Context, activeIssues map[int]bool) ([]string, error) {
	worktrees, err := m.repo.ListWorktrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("worktree: listing worktrees: %w", err)
	}

	var pruned []string
	for _, wt := range worktrees {
		if wt.IsMain {
			continue
		}
		if !strings.HasPrefix(wt.Path, m.root) {
			continue
		}
		var issueNumber int
		if _, err := fmt.Sscanf(filepath.Base(wt.Path), "issue-%d", &issueNumber); err != nil {
			continue
		}
		if activeIssues[issueNumber] {
			continue
		}
		if err := m.repo.RemoveWorktree(ctx, wt.Path); err != nil {
			m.logger.Warn("worktree: prune failed", "path", wt.Path, "error", err)
			continue
		}
		pruned = append(pruned, wt.Path)
	}
	return pruned, nil
}

// StartJanitor watches the worktree root for externally deleted issue
// directories (an operator running `rm -rf` on a worktree outside cadre, a
// disk-cleanup cron, a misbehaving editor) and reconciles them with a Prune
// pass as soon as the removal is observed, rather than leaving the registered
// `git worktree list` entry to go stale until the next run starts. The
// watcher is best-effort: if it cannot be created (no inotify/kqueue support,
// fd exhaustion), StartJanitor returns a nil stop func and no error, and the
// caller's only reconciliation remains the explicit Prune call at fleet
// start.
func (m *Manager) StartJanitor(ctx context.Context, activeIssues func() map[int]bool) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Warn("worktree: janitor watcher unavailable", "error", err)
		return func() {}, nil
	}
	if err := watcher.Add(m.root); err != nil {
		_ = watcher.Close()
		m.logger.Warn("worktree: janitor watcher failed to watch root", "root", m.root, "error", err)
		return func() {}, nil
	}

	done := make(chan struct{})
	go m.janitorLoop(ctx, watcher, activeIssues, done)

	return func() {
		_ = watcher.Close()
		<-done
	}, nil
}

func (m *Manager) janitorLoop(ctx context.Context, watcher *fsnotify.Watcher, activeIssues func() map[int]bool, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if _, err := m.Prune(ctx, activeIssues()); err != nil {
				m.logger.Warn("worktree: janitor prune failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("worktree: janitor watcher error", "error", err)
		}
	}
}
