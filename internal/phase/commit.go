package phase

import "github.com/cadre-run/cadre/internal/worktree"

// newCommitManager builds a CommitManager scoped to this issue's worktree,
// unstaging the fixed internal patterns plus whatever agent instruction
// files were synced into the worktree this run.
func newCommitManager(pc *Context, gpgSign bool) *worktree.CommitManager {
	return worktree.NewCommitManager(pc.GitClient, gpgSign, pc.Worktree.SyncedAgentFiles)
}
