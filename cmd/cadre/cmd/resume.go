package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cadre-run/cadre/internal/checkpoint"
	"github.com/cadre-run/cadre/internal/config"
	"github.com/cadre-run/cadre/internal/core"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [issue-number...]",
	Short: "Resume a previously interrupted fleet run",
	Long: `Re-drives issues left incomplete by a prior run. With no arguments,
every issue recorded in the fleet checkpoint as anything other than
completed is resumed. Resuming reuses the same worktree-provisioning and
checkpoint-loading path as a fresh run: an issue whose worktree and
checkpoint already exist picks up at its last completed phase instead of
starting over at analyze.`,
	Example: `  cadre resume
  cadre resume 42`,
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
	resumeCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "stop after the plan phase for every issue")
}

func runResume(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		issueNumbers, err := parseIssueNumbers(args)
		if err != nil {
			return err
		}
		return runIssues(issueNumbers)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	issueNumbers, err := incompleteIssues(cfg)
	if err != nil {
		return err
	}
	if len(issueNumbers) == 0 {
		fmt.Println("no incomplete issues recorded in the fleet checkpoint")
		return nil
	}
	return runIssues(issueNumbers)
}

// incompleteIssues reads the fleet checkpoint and returns every tracked
// issue number whose last recorded status is not completed, sorted for
// deterministic resume order.
func incompleteIssues(cfg *config.Config) ([]int, error) {
	fleetStore := checkpoint.NewFleetStore(filepath.Join(cfg.State.BaseDir, "fleet.json"))
	state, err := fleetStore.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading fleet checkpoint: %w", err)
	}
	if state == nil {
		return nil, nil
	}

	var numbers []int
	for n, entry := range state.Issues {
		if entry.Status != core.IssueStatusCompleted {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)
	return numbers, nil
}
