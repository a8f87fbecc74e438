package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/cadre-run/cadre/internal/checkpoint"
	"github.com/cadre-run/cadre/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the fleet checkpoint's per-issue status",
	Long: `Reads the fleet-scoped checkpoint file written by a prior (possibly
interrupted) run and prints every tracked issue's last known phase, status,
and token spend, without launching any agents.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return printFleetStatus(cfg)
}

func printFleetStatus(cfg *config.Config) error {
	fleetStore := checkpoint.NewFleetStore(filepath.Join(cfg.State.BaseDir, "fleet.json"))
	state, err := fleetStore.Load(context.Background())
	if err != nil {
		return fmt.Errorf("reading fleet checkpoint: %w", err)
	}
	if state == nil {
		fmt.Println("no fleet checkpoint found — nothing has been run yet")
		return nil
	}

	numbers := make([]int, 0, len(state.Issues))
	for n := range state.Issues {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	fmt.Printf("project: %s\n", state.ProjectName)
	fmt.Printf("last checkpoint: %s\n", state.LastCheckpoint.Format("2006-01-02 15:04:05"))
	fmt.Printf("total tokens: %d\n\n", state.TokenUsage.Total)

	for _, n := range numbers {
		entry := state.Issues[n]
		line := fmt.Sprintf("  #%-6d %-16s phase=%-12s tokens=%d", n, entry.Status, entry.LastPhase, entry.Tokens)
		if entry.Error != "" {
			line += fmt.Sprintf(" error=%q", entry.Error)
		}
		fmt.Println(line)
	}
	return nil
}
