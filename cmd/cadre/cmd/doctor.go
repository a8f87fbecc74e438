package cmd

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/cadre-run/cadre/internal/agentlauncher"
	"github.com/cadre-run/cadre/internal/config"
	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system dependencies and resource headroom",
	Long: `Verifies that git and the configured agent CLI backend are reachable,
validates the resolved configuration, and reports host resource headroom
(disk, memory, load) for the worktree root.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  ✗ config: %v\n", err)
		return fmt.Errorf("dependency check failed")
	}

	allOK := true

	fmt.Println("Checking dependencies...")
	fmt.Println()
	if !checkCommand("git", []string{"--version"}) {
		fmt.Println("  ✗ git (required)")
		allOK = false
	} else {
		fmt.Println("  ✓ git")
	}

	backendPath, backendKind := resolveBackend(cfg)
	backend, err := agentlauncher.NewBackend(backendKind, "")
	if err != nil {
		fmt.Printf("  ✗ agent backend %s: %v\n", backendKind, err)
		allOK = false
	} else if err := backend.CheckAvailability(backendPath); err != nil {
		fmt.Printf("  ✗ agent backend %s (%s): %v\n", backend.Name(), backendPath, err)
		allOK = false
	} else {
		fmt.Printf("  ✓ agent backend %s (%s)\n", backend.Name(), backendPath)
	}
	fmt.Println()

	fmt.Println("Validating configuration...")
	fmt.Println()
	if verrs := validateDoctorConfig(cfg); len(verrs) > 0 {
		for _, issue := range verrs {
			fmt.Printf("  ✗ %s\n", issue)
		}
		allOK = false
	} else {
		fmt.Println("  ✓ configuration valid")
	}
	fmt.Println()

	fmt.Println("Checking host resources...")
	fmt.Println()
	metrics := diagnostics.NewCollector().Collect(cfg.Git.WorktreeRoot)
	fmt.Printf("  cpu:    %s (%d cores, %.1f%% used)\n", orUnknown(metrics.CPUModel), metrics.CPUCores, metrics.CPUPercent)
	fmt.Printf("  memory: %.0f/%.0f MB (%.1f%%)\n", metrics.MemUsedMB, metrics.MemTotalMB, metrics.MemPercent)
	fmt.Printf("  disk:   %.1f/%.1f GB used at %s (%.1f%%)\n", metrics.DiskUsedGB, metrics.DiskTotalGB, metrics.DiskPath, metrics.DiskPercent)
	fmt.Printf("  load:   %.2f %.2f %.2f\n", metrics.LoadAvg1, metrics.LoadAvg5, metrics.LoadAvg15)
	for _, d := range metrics.BlockDevices {
		fmt.Printf("  block:  %s (%s, %.0f GB)\n", d.Name, d.DriveType, d.SizeGB)
	}
	for _, w := range metrics.Warnings() {
		fmt.Printf("  ⚠ %s\n", w)
		allOK = false
	}
	fmt.Println()

	if !allOK {
		return fmt.Errorf("dependency check failed")
	}
	fmt.Println("All dependencies available and configuration valid")
	return nil
}

// resolveBackend maps the configured default agent to its CLI path and the
// agentlauncher.BackendKind doctor should probe, mirroring runFleet's own
// selection in run.go.
func resolveBackend(cfg *config.Config) (path string, kind agentlauncher.BackendKind) {
	if cfg.Agent.Default == core.AgentCopilot {
		return cfg.Agent.Copilot.Path, agentlauncher.BackendCopilotStyle
	}
	return cfg.Agent.Claude.Path, agentlauncher.BackendClaudeStyle
}

func validateDoctorConfig(cfg *config.Config) []string {
	if err := config.ValidateConfig(cfg); err != nil {
		if verrs, ok := err.(config.ValidationErrors); ok {
			issues := make([]string, 0, len(verrs))
			for _, v := range verrs {
				issues = append(issues, v.Error())
			}
			return issues
		}
		return []string{err.Error()}
	}
	return nil
}

// checkCommand reports whether name runs successfully with args, the same
// liveness probe the teacher's doctor command uses for `git`/`gh`.
func checkCommand(name string, args []string) bool {
	return exec.Command(name, args...).Run() == nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
