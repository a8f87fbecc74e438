package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cadre-run/cadre/internal/adapters/git"
	"github.com/cadre-run/cadre/internal/adapters/github"
	"github.com/cadre-run/cadre/internal/agentlauncher"
	"github.com/cadre-run/cadre/internal/budget"
	"github.com/cadre-run/cadre/internal/checkpoint"
	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/events"
	"github.com/cadre-run/cadre/internal/logging"
	"github.com/cadre-run/cadre/internal/orchestrator"
	"github.com/cadre-run/cadre/internal/phase"
	"github.com/cadre-run/cadre/internal/supervisor"
	"github.com/cadre-run/cadre/internal/triage"
	"github.com/cadre-run/cadre/internal/worktree"
)

var runCmd = &cobra.Command{
	Use:   "run <issue-number> [issue-number...]",
	Short: "Run the fleet pipeline over one or more tracked issues",
	Long: `Provisions a worktree per issue and drives each through analyze, plan,
implement, integrate, and compose-pr, bounded by the configured fleet
concurrency and token budgets. At the end of the run, buffered events are
clustered and the highest-severity topics are filed as follow-up issues.`,
	Example: `  cadre run 42
  cadre run 42 43 44 --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFleet,
}

var runDryRun bool

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "stop after the plan phase for every issue")
}

func runFleet(_ *cobra.Command, args []string) error {
	issueNumbers, err := parseIssueNumbers(args)
	if err != nil {
		return err
	}
	return runIssues(issueNumbers)
}

// runIssues drives the fleet pipeline over issueNumbers, from config load
// through triage filing. It is the shared core behind both `cadre run`
// (explicit issue numbers) and `cadre resume` (issue numbers recovered from
// the fleet checkpoint) — resuming is not a distinct code path, since
// Manager.Provision and checkpoint.Store.Load already pick up wherever a
// prior attempt left off.
func runIssues(issueNumbers []int) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nreceived interrupt, stopping...")
		cancel()
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runDryRun {
		cfg.Fleet.DryRun = true
	}
	runConfig := cfg.ToRunConfig()

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	repoPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving repository path: %w", err)
	}

	gitClient, err := git.NewClient(repoPath)
	if err != nil {
		return fmt.Errorf("opening git repository: %w", err)
	}

	ghClient, err := github.NewClientFromRepo()
	if err != nil {
		return fmt.Errorf("detecting GitHub repository: %w", err)
	}
	issueClient := github.NewIssueClientAdapter(ghClient)

	wtManager := worktree.New(runConfig.WorktreeRoot, gitClient, runConfig.BaseBranch, logger)

	backendKind := agentlauncher.BackendClaudeStyle
	backendPath := cfg.Agent.Claude.Path
	if runConfig.Agent == core.AgentCopilot {
		backendKind = agentlauncher.BackendCopilotStyle
		backendPath = cfg.Agent.Copilot.Path
	}
	backend, err := agentlauncher.NewBackend(backendKind, runConfig.Model)
	if err != nil {
		return fmt.Errorf("selecting agent backend: %w", err)
	}
	sup := supervisor.New()
	launcher := agentlauncher.NewWithSupervisor(backend, agentlauncher.Config{
		Path:    backendPath,
		Model:   runConfig.Model,
		Timeout: time.Duration(runConfig.AgentTimeoutMs) * time.Millisecond,
		WorkDir: repoPath,
	}, logger, sup)

	bus := events.New(1024)

	collector := triage.NewCollector(bus)
	triageDone := make(chan struct{})
	go func() {
		defer close(triageDone)
		collector.Run(context.Background())
	}()

	tracker := budget.NewTracker()
	guard := budget.NewGuard(tracker, runConfig.FleetTokenBudget, runConfig.PerIssueTokenBudget)

	registry := phase.NewRegistry(
		phase.AnalyzeExecutor{},
		phase.PlanExecutor{},
		phase.ImplementExecutor{},
		phase.IntegrateExecutor{GPGSign: runConfig.GPGSign},
		phase.ComposePRExecutor{GPGSign: runConfig.GPGSign},
	).WithGate(core.PhaseAnalyze, phase.BudgetGate{}).
		WithGate(core.PhasePlan, phase.BudgetGate{}).
		WithGate(core.PhaseImplement, phase.BudgetGate{})

	issueOrch := orchestrator.NewIssueOrchestrator(registry, runConfig.DryRun)

	runID := fmt.Sprintf("run-%d", time.Now().Unix())
	fleetStore := checkpoint.NewFleetStore(filepath.Join(cfg.State.BaseDir, "fleet.json"))

	newContext := func(ctx context.Context, issue core.Issue) (*phase.Context, error) {
		wt, err := wtManager.Provision(ctx, issue.Number)
		if err != nil {
			return nil, fmt.Errorf("provisioning worktree for issue #%d: %w", issue.Number, err)
		}
		issueGit, err := git.NewClient(wt.Path)
		if err != nil {
			return nil, fmt.Errorf("opening worktree git client for issue #%d: %w", issue.Number, err)
		}

		store := checkpoint.NewStore(filepath.Join(cfg.State.BaseDir, fmt.Sprintf("issue-%d.json", issue.Number)))

		return &phase.Context{
			Issue:        issue,
			Config:       runConfig,
			Worktree:     wt,
			Logger:       logger,
			Store:        store,
			Tracker:      tracker,
			Guard:        guard,
			Launcher:     launcher,
			Bus:          bus,
			GitClient:    issueGit,
			GitHub:       ghClient,
			WorktreeMgr:  wtManager,
			ProgressDir:  filepath.Join(wt.Path, ".cadre", "issues", strconv.Itoa(issue.Number)),
			PriorOutputs: make(map[core.Phase]string),
		}, nil
	}

	fleet := orchestrator.New(issueOrch, newContext, orchestrator.FleetOrchestrator{
		Guard:       guard,
		FleetStore:  fleetStore,
		Bus:         bus,
		Logger:      logger,
		Supervisor:  sup,
		WorktreeMgr: wtManager,
		MaxParallel: runConfig.MaxParallelIssues,
		RunID:       runID,
	})

	issues, err := fetchIssues(ctx, issueClient, issueNumbers)
	if err != nil {
		return err
	}

	result := fleet.Run(ctx, issues)

	bus.Close()
	<-triageDone
	summary := collector.RunTriage(context.Background(), issueClient, logger, triage.Options{
		MinSeverity:     triage.Severity(runConfig.MinTriageSeverity),
		MaxIssuesPerRun: runConfig.MaxIssuesPerRun,
		Labels:          cfg.Triage.Labels,
	})
	logger.Info("fleet run complete",
		"run", runID,
		"issues", len(result.Issues),
		"fleetExceeded", result.FleetExceeded,
		"triageFiled", summary.Filed)

	for _, res := range result.Issues {
		if !res.Success {
			return fmt.Errorf("fleet run %s finished with at least one failed issue (#%d: %v)", runID, res.IssueNumber, res.Error)
		}
	}
	return nil
}

func fetchIssues(ctx context.Context, client core.IssueClient, numbers []int) ([]core.Issue, error) {
	issues := make([]core.Issue, 0, len(numbers))
	for _, n := range numbers {
		issue, err := client.GetIssue(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("fetching issue #%d: %w", n, err)
		}
		issues = append(issues, *issue)
	}
	return issues, nil
}

func parseIssueNumbers(args []string) ([]int, error) {
	numbers := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid issue number %q: %w", a, err)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}
