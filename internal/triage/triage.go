// Package triage clusters the fleet event stream into deduplicated,
// severity-ranked topics at end-of-run and files a bounded number of them as
// issues on the code-hosting platform.
package triage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/events"
	"github.com/cadre-run/cadre/internal/logging"
)

// Severity ranks how urgently a topic needs human attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeveritySevere   Severity = "severe"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// rank orders severities from most to least urgent, higher first.
var rank = map[Severity]int{
	SeverityCritical: 5,
	SeveritySevere:   4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
}

// lifecycleEvents carries no diagnostic signal on its own and is dropped
// before clustering.
var lifecycleEvents = map[string]bool{
	events.TypeFleetStarted:       true,
	events.TypeIssueStarted:       true,
	events.TypeFleetPhaseStarted:  true,
	events.TypeFleetPhaseSkipped:  true,
	events.TypeFleetPhaseCompleted: true,
}

// baseSeverity is the severity a topic carries before the issue-failed
// multiplicity rule (see Collector.runTriage) can escalate it.
var baseSeverity = map[string]Severity{
	events.TypeFleetInterrupted:  SeverityCritical,
	events.TypeBudgetExceeded:    SeveritySevere,
	events.TypeIssueFailed:       SeverityHigh,
	events.TypeAgentFailed:       SeverityHigh,
	events.TypeTaskBlocked:       SeverityMedium,
	events.TypeTaskRetry:         SeverityMedium,
	events.TypeBudgetWarning:     SeverityMedium,
	events.TypeChecksFailed:      SeverityMedium,
	events.TypeAmbiguityDetected: SeverityLow,
}

// Topic is a coalesced diagnostic signal: every buffered event that derived
// the same (subsystem, failureMode, impactScope) triple.
type Topic struct {
	Subsystem   string
	FailureMode string
	ImpactScope string
	Severity    Severity
	Events      []events.FleetEvent
}

// Key returns the clustering key events coalesce on.
func (t Topic) Key() string {
	return t.Subsystem + ":" + t.FailureMode + ":" + t.ImpactScope
}

// Summary reports what runTriage did with the buffered events.
type Summary struct {
	Topics         []Topic
	Filed          int
	FiledIssues    []int
	BelowThreshold int
	OverCap        int
}

// Collector buffers every fleet event published for a run and, once the run
// is over, clusters them into Topics and hands the highest-severity ones to
// an IssueClient.
type Collector struct {
	ch <-chan events.Event

	mu       sync.Mutex
	buffered []events.FleetEvent
}

// NewCollector subscribes to bus on a priority channel: triage needs every
// event, so it must never fall victim to the bus's ring-buffer drop policy
// that ordinary subscribers accept.
func NewCollector(bus *events.EventBus) *Collector {
	return &Collector{ch: bus.SubscribePriority()}
}

// Run drains the subscription until the bus channel closes or ctx is
// cancelled. Callers run it in its own goroutine alongside the fleet run and
// join it (wait for return) before calling RunTriage, so every event
// published during the run has been buffered.
func (c *Collector) Run(ctx context.Context) {
	for {
		select {
		case ev, ok := <-c.ch:
			if !ok {
				return
			}
			if fe, ok := ev.(events.FleetEvent); ok {
				c.mu.Lock()
				c.buffered = append(c.buffered, fe)
				c.mu.Unlock()
			}
		case <-ctx.Done():
			return
		}
	}
}

// Options configures RunTriage's filing policy.
type Options struct {
	MinSeverity     Severity
	MaxIssuesPerRun int
	Labels          []string
}

// RunTriage executes the end-of-run clustering pipeline: filter lifecycle
// events, derive and coalesce topics, assign and sort by severity, drop
// anything below the configured floor, then file the highest-severity
// remainder, bounded by MaxIssuesPerRun. Filing is best-effort: a failed
// CreateIssue call is logged and does not abort the remaining topics.
func (c *Collector) RunTriage(ctx context.Context, client core.IssueClient, logger *logging.Logger, opts Options) Summary {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.MaxIssuesPerRun <= 0 {
		opts.MaxIssuesPerRun = 5
	}
	if opts.MinSeverity == "" {
		opts.MinSeverity = SeverityLow
	}

	c.mu.Lock()
	buffered := make([]events.FleetEvent, len(c.buffered))
	copy(buffered, c.buffered)
	c.mu.Unlock()

	topics := cluster(buffered)
	escalateSystemicFailures(topics)

	list := make([]Topic, 0, len(topics))
	for _, t := range topics {
		list = append(list, *t)
	}
	sort.Slice(list, func(i, j int) bool {
		if rank[list[i].Severity] != rank[list[j].Severity] {
			return rank[list[i].Severity] > rank[list[j].Severity]
		}
		if len(list[i].Events) != len(list[j].Events) {
			return len(list[i].Events) > len(list[j].Events)
		}
		return list[i].Key() < list[j].Key()
	})

	summary := Summary{}
	var eligible []Topic
	for _, t := range list {
		if rank[t.Severity] < rank[opts.MinSeverity] {
			summary.BelowThreshold++
			continue
		}
		eligible = append(eligible, t)
	}
	summary.Topics = eligible

	for i, t := range eligible {
		if i >= opts.MaxIssuesPerRun {
			summary.OverCap++
			continue
		}
		if client == nil {
			continue
		}
		issue, err := client.CreateIssue(ctx, core.CreateIssueOptions{
			Title:  topicTitle(t),
			Body:   topicBody(t),
			Labels: append([]string{"triage", string(t.Severity)}, opts.Labels...),
		})
		if err != nil {
			logger.Error("triage: failed to file issue", "topic", t.Key(), "error", err)
			continue
		}
		summary.Filed++
		summary.FiledIssues = append(summary.FiledIssues, issue.Number)
	}

	logger.Info("triage: run complete",
		"topics", len(list),
		"filed", summary.Filed,
		"belowThreshold", summary.BelowThreshold,
		"overCap", summary.OverCap)

	return summary
}

// cluster derives (subsystem, failureMode, impactScope) for every
// non-lifecycle event and coalesces matching triples into Topics.
func cluster(buffered []events.FleetEvent) map[string]*Topic {
	topics := make(map[string]*Topic)
	for _, ev := range buffered {
		if lifecycleEvents[ev.Type] {
			continue
		}
		sev, ok := baseSeverity[ev.Type]
		if !ok {
			continue
		}

		t := Topic{
			Subsystem:   subsystemFor(ev.Type),
			FailureMode: failureModeFor(ev),
			ImpactScope: impactScopeFor(ev),
			Severity:    sev,
		}
		key := t.Key()
		existing, ok := topics[key]
		if !ok {
			t.Events = []events.FleetEvent{ev}
			topics[key] = &t
			continue
		}
		existing.Events = append(existing.Events, ev)
	}
	return topics
}

// escalateSystemicFailures bumps every issue-failed topic to severe when two
// or more distinct issues failed in the run: an isolated issue failure is a
// high-severity topic, a pattern across issues is a fleet-wide concern.
func escalateSystemicFailures(topics map[string]*Topic) {
	failedIssues := 0
	for _, t := range topics {
		if t.FailureMode == events.TypeIssueFailed {
			failedIssues++
		}
	}
	if failedIssues < 2 {
		return
	}
	for _, t := range topics {
		if t.FailureMode == events.TypeIssueFailed {
			t.Severity = SeveritySevere
		}
	}
}

func subsystemFor(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "fleet-"), strings.HasPrefix(eventType, "budget-"):
		return "fleet"
	case strings.HasPrefix(eventType, "agent-"), strings.HasPrefix(eventType, "ambiguity-"):
		return "agent"
	case strings.HasPrefix(eventType, "issue-"):
		return "issue-pipeline"
	case strings.HasPrefix(eventType, "task-"):
		return "task-queue"
	case strings.HasPrefix(eventType, "git-"), strings.HasPrefix(eventType, "pr-"):
		return "git"
	default:
		return "fleet"
	}
}

func failureModeFor(ev events.FleetEvent) string {
	if ev.Type == events.TypeAgentFailed {
		if ev.TimedOut {
			return "agent-timeout"
		}
		return "agent-error"
	}
	return ev.Type
}

func impactScopeFor(ev events.FleetEvent) string {
	if ev.IssueNumber == 0 {
		return "fleet"
	}
	return fmt.Sprintf("issue-%d", ev.IssueNumber)
}

func topicTitle(t Topic) string {
	return fmt.Sprintf("[%s] %s in %s (%s, %d signal(s))", strings.ToUpper(string(t.Severity)), t.FailureMode, t.ImpactScope, t.Subsystem, len(t.Events))
}

func topicBody(t Topic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Triage topic `%s`, severity **%s**.\n\n", t.Key(), t.Severity)
	fmt.Fprintf(&b, "%d supporting event(s):\n\n", len(t.Events))
	for _, ev := range t.Events {
		msg := ev.Message
		if msg == "" {
			msg = "(no message)"
		}
		fmt.Fprintf(&b, "- `%s` run=%s issue=%d: %s\n", ev.Type, ev.Workflow, ev.IssueNumber, msg)
	}
	return b.String()
}
