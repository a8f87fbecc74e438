package phase

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestAnalyzeExecutor_Execute_WritesContextAndOutput(t *testing.T) {
	pc := newTestContext(t)
	pc.Issue.Labels = []string{"bug", "priority-high"}

	out, err := AnalyzeExecutor{}.Execute(context.Background(), pc)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasSuffix(out, "analysis.md") {
		t.Errorf("out = %q, want suffix analysis.md", out)
	}

	contextPath := pc.ProgressDir + "/contexts/analyze.json"
	data, err := os.ReadFile(contextPath)
	if err != nil {
		t.Fatalf("reading written context: %v", err)
	}
	if !strings.Contains(string(data), "priority-high") {
		t.Errorf("context payload = %s, want issue labels present", data)
	}

	// /bin/echo's stdout is not agent token-usage JSON, so no tokens are
	// recorded — the happy path stays silent rather than recording noise.
	if got := pc.Tracker.ByIssue(pc.Issue.Number); got != 0 {
		t.Errorf("ByIssue() = %d, want 0", got)
	}
}
