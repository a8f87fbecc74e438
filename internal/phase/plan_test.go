package phase

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/cadre-run/cadre/internal/core"
)

func TestPlanExecutor_Execute_ReadsPriorAnalysisOutput(t *testing.T) {
	pc := newTestContext(t)
	pc.PriorOutputs[core.PhaseAnalyze] = "/tmp/issue-42/outputs/analysis.md"

	out, err := PlanExecutor{}.Execute(context.Background(), pc)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasSuffix(out, "plan.md") {
		t.Errorf("out = %q, want suffix plan.md", out)
	}

	data, err := os.ReadFile(pc.ProgressDir + "/contexts/plan.json")
	if err != nil {
		t.Fatalf("reading written context: %v", err)
	}
	if !strings.Contains(string(data), "analysis.md") {
		t.Errorf("context payload = %s, want analysisPath carried through", data)
	}
}
