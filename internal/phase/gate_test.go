package phase

import (
	"context"
	"testing"

	"github.com/cadre-run/cadre/internal/budget"
	"github.com/cadre-run/cadre/internal/core"
)

func TestBudgetGate_Check(t *testing.T) {
	tests := []struct {
		name    string
		spend   int64
		limit   int64
		wantErr bool
	}{
		{"no limit set always ok", 1_000_000, 0, false},
		{"under threshold", 10, 100, false},
		{"at warning threshold still passes", 85, 100, false},
		{"at limit fails", 100, 100, true},
		{"over limit fails", 150, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := newTestContext(t)
			tracker := budget.NewTracker()
			tracker.Record("claude", pc.Issue.Number, string(core.PhaseAnalyze), tt.spend)
			pc.Tracker = tracker
			pc.Guard = budget.NewGuard(tracker, 0, tt.limit)

			err := BudgetGate{}.Check(context.Background(), pc, core.PhaseImplement)
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
