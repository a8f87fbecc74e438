package phase

import (
	"context"

	"github.com/cadre-run/cadre/internal/budget"
	"github.com/cadre-run/cadre/internal/core"
)

// Gate runs immediately before a phase. A non-nil error aborts the
// pipeline with a gate-fail error, regardless of whether the phase itself
// is critical.
type Gate interface {
	Check(ctx context.Context, pc *Context, phase core.Phase) error
}

// BudgetGate refuses to start a phase once this issue's per-issue token
// budget is exceeded. It never blocks on a mere warning.
type BudgetGate struct{}

// Check implements Gate.
func (BudgetGate) Check(_ context.Context, pc *Context, phase core.Phase) error {
	if pc.CheckBudget() == budget.StatusExceeded {
		return core.ErrGateFailed(phase, "issue token budget exceeded")
	}
	return nil
}
