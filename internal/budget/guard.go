package budget

import "sync"

// Guard checks fleet-total and per-issue spend against configured limits,
// and latches once the fleet-total limit is exceeded so that subsequent
// pending issues can be short-circuited without re-checking.
type Guard struct {
	tracker       *Tracker
	fleetLimit    int64
	perIssueLimit int64

	mu      sync.Mutex
	latched bool
}

// NewGuard creates a Guard reading spend from tracker, checked against
// fleetLimit (total across all issues) and perIssueLimit (per issue). A
// limit of 0 means "no budget set".
func NewGuard(tracker *Tracker, fleetLimit, perIssueLimit int64) *Guard {
	return &Guard{tracker: tracker, fleetLimit: fleetLimit, perIssueLimit: perIssueLimit}
}

// CheckFleet reports the fleet-total status, latching once it reaches
// StatusExceeded. Once latched, CheckFleet always returns StatusExceeded
// regardless of subsequent spend.
func (g *Guard) CheckFleet() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.latched {
		return StatusExceeded
	}
	status := Check(g.tracker.Total(), g.fleetLimit)
	if status == StatusExceeded {
		g.latched = true
	}
	return status
}

// FleetExceeded reports whether the fleet-total latch has tripped.
func (g *Guard) FleetExceeded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latched
}

// CheckIssue reports one issue's status against the per-issue limit,
// independent of the fleet-wide latch.
func (g *Guard) CheckIssue(issueNumber int) Status {
	return Check(g.tracker.ByIssue(issueNumber), g.perIssueLimit)
}
