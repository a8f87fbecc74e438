package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/fsutil"
)

// FleetStore owns the fleet-scoped checkpoint file: one issues map plus
// fleet-total token aggregates.
type FleetStore struct {
	path string
	mu   sync.Mutex
}

// NewFleetStore returns a FleetStore backed by path.
func NewFleetStore(path string) *FleetStore {
	return &FleetStore{path: path}
}

// Path returns the fleet checkpoint file path.
func (s *FleetStore) Path() string {
	return s.path
}

// Load reads the fleet checkpoint file, returning nil if it does not exist
// yet.
func (s *FleetStore) Load(_ context.Context) (*core.FleetCheckpointState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FleetStore) load() (*core.FleetCheckpointState, error) {
	data, err := fsutil.ReadFileScoped(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, core.ErrCheckpointIO(err)
	}
	var state core.FleetCheckpointState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, core.ErrCheckpointIO(err)
	}
	return &state, nil
}

func (s *FleetStore) persist(state *core.FleetCheckpointState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return core.ErrCheckpointIO(fmt.Errorf("creating fleet checkpoint directory: %w", err))
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return core.ErrCheckpointIO(fmt.Errorf("marshaling fleet checkpoint: %w", err))
	}
	if err := atomicWriteFile(s.path, data, 0o600); err != nil {
		return core.ErrCheckpointIO(fmt.Errorf("writing fleet checkpoint: %w", err))
	}
	return nil
}

// Mutate loads the current fleet state (creating one via projectName if no
// file exists yet), applies fn, bumps lastCheckpoint, and persists under
// one lock acquisition.
func (s *FleetStore) Mutate(_ context.Context, projectName string, fn func(*core.FleetCheckpointState)) (*core.FleetCheckpointState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = core.NewFleetCheckpointState(projectName)
	}

	fn(state)
	state.LastCheckpoint = time.Now()

	if err := s.persist(state); err != nil {
		return nil, err
	}
	return state, nil
}

// SetIssueStatus records (or updates) one issue's fleet-level status.
func (s *FleetStore) SetIssueStatus(ctx context.Context, projectName string, issueNumber int, entry core.FleetIssueEntry) (*core.FleetCheckpointState, error) {
	return s.Mutate(ctx, projectName, func(fs *core.FleetCheckpointState) {
		fs.Issues[issueNumber] = &entry
	})
}

// RecordTokens adds delta tokens to the fleet total and to the named
// issue's subtotal. The monotonicity invariant (totals never decrease) is
// preserved because delta is always non-negative in practice; callers must
// not pass negative deltas.
func (s *FleetStore) RecordTokens(ctx context.Context, projectName string, issueNumber int, delta int64) (*core.FleetCheckpointState, error) {
	return s.Mutate(ctx, projectName, func(fs *core.FleetCheckpointState) {
		fs.TokenUsage.Total += delta
		fs.TokenUsage.ByIssue[issueNumber] += delta
		if entry, ok := fs.Issues[issueNumber]; ok {
			entry.Tokens += delta
		}
	})
}
