// Package checkpoint persists fleet- and issue-scoped progress records as
// JSON, atomically, so a crashed or interrupted run can resume exactly
// where it left off.
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

// Store owns a single checkpoint file's lifecycle: load, mutate, persist.
// Every mutation goes through Mutate, which serializes access with an
// internal lock and persists synchronously before returning, matching the
// "every state-changing event writes through" durability rule.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a Store backed by path. The directory is created lazily
// on first persist.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the checkpoint file, returning nil if it does not exist yet.
func (s *Store) Load(_ context.Context) (*core.CheckpointState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*core.CheckpointState, error) {
	data, err := fsutil.ReadFileScoped(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, core.ErrCheckpointIO(err)
	}
	var state core.CheckpointState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, core.ErrCheckpointIO(err)
	}
	return &state, nil
}

// Persist writes state atomically and updates lastCheckpoint.
func (s *Store) Persist(_ context.Context, state *core.CheckpointState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(state)
}

func (s *Store) persist(state *core.CheckpointState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return core.ErrCheckpointIO(fmt.Errorf("creating checkpoint directory: %w", err))
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return core.ErrCheckpointIO(fmt.Errorf("marshaling checkpoint: %w", err))
	}
	if err := atomicWriteFile(s.path, data, 0o600); err != nil {
		return core.ErrCheckpointIO(fmt.Errorf("writing checkpoint: %w", err))
	}
	return nil
}

// Mutate loads the current state (creating it via newIfAbsent if no file
// exists yet), applies fn, bumps lastCheckpoint, and persists — all under
// one lock acquisition so concurrent callers never interleave a
// load-mutate-persist cycle.
func (s *Store) Mutate(_ context.Context, newIfAbsent func() *core.CheckpointState, fn func(*core.CheckpointState)) (*core.CheckpointState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = newIfAbsent()
	}

	fn(state)
	state.LastCheckpoint = time.Now()

	if err := s.persist(state); err != nil {
		return nil, err
	}
	return state, nil
}

// GetResumePoint loads the checkpoint (if any) and returns its resume
// point; a missing checkpoint resumes from the analyze phase.
func (s *Store) GetResumePoint(ctx context.Context) (core.ResumePoint, error) {
	state, err := s.Load(ctx)
	if err != nil {
		return core.ResumePoint{}, err
	}
	if state == nil {
		return core.ResumePoint{Phase: core.PhaseAnalyze}, nil
	}
	return state.GetResumePoint(), nil
}
