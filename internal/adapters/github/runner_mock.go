package github

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockRunner is a CommandRunner stub for testing gh-CLI-backed code without
// shelling out. Responses are registered by a substring of the invoked
// command; the first registered match wins.
type MockRunner struct {
	mu        sync.Mutex
	responses []mockResponse
	calls     []string
}

type mockResponse struct {
	match  string
	output string
	err    error
}

// NewMockRunner returns an empty MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// MockExpectation configures the output or error for commands matching a
// registered substring.
type MockExpectation struct {
	runner *MockRunner
	match  string
}

// OnCommand registers an expectation for commands whose "name arg1 arg2 ..."
// string contains match.
func (m *MockRunner) OnCommand(match string) *MockExpectation {
	return &MockExpectation{runner: m, match: match}
}

// Return registers output to return for the matched command.
func (e *MockExpectation) Return(output string) {
	e.runner.mu.Lock()
	defer e.runner.mu.Unlock()
	e.runner.responses = append(e.runner.responses, mockResponse{match: e.match, output: output})
}

// ReturnError registers an error to return for the matched command.
func (e *MockExpectation) ReturnError(err error) {
	e.runner.mu.Lock()
	defer e.runner.mu.Unlock()
	e.runner.responses = append(e.runner.responses, mockResponse{match: e.match, err: err})
}

// Run implements CommandRunner, recording the call and returning the first
// registered response whose match substring appears in the full command.
func (m *MockRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	full := strings.TrimSpace(name + " " + strings.Join(args, " "))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, full)

	for _, r := range m.responses {
		if strings.Contains(full, r.match) {
			if r.err != nil {
				return "", r.err
			}
			return r.output, nil
		}
	}
	return "", fmt.Errorf("mock runner: no response registered for %q", full)
}

// CallCount returns how many recorded calls contain match as a substring.
func (m *MockRunner) CallCount(match string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if strings.Contains(c, match) {
			n++
		}
	}
	return n
}
