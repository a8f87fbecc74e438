// Package supervisor runs external processes in their own process group so
// that the whole tree can be terminated as a unit, and implements the
// SIGTERM-then-SIGKILL escalation used to tear down a fleet run cleanly.
package supervisor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/cadre-run/cadre/internal/core"
)

// GracePeriod is how long a supervised process gets to exit cleanly after
// SIGTERM before it is escalated to SIGKILL.
const GracePeriod = 5 * time.Second

// LineCallback is invoked for each line of stderr as it streams, before the
// process has finished.
type LineCallback func(line string)

// Spec describes a single process to run.
type Spec struct {
	Path string
	Args []string
	Dir  string
	// Env is the child's full environment. If nil, the child inherits
	// os.Environ() unmodified.
	Env     []string
	Stdin   string
	Timeout time.Duration // 0 means no extra deadline beyond ctx
}

// Result is what a finished process produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Signal   string
	TimedOut bool
	Duration time.Duration
}

// Supervisor spawns and tracks child processes so they can be signaled as a
// group and swept on shutdown.
type Supervisor struct {
	mu       sync.Mutex
	tracked  map[int]*exec.Cmd
	callback LineCallback
}

// New creates a Supervisor with no children tracked yet.
func New() *Supervisor {
	return &Supervisor{tracked: make(map[int]*exec.Cmd)}
}

// SetLineCallback sets a callback invoked for every stderr line of every
// process this Supervisor runs.
func (s *Supervisor) SetLineCallback(cb LineCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = cb
}

// Run launches spec, waits for it to finish or for ctx to be cancelled, and
// returns the collected result. On ctx cancellation it calls Terminate on
// the process group and reports TimedOut/Signal accordingly.
func (s *Supervisor) Run(ctx context.Context, spec Spec) (*Result, error) {
	if spec.Path == "" {
		return nil, core.ErrValidation("NO_PATH", "supervisor: spec.Path is required")
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	// #nosec G204 -- path/args are supplied by internal callers, never raw user input
	cmd := exec.Command(spec.Path, spec.Args...)
	configureProcAttr(cmd)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if spec.Stdin != "" {
		cmd.Stdin = strings.NewReader(spec.Stdin)
	}
	if spec.Env != nil {
		cmd.Env = spec.Env
	} else {
		cmd.Env = os.Environ()
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout

	s.mu.Lock()
	cb := s.callback
	s.mu.Unlock()

	var stderrPipe io.ReadCloser
	var wg sync.WaitGroup
	if cb != nil {
		pipe, err := cmd.StderrPipe()
		if err == nil {
			stderrPipe = pipe
		} else {
			cmd.Stderr = &stderr
		}
	} else {
		cmd.Stderr = &stderr
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if stderrPipe != nil {
			_ = stderrPipe.Close()
		}
		return nil, fmt.Errorf("supervisor: starting %s: %w", spec.Path, err)
	}

	s.track(cmd)
	defer s.untrack(cmd)

	if stderrPipe != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			streamLines(stderrPipe, &stderr, cb)
		}()
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitDone:
	case <-runCtx.Done():
		_ = s.gracefulKill(cmd, GracePeriod)
		waitErr = <-waitDone
	}
	wg.Wait()

	duration := time.Since(start)
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String(), Duration: duration}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		return result, nil
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			if status, ok := exitErr.Sys().(interface{ Signaled() bool }); ok && status.Signaled() {
				result.Signal = exitErr.Error()
			}
			return result, nil
		}
		return result, fmt.Errorf("supervisor: waiting on %s: %w", spec.Path, waitErr)
	}
	return result, nil
}

// Terminate gracefully kills every process currently tracked by this
// Supervisor, used on fleet shutdown to sweep straggling children.
func (s *Supervisor) Terminate(grace time.Duration) {
	s.mu.Lock()
	cmds := make([]*exec.Cmd, 0, len(s.tracked))
	for _, c := range s.tracked {
		cmds = append(cmds, c)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range cmds {
		wg.Add(1)
		go func(c *exec.Cmd) {
			defer wg.Done()
			_ = s.gracefulKill(c, grace)
		}(c)
	}
	wg.Wait()
}

func (s *Supervisor) track(cmd *exec.Cmd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked[cmd.Process.Pid] = cmd
}

func (s *Supervisor) untrack(cmd *exec.Cmd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, cmd.Process.Pid)
}

func streamLines(pipe io.ReadCloser, buf *bytes.Buffer, cb LineCallback) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteString("\n")
		if cb != nil {
			cb(line)
		}
	}
}
