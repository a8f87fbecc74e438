//go:build windows

package supervisor

import (
	"os/exec"
	"time"
)

// configureProcAttr is a no-op on Windows; process groups aren't available.
func configureProcAttr(_ *exec.Cmd) {}

// gracefulKill falls back to Process.Kill() on Windows.
func (s *Supervisor) gracefulKill(cmd *exec.Cmd, _ time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
