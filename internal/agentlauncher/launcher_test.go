package agentlauncher

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cadre-run/cadre/internal/core"
	"github.com/cadre-run/cadre/internal/supervisor"
)

func TestCopilotBackend_BuildArgs(t *testing.T) {
	b := &CopilotBackend{Model: "gpt-5"}
	args := b.BuildArgs(core.AgentInvocation{Agent: "reviewer"}, "do the thing")
	want := []string{"--agent", "reviewer", "-p", "do the thing", "--allow-all-tools", "--allow-all-paths", "--no-ask-user", "-s", "--model", "gpt-5"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestCopilotBackend_DetectSuccess(t *testing.T) {
	b := &CopilotBackend{}
	cases := []struct {
		res  supervisor.Result
		want bool
	}{
		{supervisor.Result{ExitCode: 0}, true},
		{supervisor.Result{ExitCode: 1}, false},
		{supervisor.Result{ExitCode: 0, TimedOut: true}, false},
		{supervisor.Result{ExitCode: 0, Stderr: "No such agent: foo"}, false},
		{supervisor.Result{ExitCode: 0, Stderr: "error: option '--foo' unknown option"}, false},
	}
	for _, c := range cases {
		if got := b.DetectSuccess(&c.res); got != c.want {
			t.Errorf("DetectSuccess(%+v) = %v, want %v", c.res, got, c.want)
		}
	}
}

func TestClaudeBackend_BuildArgs(t *testing.T) {
	b := &ClaudeBackend{Model: "claude-sonnet-4"}
	args := b.BuildArgs(core.AgentInvocation{Agent: "implementer"}, "fix the bug")
	want := []string{"-p", "fix the bug", "--allowedTools", claudeAllowedTools, "--output-format", "json", "--model", "claude-sonnet-4"}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestParseTokenUsage_JSON(t *testing.T) {
	stdout := `{"usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":10,"cache_creation_input_tokens":5}}`
	u := parseTokenUsage(stdout, "")
	if u.Total != 165 || u.Input != 100 || u.Output != 50 {
		t.Errorf("parseTokenUsage = %+v", u)
	}
}

func TestParseTokenUsage_Regex(t *testing.T) {
	u := parseTokenUsage("some noise", "total tokens: 1,234 used")
	if u.Total != 1234 {
		t.Errorf("Total = %d, want 1234", u.Total)
	}
}

func TestParseTokenUsage_Zero(t *testing.T) {
	u := parseTokenUsage("nothing useful", "still nothing")
	if u.Total != 0 {
		t.Errorf("Total = %d, want 0", u.Total)
	}
}

func TestLaunch_ReadsPromptFileAndReportsResult(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("echo-based test is unix-only")
	}
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(promptPath, []byte("hello agent"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(&ClaudeBackend{}, Config{Path: "/bin/echo"}, nil)
	res, err := l.Launch(context.Background(), core.AgentInvocation{
		Agent:       "claude",
		IssueNumber: 7,
		Phase:       core.PhaseImplement,
		ContextPath: promptPath,
	})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if !res.Success {
		t.Errorf("Success = false, want true (stderr=%q)", res.Stderr)
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	if _, err := NewBackend("nonsense", ""); err == nil {
		t.Fatal("expected error for unknown backend kind")
	}
}

func TestCheckAvailability(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("--version probing assumes a unix CLI shape")
	}

	claude := &ClaudeBackend{}
	if err := claude.CheckAvailability(""); err == nil {
		t.Error("CheckAvailability(\"\") = nil, want error for unconfigured path")
	}
	if err := claude.CheckAvailability("/bin/echo"); err != nil {
		t.Errorf("CheckAvailability(/bin/echo) = %v, want nil", err)
	}
	if err := claude.CheckAvailability("this_command_definitely_does_not_exist_xyz"); err == nil {
		t.Error("CheckAvailability(missing command) = nil, want error")
	}

	copilot := &CopilotBackend{}
	if err := copilot.CheckAvailability("/bin/echo"); err != nil {
		t.Errorf("CheckAvailability(/bin/echo) = %v, want nil", err)
	}
}
