package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeScript creates an executable shell script standing in for an agent CLI.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-agent")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestCodexRunnerPassesArgs(t *testing.T) {
	script := writeScript(t, `printf '  %s|%s|%s|%s  \n' "$1" "$2" "$3" "$(pwd)"`)
	workDir := t.TempDir()

	r := NewCodexRunner(WithBinary(script))
	out, err := r.Run(context.Background(), workDir, "do the thing")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	parts := strings.Split(out, "|")
	if len(parts) != 4 {
		t.Fatalf("unexpected output %q", out)
	}
	if parts[0] != "exec" || parts[1] != "--skip-git-repo-check" || parts[2] != "do the thing" {
		t.Errorf("args = %q", parts[:3])
	}
	wantDir, _ := filepath.EvalSymlinks(workDir)
	gotDir, _ := filepath.EvalSymlinks(parts[3])
	if gotDir != wantDir {
		t.Errorf("workdir = %q, want %q", gotDir, wantDir)
	}
}

func TestClaudeRunnerPassesArgs(t *testing.T) {
	script := writeScript(t, `echo "$1 $2"`)

	r := NewClaudeRunner(WithBinary(script))
	out, err := r.Run(context.Background(), t.TempDir(), "hello")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "-p hello" {
		t.Errorf("output = %q, want %q", out, "-p hello")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	script := writeScript(t, `echo "boom" >&2; exit 3`)

	r := NewCodexRunner(WithBinary(script))
	_, err := r.Run(context.Background(), t.TempDir(), "task")
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("Code = %d, want 3", exitErr.Code)
	}
	if exitErr.Stderr != "boom" {
		t.Errorf("Stderr = %q, want %q", exitErr.Stderr, "boom")
	}
}

func TestRunMissingBinary(t *testing.T) {
	r := NewCodexRunner(WithBinary(filepath.Join(t.TempDir(), "does-not-exist")))
	if r.IsAvailable() {
		t.Error("IsAvailable() = true for missing binary")
	}
	_, err := r.Run(context.Background(), t.TempDir(), "task")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRunTimeout(t *testing.T) {
	script := writeScript(t, `sleep 5`)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	r := NewCodexRunner(WithBinary(script))
	_, err := r.Run(ctx, t.TempDir(), "task")
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded in chain, got %v", err)
	}
}

// expiredContext reports an expired deadline without ever closing Done, as
// seen when a deadline passes just after the process has exited cleanly.
type expiredContext struct{ context.Context }

func (expiredContext) Err() error { return context.DeadlineExceeded }

func TestRunSuccessAtDeadline(t *testing.T) {
	script := writeScript(t, `echo done`)

	r := NewCodexRunner(WithBinary(script))
	out, err := r.Run(expiredContext{context.Background()}, t.TempDir(), "task")
	if err != nil {
		t.Fatalf("Run() error = %v, want output of the finished run", err)
	}
	if out != "done" {
		t.Errorf("output = %q, want %q", out, "done")
	}
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 5}
	n, err := b.Write([]byte("abc"))
	if n != 3 || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	n, err = b.Write([]byte("defgh"))
	if n != 5 || err != nil {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if b.String() != "abcde" {
		t.Errorf("buffer = %q, want %q", b.String(), "abcde")
	}
	if !b.overflow {
		t.Error("overflow not recorded")
	}
}

type stubRunner struct {
	name      string
	available bool
}

func (s stubRunner) Name() string      { return s.name }
func (s stubRunner) IsAvailable() bool { return s.available }
func (s stubRunner) Run(context.Context, string, string) (string, error) {
	return "", nil
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(stubRunner{name: "codex", available: true})
	reg.Register(stubRunner{name: "claude"})

	if got := reg.Get(""); got == nil || got.Name() != "codex" {
		t.Errorf("Get(\"\") = %v, want codex", got)
	}
	if got := reg.Get("gemini"); got != nil {
		t.Errorf("Get(gemini) = %v, want nil", got)
	}

	r, ok := reg.Resolve("claude")
	if !ok || r.Name() != "claude" {
		t.Errorf("Resolve(claude) = %v, %v", r, ok)
	}
	r, ok = reg.Resolve("gemini")
	if ok || r.Name() != "codex" {
		t.Errorf("Resolve(gemini) = %v, %v; want codex fallback", r, ok)
	}

	if got := strings.Join(reg.Names(), ","); got != "claude,codex" {
		t.Errorf("Names() = %q", got)
	}
	if got := strings.Join(reg.Available(), ","); got != "codex" {
		t.Errorf("Available() = %q", got)
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry(nil)
	if got := strings.Join(reg.Names(), ","); got != "claude,codex" {
		t.Errorf("Names() = %q", got)
	}
}
