package hooks

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func installHook(t *testing.T, dir, event, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell hooks not supported on windows")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, event), []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestRunPassesEnvironment(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "ai", "hooks")
	out := filepath.Join(root, "out.txt")
	installHook(t, dir, EventTaskCreated,
		`echo "$VAULT_EVENT|$TASK_SLUG|$VAULT_NOTE_PATH|$VAULT_MESSAGE|$VAULT_TIMESTAMP|$VAULT_ROOT" > "`+out+`"`)

	r := New(root, dir, nil)
	r.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	r.Run(context.Background(), EventTaskCreated, Payload{
		TaskSlug: "fix-login",
		NotePath: "ai/backlog/fix-login.md",
		Message:  "created",
	})

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("hook did not run: %v", err)
	}
	want := "task.created|fix-login|ai/backlog/fix-login.md|created|2025-03-04T05:06:07Z|" + root
	if got := strings.TrimSpace(string(data)); got != want {
		t.Errorf("hook env = %q, want %q", got, want)
	}
}

func TestRunMissingHookIsNoop(t *testing.T) {
	root := t.TempDir()
	r := New(root, filepath.Join(root, "ai", "hooks"), nil)
	r.Run(context.Background(), EventPlanCompleted, Payload{TaskSlug: "x"})

	var nilRunner *Runner
	nilRunner.Run(context.Background(), EventPlanCompleted, Payload{TaskSlug: "x"})
}

func TestRunFailureIsSwallowed(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "hooks")
	installHook(t, dir, EventAgentFailed, "exit 7")

	r := New(root, dir, nil)
	r.Run(context.Background(), EventAgentFailed, Payload{TaskSlug: "x", Message: "boom"})
}

func TestRunTimeout(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "hooks")
	installHook(t, dir, EventTaskStatus, "sleep 5")

	r := New(root, dir, nil)
	r.timeout = 100 * time.Millisecond
	start := time.Now()
	r.Run(context.Background(), EventTaskStatus, Payload{TaskSlug: "x"})
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("hook ran for %v, expected timeout", elapsed)
	}
}
