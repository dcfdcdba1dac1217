package runlog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpenCreatesDatabase(t *testing.T) {
	root := t.TempDir()
	l, err := Open(root)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(filepath.Join(root, "ai", "runs", FileName)); err != nil {
		t.Errorf("ledger file not created: %v", err)
	}

	// Reopening runs migrations again without error.
	l2, err := Open(root)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	l2.Close()
}

func TestStartFinish(t *testing.T) {
	l := openTestLedger(t)
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := base
	l.now = func() time.Time { return clock }

	ok, err := l.Start("research", "fix-login", "codex")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if ok.ID == "" || ok.Status != StatusRunning {
		t.Fatalf("unexpected run %+v", ok)
	}

	clock = base.Add(2 * time.Second)
	if err := l.Finish(ok.ID, "ai/research/fix-login-research.md", nil); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	clock = base.Add(time.Minute)
	bad, err := l.Start("impl-plan", "fix-login", "codex")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	clock = base.Add(time.Minute + time.Second)
	if err := l.Finish(bad.ID, "", errors.New("codex exited with code 1")); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	runs, err := l.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("List() returned %d runs, want 2", len(runs))
	}

	newest := runs[0]
	if newest.ID != bad.ID || newest.Status != StatusFailed || newest.Error != "codex exited with code 1" {
		t.Errorf("newest run = %+v", newest)
	}
	oldest := runs[1]
	if oldest.Status != StatusSucceeded || oldest.OutputPath != "ai/research/fix-login-research.md" {
		t.Errorf("oldest run = %+v", oldest)
	}
	if oldest.Duration() != 2*time.Second {
		t.Errorf("Duration() = %v, want 2s", oldest.Duration())
	}

	limited, err := l.List(1)
	if err != nil {
		t.Fatalf("List(1) error = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != bad.ID {
		t.Errorf("List(1) = %+v", limited)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	l := openTestLedger(t)
	err := l.Finish("missing", "", nil)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListEmpty(t *testing.T) {
	l := openTestLedger(t)
	runs, err := l.List(10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("List() = %#v, want empty slice", runs)
	}
}
