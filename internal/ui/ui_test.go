package ui

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func noTerminal(t *testing.T) {
	t.Helper()
	orig := isTerminal
	isTerminal = func(*os.File) bool { return false }
	t.Cleanup(func() { isTerminal = orig })
}

func TestPrompterNonInteractive(t *testing.T) {
	noTerminal(t)
	p := NewPrompter(nil)

	if p.AskYesNo("Create task?") {
		t.Error("AskYesNo() = true without a terminal")
	}

	got, err := p.AskFields([]string{"Goal", "Constraints / Risks"})
	if err != nil {
		t.Fatalf("AskFields() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("AskFields() = %#v, want empty map", got)
	}
}

func TestRunWithSpinnerWithoutTerminal(t *testing.T) {
	noTerminal(t)
	calls := 0
	got, err := RunWithSpinner("working", func() (string, error) {
		calls++
		return "out", nil
	})
	if err != nil || got != "out" || calls != 1 {
		t.Errorf("RunWithSpinner() = %q, %v (calls=%d)", got, err, calls)
	}

	wantErr := errors.New("boom")
	_, err = RunWithSpinner("working", func() (int, error) { return 0, wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("RunWithSpinner() error = %v, want %v", err, wantErr)
	}
}

func TestSpinnerModel(t *testing.T) {
	m := newSpinnerModel("Running codex")
	if !strings.Contains(m.View(), "Running codex") {
		t.Errorf("View() = %q", m.View())
	}

	next, cmd := m.Update(spinnerDoneMsg{})
	if cmd == nil {
		t.Error("expected quit command after done")
	}
	if v := next.View(); v != "" {
		t.Errorf("View() after done = %q", v)
	}

	before := m.View()
	next, cmd = m.Update(m.spinner.Tick())
	if cmd == nil {
		t.Error("expected next tick command")
	}
	if next.View() == before {
		t.Errorf("View() did not advance after tick: %q", before)
	}
}

func TestStatusStyle(t *testing.T) {
	if StatusStyle("done").Render("x") == "" {
		t.Error("empty render")
	}
	if !strings.Contains(Check("saved"), "saved") {
		t.Error("Check() dropped message")
	}
	if !strings.Contains(Cross("failed"), "failed") {
		t.Error("Cross() dropped message")
	}
}

func TestRenderMarkdownPassthrough(t *testing.T) {
	noTerminal(t)
	md := "# Title\n\nbody\n"
	if got := RenderMarkdown(md, 80); got != md {
		t.Errorf("RenderMarkdown() = %q, want passthrough without a terminal", got)
	}
}
