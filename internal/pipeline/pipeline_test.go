package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bborn/codex-vault/internal/executor"
	"github.com/bborn/codex-vault/internal/notes"
	"github.com/bborn/codex-vault/internal/prompt"
	"github.com/bborn/codex-vault/internal/runlog"
	"github.com/bborn/codex-vault/internal/vault"
)

type call struct {
	workDir string
	task    string
}

// stubRunner returns outputs in order and records each call.
type stubRunner struct {
	mu      sync.Mutex
	outputs []string
	errs    []error
	calls   []call
	block   bool
}

func (s *stubRunner) Name() string      { return "stub" }
func (s *stubRunner) IsAvailable() bool { return true }

func (s *stubRunner) Run(ctx context.Context, workDir, task string) (string, error) {
	s.mu.Lock()
	i := len(s.calls)
	s.calls = append(s.calls, call{workDir: workDir, task: task})
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return "", errors.Join(executor.ErrFailed, ctx.Err())
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.outputs) {
		return s.outputs[i], nil
	}
	return "", nil
}

func newVault(t *testing.T) *vault.Vault {
	t.Helper()
	root := t.TempDir()
	if _, err := vault.Init(root, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return vault.New(root)
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRun(t *testing.T) {
	v := newVault(t)
	runner := &stubRunner{outputs: []string{"# Research\nfindings", "# Plan\nsteps"}}
	ledger, err := runlog.Open(v.Root)
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()

	p := New(notes.NewStore(v), runner, WithLedger(ledger))
	res, err := p.Run(context.Background(), "kpi-dashboard", "Weekly KPIs")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := read(t, res.ResearchPath); got != "# Research\nfindings\n" {
		t.Errorf("research note = %q", got)
	}
	if got := read(t, res.PlanPath); got != "# Plan\nsteps\n" {
		t.Errorf("plan note = %q", got)
	}
	if res.PlanPath != v.OutputPath(vault.KindImplPlan, "kpi-dashboard") {
		t.Errorf("PlanPath = %q", res.PlanPath)
	}

	if len(runner.calls) != 2 {
		t.Fatalf("executor called %d times, want 2", len(runner.calls))
	}
	if runner.calls[0].workDir != v.Root {
		t.Errorf("workDir = %q, want vault root", runner.calls[0].workDir)
	}
	if strings.Contains(runner.calls[0].task, "REQUESTED_OUTPUT: plan") {
		t.Error("research prompt requested a plan")
	}
	if !strings.Contains(runner.calls[1].task, "REQUESTED_OUTPUT: plan") {
		t.Error("plan prompt missing REQUESTED_OUTPUT")
	}
	if !strings.Contains(runner.calls[1].task, "# Research\nfindings") {
		t.Error("plan prompt does not include the research note")
	}

	runs, err := ledger.List(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("ledger has %d runs, want 2", len(runs))
	}
	for _, r := range runs {
		if r.Status != runlog.StatusSucceeded || r.Executor != "stub" {
			t.Errorf("run = %+v", r)
		}
	}
}

func TestRunResearchFailureStops(t *testing.T) {
	v := newVault(t)
	runner := &stubRunner{errs: []error{&executor.ExitError{Executor: "stub", Code: 1}}}
	ledger, err := runlog.Open(v.Root)
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()

	p := New(notes.NewStore(v), runner, WithLedger(ledger))
	_, err = p.Run(context.Background(), "kpi-dashboard", "")
	if !errors.Is(err, executor.ErrFailed) {
		t.Fatalf("error = %v, want ErrFailed", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("executor called %d times, want 1", len(runner.calls))
	}
	for _, k := range []vault.Kind{vault.KindResearch, vault.KindImplPlan} {
		if _, err := os.Stat(v.OutputPath(k, "kpi-dashboard")); !os.IsNotExist(err) {
			t.Errorf("%s note exists after failure", k)
		}
	}

	runs, _ := ledger.List(0)
	if len(runs) != 1 || runs[0].Status != runlog.StatusFailed {
		t.Errorf("runs = %+v, want one failed run", runs)
	}
}

func TestRunPlanFailureKeepsResearch(t *testing.T) {
	v := newVault(t)
	runner := &stubRunner{
		outputs: []string{"# Research"},
		errs:    []error{nil, executor.ErrFailed},
	}
	p := New(notes.NewStore(v), runner)

	res, err := p.Run(context.Background(), "kpi-dashboard", "")
	if !errors.Is(err, executor.ErrFailed) {
		t.Fatalf("error = %v, want ErrFailed", err)
	}
	if res.ResearchPath == "" || read(t, res.ResearchPath) != "# Research\n" {
		t.Errorf("research note not kept: %+v", res)
	}
	if res.PlanPath != "" {
		t.Errorf("PlanPath = %q, want empty", res.PlanPath)
	}
}

func TestImplPlanRequiresResearch(t *testing.T) {
	v := newVault(t)
	runner := &stubRunner{}
	p := New(notes.NewStore(v), runner)

	_, err := p.ImplPlan(context.Background(), "kpi-dashboard", "")
	if !errors.Is(err, notes.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	var missing *notes.MissingNoteError
	if !errors.As(err, &missing) || missing.Path != "ai/research/kpi-dashboard-research.md" {
		t.Errorf("error = %#v", err)
	}
	if len(runner.calls) != 0 {
		t.Error("executor called without research note")
	}
}

func TestResearchMissingTemplate(t *testing.T) {
	v := newVault(t)
	if err := os.Remove(v.AgentPromptPath(vault.KindResearch)); err != nil {
		t.Fatal(err)
	}
	runner := &stubRunner{}
	p := New(notes.NewStore(v), runner)

	_, err := p.Research(context.Background(), "kpi-dashboard", "")
	if !errors.Is(err, prompt.ErrMissingTemplate) {
		t.Fatalf("error = %v, want ErrMissingTemplate", err)
	}
	if len(runner.calls) != 0 {
		t.Error("executor called without template")
	}
}

func TestResearchTimeout(t *testing.T) {
	v := newVault(t)
	runner := &stubRunner{block: true}
	p := New(notes.NewStore(v), runner, WithTimeout(50*time.Millisecond))

	_, err := p.Research(context.Background(), "kpi-dashboard", "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want DeadlineExceeded", err)
	}
}

type failingLedger struct{}

func (failingLedger) Start(string, string, string) (runlog.Run, error) {
	return runlog.Run{}, errors.New("disk full")
}
func (failingLedger) Finish(string, string, error) error { return errors.New("disk full") }

func TestLedgerFailureIsNotFatal(t *testing.T) {
	v := newVault(t)
	p := New(notes.NewStore(v), &stubRunner{outputs: []string{"# Research"}}, WithLedger(failingLedger{}))

	if _, err := p.Research(context.Background(), "kpi-dashboard", ""); err != nil {
		t.Fatalf("Research() error = %v", err)
	}
}

func TestProgressWrapper(t *testing.T) {
	v := newVault(t)
	var titles []string
	wrap := func(title string, fn func() (string, error)) (string, error) {
		titles = append(titles, title)
		return fn()
	}
	p := New(notes.NewStore(v), &stubRunner{outputs: []string{"# Research"}}, WithProgress(wrap))

	if _, err := p.Research(context.Background(), "kpi-dashboard", ""); err != nil {
		t.Fatal(err)
	}
	if len(titles) != 1 || !strings.Contains(titles[0], "research") {
		t.Errorf("titles = %v", titles)
	}
}
