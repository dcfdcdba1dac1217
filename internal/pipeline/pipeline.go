// Package pipeline runs the research and implementation-plan agents for a
// backlog task and stores their output in the vault.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bborn/codex-vault/internal/executor"
	"github.com/bborn/codex-vault/internal/hooks"
	"github.com/bborn/codex-vault/internal/notes"
	"github.com/bborn/codex-vault/internal/prompt"
	"github.com/bborn/codex-vault/internal/runlog"
	"github.com/bborn/codex-vault/internal/vault"
)

// Result holds the notes written by a full pipeline run.
type Result struct {
	ResearchPath string
	PlanPath     string
}

// Ledger records executor runs.
type Ledger interface {
	Start(kind, taskSlug, executor string) (runlog.Run, error)
	Finish(id, outputPath string, runErr error) error
}

// Pipeline sequences prompt assembly, the executor and note persistence.
type Pipeline struct {
	store     *notes.Store
	assembler *prompt.Assembler
	runner    executor.Runner
	ledger    Ledger
	hooks     *hooks.Runner
	timeout   time.Duration
	wrap      func(title string, fn func() (string, error)) (string, error)
	logger    *log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLedger records every executor call in l.
func WithLedger(l Ledger) Option {
	return func(p *Pipeline) {
		p.ledger = l
	}
}

// WithHooks fires vault hooks when agents finish or fail.
func WithHooks(h *hooks.Runner) Option {
	return func(p *Pipeline) {
		p.hooks = h
	}
}

// WithTimeout bounds each executor call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// WithProgress wraps each executor call, typically to show a spinner.
func WithProgress(wrap func(title string, fn func() (string, error)) (string, error)) Option {
	return func(p *Pipeline) {
		p.wrap = wrap
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pipeline for the vault behind store, using runner as executor.
func New(store *notes.Store, runner executor.Runner, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		assembler: prompt.NewAssembler(store.Vault()),
		runner:    runner,
		logger:    log.NewWithOptions(io.Discard, log.Options{Prefix: "pipeline"}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Research runs the research agent and writes ai/research/<slug>-research.md.
func (p *Pipeline) Research(ctx context.Context, taskSlug, description string) (string, error) {
	return p.runAgent(ctx, vault.KindResearch, taskSlug, description)
}

// ImplPlan runs the implementation-plan agent and writes ai/plans/<slug>-plan.md.
// The research note must already exist.
func (p *Pipeline) ImplPlan(ctx context.Context, taskSlug, description string) (string, error) {
	researchPath := p.store.Vault().OutputPath(vault.KindResearch, taskSlug)
	if _, err := os.Stat(researchPath); err != nil {
		return "", &notes.MissingNoteError{
			Slug: taskSlug,
			Path: vault.OutputRel(vault.KindResearch, taskSlug),
			Hint: fmt.Sprintf("run `codex-vault research %s` first", taskSlug),
		}
	}
	return p.runAgent(ctx, vault.KindImplPlan, taskSlug, description)
}

// Run executes research then the implementation plan, stopping at the first
// failure. A research note written before a plan failure is kept.
func (p *Pipeline) Run(ctx context.Context, taskSlug, description string) (Result, error) {
	var res Result
	var err error
	if res.ResearchPath, err = p.Research(ctx, taskSlug, description); err != nil {
		return res, err
	}
	if res.PlanPath, err = p.ImplPlan(ctx, taskSlug, description); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Pipeline) runAgent(ctx context.Context, kind vault.Kind, taskSlug, description string) (string, error) {
	task, err := p.assembler.Assemble(kind, taskSlug, description)
	if err != nil {
		return "", err
	}

	runID := p.startRun(kind, taskSlug)
	output, err := p.execute(ctx, kind, taskSlug, task)
	if err != nil {
		p.finishRun(runID, "", err)
		p.fire(ctx, hooks.EventAgentFailed, taskSlug, "", fmt.Sprintf("%s: %v", kind, err))
		return "", fmt.Errorf("%s agent for %s: %w", kind, taskSlug, err)
	}

	path, err := p.store.PersistAgentOutput(kind, taskSlug, output)
	if err != nil {
		p.finishRun(runID, "", err)
		return "", err
	}
	rel := vault.OutputRel(kind, taskSlug)
	p.finishRun(runID, rel, nil)
	p.logger.Info("Agent output saved", "kind", kind, "slug", taskSlug, "path", rel)

	event := hooks.EventResearchCompleted
	if kind == vault.KindImplPlan {
		event = hooks.EventPlanCompleted
	}
	p.fire(ctx, event, taskSlug, rel, string(kind))
	return path, nil
}

func (p *Pipeline) execute(ctx context.Context, kind vault.Kind, taskSlug, task string) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	call := func() (string, error) {
		return p.runner.Run(ctx, p.store.Vault().Root, task)
	}
	p.logger.Debug("Running agent", "kind", kind, "slug", taskSlug, "executor", p.runner.Name(), "timeout", p.timeout)
	if p.wrap != nil {
		return p.wrap(fmt.Sprintf("Running %s agent (%s) for %s", kind, p.runner.Name(), taskSlug), call)
	}
	return call()
}

func (p *Pipeline) startRun(kind vault.Kind, taskSlug string) string {
	if p.ledger == nil {
		return ""
	}
	run, err := p.ledger.Start(string(kind), taskSlug, p.runner.Name())
	if err != nil {
		p.logger.Warn("Could not record run", "error", err)
		return ""
	}
	return run.ID
}

func (p *Pipeline) finishRun(id, outputPath string, runErr error) {
	if p.ledger == nil || id == "" {
		return
	}
	if err := p.ledger.Finish(id, outputPath, runErr); err != nil {
		p.logger.Warn("Could not finish run", "id", id, "error", err)
	}
}

func (p *Pipeline) fire(ctx context.Context, event, taskSlug, path, message string) {
	p.hooks.Run(ctx, event, hooks.Payload{
		TaskSlug: taskSlug,
		NotePath: path,
		Message:  message,
	})
}
