// Package taskflow turns free text into backlog notes according to the
// configured creation mode.
package taskflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bborn/codex-vault/internal/config"
	"github.com/bborn/codex-vault/internal/detect"
	"github.com/bborn/codex-vault/internal/hooks"
	"github.com/bborn/codex-vault/internal/notes"
	"github.com/bborn/codex-vault/internal/slug"
)

var (
	// ErrModeDisabled is returned when task creation is turned off.
	ErrModeDisabled = errors.New("task creation is disabled")
	// ErrUnknownMode is returned for a creation mode outside the known set.
	ErrUnknownMode = errors.New("unknown task creation mode")
)

// Guided form fields, in the order they are asked.
const (
	FieldGoal            = notes.SectionGoal
	FieldCurrentBehavior = notes.SectionCurrentBehavior
	FieldDefinitionDone  = notes.SectionDefinitionDone
	FieldConstraints     = notes.SectionConstraints
)

// GuidedFields lists the questions asked in guided mode.
var GuidedFields = []string{FieldGoal, FieldCurrentBehavior, FieldDefinitionDone, FieldConstraints}

// Skip reasons reported by MaybeCreateFromText.
const (
	ReasonNotVault     = "not a vault"
	ReasonDisabled     = "auto-detect disabled"
	ReasonNotATask     = "does not look like a task"
	ReasonDeclined     = "declined"
	ReasonUnknownState = "unknown auto-detect setting"
)

// Prompter is the interactive collaborator used by guided and suggest modes.
type Prompter interface {
	AskYesNo(prompt string) bool
	AskFields(labels []string) (map[string]string, error)
}

// Request describes a task to create. Slug and Title override derivation.
type Request struct {
	Text  string
	Mode  config.CreationMode
	Slug  string
	Title string
}

// Result identifies the note that was written.
type Result struct {
	Slug    string
	Path    string
	Refined bool
}

// Outcome is the result of an auto-detect attempt. When Skipped is true,
// Reason says why and Result is empty.
type Outcome struct {
	Result  Result
	Skipped bool
	Reason  string
}

// Flow creates and updates backlog notes and fires the matching hooks.
type Flow struct {
	store    *notes.Store
	prompter Prompter
	hooks    *hooks.Runner
	logger   *log.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithHooks fires vault hooks after notes change.
func WithHooks(h *hooks.Runner) Option {
	return func(f *Flow) {
		f.hooks = h
	}
}

// WithLogger sets the flow logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Flow writing through store and asking questions through prompter.
func New(store *notes.Store, prompter Prompter, opts ...Option) *Flow {
	f := &Flow{
		store:    store,
		prompter: prompter,
		logger:   log.NewWithOptions(io.Discard, log.Options{Prefix: "taskflow"}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateTask creates a note for req.Text shaped by req.Mode.
func (f *Flow) CreateTask(ctx context.Context, req Request) (Result, error) {
	switch req.Mode {
	case config.ModeOff:
		return Result{}, ErrModeDisabled
	case config.ModeGuided, config.ModeRefine, config.ModePlanThis:
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}

	id := resolveIdentity(req)

	switch req.Mode {
	case config.ModeGuided:
		answers, err := f.askGuided()
		if err != nil {
			return Result{}, err
		}
		return f.create(ctx, id, guidedDescription(req.Text, answers))
	case config.ModeRefine:
		return f.createAndRefine(ctx, id, req.Text, false)
	default:
		return f.createAndRefine(ctx, id, req.Text, true)
	}
}

// CreatePlain creates a note with text as its description, without any
// mode-specific shaping.
func (f *Flow) CreatePlain(ctx context.Context, req Request) (Result, error) {
	return f.create(ctx, resolveIdentity(req), req.Text)
}

// Refine restructures an existing note into the section template.
func (f *Flow) Refine(ctx context.Context, taskSlug, text string, includePlanTodos bool) (Result, error) {
	path, err := f.store.Refine(taskSlug, text, includePlanTodos)
	if err != nil {
		return Result{}, err
	}
	f.logger.Info("Refined task", "slug", taskSlug, "plan_todos", includePlanTodos)
	f.fire(ctx, hooks.EventTaskRefined, taskSlug, path, "refined")
	return Result{Slug: taskSlug, Path: path, Refined: true}, nil
}

// SetStatus updates a note's status.
func (f *Flow) SetStatus(ctx context.Context, taskSlug, status string) (Result, error) {
	path, err := f.store.SetStatus(taskSlug, status)
	if err != nil {
		return Result{}, err
	}
	f.logger.Info("Updated status", "slug", taskSlug, "status", status)
	f.fire(ctx, hooks.EventTaskStatus, taskSlug, path, status)
	return Result{Slug: taskSlug, Path: path}, nil
}

// MaybeCreateFromText creates a task from text when the vault, the config and
// the task detector all agree. In suggest mode the user confirms first.
func (f *Flow) MaybeCreateFromText(ctx context.Context, text string, cfg config.Config) (Outcome, error) {
	if !f.store.Vault().Recognized() {
		return skipped(ReasonNotVault), nil
	}

	switch cfg.AutoDetectTasks {
	case config.AutoDetectOff:
		return skipped(ReasonDisabled), nil
	case config.AutoDetectAuto, config.AutoDetectSuggest:
	default:
		return skipped(ReasonUnknownState), nil
	}

	if !detect.LooksLikeNewTask(text) {
		return skipped(ReasonNotATask), nil
	}

	if cfg.AutoDetectTasks == config.AutoDetectSuggest {
		id := slug.Derive(text)
		if f.prompter == nil || !f.prompter.AskYesNo(fmt.Sprintf("This looks like a new task. Create %q?", id.Title)) {
			return skipped(ReasonDeclined), nil
		}
	}

	res, err := f.CreateTask(ctx, Request{Text: text, Mode: cfg.TaskCreationMode})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Result: res}, nil
}

func skipped(reason string) Outcome {
	return Outcome{Skipped: true, Reason: reason}
}

func (f *Flow) create(ctx context.Context, id slug.Identity, description string) (Result, error) {
	path, err := f.store.Create(id.Slug, id.Title, description)
	if err != nil {
		return Result{}, err
	}
	f.logger.Info("Created task", "slug", id.Slug, "path", path)
	f.fire(ctx, hooks.EventTaskCreated, id.Slug, path, id.Title)
	return Result{Slug: id.Slug, Path: path}, nil
}

func (f *Flow) createAndRefine(ctx context.Context, id slug.Identity, text string, includePlanTodos bool) (Result, error) {
	if _, err := f.create(ctx, id, text); err != nil {
		return Result{}, err
	}
	return f.Refine(ctx, id.Slug, text, includePlanTodos)
}

func (f *Flow) askGuided() (map[string]string, error) {
	if f.prompter == nil {
		return map[string]string{}, nil
	}
	answers, err := f.prompter.AskFields(GuidedFields)
	if err != nil {
		return nil, fmt.Errorf("guided form: %w", err)
	}
	return answers, nil
}

func (f *Flow) fire(ctx context.Context, event, taskSlug, path, message string) {
	f.hooks.Run(ctx, event, hooks.Payload{
		TaskSlug: taskSlug,
		NotePath: path,
		Message:  message,
	})
}

// resolveIdentity applies slug and title overrides on top of derivation.
func resolveIdentity(req Request) slug.Identity {
	var id slug.Identity
	if s := strings.TrimSpace(req.Slug); s != "" {
		id = slug.Derive(s)
	} else {
		id = slug.Derive(req.Text)
	}
	if t := strings.TrimSpace(req.Title); t != "" {
		id.Title = t
	}
	return id
}

// guidedDescription lays the guided answers out as sections. An empty goal
// falls back to the input text; other empty answers become TBD.
func guidedDescription(text string, answers map[string]string) string {
	var sb strings.Builder
	for i, field := range GuidedFields {
		value := strings.TrimSpace(answers[field])
		if value == "" && field == FieldGoal {
			value = strings.TrimSpace(text)
		}
		if value == "" {
			value = "TBD"
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("### " + field + "\n\n" + value)
	}
	return sb.String()
}
