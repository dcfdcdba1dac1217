// Package hooks runs vault scripts on task events.
package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Event types for hooks
const (
	EventTaskCreated       = "task.created"
	EventTaskRefined       = "task.refined"
	EventTaskStatus        = "task.status"
	EventResearchCompleted = "research.completed"
	EventPlanCompleted     = "plan.completed"
	EventAgentFailed       = "agent.failed"
)

// Events lists every event a hook can be installed for.
var Events = []string{
	EventTaskCreated,
	EventTaskRefined,
	EventTaskStatus,
	EventResearchCompleted,
	EventPlanCompleted,
	EventAgentFailed,
}

// DefaultTimeout bounds a single hook script.
const DefaultTimeout = 30 * time.Second

// Payload describes the event passed to a hook.
type Payload struct {
	TaskSlug string
	NotePath string
	Message  string
}

// Runner executes hooks for vault events.
type Runner struct {
	root     string
	hooksDir string
	timeout  time.Duration
	logger   *log.Logger
	now      func() time.Time
}

// New creates a hook runner for the vault at root whose scripts live in hooksDir.
// A nil logger discards output.
func New(root, hooksDir string, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{Prefix: "hooks"})
	}
	return &Runner{
		root:     root,
		hooksDir: hooksDir,
		timeout:  DefaultTimeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes the hook for event, if one is installed. It blocks until the
// script finishes; failures are logged and never returned.
func (r *Runner) Run(ctx context.Context, event string, p Payload) {
	if r == nil || r.hooksDir == "" {
		return
	}

	hookPath := filepath.Join(r.hooksDir, event)
	info, err := os.Stat(hookPath)
	if err != nil || info.IsDir() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, hookPath)
	cmd.Dir = r.root
	cmd.WaitDelay = time.Second
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("VAULT_ROOT=%s", r.root),
		fmt.Sprintf("VAULT_EVENT=%s", event),
		fmt.Sprintf("TASK_SLUG=%s", p.TaskSlug),
		fmt.Sprintf("VAULT_NOTE_PATH=%s", p.NotePath),
		fmt.Sprintf("VAULT_MESSAGE=%s", p.Message),
		fmt.Sprintf("VAULT_TIMESTAMP=%s", r.now().UTC().Format(time.RFC3339)),
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		r.logger.Error("Hook failed", "event", event, "error", err, "output", strings.TrimSpace(string(output)))
		return
	}
	r.logger.Debug("Hook executed", "event", event, "slug", p.TaskSlug)
}
