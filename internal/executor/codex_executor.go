package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// MaxOutputBytes caps how much executor stdout is kept.
const MaxOutputBytes = 10 * 1024 * 1024

// maxStderrBytes caps the stderr excerpt carried by ExitError.
const maxStderrBytes = 2048

// CLIRunner runs an agent CLI non-interactively, passing the task as its last
// argument and reading the final message from stdout.
type CLIRunner struct {
	name   string
	binary string
	args   func(task string) []string
	logger *log.Logger
}

// Option customizes a CLIRunner.
type Option func(*CLIRunner)

// WithBinary overrides the binary name or path.
func WithBinary(binary string) Option {
	return func(r *CLIRunner) {
		r.binary = binary
	}
}

// WithLogger sets the logger used for run diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(r *CLIRunner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewCodexRunner runs `codex exec --skip-git-repo-check <task>`.
func NewCodexRunner(opts ...Option) *CLIRunner {
	return newCLIRunner("codex", func(task string) []string {
		return []string{"exec", "--skip-git-repo-check", task}
	}, opts)
}

// NewClaudeRunner runs `claude -p <task>`.
func NewClaudeRunner(opts ...Option) *CLIRunner {
	return newCLIRunner("claude", func(task string) []string {
		return []string{"-p", task}
	}, opts)
}

func newCLIRunner(name string, args func(string) []string, opts []Option) *CLIRunner {
	r := &CLIRunner{
		name:   name,
		binary: name,
		args:   args,
		logger: log.NewWithOptions(io.Discard, log.Options{Prefix: "executor"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultRegistry returns a registry with the codex and claude runners.
func DefaultRegistry(logger *log.Logger) *Registry {
	reg := NewRegistry()
	reg.Register(NewCodexRunner(WithLogger(logger)))
	reg.Register(NewClaudeRunner(WithLogger(logger)))
	return reg
}

// Name returns the executor name.
func (r *CLIRunner) Name() string {
	return r.name
}

// IsAvailable checks if the CLI is installed.
func (r *CLIRunner) IsAvailable() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

// Run executes the task and returns the trimmed stdout.
func (r *CLIRunner) Run(ctx context.Context, workDir, task string) (string, error) {
	bin, err := exec.LookPath(r.binary)
	if err != nil {
		return "", r.unavailable()
	}

	cmd := exec.CommandContext(ctx, bin, r.args(task)...)
	cmd.Dir = workDir
	cmd.WaitDelay = 2 * time.Second
	stdout := &cappedBuffer{limit: MaxOutputBytes}
	stderr := &cappedBuffer{limit: maxStderrBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	r.logger.Debug("running executor", "executor", r.name, "dir", workDir, "prompt_bytes", len(task))
	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start).Round(time.Millisecond)

	if err == nil {
		if stdout.overflow {
			return "", fmt.Errorf("%w: %s output exceeded %d bytes", ErrFailed, r.name, MaxOutputBytes)
		}
		r.logger.Debug("executor finished", "executor", r.name, "elapsed", elapsed, "output_bytes", stdout.Len())
		return strings.TrimSpace(stdout.String()), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.logger.Warn("executor interrupted", "executor", r.name, "elapsed", elapsed, "error", ctxErr)
		return "", fmt.Errorf("%w: %s after %s: %w", ErrFailed, r.name, elapsed, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		r.logger.Warn("executor exited", "executor", r.name, "code", exitErr.ExitCode(), "elapsed", elapsed)
		return "", &ExitError{
			Executor: r.name,
			Code:     exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return "", r.unavailable()
	}
	return "", fmt.Errorf("%w: %s: %v", ErrFailed, r.name, err)
}

func (r *CLIRunner) unavailable() error {
	return fmt.Errorf("%w: %q (is the %s CLI installed and on your PATH?)", ErrUnavailable, r.binary, r.name)
}

// cappedBuffer keeps at most limit bytes and remembers whether more arrived.
type cappedBuffer struct {
	bytes.Buffer
	limit    int
	overflow bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.Len(); room < len(p) {
		b.overflow = true
		if room > 0 {
			b.Buffer.Write(p[:room])
		}
		return len(p), nil
	}
	return b.Buffer.Write(p)
}
