// Package executor runs the external agent CLI that turns an assembled
// prompt into markdown.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnavailable is returned when the executor binary cannot be found.
	ErrUnavailable = errors.New("executor not found")
	// ErrFailed is returned when the executor ran but did not succeed.
	ErrFailed = errors.New("executor failed")
)

// ExitError reports a non-zero exit from the executor. It matches ErrFailed.
type ExitError struct {
	Executor string
	Code     int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Executor, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return ErrFailed }

// Runner is an agent CLI that accepts a task and returns its final message.
type Runner interface {
	// Name returns the executor name (e.g., "codex", "claude").
	Name() string

	// IsAvailable checks if the executor CLI is installed.
	IsAvailable() bool

	// Run executes task in workDir and returns the trimmed final output.
	// It blocks until the process exits or ctx is done.
	Run(ctx context.Context, workDir, task string) (string, error)
}

// DefaultName is the executor used when none is configured.
const DefaultName = "codex"

// Registry holds the known runners by name.
type Registry struct {
	runners map[string]Runner
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]Runner)}
}

// Register adds a runner, replacing any runner with the same name.
func (r *Registry) Register(runner Runner) {
	r.runners[runner.Name()] = runner
}

// Get returns the runner for name, or nil if unknown. An empty name selects
// the default runner.
func (r *Registry) Get(name string) Runner {
	if name == "" {
		name = DefaultName
	}
	return r.runners[name]
}

// Resolve returns the runner for name, falling back to the default runner
// when name is unknown. ok is false when the fallback was used.
func (r *Registry) Resolve(name string) (runner Runner, ok bool) {
	if runner := r.Get(name); runner != nil {
		return runner, true
	}
	return r.runners[DefaultName], false
}

// Names returns all registered runner names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Available returns the names of registered runners whose CLI is installed.
func (r *Registry) Available() []string {
	var names []string
	for _, name := range r.Names() {
		if r.runners[name].IsAvailable() {
			names = append(names, name)
		}
	}
	return names
}
