package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Prompter asks the user questions through huh forms. When stdin is not a
// terminal it never blocks: confirmations are declined and field forms come
// back empty.
type Prompter struct {
	interactive bool
	logger      *log.Logger
}

// NewPrompter creates a prompter bound to the process stdin.
func NewPrompter(logger *log.Logger) *Prompter {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{Prefix: "ui"})
	}
	return &Prompter{
		interactive: IsTerminal(os.Stdin),
		logger:      logger,
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isTerminal(f)
}

var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Interactive reports whether prompts will be shown.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// AskYesNo shows a confirmation and returns the answer. Any form error counts as no.
func (p *Prompter) AskYesNo(prompt string) bool {
	if !p.interactive {
		p.logger.Debug("Not a terminal, declining", "prompt", prompt)
		return false
	}

	var ok bool
	err := huh.NewConfirm().
		Title(prompt).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		p.logger.Debug("Confirm aborted", "error", err)
		return false
	}
	return ok
}

// AskFields shows one text input per label and returns the answers keyed by label.
func (p *Prompter) AskFields(labels []string) (map[string]string, error) {
	answers := make(map[string]string, len(labels))
	if !p.interactive || len(labels) == 0 {
		return answers, nil
	}

	values := make([]string, len(labels))
	fields := make([]huh.Field, len(labels))
	for i, label := range labels {
		fields[i] = huh.NewText().
			Title(label).
			Lines(3).
			Value(&values[i])
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return nil, err
	}
	for i, label := range labels {
		answers[label] = values[i]
	}
	return answers, nil
}
