package main

import (
	"errors"
	"strings"

	"github.com/bborn/codex-vault/internal/executor"
	"github.com/bborn/codex-vault/internal/notes"
	"github.com/bborn/codex-vault/internal/prompt"
	"github.com/bborn/codex-vault/internal/taskflow"
	"github.com/bborn/codex-vault/internal/vault"
)

// hint returns a suggested next step for a command error.
func hint(err error) string {
	switch {
	case errors.Is(err, vault.ErrNotAVault):
		return "Run `codex-vault init` here, or pass --root pointing at a vault."
	case errors.Is(err, vault.ErrAlreadyInitialized):
		return "Use `codex-vault init --force` to add missing template files."
	case errors.Is(err, prompt.ErrMissingTemplate):
		return "Restore the prompt templates with `codex-vault init --force`."
	case errors.Is(err, executor.ErrUnavailable):
		return "Install the executor CLI or pick another one with --executor."
	case errors.Is(err, executor.ErrFailed):
		return "See `codex-vault runs` for the recorded failure."
	case errors.Is(err, notes.ErrAlreadyExists):
		return "Pick another slug with --slug, or refine the existing note."
	case errors.Is(err, notes.ErrInvalidStatus):
		return "Valid statuses: " + strings.Join(notes.Statuses, ", ") + "."
	case errors.Is(err, notes.ErrNotFound):
		return "Check the slug with `codex-vault task list`."
	case errors.Is(err, taskflow.ErrModeDisabled):
		return "Set taskCreationMode in .codex-vault.yml, or pass --mode."
	case errors.Is(err, taskflow.ErrUnknownMode):
		return "Valid modes: " + joinModes() + "."
	}
	return ""
}

func isNotVault(err error) bool {
	return errors.Is(err, vault.ErrNotAVault)
}
