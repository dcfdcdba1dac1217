// Package prompt assembles the task text handed to an agent executor.
//
// A prompt is built from the vault's shared base instructions, the agent's
// own instructions, a metadata block and snippets of related notes. The two
// instruction templates are required; snippets are best-effort and missing
// files are simply left out.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bborn/codex-vault/internal/notes"
	"github.com/bborn/codex-vault/internal/vault"
)

// ErrMissingTemplate is returned when a required prompt template is absent.
var ErrMissingTemplate = errors.New("missing prompt template")

// MissingTemplateError names the template that could not be read.
type MissingTemplateError struct {
	Label string
	Path  string
}

func (e *MissingTemplateError) Error() string {
	return fmt.Sprintf("missing required %s: %s", e.Label, e.Path)
}

func (e *MissingTemplateError) Unwrap() error { return ErrMissingTemplate }

// Assembler builds prompt documents from a vault's templates and notes.
// It only reads from the vault.
type Assembler struct {
	vault *vault.Vault
}

// NewAssembler creates an assembler for v.
func NewAssembler(v *vault.Vault) *Assembler {
	return &Assembler{vault: v}
}

// Assemble builds the prompt for kind and taskSlug. description overrides the
// short description taken from the backlog note. For impl-plan prompts the
// research note is included when present; requiring it is the caller's job.
func (a *Assembler) Assemble(kind vault.Kind, taskSlug, description string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown agent kind %q", kind)
	}

	base, err := a.requireFile(a.vault.BasePromptPath(), "base prompt")
	if err != nil {
		return "", err
	}
	agent, err := a.requireFile(a.vault.AgentPromptPath(kind), string(kind)+" prompt")
	if err != nil {
		return "", err
	}

	backlogRel := vault.BacklogRel(taskSlug)
	desc := strings.TrimSpace(description)
	if desc == "" {
		desc = ShortDescription(a.readOptional(backlogRel))
	}
	if desc == "" {
		desc = fmt.Sprintf("See backlog note %s.", backlogRel)
	}

	snippetRels := []string{backlogRel}
	switch kind {
	case vault.KindResearch:
		snippetRels = append(snippetRels, vault.Rel(vault.AIDir, vault.AgentsFile))
	case vault.KindImplPlan:
		snippetRels = append(snippetRels, vault.OutputRel(vault.KindResearch, taskSlug))
	}
	var snippets []string
	for _, rel := range snippetRels {
		if s, ok := a.snippet(rel); ok {
			snippets = append(snippets, s)
		}
	}

	lines := []string{
		strings.TrimSpace(base),
		"",
		strings.TrimSpace(agent),
		"",
		"---",
		"",
		"TASK_SLUG: " + taskSlug,
		"",
		"TASK_DESCRIPTION:",
		desc,
		"",
	}
	if kind == vault.KindImplPlan {
		lines = append(lines, "REQUESTED_OUTPUT: plan", "")
	}
	lines = append(lines, snippetBlock(snippets), "")
	lines = append(lines, instructions(kind, taskSlug)...)
	lines = append(lines, "")
	return strings.Join(lines, "\n"), nil
}

func instructions(kind vault.Kind, taskSlug string) []string {
	if kind == vault.KindImplPlan {
		return []string{
			"INSTRUCTIONS:",
			"- Act strictly according to the prompts above.",
			fmt.Sprintf("- Focus on producing the implementation plan note (%s) for this call.", vault.OutputRel(vault.KindImplPlan, taskSlug)),
			"- Do NOT modify files yourself; only produce markdown.",
			"- Output exactly one markdown document as your final message, matching the plan structure described in the prompt.",
		}
	}
	return []string{
		"INSTRUCTIONS:",
		"- Act strictly according to the prompts above.",
		"- Do NOT modify files yourself; only produce markdown.",
		"- Produce exactly one markdown research note as your final message, matching the structure described in the prompt.",
	}
}

func snippetBlock(snippets []string) string {
	if len(snippets) == 0 {
		return "SNIPPETS:\n\n(none)"
	}
	return strings.Join(append([]string{"SNIPPETS:", ""}, snippets...), "\n")
}

// snippet wraps a vault file in a [FILE: rel] header. ok is false when the
// file cannot be read.
func (a *Assembler) snippet(rel string) (string, bool) {
	content, ok := a.readFile(a.abs(rel))
	if !ok {
		return "", false
	}
	return strings.Join([]string{"[FILE: " + rel + "]", "", strings.TrimSpace(content), ""}, "\n"), true
}

func (a *Assembler) requireFile(path, label string) (string, error) {
	content, ok := a.readFile(path)
	if !ok {
		return "", &MissingTemplateError{Label: label, Path: path}
	}
	return content, nil
}

func (a *Assembler) readOptional(rel string) string {
	content, _ := a.readFile(a.abs(rel))
	return content
}

func (a *Assembler) readFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (a *Assembler) abs(rel string) string {
	return filepath.Join(a.vault.Root, filepath.FromSlash(rel))
}

// ShortDescription returns the first non-empty, non-heading body line of a
// note, skipping its frontmatter. A frontmatter fence that is never closed
// swallows the rest of the note.
func ShortDescription(markdown string) string {
	if markdown == "" {
		return ""
	}
	split := notes.SplitContent(markdown)
	if split.Frontmatter == "" && unterminatedFence(markdown) {
		return ""
	}
	body := split.Body
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

func unterminatedFence(markdown string) bool {
	first, _, _ := strings.Cut(markdown, "\n")
	return strings.TrimRight(first, "\r") == "---"
}
