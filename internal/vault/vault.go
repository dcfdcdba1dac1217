// Package vault describes the on-disk layout of a codex-vault and how to
// recognize and scaffold one.
package vault

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// ErrNotAVault is returned when an operation needs a vault and the root is not one.
var ErrNotAVault = errors.New("not a codex-vault")

// Directory and file names relative to the vault root.
const (
	AIDir        = "ai"
	AgentsDir    = "agents"
	BacklogDir   = "backlog"
	ResearchDir  = "research"
	PlansDir     = "plans"
	WorkflowsDir = "workflows"
	QADir        = "qa"
	RunsDir      = "runs"
	HooksDir     = "hooks"
	InboxDir     = "inbox"

	AgentsFile     = "AGENTS.md"
	BasePromptFile = "_base.prompt.md"
)

// Kind identifies an agent and the note it produces.
type Kind string

const (
	KindResearch Kind = "research"
	KindImplPlan Kind = "impl-plan"
)

// PromptFile returns the agent prompt file name for the kind.
func (k Kind) PromptFile() string {
	return string(k) + ".prompt.md"
}

// Valid reports whether k is a known agent kind.
func (k Kind) Valid() bool {
	return k == KindResearch || k == KindImplPlan
}

// Vault is a vault rooted at an explicit directory.
type Vault struct {
	Root string
}

// New returns a Vault for root without checking that it is one.
func New(root string) *Vault {
	return &Vault{Root: root}
}

// Open returns the vault at root, or ErrNotAVault if the sentinel files are missing.
func Open(root string) (*Vault, error) {
	v := New(root)
	if !v.Recognized() {
		return nil, fmt.Errorf("%w: %s (expected %s and %s)", ErrNotAVault, root,
			Rel(AIDir, AgentsFile), Rel(AIDir, AgentsDir, BasePromptFile))
	}
	return v, nil
}

// Recognized reports whether both ai/AGENTS.md and ai/agents/_base.prompt.md exist.
func (v *Vault) Recognized() bool {
	return fileExists(v.AgentsFile()) && fileExists(v.BasePromptPath())
}

// Path joins elements onto the vault's ai/ directory.
func (v *Vault) Path(elem ...string) string {
	return filepath.Join(append([]string{v.Root, AIDir}, elem...)...)
}

func (v *Vault) AgentsFile() string     { return v.Path(AgentsFile) }
func (v *Vault) BasePromptPath() string { return v.Path(AgentsDir, BasePromptFile) }
func (v *Vault) BacklogDir() string     { return v.Path(BacklogDir) }
func (v *Vault) HooksDir() string       { return v.Path(HooksDir) }
func (v *Vault) InboxDir() string       { return v.Path(InboxDir) }
func (v *Vault) RunsDir() string        { return v.Path(RunsDir) }

// AgentPromptPath returns the prompt template path for an agent kind.
func (v *Vault) AgentPromptPath(k Kind) string {
	return v.Path(AgentsDir, k.PromptFile())
}

// BacklogPath returns the task note path for slug.
func (v *Vault) BacklogPath(slug string) string {
	return filepath.Join(v.Root, filepath.FromSlash(BacklogRel(slug)))
}

// OutputPath returns where the output of an agent run for slug is stored.
func (v *Vault) OutputPath(k Kind, slug string) string {
	return filepath.Join(v.Root, filepath.FromSlash(OutputRel(k, slug)))
}

// Rel joins elements with forward slashes, the form used inside notes and prompts.
func Rel(elem ...string) string {
	return path.Join(elem...)
}

// BacklogRel is the vault-relative path of a task note.
func BacklogRel(slug string) string {
	return Rel(AIDir, BacklogDir, slug+".md")
}

// OutputRel is the vault-relative path of an agent's output note.
func OutputRel(k Kind, slug string) string {
	switch k {
	case KindImplPlan:
		return Rel(AIDir, PlansDir, slug+"-plan.md")
	default:
		return Rel(AIDir, ResearchDir, slug+"-research.md")
	}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
