package vault

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed all:templates
var templates embed.FS

// ErrAlreadyInitialized is returned by Init when ai/ exists and force is not set.
var ErrAlreadyInitialized = errors.New("ai/ already exists")

// Init copies the embedded ai/ template tree into root. Existing files are
// never overwritten; with force, missing files are filled into an existing ai/.
// It returns the vault-relative paths that were written.
func Init(root string, force bool) ([]string, error) {
	target := filepath.Join(root, AIDir)
	if _, err := os.Stat(target); err == nil && !force {
		return nil, fmt.Errorf("%w in %s (use --force to copy missing template files)", ErrAlreadyInitialized, root)
	}

	var written []string
	err := fs.WalkDir(templates, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("templates", filepath.FromSlash(p))
		if err != nil {
			return err
		}
		dest := filepath.Join(root, rel)
		if d.IsDir() {
			return os.MkdirAll(dest, 0755)
		}
		if _, err := os.Stat(dest); err == nil {
			return nil
		}
		data, err := templates.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return err
		}
		written = append(written, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return written, fmt.Errorf("copy templates: %w", err)
	}
	return written, nil
}

// Layout lists the directories and files a vault is expected to contain.
func Layout() []string {
	return []string{
		Rel(AIDir, AgentsFile),
		Rel(AIDir, AgentsDir, "*.prompt.md"),
		Rel(AIDir, BacklogDir) + "/",
		Rel(AIDir, ResearchDir) + "/",
		Rel(AIDir, PlansDir) + "/",
		Rel(AIDir, WorkflowsDir) + "/",
		Rel(AIDir, QADir) + "/",
		Rel(AIDir, RunsDir) + "/",
		Rel(AIDir, HooksDir) + "/",
		Rel(AIDir, InboxDir) + "/",
	}
}
