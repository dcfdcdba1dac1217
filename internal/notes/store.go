// Package notes creates, reads and rewrites the markdown notes of a vault.
package notes

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bborn/codex-vault/internal/slug"
	"github.com/bborn/codex-vault/internal/vault"
)

// NoteType is the frontmatter type of task notes.
const NoteType = "ai-task"

// Status vocabulary for task notes.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusBlocked    = "blocked"
	StatusDone       = "done"
)

// Statuses lists every valid status.
var Statuses = []string{StatusTodo, StatusInProgress, StatusBlocked, StatusDone}

// DefaultTags are attached to every new task note.
var DefaultTags = []string{"ai", "backlog"}

// ValidStatus reports whether s is in the status vocabulary.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Store manages the note files of one vault.
type Store struct {
	vault *vault.Vault
	now   func() time.Time
}

// Option customizes a Store during construction.
type Option func(*Store)

// WithClock overrides the clock used for created/updated timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.now = clock
	}
}

// NewStore builds a store for a vault.
func NewStore(v *vault.Vault, opts ...Option) *Store {
	s := &Store{vault: v, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Vault returns the vault the store writes to.
func (s *Store) Vault() *vault.Vault {
	return s.vault
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// Exists reports whether a backlog note exists for taskSlug.
func (s *Store) Exists(taskSlug string) bool {
	info, err := os.Stat(s.vault.BacklogPath(taskSlug))
	return err == nil && !info.IsDir()
}

// Create writes a new backlog note. It fails with ErrAlreadyExists, leaving
// the existing file untouched, when a note for taskSlug is already present.
func (s *Store) Create(taskSlug, title, description string) (string, error) {
	path := s.vault.BacklogPath(taskSlug)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create backlog dir: %w", err)
	}
	if title == "" {
		title = slug.TitleFromSlug(taskSlug)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return "", fmt.Errorf("create note: %w", err)
	}
	defer f.Close()

	content := s.newFrontmatter(taskSlug, title) + "\n\n" + createdBody(taskSlug, title, description)
	if _, err := writeString(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write note: %w", err)
	}
	return path, nil
}

// writeString is replaced in tests to simulate a failing disk.
var writeString = func(f *os.File, s string) (int, error) {
	return f.WriteString(s)
}

func (s *Store) newFrontmatter(taskSlug, title string) string {
	ts := s.timestamp()
	var sb strings.Builder
	sb.WriteString(fence + "\n")
	sb.WriteString("type: " + NoteType + "\n")
	sb.WriteString("task_slug: " + taskSlug + "\n")
	sb.WriteString("status: " + StatusTodo + "\n")
	sb.WriteString("title: " + yamlScalar(title) + "\n")
	sb.WriteString("created: " + ts + "\n")
	sb.WriteString("updated: " + ts + "\n")
	sb.WriteString("tags:\n")
	for _, tag := range DefaultTags {
		sb.WriteString("  - " + tag + "\n")
	}
	sb.WriteString(fence)
	return sb.String()
}

// ReadSplit reads a note and separates frontmatter from body. A missing file
// is reported as a *MissingNoteError.
func (s *Store) ReadSplit(path string) (Split, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Split{}, &MissingNoteError{Slug: slugFromPath(path), Path: path}
		}
		return Split{}, fmt.Errorf("read note: %w", err)
	}
	return SplitContent(string(data)), nil
}

// Meta reads the typed frontmatter of the note at path.
func (s *Store) Meta(path string) (Meta, error) {
	split, err := s.ReadSplit(path)
	if err != nil {
		return Meta{}, err
	}
	return ParseMeta(split.Frontmatter), nil
}

// TouchUpdated sets the frontmatter's updated field to the current time.
// The result always holds exactly one updated line.
func (s *Store) TouchUpdated(frontmatter string) string {
	return setField(frontmatter, "updated", s.timestamp())
}

// Refine rewrites a backlog note's body into the canonical section template.
// The goal section is baseText, else the previous Goal or Description
// section, else the whole previous body when it has no known sections, else
// TBD. Anything else in the previous body is discarded.
func (s *Store) Refine(taskSlug, baseText string, includePlanTodos bool) (string, error) {
	path := s.vault.BacklogPath(taskSlug)
	split, err := s.ReadSplit(path)
	if err != nil {
		return "", err
	}

	fm := s.TouchUpdated(split.Frontmatter)
	title := ParseMeta(fm).Title
	if title == "" {
		title = slug.TitleFromSlug(taskSlug)
	}

	goal := strings.TrimSpace(baseText)
	if goal == "" {
		goal = priorGoal(split.Body)
	}
	if goal == "" {
		goal = "TBD"
	}

	content := fm + "\n\n" + refinedBody(taskSlug, title, goal, includePlanTodos)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}
	return path, nil
}

// SetStatus moves a backlog note to status and touches its updated field.
func (s *Store) SetStatus(taskSlug, status string) (string, error) {
	if !ValidStatus(status) {
		return "", fmt.Errorf("%w %q (want one of %s)", ErrInvalidStatus, status, strings.Join(Statuses, ", "))
	}
	path := s.vault.BacklogPath(taskSlug)
	split, err := s.ReadSplit(path)
	if err != nil {
		return "", err
	}

	fm := setField(split.Frontmatter, "status", status)
	fm = s.TouchUpdated(fm)
	body := strings.TrimLeft(split.Body, "\r\n")
	if err := os.WriteFile(path, []byte(fm+"\n\n"+body), 0644); err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}
	return path, nil
}

// PersistAgentOutput writes an agent's markdown to the output note for kind,
// ending it with exactly one newline. Existing output is overwritten.
func (s *Store) PersistAgentOutput(kind vault.Kind, taskSlug, markdown string) (string, error) {
	path := s.vault.OutputPath(kind, taskSlug)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create %s dir: %w", kind, err)
	}
	content := strings.TrimRight(markdown, "\r\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write %s note: %w", kind, err)
	}
	return path, nil
}

// List returns the slugs of all backlog notes, sorted. A missing backlog
// directory yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.vault.BacklogDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list backlog: %w", err)
	}

	slugs := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(e.Name(), ".md"))
	}
	sort.Strings(slugs)
	return slugs, nil
}

func slugFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".md")
}

// stripTitleHeading drops a leading H1 so a reused body does not repeat the title.
func stripTitleHeading(body string) string {
	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, "# ") {
		if i := strings.Index(body, "\n"); i >= 0 {
			return strings.TrimSpace(body[i+1:])
		}
		return ""
	}
	return body
}
