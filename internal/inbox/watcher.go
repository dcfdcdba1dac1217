// Package inbox turns text files dropped into ai/inbox/ into backlog tasks.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/bborn/codex-vault/internal/config"
	"github.com/bborn/codex-vault/internal/taskflow"
)

// ProcessedDir is the inbox subdirectory handled files are moved to.
const ProcessedDir = "processed"

// ReasonEmpty is reported for files with no text.
const ReasonEmpty = "empty file"

// Extensions accepted by the watcher.
var Extensions = []string{".md", ".txt"}

// settleDelay is how long a file must be quiet before it is read.
const settleDelay = 300 * time.Millisecond

// Creator decides whether text becomes a task.
type Creator interface {
	MaybeCreateFromText(ctx context.Context, text string, cfg config.Config) (taskflow.Outcome, error)
}

// Watcher processes files in an inbox directory.
type Watcher struct {
	dir     string
	creator Creator
	cfg     config.Config
	logger  *log.Logger
	// OnProcessed, when set, is called after each handled file.
	OnProcessed func(path string, out taskflow.Outcome, err error)
}

// New creates a watcher for dir.
func New(dir string, creator Creator, cfg config.Config, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{Prefix: "inbox"})
	}
	return &Watcher{dir: dir, creator: creator, cfg: cfg, logger: logger}
}

// Eligible reports whether path names an inbox file the watcher handles.
func Eligible(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ProcessFile reads path and hands its text to the creator. Created and
// skipped files move to the processed directory; on error the file stays.
func (w *Watcher) ProcessFile(ctx context.Context, path string) (taskflow.Outcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return taskflow.Outcome{}, fmt.Errorf("read inbox file: %w", err)
	}

	var out taskflow.Outcome
	text := strings.TrimSpace(string(data))
	if text == "" {
		out = taskflow.Outcome{Skipped: true, Reason: ReasonEmpty}
	} else {
		out, err = w.creator.MaybeCreateFromText(ctx, text, w.cfg)
		if err != nil {
			return out, err
		}
	}

	if err := w.archive(path); err != nil {
		return out, err
	}
	return out, nil
}

// Run processes files already in the inbox, then watches for new ones until
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(w.dir, ProcessedDir), 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	existing, err := w.pendingFiles()
	if err != nil {
		return err
	}
	for _, path := range existing {
		w.handle(ctx, path)
	}

	w.logger.Info("Watching inbox", "dir", w.dir)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settleDelay / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if filepath.Dir(event.Name) != filepath.Clean(w.dir) || !Eligible(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)

		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) < settleDelay {
					continue
				}
				delete(pending, path)
				w.handle(ctx, path)
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return
	}
	out, err := w.ProcessFile(ctx, path)
	switch {
	case err != nil:
		w.logger.Error("Could not process inbox file", "file", filepath.Base(path), "error", err)
	case out.Skipped:
		w.logger.Info("Skipped inbox file", "file", filepath.Base(path), "reason", out.Reason)
	default:
		w.logger.Info("Created task from inbox", "file", filepath.Base(path), "slug", out.Result.Slug)
	}
	if w.OnProcessed != nil {
		w.OnProcessed(path, out, err)
	}
}

func (w *Watcher) pendingFiles() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && Eligible(e.Name()) {
			paths = append(paths, filepath.Join(w.dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// archive moves path into the processed directory without overwriting an
// earlier file of the same name.
func (w *Watcher) archive(path string) error {
	dest := filepath.Join(w.dir, ProcessedDir)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}

	name := filepath.Base(path)
	target := filepath.Join(dest, name)
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(name)
		stamp := time.Now().UTC().Format("20060102T150405.000000000")
		target = filepath.Join(dest, strings.TrimSuffix(name, ext)+"-"+stamp+ext)
	}
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("move inbox file: %w", err)
	}
	return nil
}
