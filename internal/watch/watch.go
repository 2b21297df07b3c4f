// Package watch rebuilds the site when spec files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits for more changes before
// triggering a rebuild.
const DefaultDebounce = 500 * time.Millisecond

// Handler is called once per quiet period with the changed paths, sorted.
type Handler func(ctx context.Context, changed []string) error

// Config configures a Watcher.
type Config struct {
	Dir      string
	Pattern  string
	Debounce time.Duration
}

// Watcher watches one directory for files matching a doublestar pattern.
// Patterns with a path separator also watch every subdirectory, including
// ones created while running.
type Watcher struct {
	cfg     Config
	handler Handler
	logger  *zap.Logger
}

// New returns a watcher; nothing is watched until Run.
func New(cfg Config, handler Handler, logger *zap.Logger) *Watcher {
	if cfg.Pattern == "" {
		cfg.Pattern = "*.md"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{cfg: cfg, handler: handler, logger: logger}
}

// Matches reports whether a path inside the watched directory is a spec.
func (w *Watcher) Matches(path string) bool {
	rel, err := filepath.Rel(w.cfg.Dir, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.PathMatch(w.cfg.Pattern, rel)
	return err == nil && ok
}

func (w *Watcher) recursive() bool {
	return strings.Contains(w.cfg.Pattern, "/")
}

// add watches dir, and its subdirectories for recursive patterns. Matching
// files found on the way are recorded in pending when it is not nil.
func (w *Watcher) add(fsw *fsnotify.Watcher, dir string, pending map[string]struct{}) error {
	if !w.recursive() {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if pending != nil && w.Matches(path) {
			pending[path] = struct{}{}
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Run watches until ctx is done. Handler errors are logged and do not
// stop the watcher. Run returns only after the handler has returned.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.add(fsw, w.cfg.Dir, nil); err != nil {
		return err
	}
	w.logger.Info("watching specs",
		zap.String("dir", w.cfg.Dir),
		zap.String("pattern", w.cfg.Pattern),
		zap.Duration("debounce", w.cfg.Debounce),
	)

	timer := time.NewTimer(w.cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) && w.recursive() && isDir(event.Name) {
				// files may land before the new directory is watched
				if err := w.add(fsw, event.Name, pending); err != nil {
					w.logger.Warn("could not watch new directory", zap.String("dir", event.Name), zap.Error(err))
				}
				if len(pending) > 0 {
					timer.Reset(w.cfg.Debounce)
				}
				continue
			}
			if !w.Matches(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.cfg.Debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("watch events dropped", zap.Error(err))
				continue
			}
			w.logger.Error("watch error", zap.Error(err))

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})
			if len(changed) == 0 {
				continue
			}
			w.logger.Info("specs changed", zap.Strings("files", changed))
			if err := w.handler(ctx, changed); err != nil {
				w.logger.Error("rebuild failed", zap.Error(err))
			}
		}
	}
}
