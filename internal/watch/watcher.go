// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/thecrown/packgen/internal/logging"
)

// DefaultDebounce is the quiet period used when Config.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// defaultIgnores are matched against paths relative to a watched directory.
// The last entry covers the temporary files the packager renames into place.
var defaultIgnores = []string{
	"**/.git/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
	"**/.*.tmp-*",
}

var (
	// ErrNoTargets is returned by New when Config.Targets is empty.
	ErrNoTargets = errors.New("nothing to watch")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watcher already running")
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Targets are the watched sources. Directories are watched
		// recursively; a file is watched on its own through its parent.
		Targets []string

		// Ignore are doublestar patterns, relative to the watched directory,
		// for paths that never trigger the callback. They extend the built-in
		// ignores.
		Ignore []string

		// Exclude lists paths, and the trees below them, whose events are
		// dropped. Generated output that lives inside a target goes here.
		Exclude []string

		// Debounce is the quiet period after the last event before the
		// callback fires.
		Debounce time.Duration

		// OnChange receives the sorted, deduplicated absolute paths that
		// changed. A returned error is logged and watching continues.
		OnChange func(ctx context.Context, changed []string) error

		Logger *log.Logger
	}

	target struct {
		path string
		dir  bool
	}

	// Watcher monitors the configured targets. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		targets  []target
		ignores  []string
		exclude  []string
		logger   *log.Logger
		debounce time.Duration
		started  atomic.Bool
	}
)

// New resolves every target, validates the ignore patterns and registers the
// directories to monitor. Every missing target is reported, not only the first.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Targets) == 0 {
		return nil, ErrNoTargets
	}
	if err := validatePatterns(cfg.Ignore); err != nil {
		return nil, err
	}

	var errs []error
	targets := make([]target, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		abs, err := filepath.Abs(t)
		if err != nil {
			errs = append(errs, fmt.Errorf("watch: resolve %q: %w", t, err))
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			errs = append(errs, fmt.Errorf("watch: %w", err))
			continue
		}
		targets = append(targets, target{path: abs, dir: info.IsDir()})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	exclude := make([]string, 0, len(cfg.Exclude))
	for _, e := range cfg.Exclude {
		if e == "" {
			continue
		}
		if abs, err := filepath.Abs(e); err == nil {
			exclude = append(exclude, abs)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		targets:  targets,
		ignores:  slices.Concat(defaultIgnores, cfg.Ignore),
		exclude:  exclude,
		logger:   logger,
		debounce: debounce,
	}
	for _, t := range targets {
		if err := w.register(t); err != nil {
			if closeErr := fsw.Close(); closeErr != nil {
				logger.Warn("close watcher after setup failure", "err", closeErr)
			}
			return nil, err
		}
	}
	return w, nil
}

// Run blocks until ctx is canceled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher itself breaks.
// Callbacks never overlap: one that fires while the previous is still busy
// is postponed by another debounce window.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("rebuild still in progress, postponing")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange == nil {
			return
		}
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.logger.Error("rebuild failed", "err", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}
			if evt.Op == fsnotify.Chmod || !w.accepts(evt.Name) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			w.logger.Debug("source changed", "path", evt.Name, "op", evt.Op.String())

			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: %w", err)
			}
			w.logger.Warn("watcher error", "err", err)
		}
	}
}

// register adds a directory target and every non-ignored directory below it,
// or the parent directory of a file target.
func (w *Watcher) register(t target) error {
	if !t.dir {
		if err := w.fsw.Add(filepath.Dir(t.path)); err != nil {
			return fmt.Errorf("watch: add %q: %w", t.path, err)
		}
		return nil
	}
	err := filepath.WalkDir(t.path, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping unreadable path", "path", path, "err", walkErr)
			return nil //nolint:nilerr // unreadable subtrees are skipped, not fatal
		}
		if !d.IsDir() {
			return nil
		}
		if path != t.path && (w.ignored(t.path, path) || w.excluded(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %q: %w", t.path, err)
	}
	return nil
}

// maybeAddDir extends a recursive watch to a directory created after New.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("watch new directory", "path", path, "err", err)
	}
}

// accepts reports whether an event on path belongs to a target.
func (w *Watcher) accepts(path string) bool {
	if w.excluded(path) {
		return false
	}
	for _, t := range w.targets {
		if !t.dir {
			if path == t.path {
				return true
			}
			continue
		}
		if within(t.path, path) {
			return !w.ignored(t.path, path)
		}
	}
	return false
}

func (w *Watcher) excluded(path string) bool {
	for _, e := range w.exclude {
		if within(e, path) {
			return true
		}
	}
	return false
}

// ignored matches path, relative to root, against the ignore patterns. A
// directory is also tried with a trailing slash so "dir/**" patterns prune it.
func (w *Watcher) ignored(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return matchAny(w.ignores, filepath.ToSlash(rel)) || matchAny(w.ignores, filepath.ToSlash(rel)+"/")
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func validatePatterns(patterns []string) error {
	var errs []error
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			errs = append(errs, fmt.Errorf("watch: invalid ignore pattern %q: %w", pat, doublestar.ErrBadPattern))
		}
	}
	return errors.Join(errs...)
}
