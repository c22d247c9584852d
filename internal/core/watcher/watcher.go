// Package watcher reports batches of changed document files under a set of
// directories.
package watcher

import (
	"crypto/sha256"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"execdoc/internal/shared/observability"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher debounces file events and hands the changed documents to a
// callback. A document whose bytes did not change since the last batch is
// not reported again, and deleted documents are dropped.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	include     []glob.Glob
	excludeDirs []glob.Glob
	onChange    func([]string)
	callbackMu  sync.Mutex

	mu       sync.Mutex
	debounce time.Duration
	pending  map[string]struct{}
	digests  map[string][sha256.Size]byte
	timer    *time.Timer
}

// NewWatcher matches include and excludeDirs against base names. An empty
// include list accepts every file.
func NewWatcher(debounce time.Duration, include, excludeDirs []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	includeGlobs, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	dirGlobs, err := compileAll(excludeDirs)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher:   fsw,
		include:     includeGlobs,
		excludeDirs: dirGlobs,
		onChange:    onChange,
		debounce:    debounce,
		pending:     make(map[string]struct{}),
		digests:     make(map[string][sha256.Size]byte),
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// SetDebounce applies to batches scheduled after the call.
func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = debounce
}

// Watch adds every directory under paths and starts delivering events.
// Documents already present are recorded so only later edits are reported.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.addTree(path, w.remember); err != nil {
			return err
		}
	}
	go w.run()
	return nil
}

// addTree watches root and its subdirectories, calling visit for each
// matching document found along the way.
func (w *Watcher) addTree(root string, visit func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && w.excluded(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		if w.Matches(path) {
			visit(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.excluded(event.Name) {
				return
			}
			// Files may land in a new directory before it is watched.
			if err := w.addTree(event.Name, w.schedule); err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if !w.Matches(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.schedule(event.Name)
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) remember(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.digests[path] = sha256.Sum256(data)
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	candidates := make([]string, 0, len(w.pending))
	for path := range w.pending {
		candidates = append(candidates, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	var changed []string
	for _, path := range candidates {
		if w.changed(path) {
			changed = append(changed, path)
		}
	}
	if len(changed) == 0 {
		return
	}
	slices.Sort(changed)

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(changed)
}

// changed updates the stored digest of path and reports whether its
// content differs from the last one seen.
func (w *Watcher) changed(path string) bool {
	data, err := os.ReadFile(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		delete(w.digests, path)
		return false
	}
	sum := sha256.Sum256(data)
	if prev, ok := w.digests[path]; ok && prev == sum {
		return false
	}
	w.digests[path] = sum
	return true
}

func (w *Watcher) excluded(dir string) bool {
	base := strings.ToLower(filepath.Base(dir))
	return slices.ContainsFunc(w.excludeDirs, func(g glob.Glob) bool { return g.Match(base) })
}

// Matches reports whether a file path passes the include patterns. Matching
// ignores case.
func (w *Watcher) Matches(path string) bool {
	if len(w.include) == 0 {
		return true
	}
	base := strings.ToLower(filepath.Base(path))
	return slices.ContainsFunc(w.include, func(g glob.Glob) bool { return g.Match(base) })
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsWatcher.Close()
}
