package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a configuration file when it changes on disk. Writes are
// coalesced using the [watch] debounce of the configuration in effect, and a
// reload that changes nothing is not reported.
type Watcher struct {
	path     string
	callback func(*Config)
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	current *Config
}

// NewWatcher follows path. current is the configuration already applied; nil
// means defaults.
func NewWatcher(path string, current *Config, callback func(*Config)) *Watcher {
	if current == nil {
		current = Default()
	}
	return &Watcher{
		path:     path,
		current:  current,
		callback: callback,
		stop:     make(chan struct{}),
	}
}

// Debounce is the delay applied between a write and the reload.
func (w *Watcher) Debounce() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.Watch.Debounce
}

// Start begins watching the configuration file.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// The directory is watched so atomic saves (rename over) are seen.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer watcher.Close()

		slog.Debug("config watcher started", "path", w.path)

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(w.Debounce(), w.reload)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)

			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload failed", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	unchanged := reflect.DeepEqual(w.current, cfg)
	w.current = cfg
	w.mu.Unlock()

	if unchanged {
		slog.Debug("config file rewritten without changes", "path", w.path)
		return
	}
	slog.Info("config file changed, reloading", "path", w.path, "debounce", cfg.Watch.Debounce)
	if w.callback != nil {
		w.callback(cfg)
	}
}
