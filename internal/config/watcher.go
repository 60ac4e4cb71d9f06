package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 200 * time.Millisecond

// Watcher re-reads the YAML config file when it changes and hands the new
// configuration to the registered callbacks. Only settings that are safe to
// change at runtime (the log level) are acted upon by the callers.
type Watcher struct {
	path      string
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	mu        sync.Mutex
	callbacks []func(*Config)
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher starts watching path. The directory is watched rather than the
// file so editors that replace the file on save are handled.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w := &Watcher{
		path:    filepath.Clean(path),
		logger:  logger,
		watcher: fsw,
		done:    make(chan struct{}),
	}
	go w.loop()

	logger.Info("Configuration hot reloading enabled", zap.String("file", path))
	return w, nil
}

// OnChange registers a callback run after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop() {
	var debounce *time.Timer
	for {
		select {
		case <-w.done:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	cfg := Default()
	if err := cfg.mergeFile(w.path); err != nil {
		w.logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		w.logger.Error("Reloaded configuration is invalid", zap.Error(err))
		return
	}

	w.logger.Info("Configuration reloaded", zap.String("file", w.path))

	w.mu.Lock()
	callbacks := slices.Clone(w.callbacks)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
}
