package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"SPEAKER_TRACK/go-backend/internal/tracker"
)

// OptionsWatcher keeps the latest valid tracker options from a file. Only
// sessions opened after a reload see the new values.
type OptionsWatcher struct {
	path string

	mu      sync.RWMutex
	current tracker.Options
	onLoad  func(tracker.Options)
}

func NewOptionsWatcher(path string) (*OptionsWatcher, error) {
	opts, err := LoadTrackerOptions(path)
	if err != nil {
		return nil, err
	}
	return &OptionsWatcher{path: path, current: opts}, nil
}

func (w *OptionsWatcher) Current() tracker.Options {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnLoad registers a callback run after every successful reload.
func (w *OptionsWatcher) OnLoad(fn func(tracker.Options)) {
	w.mu.Lock()
	w.onLoad = fn
	w.mu.Unlock()
}

// Start watches the options file's directory until ctx is done. The watch is
// registered before Start returns. Without a path it does nothing.
func (w *OptionsWatcher) Start(ctx context.Context) error {
	if w.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// editors replace files, so watch the directory
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch options dir: %w", err)
	}

	log.Infof("Watching tracker options %s", w.path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					w.reload()
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("Options watcher error: %v", err)
			}
		}
	}()
	return nil
}

func (w *OptionsWatcher) reload() {
	opts, err := LoadTrackerOptions(w.path)
	if err != nil {
		log.Warnf("Keeping previous tracker options: %v", err)
		return
	}

	w.mu.Lock()
	w.current = opts
	fn := w.onLoad
	w.mu.Unlock()

	log.Infof("Tracker options reloaded from %s", w.path)
	if fn != nil {
		fn(opts)
	}
}
