// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package templates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docxpress/internal/logger"
)

// DefaultDebounce is how long a template must be quiet after a write before
// it is invalidated. Word saves a document in several steps.
const DefaultDebounce = 250 * time.Millisecond

// Invalidator drops cached templates.
type Invalidator interface {
	Invalidate(name string)
}

// Watcher invalidates cached templates when files in the template directory
// change. Writes are coalesced per template; a removed or renamed template is
// invalidated at once so it is never served stale.
type Watcher struct {
	dir     string
	target  Invalidator
	watcher *fsnotify.Watcher
	delay   time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher starts watching dir, creating it when missing.
func NewWatcher(dir string, target Invalidator, delay time.Duration) (*Watcher, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		if err := os.MkdirAll(absPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create template directory: %w", err)
		}
		logger.Printf("Created template directory: %s", absPath)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(absPath); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", absPath, err)
	}

	w := newWatcher(absPath, target, delay)
	w.watcher = fw
	logger.Printf("Watching template directory: %s", absPath)
	return w, nil
}

func newWatcher(dir string, target Invalidator, delay time.Duration) *Watcher {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Watcher{
		dir:     dir,
		target:  target,
		delay:   delay,
		pending: make(map[string]*time.Timer),
	}
}

// Run processes events until ctx is cancelled, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.cancelPending()
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !IsTemplateFile(event.Name) {
				continue
			}
			name := filepath.Base(event.Name)
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.invalidate(name)
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				w.schedule(name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("Template watcher error for %s: %v", w.dir, err)
		}
	}
}

// schedule invalidates name once it has been quiet for the watcher delay.
func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[name]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		current := w.pending[name] == timer
		if current {
			delete(w.pending, name)
		}
		w.mu.Unlock()

		if current {
			logger.Printf("Template changed, invalidating cache: %s", name)
			w.target.Invalidate(name)
		}
	})
	w.pending[name] = timer
}

// invalidate drops name now and cancels any pending invalidation for it.
func (w *Watcher) invalidate(name string) {
	w.mu.Lock()
	if timer, ok := w.pending[name]; ok {
		timer.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()

	logger.Printf("Template removed, invalidating cache: %s", name)
	w.target.Invalidate(name)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for name, timer := range w.pending {
		timer.Stop()
		delete(w.pending, name)
	}
}
