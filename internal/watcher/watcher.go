// Package watcher feeds file-system change notifications into the
// auto-commit engine. It watches a project directory recursively via
// fsnotify, picking up subdirectories as they appear, and translates raw
// events into the engine's change records.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/pders01/labtrail/internal/logging"
	"github.com/pders01/labtrail/internal/models"
)

// Handler receives translated change events. Paths are project-relative.
type Handler func(change models.PendingChange)

// Watcher monitors one project directory tree.
type Watcher struct {
	root    string
	ignore  *Ignore
	handler Handler
	log     zerolog.Logger

	fsw    *fsnotify.Watcher
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// New creates a watcher for a project directory. Start must be called
// before events flow.
func New(root string, ignorePatterns []string, handler Handler) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cannot watch %s: not a directory", root)
	}

	return &Watcher{
		root:    root,
		ignore:  NewIgnore(ignorePatterns),
		handler: handler,
		log:     logging.Get().With().Str("project", root).Logger(),
	}, nil
}

// Start registers the directory tree and begins delivering events.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.fsw = fsw

	if err := w.addTree(w.root); err != nil {
		fsw.Close()
		return err
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Close stops the watcher and releases resources. Idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed || w.fsw == nil {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

// addTree walks a directory and watches every non-ignored subdirectory.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		if rel != "." && w.ignore.Match(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn().Err(err).Str("dir", path).Msg("failed to watch directory")
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || w.ignore.Match(rel) {
		return
	}

	// New directories must be picked up or changes inside them go unseen.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Warn().Err(err).Str("dir", event.Name).Msg("failed to watch new directory")
			}
			return
		}
	}

	change := models.PendingChange{
		Path:      filepath.ToSlash(rel),
		Timestamp: time.Now(),
	}
	switch {
	case event.Op.Has(fsnotify.Create):
		change.Type = models.ChangeCreate
	case event.Op.Has(fsnotify.Write):
		change.Type = models.ChangeModify
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		change.Type = models.ChangeDelete
	default:
		// Chmod-only events are noise.
		return
	}

	w.handler(change)
}
