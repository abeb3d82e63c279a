// Package watcher guards the session store file: when the file is deleted
// out from under a running process, the owner is notified so it can
// re-run schema bootstrap.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher watches the parent directory of the store file, since fsnotify
// cannot watch a path that no longer exists.
type Watcher struct {
	storePath string
	parentDir string
	onDelete  func()
	fsw       *fsnotify.Watcher
	ctx       context.Context
	cancel    context.CancelFunc
	debounce  time.Duration

	mu      sync.Mutex
	running bool
}

// New creates a watcher for the store file. onDelete runs after the file
// (or its directory) disappears and stays gone past the debounce window.
func New(storePath string, onDelete func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		storePath: filepath.Clean(storePath),
		parentDir: filepath.Dir(storePath),
		onDelete:  onDelete,
		fsw:       fsw,
		ctx:       ctx,
		cancel:    cancel,
		debounce:  100 * time.Millisecond,
	}, nil
}

// Start begins watching. Calling Start on a running watcher is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.fsw.Add(w.parentDir); err != nil {
		log.Warn().Err(err).Str("dir", w.parentDir).Msg("failed to watch store directory")
	}

	go w.loop()
	return nil
}

// Stop halts the watcher and releases the fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	w.cancel()
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	var timer *time.Timer

	arm := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, w.fireDelete)
	}

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			path := filepath.Clean(event.Name)

			switch {
			case path == w.storePath && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				log.Info().Str("path", w.storePath).Msg("store file deleted")
				arm()
			case path == w.parentDir && event.Op&fsnotify.Remove != 0:
				log.Info().Str("dir", w.parentDir).Msg("store directory deleted")
				arm()
			case path == w.storePath && event.Op&fsnotify.Create != 0:
				// File came back before the debounce fired.
				if timer != nil {
					timer.Stop()
				}
			case path == w.parentDir && event.Op&fsnotify.Create != 0:
				_ = w.fsw.Add(w.parentDir)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("store watcher error")
		}
	}
}

func (w *Watcher) fireDelete() {
	log.Info().Str("path", w.storePath).Msg("store file gone, notifying owner")
	if w.onDelete != nil {
		w.onDelete()
	}

	// The directory may have been recreated along with the file; try to
	// re-establish the watch once things settle.
	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := w.fsw.Add(w.parentDir); err != nil {
			log.Warn().Err(err).Str("dir", w.parentDir).Msg("failed to re-establish store watch")
		}
	}()
}
