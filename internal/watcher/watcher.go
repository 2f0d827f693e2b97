// Package watcher monitors a save directory for file changes and
// deletions. It is the notification source for the guard session;
// everything downstream treats it as a black box emitting Event
// values per watched file name.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
)

// Watcher monitors file system changes in a save directory.
//
// The watcher automatically selects the best backend for the current
// platform:
//   - Linux: inotify with IN_CLOSE_WRITE, so a save is reported the
//     moment the game finishes writing it.
//   - Others: fsnotify with settle-delay debouncing, which absorbs the
//     bursts of write events games emit while saving.
type Watcher struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a new file watcher.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	var backend Backend
	var err error

	if runtime.GOOS == "linux" {
		backend, err = newLinuxBackend(logger, opts)
		logger.Debug("using Linux inotify backend")
	} else {
		backend, err = newFallbackBackend(logger, opts)
		logger.Debug("using fsnotify fallback backend", "platform", runtime.GOOS)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	return &Watcher{
		backend: backend,
		logger:  logger,
	}, nil
}

// Watch adds a directory to be monitored (non-recursive).
func (w *Watcher) Watch(path string) error {
	return w.backend.Watch(path)
}

// Start begins watching for events.
// This method blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	return w.backend.Start(ctx)
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	return w.backend.Stop()
}

// Events returns the channel for receiving file system events.
func (w *Watcher) Events() <-chan Event {
	return w.backend.Events()
}

// Errors returns the channel for receiving errors.
func (w *Watcher) Errors() <-chan error {
	return w.backend.Errors()
}
