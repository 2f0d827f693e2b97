//go:build !linux

package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fallbackBackend implements Backend using fsnotify with debouncing.
//
// Games tend to write saves in many small chunks, each producing its
// own Write notification. A save is only reported once its size and
// mtime have stayed stable for the settle delay.
type fallbackBackend struct {
	logger  *slog.Logger
	opts    Options
	watcher *fsnotify.Watcher

	pending map[string]*pendingEvent // path -> pending event info
	mu      sync.RWMutex             // protects pending map

	events chan Event
	errors chan error
	done   chan struct{}
	wg     sync.WaitGroup
}

// pendingEvent tracks a file that may still be changing.
type pendingEvent struct {
	path    string
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// newFallbackBackend creates a fallback backend using fsnotify.
func newFallbackBackend(logger *slog.Logger, opts Options) (*fallbackBackend, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &fallbackBackend{
		logger:  logger,
		opts:    opts,
		watcher: watcher,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Watch adds a directory to be monitored.
func (b *fallbackBackend) Watch(path string) error {
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path %s is not a directory", path)
	}

	if err := b.watcher.Add(path); err != nil {
		return fmt.Errorf("failed to add watch: %w", err)
	}

	b.logger.Debug("added watch", "path", path)
	return nil
}

// Start begins watching for events.
func (b *fallbackBackend) Start(ctx context.Context) error {
	b.wg.Add(1)
	go b.processEvents(ctx)

	<-ctx.Done()
	return nil
}

// processEvents processes fsnotify events.
func (b *fallbackBackend) processEvents(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case event, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			b.handleFsnotifyEvent(event)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			b.errors <- err
		}
	}
}

// handleFsnotifyEvent handles an fsnotify event with debouncing.
func (b *fallbackBackend) handleFsnotifyEvent(event fsnotify.Event) {
	path := event.Name

	if !b.opts.matches(path) {
		return
	}

	// A rename away from the directory looks like a deletion from the
	// save directory's point of view.
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		b.cancelPending(path)
		b.emitEvent(Event{
			Type: EventRemoved,
			Path: path,
		})
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		b.startSettling(path)
	}
}

// startSettling begins the settling process for a file.
func (b *fallbackBackend) startSettling(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Cancel existing timer if any.
	if pending, exists := b.pending[path]; exists {
		pending.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		b.logger.Warn("failed to stat file", "path", path, "error", err)
		delete(b.pending, path)
		return
	}
	if info.IsDir() {
		return
	}

	pending := &pendingEvent{
		path:    path,
		size:    info.Size(),
		modTime: info.ModTime(),
	}

	pending.timer = time.AfterFunc(b.opts.SettleDelay, func() {
		b.checkSettled(path)
	})

	b.pending[path] = pending
}

// checkSettled checks if a file has finished settling.
func (b *fallbackBackend) checkSettled(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pending, exists := b.pending[path]
	if !exists {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		// File was deleted mid-settle.
		delete(b.pending, path)
		b.emitEvent(Event{
			Type: EventRemoved,
			Path: path,
		})
		return
	}

	// Still changing, restart the timer.
	if info.Size() != pending.size || info.ModTime() != pending.modTime {
		pending.size = info.Size()
		pending.modTime = info.ModTime()
		pending.timer = time.AfterFunc(b.opts.SettleDelay, func() {
			b.checkSettled(path)
		})
		return
	}

	delete(b.pending, path)

	b.emitEvent(Event{
		Type:    EventChanged,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

// cancelPending cancels a pending event.
func (b *fallbackBackend) cancelPending(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pending, exists := b.pending[path]; exists {
		pending.timer.Stop()
		delete(b.pending, path)
	}
}

// emitEvent sends an event to the events channel.
func (b *fallbackBackend) emitEvent(event Event) {
	select {
	case b.events <- event:
	case <-b.done:
	}
}

// Events returns the events channel.
func (b *fallbackBackend) Events() <-chan Event {
	return b.events
}

// Errors returns the errors channel.
func (b *fallbackBackend) Errors() <-chan error {
	return b.errors
}

// Stop stops the watcher.
func (b *fallbackBackend) Stop() error {
	close(b.done)

	// Cancel all pending timers.
	b.mu.Lock()
	for _, pending := range b.pending {
		pending.timer.Stop()
	}
	clear(b.pending)
	b.mu.Unlock()

	b.watcher.Close()

	b.wg.Wait()

	close(b.events)
	close(b.errors)

	return nil
}

// newLinuxBackend is a stub that should never be called on non-Linux
// platforms. It exists only to satisfy the compiler when watcher.go
// references it.
func newLinuxBackend(_ *slog.Logger, _ Options) (Backend, error) {
	return nil, fmt.Errorf("Linux backend not available on this platform")
}
