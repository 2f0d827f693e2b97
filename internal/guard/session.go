// Package guard coordinates backup and restore work for one watched
// save directory. It is the piece that turns raw file system events
// into "back this save up" and "bring this save back" decisions.
package guard

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/savekeeperapp/savekeeper/internal/backup"
	"github.com/savekeeperapp/savekeeper/internal/errors"
	"github.com/savekeeperapp/savekeeper/internal/watcher"
)

// DefaultSuppressionWindow is how long change events are ignored
// after a restore writes the save file back. Long enough for the
// restore's own change notification to surface and be swallowed,
// short enough not to mask a genuine follow-up deletion.
const DefaultSuppressionWindow = 500 * time.Millisecond

// Config holds the tunables of a watcher session.
type Config struct {
	// WatchDir is the save directory the session protects.
	WatchDir string
	// SavePattern is the glob save file names must match,
	// e.g. "*.baronysave".
	SavePattern string
	// SuppressionWindow overrides DefaultSuppressionWindow.
	SuppressionWindow time.Duration
	// Clock supplies the time for suppression deadlines. Defaults to
	// time.Now.
	Clock func() time.Time
}

// Session protects one save directory. Each session is independent:
// it owns its own lock, suppression deadline and statistics, so
// multiple directories can be guarded by separate sessions in one
// process.
//
// Event handling is serialized two ways: Run consumes the watcher
// channel in a single loop, and the mutex additionally covers
// restores triggered through the control API. At most one backup or
// restore is ever in flight per session.
type Session struct {
	id     string
	cfg    Config
	store  *backup.Store
	w      *watcher.Watcher
	logger *slog.Logger

	// mu serializes all backup/restore work for the directory.
	mu sync.Mutex

	// suppressUntil is a unix-nano deadline. Change events arriving
	// before it are presumed to be the echo of this session's own
	// restore write and are dropped without taking the lock. It is
	// atomic because the change path reads it lock-free.
	suppressUntil atomic.Int64

	stats sessionStats
}

type sessionStats struct {
	backupsCreated   atomic.Uint64
	backupsPruned    atomic.Uint64
	restores         atomic.Uint64
	eventsSuppressed atomic.Uint64
	eventsDropped    atomic.Uint64
	failures         atomic.Uint64
}

// Stats is a point-in-time snapshot of a session's counters.
type Stats struct {
	BackupsCreated   uint64 `json:"backups_created"`
	BackupsPruned    uint64 `json:"backups_pruned"`
	Restores         uint64 `json:"restores"`
	EventsSuppressed uint64 `json:"events_suppressed"`
	EventsDropped    uint64 `json:"events_dropped"`
	Failures         uint64 `json:"failures"`
}

// SaveInfo describes one watched save and its backup coverage.
type SaveInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ModifiedAt   time.Time `json:"modified_at"`
	BackupCount  int       `json:"backup_count"`
	LastBackupAt time.Time `json:"last_backup_at,omitzero"`
}

// NewSession creates a session guarding cfg.WatchDir, storing backups
// through store and receiving events from w.
func NewSession(cfg Config, store *backup.Store, w *watcher.Watcher, logger *slog.Logger) *Session {
	if cfg.SuppressionWindow <= 0 {
		cfg.SuppressionWindow = DefaultSuppressionWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	id := "sk-" + uuid.NewString()[:8]
	return &Session{
		id:     id,
		cfg:    cfg,
		store:  store,
		w:      w,
		logger: logger.With("session", id, "dir", cfg.WatchDir),
	}
}

// ID returns the session's identifier.
func (s *Session) ID() string {
	return s.id
}

// WatchDir returns the directory the session protects.
func (s *Session) WatchDir() string {
	return s.cfg.WatchDir
}

// Run watches the save directory until ctx is cancelled. Every event
// is handled to completion before the next one is read; the watcher's
// channel buffers bursts. No error from handling a single event is
// ever returned — one bad save must not stop the session.
func (s *Session) Run(ctx context.Context) error {
	if err := s.w.Watch(s.cfg.WatchDir); err != nil {
		return errors.Wrapf(err, errors.CodeIO, "watch %s", s.cfg.WatchDir)
	}

	go s.w.Start(ctx) //nolint:errcheck // Start only returns on ctx cancellation

	s.logger.Info("guarding save directory", "pattern", s.cfg.SavePattern)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session stopped")
			return nil
		case event, ok := <-s.w.Events():
			if !ok {
				return nil
			}
			s.handleEvent(event)
		case err, ok := <-s.w.Errors():
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// handleEvent dispatches one watcher event. Panics are contained so a
// single pathological save cannot kill the loop.
func (s *Session) handleEvent(event watcher.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.stats.failures.Add(1)
			s.logger.Error("panic while handling event",
				"type", event.Type.String(),
				"path", event.Path,
				"panic", r,
			)
		}
	}()

	switch event.Type {
	case watcher.EventChanged:
		s.handleChanged(event.Path)
	case watcher.EventRemoved:
		s.handleDeleted(event.Path)
	}
}

// handleChanged backs up a save that was just written.
func (s *Session) handleChanged(path string) {
	name := filepath.Base(path)

	// Inside the suppression window the change is presumed to be the
	// echo of our own restore write. Best-effort heuristic: a genuine
	// unrelated change in the window is suppressed too.
	if s.suppressed() {
		s.stats.eventsSuppressed.Add(1)
		s.logger.Info("ignoring change inside suppression window", "save", name)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.store.Create(path)
	if err != nil {
		if errors.Is(err, errors.ErrFileLocked) {
			// Not retried; the next natural change event will try again.
			s.stats.eventsDropped.Add(1)
			s.logger.Warn("save stayed locked, dropping change event", "save", name, "error", err)
			return
		}
		s.stats.failures.Add(1)
		s.logger.Error("backup failed", "save", name, "error", err)
		return
	}

	s.stats.backupsCreated.Add(1)
	s.logger.Info("backup created",
		"save", name,
		"level", ref.Level.String(),
		"file", filepath.Base(ref.Path),
	)

	removed, err := s.store.EnforceRetention(name)
	if err != nil {
		s.logger.Warn("retention cleanup failed", "save", name, "error", err)
		return
	}
	s.stats.backupsPruned.Add(uint64(removed))
}

// handleDeleted restores the newest backup of a deleted save.
func (s *Session) handleDeleted(path string) {
	name := filepath.Base(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.restoreLocked(name, path)
	switch {
	case errors.Is(err, errors.ErrNoBackupFound):
		s.logger.Info("save deleted but no backups exist", "save", name)
	case err != nil:
		s.stats.failures.Add(1)
		s.logger.Error("restore failed", "save", name, "error", err)
	default:
		s.logger.Info("save restored",
			"save", name,
			"level", ref.Level.String(),
			"backup", filepath.Base(ref.Path),
		)
	}
}

// Restore brings back the newest backup of the named save on demand
// (the control API's manual restore). The same locking and
// suppression rules apply as for a deletion event.
func (s *Session) Restore(name string) (*backup.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.restoreLocked(name, filepath.Join(s.cfg.WatchDir, name))
}

// restoreLocked performs the restore with s.mu held. The suppression
// deadline is armed before the write so even an instantly-delivered
// change notification is swallowed, and re-armed after so the window
// runs its full length from the moment the write landed.
func (s *Session) restoreLocked(name, destPath string) (*backup.Ref, error) {
	s.armSuppression()

	ref, err := s.store.RestoreNewest(name, destPath)
	if err != nil {
		return nil, err
	}

	s.armSuppression()
	s.stats.restores.Add(1)
	return ref, nil
}

// armSuppression pushes the suppression deadline a full window into
// the future.
func (s *Session) armSuppression() {
	s.suppressUntil.Store(s.cfg.Clock().Add(s.cfg.SuppressionWindow).UnixNano())
}

// suppressed reports whether the suppression window is open. Read
// without the session lock; the deadline is atomic.
func (s *Session) suppressed() bool {
	return s.cfg.Clock().UnixNano() < s.suppressUntil.Load()
}

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() Stats {
	return Stats{
		BackupsCreated:   s.stats.backupsCreated.Load(),
		BackupsPruned:    s.stats.backupsPruned.Load(),
		Restores:         s.stats.restores.Load(),
		EventsSuppressed: s.stats.eventsSuppressed.Load(),
		EventsDropped:    s.stats.eventsDropped.Load(),
		Failures:         s.stats.failures.Load(),
	}
}

// Saves lists the watched save files with their backup coverage.
func (s *Session) Saves() ([]SaveInfo, error) {
	entries, err := os.ReadDir(s.cfg.WatchDir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "read save dir %s", s.cfg.WatchDir)
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, err := filepath.Match(s.cfg.SavePattern, entry.Name()); err != nil || !ok {
			continue
		}

		info := SaveInfo{Name: entry.Name()}
		if fi, err := entry.Info(); err == nil {
			info.Size = fi.Size()
			info.ModifiedAt = fi.ModTime()
		}

		refs, err := s.store.List(entry.Name())
		if err != nil {
			s.logger.Warn("failed to list backups", "save", entry.Name(), "error", err)
		}
		info.BackupCount = len(refs)
		for _, ref := range refs {
			if ref.CreatedAt.After(info.LastBackupAt) {
				info.LastBackupAt = ref.CreatedAt
			}
		}

		saves = append(saves, info)
	}
	return saves, nil
}
