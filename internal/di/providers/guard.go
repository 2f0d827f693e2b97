package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/samber/do/v2"

	"github.com/savekeeperapp/savekeeper/internal/backup"
	"github.com/savekeeperapp/savekeeper/internal/config"
	"github.com/savekeeperapp/savekeeper/internal/guard"
	"github.com/savekeeperapp/savekeeper/internal/logger"
	"github.com/savekeeperapp/savekeeper/internal/watcher"
)

// ProvideBackupStore provides the backup store for the watched directory.
func ProvideBackupStore(i do.Injector) (*backup.Store, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	store := backup.NewStore(backup.Config{
		Dir:        cfg.BackupDir(),
		MaxPerSave: cfg.Backup.MaxPerSave,
		MaxRetries: cfg.Backup.MaxRetries,
		RetryDelay: cfg.Backup.RetryDelay,
	}, log.Logger)

	log.Info("Backup store ready",
		"dir", store.Dir(),
		"max_per_save", store.MaxPerSave(),
	)

	return store, nil
}

// SessionHandle wraps the guard session with shutdown capability. The
// session's event loop runs in the background from the moment the
// handle is built.
type SessionHandle struct {
	*guard.Session
	w      *watcher.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *SessionHandle) Shutdown() error {
	h.cancel()
	<-h.done
	return h.w.Stop()
}

// ProvideSession provides the running guard session.
func ProvideSession(i do.Injector) (*SessionHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*backup.Store](i)

	if _, err := os.Stat(cfg.Watch.Dir); err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	w, err := watcher.New(log.Logger, watcher.Options{
		Pattern:     cfg.SavePattern(),
		SettleDelay: cfg.Watch.SettleDelay,
	})
	if err != nil {
		return nil, err
	}

	session := guard.NewSession(guard.Config{
		WatchDir:          cfg.Watch.Dir,
		SavePattern:       cfg.SavePattern(),
		SuppressionWindow: cfg.Watch.SuppressionWindow,
	}, store, w, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := session.Run(ctx); err != nil {
			log.Error("Session stopped with error", "error", err)
		}
	}()

	return &SessionHandle{
		Session: session,
		w:       w,
		cancel:  cancel,
		done:    done,
	}, nil
}
