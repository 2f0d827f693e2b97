package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/savekeeperapp/savekeeper/internal/api"
	"github.com/savekeeperapp/savekeeper/internal/backup"
	"github.com/savekeeperapp/savekeeper/internal/config"
	"github.com/savekeeperapp/savekeeper/internal/logger"
	"github.com/savekeeperapp/savekeeper/internal/validation"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the control API server. It is only
// invoked when the API is enabled in config.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*backup.Store](i)
	sessionHandle := do.MustInvoke[*SessionHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)

	handler := api.NewServer(sessionHandle.Session, store, validator, log.Logger)

	srv := &http.Server{
		Addr:         "127.0.0.1:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("Control API starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Control API error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
