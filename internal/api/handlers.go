package api

import (
	"encoding/json/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/savekeeperapp/savekeeper/internal/backup"
	domainerrors "github.com/savekeeperapp/savekeeper/internal/errors"
	"github.com/savekeeperapp/savekeeper/internal/guard"
	"github.com/savekeeperapp/savekeeper/internal/http/response"
)

// BackupResponse describes one stored backup.
type BackupResponse struct {
	File      string    `json:"file"`
	Save      string    `json:"save"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// RestoreRequest asks the session to restore the newest backup of a save.
type RestoreRequest struct {
	Save string `json:"save" validate:"required,max=255,excludesall=/\\"`
}

// RestoreResponse reports the backup a restore was served from.
type RestoreResponse struct {
	Save     string    `json:"save"`
	Restored time.Time `json:"restored_from"`
	Level    string    `json:"level"`
}

// SessionResponse reports session identity and counters.
type SessionResponse struct {
	ID       string      `json:"id"`
	WatchDir string      `json:"watch_dir"`
	Stats    guard.Stats `json:"stats"`
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status":  "healthy",
		"session": s.session.ID(),
	}, s.logger)
}

// handleGetSession returns the session's identity and statistics.
func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, SessionResponse{
		ID:       s.session.ID(),
		WatchDir: s.session.WatchDir(),
		Stats:    s.session.Stats(),
	}, s.logger)
}

// handleListSaves returns the watched saves and their backup coverage.
func (s *Server) handleListSaves(w http.ResponseWriter, _ *http.Request) {
	saves, err := s.session.Saves()
	if err != nil {
		s.logger.Error("Failed to list saves", "error", err)
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, saves, s.logger)
}

// handleListBackups returns all backups of one save, newest first.
func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		response.BadRequest(w, "Save name is required", s.logger)
		return
	}

	refs, err := s.store.List(name)
	if err != nil {
		s.logger.Error("Failed to list backups", "error", err, "save", name)
		response.HandleError(w, err, s.logger)
		return
	}

	out := make([]BackupResponse, 0, len(refs))
	// List returns oldest first; the API serves newest first.
	for i := len(refs) - 1; i >= 0; i-- {
		out = append(out, backupResponse(refs[i]))
	}

	response.Success(w, out, s.logger)
}

// handleRestore restores the newest backup of the requested save into
// the watched directory.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	if err := s.validator.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	ref, err := s.session.Restore(req.Save)
	if err != nil {
		if !domainerrors.Is(err, domainerrors.ErrNoBackupFound) {
			s.logger.Error("Manual restore failed", "error", err, "save", req.Save)
		}
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, RestoreResponse{
		Save:     ref.OriginalName,
		Restored: ref.CreatedAt,
		Level:    ref.Level.String(),
	}, s.logger)
}

func backupResponse(ref backup.Ref) BackupResponse {
	return BackupResponse{
		File:      ref.Path,
		Save:      ref.OriginalName,
		Level:     ref.Level.String(),
		CreatedAt: ref.CreatedAt,
	}
}
