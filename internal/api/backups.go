package api

import (
	"net/http"

	"github.com/brewlab/brewsync/internal/backup"
	"github.com/brewlab/brewsync/internal/models"
)

type createBackupRequest struct {
	UserID string            `json:"user_id"`
	Type   models.BackupType `json:"type"`
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	var req createBackupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Type == "" {
		req.Type = models.BackupFull
	}
	switch req.Type {
	case models.BackupFull, models.BackupIncremental, models.BackupDifferential:
	default:
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "unknown backup type")
		return
	}
	res, err := s.backups.CreateBackup(r.Context(), req.UserID, req.Type)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordBackup()
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	backups, err := s.backups.List(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": backups})
}

type restoreRequest struct {
	UserID        string            `json:"user_id"`
	PreserveLocal bool              `json:"preserve_local"`
	Categories    []models.Category `json:"categories,omitempty"`
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.backups.RestoreBackup(r.Context(), req.UserID, r.PathValue("id"), backup.RestoreOptions{
		PreserveLocal: req.PreserveLocal,
		Categories:    req.Categories,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVerifyBackup(w http.ResponseWriter, r *http.Request) {
	ok, err := s.backups.VerifyBackup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": ok})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	st, err := s.health.GetSyncStatus(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
