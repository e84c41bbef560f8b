package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brewlab/brewsync/internal/engine"
	"github.com/brewlab/brewsync/internal/models"
	"github.com/brewlab/brewsync/internal/registry"
)

// userParam extracts the user id from the query string, writing a 400 when
// absent. User identity is caller-asserted; authentication sits in front
// of the daemon.
func userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "missing user parameter")
		return "", false
	}
	return user, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

type registerRequest struct {
	UserID string              `json:"user_id"`
	Device registry.DeviceInfo `json:"device"`
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "missing user_id")
		return
	}
	res, err := s.registry.RegisterDevice(req.UserID, req.Device)
	if err != nil {
		if errors.Is(err, models.ErrDeviceRejected) {
			// Rejections carry the recommendations alongside the error.
			writeJSON(w, http.StatusUnprocessableEntity, res)
			return
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	devices, err := s.registry.Devices(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveDevice(r.PathValue("id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	prefs, err := s.registry.GetPreferences(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs models.SyncPreferences
	if !decodeBody(w, r, &prefs) {
		return
	}
	if prefs.UserID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "missing user_id")
		return
	}
	res, err := s.registry.UpdatePreferences(prefs.UserID, &prefs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type syncRequest struct {
	UserID         string                  `json:"user_id"`
	SourceDeviceID string                  `json:"source_device_id"`
	TargetDeviceID string                  `json:"target_device_id"`
	Categories     []models.Category       `json:"categories,omitempty"`
	Strategy       models.ConflictStrategy `json:"strategy,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.engine.SyncUserData(r.Context(), req.UserID, req.SourceDeviceID, req.TargetDeviceID,
		engine.Options{Categories: req.Categories, Strategy: req.Strategy})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.metrics.RecordSession()
	s.metrics.RecordConflicts(int64(len(res.Conflicts)))
	writeJSON(w, http.StatusOK, res)
}

type offlineRequest struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
	IsOnline bool   `json:"is_online"`
}

func (s *Server) handleSyncOffline(w http.ResponseWriter, r *http.Request) {
	var req offlineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.queue.SyncOffline(r.Context(), req.UserID, req.DeviceID, req.IsOnline)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if req.IsOnline {
		s.metrics.RecordQueueDrain()
	}
	writeJSON(w, http.StatusOK, res)
}

type enqueueRequest struct {
	UserID    string             `json:"user_id"`
	DeviceID  string             `json:"device_id"`
	Category  models.Category    `json:"category"`
	Action    models.QueueAction `json:"action"`
	Payload   json.RawMessage    `json:"payload"`
	DependsOn []string           `json:"depends_on,omitempty"`
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !models.ValidCategory(string(req.Category)) {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "unknown category")
		return
	}
	item, err := s.queue.Enqueue(req.UserID, req.DeviceID, req.Category, req.Action, req.Payload, req.DependsOn)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListQueue(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device")
	if device == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "missing device parameter")
		return
	}
	items, err := s.store.PendingItems(device)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}
	conflicts, err := s.engine.PendingConflicts(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts})
}

type resolveRequest struct {
	UserID   string          `json:"user_id"`
	WinnerID string          `json:"winner_id,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
}

func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := s.engine.ResolvePendingConflict(r.Context(), req.UserID, r.PathValue("id"),
		engine.ManualDecision{WinnerID: req.WinnerID, Value: req.Value})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}
