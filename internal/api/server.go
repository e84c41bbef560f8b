// Package api exposes the sync engine over HTTP for device clients.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/brewlab/brewsync/internal/backup"
	"github.com/brewlab/brewsync/internal/engine"
	"github.com/brewlab/brewsync/internal/health"
	"github.com/brewlab/brewsync/internal/queue"
	"github.com/brewlab/brewsync/internal/registry"
	"github.com/brewlab/brewsync/internal/store"
)

// Server is the HTTP API server for the sync daemon.
type Server struct {
	config   Config
	http     *http.Server
	store    *store.Store
	registry *registry.Registry
	engine   *engine.Engine
	queue    *queue.Manager
	backups  *backup.Manager
	health   *health.Monitor
	metrics  *Metrics
	cancel   context.CancelFunc
}

// NewServer creates a Server wiring the engine components together.
func NewServer(cfg Config, st *store.Store, reg *registry.Registry, eng *engine.Engine,
	qm *queue.Manager, bm *backup.Manager, hm *health.Monitor) (*Server, error) {
	s := &Server{
		config:   cfg,
		store:    st,
		registry: reg,
		engine:   eng,
		queue:    qm,
		backups:  bm,
		health:   hm,
		metrics:  NewMetrics(),
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()

	// Periodically prune applied queue items.
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("prune panic", "panic", r)
			}
		}()
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.store.PruneAppliedItems(time.Now().Add(-24 * time.Hour))
				if err != nil {
					slog.Error("prune applied queue items", "err", err)
				} else if n > 0 {
					slog.Info("pruned applied queue items", "count", n)
				}
			}
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.http.Shutdown(ctx)
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health & metrics
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /metricz", s.handleMetrics)

	// Devices
	mux.HandleFunc("POST /v1/devices/register", s.handleRegisterDevice)
	mux.HandleFunc("GET /v1/devices", s.handleListDevices)
	mux.HandleFunc("DELETE /v1/devices/{id}", s.handleRemoveDevice)

	// Preferences
	mux.HandleFunc("GET /v1/preferences", s.handleGetPreferences)
	mux.HandleFunc("PUT /v1/preferences", s.handleUpdatePreferences)

	// Sync
	mux.HandleFunc("POST /v1/sync", s.handleSync)
	mux.HandleFunc("POST /v1/sync/offline", s.handleSyncOffline)
	mux.HandleFunc("POST /v1/queue", s.handleEnqueue)
	mux.HandleFunc("GET /v1/queue", s.handleListQueue)

	// Conflicts
	mux.HandleFunc("GET /v1/conflicts", s.handleListConflicts)
	mux.HandleFunc("POST /v1/conflicts/{id}/resolve", s.handleResolveConflict)

	// Backups
	mux.HandleFunc("POST /v1/backups", s.handleCreateBackup)
	mux.HandleFunc("GET /v1/backups", s.handleListBackups)
	mux.HandleFunc("POST /v1/backups/{id}/restore", s.handleRestoreBackup)
	mux.HandleFunc("POST /v1/backups/{id}/verify", s.handleVerifyBackup)

	// Status
	mux.HandleFunc("GET /v1/status", s.handleStatus)

	return chain(mux, recoveryMiddleware, requestIDMiddleware,
		observeMiddleware(s.metrics), maxBytesMiddleware(s.config.MaxBodyBytes))
}

// handleHealthz returns a liveness response, pinging the engine DB.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics returns a snapshot of daemon metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
