// Command syncd is the long-running sync daemon exposing the engine over
// HTTP.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/brewlab/brewsync/internal/api"
	"github.com/brewlab/brewsync/internal/backup"
	"github.com/brewlab/brewsync/internal/collector"
	"github.com/brewlab/brewsync/internal/crypto"
	"github.com/brewlab/brewsync/internal/engine"
	"github.com/brewlab/brewsync/internal/health"
	"github.com/brewlab/brewsync/internal/notify"
	"github.com/brewlab/brewsync/internal/queue"
	"github.com/brewlab/brewsync/internal/registry"
	"github.com/brewlab/brewsync/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("syncd failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := api.LoadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	n, err := st.RunMigrations()
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if n > 0 {
		slog.Info("applied migrations", "count", n)
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	masterKey, err := loadMasterKey(cfg)
	if err != nil {
		return err
	}

	var notifier notify.Notifier = notify.Discard{}
	if cfg.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.WebhookURL, cfg.WebhookSecret)
	}

	stores := collector.MemoryStores()
	col := collector.New(stores, st)
	eng := engine.New(st, col, notifier)
	qm := queue.NewManager(st, col)
	bm := backup.NewManager(st, stores, backend, backup.NewCodec(masterKey), notifier)
	hm := health.NewMonitor(st, eng)

	srv, err := api.NewServer(cfg, st, registry.New(st), eng, qm, bm, hm)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return err
	}
	slog.Info("syncd listening", "addr", cfg.ListenAddr, "db", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogger(cfg api.Config) {
	var level slog.Level
	switch cfg.SlogLevel() {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newBackend(cfg api.Config) (backup.Backend, error) {
	if cfg.S3Bucket != "" {
		b, err := backup.NewS3Backend(context.Background(), backup.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 backend: %w", err)
		}
		slog.Info("using s3 backup backend", "bucket", cfg.S3Bucket)
		return b, nil
	}
	b, err := backup.NewFileBackend(cfg.BlobDir)
	if err != nil {
		return nil, fmt.Errorf("file backend: %w", err)
	}
	return b, nil
}

// loadMasterKey decodes the configured backup master key. Without one a
// random key is generated; backups made with it cannot be decrypted after
// a restart, so this is only suitable for development.
func loadMasterKey(cfg api.Config) ([]byte, error) {
	if cfg.MasterKeyHex != "" {
		key, err := hex.DecodeString(cfg.MasterKeyHex)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("master key must be 64 hex characters")
		}
		return key, nil
	}
	slog.Warn("no master key configured, generating an ephemeral one")
	return crypto.GenerateMasterKey()
}
