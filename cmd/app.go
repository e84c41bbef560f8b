package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/brewlab/brewsync/internal/backup"
	"github.com/brewlab/brewsync/internal/collector"
	"github.com/brewlab/brewsync/internal/config"
	"github.com/brewlab/brewsync/internal/crypto"
	"github.com/brewlab/brewsync/internal/engine"
	"github.com/brewlab/brewsync/internal/health"
	"github.com/brewlab/brewsync/internal/notify"
	"github.com/brewlab/brewsync/internal/queue"
	"github.com/brewlab/brewsync/internal/registry"
	"github.com/brewlab/brewsync/internal/store"
)

// app bundles the engine components a CLI command needs. Commands run
// against the local engine database directly.
type app struct {
	cfg       *config.Config
	store     *store.Store
	registry  *registry.Registry
	collector *collector.Collector
	engine    *engine.Engine
	queue     *queue.Manager
	backups   *backup.Manager
	health    *health.Monitor
}

// openApp opens the local engine database and wires the components.
func openApp() (*app, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(configDir, "brewsync.db")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := st.RunMigrations(); err != nil {
		st.Close()
		return nil, err
	}

	blobDir := cfg.BlobDir
	if blobDir == "" {
		blobDir = filepath.Join(configDir, "backups")
	}
	backend, err := backup.NewFileBackend(blobDir)
	if err != nil {
		st.Close()
		return nil, err
	}

	masterKey, err := masterKey()
	if err != nil {
		st.Close()
		return nil, err
	}

	stores := collector.MemoryStores()
	col := collector.New(stores, st)
	eng := engine.New(st, col, notify.Discard{})
	bm := backup.NewManager(st, stores, backend, backup.NewCodec(masterKey), notify.Discard{})

	return &app{
		cfg:       cfg,
		store:     st,
		registry:  registry.New(st),
		collector: col,
		engine:    eng,
		queue:     queue.NewManager(st, col),
		backups:   bm,
		health:    health.NewMonitor(st, eng),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// masterKey resolves the backup master key: BREWSYNC_MASTER_KEY (hex)
// when set, otherwise derived from a passphrase prompted without echo.
// The Argon2 salt is persisted next to the config so the same passphrase
// derives the same key across runs.
func masterKey() ([]byte, error) {
	if v := os.Getenv("BREWSYNC_MASTER_KEY"); v != "" {
		key, err := hex.DecodeString(v)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("BREWSYNC_MASTER_KEY must be 64 hex characters")
		}
		return key, nil
	}

	fmt.Fprint(os.Stderr, "Backup passphrase: ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}

	saltPath := filepath.Join(configDir, "backup.salt")
	if salt, err := os.ReadFile(saltPath); err == nil {
		return crypto.DeriveKeyFromPassphraseWithSalt(string(pass), salt)
	}

	key, salt, err := crypto.DeriveKeyFromPassphrase(string(pass))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(saltPath, salt, 0600); err != nil {
		return nil, fmt.Errorf("persist salt: %w", err)
	}
	return key, nil
}
