// Package config manages the CLI's local configuration file at
// ~/.config/brewsync/config.json. Writes are atomic and serialized with
// an flock so concurrent invocations never corrupt the file.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const (
	configFile = "config.json"
	lockFile   = "config.json.lock"
)

// Config is the CLI's persisted state.
type Config struct {
	// ServerURL is the sync daemon's base URL.
	ServerURL string `json:"server_url,omitempty"`
	// UserID is the default user for commands that take none.
	UserID string `json:"user_id,omitempty"`
	// DeviceID is this machine's registered device id.
	DeviceID string `json:"device_id,omitempty"`
	// DBPath overrides the local engine database location.
	DBPath string `json:"db_path,omitempty"`
	// BlobDir overrides where file-backed backups live.
	BlobDir string `json:"blob_dir,omitempty"`
}

// Dir returns the config directory, honoring BREWSYNC_CONFIG_DIR.
func Dir() (string, error) {
	if d := os.Getenv("BREWSYNC_CONFIG_DIR"); d != "" {
		return d, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "brewsync"), nil
}

// Load reads the config from disk. A missing file is an empty config.
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to disk using atomic write (temp file + rename).
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, filepath.Join(dir, configFile))
}

// Update applies fn to the current config and saves the result, holding
// the lock across the read-modify-write.
func Update(dir string, fn func(*Config) error) error {
	return withLock(dir, func() error {
		cfg, err := Load(dir)
		if err != nil {
			return err
		}
		if err := fn(cfg); err != nil {
			return err
		}
		return Save(dir, cfg)
	})
}

// withLock serializes access to the config file using flock.
func withLock(dir string, fn func() error) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, lockFile), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return err
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return fn()
}
