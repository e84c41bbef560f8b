package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg != (Config{}) {
		t.Errorf("missing file should load empty config, got %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := &Config{
		ServerURL: "http://localhost:8080",
		UserID:    "u1",
		DeviceID:  "dev_abc",
	}
	if err := Save(dir, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, &Config{UserID: "u1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != configFile {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, configFile), []byte("{nope"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for corrupt config")
	}
}

func TestUpdate(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, &Config{UserID: "u1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	err := Update(dir, func(c *Config) error {
		c.DeviceID = "dev_xyz"
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UserID != "u1" || cfg.DeviceID != "dev_xyz" {
		t.Errorf("update result = %+v", cfg)
	}
}

func TestUpdatePropagatesError(t *testing.T) {
	dir := t.TempDir()
	sentinel := errors.New("nope")
	err := Update(dir, func(c *Config) error {
		c.UserID = "mutated"
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UserID != "" {
		t.Error("failed update must not persist changes")
	}
}

func TestDirHonorsEnv(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("BREWSYNC_CONFIG_DIR", custom)
	got, err := Dir()
	if err != nil {
		t.Fatalf("dir: %v", err)
	}
	if got != custom {
		t.Errorf("Dir() = %s, want %s", got, custom)
	}
}
