package api

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := defaultsOnly(t)

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %s", cfg.ListenAddr)
	}
	if cfg.LogFormat != "json" || cfg.LogLevel != "info" {
		t.Errorf("log defaults = %s/%s", cfg.LogFormat, cfg.LogLevel)
	}
	if cfg.MaxBodyBytes != 10<<20 {
		t.Errorf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
}

func defaultsOnly(t *testing.T) Config {
	t.Helper()
	t.Setenv("BREWSYNC_CONFIG_FILE", "")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "syncd.yaml")
	body := "listen_addr: \":9090\"\nlog_level: debug\nmax_body_bytes: 2048\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BREWSYNC_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %s", cfg.ListenAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s", cfg.LogLevel)
	}
	if cfg.MaxBodyBytes != 2048 {
		t.Errorf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}
	// Untouched fields keep their defaults.
	if cfg.DBPath != "./data/brewsync.db" {
		t.Errorf("DBPath = %s", cfg.DBPath)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "syncd.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: \":9090\"\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BREWSYNC_CONFIG_FILE", path)
	t.Setenv("BREWSYNC_LISTEN_ADDR", ":7070")
	t.Setenv("BREWSYNC_S3_BUCKET", "brewsync-backups")
	t.Setenv("BREWSYNC_S3_USE_PATH_STYLE", "1")
	t.Setenv("BREWSYNC_SHUTDOWN_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddr != ":7070" {
		t.Errorf("env should win over file, got %s", cfg.ListenAddr)
	}
	if cfg.S3Bucket != "brewsync-backups" {
		t.Errorf("S3Bucket = %s", cfg.S3Bucket)
	}
	if !cfg.S3UsePathStyle {
		t.Error("S3UsePathStyle not set")
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
}

func TestLoadConfigBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "syncd.yaml")
	if err := os.WriteFile(path, []byte("listen_addr: [broken\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BREWSYNC_CONFIG_FILE", path)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]string{
		"debug": "debug",
		"WARN":  "warn",
		"":      "info",
		"loud":  "info",
	}
	for in, want := range cases {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %q, want %q", in, got, want)
		}
	}
}
