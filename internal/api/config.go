package api

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the daemon configuration. Values load from an optional
// YAML file first, then environment variables override.
type Config struct {
	ListenAddr      string        `yaml:"listen_addr"`
	DBPath          string        `yaml:"db_path"`
	BlobDir         string        `yaml:"blob_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogFormat       string        `yaml:"log_format"` // "json" (default) or "text"
	LogLevel        string        `yaml:"log_level"`  // "debug", "info" (default), "warn", "error"

	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// Webhook endpoint for escalation and backup-failure notifications;
	// empty disables notifications.
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`

	// S3 blob store for backups; empty bucket keeps backups on disk.
	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3Prefix       string `yaml:"s3_prefix"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style"`

	// MasterKeyHex is the hex-encoded 32-byte key backups derive per-user
	// keys from.
	MasterKeyHex string `yaml:"master_key_hex"`
}

// LoadConfig reads configuration from an optional YAML file named by
// BREWSYNC_CONFIG_FILE (default ./syncd.yaml when present), then applies
// environment variable overrides.
func LoadConfig() (Config, error) {
	cfg := Config{
		ListenAddr:      ":8080",
		DBPath:          "./data/brewsync.db",
		BlobDir:         "./data/backups",
		ShutdownTimeout: 30 * time.Second,
		LogFormat:       "json",
		LogLevel:        "info",
		MaxBodyBytes:    10 << 20,
		S3Region:        "us-east-1",
	}

	path := os.Getenv("BREWSYNC_CONFIG_FILE")
	if path == "" {
		if _, err := os.Stat("./syncd.yaml"); err == nil {
			path = "./syncd.yaml"
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("BREWSYNC_LISTEN_ADDR", &cfg.ListenAddr)
	setString("BREWSYNC_DB_PATH", &cfg.DBPath)
	setString("BREWSYNC_BLOB_DIR", &cfg.BlobDir)
	setString("BREWSYNC_LOG_FORMAT", &cfg.LogFormat)
	setString("BREWSYNC_LOG_LEVEL", &cfg.LogLevel)
	setString("BREWSYNC_WEBHOOK_URL", &cfg.WebhookURL)
	setString("BREWSYNC_WEBHOOK_SECRET", &cfg.WebhookSecret)
	setString("BREWSYNC_S3_BUCKET", &cfg.S3Bucket)
	setString("BREWSYNC_S3_REGION", &cfg.S3Region)
	setString("BREWSYNC_S3_ENDPOINT", &cfg.S3Endpoint)
	setString("BREWSYNC_S3_PREFIX", &cfg.S3Prefix)
	setString("BREWSYNC_S3_ACCESS_KEY", &cfg.S3AccessKey)
	setString("BREWSYNC_S3_SECRET_KEY", &cfg.S3SecretKey)
	setString("BREWSYNC_MASTER_KEY", &cfg.MasterKeyHex)

	if v := os.Getenv("BREWSYNC_S3_USE_PATH_STYLE"); v == "true" || v == "1" {
		cfg.S3UsePathStyle = true
	}
	if v := os.Getenv("BREWSYNC_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("BREWSYNC_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxBodyBytes = n
		}
	}
}

// SlogLevel maps the configured level string to a slog.Level name the
// daemon understands; unknown values fall back to info.
func (c Config) SlogLevel() string {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		return strings.ToLower(c.LogLevel)
	}
	return "info"
}
