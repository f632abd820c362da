package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration, loaded from a YAML file with a
// couple of environment fallbacks for containerized deployments.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Logging    LoggingConfig    `yaml:"logging"`
	Moderation ModerationConfig `yaml:"moderation"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":8080".
}

// DatabaseConfig holds the store connection settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // Postgres DSN/URL or SQLite path.
}

// UploadsConfig selects and configures the evidence blob backend.
type UploadsConfig struct {
	Backend   string `yaml:"backend"`    // "local" or "gcs".
	LocalDir  string `yaml:"local_dir"`  // Local backend: object directory.
	PublicURL string `yaml:"public_url"` // Local backend: URL prefix serving LocalDir.
	GCSBucket string `yaml:"gcs_bucket"` // GCS backend: bucket name.
	CDNDomain string `yaml:"cdn_domain"` // GCS backend: optional fronting domain.
}

// LoggingConfig controls logrus output and rotation.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // trace..panic; defaults to info.
	File       string `yaml:"file"`        // Log file path; empty logs to stdout.
	MaxSizeMB  int    `yaml:"max_size_mb"` // Rotate after this size.
	MaxBackups int    `yaml:"max_backups"` // Rotated files to keep.
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ModerationConfig tunes the submission workflow.
type ModerationConfig struct {
	// StrictDelete makes submission deletion decrement the artifact's
	// submission counter. The counter is an audit trail by default.
	StrictDelete bool `yaml:"strict_delete"`
}

// Load reads the config file at path. A missing file yields defaults so the
// service can boot from environment variables alone.
func Load(path string) (Config, error) {
	cfg := defaults()

	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errDecode := yaml.Unmarshal(data, &cfg); errDecode != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, errDecode)
			}
		case os.IsNotExist(errRead):
			// Fall through to env/defaults.
		default:
			return cfg, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ARTIFACTDB_DSN")); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Server.Addr = ":" + port
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return cfg, fmt.Errorf("config: database dsn is required (set database.dsn or ARTIFACTDB_DSN)")
	}
	switch cfg.Uploads.Backend {
	case "local", "gcs":
	default:
		return cfg, fmt.Errorf("config: unknown uploads backend %q", cfg.Uploads.Backend)
	}
	if cfg.Uploads.Backend == "gcs" && strings.TrimSpace(cfg.Uploads.GCSBucket) == "" {
		return cfg, fmt.Errorf("config: uploads.gcs_bucket is required for the gcs backend")
	}

	return cfg, nil
}

// defaults is the configuration used when the file sets nothing.
func defaults() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Uploads: UploadsConfig{
			Backend:   "local",
			LocalDir:  "data/uploads",
			PublicURL: "/uploads",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
