// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for onto configuration.
	DefaultConfigDir = ".onto"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultWorkspaceFile is the default workspace file name.
	DefaultWorkspaceFile = "workspace.yaml"
	// DefaultDatabaseFile is the database file name used when no path is configured.
	DefaultDatabaseFile = "onto.db"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Database      SQLiteConfig       `yaml:"database,omitempty"`
	Lock          LockConfig         `yaml:"lock,omitempty"`
	Server        ServerConfig       `yaml:"server,omitempty"`
	Metrics       MetricsConfig      `yaml:"metrics,omitempty"`
	Log           LogConfig          `yaml:"log,omitempty"`
	Notifications NotificationConfig `yaml:"notifications,omitempty"`
	Index         QdrantConfig       `yaml:"index,omitempty"`
	Embedder      EmbedderConfig     `yaml:"embedder,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite store.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database, or ":memory:".
	// Relative paths are resolved against the project directory.
	Path string `yaml:"path,omitempty"`
}

// LockConfig bounds how long a mutation waits for the knowledge base lock.
type LockConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ServerConfig holds configuration for the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// MetricsConfig toggles the Prometheus recorder.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig holds configuration for structured logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// NotificationConfig holds configuration for outbound notifications.
type NotificationConfig struct {
	WebhookURL string        `yaml:"webhook_url,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// QdrantConfig holds configuration for the Qdrant concept index.
type QdrantConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	// BaseURL points the client at an OpenAI compatible endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Lock: LockConfig{
			Timeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Notifications: NotificationConfig{
			Timeout: 10 * time.Second,
		},
		Index: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "onto_concepts",
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
	}
}

// Load loads configuration from the .onto directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'onto init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if cfg.Database.Path == "" {
		cfg.Database.Path = DatabasePath(basePath)
	} else if cfg.Database.Path != ":memory:" && !filepath.IsAbs(cfg.Database.Path) {
		cfg.Database.Path = filepath.Join(basePath, cfg.Database.Path)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("ONTO_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if url := os.Getenv("ONTO_WEBHOOK_URL"); url != "" {
		c.Notifications.WebhookURL = url
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		if c.Index.APIKey == "" {
			c.Index.APIKey = key
		}
	}
}

// ConfigDir returns the path to the .onto config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// DatabasePath returns the default database path for a project.
func DatabasePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultDatabaseFile)
}
