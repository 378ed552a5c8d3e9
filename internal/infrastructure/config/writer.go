package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# onto-core configuration

database:
  path: .onto/onto.db
  # or set ONTO_DB_PATH

lock:
  timeout: 5s

server:
  addr: ":8080"

metrics:
  enabled: false

log:
  level: info
  format: text

notifications:
  timeout: 10s
  # webhook_url: https://example.com/hooks/onto (or set ONTO_WEBHOOK_URL)

index:
  enabled: false
  host: localhost
  port: 6334
  collection: onto_concepts
  # api_key: your-api-key (or set QDRANT_API_KEY)

embedder:
  provider: openai
  model: text-embedding-3-small
  # api_key: your-api-key (or set OPENAI_API_KEY env var)
`

// WriteDefault creates the .onto directory and writes a default config file.
func WriteDefault(basePath string) error {
	configFile := ConfigFilePath(basePath)

	if err := os.MkdirAll(ConfigDir(basePath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Write writes the given config to the config file.
func Write(basePath string, cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(basePath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(ConfigFilePath(basePath), data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Exists checks if an onto config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
