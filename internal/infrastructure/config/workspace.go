package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Workspace holds per-checkout CLI state (read/write), such as the knowledge
// base commands operate on when --kb is not given.
type Workspace struct {
	CurrentKB string `yaml:"current_kb,omitempty"`
	Actor     string `yaml:"actor,omitempty"`
}

// LoadWorkspace loads the workspace file from the .onto directory.
// A missing file yields an empty workspace.
func LoadWorkspace(basePath string) (*Workspace, error) {
	data, err := os.ReadFile(WorkspaceFilePath(basePath))
	if os.IsNotExist(err) {
		return &Workspace{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading workspace file: %w", err)
	}

	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("parsing workspace file: %w", err)
	}
	return &ws, nil
}

// Save writes the workspace file.
func (w *Workspace) Save(basePath string) error {
	if err := os.MkdirAll(ConfigDir(basePath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshaling workspace: %w", err)
	}

	if err := os.WriteFile(WorkspaceFilePath(basePath), data, 0600); err != nil {
		return fmt.Errorf("writing workspace file: %w", err)
	}
	return nil
}

// WorkspaceFilePath returns the path to the workspace file.
func WorkspaceFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultWorkspaceFile)
}
