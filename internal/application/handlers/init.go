// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/onto-core/internal/domain/ports"
	"github.com/ersonp/onto-core/internal/infrastructure/config"
	embedder "github.com/ersonp/onto-core/internal/infrastructure/embedder/openai"
)

// InitHandler handles project initialization.
type InitHandler struct {
	vectorDB ports.VectorDB
}

// NewInitHandler creates a new init handler. vectorDB may be nil when the
// concept index is not used.
func NewInitHandler(vectorDB ports.VectorDB) *InitHandler {
	return &InitHandler{
		vectorDB: vectorDB,
	}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath     string
	DatabasePath   string
	CollectionName string
}

// Handle writes the default config into basePath. When a vector database
// is configured the concept index is enabled in the written config and its
// collection is created.
func (h *InitHandler) Handle(ctx context.Context, basePath string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("onto already initialized in %s", basePath)
	}

	if h.vectorDB == nil {
		if err := config.WriteDefault(basePath); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	} else {
		def := config.Default()
		def.Index.Enabled = true
		if err := config.Write(basePath, def); err != nil {
			return nil, fmt.Errorf("writing config: %w", err)
		}
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	result := &InitResult{
		ConfigPath:   config.ConfigFilePath(basePath),
		DatabasePath: cfg.Database.Path,
	}

	if h.vectorDB != nil {
		if err := h.vectorDB.EnsureCollection(ctx, embedder.VectorSize); err != nil {
			return nil, fmt.Errorf("creating collection: %w", err)
		}
		result.CollectionName = cfg.Index.Collection
	}

	return result, nil
}
