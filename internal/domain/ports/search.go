package ports

import (
	"context"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorDB stores concept embeddings for semantic search.
type VectorDB interface {
	// EnsureCollection creates the collection if it doesn't exist.
	EnsureCollection(ctx context.Context, vectorSize uint64) error

	Upsert(ctx context.Context, vectors []entities.ConceptVector) error
	Delete(ctx context.Context, kbID string, conceptIDs []int64) error
	Search(ctx context.Context, kbID string, embedding []float32, limit int) ([]entities.ConceptHit, error)
}
