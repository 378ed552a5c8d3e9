package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/services"
)

// ErrIndexDisabled is returned by search operations when no concept index
// is configured.
var ErrIndexDisabled = errors.New("concept index is not enabled (set index.enabled in config)")

// SearchHandler handles concept search.
type SearchHandler struct {
	kbs   *services.KnowledgeBaseService
	index *services.ConceptIndex
}

// NewSearchHandler creates a new search handler. index may be nil.
func NewSearchHandler(kbs *services.KnowledgeBaseService, index *services.ConceptIndex) *SearchHandler {
	return &SearchHandler{
		kbs:   kbs,
		index: index,
	}
}

// SearchResult contains the result of a search.
type SearchResult struct {
	Query string                `json:"query"`
	Hits  []entities.ConceptHit `json:"hits"`
}

// Handle searches the concepts of a knowledge base by meaning.
func (h *SearchHandler) Handle(ctx context.Context, kbRef, query string, limit int) (*SearchResult, error) {
	if h.index == nil {
		return nil, ErrIndexDisabled
	}
	kb, err := h.kbs.Resolve(ctx, kbRef)
	if err != nil {
		return nil, err
	}

	hits, err := h.index.Search(ctx, kb.ID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching concepts: %w", err)
	}
	return &SearchResult{Query: query, Hits: hits}, nil
}

// HandleReindex rebuilds the concept index of a knowledge base and returns
// the number of concepts indexed.
func (h *SearchHandler) HandleReindex(ctx context.Context, kbRef string) (int, error) {
	if h.index == nil {
		return 0, ErrIndexDisabled
	}
	kb, err := h.kbs.Resolve(ctx, kbRef)
	if err != nil {
		return 0, err
	}
	return h.index.Rebuild(ctx, kb.ID)
}
