package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/ports"
)

// DefaultSearchLimit is used when a search asks for no limit.
const DefaultSearchLimit = 10

// ConceptIndex keeps a vector index of concept embeddings in step with live
// state. It is registered with the ChangeApplier as a cache invalidator.
type ConceptIndex struct {
	store    ports.Store
	embedder ports.Embedder
	vectors  ports.VectorDB
	logger   *slog.Logger
}

var _ ports.CacheInvalidator = (*ConceptIndex)(nil)

// NewConceptIndex creates a new ConceptIndex.
func NewConceptIndex(store ports.Store, embedder ports.Embedder, vectors ports.VectorDB, logger *slog.Logger) *ConceptIndex {
	return &ConceptIndex{
		store:    store,
		embedder: embedder,
		vectors:  vectors,
		logger:   loggerOrDiscard(logger),
	}
}

// Invalidate re-embeds the concepts a commit created or updated and drops
// the ones it deleted.
func (x *ConceptIndex) Invalidate(ctx context.Context, event entities.CommitEvent) error {
	var changed, deleted []int64
	for _, c := range event.Changes {
		if c.EntityType != entities.EntityConcept {
			continue
		}
		if c.Kind == entities.ChangeDelete {
			deleted = append(deleted, c.EntityID)
		} else {
			changed = append(changed, c.EntityID)
		}
	}

	if len(deleted) > 0 {
		if err := x.vectors.Delete(ctx, event.KnowledgeBaseID, deleted); err != nil {
			return fmt.Errorf("deleting concept vectors: %w", err)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	keys := make([]entities.EntityKey, len(changed))
	for i, id := range changed {
		keys[i] = entities.EntityKey{Type: entities.EntityConcept, ID: id}
	}
	var live entities.EntityMap
	err := x.store.View(ctx, func(tx ports.Tx) error {
		var err error
		live, err = liveEntities(ctx, tx, event.KnowledgeBaseID, keys)
		return err
	})
	if err != nil {
		return err
	}
	return x.index(ctx, event.KnowledgeBaseID, live.Entities())
}

// Rebuild re-embeds every live concept of the knowledge base.
func (x *ConceptIndex) Rebuild(ctx context.Context, kbID string) (int, error) {
	var concepts []entities.Entity
	err := x.store.View(ctx, func(tx ports.Tx) error {
		if _, err := getKnowledgeBase(ctx, tx, kbID); err != nil {
			return err
		}
		var err error
		concepts, err = tx.Entities(entities.EntityConcept).GetAll(ctx, kbID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if err := x.index(ctx, kbID, concepts); err != nil {
		return 0, err
	}
	x.logger.InfoContext(ctx, "concept index rebuilt", "knowledge_base", kbID, "concepts", len(concepts))
	return len(concepts), nil
}

// Search returns the concepts closest in meaning to query.
func (x *ConceptIndex) Search(ctx context.Context, kbID, query string, limit int) ([]entities.ConceptHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Validation("search query is required")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	embedding, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	hits, err := x.vectors.Search(ctx, kbID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("searching concepts: %w", err)
	}
	return hits, nil
}

func (x *ConceptIndex) index(ctx context.Context, kbID string, concepts []entities.Entity) error {
	if len(concepts) == 0 {
		return nil
	}

	texts := make([]string, len(concepts))
	for i, e := range concepts {
		texts[i] = conceptText(e.Fields)
	}
	embeddings, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding concepts: %w", err)
	}
	if len(embeddings) != len(concepts) {
		return fmt.Errorf("embedding concepts: got %d embeddings for %d concepts", len(embeddings), len(concepts))
	}

	vectors := make([]entities.ConceptVector, len(concepts))
	for i, e := range concepts {
		c, _ := e.Fields.(entities.ConceptFields)
		vectors[i] = entities.ConceptVector{
			KnowledgeBaseID: kbID,
			ConceptID:       e.Key.ID,
			Name:            c.Name,
			Category:        c.Category,
			Vector:          embeddings[i],
		}
	}
	if err := x.vectors.Upsert(ctx, vectors); err != nil {
		return fmt.Errorf("storing concept vectors: %w", err)
	}
	return nil
}

// conceptText is the text embedded for a concept.
func conceptText(f entities.Fields) string {
	c, ok := f.(entities.ConceptFields)
	if !ok {
		return entities.DisplayName(f)
	}
	parts := []string{c.Name}
	for _, s := range []string{c.Definition, c.SimpleExplanation, c.Examples} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
