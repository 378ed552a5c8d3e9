package handlers

import (
	"context"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/services"
)

// KnowledgeBaseHandler handles knowledge base registry operations.
type KnowledgeBaseHandler struct {
	service *services.KnowledgeBaseService
}

// NewKnowledgeBaseHandler creates a new KnowledgeBaseHandler.
func NewKnowledgeBaseHandler(service *services.KnowledgeBaseService) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{service: service}
}

// EntitiesResult contains the live entities of a knowledge base.
type EntitiesResult struct {
	KnowledgeBase *entities.KnowledgeBase `json:"knowledge_base"`
	Entities      []entities.Entity       `json:"entities"`
}

// HandleCreate creates a knowledge base.
func (h *KnowledgeBaseHandler) HandleCreate(ctx context.Context, name, description string) (*entities.KnowledgeBase, error) {
	return h.service.Create(ctx, services.CreateKnowledgeBaseInput{
		Name:        name,
		Description: description,
	})
}

// HandleList returns every knowledge base.
func (h *KnowledgeBaseHandler) HandleList(ctx context.Context) ([]entities.KnowledgeBase, error) {
	return h.service.List(ctx)
}

// HandleShow returns a knowledge base by id or name.
func (h *KnowledgeBaseHandler) HandleShow(ctx context.Context, ref string) (*entities.KnowledgeBase, error) {
	return h.service.Resolve(ctx, ref)
}

// HandleEntities lists live entities, optionally of a single type. The type
// accepts the same aliases as entity keys.
func (h *KnowledgeBaseHandler) HandleEntities(ctx context.Context, ref, typ string) (*EntitiesResult, error) {
	kb, err := h.service.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	var t entities.EntityType
	if typ != "" {
		if t, err = parseEntityType(typ); err != nil {
			return nil, err
		}
	}

	list, err := h.service.ListEntities(ctx, kb.ID, t)
	if err != nil {
		return nil, err
	}
	return &EntitiesResult{KnowledgeBase: kb, Entities: list}, nil
}
