package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/ports"
)

// CreateKnowledgeBaseInput holds the fields needed to create a knowledge base.
type CreateKnowledgeBaseInput struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

// KnowledgeBaseService manages knowledge bases and direct change batches.
type KnowledgeBaseService struct {
	store   ports.Store
	applier *ChangeApplier
	logger  *slog.Logger
}

// NewKnowledgeBaseService creates a new KnowledgeBaseService.
func NewKnowledgeBaseService(store ports.Store, applier *ChangeApplier, logger *slog.Logger) *KnowledgeBaseService {
	return &KnowledgeBaseService{
		store:   store,
		applier: applier,
		logger:  loggerOrDiscard(logger),
	}
}

// Create creates an empty knowledge base at version 0. Names are unique.
func (s *KnowledgeBaseService) Create(ctx context.Context, in CreateKnowledgeBaseInput) (*entities.KnowledgeBase, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var kb *entities.KnowledgeBase
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		existing, err := tx.KnowledgeBases().List(ctx)
		if err != nil {
			return fmt.Errorf("listing knowledge bases: %w", err)
		}
		for _, e := range existing {
			if strings.EqualFold(e.Name, in.Name) {
				return errs.Validation("knowledge base %q already exists", in.Name)
			}
		}

		now := timeNow()
		kb = &entities.KnowledgeBase{
			ID:          uuid.New().String(),
			Name:        in.Name,
			Description: in.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.KnowledgeBases().Create(ctx, kb); err != nil {
			return fmt.Errorf("creating knowledge base: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "knowledge base created", "knowledge_base", kb.ID, "name", kb.Name)
	return kb, nil
}

// Get returns a knowledge base by id.
func (s *KnowledgeBaseService) Get(ctx context.Context, id string) (*entities.KnowledgeBase, error) {
	var kb *entities.KnowledgeBase
	err := s.store.View(ctx, func(tx ports.Tx) error {
		var err error
		kb, err = getKnowledgeBase(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return kb, nil
}

// Resolve finds a knowledge base by id or by name.
func (s *KnowledgeBaseService) Resolve(ctx context.Context, ref string) (*entities.KnowledgeBase, error) {
	var kb *entities.KnowledgeBase
	err := s.store.View(ctx, func(tx ports.Tx) error {
		found, err := tx.KnowledgeBases().Get(ctx, ref)
		if err != nil {
			return fmt.Errorf("getting knowledge base: %w", err)
		}
		if found != nil {
			kb = found
			return nil
		}
		list, err := tx.KnowledgeBases().List(ctx)
		if err != nil {
			return fmt.Errorf("listing knowledge bases: %w", err)
		}
		for i := range list {
			if strings.EqualFold(list[i].Name, ref) {
				kb = &list[i]
				return nil
			}
		}
		return errs.NotFound("knowledge base", ref)
	})
	if err != nil {
		return nil, err
	}
	return kb, nil
}

// List returns every knowledge base ordered by name.
func (s *KnowledgeBaseService) List(ctx context.Context) ([]entities.KnowledgeBase, error) {
	var list []entities.KnowledgeBase
	err := s.store.View(ctx, func(tx ports.Tx) error {
		var err error
		list, err = tx.KnowledgeBases().List(ctx)
		if err != nil {
			return fmt.Errorf("listing knowledge bases: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListEntities returns the live entities of one type, or of every type when
// t is empty.
func (s *KnowledgeBaseService) ListEntities(ctx context.Context, kbID string, t entities.EntityType) ([]entities.Entity, error) {
	if t != "" && !t.IsValid() {
		return nil, errs.Validation("unknown entity type %q", t)
	}

	var list []entities.Entity
	err := s.store.View(ctx, func(tx ports.Tx) error {
		if _, err := getKnowledgeBase(ctx, tx, kbID); err != nil {
			return err
		}
		if t == "" {
			state, err := liveState(ctx, tx, kbID)
			if err != nil {
				return err
			}
			list = state.Entities()
			return nil
		}
		var err error
		list, err = tx.Entities(t).GetAll(ctx, kbID)
		if err != nil {
			return fmt.Errorf("listing %s entities: %w", t, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ApplyChanges commits a change batch directly, without a merge request.
func (s *KnowledgeBaseService) ApplyChanges(ctx context.Context, kbID string, changes []entities.Change, actorID string) (CommitResult, error) {
	return s.applier.Apply(ctx, Batch{
		KnowledgeBaseID: kbID,
		Changes:         changes,
		ActorID:         actorID,
		Operation:       entities.OperationApply,
	})
}
