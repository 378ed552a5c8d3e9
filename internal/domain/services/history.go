package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/ports"
)

const (
	// DefaultHistoryPage is the page size used when take is 0.
	DefaultHistoryPage = 50
	// MaxHistoryPage caps the page size of a history request.
	MaxHistoryPage = 1000
)

// HistoryService browses the activity log and reverts to earlier versions.
type HistoryService struct {
	store   ports.Store
	applier *ChangeApplier
	logger  *slog.Logger
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(store ports.Store, applier *ChangeApplier, logger *slog.Logger) *HistoryService {
	return &HistoryService{
		store:   store,
		applier: applier,
		logger:  loggerOrDiscard(logger),
	}
}

// GetHistory returns a page of activity entries, newest first.
func (s *HistoryService) GetHistory(ctx context.Context, kbID string, skip, take int) ([]entities.ActivityEntry, error) {
	if skip < 0 {
		return nil, errs.Validation("skip must not be negative")
	}
	if take < 0 || take > MaxHistoryPage {
		return nil, errs.Validation("take must be between 0 and %d", MaxHistoryPage)
	}
	if take == 0 {
		take = DefaultHistoryPage
	}

	var entries []entities.ActivityEntry
	err := s.store.View(ctx, func(tx ports.Tx) error {
		if _, err := getKnowledgeBase(ctx, tx, kbID); err != nil {
			return err
		}
		var err error
		entries, err = tx.Activity().List(ctx, kbID, skip, take)
		if err != nil {
			return fmt.Errorf("listing activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CompareVersions returns the changes that turn the state at version from
// into the state at version to.
func (s *HistoryService) CompareVersions(ctx context.Context, kbID string, from, to int64) ([]entities.Change, error) {
	var changes []entities.Change
	err := s.store.View(ctx, func(tx ports.Tx) error {
		kb, err := getKnowledgeBase(ctx, tx, kbID)
		if err != nil {
			return err
		}
		before, err := stateAt(ctx, tx, kb, from)
		if err != nil {
			return err
		}
		after, err := stateAt(ctx, tx, kb, to)
		if err != nil {
			return err
		}
		changes = Diff(before, after)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// StateAt rebuilds the entity state of the knowledge base at a version by
// replaying its activity log.
func (s *HistoryService) StateAt(ctx context.Context, kbID string, version int64) (entities.EntityMap, error) {
	var state entities.EntityMap
	err := s.store.View(ctx, func(tx ports.Tx) error {
		kb, err := getKnowledgeBase(ctx, tx, kbID)
		if err != nil {
			return err
		}
		state, err = stateAt(ctx, tx, kb, version)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// RevertToVersion commits, as one new version, the changes that restore
// every entity touched after target to its state at target. History is
// never rewritten. Reverting to the current version commits nothing.
func (s *HistoryService) RevertToVersion(ctx context.Context, kbID string, target int64, actorID string) (CommitResult, error) {
	if target < 0 {
		return CommitResult{}, errs.Validation("target version must not be negative")
	}

	batch := Batch{
		KnowledgeBaseID: kbID,
		ActorID:         actorID,
		Operation:       entities.OperationRevert,
		AllowEmpty:      true,
	}

	prepare := func(ctx context.Context, tx ports.Tx, kb *entities.KnowledgeBase) ([]entities.Change, error) {
		if target > kb.Version {
			return nil, errs.NotFound("version", strconv.FormatInt(target, 10))
		}

		later, err := tx.Activity().ListAfter(ctx, kb.ID, target)
		if err != nil {
			return nil, fmt.Errorf("listing activity: %w", err)
		}
		touched := touchedKeys(later)

		earlier, err := tx.Activity().ListUpTo(ctx, kb.ID, target)
		if err != nil {
			return nil, fmt.Errorf("listing activity: %w", err)
		}
		past, err := foldHistory(earlier)
		if err != nil {
			return nil, fmt.Errorf("replaying history: %w", err)
		}

		live, err := liveEntities(ctx, tx, kb.ID, touched)
		if err != nil {
			return nil, err
		}
		return Diff(live, restrict(past, touched)), nil
	}

	result, err := s.applier.ApplyWith(ctx, batch, prepare, nil)
	if err != nil {
		return CommitResult{}, err
	}
	s.logger.InfoContext(ctx, "reverted knowledge base",
		"knowledge_base", kbID,
		"target", target,
		"version", result.Version,
		"committed", result.Committed,
	)
	return result, nil
}

func stateAt(ctx context.Context, tx ports.Tx, kb *entities.KnowledgeBase, version int64) (entities.EntityMap, error) {
	if version < 0 || version > kb.Version {
		return nil, errs.NotFound("version", strconv.FormatInt(version, 10))
	}
	entries, err := tx.Activity().ListUpTo(ctx, kb.ID, version)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	state, err := foldHistory(entries)
	if err != nil {
		return nil, fmt.Errorf("replaying history: %w", err)
	}
	return state, nil
}

// touchedKeys returns the distinct entities the entries changed.
func touchedKeys(entries []entities.ActivityEntry) []entities.EntityKey {
	seen := make(map[entities.EntityKey]bool, len(entries))
	keys := make([]entities.EntityKey, 0, len(entries))
	for _, e := range entries {
		k := entities.EntityKey{Type: e.EntityType, ID: e.EntityID}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func restrict(state entities.EntityMap, keys []entities.EntityKey) entities.EntityMap {
	out := make(entities.EntityMap, len(keys))
	for _, k := range keys {
		if f, ok := state[k]; ok {
			out[k] = f
		}
	}
	return out
}
