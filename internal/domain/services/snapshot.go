package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/ports"
)

// SnapshotStore captures and retrieves immutable snapshots of a knowledge base.
type SnapshotStore struct {
	store ports.Store
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(store ports.Store) *SnapshotStore {
	return &SnapshotStore{store: store}
}

// Capture reads every live entity of the knowledge base together with its
// version counter and stores the result as a new snapshot.
func (s *SnapshotStore) Capture(ctx context.Context, kbID string) (*entities.Snapshot, error) {
	var snap *entities.Snapshot
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		var err error
		snap, err = captureTx(ctx, tx, kbID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Get returns a stored snapshot.
func (s *SnapshotStore) Get(ctx context.Context, id string) (*entities.Snapshot, error) {
	var snap *entities.Snapshot
	err := s.store.View(ctx, func(tx ports.Tx) error {
		var err error
		snap, err = getSnapshot(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func captureTx(ctx context.Context, tx ports.Tx, kbID string) (*entities.Snapshot, error) {
	kb, err := getKnowledgeBase(ctx, tx, kbID)
	if err != nil {
		return nil, err
	}

	state, err := liveState(ctx, tx, kbID)
	if err != nil {
		return nil, err
	}

	snap := &entities.Snapshot{
		ID:                uuid.New().String(),
		KnowledgeBaseID:   kbID,
		CapturedAtVersion: kb.Version,
		CapturedAt:        timeNow(),
		Entities:          state,
	}
	if err := tx.Snapshots().Create(ctx, snap); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return snap, nil
}

func getSnapshot(ctx context.Context, tx ports.Tx, id string) (*entities.Snapshot, error) {
	snap, err := tx.Snapshots().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	if snap == nil {
		return nil, errs.NotFound("snapshot", id)
	}
	return snap, nil
}

func getKnowledgeBase(ctx context.Context, tx ports.Tx, kbID string) (*entities.KnowledgeBase, error) {
	kb, err := tx.KnowledgeBases().Get(ctx, kbID)
	if err != nil {
		return nil, fmt.Errorf("getting knowledge base: %w", err)
	}
	if kb == nil {
		return nil, errs.NotFound("knowledge base", kbID)
	}
	return kb, nil
}

// liveState reads every live entity of the knowledge base.
func liveState(ctx context.Context, tx ports.Tx, kbID string) (entities.EntityMap, error) {
	state := make(entities.EntityMap)
	for _, t := range entities.EntityTypes {
		list, err := tx.Entities(t).GetAll(ctx, kbID)
		if err != nil {
			return nil, fmt.Errorf("reading %s entities: %w", t, err)
		}
		for _, e := range list {
			state[e.Key] = e.Fields
		}
	}
	return state, nil
}

// liveEntities reads the live state of just the given keys. Missing
// entities are absent from the result.
func liveEntities(ctx context.Context, tx ports.Tx, kbID string, keys []entities.EntityKey) (entities.EntityMap, error) {
	state := make(entities.EntityMap, len(keys))
	for _, k := range keys {
		f, err := tx.Entities(k.Type).GetByID(ctx, kbID, k.ID)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", k, err)
		}
		if f != nil {
			state[k] = f
		}
	}
	return state, nil
}
