package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/ports"
)

// Batch is a set of changes committed as one version.
type Batch struct {
	KnowledgeBaseID string
	Changes         []entities.Change
	ActorID         string
	MergeRequestID  string
	Operation       entities.CommitOperation

	// AllowEmpty turns an empty batch into a no-op instead of a validation error.
	AllowEmpty bool
}

// CommitResult describes the outcome of a commit.
type CommitResult struct {
	// Version is the new version, or the unchanged current version when
	// nothing was committed.
	Version   int64             `json:"version"`
	Committed bool              `json:"committed"`
	Changes   []entities.Change `json:"changes"`
}

// PrepareFunc produces the changes of a batch inside the commit
// transaction, after the knowledge base lock is held. Its errors are
// returned to the caller unchanged.
type PrepareFunc func(ctx context.Context, tx ports.Tx, kb *entities.KnowledgeBase) ([]entities.Change, error)

// FinishFunc runs in the commit transaction after the changes are applied.
type FinishFunc func(ctx context.Context, tx ports.Tx, version int64) error

// ApplierOptions holds the optional collaborators of a ChangeApplier.
type ApplierOptions struct {
	Invalidators []ports.CacheInvalidator
	Sink         ports.NotificationSink
	Recorder     ports.Recorder
	Logger       *slog.Logger
}

// ChangeApplier commits change batches to live state. Every commit holds the
// knowledge base lock and runs in one transaction that applies the changes,
// appends their activity entries and advances the version by one.
type ChangeApplier struct {
	store        ports.Store
	locker       ports.Locker
	invalidators []ports.CacheInvalidator
	sink         ports.NotificationSink
	recorder     ports.Recorder
	logger       *slog.Logger
}

// NewChangeApplier creates a new ChangeApplier.
func NewChangeApplier(store ports.Store, locker ports.Locker, opts ApplierOptions) *ChangeApplier {
	return &ChangeApplier{
		store:        store,
		locker:       locker,
		invalidators: opts.Invalidators,
		sink:         opts.Sink,
		recorder:     recorderOrNop(opts.Recorder),
		logger:       loggerOrDiscard(opts.Logger),
	}
}

// Apply validates and commits b.Changes.
func (a *ChangeApplier) Apply(ctx context.Context, b Batch) (CommitResult, error) {
	if err := entities.ValidateChanges(b.Changes); err != nil {
		return CommitResult{}, errs.Validation("invalid change batch: %w", err)
	}
	if len(b.Changes) == 0 && !b.AllowEmpty {
		return CommitResult{}, errs.Validation("no changes to apply")
	}
	return a.ApplyWith(ctx, b, nil, nil)
}

// ApplyWith commits the changes returned by prepare, or b.Changes when
// prepare is nil. Any failure after prepare rolls the whole batch back and is
// reported as errs.ErrApplyFailure.
func (a *ChangeApplier) ApplyWith(ctx context.Context, b Batch, prepare PrepareFunc, finish FinishFunc) (CommitResult, error) {
	if b.KnowledgeBaseID == "" {
		return CommitResult{}, errs.Validation("knowledge base id is required")
	}
	if b.ActorID == "" {
		return CommitResult{}, errs.Validation("actor id is required")
	}
	if b.Operation == "" {
		b.Operation = entities.OperationApply
	}

	start := timeNow()
	release, err := a.locker.Acquire(ctx, b.KnowledgeBaseID)
	a.recorder.ObserveLockWait(err == nil, timeNow().Sub(start))
	if err != nil {
		if errors.Is(err, errs.ErrConcurrencyTimeout) {
			a.logger.WarnContext(ctx, "knowledge base lock timed out",
				"knowledge_base", b.KnowledgeBaseID, "operation", b.Operation)
		}
		a.recorder.ObserveCommit(string(b.Operation), false, timeNow().Sub(start))
		return CommitResult{}, err
	}
	defer release()

	// A started commit runs to completion regardless of the caller.
	ctx = context.WithoutCancel(ctx)

	var result CommitResult
	prepared := false
	err = a.store.Update(ctx, func(tx ports.Tx) error {
		kb, err := getKnowledgeBase(ctx, tx, b.KnowledgeBaseID)
		if err != nil {
			return err
		}

		changes := b.Changes
		if prepare != nil {
			if changes, err = prepare(ctx, tx, kb); err != nil {
				return err
			}
			if err := entities.ValidateChanges(changes); err != nil {
				return errs.Validation("invalid change batch: %w", err)
			}
		}
		if len(changes) == 0 {
			if b.AllowEmpty {
				result = CommitResult{Version: kb.Version, Changes: []entities.Change{}}
				return nil
			}
			return errs.Validation("no changes to apply")
		}
		prepared = true

		version := kb.Version + 1
		applied, err := applyOrdered(ctx, tx, kb.ID, changes)
		if err != nil {
			return err
		}
		if err := tx.Activity().Append(ctx, activityEntries(b, version, applied)); err != nil {
			return fmt.Errorf("appending activity: %w", err)
		}
		if err := tx.KnowledgeBases().SetVersion(ctx, kb.ID, kb.Version, version); err != nil {
			return fmt.Errorf("advancing version: %w", err)
		}
		if finish != nil {
			if err := finish(ctx, tx, version); err != nil {
				return err
			}
		}

		result = CommitResult{Version: version, Committed: true, Changes: applied}
		return nil
	})
	if err != nil {
		if prepared {
			err = errs.ApplyFailure(err)
			a.logger.ErrorContext(ctx, "commit rolled back",
				"knowledge_base", b.KnowledgeBaseID, "operation", b.Operation, "error", err)
		}
		a.recorder.ObserveCommit(string(b.Operation), false, timeNow().Sub(start))
		return CommitResult{}, err
	}
	a.recorder.ObserveCommit(string(b.Operation), true, timeNow().Sub(start))

	if result.Committed {
		a.afterCommit(ctx, b, result)
	}
	return result, nil
}

// afterCommit invalidates caches while the lock is still held, then
// notifies. Neither can undo the commit.
func (a *ChangeApplier) afterCommit(ctx context.Context, b Batch, result CommitResult) {
	event := entities.CommitEvent{
		KnowledgeBaseID: b.KnowledgeBaseID,
		Version:         result.Version,
		Operation:       b.Operation,
		ActorID:         b.ActorID,
		MergeRequestID:  b.MergeRequestID,
		Changes:         result.Changes,
		CommittedAt:     timeNow(),
	}

	a.logger.InfoContext(ctx, "committed version",
		"knowledge_base", b.KnowledgeBaseID,
		"version", result.Version,
		"operation", b.Operation,
		"changes", len(result.Changes),
	)

	for _, inv := range a.invalidators {
		if err := inv.Invalidate(ctx, event); err != nil {
			a.logger.ErrorContext(ctx, "invalidating cache",
				"knowledge_base", b.KnowledgeBaseID, "version", result.Version, "error", err)
		}
	}

	if a.sink != nil {
		a.sink.Notify(ctx, entities.Notification{
			Kind:            entities.NotifyCommitted,
			KnowledgeBaseID: b.KnowledgeBaseID,
			MergeRequestID:  b.MergeRequestID,
			Version:         result.Version,
			ActorID:         b.ActorID,
			ChangeCount:     len(result.Changes),
			OccurredAt:      event.CommittedAt,
		})
	}
}

// applyOrdered applies creates in dependency order, then updates, then
// deletes in reverse dependency order. It returns the changes as applied:
// allocated ids filled in and before values read from live state.
func applyOrdered(ctx context.Context, tx ports.Tx, kbID string, changes []entities.Change) ([]entities.Change, error) {
	var creates, updates, deletes []entities.Change
	for _, c := range changes {
		switch c.Kind {
		case entities.ChangeCreate:
			creates = append(creates, c)
		case entities.ChangeUpdate:
			updates = append(updates, c)
		case entities.ChangeDelete:
			deletes = append(deletes, c)
		}
	}
	sort.SliceStable(creates, func(i, j int) bool {
		return creates[i].EntityType.Rank() < creates[j].EntityType.Rank()
	})
	entities.SortChanges(updates)
	sort.SliceStable(deletes, func(i, j int) bool {
		ri, rj := deletes[i].EntityType.Rank(), deletes[j].EntityType.Rank()
		if ri != rj {
			return ri > rj
		}
		return deletes[i].EntityID < deletes[j].EntityID
	})

	applied := make([]entities.Change, 0, len(changes))
	for _, group := range [][]entities.Change{creates, updates, deletes} {
		for _, c := range group {
			done, err := applyOne(ctx, tx, kbID, c)
			if err != nil {
				return nil, err
			}
			applied = append(applied, done)
		}
	}
	return applied, nil
}

func applyOne(ctx context.Context, tx ports.Tx, kbID string, c entities.Change) (entities.Change, error) {
	repo := tx.Entities(c.EntityType)

	switch c.Kind {
	case entities.ChangeCreate:
		if c.EntityID == 0 {
			id, err := repo.NextID(ctx, kbID)
			if err != nil {
				return c, fmt.Errorf("allocating %s id: %w", c.EntityType, err)
			}
			c.EntityID = id
		}
		fields, err := entities.FieldsFromValues(c.EntityType, c.After)
		if err != nil {
			return c, fmt.Errorf("create %s: %w", c.Key(), err)
		}
		if err := repo.Create(ctx, kbID, c.EntityID, fields); err != nil {
			return c, fmt.Errorf("create %s: %w", c.Key(), err)
		}
		return entities.Change{
			EntityType: c.EntityType,
			EntityID:   c.EntityID,
			Kind:       entities.ChangeCreate,
			After:      fields.Values(),
		}, nil

	case entities.ChangeUpdate:
		cur, err := repo.GetByID(ctx, kbID, c.EntityID)
		if err != nil {
			return c, fmt.Errorf("update %s: %w", c.Key(), err)
		}
		if cur == nil {
			return c, fmt.Errorf("update %s: entity does not exist", c.Key())
		}
		next, err := entities.MergeValues(cur, c.After)
		if err != nil {
			return c, fmt.Errorf("update %s: %w", c.Key(), err)
		}
		if err := repo.Update(ctx, kbID, c.EntityID, next); err != nil {
			return c, fmt.Errorf("update %s: %w", c.Key(), err)
		}
		curValues, nextValues := cur.Values(), next.Values()
		done := entities.Change{
			EntityType: c.EntityType,
			EntityID:   c.EntityID,
			Kind:       entities.ChangeUpdate,
			Before:     make(entities.FieldValues, len(c.After)),
			After:      make(entities.FieldValues, len(c.After)),
		}
		for name := range c.After {
			done.Before[name] = curValues[name]
			done.After[name] = nextValues[name]
		}
		return done, nil

	case entities.ChangeDelete:
		cur, err := repo.GetByID(ctx, kbID, c.EntityID)
		if err != nil {
			return c, fmt.Errorf("delete %s: %w", c.Key(), err)
		}
		if cur == nil {
			return c, fmt.Errorf("delete %s: entity does not exist", c.Key())
		}
		if err := repo.Delete(ctx, kbID, c.EntityID); err != nil {
			return c, fmt.Errorf("delete %s: %w", c.Key(), err)
		}
		return entities.Change{
			EntityType: c.EntityType,
			EntityID:   c.EntityID,
			Kind:       entities.ChangeDelete,
			Before:     cur.Values(),
		}, nil
	}
	return c, fmt.Errorf("unknown change kind %q", c.Kind)
}

func activityEntries(b Batch, version int64, applied []entities.Change) []entities.ActivityEntry {
	now := timeNow()
	entries := make([]entities.ActivityEntry, len(applied))
	for i, c := range applied {
		entries[i] = entities.ActivityEntry{
			ID:              uuid.New().String(),
			KnowledgeBaseID: b.KnowledgeBaseID,
			VersionNumber:   version,
			Seq:             i,
			EntityType:      c.EntityType,
			EntityID:        c.EntityID,
			Kind:            c.Kind,
			Before:          c.Before,
			After:           c.After,
			ActorID:         b.ActorID,
			MergeRequestID:  b.MergeRequestID,
			Timestamp:       now,
		}
	}
	return entries
}
