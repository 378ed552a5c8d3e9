package services

import (
	"context"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/ports"
)

// detectConflicts checks every change against the live entity it targets.
// When every change still fits, it also checks that no reference would be
// left dangling once the changes land. The result is sorted by entity and
// field.
func detectConflicts(ctx context.Context, tx ports.Tx, kbID string, changes []entities.Change) ([]entities.Conflict, error) {
	keys := make([]entities.EntityKey, 0, len(changes))
	for _, c := range changes {
		if c.EntityID != 0 {
			keys = append(keys, c.Key())
		}
	}
	live, err := liveEntities(ctx, tx, kbID, keys)
	if err != nil {
		return nil, err
	}

	conflicts := make([]entities.Conflict, 0)
	for _, c := range changes {
		if c.EntityID == 0 {
			continue
		}
		conflicts = append(conflicts, conflictsFor(c, live[c.Key()])...)
	}
	if len(conflicts) == 0 {
		if conflicts, err = referenceConflicts(ctx, tx, kbID, changes); err != nil {
			return nil, err
		}
	}
	entities.SortConflicts(conflicts)
	return conflicts, nil
}

// referenceConflicts applies changes to the live state and reports every
// reference of the result whose target is gone. Each line sits on the
// referencing entity and carries the missing key as Expected. Kind is the
// change to the referencing entity, or the delete that removed the target.
func referenceConflicts(ctx context.Context, tx ports.Tx, kbID string, changes []entities.Change) ([]entities.Conflict, error) {
	live, err := liveState(ctx, tx, kbID)
	if err != nil {
		return nil, err
	}
	after, err := ApplyChanges(live, changes)
	if err != nil {
		return nil, errs.Validation("%w", err)
	}

	kinds := make(map[entities.EntityKey]entities.ChangeKind, len(changes))
	for _, c := range changes {
		kinds[c.Key()] = c.Kind
	}

	conflicts := make([]entities.Conflict, 0)
	for _, k := range after.Keys() {
		for _, ref := range entities.ReferenceFields(after[k]) {
			if _, ok := after[ref.Key]; ok {
				continue
			}
			kind, ok := kinds[k]
			if !ok {
				kind = kinds[ref.Key]
			}
			conflicts = append(conflicts, entities.Conflict{
				EntityType: k.Type,
				EntityID:   k.ID,
				Field:      ref.Field,
				Kind:       kind,
				Reason:     entities.ConflictMissing,
				Expected:   ref.Key.String(),
			})
		}
	}
	return conflicts, nil
}

// conflictsFor compares one change with the live entity, which is nil when
// the entity does not exist. A create conflicts with an existing entity;
// updates and deletes conflict with a missing entity or with any recorded
// before value that no longer matches live state.
func conflictsFor(c entities.Change, live entities.Fields) []entities.Conflict {
	base := entities.Conflict{
		EntityType: c.EntityType,
		EntityID:   c.EntityID,
		Kind:       c.Kind,
	}

	if c.Kind == entities.ChangeCreate {
		if live == nil {
			return nil
		}
		base.Reason = entities.ConflictExists
		base.Actual = live.Values()
		return []entities.Conflict{base}
	}

	if live == nil {
		base.Reason = entities.ConflictMissing
		base.Expected = c.Before
		return []entities.Conflict{base}
	}

	values := live.Values()
	var out []entities.Conflict
	for _, name := range c.Before.Names() {
		if entities.EqualValue(c.Before[name], values[name]) {
			continue
		}
		conflict := base
		conflict.Field = name
		conflict.Reason = entities.ConflictModified
		conflict.Expected = c.Before[name]
		conflict.Actual = values[name]
		out = append(out, conflict)
	}
	return out
}
