package services

import (
	"fmt"
	"sort"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

// Diff computes the changes that turn before into after. Entities only in
// after become creates carrying every field, entities only in before become
// deletes carrying every field, and entities in both become updates carrying
// just the fields that differ. The result is ordered by entity type rank and
// entity id, so equal inputs always produce identical output.
func Diff(before, after entities.EntityMap) []entities.Change {
	keys := before.Keys()
	for _, k := range after.Keys() {
		if _, ok := before[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	changes := make([]entities.Change, 0)
	for _, k := range keys {
		b, inBefore := before[k]
		a, inAfter := after[k]

		switch {
		case inAfter && !inBefore:
			changes = append(changes, entities.Change{
				EntityType: k.Type,
				EntityID:   k.ID,
				Kind:       entities.ChangeCreate,
				After:      a.Values(),
			})
		case inBefore && !inAfter:
			changes = append(changes, entities.Change{
				EntityType: k.Type,
				EntityID:   k.ID,
				Kind:       entities.ChangeDelete,
				Before:     b.Values(),
			})
		default:
			if c, ok := diffFields(k, b, a); ok {
				changes = append(changes, c)
			}
		}
	}
	return changes
}

// diffFields returns an update holding only the differing fields.
func diffFields(k entities.EntityKey, before, after entities.Fields) (entities.Change, bool) {
	bv, av := before.Values(), after.Values()

	var b, a entities.FieldValues
	for name, v := range av {
		if entities.EqualValue(bv[name], v) {
			continue
		}
		if b == nil {
			b, a = entities.FieldValues{}, entities.FieldValues{}
		}
		b[name] = bv[name]
		a[name] = v
	}
	if a == nil {
		return entities.Change{}, false
	}
	return entities.Change{
		EntityType: k.Type,
		EntityID:   k.ID,
		Kind:       entities.ChangeUpdate,
		Before:     b,
		After:      a,
	}, true
}

// ApplyChanges applies changes to a copy of state in memory. Updates merge
// their after fields into the existing entity; an update of a missing entity
// builds it from the after fields alone.
func ApplyChanges(state entities.EntityMap, changes []entities.Change) (entities.EntityMap, error) {
	out := state.Clone()
	for _, c := range changes {
		k := c.Key()
		switch c.Kind {
		case entities.ChangeCreate:
			f, err := entities.FieldsFromValues(k.Type, c.After)
			if err != nil {
				return nil, fmt.Errorf("applying create %s: %w", k, err)
			}
			out[k] = f
		case entities.ChangeUpdate:
			cur, ok := out[k]
			if !ok {
				zero, err := entities.FieldsFromValues(k.Type, nil)
				if err != nil {
					return nil, fmt.Errorf("applying update %s: %w", k, err)
				}
				cur = zero
			}
			f, err := entities.MergeValues(cur, c.After)
			if err != nil {
				return nil, fmt.Errorf("applying update %s: %w", k, err)
			}
			out[k] = f
		case entities.ChangeDelete:
			delete(out, k)
		default:
			return nil, fmt.Errorf("unknown change kind %q", c.Kind)
		}
	}
	return out, nil
}

// foldHistory replays activity entries from an empty state.
func foldHistory(entries []entities.ActivityEntry) (entities.EntityMap, error) {
	changes := make([]entities.Change, len(entries))
	for i, e := range entries {
		changes[i] = e.Change()
	}
	return ApplyChanges(entities.EntityMap{}, changes)
}
