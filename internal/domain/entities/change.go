package entities

import (
	"errors"
	"fmt"
	"sort"
)

// ChangeKind is the operation a Change performs on one entity.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// IsValid reports whether k is a known change kind.
func (k ChangeKind) IsValid() bool {
	switch k {
	case ChangeCreate, ChangeUpdate, ChangeDelete:
		return true
	}
	return false
}

// Change is an atomic create, update or delete of one entity. Updates carry
// only the fields that differ; creates carry no Before and deletes no After.
type Change struct {
	EntityType EntityType  `json:"entity_type"`
	EntityID   int64       `json:"entity_id"`
	Kind       ChangeKind  `json:"kind"`
	Before     FieldValues `json:"before,omitempty"`
	After      FieldValues `json:"after,omitempty"`
}

// Key returns the key of the entity the change targets.
func (c Change) Key() EntityKey {
	return EntityKey{Type: c.EntityType, ID: c.EntityID}
}

// Validate checks the change is well formed. An EntityID of 0 on a create
// asks for the next free id.
func (c Change) Validate() error {
	if !c.EntityType.IsValid() {
		return fmt.Errorf("unknown entity type %q", c.EntityType)
	}
	if c.EntityID < 0 || (c.EntityID == 0 && c.Kind != ChangeCreate) {
		return fmt.Errorf("%s %s: invalid entity id %d", c.Kind, c.EntityType, c.EntityID)
	}

	switch c.Kind {
	case ChangeCreate:
		if len(c.Before) > 0 {
			return fmt.Errorf("create %s: before fields must be empty", c.Key())
		}
		if _, err := FieldsFromValues(c.EntityType, c.After); err != nil {
			return fmt.Errorf("create %s: %w", c.Key(), err)
		}
	case ChangeUpdate:
		if len(c.After) == 0 {
			return fmt.Errorf("update %s: no fields to change", c.Key())
		}
		for name := range c.Before {
			if _, ok := c.After[name]; !ok {
				return fmt.Errorf("update %s: before field %q has no after value", c.Key(), name)
			}
		}
		zero, _ := FieldsFromValues(c.EntityType, nil)
		if _, err := MergeValues(zero, c.After); err != nil {
			return fmt.Errorf("update %s: %w", c.Key(), err)
		}
	case ChangeDelete:
		if len(c.After) > 0 {
			return fmt.Errorf("delete %s: after fields must be empty", c.Key())
		}
	default:
		return fmt.Errorf("unknown change kind %q", c.Kind)
	}
	return nil
}

// Inverse returns the change that undoes c.
func (c Change) Inverse() Change {
	inv := Change{
		EntityType: c.EntityType,
		EntityID:   c.EntityID,
		Before:     c.After.Clone(),
		After:      c.Before.Clone(),
	}
	switch c.Kind {
	case ChangeCreate:
		inv.Kind = ChangeDelete
	case ChangeDelete:
		inv.Kind = ChangeCreate
	default:
		inv.Kind = ChangeUpdate
	}
	return inv
}

// ValidateChanges validates every change and rejects two changes to the same entity.
func ValidateChanges(changes []Change) error {
	var errs []error
	seen := make(map[EntityKey]bool, len(changes))
	for _, c := range changes {
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if c.EntityID == 0 {
			continue
		}
		if seen[c.Key()] {
			errs = append(errs, fmt.Errorf("more than one change for %s", c.Key()))
		}
		seen[c.Key()] = true
	}
	return errors.Join(errs...)
}

// SortChanges orders changes by entity type rank, then entity id.
func SortChanges(changes []Change) {
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Key().Less(changes[j].Key())
	})
}

// ChangeStats counts changes by kind.
type ChangeStats struct {
	Creates int `json:"creates"`
	Updates int `json:"updates"`
	Deletes int `json:"deletes"`
}

// CountChanges summarises a change list.
func CountChanges(changes []Change) ChangeStats {
	var s ChangeStats
	for _, c := range changes {
		switch c.Kind {
		case ChangeCreate:
			s.Creates++
		case ChangeUpdate:
			s.Updates++
		case ChangeDelete:
			s.Deletes++
		}
	}
	return s
}
