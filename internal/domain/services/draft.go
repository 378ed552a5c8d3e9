package services

import (
	"fmt"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
)

// overlayEdits applies the author's staged edits to the base state. The
// result is the author's branch of the knowledge base.
func overlayEdits(base entities.EntityMap, edits []entities.DraftEdit) (entities.EntityMap, error) {
	out := base.Clone()
	for _, e := range edits {
		if e.Deleted {
			delete(out, e.Key)
			continue
		}
		cur, ok := out[e.Key]
		if !ok {
			zero, err := entities.FieldsFromValues(e.Key.Type, nil)
			if err != nil {
				return nil, fmt.Errorf("staged edit %s: %w", e.Key, err)
			}
			cur = zero
		}
		f, err := entities.MergeValues(cur, e.Patch)
		if err != nil {
			return nil, fmt.Errorf("staged edit %s: %w", e.Key, err)
		}
		out[e.Key] = f
	}
	return out, nil
}

// checkReferences returns a validation error for every reference in state
// that points at a missing entity.
func checkReferences(state entities.EntityMap) error {
	for _, k := range state.Keys() {
		for _, ref := range entities.References(state[k]) {
			if _, ok := state[ref]; !ok {
				return errs.Validation("%s references missing %s", k, ref)
			}
		}
	}
	return nil
}

// referencedBy returns the first entity in state that references key.
func referencedBy(state entities.EntityMap, key entities.EntityKey) (entities.EntityKey, bool) {
	for _, k := range state.Keys() {
		for _, ref := range entities.References(state[k]) {
			if ref == key {
				return k, true
			}
		}
	}
	return entities.EntityKey{}, false
}

// findEdit returns the staged edit for key.
func findEdit(edits []entities.DraftEdit, key entities.EntityKey) (entities.DraftEdit, bool) {
	for _, e := range edits {
		if e.Key == key {
			return e, true
		}
	}
	return entities.DraftEdit{}, false
}

// replaceEdit returns edits with the edit for e.Key replaced by e, or with e
// appended when there was none.
func replaceEdit(edits []entities.DraftEdit, e entities.DraftEdit) []entities.DraftEdit {
	out := make([]entities.DraftEdit, 0, len(edits)+1)
	replaced := false
	for _, cur := range edits {
		if cur.Key == e.Key {
			out = append(out, e)
			replaced = true
			continue
		}
		out = append(out, cur)
	}
	if !replaced {
		out = append(out, e)
	}
	return out
}

// removeEdit returns edits without the edit for key.
func removeEdit(edits []entities.DraftEdit, key entities.EntityKey) []entities.DraftEdit {
	out := make([]entities.DraftEdit, 0, len(edits))
	for _, cur := range edits {
		if cur.Key != key {
			out = append(out, cur)
		}
	}
	return out
}
