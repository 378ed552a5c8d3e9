package entities

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ConflictReason says why a change no longer fits live state.
type ConflictReason string

const (
	// ConflictModified means a live field value differs from the recorded before value.
	ConflictModified ConflictReason = "modified"
	// ConflictMissing means the entity no longer exists live. With Field set,
	// the entity the field references would not exist after the merge and
	// Expected holds its key.
	ConflictMissing ConflictReason = "missing"
	// ConflictExists means a create targets an id that already exists live.
	ConflictExists ConflictReason = "exists"
)

// Conflict is one line of a conflict report. Field is empty for entity level conflicts.
type Conflict struct {
	EntityType EntityType     `json:"entity_type"`
	EntityID   int64          `json:"entity_id"`
	Field      string         `json:"field,omitempty"`
	Kind       ChangeKind     `json:"change_kind"`
	Reason     ConflictReason `json:"reason"`
	Expected   any            `json:"expected"`
	Actual     any            `json:"actual"`
}

// String renders the conflict for display.
func (c Conflict) String() string {
	subject := fmt.Sprintf("%s %s/%d", c.Kind, c.EntityType, c.EntityID)
	switch c.Reason {
	case ConflictMissing:
		if c.Field != "" {
			return fmt.Sprintf("%s/%d field %s: references missing %v", c.EntityType, c.EntityID, c.Field, c.Expected)
		}
		return subject + ": entity no longer exists"
	case ConflictExists:
		return subject + ": entity already exists"
	default:
		return fmt.Sprintf("%s field %s: expected %s, actual %s",
			subject, c.Field, renderValue(c.Expected), renderValue(c.Actual))
	}
}

// ConflictReport lists every conflict found for a merge request. An empty
// report means the merge request can be merged.
type ConflictReport struct {
	KnowledgeBaseID  string     `json:"knowledge_base_id"`
	MergeRequestID   string     `json:"merge_request_id"`
	CheckedAtVersion int64      `json:"checked_at_version"`
	Conflicts        []Conflict `json:"conflicts"`
}

// HasConflicts reports whether the merge must be refused.
func (r ConflictReport) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// SortConflicts orders conflicts by entity, then field.
func SortConflicts(conflicts []Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		ka := EntityKey{Type: a.EntityType, ID: a.EntityID}
		kb := EntityKey{Type: b.EntityType, ID: b.EntityID}
		if ka != kb {
			return ka.Less(kb)
		}
		return a.Field < b.Field
	})
}

func renderValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
