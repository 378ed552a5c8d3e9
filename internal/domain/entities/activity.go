package entities

import "time"

// ActivityEntry records one committed change. All entries of a batch share a
// version number and are ordered within it by Seq.
type ActivityEntry struct {
	ID              string      `json:"id"`
	KnowledgeBaseID string      `json:"knowledge_base_id"`
	VersionNumber   int64       `json:"version_number"`
	Seq             int         `json:"seq"`
	EntityType      EntityType  `json:"entity_type"`
	EntityID        int64       `json:"entity_id"`
	Kind            ChangeKind  `json:"kind"`
	Before          FieldValues `json:"before,omitempty"`
	After           FieldValues `json:"after,omitempty"`
	ActorID         string      `json:"actor_id"`
	MergeRequestID  string      `json:"merge_request_id,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}

// Change returns the change the entry recorded.
func (e ActivityEntry) Change() Change {
	return Change{
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Kind:       e.Kind,
		Before:     e.Before.Clone(),
		After:      e.After.Clone(),
	}
}

// CommitOperation names what produced a committed version.
type CommitOperation string

const (
	OperationApply  CommitOperation = "apply"
	OperationMerge  CommitOperation = "merge"
	OperationRevert CommitOperation = "revert"
)

// CommitEvent describes a committed version. It is handed to cache
// invalidators after the commit.
type CommitEvent struct {
	KnowledgeBaseID string          `json:"knowledge_base_id"`
	Version         int64           `json:"version"`
	Operation       CommitOperation `json:"operation"`
	ActorID         string          `json:"actor_id"`
	MergeRequestID  string          `json:"merge_request_id,omitempty"`
	Changes         []Change        `json:"changes"`
	CommittedAt     time.Time       `json:"committed_at"`
}
