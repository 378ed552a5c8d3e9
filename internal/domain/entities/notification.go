package entities

import "time"

// NotificationKind is the event a notification reports.
type NotificationKind string

const (
	NotifyCommitted NotificationKind = "version_committed"
	NotifyMerged    NotificationKind = "merge_request_merged"
	NotifyRejected  NotificationKind = "merge_request_rejected"
	NotifyClosed    NotificationKind = "merge_request_closed"
)

// Notification is delivered to notification sinks on a best effort basis.
type Notification struct {
	Kind            NotificationKind `json:"kind"`
	KnowledgeBaseID string           `json:"knowledge_base_id"`
	MergeRequestID  string           `json:"merge_request_id,omitempty"`
	Title           string           `json:"title,omitempty"`
	Version         int64            `json:"version,omitempty"`
	ActorID         string           `json:"actor_id"`
	ChangeCount     int              `json:"change_count,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}
