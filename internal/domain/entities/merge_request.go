package entities

import "time"

// MergeRequestStatus is a state of the merge request lifecycle.
type MergeRequestStatus string

const (
	StatusDraft            MergeRequestStatus = "draft"
	StatusSubmitted        MergeRequestStatus = "submitted"
	StatusApproved         MergeRequestStatus = "approved"
	StatusRejected         MergeRequestStatus = "rejected"
	StatusChangesRequested MergeRequestStatus = "changes_requested"
	StatusMerged           MergeRequestStatus = "merged"
	StatusClosed           MergeRequestStatus = "closed"
)

// IsValid reports whether s is a known status.
func (s MergeRequestStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected,
		StatusChangesRequested, StatusMerged, StatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s MergeRequestStatus) IsTerminal() bool {
	return s == StatusMerged || s == StatusRejected || s == StatusClosed
}

// IsEditable reports whether the change list may still be modified.
func (s MergeRequestStatus) IsEditable() bool {
	return s == StatusDraft || s == StatusChangesRequested
}

// MergeRequestAction is an operation on a merge request.
type MergeRequestAction string

const (
	ActionSubmit         MergeRequestAction = "submit"
	ActionApprove        MergeRequestAction = "approve"
	ActionReject         MergeRequestAction = "reject"
	ActionRequestChanges MergeRequestAction = "request_changes"
	ActionReopen         MergeRequestAction = "reopen"
	ActionMerge          MergeRequestAction = "merge"
	ActionClose          MergeRequestAction = "close"
	ActionRebase         MergeRequestAction = "rebase"
	ActionComment        MergeRequestAction = "comment"
	ActionEdit           MergeRequestAction = "edit"
	ActionRecompute      MergeRequestAction = "recompute"
)

// MergeRequest is a reviewable batch of changes against a base snapshot.
type MergeRequest struct {
	ID              string             `json:"id"`
	KnowledgeBaseID string             `json:"knowledge_base_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	AuthorID        string             `json:"author_id"`
	BaseSnapshotID  string             `json:"base_snapshot_id"`
	BaseVersion     int64              `json:"base_version"`
	Status          MergeRequestStatus `json:"status"`
	ReviewerID      string             `json:"reviewer_id,omitempty"`
	MergedVersion   int64              `json:"merged_version,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Changes         []Change           `json:"changes"`
	Comments        []Comment          `json:"comments,omitempty"`
}

// Comment is a review note. Transition comments carry the action that produced them.
type Comment struct {
	ID             string             `json:"id"`
	MergeRequestID string             `json:"merge_request_id"`
	AuthorID       string             `json:"author_id"`
	Body           string             `json:"body"`
	Action         MergeRequestAction `json:"action,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// DraftEdit is a staged edit on the author's branch of a merge request:
// either a field patch over the base entity or a deletion.
type DraftEdit struct {
	MergeRequestID string      `json:"merge_request_id"`
	Key            EntityKey   `json:"key"`
	Deleted        bool        `json:"deleted"`
	Patch          FieldValues `json:"patch,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
