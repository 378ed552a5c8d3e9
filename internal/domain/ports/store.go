// Package ports defines the interfaces the domain services depend on.
package ports

import (
	"context"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

// Store is the transactional persistence layer for knowledge bases, their
// live entities, snapshots, merge requests and activity history.
type Store interface {
	// EnsureSchema creates the database schema if it doesn't exist.
	EnsureSchema(ctx context.Context) error

	// Close closes the database connection.
	Close() error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn in a read-write transaction. The transaction commits if
	// fn returns nil and rolls back otherwise.
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Tx gives access to the repositories bound to one transaction.
type Tx interface {
	KnowledgeBases() KnowledgeBaseRepository
	Entities(t entities.EntityType) EntityRepository
	Snapshots() SnapshotRepository
	MergeRequests() MergeRequestRepository
	Activity() ActivityRepository
}

// KnowledgeBaseRepository stores knowledge bases and their version counters.
// Lookups return (nil, nil) when the row does not exist.
type KnowledgeBaseRepository interface {
	Create(ctx context.Context, kb *entities.KnowledgeBase) error
	Get(ctx context.Context, id string) (*entities.KnowledgeBase, error)
	List(ctx context.Context) ([]entities.KnowledgeBase, error)

	// SetVersion moves the version counter from expected to next. It fails if
	// the stored version is not expected.
	SetVersion(ctx context.Context, id string, expected, next int64) error
}

// EntityRepository is the plain CRUD store of one entity type.
type EntityRepository interface {
	Type() entities.EntityType
	GetAll(ctx context.Context, kbID string) ([]entities.Entity, error)

	// GetByID returns (nil, nil) when the entity does not exist.
	GetByID(ctx context.Context, kbID string, id int64) (entities.Fields, error)
	Create(ctx context.Context, kbID string, id int64, fields entities.Fields) error
	Update(ctx context.Context, kbID string, id int64, fields entities.Fields) error
	Delete(ctx context.Context, kbID string, id int64) error

	// NextID returns an id that has never been used for this type in the
	// knowledge base, live or in history.
	NextID(ctx context.Context, kbID string) (int64, error)
}

// SnapshotRepository stores immutable snapshots.
type SnapshotRepository interface {
	Create(ctx context.Context, s *entities.Snapshot) error
	Get(ctx context.Context, id string) (*entities.Snapshot, error)
}

// MergeRequestRepository stores merge requests, their comments and the
// author's staged edits.
type MergeRequestRepository interface {
	Create(ctx context.Context, mr *entities.MergeRequest) error

	// Get returns the merge request with its changes and comments.
	Get(ctx context.Context, id string) (*entities.MergeRequest, error)

	// List returns merge requests of a knowledge base, newest first. An empty
	// status matches every status. Changes and comments are not loaded.
	List(ctx context.Context, kbID string, status entities.MergeRequestStatus) ([]entities.MergeRequest, error)

	// UpdateStatus moves the status from one value to another, setting the
	// reviewer when non-empty. It fails if the stored status is not from.
	UpdateStatus(ctx context.Context, id string, from, to entities.MergeRequestStatus, reviewerID string) error

	// SetChanges replaces the change list. It fails unless the stored status
	// allows editing.
	SetChanges(ctx context.Context, id string, changes []entities.Change) error

	// SetBase points the merge request at a new base snapshot.
	SetBase(ctx context.Context, id, snapshotID string, version int64) error

	// SetMergedVersion records the version a merge produced.
	SetMergedVersion(ctx context.Context, id string, version int64) error

	AddComment(ctx context.Context, c *entities.Comment) error

	SaveDraftEdit(ctx context.Context, e *entities.DraftEdit) error
	DeleteDraftEdit(ctx context.Context, mrID string, key entities.EntityKey) error
	ListDraftEdits(ctx context.Context, mrID string) ([]entities.DraftEdit, error)
}

// ActivityRepository is the append-only version history.
type ActivityRepository interface {
	Append(ctx context.Context, entries []entities.ActivityEntry) error

	// List returns entries newest first.
	List(ctx context.Context, kbID string, skip, take int) ([]entities.ActivityEntry, error)

	// ListUpTo returns entries with version <= version in commit order.
	ListUpTo(ctx context.Context, kbID string, version int64) ([]entities.ActivityEntry, error)

	// ListAfter returns entries with version > version in commit order.
	ListAfter(ctx context.Context, kbID string, version int64) ([]entities.ActivityEntry, error)

	Count(ctx context.Context, kbID string) (int, error)
}
