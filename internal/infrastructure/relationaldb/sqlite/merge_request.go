package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

type mergeRequestRepo struct {
	q querier
}

// Create inserts a merge request with its change list.
func (r *mergeRequestRepo) Create(ctx context.Context, mr *entities.MergeRequest) error {
	changes, err := marshalChanges(mr.Changes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO merge_requests (
			id, kb_id, title, description, author_id, base_snapshot_id, base_version,
			status, reviewer_id, merged_version, changes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.q.ExecContext(ctx, query,
		mr.ID,
		mr.KnowledgeBaseID,
		mr.Title,
		mr.Description,
		mr.AuthorID,
		mr.BaseSnapshotID,
		mr.BaseVersion,
		string(mr.Status),
		mr.ReviewerID,
		mr.MergedVersion,
		changes,
		mr.CreatedAt,
		mr.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving merge request: %w", err)
	}
	return nil
}

const mergeRequestColumns = `
	id, kb_id, title, description, author_id, base_snapshot_id, base_version,
	status, reviewer_id, merged_version, changes, created_at, updated_at
`

// Get finds a merge request by id and loads its comments.
func (r *mergeRequestRepo) Get(ctx context.Context, id string) (*entities.MergeRequest, error) {
	query := `SELECT ` + mergeRequestColumns + ` FROM merge_requests WHERE id = ?`

	mr, err := scanMergeRequest(r.q.QueryRowContext(ctx, query, id), true)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	comments, err := r.listComments(ctx, id)
	if err != nil {
		return nil, err
	}
	mr.Comments = comments
	return mr, nil
}

// List returns the knowledge base's merge requests, newest first.
func (r *mergeRequestRepo) List(ctx context.Context, kbID string, status entities.MergeRequestStatus) ([]entities.MergeRequest, error) {
	query := `SELECT ` + mergeRequestColumns + `
		FROM merge_requests
		WHERE kb_id = ? AND (? = '' OR status = ?)
		ORDER BY created_at DESC, id ASC
	`
	rows, err := r.q.QueryContext(ctx, query, kbID, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("querying merge requests: %w", err)
	}
	defer rows.Close()

	result := make([]entities.MergeRequest, 0, 16)
	for rows.Next() {
		mr, err := scanMergeRequest(rows, false)
		if err != nil {
			return nil, err
		}
		result = append(result, *mr)
	}
	return result, rows.Err()
}

// UpdateStatus performs a compare-and-set on the status column.
func (r *mergeRequestRepo) UpdateStatus(ctx context.Context, id string, from, to entities.MergeRequestStatus, reviewerID string) error {
	query := `
		UPDATE merge_requests
		SET status = ?,
			reviewer_id = CASE WHEN ? = '' THEN reviewer_id ELSE ? END,
			updated_at = ?
		WHERE id = ? AND status = ?
	`
	res, err := r.q.ExecContext(ctx, query, string(to), reviewerID, reviewerID, timeNow(), id, string(from))
	if err != nil {
		return fmt.Errorf("updating merge request status: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("merge request %s in status %s", id, from))
}

// SetChanges replaces the change list while the merge request is editable.
func (r *mergeRequestRepo) SetChanges(ctx context.Context, id string, changes []entities.Change) error {
	data, err := marshalChanges(changes)
	if err != nil {
		return err
	}

	query := `
		UPDATE merge_requests SET changes = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`
	res, err := r.q.ExecContext(ctx, query, data, timeNow(), id,
		string(entities.StatusDraft), string(entities.StatusChangesRequested))
	if err != nil {
		return fmt.Errorf("updating merge request changes: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("editable merge request %s", id))
}

// SetBase points the merge request at a new base snapshot.
func (r *mergeRequestRepo) SetBase(ctx context.Context, id, snapshotID string, version int64) error {
	query := `UPDATE merge_requests SET base_snapshot_id = ?, base_version = ?, updated_at = ? WHERE id = ?`
	res, err := r.q.ExecContext(ctx, query, snapshotID, version, timeNow(), id)
	if err != nil {
		return fmt.Errorf("updating merge request base: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("merge request %s", id))
}

// SetMergedVersion records the version produced by the merge.
func (r *mergeRequestRepo) SetMergedVersion(ctx context.Context, id string, version int64) error {
	query := `UPDATE merge_requests SET merged_version = ?, updated_at = ? WHERE id = ?`
	res, err := r.q.ExecContext(ctx, query, version, timeNow(), id)
	if err != nil {
		return fmt.Errorf("updating merged version: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("merge request %s", id))
}

// AddComment appends a comment.
func (r *mergeRequestRepo) AddComment(ctx context.Context, c *entities.Comment) error {
	query := `
		INSERT INTO merge_request_comments (id, merge_request_id, author_id, body, action, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.q.ExecContext(ctx, query,
		c.ID,
		c.MergeRequestID,
		c.AuthorID,
		c.Body,
		string(c.Action),
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving comment: %w", err)
	}
	return nil
}

func (r *mergeRequestRepo) listComments(ctx context.Context, mrID string) ([]entities.Comment, error) {
	query := `
		SELECT id, merge_request_id, author_id, body, action, created_at
		FROM merge_request_comments
		WHERE merge_request_id = ?
		ORDER BY created_at ASC, rowid ASC
	`
	rows, err := r.q.QueryContext(ctx, query, mrID)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	comments := make([]entities.Comment, 0, 8)
	for rows.Next() {
		var c entities.Comment
		var action string
		if err := rows.Scan(
			&c.ID,
			&c.MergeRequestID,
			&c.AuthorID,
			&c.Body,
			&action,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		c.Action = entities.MergeRequestAction(action)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// SaveDraftEdit inserts or replaces a staged edit.
func (r *mergeRequestRepo) SaveDraftEdit(ctx context.Context, e *entities.DraftEdit) error {
	patch, err := json.Marshal(e.Patch)
	if err != nil {
		return fmt.Errorf("marshaling draft patch: %w", err)
	}

	query := `
		INSERT INTO draft_edits (merge_request_id, entity_type, entity_id, deleted, patch, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(merge_request_id, entity_type, entity_id) DO UPDATE SET
			deleted = excluded.deleted,
			patch = excluded.patch,
			updated_at = excluded.updated_at
	`
	_, err = r.q.ExecContext(ctx, query,
		e.MergeRequestID,
		string(e.Key.Type),
		e.Key.ID,
		e.Deleted,
		string(patch),
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving draft edit: %w", err)
	}
	return nil
}

// DeleteDraftEdit removes a staged edit.
func (r *mergeRequestRepo) DeleteDraftEdit(ctx context.Context, mrID string, key entities.EntityKey) error {
	query := `DELETE FROM draft_edits WHERE merge_request_id = ? AND entity_type = ? AND entity_id = ?`
	res, err := r.q.ExecContext(ctx, query, mrID, string(key.Type), key.ID)
	if err != nil {
		return fmt.Errorf("deleting draft edit: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("draft edit %s", key))
}

// ListDraftEdits returns the staged edits of a merge request.
func (r *mergeRequestRepo) ListDraftEdits(ctx context.Context, mrID string) ([]entities.DraftEdit, error) {
	query := `
		SELECT merge_request_id, entity_type, entity_id, deleted, patch, updated_at
		FROM draft_edits
		WHERE merge_request_id = ?
		ORDER BY entity_type ASC, entity_id ASC
	`
	rows, err := r.q.QueryContext(ctx, query, mrID)
	if err != nil {
		return nil, fmt.Errorf("querying draft edits: %w", err)
	}
	defer rows.Close()

	edits := make([]entities.DraftEdit, 0, 8)
	for rows.Next() {
		var e entities.DraftEdit
		var typ, patch string
		if err := rows.Scan(
			&e.MergeRequestID,
			&typ,
			&e.Key.ID,
			&e.Deleted,
			&patch,
			&e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning draft edit: %w", err)
		}
		e.Key.Type = entities.EntityType(typ)
		if err := json.Unmarshal([]byte(patch), &e.Patch); err != nil {
			return nil, fmt.Errorf("unmarshaling draft patch: %w", err)
		}
		edits = append(edits, e)
	}
	return edits, rows.Err()
}

func marshalChanges(changes []entities.Change) (string, error) {
	if changes == nil {
		changes = []entities.Change{}
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return "", fmt.Errorf("marshaling changes: %w", err)
	}
	return string(data), nil
}

// scanMergeRequest reads one merge request row. The change list is decoded
// only when withChanges is set.
func scanMergeRequest(row rowScanner, withChanges bool) (*entities.MergeRequest, error) {
	var mr entities.MergeRequest
	var status, changes string
	err := row.Scan(
		&mr.ID,
		&mr.KnowledgeBaseID,
		&mr.Title,
		&mr.Description,
		&mr.AuthorID,
		&mr.BaseSnapshotID,
		&mr.BaseVersion,
		&status,
		&mr.ReviewerID,
		&mr.MergedVersion,
		&changes,
		&mr.CreatedAt,
		&mr.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning merge request: %w", err)
	}

	mr.Status = entities.MergeRequestStatus(status)
	if withChanges {
		if err := json.Unmarshal([]byte(changes), &mr.Changes); err != nil {
			return nil, fmt.Errorf("unmarshaling changes: %w", err)
		}
	}
	return &mr, nil
}
