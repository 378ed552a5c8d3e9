package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

type activityRepo struct {
	q querier
}

// Append inserts entries. Existing entries can never be changed: the schema
// rejects updates and deletes on the table.
func (r *activityRepo) Append(ctx context.Context, entries []entities.ActivityEntry) error {
	query := `
		INSERT INTO activity_entries (
			id, kb_id, version_number, seq, entity_type, entity_id, kind,
			before_fields, after_fields, actor_id, merge_request_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, e := range entries {
		before, err := marshalValues(e.Before)
		if err != nil {
			return err
		}
		after, err := marshalValues(e.After)
		if err != nil {
			return err
		}

		_, err = r.q.ExecContext(ctx, query,
			e.ID,
			e.KnowledgeBaseID,
			e.VersionNumber,
			e.Seq,
			string(e.EntityType),
			e.EntityID,
			string(e.Kind),
			before,
			after,
			e.ActorID,
			e.MergeRequestID,
			e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("saving activity entry: %w", err)
		}
	}
	return nil
}

const activityColumns = `
	id, kb_id, version_number, seq, entity_type, entity_id, kind,
	before_fields, after_fields, actor_id, merge_request_id, created_at
`

// List returns entries newest first.
func (r *activityRepo) List(ctx context.Context, kbID string, skip, take int) ([]entities.ActivityEntry, error) {
	query := `SELECT ` + activityColumns + `
		FROM activity_entries
		WHERE kb_id = ?
		ORDER BY version_number DESC, seq DESC
		LIMIT ? OFFSET ?
	`
	return r.query(ctx, query, kbID, take, skip)
}

// ListUpTo returns entries up to and including version, oldest first.
func (r *activityRepo) ListUpTo(ctx context.Context, kbID string, version int64) ([]entities.ActivityEntry, error) {
	query := `SELECT ` + activityColumns + `
		FROM activity_entries
		WHERE kb_id = ? AND version_number <= ?
		ORDER BY version_number ASC, seq ASC
	`
	return r.query(ctx, query, kbID, version)
}

// ListAfter returns entries newer than version, oldest first.
func (r *activityRepo) ListAfter(ctx context.Context, kbID string, version int64) ([]entities.ActivityEntry, error) {
	query := `SELECT ` + activityColumns + `
		FROM activity_entries
		WHERE kb_id = ? AND version_number > ?
		ORDER BY version_number ASC, seq ASC
	`
	return r.query(ctx, query, kbID, version)
}

// Count returns the number of entries of a knowledge base.
func (r *activityRepo) Count(ctx context.Context, kbID string) (int, error) {
	query := `SELECT COUNT(*) FROM activity_entries WHERE kb_id = ?`
	var count int
	if err := r.q.QueryRowContext(ctx, query, kbID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting activity entries: %w", err)
	}
	return count, nil
}

func (r *activityRepo) query(ctx context.Context, query string, args ...any) ([]entities.ActivityEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activity entries: %w", err)
	}
	defer rows.Close()

	entries := make([]entities.ActivityEntry, 0, 32)
	for rows.Next() {
		var e entities.ActivityEntry
		var typ, kind, before, after string
		if err := rows.Scan(
			&e.ID,
			&e.KnowledgeBaseID,
			&e.VersionNumber,
			&e.Seq,
			&typ,
			&e.EntityID,
			&kind,
			&before,
			&after,
			&e.ActorID,
			&e.MergeRequestID,
			&e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.EntityType = entities.EntityType(typ)
		e.Kind = entities.ChangeKind(kind)
		if err := unmarshalValues(before, &e.Before); err != nil {
			return nil, err
		}
		if err := unmarshalValues(after, &e.After); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func marshalValues(v entities.FieldValues) (string, error) {
	if v == nil {
		return "{}", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling field values: %w", err)
	}
	return string(data), nil
}

func unmarshalValues(data string, v *entities.FieldValues) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("unmarshaling field values: %w", err)
	}
	if len(*v) == 0 {
		*v = nil
	}
	return nil
}
