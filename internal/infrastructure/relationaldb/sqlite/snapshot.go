package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

type snapshotRepo struct {
	q querier
}

// Create stores a snapshot with its entities serialized as JSON.
func (r *snapshotRepo) Create(ctx context.Context, s *entities.Snapshot) error {
	payload, err := json.Marshal(s.Entities)
	if err != nil {
		return fmt.Errorf("marshaling snapshot entities: %w", err)
	}

	query := `
		INSERT INTO snapshots (id, kb_id, captured_at_version, captured_at, payload)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = r.q.ExecContext(ctx, query,
		s.ID,
		s.KnowledgeBaseID,
		s.CapturedAtVersion,
		s.CapturedAt,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Get finds a snapshot by id.
func (r *snapshotRepo) Get(ctx context.Context, id string) (*entities.Snapshot, error) {
	query := `
		SELECT id, kb_id, captured_at_version, captured_at, payload
		FROM snapshots
		WHERE id = ?
	`
	var s entities.Snapshot
	var payload string
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.KnowledgeBaseID,
		&s.CapturedAtVersion,
		&s.CapturedAt,
		&payload,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(payload), &s.Entities); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot entities: %w", err)
	}
	return &s, nil
}
