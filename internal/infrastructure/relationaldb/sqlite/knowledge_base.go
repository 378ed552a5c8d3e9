package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

type knowledgeBaseRepo struct {
	q querier
}

// Create inserts a knowledge base.
func (r *knowledgeBaseRepo) Create(ctx context.Context, kb *entities.KnowledgeBase) error {
	query := `
		INSERT INTO knowledge_bases (id, name, description, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.q.ExecContext(ctx, query,
		kb.ID,
		kb.Name,
		kb.Description,
		kb.Version,
		kb.CreatedAt,
		kb.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving knowledge base: %w", err)
	}
	return nil
}

// Get finds a knowledge base by id.
func (r *knowledgeBaseRepo) Get(ctx context.Context, id string) (*entities.KnowledgeBase, error) {
	query := `
		SELECT id, name, description, version, created_at, updated_at
		FROM knowledge_bases
		WHERE id = ?
	`
	kb, err := scanKnowledgeBase(r.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return kb, nil
}

// List returns every knowledge base ordered by name.
func (r *knowledgeBaseRepo) List(ctx context.Context) ([]entities.KnowledgeBase, error) {
	query := `
		SELECT id, name, description, version, created_at, updated_at
		FROM knowledge_bases
		ORDER BY name ASC
	`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge bases: %w", err)
	}
	defer rows.Close()

	result := make([]entities.KnowledgeBase, 0, 8)
	for rows.Next() {
		kb, err := scanKnowledgeBase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *kb)
	}
	return result, rows.Err()
}

// SetVersion advances the version counter if it still holds expected.
func (r *knowledgeBaseRepo) SetVersion(ctx context.Context, id string, expected, next int64) error {
	query := `UPDATE knowledge_bases SET version = ?, updated_at = ? WHERE id = ? AND version = ?`
	res, err := r.q.ExecContext(ctx, query, next, timeNow(), id, expected)
	if err != nil {
		return fmt.Errorf("updating knowledge base version: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("knowledge base %s at version %d", id, expected))
}

func scanKnowledgeBase(row rowScanner) (*entities.KnowledgeBase, error) {
	var kb entities.KnowledgeBase
	err := row.Scan(
		&kb.ID,
		&kb.Name,
		&kb.Description,
		&kb.Version,
		&kb.CreatedAt,
		&kb.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning knowledge base: %w", err)
	}
	return &kb, nil
}
