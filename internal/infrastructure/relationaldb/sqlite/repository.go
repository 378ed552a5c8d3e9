// Package sqlite provides a SQLite implementation of the ports.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/ports"
	"github.com/ersonp/onto-core/internal/infrastructure/config"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// pragmas are applied by the driver to every new connection.
var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

// Repository implements ports.Store using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

var _ ports.Store = (*Repository)(nil)

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// SQLite has a single writer. One connection also keeps ":memory:"
	// databases from being split across the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite database: %w", err)
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

func dsn(path string) string {
	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS knowledge_bases (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Live entities, one table per entity type. Foreign keys keep the
	-- graph consistent at every statement.
	CREATE TABLE IF NOT EXISTS concepts (
		kb_id TEXT NOT NULL REFERENCES knowledge_bases(id),
		id INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		definition TEXT NOT NULL DEFAULT '',
		simple_explanation TEXT NOT NULL DEFAULT '',
		examples TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (kb_id, id)
	);

	CREATE TABLE IF NOT EXISTS relationships (
		kb_id TEXT NOT NULL REFERENCES knowledge_bases(id),
		id INTEGER NOT NULL,
		source_concept_id INTEGER NOT NULL,
		target_concept_id INTEGER NOT NULL,
		relation_type TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		bidirectional INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (kb_id, id),
		FOREIGN KEY (kb_id, source_concept_id) REFERENCES concepts(kb_id, id),
		FOREIGN KEY (kb_id, target_concept_id) REFERENCES concepts(kb_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(kb_id, source_concept_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(kb_id, target_concept_id);

	CREATE TABLE IF NOT EXISTS individual_properties (
		kb_id TEXT NOT NULL REFERENCES knowledge_bases(id),
		id INTEGER NOT NULL,
		concept_id INTEGER NOT NULL,
		individual_name TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL DEFAULT '',
		data_type TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (kb_id, id),
		FOREIGN KEY (kb_id, concept_id) REFERENCES concepts(kb_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_individual_properties_concept ON individual_properties(kb_id, concept_id);

	CREATE TABLE IF NOT EXISTS individual_relationships (
		kb_id TEXT NOT NULL REFERENCES knowledge_bases(id),
		id INTEGER NOT NULL,
		relationship_id INTEGER NOT NULL,
		source_individual TEXT NOT NULL DEFAULT '',
		target_individual TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (kb_id, id),
		FOREIGN KEY (kb_id, relationship_id) REFERENCES relationships(kb_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_individual_relationships_rel ON individual_relationships(kb_id, relationship_id);

	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		kb_id TEXT NOT NULL REFERENCES knowledge_bases(id),
		captured_at_version INTEGER NOT NULL,
		captured_at TIMESTAMP NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_kb ON snapshots(kb_id, captured_at_version);

	CREATE TABLE IF NOT EXISTS merge_requests (
		id TEXT PRIMARY KEY,
		kb_id TEXT NOT NULL REFERENCES knowledge_bases(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		author_id TEXT NOT NULL,
		base_snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
		base_version INTEGER NOT NULL,
		status TEXT NOT NULL,
		reviewer_id TEXT NOT NULL DEFAULT '',
		merged_version INTEGER NOT NULL DEFAULT 0,
		changes TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_merge_requests_kb ON merge_requests(kb_id, status);

	CREATE TABLE IF NOT EXISTS merge_request_comments (
		id TEXT PRIMARY KEY,
		merge_request_id TEXT NOT NULL REFERENCES merge_requests(id),
		author_id TEXT NOT NULL,
		body TEXT NOT NULL,
		action TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_merge_request_comments_mr ON merge_request_comments(merge_request_id);

	CREATE TABLE IF NOT EXISTS draft_edits (
		merge_request_id TEXT NOT NULL REFERENCES merge_requests(id),
		entity_type TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0,
		patch TEXT NOT NULL DEFAULT '{}',
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (merge_request_id, entity_type, entity_id)
	);

	-- Activity log (append-only version history)
	CREATE TABLE IF NOT EXISTS activity_entries (
		id TEXT PRIMARY KEY,
		kb_id TEXT NOT NULL REFERENCES knowledge_bases(id),
		version_number INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		before_fields TEXT NOT NULL DEFAULT '{}',
		after_fields TEXT NOT NULL DEFAULT '{}',
		actor_id TEXT NOT NULL,
		merge_request_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		UNIQUE(kb_id, version_number, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_activity_entity ON activity_entries(kb_id, entity_type, entity_id);

	CREATE TRIGGER IF NOT EXISTS activity_entries_no_update
	BEFORE UPDATE ON activity_entries
	BEGIN
		SELECT RAISE(ABORT, 'activity entries are append-only');
	END;

	CREATE TRIGGER IF NOT EXISTS activity_entries_no_delete
	BEFORE DELETE ON activity_entries
	BEGIN
		SELECT RAISE(ABORT, 'activity entries are append-only');
	END;
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// View runs fn in a transaction that is always rolled back.
func (r *Repository) View(ctx context.Context, fn func(tx ports.Tx) error) error {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // read-only

	return fn(&txn{q: sqlTx})
}

// Update runs fn in a transaction and commits it when fn succeeds. Once
// begun the transaction ignores cancellation of ctx, so it either commits
// or rolls back as a whole.
func (r *Repository) Update(ctx context.Context, fn func(tx ports.Tx) error) error {
	ctx = context.WithoutCancel(ctx)

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&txn{q: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back transaction: %w", rbErr))
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// querier is the subset of *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txn implements ports.Tx over one SQL transaction.
type txn struct {
	q querier
}

func (t *txn) KnowledgeBases() ports.KnowledgeBaseRepository {
	return &knowledgeBaseRepo{q: t.q}
}

func (t *txn) Entities(typ entities.EntityType) ports.EntityRepository {
	return &entityRepo{q: t.q, table: tableFor(typ)}
}

func (t *txn) Snapshots() ports.SnapshotRepository {
	return &snapshotRepo{q: t.q}
}

func (t *txn) MergeRequests() ports.MergeRequestRepository {
	return &mergeRequestRepo{q: t.q}
}

func (t *txn) Activity() ports.ActivityRepository {
	return &activityRepo{q: t.q}
}

// expectOneRow turns a zero row count into an error naming what was missed.
func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found", what)
	}
	return nil
}
