package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

// entityTable maps an entity type onto its table. Column names equal the
// variant's field names.
type entityTable struct {
	typ     entities.EntityType
	name    string
	columns []string
	zero    entities.FieldValues
}

var entityTables = map[entities.EntityType]entityTable{}

func init() {
	names := map[entities.EntityType]string{
		entities.EntityConcept:                "concepts",
		entities.EntityRelationship:           "relationships",
		entities.EntityIndividualProperty:     "individual_properties",
		entities.EntityIndividualRelationship: "individual_relationships",
	}
	for _, typ := range entities.EntityTypes {
		zero, err := entities.FieldsFromValues(typ, nil)
		if err != nil {
			panic(err)
		}
		values := zero.Values()
		entityTables[typ] = entityTable{
			typ:     typ,
			name:    names[typ],
			columns: values.Names(),
			zero:    values,
		}
	}
}

func tableFor(typ entities.EntityType) entityTable {
	if t, ok := entityTables[typ]; ok {
		return t
	}
	return entityTable{typ: typ}
}

// entityRepo implements ports.EntityRepository for one entity type.
type entityRepo struct {
	q     querier
	table entityTable
}

func (r *entityRepo) Type() entities.EntityType {
	return r.table.typ
}

func (r *entityRepo) check() error {
	if r.table.name == "" {
		return fmt.Errorf("unknown entity type %q", r.table.typ)
	}
	return nil
}

// GetAll returns every entity of the type in the knowledge base, ordered by id.
func (r *entityRepo) GetAll(ctx context.Context, kbID string) ([]entities.Entity, error) {
	if err := r.check(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, %s FROM %s WHERE kb_id = ? ORDER BY id ASC`,
		strings.Join(r.table.columns, ", "), r.table.name)

	rows, err := r.q.QueryContext(ctx, query, kbID)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", r.table.name, err)
	}
	defer rows.Close()

	result := make([]entities.Entity, 0, 16)
	for rows.Next() {
		id, fields, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, entities.Entity{
			Key:    entities.EntityKey{Type: r.table.typ, ID: id},
			Fields: fields,
		})
	}
	return result, rows.Err()
}

// GetByID returns the entity's fields, or (nil, nil) if it does not exist.
func (r *entityRepo) GetByID(ctx context.Context, kbID string, id int64) (entities.Fields, error) {
	if err := r.check(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, %s FROM %s WHERE kb_id = ? AND id = ?`,
		strings.Join(r.table.columns, ", "), r.table.name)

	_, fields, err := r.scan(r.q.QueryRowContext(ctx, query, kbID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// Create inserts a new entity with the given id.
func (r *entityRepo) Create(ctx context.Context, kbID string, id int64, fields entities.Fields) error {
	if err := r.checkFields(fields); err != nil {
		return err
	}

	placeholders := strings.Repeat(", ?", len(r.table.columns))
	query := fmt.Sprintf(`INSERT INTO %s (kb_id, id, %s) VALUES (?, ?%s)`,
		r.table.name, strings.Join(r.table.columns, ", "), placeholders)

	args := append([]any{kbID, id}, r.args(fields)...)
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting %s %d: %w", r.table.typ, id, err)
	}
	return nil
}

// Update overwrites every field of an existing entity.
func (r *entityRepo) Update(ctx context.Context, kbID string, id int64, fields entities.Fields) error {
	if err := r.checkFields(fields); err != nil {
		return err
	}

	sets := make([]string, len(r.table.columns))
	for i, col := range r.table.columns {
		sets[i] = col + " = ?"
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE kb_id = ? AND id = ?`,
		r.table.name, strings.Join(sets, ", "))

	args := append(r.args(fields), kbID, id)
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating %s %d: %w", r.table.typ, id, err)
	}
	return expectOneRow(res, fmt.Sprintf("%s %d", r.table.typ, id))
}

// Delete removes an entity.
func (r *entityRepo) Delete(ctx context.Context, kbID string, id int64) error {
	if err := r.check(); err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE kb_id = ? AND id = ?`, r.table.name)
	res, err := r.q.ExecContext(ctx, query, kbID, id)
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", r.table.typ, id, err)
	}
	return expectOneRow(res, fmt.Sprintf("%s %d", r.table.typ, id))
}

// NextID returns one more than the highest id ever used for the type,
// counting deleted entities recorded in the activity log and ids reserved
// by staged merge request edits.
func (r *entityRepo) NextID(ctx context.Context, kbID string) (int64, error) {
	if err := r.check(); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(id), 0) FROM (
			SELECT id FROM %s WHERE kb_id = ?
			UNION ALL
			SELECT entity_id FROM activity_entries WHERE kb_id = ? AND entity_type = ?
			UNION ALL
			SELECT d.entity_id FROM draft_edits d
			JOIN merge_requests m ON m.id = d.merge_request_id
			WHERE m.kb_id = ? AND d.entity_type = ?
		)
	`, r.table.name)

	typ := string(r.table.typ)
	var highest int64
	if err := r.q.QueryRowContext(ctx, query, kbID, kbID, typ, kbID, typ).Scan(&highest); err != nil {
		return 0, fmt.Errorf("allocating %s id: %w", r.table.typ, err)
	}
	return highest + 1, nil
}

func (r *entityRepo) checkFields(fields entities.Fields) error {
	if err := r.check(); err != nil {
		return err
	}
	if fields == nil || fields.EntityType() != r.table.typ {
		return fmt.Errorf("fields do not match entity type %s", r.table.typ)
	}
	return nil
}

func (r *entityRepo) args(fields entities.Fields) []any {
	values := fields.Values()
	args := make([]any, len(r.table.columns))
	for i, col := range r.table.columns {
		args[i] = values[col]
	}
	return args
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scan reads an id followed by the table's columns, allocating destinations
// that match each column's Go type.
func (r *entityRepo) scan(row rowScanner) (int64, entities.Fields, error) {
	var id int64
	dest := make([]any, 0, len(r.table.columns)+1)
	dest = append(dest, &id)
	for _, col := range r.table.columns {
		switch r.table.zero[col].(type) {
		case int64:
			dest = append(dest, new(int64))
		case bool:
			dest = append(dest, new(bool))
		default:
			dest = append(dest, new(string))
		}
	}

	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("scanning %s: %w", r.table.typ, err)
	}

	values := make(entities.FieldValues, len(r.table.columns))
	for i, col := range r.table.columns {
		switch p := dest[i+1].(type) {
		case *int64:
			values[col] = *p
		case *bool:
			values[col] = *p
		case *string:
			values[col] = *p
		}
	}

	fields, err := entities.FieldsFromValues(r.table.typ, values)
	if err != nil {
		return 0, nil, fmt.Errorf("decoding %s %d: %w", r.table.typ, id, err)
	}
	return id, fields, nil
}
