package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

// CSVParser parses an entity seed file. Every row creates one entity.
// Required columns: entity_type. An optional entity_id column fixes the id;
// a missing or empty id asks for the next free one. Every other column
// names a field; empty cells leave the field at its zero value.
type CSVParser struct{}

// Parse reads CSV from the reader and returns one create per row.
func (p *CSVParser) Parse(r io.Reader) ([]entities.Change, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, header)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) ([]string, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	found := false
	for _, col := range header {
		if col == "entity_type" {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("missing required column: entity_type")
	}

	return header, nil
}

// readRecords reads all data rows and converts them to creates.
func (p *CSVParser) readRecords(reader *csv.Reader, header []string) ([]entities.Change, error) {
	changes := []entities.Change{}
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		c, err := p.parseRecord(record, header)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		changes = append(changes, c)
	}

	return changes, nil
}

// parseRecord converts a CSV record to a create.
func (p *CSVParser) parseRecord(record []string, header []string) (entities.Change, error) {
	raw := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(record) {
			raw[col] = strings.TrimSpace(record[i])
		}
	}

	t, err := entities.ParseEntityType(raw["entity_type"])
	if err != nil {
		return entities.Change{}, err
	}
	c := entities.Change{EntityType: t, Kind: entities.ChangeCreate, After: entities.FieldValues{}}

	if s := raw["entity_id"]; s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return entities.Change{}, fmt.Errorf("invalid entity_id %q", s)
		}
		c.EntityID = id
	}

	for _, col := range header {
		if col == "entity_type" || col == "entity_id" {
			continue
		}
		s := raw[col]
		if s == "" {
			continue
		}
		v, err := entities.ParseFieldString(t, col, s)
		if err != nil {
			return entities.Change{}, err
		}
		c.After[col] = v
	}

	if err := c.Validate(); err != nil {
		return entities.Change{}, err
	}
	return c, nil
}
