package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

// JSONParser parses a change batch from JSON. The input is either an array
// of changes or an object with a "changes" array.
type JSONParser struct{}

type changeBatch struct {
	Changes []entities.Change `json:"changes"`
}

// Parse reads JSON from the reader and returns the changes it holds.
func (p *JSONParser) Parse(r io.Reader) ([]entities.Change, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading JSON: %w", err)
	}
	data = bytes.TrimSpace(data)

	var changes []entities.Change
	if len(data) > 0 && data[0] == '{' {
		var batch changeBatch
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		changes = batch.Changes
	} else if err := json.Unmarshal(data, &changes); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	if changes == nil {
		changes = []entities.Change{}
	}
	for i, c := range changes {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("change %d: %w", i+1, err)
		}
	}
	return changes, nil
}
