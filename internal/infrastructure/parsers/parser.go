// Package parsers reads change batches and entity seed files for direct
// import into a knowledge base.
package parsers

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

// Parser defines the interface for parsing changes from various formats.
type Parser interface {
	Parse(r io.Reader) ([]entities.Change, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONParser{}
	case ".csv":
		return &CSVParser{}
	default:
		return nil
	}
}
