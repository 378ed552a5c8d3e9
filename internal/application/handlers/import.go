package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/services"
	"github.com/ersonp/onto-core/internal/infrastructure/parsers"
)

// ImportHandler handles applying change batches read from files.
type ImportHandler struct {
	kbs *services.KnowledgeBaseService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(kbs *services.KnowledgeBaseService) *ImportHandler {
	return &ImportHandler{
		kbs: kbs,
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format string // "json", "csv", or "auto"
	DryRun bool   // Parse and validate without committing
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Changes   []entities.Change    `json:"changes"`
	Stats     entities.ChangeStats `json:"stats"`
	Version   int64                `json:"version"`
	Committed bool                 `json:"committed"`
	DryRun    bool                 `json:"dry_run"`
}

// Handle parses a change file and commits it to the knowledge base as one
// version.
func (h *ImportHandler) Handle(ctx context.Context, kbRef, actorID, filePath string, opts ImportOptions) (*ImportResult, error) {
	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}

	if parser == nil {
		return nil, errs.Validation("unsupported format for file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	return h.apply(ctx, kbRef, actorID, parser, file, opts.DryRun)
}

// HandleReader is Handle for an already open stream in the given format.
func (h *ImportHandler) HandleReader(ctx context.Context, kbRef, actorID string, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	parser := parsers.ForFormat(opts.Format)
	if parser == nil {
		return nil, errs.Validation("unsupported format %q", opts.Format)
	}
	return h.apply(ctx, kbRef, actorID, parser, r, opts.DryRun)
}

func (h *ImportHandler) apply(
	ctx context.Context,
	kbRef, actorID string,
	parser parsers.Parser,
	r io.Reader,
	dryRun bool,
) (*ImportResult, error) {
	kb, err := h.kbs.Resolve(ctx, kbRef)
	if err != nil {
		return nil, err
	}

	changes, err := parser.Parse(r)
	if err != nil {
		return nil, errs.Validation("parsing changes: %w", err)
	}

	if dryRun {
		return &ImportResult{
			Changes: changes,
			Stats:   entities.CountChanges(changes),
			Version: kb.Version,
			DryRun:  true,
		}, nil
	}

	result, err := h.kbs.ApplyChanges(ctx, kb.ID, changes, actorID)
	if err != nil {
		return nil, err
	}
	return &ImportResult{
		Changes:   result.Changes,
		Stats:     entities.CountChanges(result.Changes),
		Version:   result.Version,
		Committed: result.Committed,
	}, nil
}
