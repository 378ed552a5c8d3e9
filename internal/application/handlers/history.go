package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/services"
)

// HistoryHandler handles activity history, version comparison, revert and
// snapshot export.
type HistoryHandler struct {
	kbs       *services.KnowledgeBaseService
	history   *services.HistoryService
	snapshots *services.SnapshotStore
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(
	kbs *services.KnowledgeBaseService,
	history *services.HistoryService,
	snapshots *services.SnapshotStore,
) *HistoryHandler {
	return &HistoryHandler{
		kbs:       kbs,
		history:   history,
		snapshots: snapshots,
	}
}

// HistoryResult is a page of the activity log.
type HistoryResult struct {
	KnowledgeBase *entities.KnowledgeBase  `json:"knowledge_base"`
	Skip          int                      `json:"skip"`
	Entries       []entities.ActivityEntry `json:"entries"`
}

// CompareResult holds the changes between two versions.
type CompareResult struct {
	From    int64                `json:"from"`
	To      int64                `json:"to"`
	Changes []entities.Change    `json:"changes"`
	Stats   entities.ChangeStats `json:"stats"`
}

// HandleHistory returns a page of activity entries, newest first.
func (h *HistoryHandler) HandleHistory(ctx context.Context, kbRef string, skip, take int) (*HistoryResult, error) {
	kb, err := h.kbs.Resolve(ctx, kbRef)
	if err != nil {
		return nil, err
	}
	entries, err := h.history.GetHistory(ctx, kb.ID, skip, take)
	if err != nil {
		return nil, err
	}
	return &HistoryResult{KnowledgeBase: kb, Skip: skip, Entries: entries}, nil
}

// HandleCompare returns the changes from one version to another.
func (h *HistoryHandler) HandleCompare(ctx context.Context, kbRef string, from, to int64) (*CompareResult, error) {
	kb, err := h.kbs.Resolve(ctx, kbRef)
	if err != nil {
		return nil, err
	}
	changes, err := h.history.CompareVersions(ctx, kb.ID, from, to)
	if err != nil {
		return nil, err
	}
	return &CompareResult{
		From:    from,
		To:      to,
		Changes: changes,
		Stats:   entities.CountChanges(changes),
	}, nil
}

// HandleRevert restores the knowledge base to an earlier version.
func (h *HistoryHandler) HandleRevert(ctx context.Context, kbRef string, target int64, actorID string) (services.CommitResult, error) {
	kb, err := h.kbs.Resolve(ctx, kbRef)
	if err != nil {
		return services.CommitResult{}, err
	}
	return h.history.RevertToVersion(ctx, kb.ID, target, actorID)
}

// HandleExportSnapshot writes a snapshot as indented JSON. An empty
// snapshotID captures a fresh snapshot of the knowledge base.
func (h *HistoryHandler) HandleExportSnapshot(ctx context.Context, kbRef, snapshotID string, w io.Writer) (*entities.Snapshot, error) {
	var (
		snap *entities.Snapshot
		err  error
	)
	if snapshotID != "" {
		snap, err = h.snapshots.Get(ctx, snapshotID)
	} else {
		var kb *entities.KnowledgeBase
		if kb, err = h.kbs.Resolve(ctx, kbRef); err != nil {
			return nil, err
		}
		snap, err = h.snapshots.Capture(ctx, kb.ID)
	}
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}
	return snap, nil
}
