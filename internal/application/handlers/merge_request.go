package handlers

import (
	"context"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/services"
)

// MergeRequestHandler handles merge request operations.
type MergeRequestHandler struct {
	kbs     *services.KnowledgeBaseService
	service *services.MergeRequestService
}

// NewMergeRequestHandler creates a new MergeRequestHandler.
func NewMergeRequestHandler(kbs *services.KnowledgeBaseService, service *services.MergeRequestService) *MergeRequestHandler {
	return &MergeRequestHandler{
		kbs:     kbs,
		service: service,
	}
}

// MergeRequestDetail is a merge request together with the author's staged edits.
type MergeRequestDetail struct {
	MergeRequest *entities.MergeRequest `json:"merge_request"`
	Edits        []entities.DraftEdit   `json:"edits"`
	Stats        entities.ChangeStats   `json:"stats"`
}

// ActionResult is the outcome of a review action. Comment is set for the
// comment action only.
type ActionResult struct {
	Action       entities.MergeRequestAction `json:"action"`
	MergeRequest *entities.MergeRequest      `json:"merge_request,omitempty"`
	Comment      *entities.Comment           `json:"comment,omitempty"`
}

// HandleCreate opens a draft merge request on the referenced knowledge base.
func (h *MergeRequestHandler) HandleCreate(ctx context.Context, kbRef, actorID, title, description string) (*entities.MergeRequest, error) {
	kb, err := h.kbs.Resolve(ctx, kbRef)
	if err != nil {
		return nil, err
	}
	return h.service.Create(ctx, services.CreateMergeRequestInput{
		KnowledgeBaseID: kb.ID,
		Title:           title,
		Description:     description,
		AuthorID:        actorID,
	})
}

// HandleList lists the merge requests of a knowledge base, optionally
// filtered by status.
func (h *MergeRequestHandler) HandleList(ctx context.Context, kbRef, status string) ([]entities.MergeRequest, error) {
	kb, err := h.kbs.Resolve(ctx, kbRef)
	if err != nil {
		return nil, err
	}

	st := entities.MergeRequestStatus(status)
	if st != "" && !st.IsValid() {
		return nil, errs.Validation("unknown merge request status %q", status)
	}
	return h.service.List(ctx, kb.ID, st)
}

// HandleShow returns a merge request with its staged edits.
func (h *MergeRequestHandler) HandleShow(ctx context.Context, id string) (*MergeRequestDetail, error) {
	mr, err := h.service.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	edits, err := h.service.ListEdits(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MergeRequestDetail{
		MergeRequest: mr,
		Edits:        edits,
		Stats:        entities.CountChanges(mr.Changes),
	}, nil
}

// HandleEdit stages a field patch given as "field=value" assignments on the
// entity named by key ("type/id", id 0 for a new entity).
func (h *MergeRequestHandler) HandleEdit(ctx context.Context, id, actorID, key string, assignments []string) (*entities.DraftEdit, error) {
	k, err := ParseEntityKey(key)
	if err != nil {
		return nil, err
	}
	patch, err := ParseAssignments(k.Type, assignments)
	if err != nil {
		return nil, err
	}
	return h.service.StageEdit(ctx, id, actorID, k, patch)
}

// HandleEditValues stages a field patch that is already typed.
func (h *MergeRequestHandler) HandleEditValues(
	ctx context.Context,
	id, actorID string,
	key entities.EntityKey,
	patch entities.FieldValues,
) (*entities.DraftEdit, error) {
	return h.service.StageEdit(ctx, id, actorID, key, patch)
}

// HandleDeleteEntity stages the deletion of an entity.
func (h *MergeRequestHandler) HandleDeleteEntity(ctx context.Context, id, actorID, key string) error {
	k, err := ParseEntityKey(key)
	if err != nil {
		return err
	}
	return h.service.StageDelete(ctx, id, actorID, k)
}

// HandleDiscard drops the staged edit of an entity.
func (h *MergeRequestHandler) HandleDiscard(ctx context.Context, id, actorID, key string) error {
	k, err := ParseEntityKey(key)
	if err != nil {
		return err
	}
	return h.service.DiscardEdit(ctx, id, actorID, k)
}

// HandleRecompute recomputes the change list from the base snapshot and the
// staged edits.
func (h *MergeRequestHandler) HandleRecompute(ctx context.Context, id string) ([]entities.Change, error) {
	return h.service.RecomputeChanges(ctx, id)
}

// HandleAction performs a named review action. Merge has its own handler
// because it returns a commit result.
func (h *MergeRequestHandler) HandleAction(ctx context.Context, id, actorID, action, comment string) (*ActionResult, error) {
	a, err := ParseAction(action)
	if err != nil {
		return nil, err
	}

	result := &ActionResult{Action: a}
	var mr *entities.MergeRequest
	switch a {
	case entities.ActionSubmit:
		mr, err = h.service.Submit(ctx, id, actorID, comment)
	case entities.ActionApprove:
		mr, err = h.service.Approve(ctx, id, actorID, comment)
	case entities.ActionReject:
		mr, err = h.service.Reject(ctx, id, actorID, comment)
	case entities.ActionRequestChanges:
		mr, err = h.service.RequestChanges(ctx, id, actorID, comment)
	case entities.ActionReopen:
		mr, err = h.service.Reopen(ctx, id, actorID, comment)
	case entities.ActionClose:
		mr, err = h.service.Close(ctx, id, actorID, comment)
	case entities.ActionRebase:
		mr, err = h.service.Rebase(ctx, id, actorID)
	case entities.ActionComment:
		result.Comment, err = h.service.AddComment(ctx, id, actorID, comment)
	default:
		return nil, errs.Validation("action %q is not a review action", action)
	}
	if err != nil {
		return nil, err
	}
	result.MergeRequest = mr
	return result, nil
}

// HandleConflicts returns the conflict report of a merge request.
func (h *MergeRequestHandler) HandleConflicts(ctx context.Context, id string) (*entities.ConflictReport, error) {
	return h.service.DetectConflicts(ctx, id)
}

// HandleMerge merges an approved merge request.
func (h *MergeRequestHandler) HandleMerge(ctx context.Context, id, actorID string) (services.CommitResult, error) {
	return h.service.Merge(ctx, id, actorID)
}
