package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/ports"
)

// CreateMergeRequestInput holds the fields needed to open a merge request.
type CreateMergeRequestInput struct {
	KnowledgeBaseID string `json:"knowledge_base_id" validate:"required"`
	Title           string `json:"title" validate:"notblank,max=200"`
	Description     string `json:"description" validate:"max=10000"`
	AuthorID        string `json:"author_id" validate:"required"`
}

// MergeRequestService runs the merge request lifecycle: the author's staged
// edits, review transitions, conflict detection and merge.
type MergeRequestService struct {
	store    ports.Store
	applier  *ChangeApplier
	sink     ports.NotificationSink
	recorder ports.Recorder
	logger   *slog.Logger
}

// NewMergeRequestService creates a new MergeRequestService. sink and
// recorder may be nil.
func NewMergeRequestService(
	store ports.Store,
	applier *ChangeApplier,
	sink ports.NotificationSink,
	recorder ports.Recorder,
	logger *slog.Logger,
) *MergeRequestService {
	return &MergeRequestService{
		store:    store,
		applier:  applier,
		sink:     sink,
		recorder: recorderOrNop(recorder),
		logger:   loggerOrDiscard(logger),
	}
}

// Create opens a draft merge request based on a fresh snapshot of the
// knowledge base.
func (s *MergeRequestService) Create(ctx context.Context, in CreateMergeRequestInput) (*entities.MergeRequest, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var mr *entities.MergeRequest
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		snap, err := captureTx(ctx, tx, in.KnowledgeBaseID)
		if err != nil {
			return err
		}

		now := timeNow()
		mr = &entities.MergeRequest{
			ID:              uuid.New().String(),
			KnowledgeBaseID: in.KnowledgeBaseID,
			Title:           in.Title,
			Description:     in.Description,
			AuthorID:        in.AuthorID,
			BaseSnapshotID:  snap.ID,
			BaseVersion:     snap.CapturedAtVersion,
			Status:          entities.StatusDraft,
			CreatedAt:       now,
			UpdatedAt:       now,
			Changes:         []entities.Change{},
		}
		if err := tx.MergeRequests().Create(ctx, mr); err != nil {
			return fmt.Errorf("creating merge request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "merge request created",
		"merge_request", mr.ID, "knowledge_base", mr.KnowledgeBaseID, "base_version", mr.BaseVersion)
	return mr, nil
}

// Get returns a merge request with its changes and comments.
func (s *MergeRequestService) Get(ctx context.Context, id string) (*entities.MergeRequest, error) {
	var mr *entities.MergeRequest
	err := s.store.View(ctx, func(tx ports.Tx) error {
		var err error
		mr, err = getMergeRequest(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mr, nil
}

// List returns the merge requests of a knowledge base, newest first. An
// empty status lists every merge request.
func (s *MergeRequestService) List(ctx context.Context, kbID string, status entities.MergeRequestStatus) ([]entities.MergeRequest, error) {
	if status != "" && !status.IsValid() {
		return nil, errs.Validation("unknown status %q", status)
	}

	var list []entities.MergeRequest
	err := s.store.View(ctx, func(tx ports.Tx) error {
		if _, err := getKnowledgeBase(ctx, tx, kbID); err != nil {
			return err
		}
		var err error
		list, err = tx.MergeRequests().List(ctx, kbID, status)
		if err != nil {
			return fmt.Errorf("listing merge requests: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListEdits returns the author's staged edits.
func (s *MergeRequestService) ListEdits(ctx context.Context, mrID string) ([]entities.DraftEdit, error) {
	var edits []entities.DraftEdit
	err := s.store.View(ctx, func(tx ports.Tx) error {
		if _, err := getMergeRequest(ctx, tx, mrID); err != nil {
			return err
		}
		var err error
		edits, err = tx.MergeRequests().ListDraftEdits(ctx, mrID)
		if err != nil {
			return fmt.Errorf("listing staged edits: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edits, nil
}

// StageEdit patches an entity on the author's branch. A key with id 0
// creates a new entity under a freshly allocated id. The change list is
// recomputed afterwards.
func (s *MergeRequestService) StageEdit(
	ctx context.Context,
	mrID, actorID string,
	key entities.EntityKey,
	patch entities.FieldValues,
) (*entities.DraftEdit, error) {
	if !key.Type.IsValid() {
		return nil, errs.Validation("unknown entity type %q", key.Type)
	}
	if len(patch) == 0 {
		return nil, errs.Validation("no fields to change")
	}

	var edit *entities.DraftEdit
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		mr, err := getMergeRequest(ctx, tx, mrID)
		if err != nil {
			return err
		}
		if err := checkEditable(mr, actorID); err != nil {
			return err
		}
		b, err := loadBranch(ctx, tx, mr)
		if err != nil {
			return err
		}

		allocated := key.ID == 0
		if allocated {
			if key.ID, err = nextDraftID(ctx, tx, mr.KnowledgeBaseID, key.Type, b.overlay); err != nil {
				return err
			}
		}

		existing, found := findEdit(b.edits, key)
		switch {
		case found && existing.Deleted:
			return errs.Validation("%s is staged for deletion", key)
		case !found:
			if _, ok := b.overlay[key]; !ok && !allocated {
				return errs.NotFound("entity", key.String())
			}
		}

		merged := existing.Patch.Clone()
		if merged == nil {
			merged = make(entities.FieldValues, len(patch))
		}
		for name, v := range patch {
			merged[name] = v
		}

		edit = &entities.DraftEdit{
			MergeRequestID: mr.ID,
			Key:            key,
			Patch:          merged,
			UpdatedAt:      timeNow(),
		}
		edits := replaceEdit(b.edits, *edit)
		overlay, err := overlayEdits(b.base.Entities, edits)
		if err != nil {
			return errs.Validation("%w", err)
		}
		if err := checkReferences(overlay); err != nil {
			return err
		}

		if err := tx.MergeRequests().SaveDraftEdit(ctx, edit); err != nil {
			return fmt.Errorf("staging edit: %w", err)
		}
		return setChanges(ctx, tx, mr.ID, b.base.Entities, overlay)
	})
	if err != nil {
		return nil, err
	}
	return edit, nil
}

// StageDelete marks an entity for deletion on the author's branch. An
// entity still referenced on the branch cannot be deleted. Deleting an
// entity created on the branch drops its staged creation.
func (s *MergeRequestService) StageDelete(ctx context.Context, mrID, actorID string, key entities.EntityKey) error {
	return s.store.Update(ctx, func(tx ports.Tx) error {
		mr, err := getMergeRequest(ctx, tx, mrID)
		if err != nil {
			return err
		}
		if err := checkEditable(mr, actorID); err != nil {
			return err
		}
		b, err := loadBranch(ctx, tx, mr)
		if err != nil {
			return err
		}

		if _, ok := b.overlay[key]; !ok {
			return errs.NotFound("entity", key.String())
		}
		if by, ok := referencedBy(b.overlay, key); ok {
			return errs.Validation("%s is still referenced by %s", key, by)
		}

		var edits []entities.DraftEdit
		if _, inBase := b.base.Entities[key]; inBase {
			edit := entities.DraftEdit{MergeRequestID: mr.ID, Key: key, Deleted: true, UpdatedAt: timeNow()}
			if err := tx.MergeRequests().SaveDraftEdit(ctx, &edit); err != nil {
				return fmt.Errorf("staging delete: %w", err)
			}
			edits = replaceEdit(b.edits, edit)
		} else {
			if err := tx.MergeRequests().DeleteDraftEdit(ctx, mr.ID, key); err != nil {
				return fmt.Errorf("dropping staged create: %w", err)
			}
			edits = removeEdit(b.edits, key)
		}

		overlay, err := overlayEdits(b.base.Entities, edits)
		if err != nil {
			return err
		}
		return setChanges(ctx, tx, mr.ID, b.base.Entities, overlay)
	})
}

// DiscardEdit drops the staged edit of one entity, restoring its base state
// on the author's branch.
func (s *MergeRequestService) DiscardEdit(ctx context.Context, mrID, actorID string, key entities.EntityKey) error {
	return s.store.Update(ctx, func(tx ports.Tx) error {
		mr, err := getMergeRequest(ctx, tx, mrID)
		if err != nil {
			return err
		}
		if err := checkEditable(mr, actorID); err != nil {
			return err
		}
		b, err := loadBranch(ctx, tx, mr)
		if err != nil {
			return err
		}

		if _, found := findEdit(b.edits, key); !found {
			return errs.NotFound("staged edit", key.String())
		}
		overlay, err := overlayEdits(b.base.Entities, removeEdit(b.edits, key))
		if err != nil {
			return err
		}
		if err := checkReferences(overlay); err != nil {
			return err
		}

		if err := tx.MergeRequests().DeleteDraftEdit(ctx, mr.ID, key); err != nil {
			return fmt.Errorf("discarding edit: %w", err)
		}
		return setChanges(ctx, tx, mr.ID, b.base.Entities, overlay)
	})
}

// RecomputeChanges rediffs the author's branch against the base snapshot
// and stores the result as the change list.
func (s *MergeRequestService) RecomputeChanges(ctx context.Context, mrID string) ([]entities.Change, error) {
	var changes []entities.Change
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		mr, err := getMergeRequest(ctx, tx, mrID)
		if err != nil {
			return err
		}
		if !mr.Status.IsEditable() {
			return &errs.TransitionError{Status: mr.Status, Action: entities.ActionRecompute}
		}
		b, err := loadBranch(ctx, tx, mr)
		if err != nil {
			return err
		}

		changes = Diff(b.base.Entities, b.overlay)
		if err := tx.MergeRequests().SetChanges(ctx, mr.ID, changes); err != nil {
			return fmt.Errorf("saving changes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// Submit sends the merge request for review. It must carry at least one change.
func (s *MergeRequestService) Submit(ctx context.Context, mrID, actorID, comment string) (*entities.MergeRequest, error) {
	return s.transition(ctx, mrID, actorID, entities.ActionSubmit, comment)
}

// Approve accepts a submitted merge request. The author cannot approve.
func (s *MergeRequestService) Approve(ctx context.Context, mrID, actorID, comment string) (*entities.MergeRequest, error) {
	return s.transition(ctx, mrID, actorID, entities.ActionApprove, comment)
}

// Reject refuses a submitted merge request for good.
func (s *MergeRequestService) Reject(ctx context.Context, mrID, actorID, comment string) (*entities.MergeRequest, error) {
	return s.transition(ctx, mrID, actorID, entities.ActionReject, comment)
}

// RequestChanges returns a submitted merge request to its author.
func (s *MergeRequestService) RequestChanges(ctx context.Context, mrID, actorID, comment string) (*entities.MergeRequest, error) {
	return s.transition(ctx, mrID, actorID, entities.ActionRequestChanges, comment)
}

// Reopen moves a merge request with requested changes back to draft.
func (s *MergeRequestService) Reopen(ctx context.Context, mrID, actorID, comment string) (*entities.MergeRequest, error) {
	return s.transition(ctx, mrID, actorID, entities.ActionReopen, comment)
}

// Close abandons a merge request without merging.
func (s *MergeRequestService) Close(ctx context.Context, mrID, actorID, comment string) (*entities.MergeRequest, error) {
	return s.transition(ctx, mrID, actorID, entities.ActionClose, comment)
}

// Rebase moves the merge request onto a fresh snapshot of live state and
// returns it to draft. Staged edits are replayed over the new base; edits
// of entities deleted since the old base are dropped.
func (s *MergeRequestService) Rebase(ctx context.Context, mrID, actorID string) (*entities.MergeRequest, error) {
	return s.transition(ctx, mrID, actorID, entities.ActionRebase, "")
}

// AddComment adds a review note to a merge request that is still open.
func (s *MergeRequestService) AddComment(ctx context.Context, mrID, actorID, body string) (*entities.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errs.Validation("comment body is required")
	}
	if actorID == "" {
		return nil, errs.Validation("actor id is required")
	}

	var c *entities.Comment
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		mr, err := getMergeRequest(ctx, tx, mrID)
		if err != nil {
			return err
		}
		if mr.Status.IsTerminal() {
			return &errs.TransitionError{Status: mr.Status, Action: entities.ActionComment}
		}
		c, err = addComment(ctx, tx, mr.ID, actorID, entities.ActionComment, body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DetectConflicts checks the change list against current live state
// without taking the knowledge base lock.
func (s *MergeRequestService) DetectConflicts(ctx context.Context, mrID string) (*entities.ConflictReport, error) {
	var report *entities.ConflictReport
	err := s.store.View(ctx, func(tx ports.Tx) error {
		mr, err := getMergeRequest(ctx, tx, mrID)
		if err != nil {
			return err
		}
		kb, err := getKnowledgeBase(ctx, tx, mr.KnowledgeBaseID)
		if err != nil {
			return err
		}
		conflicts, err := detectConflicts(ctx, tx, kb.ID, mr.Changes)
		if err != nil {
			return err
		}
		report = &entities.ConflictReport{
			KnowledgeBaseID:  kb.ID,
			MergeRequestID:   mr.ID,
			CheckedAtVersion: kb.Version,
			Conflicts:        conflicts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Merge applies an approved merge request to live state as one new version.
// Conflicts are checked under the knowledge base lock; on conflict nothing
// changes, the merge request stays approved and an *errs.ConflictError is
// returned.
func (s *MergeRequestService) Merge(ctx context.Context, mrID, actorID string) (CommitResult, error) {
	if actorID == "" {
		return CommitResult{}, errs.Validation("actor id is required")
	}

	var mr *entities.MergeRequest
	err := s.store.View(ctx, func(tx ports.Tx) error {
		var err error
		if mr, err = getMergeRequest(ctx, tx, mrID); err != nil {
			return err
		}
		_, err = nextStatus(mr.Status, entities.ActionMerge)
		return err
	})
	if err != nil {
		return CommitResult{}, err
	}

	batch := Batch{
		KnowledgeBaseID: mr.KnowledgeBaseID,
		ActorID:         actorID,
		MergeRequestID:  mr.ID,
		Operation:       entities.OperationMerge,
	}

	prepare := func(ctx context.Context, tx ports.Tx, kb *entities.KnowledgeBase) ([]entities.Change, error) {
		cur, err := getMergeRequest(ctx, tx, mrID)
		if err != nil {
			return nil, err
		}
		if _, err := nextStatus(cur.Status, entities.ActionMerge); err != nil {
			return nil, err
		}
		conflicts, err := detectConflicts(ctx, tx, kb.ID, cur.Changes)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, &errs.ConflictError{Report: entities.ConflictReport{
				KnowledgeBaseID:  kb.ID,
				MergeRequestID:   cur.ID,
				CheckedAtVersion: kb.Version,
				Conflicts:        conflicts,
			}}
		}
		return cur.Changes, nil
	}

	finish := func(ctx context.Context, tx ports.Tx, version int64) error {
		repo := tx.MergeRequests()
		if err := repo.UpdateStatus(ctx, mrID, entities.StatusApproved, entities.StatusMerged, ""); err != nil {
			return fmt.Errorf("marking merge request merged: %w", err)
		}
		if err := repo.SetMergedVersion(ctx, mrID, version); err != nil {
			return err
		}
		_, err := addComment(ctx, tx, mrID, actorID, entities.ActionMerge, fmt.Sprintf("merged as version %d", version))
		return err
	}

	result, err := s.applier.ApplyWith(ctx, batch, prepare, finish)
	if err != nil {
		var conflictErr *errs.ConflictError
		if errors.As(err, &conflictErr) {
			s.recorder.AddConflicts(len(conflictErr.Report.Conflicts))
			s.logger.WarnContext(ctx, "merge refused by conflicts",
				"merge_request", mrID,
				"knowledge_base", mr.KnowledgeBaseID,
				"conflicts", len(conflictErr.Report.Conflicts),
			)
		}
		return CommitResult{}, err
	}

	s.recorder.IncTransition(string(entities.ActionMerge))
	s.logger.InfoContext(ctx, "merge request merged",
		"merge_request", mrID, "knowledge_base", mr.KnowledgeBaseID, "version", result.Version)
	s.notify(ctx, entities.NotifyMerged, mr, actorID, result.Version, len(result.Changes))
	return result, nil
}

// transition performs a status change together with its audit comment.
func (s *MergeRequestService) transition(
	ctx context.Context,
	mrID, actorID string,
	action entities.MergeRequestAction,
	comment string,
) (*entities.MergeRequest, error) {
	if actorID == "" {
		return nil, errs.Validation("actor id is required")
	}

	var out *entities.MergeRequest
	err := s.store.Update(ctx, func(tx ports.Tx) error {
		mr, err := getMergeRequest(ctx, tx, mrID)
		if err != nil {
			return err
		}
		next, err := nextStatus(mr.Status, action)
		if err != nil {
			return err
		}
		if err := checkActor(mr, actorID, action); err != nil {
			return err
		}
		if action == entities.ActionSubmit && len(mr.Changes) == 0 {
			return errs.Validation("merge request has no changes to submit")
		}

		var reviewer string
		if isReview(action) {
			reviewer = actorID
		}
		if err := tx.MergeRequests().UpdateStatus(ctx, mr.ID, mr.Status, next, reviewer); err != nil {
			return fmt.Errorf("updating status: %w", err)
		}

		body := strings.TrimSpace(comment)
		if action == entities.ActionRebase {
			if body, err = rebaseTx(ctx, tx, mr); err != nil {
				return err
			}
		}
		if body == "" {
			body = defaultComment(action)
		}
		if _, err := addComment(ctx, tx, mr.ID, actorID, action, body); err != nil {
			return err
		}

		out, err = getMergeRequest(ctx, tx, mr.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recorder.IncTransition(string(action))
	s.logger.InfoContext(ctx, "merge request transition",
		"merge_request", out.ID, "action", action, "status", out.Status, "actor", actorID)

	switch action {
	case entities.ActionReject:
		s.notify(ctx, entities.NotifyRejected, out, actorID, 0, len(out.Changes))
	case entities.ActionClose:
		s.notify(ctx, entities.NotifyClosed, out, actorID, 0, len(out.Changes))
	}
	return out, nil
}

// rebaseTx moves mr onto a fresh snapshot and recomputes its changes. It
// returns the audit comment describing the rebase.
func rebaseTx(ctx context.Context, tx ports.Tx, mr *entities.MergeRequest) (string, error) {
	old, err := getSnapshot(ctx, tx, mr.BaseSnapshotID)
	if err != nil {
		return "", err
	}
	snap, err := captureTx(ctx, tx, mr.KnowledgeBaseID)
	if err != nil {
		return "", err
	}
	if err := tx.MergeRequests().SetBase(ctx, mr.ID, snap.ID, snap.CapturedAtVersion); err != nil {
		return "", fmt.Errorf("updating base: %w", err)
	}

	edits, err := tx.MergeRequests().ListDraftEdits(ctx, mr.ID)
	if err != nil {
		return "", fmt.Errorf("listing staged edits: %w", err)
	}

	kept := make([]entities.DraftEdit, 0, len(edits))
	var dropped []string
	for _, e := range edits {
		_, inOld := old.Entities[e.Key]
		_, inNew := snap.Entities[e.Key]
		switch {
		case inOld && !inNew:
			if err := tx.MergeRequests().DeleteDraftEdit(ctx, mr.ID, e.Key); err != nil {
				return "", fmt.Errorf("dropping staged edit: %w", err)
			}
			dropped = append(dropped, e.Key.String())
		case !inOld && inNew:
			return "", errs.Validation("staged create of %s collides with a live entity; discard it first", e.Key)
		default:
			kept = append(kept, e)
		}
	}

	overlay, err := overlayEdits(snap.Entities, kept)
	if err != nil {
		return "", errs.Validation("%w", err)
	}
	if err := checkReferences(overlay); err != nil {
		return "", err
	}
	if err := setChanges(ctx, tx, mr.ID, snap.Entities, overlay); err != nil {
		return "", err
	}

	msg := fmt.Sprintf("rebased onto version %d", snap.CapturedAtVersion)
	if len(dropped) > 0 {
		msg += "; dropped edits of deleted entities: " + strings.Join(dropped, ", ")
	}
	return msg, nil
}

func (s *MergeRequestService) notify(
	ctx context.Context,
	kind entities.NotificationKind,
	mr *entities.MergeRequest,
	actorID string,
	version int64,
	changeCount int,
) {
	if s.sink == nil {
		return
	}
	s.sink.Notify(ctx, entities.Notification{
		Kind:            kind,
		KnowledgeBaseID: mr.KnowledgeBaseID,
		MergeRequestID:  mr.ID,
		Title:           mr.Title,
		Version:         version,
		ActorID:         actorID,
		ChangeCount:     changeCount,
		OccurredAt:      timeNow(),
	})
}

func getMergeRequest(ctx context.Context, tx ports.Tx, id string) (*entities.MergeRequest, error) {
	mr, err := tx.MergeRequests().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting merge request: %w", err)
	}
	if mr == nil {
		return nil, errs.NotFound("merge request", id)
	}
	return mr, nil
}

func addComment(
	ctx context.Context,
	tx ports.Tx,
	mrID, actorID string,
	action entities.MergeRequestAction,
	body string,
) (*entities.Comment, error) {
	c := &entities.Comment{
		ID:             uuid.New().String(),
		MergeRequestID: mrID,
		AuthorID:       actorID,
		Body:           body,
		Action:         action,
		CreatedAt:      timeNow(),
	}
	if err := tx.MergeRequests().AddComment(ctx, c); err != nil {
		return nil, fmt.Errorf("adding comment: %w", err)
	}
	return c, nil
}

func defaultComment(action entities.MergeRequestAction) string {
	switch action {
	case entities.ActionSubmit:
		return "submitted for review"
	case entities.ActionApprove:
		return "approved"
	case entities.ActionReject:
		return "rejected"
	case entities.ActionRequestChanges:
		return "changes requested"
	case entities.ActionReopen:
		return "reopened"
	case entities.ActionClose:
		return "closed"
	default:
		return string(action)
	}
}

// checkEditable enforces that only the author edits, and only while the
// merge request is a draft or has changes requested.
func checkEditable(mr *entities.MergeRequest, actorID string) error {
	if !mr.Status.IsEditable() {
		return &errs.TransitionError{Status: mr.Status, Action: entities.ActionEdit}
	}
	return checkActor(mr, actorID, entities.ActionEdit)
}

// branch is the author's view of a merge request: the base snapshot, the
// staged edits and the two combined.
type branch struct {
	base    *entities.Snapshot
	edits   []entities.DraftEdit
	overlay entities.EntityMap
}

func loadBranch(ctx context.Context, tx ports.Tx, mr *entities.MergeRequest) (*branch, error) {
	base, err := getSnapshot(ctx, tx, mr.BaseSnapshotID)
	if err != nil {
		return nil, err
	}
	edits, err := tx.MergeRequests().ListDraftEdits(ctx, mr.ID)
	if err != nil {
		return nil, fmt.Errorf("listing staged edits: %w", err)
	}
	overlay, err := overlayEdits(base.Entities, edits)
	if err != nil {
		return nil, err
	}
	return &branch{base: base, edits: edits, overlay: overlay}, nil
}

// nextDraftID allocates an id for an entity created on a branch. Ids are
// never handed out twice in a knowledge base, live or staged.
func nextDraftID(
	ctx context.Context,
	tx ports.Tx,
	kbID string,
	t entities.EntityType,
	overlay entities.EntityMap,
) (int64, error) {
	id, err := tx.Entities(t).NextID(ctx, kbID)
	if err != nil {
		return 0, fmt.Errorf("allocating %s id: %w", t, err)
	}
	if local := overlay.MaxID(t) + 1; local > id {
		id = local
	}
	return id, nil
}

func setChanges(ctx context.Context, tx ports.Tx, mrID string, base, overlay entities.EntityMap) error {
	if err := tx.MergeRequests().SetChanges(ctx, mrID, Diff(base, overlay)); err != nil {
		return fmt.Errorf("saving changes: %w", err)
	}
	return nil
}
