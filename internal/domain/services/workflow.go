package services

import (
	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
)

type transition struct {
	from []entities.MergeRequestStatus
	to   entities.MergeRequestStatus
}

var nonTerminal = []entities.MergeRequestStatus{
	entities.StatusDraft,
	entities.StatusSubmitted,
	entities.StatusApproved,
	entities.StatusChangesRequested,
}

// transitions is the merge request state machine. Actions missing from the
// table do not change the status.
var transitions = map[entities.MergeRequestAction]transition{
	entities.ActionSubmit: {
		from: []entities.MergeRequestStatus{entities.StatusDraft, entities.StatusChangesRequested},
		to:   entities.StatusSubmitted,
	},
	entities.ActionApprove: {
		from: []entities.MergeRequestStatus{entities.StatusSubmitted},
		to:   entities.StatusApproved,
	},
	entities.ActionReject: {
		from: []entities.MergeRequestStatus{entities.StatusSubmitted},
		to:   entities.StatusRejected,
	},
	entities.ActionRequestChanges: {
		from: []entities.MergeRequestStatus{entities.StatusSubmitted},
		to:   entities.StatusChangesRequested,
	},
	entities.ActionReopen: {
		from: []entities.MergeRequestStatus{entities.StatusChangesRequested},
		to:   entities.StatusDraft,
	},
	entities.ActionMerge: {
		from: []entities.MergeRequestStatus{entities.StatusApproved},
		to:   entities.StatusMerged,
	},
	entities.ActionClose: {
		from: nonTerminal,
		to:   entities.StatusClosed,
	},
	entities.ActionRebase: {
		from: []entities.MergeRequestStatus{entities.StatusDraft, entities.StatusChangesRequested, entities.StatusApproved},
		to:   entities.StatusDraft,
	},
}

// nextStatus returns the status action leads to from the current status.
func nextStatus(current entities.MergeRequestStatus, action entities.MergeRequestAction) (entities.MergeRequestStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return "", &errs.TransitionError{Status: current, Action: action, Reason: "unknown action"}
	}
	for _, s := range t.from {
		if s == current {
			return t.to, nil
		}
	}
	return "", &errs.TransitionError{Status: current, Action: action}
}

// isReview reports whether action is a reviewer decision.
func isReview(action entities.MergeRequestAction) bool {
	switch action {
	case entities.ActionApprove, entities.ActionReject, entities.ActionRequestChanges:
		return true
	}
	return false
}

// isAuthorOnly reports whether only the author may perform action.
func isAuthorOnly(action entities.MergeRequestAction) bool {
	switch action {
	case entities.ActionSubmit, entities.ActionReopen, entities.ActionRebase, entities.ActionEdit:
		return true
	}
	return false
}

// checkActor enforces who may perform action on mr.
func checkActor(mr *entities.MergeRequest, actorID string, action entities.MergeRequestAction) error {
	switch {
	case isReview(action) && actorID == mr.AuthorID:
		return &errs.TransitionError{
			Status:     mr.Status,
			Action:     action,
			Reason:     "the author cannot review their own merge request",
			Validation: true,
		}
	case isAuthorOnly(action) && actorID != mr.AuthorID:
		return &errs.TransitionError{
			Status:     mr.Status,
			Action:     action,
			Reason:     "only the author can do this",
			Validation: true,
		}
	}
	return nil
}
