package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		from   entities.MergeRequestStatus
		action entities.MergeRequestAction
		want   entities.MergeRequestStatus
	}{
		{entities.StatusDraft, entities.ActionSubmit, entities.StatusSubmitted},
		{entities.StatusChangesRequested, entities.ActionSubmit, entities.StatusSubmitted},
		{entities.StatusSubmitted, entities.ActionApprove, entities.StatusApproved},
		{entities.StatusSubmitted, entities.ActionReject, entities.StatusRejected},
		{entities.StatusSubmitted, entities.ActionRequestChanges, entities.StatusChangesRequested},
		{entities.StatusChangesRequested, entities.ActionReopen, entities.StatusDraft},
		{entities.StatusApproved, entities.ActionMerge, entities.StatusMerged},
		{entities.StatusDraft, entities.ActionClose, entities.StatusClosed},
		{entities.StatusSubmitted, entities.ActionClose, entities.StatusClosed},
		{entities.StatusApproved, entities.ActionClose, entities.StatusClosed},
		{entities.StatusChangesRequested, entities.ActionClose, entities.StatusClosed},
		{entities.StatusApproved, entities.ActionRebase, entities.StatusDraft},

		{entities.StatusDraft, entities.ActionMerge, ""},
		{entities.StatusDraft, entities.ActionApprove, ""},
		{entities.StatusSubmitted, entities.ActionSubmit, ""},
		{entities.StatusSubmitted, entities.ActionMerge, ""},
		{entities.StatusApproved, entities.ActionApprove, ""},
		{entities.StatusMerged, entities.ActionClose, ""},
		{entities.StatusRejected, entities.ActionClose, ""},
		{entities.StatusClosed, entities.ActionReopen, ""},
		{entities.StatusRejected, entities.ActionRebase, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := nextStatus(tt.from, tt.action)
			if tt.want == "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, errs.ErrInvalidTransition)

				var te *errs.TransitionError
				require.True(t, errors.As(err, &te))
				assert.Equal(t, tt.from, te.Status)
				assert.Contains(t, err.Error(), string(tt.from))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckActor(t *testing.T) {
	mr := &entities.MergeRequest{AuthorID: "alice", Status: entities.StatusSubmitted}

	tests := []struct {
		name    string
		actor   string
		action  entities.MergeRequestAction
		wantErr bool
	}{
		{"author submits", "alice", entities.ActionSubmit, false},
		{"other submits", "bob", entities.ActionSubmit, true},
		{"reviewer approves", "bob", entities.ActionApprove, false},
		{"author approves", "alice", entities.ActionApprove, true},
		{"author rejects", "alice", entities.ActionReject, true},
		{"author requests changes", "alice", entities.ActionRequestChanges, true},
		{"anyone closes", "carol", entities.ActionClose, false},
		{"author closes", "alice", entities.ActionClose, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkActor(mr, tt.actor, tt.action)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, errs.ErrValidation)
			assert.ErrorIs(t, err, errs.ErrInvalidTransition)
		})
	}
}
