package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

func TestTransitionError(t *testing.T) {
	tests := []struct {
		name           string
		err            *TransitionError
		wantValidation bool
		wantMsg        string
	}{
		{
			name:    "state error",
			err:     &TransitionError{Status: entities.StatusDraft, Action: entities.ActionMerge},
			wantMsg: "cannot merge merge request in status draft",
		},
		{
			name:           "self review",
			err:            &TransitionError{Status: entities.StatusSubmitted, Action: entities.ActionRequestChanges, Reason: "reviewer must differ from author", Validation: true},
			wantValidation: true,
			wantMsg:        "cannot request changes merge request in status submitted: reviewer must differ from author",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("approving: %w", tt.err)
			assert.ErrorIs(t, wrapped, ErrInvalidTransition)
			assert.Equal(t, tt.wantValidation, errors.Is(wrapped, ErrValidation))
			assert.False(t, errors.Is(wrapped, ErrConflict))
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestConflictError(t *testing.T) {
	err := &ConflictError{Report: entities.ConflictReport{
		CheckedAtVersion: 6,
		Conflicts: []entities.Conflict{{
			EntityType: entities.EntityConcept,
			EntityID:   1,
			Field:      "definition",
			Kind:       entities.ChangeUpdate,
			Reason:     entities.ConflictModified,
			Expected:   "A",
			Actual:     "B",
		}},
	}}

	wrapped := fmt.Errorf("merging: %w", err)
	assert.ErrorIs(t, wrapped, ErrConflict)

	var ce *ConflictError
	assert.True(t, errors.As(wrapped, &ce))
	assert.Len(t, ce.Report.Conflicts, 1)
	assert.Contains(t, err.Error(), `update concept/1 field definition: expected "A", actual "B"`)
}

func TestValidation(t *testing.T) {
	inner := errors.New("bad field")
	err := Validation("decoding change: %w", inner)

	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "validation failed: decoding change: bad field", err.Error())
}

func TestApplyFailure(t *testing.T) {
	inner := errors.New("constraint failed")
	err := ApplyFailure(inner)

	assert.ErrorIs(t, err, ErrApplyFailure)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, err, ApplyFailure(err))
}

func TestNotFound(t *testing.T) {
	err := NotFound("merge request", "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, `merge request "abc": not found`, err.Error())
}
