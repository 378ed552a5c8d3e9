package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
)

func TestParseAssignments(t *testing.T) {
	patch, err := ParseAssignments(entities.EntityRelationship, []string{
		"source_concept_id=1",
		"label=has part",
		"description=",
		"bidirectional=true",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.FieldValues{
		"source_concept_id": int64(1),
		"label":             "has part",
		"description":       "",
		"bidirectional":     true,
	}, patch)

	_, err = ParseAssignments(entities.EntityConcept, []string{"=x"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		input   string
		want    entities.MergeRequestAction
		wantErr bool
	}{
		{input: "submit", want: entities.ActionSubmit},
		{input: "request-changes", want: entities.ActionRequestChanges},
		{input: "request_changes", want: entities.ActionRequestChanges},
		{input: " Approve ", want: entities.ActionApprove},
		{input: "merge", want: entities.ActionMerge},
		{input: "edit", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAction(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
