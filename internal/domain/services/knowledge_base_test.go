package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
)

func TestKnowledgeBase_Create(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	kb, err := env.kbs.Create(ctx, CreateKnowledgeBaseInput{Name: "  Biology ", Description: "cells"})
	require.NoError(t, err)
	assert.Equal(t, "Biology", kb.Name)
	assert.Zero(t, kb.Version)

	tests := []struct {
		name    string
		in      CreateKnowledgeBaseInput
		wantErr string
	}{
		{"blank name", CreateKnowledgeBaseInput{Name: " "}, "name is required"},
		{"duplicate name", CreateKnowledgeBaseInput{Name: "biology"}, "already exists"},
		{"name too long", CreateKnowledgeBaseInput{Name: string(make([]byte, 101))}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.kbs.Create(ctx, tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrValidation)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestKnowledgeBase_Resolve(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	id := env.seedKB(t, "Biology")
	env.seedKB(t, "Physics")

	tests := []struct {
		name    string
		ref     string
		wantErr error
	}{
		{"by id", id, nil},
		{"by name", "Biology", nil},
		{"by name ignoring case", "biology", nil},
		{"unknown", "chemistry", errs.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb, err := env.kbs.Resolve(ctx, tt.ref)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, id, kb.ID)
		})
	}

	list, err := env.kbs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Biology", list[0].Name)
}

func TestKnowledgeBase_ListEntities(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")
	env.apply(t, kb,
		createConcept(1, "Cell", "A"),
		createConcept(2, "Organ", "B"),
		createRelationship(1, 1, 2, "part_of"),
	)

	all, err := env.kbs.ListEntities(ctx, kb, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, conceptKey(1), all[0].Key)
	assert.Equal(t, relKey(1), all[2].Key)

	rels, err := env.kbs.ListEntities(ctx, kb, entities.EntityRelationship)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, entities.RelationshipFields{SourceConceptID: 1, TargetConceptID: 2, RelationType: "part_of"}, rels[0].Fields)

	props, err := env.kbs.ListEntities(ctx, kb, entities.EntityIndividualProperty)
	require.NoError(t, err)
	assert.Empty(t, props)

	_, err = env.kbs.ListEntities(ctx, kb, "widget")
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = env.kbs.ListEntities(ctx, "nope", "")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestKnowledgeBase_ApplyChanges(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")

	res, err := env.kbs.ApplyChanges(ctx, kb, []entities.Change{createConcept(0, "Cell", "A")}, "alice")
	require.NoError(t, err)
	assert.True(t, res.Committed)
	assert.Equal(t, int64(1), res.Version)
	assert.Equal(t, int64(1), res.Changes[0].EntityID)

	got, err := env.kbs.Get(ctx, kb)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	_, err = env.kbs.ApplyChanges(ctx, kb, []entities.Change{createConcept(1, "Again", "")}, "alice")
	assert.ErrorIs(t, err, errs.ErrApplyFailure, "id already taken")
	assert.Equal(t, int64(1), env.version(t, kb))
}
