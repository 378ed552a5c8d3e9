package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/errs"
)

func TestMergeRequest_Create(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")
	env.apply(t, kb, createConcept(1, "Cell", "A"))

	tests := []struct {
		name    string
		in      CreateMergeRequestInput
		wantErr error
	}{
		{"valid", CreateMergeRequestInput{KnowledgeBaseID: kb, Title: "Fix cell", AuthorID: "alice"}, nil},
		{"blank title", CreateMergeRequestInput{KnowledgeBaseID: kb, Title: "   ", AuthorID: "alice"}, errs.ErrValidation},
		{"missing author", CreateMergeRequestInput{KnowledgeBaseID: kb, Title: "t"}, errs.ErrValidation},
		{"unknown knowledge base", CreateMergeRequestInput{KnowledgeBaseID: "nope", Title: "t", AuthorID: "alice"}, errs.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, err := env.mrs.Create(ctx, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entities.StatusDraft, mr.Status)
			assert.Equal(t, int64(1), mr.BaseVersion)
			assert.Empty(t, mr.Changes)

			snap, err := env.snapshots.Get(ctx, mr.BaseSnapshotID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), snap.CapturedAtVersion)
			assert.Len(t, snap.Entities, 1)
		})
	}

	t.Run("validation names the field", func(t *testing.T) {
		_, err := env.mrs.Create(ctx, CreateMergeRequestInput{KnowledgeBaseID: kb, AuthorID: "alice"})
		assert.ErrorContains(t, err, "title is required")
	})
}

func TestMergeRequest_StageEdits(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")
	env.apply(t, kb, createConcept(1, "Cell", "A"), createConcept(2, "Organ", "B"))

	mr, err := env.mrs.Create(ctx, CreateMergeRequestInput{KnowledgeBaseID: kb, Title: "t", AuthorID: "alice"})
	require.NoError(t, err)

	t.Run("patch existing entity", func(t *testing.T) {
		_, err := env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(1), entities.FieldValues{"definition": "B"})
		require.NoError(t, err)

		got, err := env.mrs.Get(ctx, mr.ID)
		require.NoError(t, err)
		require.Len(t, got.Changes, 1)
		assert.Equal(t, updateConcept(1, "definition", "A", "B"), got.Changes[0])
	})

	t.Run("create new entity with allocated id", func(t *testing.T) {
		edit, err := env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(0), entities.FieldValues{"name": "Tissue"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), edit.Key.ID)

		rel, err := env.mrs.StageEdit(ctx, mr.ID, "alice", relKey(0), entities.FieldValues{
			"source_concept_id": int64(3), "target_concept_id": int64(2), "relation_type": "part_of",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), rel.Key.ID)
	})

	t.Run("dangling reference is rejected", func(t *testing.T) {
		_, err := env.mrs.StageEdit(ctx, mr.ID, "alice", relKey(0), entities.FieldValues{
			"source_concept_id": int64(1), "target_concept_id": int64(77),
		})
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		_, err := env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(1), entities.FieldValues{"colour": "red"})
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, err := env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(50), entities.FieldValues{"name": "x"})
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("only the author edits", func(t *testing.T) {
		_, err := env.mrs.StageEdit(ctx, mr.ID, "bob", conceptKey(1), entities.FieldValues{"name": "x"})
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("referenced entity cannot be deleted", func(t *testing.T) {
		err := env.mrs.StageDelete(ctx, mr.ID, "alice", conceptKey(2))
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("discarding a referenced create is rejected", func(t *testing.T) {
		err := env.mrs.DiscardEdit(ctx, mr.ID, "alice", conceptKey(3))
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("delete staged create then base entity", func(t *testing.T) {
		require.NoError(t, env.mrs.StageDelete(ctx, mr.ID, "alice", relKey(1)))
		require.NoError(t, env.mrs.StageDelete(ctx, mr.ID, "alice", conceptKey(2)))

		_, err := env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(2), entities.FieldValues{"name": "x"})
		assert.ErrorIs(t, err, errs.ErrValidation)

		got, err := env.mrs.Get(ctx, mr.ID)
		require.NoError(t, err)
		stats := entities.CountChanges(got.Changes)
		assert.Equal(t, entities.ChangeStats{Creates: 1, Updates: 1, Deletes: 1}, stats)
	})

	t.Run("discard restores base", func(t *testing.T) {
		require.NoError(t, env.mrs.DiscardEdit(ctx, mr.ID, "alice", conceptKey(2)))
		require.NoError(t, env.mrs.DiscardEdit(ctx, mr.ID, "alice", conceptKey(1)))
		assert.ErrorIs(t, env.mrs.DiscardEdit(ctx, mr.ID, "alice", conceptKey(1)), errs.ErrNotFound)

		changes, err := env.mrs.RecomputeChanges(ctx, mr.ID)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, entities.ChangeCreate, changes[0].Kind)
		assert.Equal(t, conceptKey(3), changes[0].Key())
	})

	t.Run("live state is untouched", func(t *testing.T) {
		assert.Equal(t, int64(1), env.version(t, kb))
		assert.Len(t, env.live(t, kb), 2)
	})
}

func TestMergeRequest_Lifecycle(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")
	env.apply(t, kb, createConcept(1, "Cell", "A"))

	mr, err := env.mrs.Create(ctx, CreateMergeRequestInput{KnowledgeBaseID: kb, Title: "t", AuthorID: "alice"})
	require.NoError(t, err)

	_, err = env.mrs.Submit(ctx, mr.ID, "alice", "")
	assert.ErrorIs(t, err, errs.ErrValidation, "submit needs changes")

	_, err = env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(1), entities.FieldValues{"definition": "B"})
	require.NoError(t, err)

	got, err := env.mrs.Submit(ctx, mr.ID, "alice", "please review")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSubmitted, got.Status)

	_, err = env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(1), entities.FieldValues{"definition": "C"})
	assert.ErrorIs(t, err, errs.ErrInvalidTransition, "changes are frozen once submitted")
	_, err = env.mrs.RecomputeChanges(ctx, mr.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	_, err = env.mrs.Approve(ctx, mr.ID, "alice", "")
	assert.ErrorIs(t, err, errs.ErrValidation, "self approval")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	got, err = env.mrs.RequestChanges(ctx, mr.ID, "bob", "typo")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusChangesRequested, got.Status)
	assert.Equal(t, "bob", got.ReviewerID)

	_, err = env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(1), entities.FieldValues{"definition": "C"})
	require.NoError(t, err)

	got, err = env.mrs.Reopen(ctx, mr.ID, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusDraft, got.Status)

	_, err = env.mrs.Submit(ctx, mr.ID, "alice", "")
	require.NoError(t, err)
	got, err = env.mrs.Approve(ctx, mr.ID, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusApproved, got.Status)

	c, err := env.mrs.AddComment(ctx, mr.ID, "carol", "looks good")
	require.NoError(t, err)
	assert.Equal(t, entities.ActionComment, c.Action)

	res, err := env.mrs.Merge(ctx, mr.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Version)

	got, err = env.mrs.Get(ctx, mr.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusMerged, got.Status)
	assert.Equal(t, int64(2), got.MergedVersion)

	actions := make([]entities.MergeRequestAction, len(got.Comments))
	for i, c := range got.Comments {
		actions[i] = c.Action
	}
	assert.Equal(t, []entities.MergeRequestAction{
		entities.ActionSubmit,
		entities.ActionRequestChanges,
		entities.ActionReopen,
		entities.ActionSubmit,
		entities.ActionApprove,
		entities.ActionComment,
		entities.ActionMerge,
	}, actions)
	assert.Equal(t, "please review", got.Comments[0].Body)

	assert.Equal(t, "C", env.live(t, kb)[conceptKey(1)].Values()["definition"])

	_, err = env.mrs.Close(ctx, mr.ID, "alice", "")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition, "merged is terminal")
	_, err = env.mrs.AddComment(ctx, mr.ID, "carol", "late")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	assert.Equal(t, []entities.NotificationKind{
		entities.NotifyCommitted, // seed
		entities.NotifyCommitted,
		entities.NotifyMerged,
	}, env.sink.Kinds())
	assert.Equal(t, 1, env.rec.Transitions[string(entities.ActionMerge)])
}

func TestMergeRequest_RejectAndClose(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")
	env.apply(t, kb, createConcept(1, "Cell", "A"))

	edits := map[entities.EntityKey]entities.FieldValues{conceptKey(1): {"definition": "B"}}

	mr, err := env.mrs.Create(ctx, CreateMergeRequestInput{KnowledgeBaseID: kb, Title: "t", AuthorID: "alice"})
	require.NoError(t, err)
	_, err = env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(1), edits[conceptKey(1)])
	require.NoError(t, err)
	_, err = env.mrs.Submit(ctx, mr.ID, "alice", "")
	require.NoError(t, err)
	got, err := env.mrs.Reject(ctx, mr.ID, "bob", "no")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusRejected, got.Status)

	_, err = env.mrs.Close(ctx, mr.ID, "alice", "")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	approved := env.openApproved(t, kb, "carol", "bob", edits)
	got, err = env.mrs.Close(ctx, approved.ID, "carol", "abandoned")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusClosed, got.Status)

	list, err := env.mrs.List(ctx, kb, entities.StatusClosed)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, approved.ID, list[0].ID)

	all, err := env.mrs.List(ctx, kb, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = env.mrs.List(ctx, kb, "bogus")
	assert.ErrorIs(t, err, errs.ErrValidation)

	kinds := env.sink.Kinds()
	assert.Contains(t, kinds, entities.NotifyRejected)
	assert.Contains(t, kinds, entities.NotifyClosed)
	assert.Equal(t, int64(1), env.version(t, kb))
}

func TestMerge_InvalidTransitionIsNoOp(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")
	env.apply(t, kb, createConcept(1, "Cell", "A"))

	mr, err := env.mrs.Create(ctx, CreateMergeRequestInput{KnowledgeBaseID: kb, Title: "t", AuthorID: "alice"})
	require.NoError(t, err)
	_, err = env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(1), entities.FieldValues{"definition": "B"})
	require.NoError(t, err)

	before, err := env.mrs.Get(ctx, mr.ID)
	require.NoError(t, err)
	liveBefore := env.live(t, kb)

	_, err = env.mrs.Merge(ctx, mr.ID, "bob")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.ErrorContains(t, err, "draft")

	after, err := env.mrs.Get(ctx, mr.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, env.live(t, kb).Equal(liveBefore))
	assert.Equal(t, int64(1), env.version(t, kb))

	_, err = env.mrs.Merge(ctx, "missing", "bob")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMerge_ConflictExample(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")

	env.apply(t, kb, createConcept(1, "Cell", "draft"))
	env.apply(t, kb, createConcept(2, "Organ", ""))
	env.apply(t, kb, updateConcept(1, "definition", "draft", "A"))
	env.apply(t, kb, updateConcept(2, "color", "", "red"))
	require.Equal(t, int64(5), env.apply(t, kb, updateConcept(2, "examples", "", "heart")))

	mr1 := env.openApproved(t, kb, "alice", "bob", map[entities.EntityKey]entities.FieldValues{conceptKey(1): {"definition": "B"}})
	mr2 := env.openApproved(t, kb, "carol", "bob", map[entities.EntityKey]entities.FieldValues{conceptKey(1): {"definition": "C"}})
	assert.Equal(t, int64(5), mr1.BaseVersion)
	assert.Equal(t, int64(5), mr2.BaseVersion)

	res, err := env.mrs.Merge(ctx, mr1.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Version)
	assert.Equal(t, "B", env.live(t, kb)[conceptKey(1)].Values()["definition"])

	report, err := env.mrs.DetectConflicts(ctx, mr2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), report.CheckedAtVersion)
	require.Len(t, report.Conflicts, 1)
	c := report.Conflicts[0]
	assert.Equal(t, conceptKey(1), entities.EntityKey{Type: c.EntityType, ID: c.EntityID})
	assert.Equal(t, "definition", c.Field)
	assert.Equal(t, "A", c.Expected)
	assert.Equal(t, "B", c.Actual)

	_, err = env.mrs.Merge(ctx, mr2.ID, "bob")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.NotErrorIs(t, err, errs.ErrApplyFailure)
	var conflictErr *errs.ConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.Len(t, conflictErr.Report.Conflicts, 1)
	assert.Contains(t, err.Error(), `expected "A", actual "B"`)

	got, err := env.mrs.Get(ctx, mr2.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusApproved, got.Status)
	assert.Equal(t, int64(6), env.version(t, kb))
	assert.Equal(t, 1, env.rec.Conflicts)

	t.Run("rebase resolves by recomputing against live state", func(t *testing.T) {
		rebased, err := env.mrs.Rebase(ctx, mr2.ID, "carol")
		require.NoError(t, err)
		assert.Equal(t, entities.StatusDraft, rebased.Status)
		assert.Equal(t, int64(6), rebased.BaseVersion)
		require.Len(t, rebased.Changes, 1)
		assert.Equal(t, updateConcept(1, "definition", "B", "C"), rebased.Changes[0])

		_, err = env.mrs.Submit(ctx, mr2.ID, "carol", "")
		require.NoError(t, err)
		_, err = env.mrs.Approve(ctx, mr2.ID, "bob", "")
		require.NoError(t, err)
		res, err := env.mrs.Merge(ctx, mr2.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(7), res.Version)
	})
}

func TestMerge_DanglingReferenceConflict(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")

	env.apply(t, kb, createConcept(1, "Cell", ""), createConcept(2, "Organ", ""), createConcept(3, "Tissue", ""))

	openDelete := func(t *testing.T, key entities.EntityKey) *entities.MergeRequest {
		t.Helper()
		mr, err := env.mrs.Create(ctx, CreateMergeRequestInput{KnowledgeBaseID: kb, Title: "delete " + key.String(), AuthorID: "carol"})
		require.NoError(t, err)
		require.NoError(t, env.mrs.StageDelete(ctx, mr.ID, "carol", key))
		_, err = env.mrs.Submit(ctx, mr.ID, "carol", "")
		require.NoError(t, err)
		mr, err = env.mrs.Approve(ctx, mr.ID, "bob", "")
		require.NoError(t, err)
		return mr
	}

	t.Run("create referencing a deleted concept", func(t *testing.T) {
		link := env.openApproved(t, kb, "alice", "bob", map[entities.EntityKey]entities.FieldValues{
			relKey(0): {"source_concept_id": int64(1), "target_concept_id": int64(2), "relation_type": "part_of"},
		})
		require.Len(t, link.Changes, 1)
		relID := link.Changes[0].EntityID

		_, err := env.mrs.Merge(ctx, openDelete(t, conceptKey(2)).ID, "bob")
		require.NoError(t, err)
		version := env.version(t, kb)

		_, err = env.mrs.Merge(ctx, link.ID, "bob")
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrConflict)
		assert.NotErrorIs(t, err, errs.ErrApplyFailure)
		var conflictErr *errs.ConflictError
		require.True(t, errors.As(err, &conflictErr))
		assert.Equal(t, []entities.Conflict{{
			EntityType: entities.EntityRelationship,
			EntityID:   relID,
			Field:      "target_concept_id",
			Kind:       entities.ChangeCreate,
			Reason:     entities.ConflictMissing,
			Expected:   "concept/2",
		}}, conflictErr.Report.Conflicts)
		assert.Contains(t, err.Error(), "references missing concept/2")

		got, err := env.mrs.Get(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.StatusApproved, got.Status)
		assert.Equal(t, version, env.version(t, kb))
	})

	t.Run("delete of a concept referenced since approval", func(t *testing.T) {
		drop := openDelete(t, conceptKey(3))
		env.apply(t, kb, createRelationship(50, 1, 3, "part_of"))

		report, err := env.mrs.DetectConflicts(ctx, drop.ID)
		require.NoError(t, err)
		require.Len(t, report.Conflicts, 1)
		c := report.Conflicts[0]
		assert.Equal(t, relKey(50), entities.EntityKey{Type: c.EntityType, ID: c.EntityID})
		assert.Equal(t, entities.ChangeDelete, c.Kind)
		assert.Equal(t, entities.ConflictMissing, c.Reason)
		assert.Equal(t, "concept/3", c.Expected)

		_, err = env.mrs.Merge(ctx, drop.ID, "bob")
		assert.ErrorIs(t, err, errs.ErrConflict)
		assert.Contains(t, env.live(t, kb), conceptKey(3))
	})
}

func TestMerge_AtomicOnApplyFailure(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")
	env.apply(t, kb, createConcept(1, "Cell", "A"), createConcept(2, "Organ", "B"))

	mr := env.openApproved(t, kb, "alice", "bob", map[entities.EntityKey]entities.FieldValues{
		conceptKey(2): {"definition": "changed"},
		relKey(0):     {"source_concept_id": int64(1), "target_concept_id": int64(2), "relation_type": "part_of"},
	})
	require.Len(t, mr.Changes, 2)

	// Concept 1 disappears from live state; the relationship create has no
	// conflict of its own but can no longer be applied.
	env.apply(t, kb, entities.Change{EntityType: entities.EntityConcept, EntityID: 1, Kind: entities.ChangeDelete})
	liveBefore := env.live(t, kb)

	_, err := env.mrs.Merge(ctx, mr.ID, "bob")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrApplyFailure)

	assert.True(t, env.live(t, kb).Equal(liveBefore))
	assert.Equal(t, int64(2), env.version(t, kb))
	got, err := env.mrs.Get(ctx, mr.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusApproved, got.Status)
	assert.Zero(t, got.MergedVersion)
}

func TestMerge_ConcurrentMergesSerialize(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")
	env.apply(t, kb, createConcept(1, "Cell", "A"))

	const n = 4
	ids := make([]string, n)
	for i := range ids {
		author := []string{"a1", "a2", "a3", "a4"}[i]
		mr := env.openApproved(t, kb, author, "bob", map[entities.EntityKey]entities.FieldValues{
			conceptKey(1): {"definition": "from " + author},
		})
		ids[i] = mr.ID
	}

	var wg sync.WaitGroup
	results := make([]error, n)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, results[i] = env.mrs.Merge(ctx, id, "bob")
		}(i, id)
	}
	wg.Wait()

	var merged, conflicted int
	for _, err := range results {
		switch {
		case err == nil:
			merged++
		case errors.Is(err, errs.ErrConflict):
			conflicted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, merged)
	assert.Equal(t, n-1, conflicted)
	assert.Equal(t, int64(2), env.version(t, kb))
}

func TestMergeRequest_RebaseDropsEditsOfDeletedEntities(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")
	env.apply(t, kb, createConcept(1, "Cell", "A"), createConcept(2, "Organ", "B"))

	mr, err := env.mrs.Create(ctx, CreateMergeRequestInput{KnowledgeBaseID: kb, Title: "t", AuthorID: "alice"})
	require.NoError(t, err)
	_, err = env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(1), entities.FieldValues{"definition": "A2"})
	require.NoError(t, err)
	_, err = env.mrs.StageEdit(ctx, mr.ID, "alice", conceptKey(2), entities.FieldValues{"definition": "B2"})
	require.NoError(t, err)

	env.apply(t, kb, entities.Change{EntityType: entities.EntityConcept, EntityID: 2, Kind: entities.ChangeDelete})

	_, err = env.mrs.Rebase(ctx, mr.ID, "bob")
	assert.ErrorIs(t, err, errs.ErrValidation, "only the author rebases")

	got, err := env.mrs.Rebase(ctx, mr.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.BaseVersion)
	require.Len(t, got.Changes, 1)
	assert.Equal(t, conceptKey(1), got.Changes[0].Key())
	assert.Contains(t, got.Comments[len(got.Comments)-1].Body, "concept/2")

	edits, err := env.mrs.ListEdits(ctx, mr.ID)
	require.NoError(t, err)
	assert.Len(t, edits, 1)
}
