package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/mocks"
	"github.com/ersonp/onto-core/internal/domain/ports"
	"github.com/ersonp/onto-core/internal/infrastructure/config"
	"github.com/ersonp/onto-core/internal/infrastructure/kblock"
	"github.com/ersonp/onto-core/internal/infrastructure/relationaldb/sqlite"
)

// testEnv wires the services over an in-memory SQLite store.
type testEnv struct {
	store     *sqlite.Repository
	locker    *kblock.Locker
	sink      *mocks.Sink
	inv       *mocks.Invalidator
	rec       *mocks.Recorder
	applier   *ChangeApplier
	snapshots *SnapshotStore
	kbs       *KnowledgeBaseService
	mrs       *MergeRequestService
	history   *HistoryService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvWithTimeout(t, time.Second)
}

func setupTestEnvWithTimeout(t *testing.T, lockTimeout time.Duration) *testEnv {
	t.Helper()

	store, err := sqlite.NewRepository(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	env := &testEnv{
		store:  store,
		locker: kblock.New(lockTimeout),
		sink:   &mocks.Sink{},
		inv:    &mocks.Invalidator{},
		rec:    mocks.NewRecorder(),
	}
	env.applier = NewChangeApplier(store, env.locker, ApplierOptions{
		Invalidators: []ports.CacheInvalidator{env.inv},
		Sink:         env.sink,
		Recorder:     env.rec,
	})
	env.snapshots = NewSnapshotStore(store)
	env.kbs = NewKnowledgeBaseService(store, env.applier, nil)
	env.mrs = NewMergeRequestService(store, env.applier, env.sink, env.rec, nil)
	env.history = NewHistoryService(store, env.applier, nil)
	return env
}

func (e *testEnv) seedKB(t *testing.T, name string) string {
	t.Helper()
	kb, err := e.kbs.Create(context.Background(), CreateKnowledgeBaseInput{Name: name})
	require.NoError(t, err)
	return kb.ID
}

// apply commits changes directly and returns the new version.
func (e *testEnv) apply(t *testing.T, kbID string, changes ...entities.Change) int64 {
	t.Helper()
	res, err := e.kbs.ApplyChanges(context.Background(), kbID, changes, "seeder")
	require.NoError(t, err)
	return res.Version
}

// openApproved creates a merge request by author, stages the given edits,
// submits it and has reviewer approve it.
func (e *testEnv) openApproved(t *testing.T, kbID, author, reviewer string, edits map[entities.EntityKey]entities.FieldValues) *entities.MergeRequest {
	t.Helper()
	ctx := context.Background()

	mr, err := e.mrs.Create(ctx, CreateMergeRequestInput{KnowledgeBaseID: kbID, Title: "edit by " + author, AuthorID: author})
	require.NoError(t, err)
	for key, patch := range edits {
		_, err := e.mrs.StageEdit(ctx, mr.ID, author, key, patch)
		require.NoError(t, err)
	}
	_, err = e.mrs.Submit(ctx, mr.ID, author, "")
	require.NoError(t, err)
	mr, err = e.mrs.Approve(ctx, mr.ID, reviewer, "")
	require.NoError(t, err)
	return mr
}

func (e *testEnv) live(t *testing.T, kbID string) entities.EntityMap {
	t.Helper()
	list, err := e.kbs.ListEntities(context.Background(), kbID, "")
	require.NoError(t, err)
	state := make(entities.EntityMap, len(list))
	for _, en := range list {
		state[en.Key] = en.Fields
	}
	return state
}

func (e *testEnv) version(t *testing.T, kbID string) int64 {
	t.Helper()
	kb, err := e.kbs.Get(context.Background(), kbID)
	require.NoError(t, err)
	return kb.Version
}

func conceptKey(id int64) entities.EntityKey {
	return entities.EntityKey{Type: entities.EntityConcept, ID: id}
}

func relKey(id int64) entities.EntityKey {
	return entities.EntityKey{Type: entities.EntityRelationship, ID: id}
}

func createConcept(id int64, name, definition string) entities.Change {
	return entities.Change{
		EntityType: entities.EntityConcept,
		EntityID:   id,
		Kind:       entities.ChangeCreate,
		After:      entities.FieldValues{"name": name, "definition": definition},
	}
}

func updateConcept(id int64, field string, before, after any) entities.Change {
	return entities.Change{
		EntityType: entities.EntityConcept,
		EntityID:   id,
		Kind:       entities.ChangeUpdate,
		Before:     entities.FieldValues{field: before},
		After:      entities.FieldValues{field: after},
	}
}

func createRelationship(id, source, target int64, relType string) entities.Change {
	return entities.Change{
		EntityType: entities.EntityRelationship,
		EntityID:   id,
		Kind:       entities.ChangeCreate,
		After: entities.FieldValues{
			"source_concept_id": source,
			"target_concept_id": target,
			"relation_type":     relType,
		},
	}
}
