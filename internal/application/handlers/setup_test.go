package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ersonp/onto-core/internal/domain/entities"
	"github.com/ersonp/onto-core/internal/domain/mocks"
	"github.com/ersonp/onto-core/internal/domain/ports"
	"github.com/ersonp/onto-core/internal/domain/services"
	"github.com/ersonp/onto-core/internal/infrastructure/config"
	"github.com/ersonp/onto-core/internal/infrastructure/kblock"
	"github.com/ersonp/onto-core/internal/infrastructure/relationaldb/sqlite"
)

type testHandlers struct {
	kbs     *services.KnowledgeBaseService
	kb      *KnowledgeBaseHandler
	mr      *MergeRequestHandler
	history *HistoryHandler
	imports *ImportHandler
	search  *SearchHandler
	vectors *mocks.VectorDB
}

func setupHandlers(t *testing.T) *testHandlers {
	t.Helper()

	store, err := sqlite.NewRepository(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.EnsureSchema(context.Background()))

	vectors := mocks.NewVectorDB()
	index := services.NewConceptIndex(store, &mocks.Embedder{EmbeddingResult: []float32{0.1, 0.2}}, vectors, nil)

	applier := services.NewChangeApplier(store, kblock.New(time.Second), services.ApplierOptions{
		Invalidators: []ports.CacheInvalidator{index},
	})
	kbs := services.NewKnowledgeBaseService(store, applier, nil)
	mrs := services.NewMergeRequestService(store, applier, nil, nil, nil)
	history := services.NewHistoryService(store, applier, nil)

	return &testHandlers{
		kbs:     kbs,
		kb:      NewKnowledgeBaseHandler(kbs),
		mr:      NewMergeRequestHandler(kbs, mrs),
		history: NewHistoryHandler(kbs, history, services.NewSnapshotStore(store)),
		imports: NewImportHandler(kbs),
		search:  NewSearchHandler(kbs, index),
		vectors: vectors,
	}
}

// seed creates a knowledge base named name holding the concepts, one
// version per call.
func (h *testHandlers) seed(t *testing.T, name string, concepts ...string) *entities.KnowledgeBase {
	t.Helper()
	ctx := context.Background()

	kb, err := h.kb.HandleCreate(ctx, name, "")
	require.NoError(t, err)
	if len(concepts) == 0 {
		return kb
	}

	changes := make([]entities.Change, len(concepts))
	for i, c := range concepts {
		changes[i] = entities.Change{
			EntityType: entities.EntityConcept,
			Kind:       entities.ChangeCreate,
			After:      entities.FieldValues{"name": c, "definition": c + " definition"},
		}
	}
	_, err = h.kbs.ApplyChanges(ctx, kb.ID, changes, "seeder")
	require.NoError(t, err)

	kb, err = h.kb.HandleShow(ctx, kb.ID)
	require.NoError(t, err)
	return kb
}
