package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/onto-core/internal/domain/errs"
)

func TestSnapshotStore_Capture(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	kb := env.seedKB(t, "bio")
	env.apply(t, kb, createConcept(1, "Cell", "A"), createRelationship(0, 1, 1, "self"))

	first, err := env.snapshots.Capture(ctx, kb)
	require.NoError(t, err)
	second, err := env.snapshots.Capture(ctx, kb)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.CapturedAtVersion, second.CapturedAtVersion)
	assert.True(t, first.Entities.Equal(second.Entities))
	assert.True(t, first.Entities.Equal(env.live(t, kb)))

	got, err := env.snapshots.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CapturedAtVersion)
	assert.True(t, got.Entities.Equal(first.Entities))

	t.Run("snapshot does not follow live state", func(t *testing.T) {
		env.apply(t, kb, updateConcept(1, "definition", "A", "B"))
		got, err := env.snapshots.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Entities[conceptKey(1)].Values()["definition"])
	})

	t.Run("unknown snapshot", func(t *testing.T) {
		_, err := env.snapshots.Get(ctx, "nope")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("unknown knowledge base", func(t *testing.T) {
		_, err := env.snapshots.Capture(ctx, "nope")
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})
}
