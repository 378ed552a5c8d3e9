package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/onto-core/internal/domain/errs"
	"github.com/ersonp/onto-core/internal/domain/services"
)

func TestSearchHandler_Handle(t *testing.T) {
	h := setupHandlers(t)
	ctx := context.Background()
	h.seed(t, "Biology", "Cell", "Organ")

	result, err := h.search.Handle(ctx, "Biology", "building blocks", 10)
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "Cell", result.Hits[0].Name)
	assert.Equal(t, "building blocks", result.Query)

	_, err = h.search.Handle(ctx, "Biology", "  ", 10)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestSearchHandler_HandleReindex(t *testing.T) {
	h := setupHandlers(t)
	ctx := context.Background()
	h.seed(t, "Biology", "Cell", "Organ")

	n, err := h.search.HandleReindex(ctx, "Biology")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSearchHandler_Disabled(t *testing.T) {
	h := NewSearchHandler(&services.KnowledgeBaseService{}, nil)

	_, err := h.Handle(context.Background(), "Biology", "cells", 10)
	assert.ErrorIs(t, err, ErrIndexDisabled)

	_, err = h.HandleReindex(context.Background(), "Biology")
	assert.ErrorIs(t, err, ErrIndexDisabled)
}
