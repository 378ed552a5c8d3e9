// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"sync"
)

// Embedder is a mock implementation of ports.Embedder. Without a configured
// result it returns a one-dimensional vector holding the text length.
type Embedder struct {
	EmbeddingResult []float32
	Err             error

	mu    sync.Mutex
	Texts []string
}

// Embed returns the configured embedding or error.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	m.Texts = append(m.Texts, text)
	m.mu.Unlock()
	return m.vector(text), nil
}

// EmbedBatch returns embeddings for multiple texts.
func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	m.Texts = append(m.Texts, texts...)
	m.mu.Unlock()

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vector(text)
	}
	return result, nil
}

func (m *Embedder) vector(text string) []float32 {
	if m.EmbeddingResult != nil {
		return m.EmbeddingResult
	}
	return []float32{float32(len(text))}
}
