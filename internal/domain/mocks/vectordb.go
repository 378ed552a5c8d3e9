package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

type vectorKey struct {
	kbID string
	id   int64
}

// VectorDB is an in-memory mock implementation of ports.VectorDB. Search
// returns every concept of the knowledge base ordered by id with score 1.
type VectorDB struct {
	Err error

	mu                        sync.Mutex
	vectors                   map[vectorKey]entities.ConceptVector
	EnsureCollectionCallCount int
	UpsertCallCount           int
	DeleteCallCount           int
}

// NewVectorDB creates an empty mock VectorDB.
func NewVectorDB() *VectorDB {
	return &VectorDB{vectors: make(map[vectorKey]entities.ConceptVector)}
}

// EnsureCollection records the call.
func (m *VectorDB) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureCollectionCallCount++
	return m.Err
}

// Upsert stores the vectors.
func (m *VectorDB) Upsert(ctx context.Context, vectors []entities.ConceptVector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCallCount++
	if m.Err != nil {
		return m.Err
	}
	for _, v := range vectors {
		m.vectors[vectorKey{v.KnowledgeBaseID, v.ConceptID}] = v
	}
	return nil
}

// Delete removes the vectors of the given concepts.
func (m *VectorDB) Delete(ctx context.Context, kbID string, conceptIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCallCount++
	if m.Err != nil {
		return m.Err
	}
	for _, id := range conceptIDs {
		delete(m.vectors, vectorKey{kbID, id})
	}
	return nil
}

// Search returns up to limit concepts of the knowledge base.
func (m *VectorDB) Search(ctx context.Context, kbID string, embedding []float32, limit int) ([]entities.ConceptHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	hits := make([]entities.ConceptHit, 0)
	for k, v := range m.vectors {
		if k.kbID != kbID {
			continue
		}
		hits = append(hits, entities.ConceptHit{
			KnowledgeBaseID: kbID,
			ConceptID:       v.ConceptID,
			Name:            v.Name,
			Category:        v.Category,
			Score:           1,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ConceptID < hits[j].ConceptID })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Get returns the stored vector of a concept.
func (m *VectorDB) Get(kbID string, conceptID int64) (entities.ConceptVector, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vectors[vectorKey{kbID, conceptID}]
	return v, ok
}
