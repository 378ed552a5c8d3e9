package entities

// ConceptVector is the embedding of one concept as stored in the vector index.
type ConceptVector struct {
	KnowledgeBaseID string
	ConceptID       int64
	Name            string
	Category        string
	Vector          []float32
}

// ConceptHit is one concept search result.
type ConceptHit struct {
	KnowledgeBaseID string  `json:"knowledge_base_id"`
	ConceptID       int64   `json:"concept_id"`
	Name            string  `json:"name"`
	Category        string  `json:"category,omitempty"`
	Score           float32 `json:"score"`
}
