package entities

import "time"

// Snapshot is an immutable capture of every entity in a knowledge base at a version.
type Snapshot struct {
	ID                string    `json:"id"`
	KnowledgeBaseID   string    `json:"knowledge_base_id"`
	CapturedAtVersion int64     `json:"captured_at_version"`
	CapturedAt        time.Time `json:"captured_at"`
	Entities          EntityMap `json:"entities"`
}
