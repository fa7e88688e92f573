package models

import "strings"

// ConsolidatedSuffix marks a per-category knowledge-base memory. Its content
// is always a rendering of its sections, never hand-edited.
const ConsolidatedSuffix = "_consolidated"

// Memory is a persistent piece of project knowledge.
type Memory struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Category  string     `json:"category"`
	Type      MemoryType `json:"type"`
	Embedding []float32  `json:"embedding,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	CreatedAt int64      `json:"createdAt"`
	UpdatedAt int64      `json:"updatedAt"`
}

// IsConsolidated reports whether this memory is a knowledge-base aggregate.
func (m *Memory) IsConsolidated() bool {
	return strings.HasSuffix(m.ID, ConsolidatedSuffix)
}

// MemorySection is one named, independently versioned part of a consolidated
// memory. Sections are persisted as a side-table keyed by memory ID.
type MemorySection struct {
	MemoryID  string `json:"memoryId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Version   int    `json:"version"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}
