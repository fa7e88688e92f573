package search

import (
	"math"
	"sort"
	"strings"

	"github.com/arlohq/arlo/internal/models"
)

// Default thresholds for embedding-based ranking.
const (
	DefaultTaskSimThreshold   = 0.7
	DefaultMemorySimThreshold = 0.7
	DefaultMaxTaskResults     = 10
	DefaultMaxMemoryResults   = 15
)

// CosineSimilarity computes the cosine similarity between two float32 vectors.
// Mismatched lengths or a zero norm yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// RankTasks returns tasks whose cached embedding scores at or above threshold
// against the query embedding, sorted descending, truncated to maxResults.
// Tasks without an embedding are excluded entirely, not scored as 0.
func RankTasks(query []float32, tasks []*models.Task, threshold float64, maxResults int) []ScoredTask {
	if maxResults <= 0 {
		maxResults = DefaultMaxTaskResults
	}
	var out []ScoredTask
	for _, t := range tasks {
		if len(t.Embedding) == 0 {
			continue
		}
		sim := CosineSimilarity(query, t.Embedding)
		if sim >= threshold {
			out = append(out, ScoredTask{Task: t, Score: sim})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// RankMemories is the memory counterpart of RankTasks.
func RankMemories(query []float32, memories []*models.Memory, threshold float64, maxResults int) []ScoredMemory {
	if maxResults <= 0 {
		maxResults = DefaultMaxMemoryResults
	}
	var out []ScoredMemory
	for _, m := range memories {
		if len(m.Embedding) == 0 {
			continue
		}
		sim := CosineSimilarity(query, m.Embedding)
		if sim >= threshold {
			out = append(out, ScoredMemory{Memory: m, Score: sim})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// ConversationText builds the embedding input for the current turn: every
// session turn space-joined (user and agent alike) with the new user message
// appended last. Rebuilt fresh each turn — the session grows, so caching this
// across turns would embed a stale transcript.
func ConversationText(history []*models.ChatMessage, newMessage string) string {
	var parts []string
	for _, m := range history {
		if m.Message != "" {
			parts = append(parts, m.Message)
		}
		if m.Response != "" {
			parts = append(parts, m.Response)
		}
	}
	if newMessage != "" {
		parts = append(parts, newMessage)
	}
	return strings.Join(parts, " ")
}
