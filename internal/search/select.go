package search

import (
	"sort"
	"time"

	"github.com/arlohq/arlo/internal/models"
)

// Defaults for relevance-based selection.
const (
	DefaultMinRelevance = 0.1
	DefaultMaxItems     = 10
	// RecencyWindowDays is the tier-1 window of the hierarchical selector.
	RecencyWindowDays = 7
)

// ScoredTask pairs a task with its relevance or similarity score.
type ScoredTask struct {
	Task  *models.Task
	Score float64
}

// ScoredMemory pairs a memory with its relevance or similarity score.
type ScoredMemory struct {
	Memory *models.Memory
	Score  float64
}

// Selection is the context-candidate set fed to prompt assembly.
type Selection struct {
	Tasks    []ScoredTask
	Memories []ScoredMemory
}

func (s Selection) Len() int {
	return len(s.Tasks) + len(s.Memories)
}

// Selector picks the most relevant tasks and memories for a query: score all,
// keep those at or above the minimum, sort descending, truncate to maxItems
// across both entity kinds combined.
type Selector struct {
	scorer   *Scorer
	minScore float64
	maxItems int
}

func NewSelector(scorer *Scorer, minScore float64, maxItems int) *Selector {
	if minScore <= 0 {
		minScore = DefaultMinRelevance
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Selector{scorer: scorer, minScore: minScore, maxItems: maxItems}
}

type scoredEntry struct {
	task   *models.Task
	memory *models.Memory
	score  float64
}

// Select scores every candidate and returns the top slice.
func (s *Selector) Select(query, projectID string, tasks []*models.Task, memories []*models.Memory) Selection {
	entries := s.scoreAll(query, projectID, tasks, memories)

	kept := entries[:0]
	for _, e := range entries {
		if e.score >= s.minScore {
			kept = append(kept, e)
		}
	}
	sortEntries(kept)
	if len(kept) > s.maxItems {
		kept = kept[:s.maxItems]
	}
	return splitEntries(kept)
}

func (s *Selector) scoreAll(query, projectID string, tasks []*models.Task, memories []*models.Memory) []scoredEntry {
	entries := make([]scoredEntry, 0, len(tasks)+len(memories))
	for _, t := range tasks {
		entries = append(entries, scoredEntry{task: t, score: s.scorer.Score(query, TaskCandidate(t), projectID)})
	}
	for _, m := range memories {
		entries = append(entries, scoredEntry{memory: m, score: s.scorer.Score(query, MemoryCandidate(m), projectID)})
	}
	return entries
}

// TaskCandidate adapts a task for the relevance scorer.
func TaskCandidate(t *models.Task) Candidate {
	return Candidate{
		Content:   t.Title + " " + t.Description,
		CreatedAt: t.CreatedAt,
		ProjectID: t.ProjectID,
		Kind:      KindTask,
		Label:     string(t.Status),
	}
}

// MemoryCandidate adapts a memory for the relevance scorer.
func MemoryCandidate(m *models.Memory) Candidate {
	return Candidate{
		Content:   m.Title + " " + m.Content,
		CreatedAt: m.CreatedAt,
		ProjectID: m.ProjectID,
		Kind:      KindMemory,
		Label:     string(m.Type),
	}
}

// HierarchicalSelector is the two-tier variant: tier 1 unconditionally keeps
// memories created inside the recency window and in-progress tasks; tier 2
// fills the remaining capacity from the complement using relevance scores.
// When the combined set exceeds the cap, tasks are trimmed before memories —
// memories have retention priority.
type HierarchicalSelector struct {
	scorer      *Scorer
	minScore    float64
	maxItems    int
	windowDays  int
	nowOverride func() time.Time
}

func NewHierarchicalSelector(scorer *Scorer, minScore float64, maxItems, windowDays int) *HierarchicalSelector {
	if minScore <= 0 {
		minScore = DefaultMinRelevance
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if windowDays <= 0 {
		windowDays = RecencyWindowDays
	}
	return &HierarchicalSelector{scorer: scorer, minScore: minScore, maxItems: maxItems, windowDays: windowDays}
}

func (h *HierarchicalSelector) now() time.Time {
	if h.nowOverride != nil {
		return h.nowOverride()
	}
	return h.scorer.Now()
}

// Select applies the two tiers and the memory-retention trim rule.
func (h *HierarchicalSelector) Select(query, projectID string, tasks []*models.Task, memories []*models.Memory) Selection {
	cutoff := h.now().Add(-time.Duration(h.windowDays) * 24 * time.Hour).Unix()

	var tier1 []scoredEntry
	var restTasks []*models.Task
	var restMemories []*models.Memory

	for _, m := range memories {
		if m.CreatedAt >= cutoff {
			tier1 = append(tier1, scoredEntry{memory: m, score: h.scorer.Score(query, MemoryCandidate(m), projectID)})
		} else {
			restMemories = append(restMemories, m)
		}
	}
	for _, t := range tasks {
		if t.Status == models.TaskStatusInProgress {
			tier1 = append(tier1, scoredEntry{task: t, score: h.scorer.Score(query, TaskCandidate(t), projectID)})
		} else {
			restTasks = append(restTasks, t)
		}
	}

	combined := tier1
	if remaining := h.maxItems - len(tier1); remaining > 0 {
		tier2 := NewSelector(h.scorer, h.minScore, remaining).
			scoreAll(query, projectID, restTasks, restMemories)
		kept := tier2[:0]
		for _, e := range tier2 {
			if e.score >= h.minScore {
				kept = append(kept, e)
			}
		}
		sortEntries(kept)
		if len(kept) > remaining {
			kept = kept[:remaining]
		}
		combined = append(combined, kept...)
	}

	sortEntries(combined)
	combined = trimTasksFirst(combined, h.maxItems)
	return splitEntries(combined)
}

// trimTasksFirst drops the lowest-scored tasks until the cap fits, falling
// back to trimming memories only once no tasks remain.
func trimTasksFirst(entries []scoredEntry, max int) []scoredEntry {
	for len(entries) > max {
		idx := -1
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].task != nil {
				idx = i
				break
			}
		}
		if idx < 0 {
			// Only memories left; drop the lowest-scored one.
			idx = len(entries) - 1
		}
		entries = append(entries[:idx], entries[idx+1:]...)
	}
	return entries
}

func sortEntries(entries []scoredEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})
}

func splitEntries(entries []scoredEntry) Selection {
	var sel Selection
	for _, e := range entries {
		if e.task != nil {
			sel.Tasks = append(sel.Tasks, ScoredTask{Task: e.task, Score: e.score})
		} else if e.memory != nil {
			sel.Memories = append(sel.Memories, ScoredMemory{Memory: e.memory, Score: e.score})
		}
	}
	return sel
}
