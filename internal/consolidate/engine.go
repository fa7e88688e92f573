package consolidate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arlohq/arlo/internal/embedding"
	"github.com/arlohq/arlo/internal/intent"
	"github.com/arlohq/arlo/internal/llm"
	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/search"
	"github.com/arlohq/arlo/internal/store"
)

// Consolidation thresholds.
const (
	// MemoryMergeThreshold is the minimum blended similarity for an existing
	// memory to be considered a merge candidate.
	MemoryMergeThreshold = 0.5
	// NewMemoryThreshold is the minimum significance for an insight to become
	// a brand-new memory when no merge happens.
	NewMemoryThreshold = 0.8
	// KeywordIntersectionBonus is added per shared related-keyword when
	// scoring merge candidates.
	KeywordIntersectionBonus = 0.1
	// MaxTitleLen bounds LLM-generated memory titles.
	MaxTitleLen = 50
)

const conflictPrompt = `An existing project memory and a new insight may describe the same topic.

Existing memory:
%s

New insight:
%s

Does the new insight CONTRADICT the existing memory (for example, incompatible technical decisions)? If they are compatible, should they be merged into one memory?

Respond with JSON only: {"has_conflict": true|false, "should_merge": true|false}`

const mergePrompt = `Merge the new insight into the existing project memory.

Existing memory (title: %q):
%s

New insight:
%s

NON-NEGOTIABLE: preserve every piece of information from the existing memory. Never truncate, summarize away, or drop prior detail — only remove exact duplicates. Add the new insight's information.

Respond with JSON only: {"title": "...", "content": "...", "category": %q}`

const titlePrompt = `Write a short title (at most 50 characters) for this project memory. Respond with the title only, no quotes.

%s`

type conflictVerdict struct {
	HasConflict bool `json:"has_conflict"`
	ShouldMerge bool `json:"should_merge"`
}

type mergedMemory struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// Engine is the conflict-aware, per-insight consolidation path used at
// session end. It merges insights into their best-matching memories, refuses
// merges on LLM-detected conflicts, and creates new memories only for
// high-significance insights. No public method lets an error escape: failures
// degrade to skipping the insight.
type Engine struct {
	memories *store.MemoryStore
	llm      llm.Client
	matcher  *intent.CategoryMatcher
	embedder embedding.Embedder
	logger   *slog.Logger
}

func NewEngine(memories *store.MemoryStore, client llm.Client, matcher *intent.CategoryMatcher, embedder embedding.Embedder, logger *slog.Logger) *Engine {
	return &Engine{
		memories: memories,
		llm:      client,
		matcher:  matcher,
		embedder: embedder,
		logger:   logger,
	}
}

// Consolidate processes every insight of a session analysis, grouped by
// category, each category independently.
func (e *Engine) Consolidate(ctx context.Context, projectID, sessionID string, analysis *models.SessionAnalysis) *models.ConsolidationResult {
	result := &models.ConsolidationResult{Status: models.ConsolidationCompleted}
	if analysis == nil || len(analysis.Insights) == 0 {
		return result
	}

	groups, order, newCats := e.groupByCategory(analysis.Insights)

	for _, category := range order {
		catResult := models.CategoryResult{Category: category, IsNewCategory: newCats[category]}

		existing, err := e.memories.LoadByCategory(projectID, category)
		if err != nil {
			e.logger.Error("load memories for consolidation failed", "category", category, "error", err)
			result.Status = models.ConsolidationError
			result.Categories = append(result.Categories, catResult)
			continue
		}

		for _, ins := range groups[category] {
			catResult.InsightsProcessed++

			updated, created := e.consolidateInsight(ctx, projectID, sessionID, category, ins, existing)
			catResult.MemoriesUpdated += updated
			catResult.MemoriesCreated += created

			if updated > 0 || created > 0 {
				// Refresh so later insights in the same category see the change.
				if refreshed, err := e.memories.LoadByCategory(projectID, category); err == nil {
					existing = refreshed
				}
			}
		}

		result.Categories = append(result.Categories, catResult)
		result.MemoriesUpdated += catResult.MemoriesUpdated
		result.MemoriesCreated += catResult.MemoriesCreated
	}

	return result
}

// consolidateInsight runs the merge-or-create decision for one insight.
// Returns (updated, created) counts, each 0 or 1.
func (e *Engine) consolidateInsight(ctx context.Context, projectID, sessionID, category string, ins models.ConversationInsight, existing []*models.Memory) (int, int) {
	best, score := BestMatch(ins, existing)

	if best != nil && score >= MemoryMergeThreshold {
		verdict := e.checkConflict(ctx, best, ins)
		if verdict.HasConflict {
			// Conflicting information never merges, whatever the similarity.
			e.logger.Info("merge refused: conflict detected", "memory", best.ID, "category", category)
		} else if verdict.ShouldMerge {
			if e.merge(ctx, projectID, best, ins) {
				return 1, 0
			}
		}
	}

	if ins.SignificanceScore >= NewMemoryThreshold {
		if e.createMemory(ctx, projectID, sessionID, category, ins) {
			return 0, 1
		}
	}

	// Below both bars: counted as processed, contributes nothing.
	return 0, 0
}

// checkConflict asks the LLM whether the insight contradicts the memory.
// On call or parse failure the verdict is "no conflict, no merge" — the
// conservative fallback that never overwrites an existing memory.
func (e *Engine) checkConflict(ctx context.Context, mem *models.Memory, ins models.ConversationInsight) conflictVerdict {
	prompt := fmt.Sprintf(conflictPrompt, mem.Title+"\n"+mem.Content, ins.Content)
	raw, err := e.llm.ChatWithSystemPrompt(ctx, prompt, "You compare project facts for contradictions. Respond with JSON only.")
	if err != nil {
		e.logger.Warn("conflict check llm call failed", "error", err)
		return conflictVerdict{}
	}
	var verdict conflictVerdict
	if err := llm.DecodeJSON(raw, &verdict); err != nil {
		e.logger.Warn("conflict check response unparsable", "error", err)
		return conflictVerdict{}
	}
	return verdict
}

// merge asks the LLM for merged title/content and overwrites the matched
// memory in place. Falls back to appending the insight verbatim when the LLM
// merge fails — prior detail is preserved either way.
func (e *Engine) merge(ctx context.Context, projectID string, mem *models.Memory, ins models.ConversationInsight) bool {
	prompt := fmt.Sprintf(mergePrompt, mem.Title, mem.Content, ins.Content, mem.Category)

	merged := mergedMemory{Title: mem.Title, Category: mem.Category}
	raw, err := e.llm.ChatWithSystemPrompt(ctx, prompt, "You merge project memories without losing information. Respond with JSON only.")
	if err == nil {
		if perr := llm.DecodeJSON(raw, &merged); perr != nil {
			merged = mergedMemory{Title: mem.Title, Category: mem.Category}
		}
	}
	if merged.Content == "" {
		merged.Content = mem.Content + "\n\n" + ins.Content
	}
	if merged.Title == "" {
		merged.Title = mem.Title
	}

	mem.Title = merged.Title
	mem.Content = merged.Content
	mem.UpdatedAt = time.Now().Unix()
	if e.embedder != nil {
		if vec := e.embedder.EmbedOrNil(mem.Title + " " + mem.Content); vec != nil {
			mem.Embedding = vec
		}
	}

	if err := e.memories.Upsert(projectID, mem); err != nil {
		e.logger.Error("persist merged memory failed", "memory", mem.ID, "error", err)
		return false
	}
	return true
}

// createMemory persists a brand-new memory for a high-significance insight.
func (e *Engine) createMemory(ctx context.Context, projectID, sessionID, category string, ins models.ConversationInsight) bool {
	now := time.Now().Unix()
	mem := &models.Memory{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Title:     e.generateTitle(ctx, ins.Content),
		Content:   ins.Content,
		Category:  category,
		Type:      insightMemoryType(ins.InsightType),
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if e.embedder != nil {
		mem.Embedding = e.embedder.EmbedOrNil(mem.Title + " " + mem.Content)
	}

	if err := e.memories.Upsert(projectID, mem); err != nil {
		e.logger.Error("persist new memory failed", "error", err)
		return false
	}
	return true
}

// generateTitle asks the LLM for a short title, falling back to the first
// six words of the content.
func (e *Engine) generateTitle(ctx context.Context, content string) string {
	raw, err := e.llm.ChatWithSystemPrompt(ctx, fmt.Sprintf(titlePrompt, content), "You write terse titles.")
	if err == nil {
		title := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
		if title != "" && len(title) <= MaxTitleLen && !strings.Contains(title, "\n") {
			return title
		}
	}
	words := strings.Fields(content)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}

// groupByCategory validates each insight's category and groups insights,
// preserving first-seen category order. New categories that pass validation
// are registered with the matcher; everything invalid lands in general.
func (e *Engine) groupByCategory(insights []models.ConversationInsight) (map[string][]models.ConversationInsight, []string, map[string]bool) {
	groups := make(map[string][]models.ConversationInsight)
	var order []string
	newCats := make(map[string]bool)

	for _, ins := range insights {
		category := strings.ToLower(strings.TrimSpace(ins.Category))

		if !e.matcher.IsKnown(category) {
			proposed := category
			if ins.IsNewCategory && ins.NewCategorySuggestion != "" {
				proposed = strings.TrimSpace(ins.NewCategorySuggestion)
			}
			validated, ok := e.matcher.ValidateNewCategory(proposed)
			category = validated
			if ok {
				e.matcher.Register(category)
				newCats[category] = true
			}
		}

		if _, seen := groups[category]; !seen {
			order = append(order, category)
		}
		groups[category] = append(groups[category], ins)
	}

	return groups, order, newCats
}

// BestMatch scores the insight against each memory with word-overlap
// similarity plus a bonus per shared related-keyword, and returns the top
// memory with its score.
func BestMatch(ins models.ConversationInsight, memories []*models.Memory) (*models.Memory, float64) {
	var best *models.Memory
	bestScore := 0.0
	for _, m := range memories {
		text := m.Title + " " + m.Content
		score := search.KeywordSimilarity(ins.Content, text)
		score += KeywordIntersectionBonus * float64(keywordIntersections(ins.RelatedKeywords, text))
		if score > bestScore {
			best = m
			bestScore = score
		}
	}
	return best, bestScore
}

func keywordIntersections(keywords []string, text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func insightMemoryType(t models.InsightType) models.MemoryType {
	switch t {
	case models.InsightTypeDecision:
		return models.MemoryTypeDecision
	case models.InsightTypeSpecification, models.InsightTypeRequirement:
		return models.MemoryTypeSpec
	default:
		return models.MemoryTypeNote
	}
}
