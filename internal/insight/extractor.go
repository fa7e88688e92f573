package insight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arlohq/arlo/internal/intent"
	"github.com/arlohq/arlo/internal/llm"
	"github.com/arlohq/arlo/internal/models"
)

// Extraction gates. Sessions below MinSessionLength are skipped outright with
// zero LLM calls; insights below MinSignificanceScore are dropped; a session
// whose overall relevance is below MinSessionRelevance discards everything,
// even insights that individually passed the significance bar.
const (
	MinSessionLength     = 3
	MinSignificanceScore = 0.7
	MinSessionRelevance  = 0.5
)

const extractionPrompt = `You analyze a project conversation transcript and extract insights worth keeping long-term.

Extract ONLY significant, project-relevant insights: decisions made, specifications agreed, technical choices, requirements. Skip greetings, small talk, and unresolved open questions.

Known categories: %s
If none fits, set is_new_category=true and propose a short lowercase single-word name in new_category_suggestion.

Score each insight's significance from 0 to 1, and score the whole session's project relevance from 0 to 1.

Respond with JSON only:
{
  "insights": [
    {
      "content": "...",
      "category": "...",
      "is_new_category": false,
      "new_category_suggestion": "",
      "significance_score": 0.0,
      "insight_type": "decision|specification|pattern|requirement",
      "related_keywords": ["..."]
    }
  ],
  "session_relevance_score": 0.0
}

Transcript:
%s`

type extractionResponse struct {
	Insights              []models.ConversationInsight `json:"insights"`
	SessionRelevanceScore float64                      `json:"session_relevance_score"`
}

// Extractor turns a session transcript into scored conversation insights.
type Extractor struct {
	llm     llm.Client
	matcher *intent.CategoryMatcher
	logger  *slog.Logger
}

func NewExtractor(client llm.Client, matcher *intent.CategoryMatcher, logger *slog.Logger) *Extractor {
	return &Extractor{llm: client, matcher: matcher, logger: logger}
}

// AnalyzeSession extracts insights from a full session. The returned status
// is one of: completed, skipped_too_short, no_relevant_insights, error.
// No LLM call is made for sessions under MinSessionLength.
func (e *Extractor) AnalyzeSession(ctx context.Context, messages []*models.ChatMessage) (*models.SessionAnalysis, models.ConsolidationStatus) {
	if len(messages) < MinSessionLength {
		return nil, models.ConsolidationSkippedTooShort
	}

	transcript := Transcript(messages)
	prompt := fmt.Sprintf(extractionPrompt, strings.Join(e.matcher.Known(), ", "), transcript)

	raw, err := e.llm.ChatWithSystemPrompt(ctx, prompt, "You extract project insights from conversations. Respond with JSON only.")
	if err != nil {
		e.logger.Warn("insight extraction llm call failed", "error", err)
		return nil, models.ConsolidationError
	}

	var resp extractionResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		e.logger.Warn("insight extraction response unparsable", "error", err)
		return nil, models.ConsolidationError
	}

	analysis := &models.SessionAnalysis{
		SessionRelevanceScore: resp.SessionRelevanceScore,
		TotalFound:            len(resp.Insights),
	}

	for _, ins := range resp.Insights {
		analysis.TotalProcessed++
		if ins.SignificanceScore < MinSignificanceScore {
			continue
		}
		if ins.IsNewCategory && ins.NewCategorySuggestion != "" {
			analysis.SuggestedNewCategories = append(analysis.SuggestedNewCategories, ins.NewCategorySuggestion)
		}
		analysis.Insights = append(analysis.Insights, ins)
	}

	// A low-relevance session discards its insights wholesale, even those
	// that individually cleared the significance bar.
	if analysis.SessionRelevanceScore < MinSessionRelevance {
		analysis.Insights = nil
		return analysis, models.ConsolidationNoRelevantInsight
	}

	return analysis, models.ConsolidationCompleted
}

// ExtractFromMessage handles explicit in-message triggers ("remember this"):
// a single-message extraction performed immediately instead of at session end.
func (e *Extractor) ExtractFromMessage(ctx context.Context, message string) (*models.ConversationInsight, error) {
	prompt := fmt.Sprintf(extractionPrompt, strings.Join(e.matcher.Known(), ", "), "User: "+message)

	raw, err := e.llm.ChatWithSystemPrompt(ctx, prompt, "You extract project insights from conversations. Respond with JSON only.")
	if err != nil {
		return nil, fmt.Errorf("single-message extraction: %w", err)
	}

	var resp extractionResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		return nil, fmt.Errorf("single-message extraction: %w", err)
	}
	if len(resp.Insights) == 0 {
		return nil, nil
	}

	// An explicit trigger is its own significance signal: take the best
	// insight even if the score is modest, but keep the floor.
	best := resp.Insights[0]
	for _, ins := range resp.Insights[1:] {
		if ins.SignificanceScore > best.SignificanceScore {
			best = ins
		}
	}
	return &best, nil
}

// Transcript renders messages as role-labeled lines, oldest first.
func Transcript(messages []*models.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Message != "" {
			b.WriteString("User: ")
			b.WriteString(m.Message)
			b.WriteString("\n")
		}
		if m.Response != "" {
			b.WriteString("Assistant: ")
			b.WriteString(m.Response)
			b.WriteString("\n")
		}
	}
	return b.String()
}
