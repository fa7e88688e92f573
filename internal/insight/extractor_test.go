package insight

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/arlohq/arlo/internal/intent"
	"github.com/arlohq/arlo/internal/models"
)

type scriptedLLM struct {
	response string
	err      error
	calls    int
}

func (s *scriptedLLM) ChatWithSystemPrompt(ctx context.Context, userText, systemPrompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newExtractor(t *testing.T, client *scriptedLLM) *Extractor {
	t.Helper()
	matcher, err := intent.NewCategoryMatcher()
	if err != nil {
		t.Fatalf("NewCategoryMatcher: %v", err)
	}
	return NewExtractor(client, matcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func messages(n int) []*models.ChatMessage {
	var out []*models.ChatMessage
	for i := 0; i < n; i++ {
		out = append(out, &models.ChatMessage{
			Message:  fmt.Sprintf("user message %d", i),
			Response: fmt.Sprintf("agent reply %d", i),
		})
	}
	return out
}

func TestAnalyzeSessionTooShortSkipsLLM(t *testing.T) {
	client := &scriptedLLM{}
	e := newExtractor(t, client)

	analysis, status := e.AnalyzeSession(context.Background(), messages(2))
	if status != models.ConsolidationSkippedTooShort {
		t.Errorf("status = %q, want skipped_too_short", status)
	}
	if analysis != nil {
		t.Error("expected nil analysis for short session")
	}
	if client.calls != 0 {
		t.Errorf("LLM called %d times for a too-short session, want 0", client.calls)
	}
}

func TestAnalyzeSessionFiltersBySignificance(t *testing.T) {
	client := &scriptedLLM{response: `{
		"insights": [
			{"content": "we use postgres", "category": "database", "significance_score": 0.9, "insight_type": "decision"},
			{"content": "maybe add dark mode someday", "category": "ui", "significance_score": 0.4, "insight_type": "pattern"}
		],
		"session_relevance_score": 0.8
	}`}
	e := newExtractor(t, client)

	analysis, status := e.AnalyzeSession(context.Background(), messages(3))
	if status != models.ConsolidationCompleted {
		t.Fatalf("status = %q, want completed", status)
	}
	if analysis.TotalFound != 2 || analysis.TotalProcessed != 2 {
		t.Errorf("found/processed = %d/%d, want 2/2", analysis.TotalFound, analysis.TotalProcessed)
	}
	if len(analysis.Insights) != 1 {
		t.Fatalf("got %d insights after significance filter, want 1", len(analysis.Insights))
	}
	if analysis.Insights[0].Content != "we use postgres" {
		t.Errorf("kept insight = %q", analysis.Insights[0].Content)
	}
}

func TestAnalyzeSessionLowRelevanceDiscardsInsights(t *testing.T) {
	client := &scriptedLLM{response: `{
		"insights": [
			{"content": "significant but off-topic", "category": "general", "significance_score": 0.95, "insight_type": "decision"}
		],
		"session_relevance_score": 0.2
	}`}
	e := newExtractor(t, client)

	analysis, status := e.AnalyzeSession(context.Background(), messages(4))
	if status != models.ConsolidationNoRelevantInsight {
		t.Errorf("status = %q, want no_relevant_insights", status)
	}
	if len(analysis.Insights) != 0 {
		t.Errorf("low-relevance session kept %d insights, want 0", len(analysis.Insights))
	}
}

func TestAnalyzeSessionUnparsableResponse(t *testing.T) {
	client := &scriptedLLM{response: "sorry, I had trouble with that"}
	e := newExtractor(t, client)

	analysis, status := e.AnalyzeSession(context.Background(), messages(3))
	if status != models.ConsolidationError {
		t.Errorf("status = %q, want error", status)
	}
	if analysis != nil {
		t.Error("expected nil analysis on parse failure")
	}
}

func TestExtractFromMessagePicksBestInsight(t *testing.T) {
	client := &scriptedLLM{response: `{
		"insights": [
			{"content": "minor detail", "category": "general", "significance_score": 0.5, "insight_type": "pattern"},
			{"content": "we deploy via docker", "category": "deployment", "significance_score": 0.9, "insight_type": "decision"}
		],
		"session_relevance_score": 1.0
	}`}
	e := newExtractor(t, client)

	got, err := e.ExtractFromMessage(context.Background(), "remember this: we deploy via docker")
	if err != nil {
		t.Fatalf("ExtractFromMessage: %v", err)
	}
	if got == nil || got.Content != "we deploy via docker" {
		t.Errorf("best insight = %+v, want the deployment decision", got)
	}
}

func TestTranscript(t *testing.T) {
	msgs := []*models.ChatMessage{
		{Message: "hello", Response: "hi there"},
		{Message: "status?"},
	}
	got := Transcript(msgs)
	want := "User: hello\nAssistant: hi there\nUser: status?\n"
	if got != want {
		t.Errorf("Transcript() = %q, want %q", got, want)
	}
}
