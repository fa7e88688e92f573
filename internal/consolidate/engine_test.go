package consolidate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arlohq/arlo/internal/intent"
	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/store"
)

// scriptedLLM pops responses in order and counts calls.
type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) ChatWithSystemPrompt(ctx context.Context, userText, systemPrompt string) (string, error) {
	s.calls++
	if len(s.responses) == 0 {
		return "", fmt.Errorf("no scripted response left (call %d)", s.calls)
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func newEngine(t *testing.T, client *scriptedLLM) (*Engine, *store.MemoryStore) {
	t.Helper()
	data, err := store.NewDataDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDataDir: %v", err)
	}
	memories := store.NewMemoryStore(data)
	matcher, err := intent.NewCategoryMatcher()
	if err != nil {
		t.Fatalf("NewCategoryMatcher: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(memories, client, matcher, nil, logger), memories
}

func seedMemory(t *testing.T, memories *store.MemoryStore, projectID string, mem *models.Memory) {
	t.Helper()
	if mem.CreatedAt == 0 {
		mem.CreatedAt = time.Now().Unix()
		mem.UpdatedAt = mem.CreatedAt
	}
	if err := memories.Upsert(projectID, mem); err != nil {
		t.Fatalf("seed memory: %v", err)
	}
}

func TestConsolidateConflictBlocksMerge(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"has_conflict": true, "should_merge": false}`,
	}}
	engine, memories := newEngine(t, client)

	seedMemory(t, memories, "p1", &models.Memory{
		ID:       "m1",
		Title:    "database choice",
		Content:  "we use postgres for the main database",
		Category: "database",
		Type:     models.MemoryTypeDecision,
	})

	analysis := &models.SessionAnalysis{
		Insights: []models.ConversationInsight{{
			Content:           "we use postgres with read replicas for the main database",
			Category:          "database",
			SignificanceScore: 0.75, // below the new-memory bar
			InsightType:       models.InsightTypeDecision,
		}},
	}

	result := engine.Consolidate(context.Background(), "p1", "s1", analysis)
	if result.MemoriesUpdated != 0 || result.MemoriesCreated != 0 {
		t.Errorf("conflict should be net-zero, got updated=%d created=%d", result.MemoriesUpdated, result.MemoriesCreated)
	}

	// The existing memory must be untouched.
	mem, err := memories.GetByID("p1", "m1")
	if err != nil || mem == nil {
		t.Fatalf("reload memory: %v", err)
	}
	if mem.Content != "we use postgres for the main database" {
		t.Errorf("memory content changed despite conflict: %q", mem.Content)
	}
}

func TestConsolidateMergesIntoBestMatch(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"has_conflict": false, "should_merge": true}`,
		`{"title": "database choice", "content": "we use postgres for the main database, with read replicas", "category": "database"}`,
	}}
	engine, memories := newEngine(t, client)

	seedMemory(t, memories, "p1", &models.Memory{
		ID:       "m1",
		Title:    "database choice",
		Content:  "we use postgres for the main database",
		Category: "database",
		Type:     models.MemoryTypeDecision,
	})

	analysis := &models.SessionAnalysis{
		Insights: []models.ConversationInsight{{
			Content:           "we use postgres read replicas for the main database",
			Category:          "database",
			SignificanceScore: 0.9,
			InsightType:       models.InsightTypeDecision,
			RelatedKeywords:   []string{"postgres", "database"},
		}},
	}

	result := engine.Consolidate(context.Background(), "p1", "s1", analysis)
	if result.MemoriesUpdated != 1 {
		t.Fatalf("MemoriesUpdated = %d, want 1", result.MemoriesUpdated)
	}
	if result.MemoriesCreated != 0 {
		t.Errorf("MemoriesCreated = %d, want 0 (merge, not create)", result.MemoriesCreated)
	}

	mem, _ := memories.GetByID("p1", "m1")
	if mem.Content != "we use postgres for the main database, with read replicas" {
		t.Errorf("merged content = %q", mem.Content)
	}
}

func TestConsolidateCreatesHighSignificanceMemory(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`Session token lifetime`, // title generation
	}}
	engine, memories := newEngine(t, client)

	analysis := &models.SessionAnalysis{
		Insights: []models.ConversationInsight{{
			Content:           "session tokens expire after 15 minutes",
			Category:          "security",
			SignificanceScore: 0.85,
			InsightType:       models.InsightTypeSpecification,
		}},
	}

	result := engine.Consolidate(context.Background(), "p1", "s1", analysis)
	if result.MemoriesCreated != 1 {
		t.Fatalf("MemoriesCreated = %d, want 1", result.MemoriesCreated)
	}

	mems, _ := memories.LoadByCategory("p1", "security")
	if len(mems) != 1 {
		t.Fatalf("got %d security memories, want 1", len(mems))
	}
	if mems[0].Title != "Session token lifetime" {
		t.Errorf("title = %q", mems[0].Title)
	}
	if mems[0].Type != models.MemoryTypeSpec {
		t.Errorf("type = %q, want spec", mems[0].Type)
	}
	if mems[0].SessionID != "s1" {
		t.Errorf("sessionId = %q, want s1", mems[0].SessionID)
	}
}

func TestConsolidateBelowBothThresholdsDoesNothing(t *testing.T) {
	client := &scriptedLLM{}
	engine, memories := newEngine(t, client)

	analysis := &models.SessionAnalysis{
		Insights: []models.ConversationInsight{{
			Content:           "minor note about nothing in particular",
			Category:          "general",
			SignificanceScore: 0.5,
			InsightType:       models.InsightTypePattern,
		}},
	}

	result := engine.Consolidate(context.Background(), "p1", "s1", analysis)
	if result.MemoriesCreated+result.MemoriesUpdated != 0 {
		t.Errorf("expected no writes, got created=%d updated=%d", result.MemoriesCreated, result.MemoriesUpdated)
	}
	if client.calls != 0 {
		t.Errorf("LLM called %d times with no merge candidate and low significance, want 0", client.calls)
	}

	mems, _ := memories.Load("p1")
	if len(mems) != 0 {
		t.Errorf("store has %d memories, want 0", len(mems))
	}
}

func TestConsolidateInvalidCategoryFallsBackToGeneral(t *testing.T) {
	client := &scriptedLLM{responses: []string{`Weird category insight`}}
	engine, _ := newEngine(t, client)

	analysis := &models.SessionAnalysis{
		Insights: []models.ConversationInsight{{
			Content:           "some fact",
			Category:          "Not A Valid Category Name",
			SignificanceScore: 0.9,
			InsightType:       models.InsightTypeDecision,
		}},
	}

	result := engine.Consolidate(context.Background(), "p1", "s1", analysis)
	if len(result.Categories) != 1 {
		t.Fatalf("got %d category results, want 1", len(result.Categories))
	}
	if result.Categories[0].Category != intent.FallbackCategory {
		t.Errorf("category = %q, want %q", result.Categories[0].Category, intent.FallbackCategory)
	}
	if result.Categories[0].IsNewCategory {
		t.Error("fallback category flagged as new")
	}
}

func TestConsolidateRegistersValidNewCategory(t *testing.T) {
	client := &scriptedLLM{responses: []string{`Billing cadence`}}
	engine, _ := newEngine(t, client)

	analysis := &models.SessionAnalysis{
		Insights: []models.ConversationInsight{{
			Content:               "invoices go out on the first of the month",
			Category:              "billing",
			IsNewCategory:         true,
			NewCategorySuggestion: "billing",
			SignificanceScore:     0.9,
			InsightType:           models.InsightTypeRequirement,
		}},
	}

	result := engine.Consolidate(context.Background(), "p1", "s1", analysis)
	if len(result.Categories) != 1 || result.Categories[0].Category != "billing" {
		t.Fatalf("category results = %+v, want billing", result.Categories)
	}
	if !result.Categories[0].IsNewCategory {
		t.Error("billing not flagged as new category")
	}
	if !engine.matcher.IsKnown("billing") {
		t.Error("new category not registered with the matcher")
	}
}

func TestBestMatch(t *testing.T) {
	memories := []*models.Memory{
		{ID: "m1", Title: "frontend styling", Content: "css layout conventions"},
		{ID: "m2", Title: "database choice", Content: "we use postgres for the main database"},
	}
	ins := models.ConversationInsight{
		Content:         "postgres is the main database engine",
		RelatedKeywords: []string{"postgres"},
	}

	best, score := BestMatch(ins, memories)
	if best == nil || best.ID != "m2" {
		t.Fatalf("best match = %+v, want m2", best)
	}
	if score <= 0 {
		t.Errorf("score = %f, want > 0", score)
	}

	if best, _ := BestMatch(ins, nil); best != nil {
		t.Error("BestMatch on empty slice should return nil")
	}
}

func TestGenerateTitleFallback(t *testing.T) {
	// LLM returns an over-long title; the first six words win.
	client := &scriptedLLM{responses: []string{
		"This title is way too long to fit within the fifty character limit imposed on memory titles",
	}}
	engine, _ := newEngine(t, client)

	got := engine.generateTitle(context.Background(), "session tokens expire after fifteen minutes of idle time")
	want := "session tokens expire after fifteen minutes"
	if got != want {
		t.Errorf("generateTitle() = %q, want %q", got, want)
	}
}
