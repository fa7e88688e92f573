package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/arlohq/arlo/internal/consolidate"
	"github.com/arlohq/arlo/internal/insight"
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

type sessionEnv struct {
	svc      *Sessions
	sessions *store.SessionStore
	tasks    *store.TaskStore
	chat     *store.ChatStore
	memories *store.MemoryStore
	llm      *scriptedLLM
}

func newSessionEnv(t *testing.T, client *scriptedLLM) sessionEnv {
	t.Helper()
	data, err := store.NewDataDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDataDir: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sessionStore := store.NewSessionStore(data)
	taskStore := store.NewTaskStore(data)
	chatStore := store.NewChatStore(data)
	memoryStore := store.NewMemoryStore(data)

	matcher, err := intent.NewCategoryMatcher()
	if err != nil {
		t.Fatalf("NewCategoryMatcher: %v", err)
	}
	extractor := insight.NewExtractor(client, matcher, logger)
	engine := consolidate.NewEngine(memoryStore, client, matcher, nil, logger)

	return sessionEnv{
		svc:      NewSessions(sessionStore, taskStore, chatStore, extractor, engine, logger),
		sessions: sessionStore,
		tasks:    taskStore,
		chat:     chatStore,
		memories: memoryStore,
		llm:      client,
	}
}

func TestGetOrCreate(t *testing.T) {
	env := newSessionEnv(t, &scriptedLLM{})

	created, err := env.svc.GetOrCreate("p1", "")
	if err != nil {
		t.Fatalf("GetOrCreate with empty id: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created session has no id")
	}

	same, err := env.svc.GetOrCreate("p1", created.ID)
	if err != nil {
		t.Fatalf("GetOrCreate with known id: %v", err)
	}
	if same.ID != created.ID {
		t.Errorf("known id minted a new session: %s != %s", same.ID, created.ID)
	}

	fresh, err := env.svc.GetOrCreate("p1", "unknown-id")
	if err != nil {
		t.Fatalf("GetOrCreate with unknown id: %v", err)
	}
	if fresh.ID == created.ID || fresh.ID == "unknown-id" {
		t.Errorf("unknown id should mint a fresh session, got %s", fresh.ID)
	}
}

func TestTaskContextSelfHealsDanglingPointer(t *testing.T) {
	env := newSessionEnv(t, &scriptedLLM{})

	sess, err := env.svc.Create("p1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sess.TaskContextID = "deleted-task"
	if err := env.sessions.Put("p1", sess); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := env.svc.TaskContext("p1", sess.ID)
	if err != nil {
		t.Fatalf("TaskContext: %v", err)
	}
	if res.HasContext {
		t.Error("dangling pointer reported as context")
	}

	// The cleared pointer is persisted, not just returned.
	stored, err := env.sessions.GetByID("p1", sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.TaskContextID != "" {
		t.Errorf("dangling pointer survived: %q", stored.TaskContextID)
	}
}

func TestTaskContextMissingSessionErrors(t *testing.T) {
	env := newSessionEnv(t, &scriptedLLM{})
	if _, err := env.svc.TaskContext("p1", "ghost"); err == nil {
		t.Error("expected error for missing session")
	}
}

func TestSetTaskContextRequiresExistingTask(t *testing.T) {
	env := newSessionEnv(t, &scriptedLLM{})
	sess, _ := env.svc.Create("p1", "")

	if err := env.svc.SetTaskContext("p1", sess.ID, "ghost-task"); err == nil {
		t.Error("expected error for missing task")
	}

	task := &models.Task{ID: "t1", Title: "real", Status: models.TaskStatusPending, Depth: 1}
	if err := env.tasks.Save("p1", []*models.Task{task}); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	if err := env.svc.SetTaskContext("p1", sess.ID, "t1"); err != nil {
		t.Fatalf("SetTaskContext: %v", err)
	}
	res, _ := env.svc.TaskContext("p1", sess.ID)
	if !res.HasContext || res.Task.ID != "t1" {
		t.Errorf("task context = %+v", res)
	}

	// Empty task ID clears the pointer.
	if err := env.svc.SetTaskContext("p1", sess.ID, ""); err != nil {
		t.Fatalf("clear task context: %v", err)
	}
	res, _ = env.svc.TaskContext("p1", sess.ID)
	if res.HasContext {
		t.Error("cleared context still reported")
	}
}

func TestCompleteShortSessionSkipsAnalysis(t *testing.T) {
	env := newSessionEnv(t, &scriptedLLM{})

	// One full exchange is two records (user turn + agent turn), still below
	// the three-record analysis gate.
	sess, _ := env.svc.Create("p1", "")
	records := []*models.ChatMessage{
		{ID: "m0", SessionID: sess.ID, Message: "hi there", CreatedAt: time.Now().Unix()},
		{ID: "m1", SessionID: sess.ID, Response: "hello", CreatedAt: time.Now().Unix()},
	}
	for _, msg := range records {
		if err := env.chat.Append("p1", msg); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	completion, next, err := env.svc.Complete(context.Background(), "p1", sess.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completion.Status != models.ConsolidationSkippedTooShort {
		t.Errorf("status = %q, want skipped_too_short", completion.Status)
	}
	if completion.SessionMessagesCount != 2 {
		t.Errorf("message count = %d", completion.SessionMessagesCount)
	}
	if env.llm.calls != 0 {
		t.Errorf("LLM called %d times for a too-short session", env.llm.calls)
	}

	// A fresh session is still minted, and the old one survives.
	if next == nil || next.ID == sess.ID {
		t.Fatalf("next session = %+v", next)
	}
	if _, err := env.sessions.GetByID("p1", sess.ID); err != nil {
		t.Errorf("completed session was deleted: %v", err)
	}
}

func TestCompleteConsolidatesInsights(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		// Extraction: one high-significance insight in a relevant session.
		`{"insights": [{"content": "we use postgres for storage", "category": "database", "significance_score": 0.9, "insight_type": "decision"}], "session_relevance_score": 0.9}`,
		// Title for the newly created memory.
		`Postgres for storage`,
	}}
	env := newSessionEnv(t, client)

	sess, _ := env.svc.Create("p1", "")
	for i := 0; i < 3; i++ {
		user := &models.ChatMessage{
			ID:        fmt.Sprintf("u%d", i),
			SessionID: sess.ID,
			Message:   fmt.Sprintf("turn %d about storage", i),
			CreatedAt: time.Now().Unix(),
		}
		agent := &models.ChatMessage{
			ID:        fmt.Sprintf("a%d", i),
			SessionID: sess.ID,
			Response:  "noted",
			CreatedAt: time.Now().Unix(),
		}
		for _, msg := range []*models.ChatMessage{user, agent} {
			if err := env.chat.Append("p1", msg); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
	}

	completion, next, err := env.svc.Complete(context.Background(), "p1", sess.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completion.Status != models.ConsolidationCompleted {
		t.Errorf("status = %q, want completed", completion.Status)
	}
	if completion.MemoriesCreated != 1 {
		t.Errorf("memories created = %d, want 1", completion.MemoriesCreated)
	}
	if completion.InsightsAnalyzed != 1 {
		t.Errorf("insights analyzed = %d, want 1", completion.InsightsAnalyzed)
	}
	if next == nil || next.ID == sess.ID {
		t.Errorf("next session = %+v", next)
	}

	mems, _ := env.memories.LoadByCategory("p1", "database")
	if len(mems) != 1 || mems[0].SessionID != sess.ID {
		t.Errorf("consolidated memories = %+v", mems)
	}
}

func TestCompleteMissingSessionErrors(t *testing.T) {
	env := newSessionEnv(t, &scriptedLLM{})
	if _, _, err := env.svc.Complete(context.Background(), "p1", "ghost"); err == nil {
		t.Error("expected error for missing session")
	}
}
