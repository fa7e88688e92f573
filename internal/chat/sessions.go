package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arlohq/arlo/internal/consolidate"
	"github.com/arlohq/arlo/internal/insight"
	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/store"
)

// Sessions owns the session lifecycle: creation, the focused-task pointer,
// and session completion (insight extraction plus consolidation).
type Sessions struct {
	sessions  *store.SessionStore
	tasks     *store.TaskStore
	chat      *store.ChatStore
	extractor *insight.Extractor
	engine    *consolidate.Engine
	logger    *slog.Logger
}

func NewSessions(sessions *store.SessionStore, tasks *store.TaskStore, chat *store.ChatStore, extractor *insight.Extractor, engine *consolidate.Engine, logger *slog.Logger) *Sessions {
	return &Sessions{
		sessions:  sessions,
		tasks:     tasks,
		chat:      chat,
		extractor: extractor,
		engine:    engine,
		logger:    logger,
	}
}

// GetOrCreate returns the session, creating it when the ID is empty or
// unknown. Callers that must not create pass through GetByID instead.
func (s *Sessions) GetOrCreate(projectID, sessionID string) (*models.Session, error) {
	if sessionID != "" {
		sess, err := s.sessions.GetByID(projectID, sessionID)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return s.Create(projectID, "")
}

// Create starts a fresh session.
func (s *Sessions) Create(projectID, name string) (*models.Session, error) {
	now := time.Now().Unix()
	sess := &models.Session{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		Name:         name,
		LastActivity: now,
		CreatedAt:    now,
	}
	if err := s.sessions.Put(projectID, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("session created", "project", projectID, "session", sess.ID)
	return sess, nil
}

// Touch bumps the session's last-activity timestamp.
func (s *Sessions) Touch(projectID string, sess *models.Session) error {
	sess.LastActivity = time.Now().Unix()
	return s.sessions.Put(projectID, sess)
}

// SetTaskContext points the session at a task. An empty taskID clears it.
func (s *Sessions) SetTaskContext(projectID, sessionID, taskID string) error {
	sess, err := s.sessions.GetByID(projectID, sessionID)
	if err != nil {
		return err
	}
	if taskID != "" {
		task, err := s.tasks.GetByID(projectID, taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return fmt.Errorf("task %s: %w", taskID, store.ErrNotFound)
		}
	}
	sess.TaskContextID = taskID
	return s.sessions.Put(projectID, sess)
}

// TaskContext resolves the session's focused task. A dangling task pointer is
// self-healing: the reference is cleared and persisted, and the caller sees
// "no context" rather than an error. A missing session is still an error —
// only the task half of the pair heals silently.
func (s *Sessions) TaskContext(projectID, sessionID string) (models.TaskContextResult, error) {
	sess, err := s.sessions.GetByID(projectID, sessionID)
	if err != nil {
		return models.TaskContextResult{}, err
	}
	if sess.TaskContextID == "" {
		return models.TaskContextResult{HasContext: false}, nil
	}

	task, err := s.tasks.GetByID(projectID, sess.TaskContextID)
	if err != nil {
		return models.TaskContextResult{}, err
	}
	if task == nil {
		s.logger.Info("clearing dangling task context", "session", sessionID, "task", sess.TaskContextID)
		sess.TaskContextID = ""
		if err := s.sessions.Put(projectID, sess); err != nil {
			return models.TaskContextResult{}, fmt.Errorf("heal task context: %w", err)
		}
		return models.TaskContextResult{HasContext: false}, nil
	}
	return models.TaskContextResult{HasContext: true, Task: task}, nil
}

// Complete ends a session: its transcript is analyzed for insights, the
// insights are consolidated into memories, and only then is a fresh session
// minted. The completed session is superseded, never deleted — its messages
// remain the provenance of whatever memories consolidation produced.
func (s *Sessions) Complete(ctx context.Context, projectID, sessionID string) (*models.SessionCompletion, *models.Session, error) {
	if _, err := s.sessions.GetByID(projectID, sessionID); err != nil {
		return nil, nil, err
	}
	messages, err := s.chat.LoadBySession(projectID, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load session transcript: %w", err)
	}

	completion := &models.SessionCompletion{SessionMessagesCount: len(messages)}

	analysis, status := s.extractor.AnalyzeSession(ctx, messages)
	completion.Status = status
	if analysis != nil {
		completion.InsightsAnalyzed = analysis.TotalProcessed
	}

	if status == models.ConsolidationCompleted && analysis != nil && len(analysis.Insights) > 0 {
		result := s.engine.Consolidate(ctx, projectID, sessionID, analysis)
		completion.MemoriesCreated = result.MemoriesCreated
		completion.Status = result.Status
		s.logger.Info("session consolidated",
			"session", sessionID,
			"created", result.MemoriesCreated,
			"updated", result.MemoriesUpdated,
			"categories", len(result.Categories))
	}

	// The new session is minted only after consolidation finished, so a crash
	// mid-completion never strands turns in a session that was already
	// replaced.
	next, err := s.Create(projectID, "")
	if err != nil {
		return nil, nil, err
	}
	return completion, next, nil
}
