package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arlohq/arlo/internal/chat"
	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/store"
)

// ChatHandler handles chat-turn and session-lifecycle requests.
type ChatHandler struct {
	orchestrator *chat.Orchestrator
	sessions     *chat.Sessions
}

func NewChatHandler(orchestrator *chat.Orchestrator, sessions *chat.Sessions) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator, sessions: sessions}
}

type chatRequest struct {
	SessionID string                `json:"sessionId"`
	Message   string                `json:"message"`
	Project   models.ProjectContext `json:"project"`
}

// Chat handles POST /projects/{projectID}/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := h.orchestrator.ProcessTurn(r.Context(), projectID, req.SessionID, req.Message, req.Project)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreateSession handles POST /projects/{projectID}/sessions
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req struct {
		Name string `json:"name"`
	}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	sess, err := h.sessions.Create(projectID, req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// CompleteSession handles POST /projects/{projectID}/sessions/{sessionID}/complete
func (h *ChatHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	sessionID := chi.URLParam(r, "sessionID")

	completion, next, err := h.sessions.Complete(r.Context(), projectID, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"completion":  completion,
		"nextSession": next,
	})
}

// TaskContext handles GET /projects/{projectID}/sessions/{sessionID}/task-context
func (h *ChatHandler) TaskContext(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	sessionID := chi.URLParam(r, "sessionID")

	result, err := h.sessions.TaskContext(projectID, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SetTaskContext handles PUT /projects/{projectID}/sessions/{sessionID}/task-context
func (h *ChatHandler) SetTaskContext(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		TaskID string `json:"taskId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.sessions.SetTaskContext(projectID, sessionID, req.TaskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
