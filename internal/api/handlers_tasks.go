package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/tasks"
)

// TaskHandler handles task CRUD requests.
type TaskHandler struct {
	service *tasks.Service
}

func NewTaskHandler(service *tasks.Service) *TaskHandler {
	return &TaskHandler{service: service}
}

// List handles GET /projects/{projectID}/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	all, err := h.service.List(projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if all == nil {
		all = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": all})
}

type createTaskRequest struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Priority     models.TaskPriority `json:"priority"`
	ParentTaskID string              `json:"parentTaskId"`
}

// Create handles POST /projects/{projectID}/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	task, err := h.service.Create(projectID, tasks.CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		ParentTaskID: req.ParentTaskID,
	})
	if err != nil {
		writeError(w, statusForServiceError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Get handles GET /projects/{projectID}/tasks/{taskID}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	taskID := chi.URLParam(r, "taskID")

	task, err := h.service.Get(projectID, taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type updateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Priority    *models.TaskPriority `json:"priority"`
	Completed   *bool                `json:"completed"`
}

// Update handles PATCH /projects/{projectID}/tasks/{taskID}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	taskID := chi.URLParam(r, "taskID")

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	task, err := h.service.Update(projectID, taskID, tasks.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Completed:   req.Completed,
	})
	if err != nil {
		writeError(w, statusForServiceError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// ChangeStatus handles POST /projects/{projectID}/tasks/{taskID}/status
func (h *TaskHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	taskID := chi.URLParam(r, "taskID")

	var req struct {
		Status models.TaskStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	task, err := h.service.ChangeStatus(projectID, taskID, req.Status)
	if err != nil {
		writeError(w, statusForServiceError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Delete handles DELETE /projects/{projectID}/tasks/{taskID}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	taskID := chi.URLParam(r, "taskID")

	if err := h.service.Delete(projectID, taskID); err != nil {
		writeError(w, statusForServiceError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusForServiceError maps service validation failures to 400/404 and
// everything else to 500.
func statusForServiceError(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "required"),
		strings.Contains(msg, "invalid"),
		strings.Contains(msg, "maximum depth"),
		strings.Contains(msg, "cannot be empty"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
