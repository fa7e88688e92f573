package tasks

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arlohq/arlo/internal/embedding"
	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/store"
)

// Service owns task lifecycle rules: depth limits, sibling ordering, and the
// status↔completed invariant. All task mutations go through here so the
// flat-file collection never holds an inconsistent task.
type Service struct {
	tasks    *store.TaskStore
	embedder embedding.Embedder
	logger   *slog.Logger
}

func NewService(tasks *store.TaskStore, embedder embedding.Embedder, logger *slog.Logger) *Service {
	return &Service{tasks: tasks, embedder: embedder, logger: logger}
}

// CreateInput carries the caller-settable fields of a new task.
type CreateInput struct {
	Title        string
	Description  string
	Priority     models.TaskPriority
	ParentTaskID string
}

// Create adds a task, depth-checked against its parent and ordered after its
// existing siblings.
func (s *Service) Create(projectID string, in CreateInput) (*models.Task, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.IsValid() {
		return nil, fmt.Errorf("invalid task priority: %q", in.Priority)
	}

	all, err := s.tasks.Load(projectID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	var parent *models.Task
	if in.ParentTaskID != "" {
		for _, t := range all {
			if t.ID == in.ParentTaskID {
				parent = t
				break
			}
		}
		if parent == nil {
			return nil, fmt.Errorf("parent task %s not found", in.ParentTaskID)
		}
	}
	depth, err := models.ChildDepth(parent)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	task := &models.Task{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		Title:        in.Title,
		Description:  in.Description,
		Status:       models.TaskStatusPending,
		Priority:     in.Priority,
		ParentTaskID: in.ParentTaskID,
		Depth:        depth,
		Order:        siblingCount(all, in.ParentTaskID) + 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if s.embedder != nil {
		task.Embedding = s.embedder.EmbedOrNil(task.Title + " " + task.Description)
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	all = append(all, task)
	if err := s.tasks.Save(projectID, all); err != nil {
		return nil, fmt.Errorf("save tasks: %w", err)
	}
	s.logger.Info("task created", "project", projectID, "task", task.ID, "depth", task.Depth)
	return task, nil
}

// UpdateInput carries the mutable fields of an existing task. Nil pointers
// leave a field untouched.
type UpdateInput struct {
	Title       *string
	Description *string
	Priority    *models.TaskPriority
	Completed   *bool
}

// Update applies a partial update. Completion flips go through SetCompleted
// so status stays consistent.
func (s *Service) Update(projectID, taskID string, in UpdateInput) (*models.Task, error) {
	all, err := s.tasks.Load(projectID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	task := findTask(all, taskID)
	if task == nil {
		return nil, fmt.Errorf("task %s not found", taskID)
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, fmt.Errorf("task title cannot be empty")
		}
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Priority != nil {
		if !in.Priority.IsValid() {
			return nil, fmt.Errorf("invalid task priority: %q", *in.Priority)
		}
		task.Priority = *in.Priority
	}
	if in.Completed != nil {
		task.SetCompleted(*in.Completed)
	}
	task.UpdatedAt = time.Now().Unix()

	if s.embedder != nil && (in.Title != nil || in.Description != nil) {
		if vec := s.embedder.EmbedOrNil(task.Title + " " + task.Description); vec != nil {
			task.Embedding = vec
		}
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.tasks.Save(projectID, all); err != nil {
		return nil, fmt.Errorf("save tasks: %w", err)
	}
	return task, nil
}

// ChangeStatus transitions a task to the given status.
func (s *Service) ChangeStatus(projectID, taskID string, status models.TaskStatus) (*models.Task, error) {
	all, err := s.tasks.Load(projectID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	task := findTask(all, taskID)
	if task == nil {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	if err := task.SetStatus(status); err != nil {
		return nil, err
	}
	if err := s.tasks.Save(projectID, all); err != nil {
		return nil, fmt.Errorf("save tasks: %w", err)
	}
	s.logger.Info("task status changed", "project", projectID, "task", task.ID, "status", status)
	return task, nil
}

// Get returns a task by ID, or nil when absent.
func (s *Service) Get(projectID, taskID string) (*models.Task, error) {
	return s.tasks.GetByID(projectID, taskID)
}

// List returns every task for a project.
func (s *Service) List(projectID string) ([]*models.Task, error) {
	return s.tasks.Load(projectID)
}

// Delete removes a task and every descendant under it.
func (s *Service) Delete(projectID, taskID string) error {
	all, err := s.tasks.Load(projectID)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	if findTask(all, taskID) == nil {
		return fmt.Errorf("task %s not found", taskID)
	}

	doomed := map[string]bool{taskID: true}
	// Children always come after their parent chronologically, but a single
	// pass over insertion order is not guaranteed after re-saves; iterate
	// until the closure stops growing.
	for {
		grew := false
		for _, t := range all {
			if t.ParentTaskID != "" && doomed[t.ParentTaskID] && !doomed[t.ID] {
				doomed[t.ID] = true
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	kept := all[:0]
	for _, t := range all {
		if !doomed[t.ID] {
			kept = append(kept, t)
		}
	}
	if err := s.tasks.Save(projectID, kept); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	s.logger.Info("task deleted", "project", projectID, "task", taskID, "removed", len(doomed))
	return nil
}

func findTask(tasks []*models.Task, id string) *models.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func siblingCount(tasks []*models.Task, parentID string) int {
	n := 0
	for _, t := range tasks {
		if t.ParentTaskID == parentID {
			n++
		}
	}
	return n
}
