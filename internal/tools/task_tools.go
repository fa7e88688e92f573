package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/tasks"
)

// CreateTaskTool creates a task, optionally nested under a parent.
type CreateTaskTool struct {
	service *tasks.Service
}

func NewCreateTaskTool(service *tasks.Service) *CreateTaskTool {
	return &CreateTaskTool{service: service}
}

func (t *CreateTaskTool) Name() Name { return NameCreateTask }

func (t *CreateTaskTool) Description() string {
	return "Create a project task. Optional parentTaskId nests it under an existing task (maximum depth 4)."
}

type createTaskArgs struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Priority     models.TaskPriority `json:"priority"`
	ParentTaskID string              `json:"parentTaskId"`
}

func (t *CreateTaskTool) Execute(ctx context.Context, projectID string, args json.RawMessage) (models.ToolResult, error) {
	var in createTaskArgs
	if err := decodeArgs(args, &in); err != nil {
		return failure(NameCreateTask, err.Error()), nil
	}
	task, err := t.service.Create(projectID, tasks.CreateInput{
		Title:        in.Title,
		Description:  in.Description,
		Priority:     in.Priority,
		ParentTaskID: in.ParentTaskID,
	})
	if err != nil {
		return failure(NameCreateTask, err.Error()), nil
	}
	return success(NameCreateTask, fmt.Sprintf("created task %q", task.Title), task.ID), nil
}

// UpdateTaskTool applies a partial update to an existing task.
type UpdateTaskTool struct {
	service *tasks.Service
}

func NewUpdateTaskTool(service *tasks.Service) *UpdateTaskTool {
	return &UpdateTaskTool{service: service}
}

func (t *UpdateTaskTool) Name() Name { return NameUpdateTask }

func (t *UpdateTaskTool) Description() string {
	return "Update a task's title, description, priority, or completed flag. Omitted fields are untouched."
}

type updateTaskArgs struct {
	TaskID      string               `json:"taskId"`
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Priority    *models.TaskPriority `json:"priority"`
	Completed   *bool                `json:"completed"`
}

func (t *UpdateTaskTool) Execute(ctx context.Context, projectID string, args json.RawMessage) (models.ToolResult, error) {
	var in updateTaskArgs
	if err := decodeArgs(args, &in); err != nil {
		return failure(NameUpdateTask, err.Error()), nil
	}
	if in.TaskID == "" {
		return failure(NameUpdateTask, "taskId is required"), nil
	}
	task, err := t.service.Update(projectID, in.TaskID, tasks.UpdateInput{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Completed:   in.Completed,
	})
	if err != nil {
		return failure(NameUpdateTask, err.Error()), nil
	}
	return success(NameUpdateTask, fmt.Sprintf("updated task %q", task.Title), task.ID), nil
}

// ChangeTaskStatusTool transitions a task's lifecycle status.
type ChangeTaskStatusTool struct {
	service *tasks.Service
}

func NewChangeTaskStatusTool(service *tasks.Service) *ChangeTaskStatusTool {
	return &ChangeTaskStatusTool{service: service}
}

func (t *ChangeTaskStatusTool) Name() Name { return NameChangeTaskStatus }

func (t *ChangeTaskStatusTool) Description() string {
	return "Change a task's status: pending, in_progress, completed, or blocked."
}

type changeStatusArgs struct {
	TaskID string            `json:"taskId"`
	Status models.TaskStatus `json:"status"`
}

func (t *ChangeTaskStatusTool) Execute(ctx context.Context, projectID string, args json.RawMessage) (models.ToolResult, error) {
	var in changeStatusArgs
	if err := decodeArgs(args, &in); err != nil {
		return failure(NameChangeTaskStatus, err.Error()), nil
	}
	if in.TaskID == "" {
		return failure(NameChangeTaskStatus, "taskId is required"), nil
	}
	task, err := t.service.ChangeStatus(projectID, in.TaskID, in.Status)
	if err != nil {
		return failure(NameChangeTaskStatus, err.Error()), nil
	}
	return success(NameChangeTaskStatus, fmt.Sprintf("task %q is now %s", task.Title, task.Status), task.ID), nil
}
