package models

import (
	"fmt"
	"time"
)

// MaxTaskDepth bounds the task forest. A child of a depth-4 task is rejected,
// never clamped.
const MaxTaskDepth = 4

// Task is a unit of project work, optionally nested under a parent task.
type Task struct {
	ID           string       `json:"id"`
	ProjectID    string       `json:"projectId"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Status       TaskStatus   `json:"status"`
	Priority     TaskPriority `json:"priority"`
	Completed    bool         `json:"completed"`
	ParentTaskID string       `json:"parentTaskId,omitempty"`
	Depth        int          `json:"depth"`
	Order        int          `json:"order"`
	Embedding    []float32    `json:"embedding,omitempty"`
	CreatedAt    int64        `json:"createdAt"`
	UpdatedAt    int64        `json:"updatedAt"`
}

// SetStatus transitions the task and keeps the completed flag consistent.
// All status mutations must go through here; writing Status directly breaks
// the status↔completed invariant.
func (t *Task) SetStatus(s TaskStatus) error {
	if !s.IsValid() {
		return fmt.Errorf("invalid task status: %q", s)
	}
	t.Status = s
	t.Completed = s == TaskStatusCompleted
	t.UpdatedAt = time.Now().Unix()
	return nil
}

// SetCompleted is the boolean mirror of SetStatus. Marking a task incomplete
// moves it back to pending.
func (t *Task) SetCompleted(done bool) {
	if done {
		t.Status = TaskStatusCompleted
	} else if t.Status == TaskStatusCompleted {
		t.Status = TaskStatusPending
	}
	t.Completed = done
	t.UpdatedAt = time.Now().Unix()
}

// ChildDepth computes the depth for a new child of parent. A nil parent means
// a root task (depth 1). Exceeding MaxTaskDepth is a validation error.
func ChildDepth(parent *Task) (int, error) {
	if parent == nil {
		return 1, nil
	}
	if parent.Depth >= MaxTaskDepth {
		return 0, fmt.Errorf("task %s is at maximum depth %d, cannot add child", parent.ID, MaxTaskDepth)
	}
	return parent.Depth + 1, nil
}

// Validate checks the task's structural invariants.
func (t *Task) Validate() error {
	if t.Depth < 1 || t.Depth > MaxTaskDepth {
		return fmt.Errorf("task depth %d out of range [1, %d]", t.Depth, MaxTaskDepth)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid task status: %q", t.Status)
	}
	if t.Completed != (t.Status == TaskStatusCompleted) {
		return fmt.Errorf("task %s: completed=%v inconsistent with status=%q", t.ID, t.Completed, t.Status)
	}
	return nil
}
