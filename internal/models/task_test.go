package models

import "testing"

func TestChildDepth(t *testing.T) {
	tests := []struct {
		name    string
		parent  *Task
		want    int
		wantErr bool
	}{
		{name: "root task", parent: nil, want: 1},
		{name: "child of root", parent: &Task{ID: "p", Depth: 1}, want: 2},
		{name: "child of depth 3", parent: &Task{ID: "p", Depth: 3}, want: 4},
		{name: "child of max depth", parent: &Task{ID: "p", Depth: 4}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChildDepth(tt.parent)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got depth %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ChildDepth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSetStatusKeepsCompletedConsistent(t *testing.T) {
	task := &Task{ID: "t1", Depth: 1, Status: TaskStatusPending}

	if err := task.SetStatus(TaskStatusCompleted); err != nil {
		t.Fatalf("SetStatus(completed): %v", err)
	}
	if !task.Completed {
		t.Error("completed flag not set after status change to completed")
	}
	if err := task.Validate(); err != nil {
		t.Errorf("task invalid after SetStatus: %v", err)
	}

	if err := task.SetStatus(TaskStatusInProgress); err != nil {
		t.Fatalf("SetStatus(in_progress): %v", err)
	}
	if task.Completed {
		t.Error("completed flag still set after leaving completed status")
	}

	if err := task.SetStatus("bogus"); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestSetCompleted(t *testing.T) {
	task := &Task{ID: "t1", Depth: 1, Status: TaskStatusInProgress}

	task.SetCompleted(true)
	if task.Status != TaskStatusCompleted {
		t.Errorf("status = %q, want completed", task.Status)
	}

	task.SetCompleted(false)
	if task.Status != TaskStatusPending {
		t.Errorf("status = %q, want pending after un-completing", task.Status)
	}
	if task.Completed {
		t.Error("completed flag still set")
	}
}

func TestValidateRejectsInconsistentTask(t *testing.T) {
	task := &Task{ID: "t1", Depth: 1, Status: TaskStatusPending, Completed: true}
	if err := task.Validate(); err == nil {
		t.Error("expected error for completed=true with pending status")
	}

	task = &Task{ID: "t2", Depth: 5, Status: TaskStatusPending}
	if err := task.Validate(); err == nil {
		t.Error("expected error for depth out of range")
	}
}

func TestMemoryIsConsolidated(t *testing.T) {
	m := &Memory{ID: "security" + ConsolidatedSuffix}
	if !m.IsConsolidated() {
		t.Error("expected consolidated memory")
	}
	m = &Memory{ID: "abc-123"}
	if m.IsConsolidated() {
		t.Error("plain memory reported as consolidated")
	}
}
