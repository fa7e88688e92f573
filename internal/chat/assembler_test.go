package chat

import (
	"strings"
	"testing"

	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/search"
)

func TestAssembleContextSectionOrder(t *testing.T) {
	bundle := ContextBundle{
		Project:     models.ProjectContext{Name: "arlo", Description: "assistant backend"},
		FocusedTask: &models.Task{Title: "wire auth", Status: models.TaskStatusInProgress, Priority: models.PriorityHigh},
		History: []*models.ChatMessage{
			{Message: "where were we?", Response: "working on auth"},
		},
		Tasks: []search.ScoredTask{
			{Task: &models.Task{Title: "add login", Description: "email and password flow", Status: models.TaskStatusPending}, Score: 0.82},
			{Task: &models.Task{Title: "rotate keys", Status: models.TaskStatusPending}, Score: 0.41},
		},
		Memories: []search.ScoredMemory{
			{Memory: &models.Memory{Title: "db choice", Category: "database", Type: models.MemoryTypeDecision, Content: "postgres"}, Score: 0.91},
		},
	}

	got := AssembleContext(bundle)

	order := []string{"## Project", "## Focused task", "## Session history", "## Relevant tasks", "## Relevant memories"}
	last := -1
	for _, heading := range order {
		idx := strings.Index(got, heading)
		if idx < 0 {
			t.Fatalf("missing section %q in:\n%s", heading, got)
		}
		if idx < last {
			t.Errorf("section %q out of order", heading)
		}
		last = idx
	}

	if !strings.Contains(got, "◐ wire auth [in_progress, high priority]") {
		t.Errorf("focused task line missing:\n%s", got)
	}
	if !strings.Contains(got, "This task is the primary frame for the conversation") {
		t.Errorf("primary-frame instruction missing:\n%s", got)
	}
	if !strings.Contains(got, "○ add login: email and password flow [pending] (0.82)") {
		t.Errorf("scored task line with description missing:\n%s", got)
	}
	if !strings.Contains(got, "○ rotate keys [pending] (0.41)") {
		t.Errorf("scored task line without description missing:\n%s", got)
	}
	if !strings.Contains(got, "- [decision/database] db choice (0.91): postgres") {
		t.Errorf("memory line missing:\n%s", got)
	}
}

func TestAssembleContextOmitsEmptySections(t *testing.T) {
	got := AssembleContext(ContextBundle{
		Project: models.ProjectContext{Name: "arlo"},
	})

	if !strings.Contains(got, "## Project") {
		t.Errorf("project section missing:\n%s", got)
	}
	for _, heading := range []string{"## Focused task", "## Session history", "## Relevant tasks", "## Relevant memories"} {
		if strings.Contains(got, heading) {
			t.Errorf("empty section %q rendered:\n%s", heading, got)
		}
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("trailing newline not trimmed")
	}
}

func TestAssembleContextEmptyBundle(t *testing.T) {
	if got := AssembleContext(ContextBundle{}); got != "" {
		t.Errorf("empty bundle rendered %q", got)
	}
}
