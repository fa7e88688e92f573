package chat

import (
	"fmt"
	"strings"

	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/search"
)

// statusIcon marks task state in assembled prompts.
var statusIcon = map[models.TaskStatus]string{
	models.TaskStatusPending:    "○",
	models.TaskStatusInProgress: "◐",
	models.TaskStatusCompleted:  "●",
	models.TaskStatusBlocked:    "✗",
}

// ContextBundle is everything selected for one turn's prompt.
type ContextBundle struct {
	Project     models.ProjectContext
	FocusedTask *models.Task
	History     []*models.ChatMessage
	Tasks       []search.ScoredTask
	Memories    []search.ScoredMemory
}

// AssembleContext renders the bundle as the prompt context block. Sections
// appear in fixed order — project, focused task, session history, relevant
// tasks, relevant memories — and empty sections are omitted entirely. Nothing
// is truncated here: selection already bounded the candidate set, and silent
// truncation would drop exactly the context selection decided to keep.
func AssembleContext(b ContextBundle) string {
	var sb strings.Builder

	if b.Project.Name != "" || b.Project.Description != "" {
		sb.WriteString("## Project\n")
		if b.Project.Name != "" {
			fmt.Fprintf(&sb, "Name: %s\n", b.Project.Name)
		}
		if b.Project.TechStack != "" {
			fmt.Fprintf(&sb, "Tech stack: %s\n", b.Project.TechStack)
		}
		if b.Project.Description != "" {
			fmt.Fprintf(&sb, "%s\n", b.Project.Description)
		}
		sb.WriteString("\n")
	}

	if b.FocusedTask != nil {
		sb.WriteString("## Focused task\n")
		fmt.Fprintf(&sb, "%s %s [%s, %s priority]\n", statusIcon[b.FocusedTask.Status], b.FocusedTask.Title, b.FocusedTask.Status, b.FocusedTask.Priority)
		if b.FocusedTask.Description != "" {
			fmt.Fprintf(&sb, "%s\n", b.FocusedTask.Description)
		}
		sb.WriteString("This task is the primary frame for the conversation: interpret the user's messages in relation to it.\n")
		sb.WriteString("\n")
	}

	if len(b.History) > 0 {
		sb.WriteString("## Session history\n")
		for _, m := range b.History {
			if m.Message != "" {
				fmt.Fprintf(&sb, "User: %s\n", m.Message)
			}
			if m.Response != "" {
				fmt.Fprintf(&sb, "Assistant: %s\n", m.Response)
			}
		}
		sb.WriteString("\n")
	}

	if len(b.Tasks) > 0 {
		sb.WriteString("## Relevant tasks\n")
		for _, st := range b.Tasks {
			if st.Task.Description != "" {
				fmt.Fprintf(&sb, "%s %s: %s [%s] (%.2f)\n", statusIcon[st.Task.Status], st.Task.Title, st.Task.Description, st.Task.Status, st.Score)
			} else {
				fmt.Fprintf(&sb, "%s %s [%s] (%.2f)\n", statusIcon[st.Task.Status], st.Task.Title, st.Task.Status, st.Score)
			}
		}
		sb.WriteString("\n")
	}

	if len(b.Memories) > 0 {
		sb.WriteString("## Relevant memories\n")
		for _, sm := range b.Memories {
			fmt.Fprintf(&sb, "- [%s/%s] %s (%.2f): %s\n", sm.Memory.Type, sm.Memory.Category, sm.Memory.Title, sm.Score, sm.Memory.Content)
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}
