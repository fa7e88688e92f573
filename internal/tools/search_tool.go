package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/search"
	"github.com/arlohq/arlo/internal/store"
)

// SearchContextTool runs the relevance selector over the project's tasks and
// memories and reports the top matches.
type SearchContextTool struct {
	tasks    *store.TaskStore
	memories *store.MemoryStore
	selector *search.Selector
}

func NewSearchContextTool(taskStore *store.TaskStore, memories *store.MemoryStore, selector *search.Selector) *SearchContextTool {
	return &SearchContextTool{tasks: taskStore, memories: memories, selector: selector}
}

func (t *SearchContextTool) Name() Name { return NameSearchContext }

func (t *SearchContextTool) Description() string {
	return "Search the project's tasks and memories by relevance to a query."
}

type searchContextArgs struct {
	Query string `json:"query"`
}

func (t *SearchContextTool) Execute(ctx context.Context, projectID string, args json.RawMessage) (models.ToolResult, error) {
	var in searchContextArgs
	if err := decodeArgs(args, &in); err != nil {
		return failure(NameSearchContext, err.Error()), nil
	}
	if strings.TrimSpace(in.Query) == "" {
		return failure(NameSearchContext, "query is required"), nil
	}

	allTasks, err := t.tasks.Load(projectID)
	if err != nil {
		return failure(NameSearchContext, err.Error()), nil
	}
	allMemories, err := t.memories.Load(projectID)
	if err != nil {
		return failure(NameSearchContext, err.Error()), nil
	}

	sel := t.selector.Select(in.Query, projectID, allTasks, allMemories)
	if sel.Len() == 0 {
		return success(NameSearchContext, "no relevant tasks or memories found", ""), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d matches:\n", sel.Len())
	for _, st := range sel.Tasks {
		fmt.Fprintf(&b, "- task [%s] %s (%.2f)\n", st.Task.Status, st.Task.Title, st.Score)
	}
	for _, sm := range sel.Memories {
		fmt.Fprintf(&b, "- memory [%s/%s] %s (%.2f)\n", sm.Memory.Type, sm.Memory.Category, sm.Memory.Title, sm.Score)
	}
	return success(NameSearchContext, strings.TrimRight(b.String(), "\n"), ""), nil
}
