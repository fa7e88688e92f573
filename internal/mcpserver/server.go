// Package mcpserver exposes the tool registry over the Model Context
// Protocol, so MCP-speaking agents can drive the same closed tool set the
// chat orchestrator uses. No business logic lives here — only adaptation.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every registry tool registered.
func New(registry *tools.Registry) *server.MCPServer {
	s := server.NewMCPServer(
		"arlo",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	s.AddTool(createTaskDef(), handle(registry, tools.NameCreateTask, buildCreateTaskArgs))
	s.AddTool(updateTaskDef(), handle(registry, tools.NameUpdateTask, buildUpdateTaskArgs))
	s.AddTool(changeStatusDef(), handle(registry, tools.NameChangeTaskStatus, buildChangeStatusArgs))
	s.AddTool(createMemoryDef(), handle(registry, tools.NameCreateMemory, buildCreateMemoryArgs))
	s.AddTool(addKnowledgeDef(), handle(registry, tools.NameAddToKnowledgeBase, buildAddKnowledgeArgs))
	s.AddTool(searchContextDef(), handle(registry, tools.NameSearchContext, buildSearchContextArgs))

	return s
}

const serverInstructions = `Arlo is a project assistant backend: tasks, memories, and a per-category knowledge base.

Every tool requires a "project" parameter identifying the project workspace.
Use create_task / update_task / change_task_status for work tracking,
create_memory for standalone project knowledge, add_to_knowledge_base for
facts that belong in a category's living document, and search_context to
find relevant tasks and memories before answering questions.`

// argBuilder turns an MCP request into the registry's JSON argument payload.
type argBuilder func(req mcp.CallToolRequest) (map[string]any, error)

func handle(registry *tools.Registry, name tools.Name, build argBuilder) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project := req.GetString("project", "")
		if project == "" {
			return mcp.NewToolResultError("'project' is required"), nil
		}

		args, err := build(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode arguments: %v", err)), nil
		}

		result, err := registry.Execute(ctx, project, name, raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !result.OK {
			return mcp.NewToolResultError(result.Message), nil
		}

		text := result.Message
		if result.EntityID != "" {
			text += fmt.Sprintf("\nID: %s", result.EntityID)
		}
		return mcp.NewToolResultText(text), nil
	}
}

func createTaskDef() mcp.Tool {
	return mcp.NewTool(string(tools.NameCreateTask),
		mcp.WithDescription("Create a project task. Tasks nest up to 4 levels deep via parent_task_id."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("description", mcp.Description("Longer task description")),
		mcp.WithString("priority", mcp.Description("low, medium, or high (default medium)")),
		mcp.WithString("parent_task_id", mcp.Description("Parent task ID for subtasks")),
	)
}

func buildCreateTaskArgs(req mcp.CallToolRequest) (map[string]any, error) {
	title := req.GetString("title", "")
	if title == "" {
		return nil, fmt.Errorf("'title' is required")
	}
	return map[string]any{
		"title":        title,
		"description":  req.GetString("description", ""),
		"priority":     req.GetString("priority", ""),
		"parentTaskId": req.GetString("parent_task_id", ""),
	}, nil
}

func updateTaskDef() mcp.Tool {
	return mcp.NewTool(string(tools.NameUpdateTask),
		mcp.WithDescription("Update a task's title, description, priority, or completed flag."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task to update")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("priority", mcp.Description("New priority: low, medium, or high")),
		mcp.WithBoolean("completed", mcp.Description("Mark the task complete or incomplete")),
	)
}

func buildUpdateTaskArgs(req mcp.CallToolRequest) (map[string]any, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return nil, fmt.Errorf("'task_id' is required")
	}
	args := map[string]any{"taskId": taskID}
	// Only fields present in the request are forwarded; the tool treats
	// missing fields as "leave unchanged".
	raw := req.GetArguments()
	for mcpKey, jsonKey := range map[string]string{
		"title":       "title",
		"description": "description",
		"priority":    "priority",
		"completed":   "completed",
	} {
		if v, ok := raw[mcpKey]; ok {
			args[jsonKey] = v
		}
	}
	return args, nil
}

func changeStatusDef() mcp.Tool {
	return mcp.NewTool(string(tools.NameChangeTaskStatus),
		mcp.WithDescription("Change a task's status: pending, in_progress, completed, or blocked."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task to transition")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status")),
	)
}

func buildChangeStatusArgs(req mcp.CallToolRequest) (map[string]any, error) {
	taskID := req.GetString("task_id", "")
	status := req.GetString("status", "")
	if taskID == "" || status == "" {
		return nil, fmt.Errorf("'task_id' and 'status' are required")
	}
	if !models.TaskStatus(status).IsValid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	return map[string]any{"taskId": taskID, "status": status}, nil
}

func createMemoryDef() mcp.Tool {
	return mcp.NewTool(string(tools.NameCreateMemory),
		mcp.WithDescription("Save a project memory: a decision, spec, feature note, or general note. Content in <private> tags is never stored."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("content", mcp.Required(), mcp.Description("The knowledge to save")),
		mcp.WithString("title", mcp.Description("Short title (derived from content when omitted)")),
		mcp.WithString("category", mcp.Description("Memory category (inferred when omitted)")),
		mcp.WithString("type", mcp.Description("feature, decision, spec, or note (default note)")),
	)
}

func buildCreateMemoryArgs(req mcp.CallToolRequest) (map[string]any, error) {
	content := req.GetString("content", "")
	if content == "" {
		return nil, fmt.Errorf("'content' is required")
	}
	return map[string]any{
		"title":    req.GetString("title", ""),
		"content":  content,
		"category": req.GetString("category", ""),
		"type":     req.GetString("type", ""),
	}, nil
}

func addKnowledgeDef() mcp.Tool {
	return mcp.NewTool(string(tools.NameAddToKnowledgeBase),
		mcp.WithDescription("Append a titled entry to a category's consolidated knowledge document. Entries similar to an existing section are merged into it."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Knowledge category")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Section title for the entry")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Entry content")),
	)
}

func buildAddKnowledgeArgs(req mcp.CallToolRequest) (map[string]any, error) {
	category := req.GetString("category", "")
	title := req.GetString("title", "")
	content := req.GetString("content", "")
	if category == "" || title == "" || content == "" {
		return nil, fmt.Errorf("'category', 'title', and 'content' are required")
	}
	return map[string]any{"category": category, "title": title, "content": content}, nil
}

func searchContextDef() mcp.Tool {
	return mcp.NewTool(string(tools.NameSearchContext),
		mcp.WithDescription("Search the project's tasks and memories by relevance to a query."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project identifier")),
		mcp.WithString("query", mcp.Required(), mcp.Description("What to search for")),
	)
}

func buildSearchContextArgs(req mcp.CallToolRequest) (map[string]any, error) {
	query := req.GetString("query", "")
	if query == "" {
		return nil, fmt.Errorf("'query' is required")
	}
	return map[string]any{"query": query}, nil
}
