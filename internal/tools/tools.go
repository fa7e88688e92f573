package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arlohq/arlo/internal/models"
)

// Name identifies a tool in the closed registry. The assistant can only
// invoke tools registered here; there is no dynamic tool discovery.
type Name string

const (
	NameCreateTask         Name = "create_task"
	NameUpdateTask         Name = "update_task"
	NameChangeTaskStatus   Name = "change_task_status"
	NameCreateMemory       Name = "create_memory"
	NameAddToKnowledgeBase Name = "add_to_knowledge_base"
	NameSearchContext      Name = "search_context"
)

// Tool executes one named operation against a project. Arguments arrive as
// raw JSON exactly as produced by the LLM's tool plan or an MCP client.
type Tool interface {
	Name() Name
	Description() string
	Execute(ctx context.Context, projectID string, args json.RawMessage) (models.ToolResult, error)
}

// Registry is the closed set of tools available to a turn.
type Registry struct {
	order []Name
	tools map[Name]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[Name]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name()]; !ok {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the named tool, or nil when unregistered.
func (r *Registry) Get(name Name) Tool {
	return r.tools[name]
}

// Names lists the registered tools in registration order.
func (r *Registry) Names() []Name {
	return append([]Name(nil), r.order...)
}

// Execute dispatches one call. Unknown names produce a failed ToolResult, not
// an error, so a hallucinated tool name never aborts the turn.
func (r *Registry) Execute(ctx context.Context, projectID string, name Name, args json.RawMessage) (models.ToolResult, error) {
	t := r.tools[name]
	if t == nil {
		return models.ToolResult{Tool: string(name), OK: false, Message: fmt.Sprintf("unknown tool %q", name)}, nil
	}
	return t.Execute(ctx, projectID, args)
}

func decodeArgs(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return fmt.Errorf("missing tool arguments")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("decode tool arguments: %w", err)
	}
	return nil
}

func failure(name Name, msg string) models.ToolResult {
	return models.ToolResult{Tool: string(name), OK: false, Message: msg}
}

func success(name Name, msg, entityID string) models.ToolResult {
	return models.ToolResult{Tool: string(name), OK: true, Message: msg, EntityID: entityID}
}
