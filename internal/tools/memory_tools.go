package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arlohq/arlo/internal/consolidate"
	"github.com/arlohq/arlo/internal/embedding"
	"github.com/arlohq/arlo/internal/intent"
	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/privacy"
	"github.com/arlohq/arlo/internal/store"
)

// CreateMemoryTool saves a standalone project memory. Content inside
// <private> tags is stripped before anything is persisted; entirely private
// content is refused.
type CreateMemoryTool struct {
	memories *store.MemoryStore
	matcher  *intent.CategoryMatcher
	embedder embedding.Embedder
}

func NewCreateMemoryTool(memories *store.MemoryStore, matcher *intent.CategoryMatcher, embedder embedding.Embedder) *CreateMemoryTool {
	return &CreateMemoryTool{memories: memories, matcher: matcher, embedder: embedder}
}

func (t *CreateMemoryTool) Name() Name { return NameCreateMemory }

func (t *CreateMemoryTool) Description() string {
	return "Save a project memory (decision, spec, feature, or note). Category is inferred from the content when omitted."
}

type createMemoryArgs struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Category string            `json:"category"`
	Type     models.MemoryType `json:"type"`
}

func (t *CreateMemoryTool) Execute(ctx context.Context, projectID string, args json.RawMessage) (models.ToolResult, error) {
	var in createMemoryArgs
	if err := decodeArgs(args, &in); err != nil {
		return failure(NameCreateMemory, err.Error()), nil
	}
	if privacy.HasOnlyPrivateContent(in.Content) {
		return failure(NameCreateMemory, "content is entirely private, nothing to save"), nil
	}
	content := privacy.StripPrivateTags(in.Content)
	if content == "" {
		return failure(NameCreateMemory, "content is required"), nil
	}

	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" || !t.matcher.IsKnown(category) {
		category, _ = t.matcher.Match(content)
	}
	memType := in.Type
	if memType == "" {
		memType = models.MemoryTypeNote
	}
	if !memType.IsValid() {
		return failure(NameCreateMemory, fmt.Sprintf("invalid memory type %q", memType)), nil
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		words := strings.Fields(content)
		if len(words) > 6 {
			words = words[:6]
		}
		title = strings.Join(words, " ")
	}

	now := time.Now().Unix()
	mem := &models.Memory{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Title:     title,
		Content:   content,
		Category:  category,
		Type:      memType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if t.embedder != nil {
		mem.Embedding = t.embedder.EmbedOrNil(mem.Title + " " + mem.Content)
	}
	if err := t.memories.Upsert(projectID, mem); err != nil {
		return failure(NameCreateMemory, err.Error()), nil
	}
	return success(NameCreateMemory, fmt.Sprintf("saved memory %q under %s", mem.Title, category), mem.ID), nil
}

// AddToKnowledgeBaseTool files an entry into a category's consolidated
// knowledge document.
type AddToKnowledgeBaseTool struct {
	kb *consolidate.KnowledgeBase
}

func NewAddToKnowledgeBaseTool(kb *consolidate.KnowledgeBase) *AddToKnowledgeBaseTool {
	return &AddToKnowledgeBaseTool{kb: kb}
}

func (t *AddToKnowledgeBaseTool) Name() Name { return NameAddToKnowledgeBase }

func (t *AddToKnowledgeBaseTool) Description() string {
	return "Append a titled entry to a category's knowledge document. Similar sections are merged automatically."
}

type addKnowledgeArgs struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

func (t *AddToKnowledgeBaseTool) Execute(ctx context.Context, projectID string, args json.RawMessage) (models.ToolResult, error) {
	var in addKnowledgeArgs
	if err := decodeArgs(args, &in); err != nil {
		return failure(NameAddToKnowledgeBase, err.Error()), nil
	}
	if in.Title == "" || in.Content == "" {
		return failure(NameAddToKnowledgeBase, "title and content are required"), nil
	}
	if privacy.HasOnlyPrivateContent(in.Content) {
		return failure(NameAddToKnowledgeBase, "content is entirely private, nothing to save"), nil
	}
	doc, err := t.kb.AddEntry(projectID, in.Category, in.Title, privacy.StripPrivateTags(in.Content))
	if err != nil {
		return failure(NameAddToKnowledgeBase, err.Error()), nil
	}
	return success(NameAddToKnowledgeBase, fmt.Sprintf("knowledge base %q updated", doc.Category), doc.ID), nil
}
