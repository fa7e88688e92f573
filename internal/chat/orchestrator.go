package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arlohq/arlo/internal/consolidate"
	"github.com/arlohq/arlo/internal/embedding"
	"github.com/arlohq/arlo/internal/insight"
	"github.com/arlohq/arlo/internal/intent"
	"github.com/arlohq/arlo/internal/llm"
	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/search"
	"github.com/arlohq/arlo/internal/store"
	"github.com/arlohq/arlo/internal/tools"
)

const responsePrompt = `You are a project assistant. Use the provided project context to answer the user. Be concrete and concise. If the user asks for work to be tracked, say what you will record.`

const toolPlanPrompt = `The user issued a direct command. Plan the tool calls that carry it out.

Available tools:
%s

Respond with JSON only, an array of calls:
[{"tool": "create_task", "args": {...}}]

Use IDs from the context when referencing existing tasks or memories. An empty array means no tool applies.`

// fallbackResponse is returned when the LLM is unreachable. The turn still
// persists so the transcript stays complete.
const fallbackResponse = "I couldn't reach the language model just now. Your message has been recorded and the context is saved."

type plannedCall struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// Orchestrator runs one chat turn end to end: context selection, intent
// classification, prompt assembly, response generation, tool execution, and
// transcript persistence.
type Orchestrator struct {
	tasks      *store.TaskStore
	memories   *store.MemoryStore
	chat       *store.ChatStore
	sessions   *Sessions
	llm        llm.Client
	classifier *intent.Classifier
	extractor  *insight.Extractor
	engine     *consolidate.Engine
	registry   *tools.Registry
	embedder   embedding.Embedder
	selector   *search.HierarchicalSelector
	ranking    RankingConfig
	logger     *slog.Logger
}

// RankingConfig tunes the embedding-based selection path. Zero values fall
// back to the search package defaults.
type RankingConfig struct {
	TaskSimThreshold   float64
	MemorySimThreshold float64
	MaxTaskResults     int
	MaxMemoryResults   int
}

type OrchestratorDeps struct {
	Tasks      *store.TaskStore
	Memories   *store.MemoryStore
	Chat       *store.ChatStore
	Sessions   *Sessions
	LLM        llm.Client
	Classifier *intent.Classifier
	Extractor  *insight.Extractor
	Engine     *consolidate.Engine
	Registry   *tools.Registry
	Embedder   embedding.Embedder
	Selector   *search.HierarchicalSelector
	Ranking    RankingConfig
	Logger     *slog.Logger
}

func NewOrchestrator(d OrchestratorDeps) *Orchestrator {
	if d.Ranking.TaskSimThreshold <= 0 {
		d.Ranking.TaskSimThreshold = search.DefaultTaskSimThreshold
	}
	if d.Ranking.MemorySimThreshold <= 0 {
		d.Ranking.MemorySimThreshold = search.DefaultMemorySimThreshold
	}
	if d.Ranking.MaxTaskResults <= 0 {
		d.Ranking.MaxTaskResults = search.DefaultMaxTaskResults
	}
	if d.Ranking.MaxMemoryResults <= 0 {
		d.Ranking.MaxMemoryResults = search.DefaultMaxMemoryResults
	}
	return &Orchestrator{
		tasks:      d.Tasks,
		memories:   d.Memories,
		chat:       d.Chat,
		sessions:   d.Sessions,
		llm:        d.LLM,
		classifier: d.Classifier,
		extractor:  d.Extractor,
		engine:     d.Engine,
		registry:   d.Registry,
		embedder:   d.Embedder,
		selector:   d.Selector,
		ranking:    d.Ranking,
		logger:     d.Logger,
	}
}

// ProcessTurn handles one user message within a session.
func (o *Orchestrator) ProcessTurn(ctx context.Context, projectID, sessionID, message string, project models.ProjectContext) (*models.TurnResult, error) {
	if message == "" {
		return nil, fmt.Errorf("message is required")
	}

	session, err := o.sessions.GetOrCreate(projectID, sessionID)
	if err != nil {
		return nil, err
	}

	allTasks, err := o.tasks.Load(projectID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	allMemories, err := o.memories.Load(projectID)
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}
	history, err := o.chat.LoadBySession(projectID, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load session history: %w", err)
	}

	selection := o.selectContext(message, projectID, history, allTasks, allMemories)

	var focused *models.Task
	if tc, err := o.sessions.TaskContext(projectID, session.ID); err == nil && tc.HasContext {
		focused = tc.Task
	}

	contextBlock := AssembleContext(ContextBundle{
		Project:     project,
		FocusedTask: focused,
		History:     history,
		Tasks:       selection.Tasks,
		Memories:    selection.Memories,
	})

	analysis := o.classifier.Classify(ctx, message, contextBlock)

	result := &models.TurnResult{Intent: analysis}

	// Explicit save triggers bypass the session-end pipeline: the insight is
	// extracted and consolidated immediately.
	if intent.HasExplicitTrigger(message) {
		result.MemoryUpdated = o.saveTriggeredInsight(ctx, projectID, session.ID, message)
	}

	result.ResponseText = o.respond(ctx, contextBlock, message)

	if analysis.Intent == models.IntentDirectAction {
		result.ToolResults = o.runToolPlan(ctx, projectID, contextBlock, message)
		for _, tr := range result.ToolResults {
			if tr.OK && (tr.Tool == string(tools.NameCreateMemory) || tr.Tool == string(tools.NameAddToKnowledgeBase)) {
				result.MemoryUpdated = true
			}
		}
	}

	// The two roles persist as separate records sharing the session, user
	// turn first, so transcript length counts logical turns.
	now := time.Now().Unix()
	userRecord := &models.ChatMessage{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		SessionID: session.ID,
		Message:   message,
		CreatedAt: now,
	}
	if err := o.chat.Append(projectID, userRecord); err != nil {
		return nil, fmt.Errorf("persist user turn: %w", err)
	}
	agentRecord := &models.ChatMessage{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		SessionID: session.ID,
		Response:  result.ResponseText,
		CreatedAt: now,
	}
	if err := o.chat.Append(projectID, agentRecord); err != nil {
		return nil, fmt.Errorf("persist agent turn: %w", err)
	}
	if err := o.sessions.Touch(projectID, session); err != nil {
		o.logger.Warn("session touch failed", "session", session.ID, "error", err)
	}

	return result, nil
}

// selectContext prefers embedding-based ranking over the fresh conversation
// vector, degrading to hierarchical keyword selection when no embedding is
// available.
func (o *Orchestrator) selectContext(message, projectID string, history []*models.ChatMessage, allTasks []*models.Task, allMemories []*models.Memory) search.Selection {
	if o.embedder != nil {
		if vec := o.embedder.EmbedOrNil(search.ConversationText(history, message)); vec != nil {
			return search.Selection{
				Tasks:    search.RankTasks(vec, allTasks, o.ranking.TaskSimThreshold, o.ranking.MaxTaskResults),
				Memories: search.RankMemories(vec, allMemories, o.ranking.MemorySimThreshold, o.ranking.MaxMemoryResults),
			}
		}
	}
	return o.selector.Select(message, projectID, allTasks, allMemories)
}

func (o *Orchestrator) respond(ctx context.Context, contextBlock, message string) string {
	userText := message
	if contextBlock != "" {
		userText = contextBlock + "\n\n## User message\n" + message
	}
	resp, err := o.llm.ChatWithSystemPrompt(ctx, userText, responsePrompt)
	if err != nil {
		o.logger.Warn("response generation failed", "error", err)
		return fallbackResponse
	}
	return resp
}

// saveTriggeredInsight extracts and consolidates a single insight right away.
// Failures are logged and the turn continues; the session-end pass is the
// backstop.
func (o *Orchestrator) saveTriggeredInsight(ctx context.Context, projectID, sessionID, message string) bool {
	ins, err := o.extractor.ExtractFromMessage(ctx, message)
	if err != nil {
		o.logger.Warn("triggered extraction failed", "error", err)
		return false
	}
	if ins == nil {
		return false
	}
	res := o.engine.Consolidate(ctx, projectID, sessionID, &models.SessionAnalysis{
		Insights:              []models.ConversationInsight{*ins},
		SessionRelevanceScore: 1,
	})
	return res.MemoriesCreated+res.MemoriesUpdated > 0
}

// runToolPlan asks the LLM for a tool plan and executes it. An unparsable
// plan means no tools run; the conversational response already went out.
func (o *Orchestrator) runToolPlan(ctx context.Context, projectID, contextBlock, message string) []models.ToolResult {
	var toolList string
	for _, name := range o.registry.Names() {
		toolList += fmt.Sprintf("- %s: %s\n", name, o.registry.Get(name).Description())
	}

	userText := message
	if contextBlock != "" {
		userText = contextBlock + "\n\n## User command\n" + message
	}
	raw, err := o.llm.ChatWithSystemPrompt(ctx, userText, fmt.Sprintf(toolPlanPrompt, toolList))
	if err != nil {
		o.logger.Warn("tool planning failed", "error", err)
		return nil
	}

	var plan []plannedCall
	if err := llm.DecodeJSON(raw, &plan); err != nil {
		o.logger.Warn("tool plan unparsable", "error", err)
		return nil
	}

	var results []models.ToolResult
	for _, call := range plan {
		res, err := o.registry.Execute(ctx, projectID, tools.Name(call.Tool), call.Args)
		if err != nil {
			o.logger.Error("tool execution failed", "tool", call.Tool, "error", err)
			res = models.ToolResult{Tool: call.Tool, OK: false, Message: err.Error()}
		}
		results = append(results, res)
	}
	return results
}
