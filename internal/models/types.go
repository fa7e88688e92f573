package models

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusBlocked    TaskStatus = "blocked"
)

var ValidTaskStatuses = map[TaskStatus]bool{
	TaskStatusPending:    true,
	TaskStatusInProgress: true,
	TaskStatusCompleted:  true,
	TaskStatusBlocked:    true,
}

func (s TaskStatus) IsValid() bool {
	return ValidTaskStatuses[s]
}

// TaskPriority orders tasks by importance.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// MemoryType classifies what kind of knowledge a memory represents.
type MemoryType string

const (
	MemoryTypeFeature  MemoryType = "feature"
	MemoryTypeDecision MemoryType = "decision"
	MemoryTypeSpec     MemoryType = "spec"
	MemoryTypeNote     MemoryType = "note"
)

var ValidMemoryTypes = map[MemoryType]bool{
	MemoryTypeFeature:  true,
	MemoryTypeDecision: true,
	MemoryTypeSpec:     true,
	MemoryTypeNote:     true,
}

func (t MemoryType) IsValid() bool {
	return ValidMemoryTypes[t]
}

// Intent is the conversational intent of a single user turn.
type Intent string

const (
	IntentPureDiscussion     Intent = "pure_discussion"
	IntentFeatureExploration Intent = "feature_exploration"
	IntentSpecClarification  Intent = "spec_clarification"
	IntentReadyForAction     Intent = "ready_for_action"
	IntentDirectAction       Intent = "direct_action"
)

var ValidIntents = map[Intent]bool{
	IntentPureDiscussion:     true,
	IntentFeatureExploration: true,
	IntentSpecClarification:  true,
	IntentReadyForAction:     true,
	IntentDirectAction:       true,
}

// IntentOrder lists the taxonomy in a stable order for deterministic scans.
var IntentOrder = []Intent{
	IntentPureDiscussion,
	IntentFeatureExploration,
	IntentSpecClarification,
	IntentReadyForAction,
	IntentDirectAction,
}

func (i Intent) IsValid() bool {
	return ValidIntents[i]
}

// InsightType classifies an extracted conversation insight.
type InsightType string

const (
	InsightTypeDecision      InsightType = "decision"
	InsightTypeSpecification InsightType = "specification"
	InsightTypePattern       InsightType = "pattern"
	InsightTypeRequirement   InsightType = "requirement"
)

// ConsolidationStatus is the top-level outcome of a session consolidation run.
type ConsolidationStatus string

const (
	ConsolidationCompleted         ConsolidationStatus = "completed"
	ConsolidationSkippedTooShort   ConsolidationStatus = "skipped_too_short"
	ConsolidationNoRelevantInsight ConsolidationStatus = "no_relevant_insights"
	ConsolidationError             ConsolidationStatus = "error"
)

// IntentAnalysis is the classifier's per-turn verdict. The intent is advisory:
// it is recomputed on every turn rather than carried as FSM state.
type IntentAnalysis struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"` // "llm", "keyword", or "fallback"
}

// ProjectContext is the caller-supplied description of the active project.
type ProjectContext struct {
	Name        string `json:"name"`
	TechStack   string `json:"techStack"`
	Description string `json:"description"`
}

// ToolResult records the outcome of a single tool execution during a turn.
type ToolResult struct {
	Tool     string `json:"tool"`
	OK       bool   `json:"ok"`
	Message  string `json:"message,omitempty"`
	EntityID string `json:"entityId,omitempty"`
}

// TurnResult is returned from processing one chat turn.
type TurnResult struct {
	ResponseText  string         `json:"responseText"`
	ToolResults   []ToolResult   `json:"toolResults,omitempty"`
	Intent        IntentAnalysis `json:"intentAnalysis"`
	MemoryUpdated bool           `json:"memoryUpdated"`
}

// SessionCompletion is returned from completing a session.
type SessionCompletion struct {
	Status               ConsolidationStatus `json:"status"`
	MemoriesCreated      int                 `json:"memoriesCreated"`
	SessionMessagesCount int                 `json:"sessionMessagesCount"`
	InsightsAnalyzed     int                 `json:"insightsAnalyzed"`
}

// TaskContextResult is returned from the focused-task read path.
type TaskContextResult struct {
	HasContext bool  `json:"hasContext"`
	Task       *Task `json:"task,omitempty"`
}
