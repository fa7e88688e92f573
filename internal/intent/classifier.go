package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arlohq/arlo/internal/llm"
	"github.com/arlohq/arlo/internal/models"
)

// Confidence levels per classification path.
const (
	ConfidenceExact    = 0.8 // LLM answer mapped directly to a category
	ConfidenceSynonym  = 0.6 // LLM answer mapped through the synonym table
	ConfidenceFallback = 0.5 // keyword-only or hard fallback
)

const classifyPrompt = `You are an intent classifier for a project assistant.
Classify the user's latest message into exactly one of:

- pure_discussion: open-ended conversation, brainstorming, opinions
- feature_exploration: exploring what a feature could look like
- spec_clarification: pinning down details of something already discussed
- ready_for_action: the user has decided and wants work to start
- direct_action: an explicit command to create, update, complete, or delete something

Answer with the category name only.`

// directActionSynonyms force direct_action when they appear in either the
// user message or an otherwise unmappable LLM answer.
var directActionSynonyms = []string{
	"mark", "delete", "remove", "complete", "finish", "create task",
	"add task", "update task", "change status", "close",
}

// intentSynonyms maps loose LLM phrasings onto the taxonomy. Order matters:
// the first matching phrase wins, so an answer hitting several phrases
// classifies the same way every run.
var intentSynonyms = []struct {
	phrase string
	intent models.Intent
}{
	{"discussion", models.IntentPureDiscussion},
	{"chat", models.IntentPureDiscussion},
	{"explore", models.IntentFeatureExploration},
	{"exploration", models.IntentFeatureExploration},
	{"feature", models.IntentFeatureExploration},
	{"clarify", models.IntentSpecClarification},
	{"clarification", models.IntentSpecClarification},
	{"question", models.IntentSpecClarification},
	{"ready", models.IntentReadyForAction},
	{"action", models.IntentReadyForAction},
	{"implement", models.IntentReadyForAction},
	{"command", models.IntentDirectAction},
	{"execute", models.IntentDirectAction},
}

// errorMarkers in an LLM response mean the call effectively failed and the
// keyword-only path takes over.
var errorMarkers = []string{"[error]", "internal error", "i cannot", "as an ai"}

// Classifier re-derives the conversational intent every turn. The "state" is
// advisory: the LLM re-classifies from scratch with keyword overrides layered
// on top, and classification never raises to the caller.
type Classifier struct {
	llm    llm.Client
	logger *slog.Logger
}

func NewClassifier(client llm.Client, logger *slog.Logger) *Classifier {
	return &Classifier{llm: client, logger: logger}
}

// Classify returns the intent for one user turn given the assembled context.
func (c *Classifier) Classify(ctx context.Context, message, contextBlock string) models.IntentAnalysis {
	userText := message
	if contextBlock != "" {
		userText = fmt.Sprintf("Conversation context:\n%s\n\nLatest user message:\n%s", contextBlock, message)
	}

	raw, err := c.llm.ChatWithSystemPrompt(ctx, userText, classifyPrompt)
	if err != nil {
		c.logger.Warn("intent classification llm call failed", "error", err)
		return c.keywordOnly(message)
	}

	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, marker := range errorMarkers {
		if strings.Contains(lower, marker) {
			return c.keywordOnly(message)
		}
	}

	// Direct category name in the answer wins, checked in taxonomy order so
	// an answer naming two categories resolves the same way every run.
	for _, intent := range models.IntentOrder {
		if strings.Contains(lower, string(intent)) {
			return models.IntentAnalysis{Intent: overrideDirectAction(intent, message), Confidence: ConfidenceExact, Source: "llm"}
		}
	}

	// Loose phrasing mapped through the synonym table, first match wins.
	for _, syn := range intentSynonyms {
		if strings.Contains(lower, syn.phrase) {
			return models.IntentAnalysis{Intent: overrideDirectAction(syn.intent, message), Confidence: ConfidenceSynonym, Source: "llm"}
		}
	}

	return c.keywordOnly(message)
}

// keywordOnly is the no-LLM path: direct-action keywords or pure_discussion.
func (c *Classifier) keywordOnly(message string) models.IntentAnalysis {
	if hasDirectActionKeyword(message) {
		return models.IntentAnalysis{Intent: models.IntentDirectAction, Confidence: ConfidenceFallback, Source: "keyword"}
	}
	return models.IntentAnalysis{Intent: models.IntentPureDiscussion, Confidence: ConfidenceFallback, Source: "fallback"}
}

// overrideDirectAction forces direct_action when the user message itself
// carries an imperative keyword, whatever the LLM said.
func overrideDirectAction(intent models.Intent, message string) models.Intent {
	if intent != models.IntentDirectAction && hasDirectActionKeyword(message) {
		return models.IntentDirectAction
	}
	return intent
}

func hasDirectActionKeyword(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range directActionSynonyms {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
