package intent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/arlohq/arlo/internal/models"
)

// scriptedLLM returns canned responses in order and counts calls.
type scriptedLLM struct {
	responses []string
	err       error
	calls     int
}

func (s *scriptedLLM) ChatWithSystemPrompt(ctx context.Context, userText, systemPrompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return "", fmt.Errorf("no scripted response left")
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassifyExactIntentName(t *testing.T) {
	c := NewClassifier(&scriptedLLM{responses: []string{"feature_exploration"}}, testLogger())

	got := c.Classify(context.Background(), "what could a dashboard look like?", "")
	if got.Intent != models.IntentFeatureExploration {
		t.Errorf("intent = %q, want feature_exploration", got.Intent)
	}
	if got.Confidence != ConfidenceExact {
		t.Errorf("confidence = %f, want %f", got.Confidence, ConfidenceExact)
	}
}

func TestClassifySynonymMapping(t *testing.T) {
	c := NewClassifier(&scriptedLLM{responses: []string{"this looks like a clarification request"}}, testLogger())

	got := c.Classify(context.Background(), "so which port does it use?", "")
	if got.Intent != models.IntentSpecClarification {
		t.Errorf("intent = %q, want spec_clarification", got.Intent)
	}
	if got.Confidence != ConfidenceSynonym {
		t.Errorf("confidence = %f, want %f", got.Confidence, ConfidenceSynonym)
	}
}

func TestClassifySynonymOrderIsDeterministic(t *testing.T) {
	// The answer hits both "question" and "action"; the table is ordered, so
	// the earlier phrase wins on every run.
	for i := 0; i < 10; i++ {
		c := NewClassifier(&scriptedLLM{responses: []string{"a question about what action to take"}}, testLogger())
		got := c.Classify(context.Background(), "so which port does it use?", "")
		if got.Intent != models.IntentSpecClarification {
			t.Fatalf("run %d: intent = %q, want spec_clarification", i, got.Intent)
		}
	}
}

func TestClassifyLLMFailureFallsBackToKeywords(t *testing.T) {
	c := NewClassifier(&scriptedLLM{err: fmt.Errorf("connection refused")}, testLogger())

	got := c.Classify(context.Background(), "mark the login task as done", "")
	if got.Intent != models.IntentDirectAction {
		t.Errorf("intent = %q, want direct_action from keyword path", got.Intent)
	}
	if got.Confidence != ConfidenceFallback {
		t.Errorf("confidence = %f, want %f", got.Confidence, ConfidenceFallback)
	}

	got = c.Classify(context.Background(), "thinking about architecture", "")
	if got.Intent != models.IntentPureDiscussion {
		t.Errorf("intent = %q, want pure_discussion hard fallback", got.Intent)
	}
}

func TestClassifyErrorMarkerTriggersKeywordPath(t *testing.T) {
	c := NewClassifier(&scriptedLLM{responses: []string{"I cannot classify this message"}}, testLogger())

	got := c.Classify(context.Background(), "delete the old migration task", "")
	if got.Intent != models.IntentDirectAction {
		t.Errorf("intent = %q, want direct_action", got.Intent)
	}
	if got.Source != "keyword" {
		t.Errorf("source = %q, want keyword", got.Source)
	}
}

func TestClassifyDirectActionOverride(t *testing.T) {
	// The LLM says discussion, but the message carries an imperative keyword.
	c := NewClassifier(&scriptedLLM{responses: []string{"pure_discussion"}}, testLogger())

	got := c.Classify(context.Background(), "please mark task 3 complete", "")
	if got.Intent != models.IntentDirectAction {
		t.Errorf("intent = %q, want direct_action override", got.Intent)
	}
}

func TestClassifyNeverRaises(t *testing.T) {
	c := NewClassifier(&scriptedLLM{err: fmt.Errorf("boom")}, testLogger())
	got := c.Classify(context.Background(), "hello", "")
	if !got.Intent.IsValid() {
		t.Errorf("invalid intent %q on LLM failure", got.Intent)
	}
}

func TestHasExplicitTrigger(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"Remember this: we deploy on Fridays", true},
		{"ok, save this decision please", true},
		{"don't forget the rate limit is 100rps", true},
		{"what is the rate limit?", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasExplicitTrigger(tt.message); got != tt.want {
			t.Errorf("HasExplicitTrigger(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}
