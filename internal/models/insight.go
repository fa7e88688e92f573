package models

// ConversationInsight is an LLM-extracted candidate fact worth remembering.
// Insights are ephemeral: they exist only between extraction and consolidation.
type ConversationInsight struct {
	Content               string      `json:"content"`
	Category              string      `json:"category"`
	IsNewCategory         bool        `json:"is_new_category"`
	NewCategorySuggestion string      `json:"new_category_suggestion,omitempty"`
	SignificanceScore     float64     `json:"significance_score"`
	InsightType           InsightType `json:"insight_type"`
	RelatedKeywords       []string    `json:"related_keywords,omitempty"`
}

// SessionAnalysis is the output of analyzing one full session transcript.
type SessionAnalysis struct {
	Insights               []ConversationInsight `json:"insights"`
	SessionRelevanceScore  float64               `json:"sessionRelevanceScore"`
	SuggestedNewCategories []string              `json:"suggestedNewCategories,omitempty"`
	TotalFound             int                   `json:"totalFound"`
	TotalProcessed         int                   `json:"totalProcessed"`
}

// CategoryResult summarizes consolidation for a single category.
type CategoryResult struct {
	Category          string `json:"category"`
	MemoriesUpdated   int    `json:"memoriesUpdated"`
	MemoriesCreated   int    `json:"memoriesCreated"`
	InsightsProcessed int    `json:"insightsProcessed"`
	IsNewCategory     bool   `json:"isNewCategory"`
}

// ConsolidationResult aggregates per-category results for one session.
type ConsolidationResult struct {
	Status          ConsolidationStatus `json:"status"`
	Categories      []CategoryResult    `json:"categories"`
	MemoriesCreated int                 `json:"memoriesCreated"`
	MemoriesUpdated int                 `json:"memoriesUpdated"`
}
