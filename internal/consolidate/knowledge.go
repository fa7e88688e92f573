package consolidate

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/arlohq/arlo/internal/embedding"
	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/search"
	"github.com/arlohq/arlo/internal/store"
)

// SectionMatchThreshold is the minimum word-overlap similarity for a new
// entry to be appended to an existing section instead of opening a new one.
const SectionMatchThreshold = 0.3

// SectionSeparator joins appended entries inside one section.
const SectionSeparator = "\n\n---\n\n"

// KnowledgeBase maintains one living document per category: a single
// `<category>_consolidated` memory whose content is always re-rendered from
// its named sections. Unlike the Engine, this path never refuses a write —
// entries always land somewhere, in a matched section or a new one.
type KnowledgeBase struct {
	memories *store.MemoryStore
	embedder embedding.Embedder
	logger   *slog.Logger
}

func NewKnowledgeBase(memories *store.MemoryStore, embedder embedding.Embedder, logger *slog.Logger) *KnowledgeBase {
	return &KnowledgeBase{memories: memories, embedder: embedder, logger: logger}
}

// ConsolidatedID is the fixed memory ID for a category's knowledge document.
func ConsolidatedID(category string) string {
	return strings.ToLower(category) + models.ConsolidatedSuffix
}

// AddEntry files a titled entry under a category. A section whose title and
// content overlap the entry at or above SectionMatchThreshold receives an
// append; otherwise a new section opens. The document memory is created
// lazily on first write and its content regenerated from the sections.
func (kb *KnowledgeBase) AddEntry(projectID, category, title, content string) (*models.Memory, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "general"
	}

	doc, err := kb.loadOrCreate(projectID, category)
	if err != nil {
		return nil, err
	}

	sections, err := kb.memories.LoadSections(projectID, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("load knowledge sections: %w", err)
	}

	now := time.Now().Unix()
	if idx := bestSection(sections, title, content); idx >= 0 {
		sections[idx].Content += SectionSeparator + content
		sections[idx].Version++
		sections[idx].UpdatedAt = now
	} else {
		sections = append(sections, models.MemorySection{
			MemoryID:  doc.ID,
			Title:     title,
			Content:   content,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	doc.Content = Render(category, sections)
	doc.UpdatedAt = now
	if kb.embedder != nil {
		if vec := kb.embedder.EmbedOrNil(doc.Content); vec != nil {
			doc.Embedding = vec
		}
	}

	if err := kb.memories.SaveSections(projectID, doc.ID, sections); err != nil {
		return nil, fmt.Errorf("save knowledge sections: %w", err)
	}
	if err := kb.memories.Upsert(projectID, doc); err != nil {
		return nil, fmt.Errorf("save knowledge document: %w", err)
	}
	return doc, nil
}

// Document returns the category's knowledge memory, or nil when the category
// has never been written to.
func (kb *KnowledgeBase) Document(projectID, category string) (*models.Memory, error) {
	return kb.memories.GetByID(projectID, ConsolidatedID(category))
}

func (kb *KnowledgeBase) loadOrCreate(projectID, category string) (*models.Memory, error) {
	id := ConsolidatedID(category)
	doc, err := kb.memories.GetByID(projectID, id)
	if err != nil {
		return nil, fmt.Errorf("load knowledge document: %w", err)
	}
	if doc != nil {
		return doc, nil
	}

	now := time.Now().Unix()
	kb.logger.Info("creating knowledge document", "project", projectID, "category", category)
	return &models.Memory{
		ID:        id,
		ProjectID: projectID,
		Title:     category + " knowledge base",
		Category:  category,
		Type:      models.MemoryTypeNote,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// bestSection returns the index of the section most similar to the entry, or
// -1 when no section clears SectionMatchThreshold.
func bestSection(sections []models.MemorySection, title, content string) int {
	entry := title + " " + content
	best := -1
	bestScore := 0.0
	for i, s := range sections {
		score := search.KeywordSimilarity(entry, s.Title+" "+s.Content)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if bestScore < SectionMatchThreshold {
		return -1
	}
	return best
}

// Render regenerates the document content from its sections in creation
// order. The document text is never edited directly, only re-rendered, so
// the same sections always produce the same content.
func Render(category string, sections []models.MemorySection) string {
	ordered := append([]models.MemorySection(nil), sections...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt < ordered[j].CreatedAt
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", titleCase(category))
	for _, s := range ordered {
		fmt.Fprintf(&b, "\n## %s\n", s.Title)
		fmt.Fprintf(&b, "Added: %s", time.Unix(s.CreatedAt, 0).UTC().Format("2006-01-02"))
		if s.UpdatedAt > s.CreatedAt {
			fmt.Fprintf(&b, " | Updated: %s", time.Unix(s.UpdatedAt, 0).UTC().Format("2006-01-02"))
		}
		b.WriteString("\n\n")
		b.WriteString(s.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
