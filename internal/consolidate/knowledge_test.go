package consolidate

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/arlohq/arlo/internal/models"
	"github.com/arlohq/arlo/internal/store"
)

func newKnowledgeBase(t *testing.T) (*KnowledgeBase, *store.MemoryStore) {
	t.Helper()
	data, err := store.NewDataDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDataDir: %v", err)
	}
	memories := store.NewMemoryStore(data)
	kb := NewKnowledgeBase(memories, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return kb, memories
}

func TestConsolidatedID(t *testing.T) {
	if got := ConsolidatedID("Security"); got != "security_consolidated" {
		t.Errorf("ConsolidatedID(Security) = %q", got)
	}
}

func TestAddEntryCreatesDocumentLazily(t *testing.T) {
	kb, memories := newKnowledgeBase(t)

	doc, err := kb.AddEntry("p1", "security", "Token lifetime", "tokens expire after 15 minutes")
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if doc.ID != "security_consolidated" {
		t.Errorf("doc id = %q", doc.ID)
	}
	if doc.Type != models.MemoryTypeNote {
		t.Errorf("doc type = %q, want note", doc.Type)
	}
	if !strings.Contains(doc.Content, "# Security") {
		t.Errorf("rendered content missing heading:\n%s", doc.Content)
	}
	if !strings.Contains(doc.Content, "## Token lifetime") {
		t.Errorf("rendered content missing section:\n%s", doc.Content)
	}

	// The document is persisted, not just returned.
	stored, err := memories.GetByID("p1", "security_consolidated")
	if err != nil || stored == nil {
		t.Fatalf("stored doc: %v, err %v", stored, err)
	}

	sections, err := memories.LoadSections("p1", doc.ID)
	if err != nil {
		t.Fatalf("LoadSections: %v", err)
	}
	if len(sections) != 1 || sections[0].Version != 1 {
		t.Fatalf("sections = %+v, want one v1 section", sections)
	}
}

func TestAddEntryAppendsToMatchingSection(t *testing.T) {
	kb, memories := newKnowledgeBase(t)

	if _, err := kb.AddEntry("p1", "security", "Token lifetime", "access tokens expire after 15 minutes"); err != nil {
		t.Fatalf("first AddEntry: %v", err)
	}
	doc, err := kb.AddEntry("p1", "security", "Token lifetime", "refresh tokens expire after 30 days")
	if err != nil {
		t.Fatalf("second AddEntry: %v", err)
	}

	sections, _ := memories.LoadSections("p1", doc.ID)
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1 (append, not new section)", len(sections))
	}
	if sections[0].Version != 2 {
		t.Errorf("section version = %d, want 2", sections[0].Version)
	}
	if !strings.Contains(sections[0].Content, SectionSeparator) {
		t.Errorf("appended content missing separator:\n%s", sections[0].Content)
	}
	if !strings.Contains(sections[0].Content, "refresh tokens expire after 30 days") {
		t.Errorf("appended content missing new entry:\n%s", sections[0].Content)
	}
}

func TestAddEntryOpensNewSectionBelowThreshold(t *testing.T) {
	kb, memories := newKnowledgeBase(t)

	if _, err := kb.AddEntry("p1", "security", "Token lifetime", "access tokens expire after 15 minutes"); err != nil {
		t.Fatalf("first AddEntry: %v", err)
	}
	doc, err := kb.AddEntry("p1", "security", "Password hashing", "passwords hashed with bcrypt cost 12")
	if err != nil {
		t.Fatalf("second AddEntry: %v", err)
	}

	sections, _ := memories.LoadSections("p1", doc.ID)
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(sections))
	}
	if !strings.Contains(doc.Content, "## Token lifetime") || !strings.Contains(doc.Content, "## Password hashing") {
		t.Errorf("rendered content missing a section:\n%s", doc.Content)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()
	sections := []models.MemorySection{
		{Title: "Second", Content: "later fact", CreatedAt: base + 3600, UpdatedAt: base + 3600},
		{Title: "First", Content: "earlier fact", CreatedAt: base, UpdatedAt: base + 7200},
	}

	got := Render("security", sections)
	if got != Render("security", sections) {
		t.Error("Render is not stable across calls")
	}

	// Sections render in creation order regardless of slice order.
	if strings.Index(got, "## First") > strings.Index(got, "## Second") {
		t.Errorf("sections out of creation order:\n%s", got)
	}
	if !strings.Contains(got, "Added: 2026-03-01 | Updated: 2026-03-01") {
		t.Errorf("updated section missing Updated stamp:\n%s", got)
	}
	if strings.Contains(got, "## Second\nAdded: 2026-03-01 | Updated") {
		t.Errorf("unmodified section should have no Updated stamp:\n%s", got)
	}
}

func TestDocumentMissingCategory(t *testing.T) {
	kb, _ := newKnowledgeBase(t)
	doc, err := kb.Document("p1", "never-written")
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if doc != nil {
		t.Errorf("expected nil document for unwritten category, got %+v", doc)
	}
}
