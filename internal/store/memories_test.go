package store

import (
	"testing"

	"github.com/arlohq/arlo/internal/models"
)

func newMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	data, err := NewDataDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDataDir: %v", err)
	}
	return NewMemoryStore(data)
}

func TestMemoryStoreUpsertAndGet(t *testing.T) {
	s := newMemoryStore(t)

	mem := &models.Memory{ID: "m1", Title: "first", Category: "database"}
	if err := s.Upsert("p1", mem); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.GetByID("p1", "m1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Title != "first" {
		t.Fatalf("GetByID = %+v", got)
	}

	// Upsert with the same ID replaces, never duplicates.
	mem.Title = "updated"
	if err := s.Upsert("p1", mem); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	mems, _ := s.Load("p1")
	if len(mems) != 1 || mems[0].Title != "updated" {
		t.Errorf("after replace: %+v", mems)
	}
}

func TestMemoryStoreGetByIDMissingIsNil(t *testing.T) {
	s := newMemoryStore(t)
	got, err := s.GetByID("p1", "nope")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Errorf("missing memory should be nil, got %+v", got)
	}
}

func TestMemoryStoreLoadByCategory(t *testing.T) {
	s := newMemoryStore(t)
	seed := []*models.Memory{
		{ID: "m1", Category: "database"},
		{ID: "m2", Category: "Security"},
		{ID: "m3", Category: "database"},
	}
	if err := s.Save("p1", seed); err != nil {
		t.Fatalf("Save: %v", err)
	}

	db, err := s.LoadByCategory("p1", "database")
	if err != nil {
		t.Fatalf("LoadByCategory: %v", err)
	}
	if len(db) != 2 {
		t.Errorf("database memories = %d, want 2", len(db))
	}

	// Matching is case-insensitive.
	sec, _ := s.LoadByCategory("p1", "security")
	if len(sec) != 1 || sec[0].ID != "m2" {
		t.Errorf("security memories = %+v", sec)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := newMemoryStore(t)
	if err := s.Save("p1", []*models.Memory{{ID: "m1"}, {ID: "m2"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	removed, err := s.Delete("p1", "m1")
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v), want removal", removed, err)
	}
	mems, _ := s.Load("p1")
	if len(mems) != 1 || mems[0].ID != "m2" {
		t.Errorf("after delete: %+v", mems)
	}

	removed, err = s.Delete("p1", "m1")
	if err != nil || removed {
		t.Errorf("second Delete = (%v, %v), want no-op", removed, err)
	}
}

func TestMemoryStoreCategories(t *testing.T) {
	s := newMemoryStore(t)
	seed := []*models.Memory{
		{ID: "m1", Category: "database"},
		{ID: "m2", Category: "Database"},
		{ID: "m3", Category: "security"},
		{ID: "m4", Category: ""},
	}
	if err := s.Save("p1", seed); err != nil {
		t.Fatalf("Save: %v", err)
	}

	cats, err := s.Categories("p1")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 2 || cats[0] != "database" || cats[1] != "security" {
		t.Errorf("Categories = %v, want [database security]", cats)
	}
}

func TestMemoryStoreSectionsSideTable(t *testing.T) {
	s := newMemoryStore(t)

	// Unwritten section table is simply empty.
	sections, err := s.LoadSections("p1", "security_consolidated")
	if err != nil {
		t.Fatalf("LoadSections: %v", err)
	}
	if len(sections) != 0 {
		t.Fatalf("expected no sections, got %+v", sections)
	}

	in := []models.MemorySection{
		{MemoryID: "security_consolidated", Title: "Tokens", Content: "expire fast", Version: 1},
	}
	if err := s.SaveSections("p1", "security_consolidated", in); err != nil {
		t.Fatalf("SaveSections: %v", err)
	}
	if err := s.SaveSections("p1", "database_consolidated", []models.MemorySection{
		{MemoryID: "database_consolidated", Title: "Engine", Content: "postgres", Version: 1},
	}); err != nil {
		t.Fatalf("SaveSections second doc: %v", err)
	}

	// Each document keeps its own section list.
	got, _ := s.LoadSections("p1", "security_consolidated")
	if len(got) != 1 || got[0].Title != "Tokens" {
		t.Errorf("security sections = %+v", got)
	}
	got, _ = s.LoadSections("p1", "database_consolidated")
	if len(got) != 1 || got[0].Title != "Engine" {
		t.Errorf("database sections = %+v", got)
	}
}
