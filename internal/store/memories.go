package store

import (
	"strings"

	"github.com/arlohq/arlo/internal/models"
)

const (
	memoriesFile = "memories"
	sectionsFile = "memory_sections"
)

// MemoryStore persists the per-project memory collection plus the section
// side-table for consolidated knowledge-base memories.
type MemoryStore struct {
	data *DataDir
}

func NewMemoryStore(data *DataDir) *MemoryStore {
	return &MemoryStore{data: data}
}

// Load returns every memory for a project.
func (s *MemoryStore) Load(projectID string) ([]*models.Memory, error) {
	var mems []*models.Memory
	if err := s.data.Load(projectID, memoriesFile, &mems); err != nil {
		return nil, err
	}
	return mems, nil
}

// Save overwrites the project's memory collection.
func (s *MemoryStore) Save(projectID string, mems []*models.Memory) error {
	return s.data.Save(projectID, memoriesFile, mems)
}

// GetByID returns a memory by ID, or nil if it does not exist.
func (s *MemoryStore) GetByID(projectID, id string) (*models.Memory, error) {
	mems, err := s.Load(projectID)
	if err != nil {
		return nil, err
	}
	for _, m := range mems {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, nil
}

// LoadByCategory returns memories tagged with the category (case-insensitive).
func (s *MemoryStore) LoadByCategory(projectID, category string) ([]*models.Memory, error) {
	mems, err := s.Load(projectID)
	if err != nil {
		return nil, err
	}
	var out []*models.Memory
	for _, m := range mems {
		if strings.EqualFold(m.Category, category) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Upsert replaces the memory with the same ID, or appends it.
func (s *MemoryStore) Upsert(projectID string, mem *models.Memory) error {
	mems, err := s.Load(projectID)
	if err != nil {
		return err
	}
	replaced := false
	for i, m := range mems {
		if m.ID == mem.ID {
			mems[i] = mem
			replaced = true
			break
		}
	}
	if !replaced {
		mems = append(mems, mem)
	}
	return s.Save(projectID, mems)
}

// Delete removes a memory by ID. Returns whether anything was removed.
func (s *MemoryStore) Delete(projectID, id string) (bool, error) {
	mems, err := s.Load(projectID)
	if err != nil {
		return false, err
	}
	kept := mems[:0]
	removed := false
	for _, m := range mems {
		if m.ID == id {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	if !removed {
		return false, nil
	}
	return true, s.Save(projectID, kept)
}

// Categories returns the distinct category names present in the project.
func (s *MemoryStore) Categories(projectID string) ([]string, error) {
	mems, err := s.Load(projectID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, m := range mems {
		c := strings.ToLower(m.Category)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// LoadSections returns the section side-table for a consolidated memory,
// in stored order.
func (s *MemoryStore) LoadSections(projectID, memoryID string) ([]models.MemorySection, error) {
	table, err := s.loadSectionTable(projectID)
	if err != nil {
		return nil, err
	}
	return table[memoryID], nil
}

// SaveSections overwrites the section list for one consolidated memory.
func (s *MemoryStore) SaveSections(projectID, memoryID string, sections []models.MemorySection) error {
	table, err := s.loadSectionTable(projectID)
	if err != nil {
		return err
	}
	if table == nil {
		table = make(map[string][]models.MemorySection)
	}
	table[memoryID] = sections
	return s.data.Save(projectID, sectionsFile, table)
}

func (s *MemoryStore) loadSectionTable(projectID string) (map[string][]models.MemorySection, error) {
	var table map[string][]models.MemorySection
	if err := s.data.Load(projectID, sectionsFile, &table); err != nil {
		return nil, err
	}
	return table, nil
}
