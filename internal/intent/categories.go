package intent

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var categoriesYAML []byte

// FallbackCategory receives everything that fails category validation.
const FallbackCategory = "general"

type categoryTable struct {
	Categories []categoryEntry `yaml:"categories"`
}

type categoryEntry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CategoryMatcher maps free text to memory categories using one shared
// category→keyword table. Dynamically created categories are registered at
// runtime on top of the built-in set. One matcher instance is shared by the
// handlers, the extractor and the consolidation engine, so reads and
// registrations are serialized behind a lock.
type CategoryMatcher struct {
	mu       sync.RWMutex
	order    []string
	keywords map[string][]string
	dynamic  map[string]bool
}

// NewCategoryMatcher loads the embedded keyword table.
func NewCategoryMatcher() (*CategoryMatcher, error) {
	var table categoryTable
	if err := yaml.Unmarshal(categoriesYAML, &table); err != nil {
		return nil, fmt.Errorf("decode category table: %w", err)
	}
	m := &CategoryMatcher{
		keywords: make(map[string][]string, len(table.Categories)),
		dynamic:  make(map[string]bool),
	}
	for _, c := range table.Categories {
		name := strings.ToLower(c.Name)
		m.order = append(m.order, name)
		m.keywords[name] = c.Keywords
	}
	return m, nil
}

// Known returns every category name, built-in and dynamic, in stable order.
func (m *CategoryMatcher) Known() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// IsKnown reports whether name is an existing category (case-insensitive).
func (m *CategoryMatcher) IsKnown(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.keywords[strings.ToLower(name)]
	return ok
}

// Register adds a dynamically created category so later turns can match it.
func (m *CategoryMatcher) Register(name string) {
	name = strings.ToLower(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keywords[name]; ok {
		return
	}
	m.order = append(m.order, name)
	m.keywords[name] = nil
	m.dynamic[name] = true
}

// Match returns the category whose keywords overlap text the most, with the
// number of keyword hits. Zero hits means FallbackCategory.
func (m *CategoryMatcher) Match(text string) (string, int) {
	lower := strings.ToLower(text)
	m.mu.RLock()
	defer m.mu.RUnlock()
	best := FallbackCategory
	bestHits := 0
	for _, name := range m.order {
		hits := 0
		for _, kw := range m.keywords[name] {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = name
			bestHits = hits
		}
	}
	return best, bestHits
}

// ValidateNewCategory checks a proposed category name: at most 30 characters,
// lowercase, no spaces, and no case-insensitive collision with an existing
// category. Invalid names fall back to FallbackCategory.
func (m *CategoryMatcher) ValidateNewCategory(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 30 {
		return FallbackCategory, false
	}
	if name != strings.ToLower(name) || strings.Contains(name, " ") {
		return FallbackCategory, false
	}
	m.mu.RLock()
	_, exists := m.keywords[name]
	m.mu.RUnlock()
	if exists {
		return FallbackCategory, false
	}
	return name, true
}
