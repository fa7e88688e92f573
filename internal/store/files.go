package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DataDir is the shared flat-file backend. Each project owns a directory of
// JSON collection files; every save is a whole-collection overwrite written
// atomically (temp file + rename) with a .bak of the previous version.
//
// There is no cross-process locking: concurrent writers to the same project
// race with last-writer-wins semantics. The mutex below only serializes
// writers inside one process.
type DataDir struct {
	root string
	mu   sync.Mutex
}

// NewDataDir creates a flat-file backend rooted at root.
func NewDataDir(root string) (*DataDir, error) {
	if root == "" {
		return nil, fmt.Errorf("data root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data root: %w", err)
	}
	return &DataDir{root: root}, nil
}

func (d *DataDir) path(projectID, name string) string {
	return filepath.Join(d.root, projectID, name+".json")
}

// Load reads a project collection into v. A missing file is not an error:
// v is left untouched so callers start from an empty collection.
func (d *DataDir) Load(projectID, name string, v any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path(projectID, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", projectID, name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s/%s: %w", projectID, name, err)
	}
	return nil
}

// Save overwrites a project collection with v.
func (d *DataDir) Save(projectID, name string, v any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.path(projectID, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", projectID, name, err)
	}

	// Keep the previous version around before replacing it.
	if _, err := os.Stat(path); err == nil {
		prev, err := os.ReadFile(path)
		if err == nil {
			_ = os.WriteFile(path+".bak", prev, 0o644)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s/%s: %w", projectID, name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s/%s: %w", projectID, name, err)
	}
	return nil
}
