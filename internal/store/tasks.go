package store

import (
	"github.com/arlohq/arlo/internal/models"
)

const tasksFile = "tasks"

// TaskStore persists the per-project task collection.
type TaskStore struct {
	data *DataDir
}

func NewTaskStore(data *DataDir) *TaskStore {
	return &TaskStore{data: data}
}

// Load returns every task for a project.
func (s *TaskStore) Load(projectID string) ([]*models.Task, error) {
	var tasks []*models.Task
	if err := s.data.Load(projectID, tasksFile, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Save overwrites the project's task collection.
func (s *TaskStore) Save(projectID string, tasks []*models.Task) error {
	return s.data.Save(projectID, tasksFile, tasks)
}

// GetByID returns a task by ID, or nil if it does not exist.
func (s *TaskStore) GetByID(projectID, id string) (*models.Task, error) {
	tasks, err := s.Load(projectID)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}
