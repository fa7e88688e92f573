package store

import (
	"fmt"

	"github.com/arlohq/arlo/internal/models"
)

const sessionsFile = "sessions"

// ErrNotFound is returned when a looked-up entity does not exist. Callers that
// want silent self-healing (the task-context rule) handle it explicitly.
var ErrNotFound = fmt.Errorf("not found")

// SessionStore persists the per-project session collection.
type SessionStore struct {
	data *DataDir
}

func NewSessionStore(data *DataDir) *SessionStore {
	return &SessionStore{data: data}
}

// Load returns every session for a project.
func (s *SessionStore) Load(projectID string) ([]*models.Session, error) {
	var sessions []*models.Session
	if err := s.data.Load(projectID, sessionsFile, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetByID returns a session or ErrNotFound.
func (s *SessionStore) GetByID(projectID, id string) (*models.Session, error) {
	sessions, err := s.Load(projectID)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if sess.ID == id {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
}

// Put upserts a session.
func (s *SessionStore) Put(projectID string, sess *models.Session) error {
	sessions, err := s.Load(projectID)
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range sessions {
		if existing.ID == sess.ID {
			sessions[i] = sess
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, sess)
	}
	return s.data.Save(projectID, sessionsFile, sessions)
}
