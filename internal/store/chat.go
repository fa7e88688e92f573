package store

import (
	"github.com/arlohq/arlo/internal/models"
)

const chatFile = "chat_messages"

// ChatStore persists chat messages. Messages are appended in strict arrival
// order; later context assembly depends on the full prior transcript, so
// reordering would corrupt downstream prompts.
type ChatStore struct {
	data *DataDir
}

func NewChatStore(data *DataDir) *ChatStore {
	return &ChatStore{data: data}
}

// Load returns every chat message for a project, in stored order.
func (s *ChatStore) Load(projectID string) ([]*models.ChatMessage, error) {
	var msgs []*models.ChatMessage
	if err := s.data.Load(projectID, chatFile, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// LoadBySession returns a session's messages, oldest first.
func (s *ChatStore) LoadBySession(projectID, sessionID string) ([]*models.ChatMessage, error) {
	msgs, err := s.Load(projectID)
	if err != nil {
		return nil, err
	}
	var out []*models.ChatMessage
	for _, m := range msgs {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

// Append adds one message to the end of the project's transcript.
func (s *ChatStore) Append(projectID string, msg *models.ChatMessage) error {
	msgs, err := s.Load(projectID)
	if err != nil {
		return err
	}
	msgs = append(msgs, msg)
	return s.data.Save(projectID, chatFile, msgs)
}
