package models

// ChatMessage is one half of a conversation exchange. The user turn and the
// agent turn are stored as separate records sharing a session: exactly one of
// Message/Response is non-empty per record.
type ChatMessage struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message,omitempty"`
	Response  string `json:"response,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// Session is one bounded conversation thread for a project. Ending a session
// triggers insight extraction; a fresh session is minted afterwards and the
// old one is superseded, not deleted.
type Session struct {
	ID            string `json:"id"`
	ProjectID     string `json:"projectId"`
	Name          string `json:"name"`
	TaskContextID string `json:"taskContextId,omitempty"`
	LastActivity  int64  `json:"lastActivity"`
	CreatedAt     int64  `json:"createdAt"`
}
