package model

// SessionState is the per-admin conversation state between messages.
type SessionState struct {
	BatchOpen      bool     `json:"batch_open"`
	Batch          []string `json:"batch,omitempty"`
	AwaitingRename bool     `json:"awaiting_rename"`
	PendingName    string   `json:"pending_name,omitempty"`
}

func (s *SessionState) IsZero() bool {
	return s == nil || (!s.BatchOpen && len(s.Batch) == 0 && !s.AwaitingRename && s.PendingName == "")
}
