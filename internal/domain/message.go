package domain

import "time"

const (
	MessageKindText  = "text"
	MessageKindFile  = "file"
	MessageKindImage = "image"

	MaxMessageLength = 5000
)

// Message belongs to exactly one conversation. Read and deletion state are
// soft per-recipient markers; a message is never physically removed so that
// read/delete state survives reconnection.
type Message struct {
	ID             string                 `json:"id"`
	ConversationID string                 `json:"conversation_id"`
	SenderID       string                 `json:"sender_id"`
	Kind           string                 `json:"message_type"`
	Content        string                 `json:"content"`
	ReplyToID      string                 `json:"reply_to_message_id,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	ReadBy         map[string]time.Time   `json:"read_by,omitempty"`
	DeletedFor     map[string]time.Time   `json:"-"`
	DeletedForAll  bool                   `json:"deleted_for_everyone,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func ValidMessageKind(kind string) bool {
	switch kind {
	case MessageKindText, MessageKindFile, MessageKindImage:
		return true
	}
	return false
}

// ReadByUser reports whether readerID has a read marker on the message.
func (m *Message) ReadByUser(readerID string) bool {
	_, ok := m.ReadBy[readerID]
	return ok
}

// VisibleTo reports whether the message should appear in userID's view.
func (m *Message) VisibleTo(userID string) bool {
	if m.DeletedForAll {
		return false
	}
	_, deleted := m.DeletedFor[userID]
	return !deleted
}
