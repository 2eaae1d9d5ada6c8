// Package notify is the offline-fallback collaborator: when a message's
// recipient has no live connection, a templated notification is handed to a
// Dispatcher. Dispatch is best-effort from the caller's perspective; a
// failure must never fail the original send.
package notify

import (
	"context"
	"log"
	"time"
)

// PreviewLength is the maximum rune length of a notification content preview.
const PreviewLength = 100

// Notification is the payload handed to the external dispatcher.
type Notification struct {
	RecipientID    string    `json:"recipient_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name,omitempty"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Preview        string    `json:"preview"`
	Channels       []string  `json:"channels"`
	CreatedAt      time.Time `json:"created_at"`
}

// Dispatcher delivers a notification over whatever external channel is wired
// in (push, e-mail, a broker). Implementations should return errors for
// observability; callers log and swallow them.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// Preview truncates content to PreviewLength runes, appending an ellipsis
// when anything was cut.
func Preview(content string) string {
	r := []rune(content)
	if len(r) <= PreviewLength {
		return content
	}
	return string(r[:PreviewLength]) + "..."
}

// LogDispatcher writes notifications to the process log. Used in development
// and as the fallback when no broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ctx context.Context, n Notification) error {
	log.Printf("offline notification for %s: message %s in conversation %s (%q)",
		n.RecipientID, n.MessageID, n.ConversationID, n.Preview)
	return nil
}
