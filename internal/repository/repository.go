// Package repository defines the persistence capabilities consumed by the
// event handlers. The in-memory adapters under memory/ are the reference
// implementations; a durable store plugs in behind the same interfaces
// without touching business logic.
package repository

import (
	"context"
	"time"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
)

// ConversationFilter selects which of a user's conversations to list.
type ConversationFilter struct {
	// Status is one of domain.ConversationStatus*; empty means active.
	Status string
	Limit  int
	Offset int
}

// ConversationUpdate carries the allow-listed mutable fields. Nil pointers
// leave the field untouched. MessageCountDelta is additive.
type ConversationUpdate struct {
	Title             *string
	Description       *string
	Status            *string
	LastMessageID     *string
	LastMessageAt     *time.Time
	MessageCountDelta int
}

// CreateConversationInput groups Conversations.Create parameters.
type CreateConversationInput struct {
	ParticipantA     string
	ParticipantB     string
	Kind             string
	Title            string
	Description      string
	RelatedBookingID string
}

// Conversations is the conversation directory: conversation records,
// participant membership and the direct-pair uniqueness invariant.
type Conversations interface {
	Create(ctx context.Context, in CreateConversationInput) (*domain.Conversation, error)
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	FindByParticipantPair(ctx context.Context, userA, userB string) (*domain.Conversation, error)
	FindForUser(ctx context.Context, userID string, f ConversationFilter) ([]*domain.Conversation, error)
	Update(ctx context.Context, id string, u ConversationUpdate) (*domain.Conversation, error)
	Archive(ctx context.Context, id, userID string) error
	Unarchive(ctx context.Context, id, userID string) error
	SoftDelete(ctx context.Context, id string) error
	HasAccess(ctx context.Context, id, userID string) (bool, error)
}

// CreateMessageInput groups Messages.Create parameters.
type CreateMessageInput struct {
	ConversationID string
	SenderID       string
	Kind           string
	Content        string
	ReplyToID      string
	Metadata       map[string]interface{}
}

// MessageQuery pages through a conversation's history. Before bounds
// CreatedAt exclusively; zero means now.
type MessageQuery struct {
	Limit  int
	Before time.Time
}

// Messages is the message ledger: ordered retrieval, read-state mutation and
// soft deletion, scoped to a conversation. The ledger never reaches back into
// the conversation directory.
type Messages interface {
	Create(ctx context.Context, in CreateMessageInput) (*domain.Message, error)
	FindByConversation(ctx context.Context, conversationID, viewerID string, q MessageQuery) ([]*domain.Message, error)
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	MarkRead(ctx context.Context, messageID, readerID, conversationID string) (*domain.Message, error)
	DeleteForUser(ctx context.Context, messageID, userID, conversationID string, deleteForEveryone bool) (*domain.Message, error)
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
}

// TypingExpiry reports a typing indicator cleared by the idle-state sweep.
type TypingExpiry struct {
	UserID         string
	ConversationID string
}

// Presence tracks per-user reachability. Mutations are last-write-wins on the
// single entry per user.
type Presence interface {
	SetStatus(ctx context.Context, userID, status, connectionID string) (*domain.PresenceEntry, error)
	SetTyping(ctx context.Context, userID, conversationID string) (*domain.PresenceEntry, error)
	Get(ctx context.Context, userID string) (*domain.PresenceEntry, error)
	BulkGet(ctx context.Context, userIDs []string) ([]*domain.PresenceEntry, error)
	// Disconnect resolves connectionID to its user via the connection index,
	// marks the user offline and returns the entry. ok is false when the
	// connection is unknown or no longer current.
	Disconnect(ctx context.Context, connectionID string) (*domain.PresenceEntry, bool, error)
	// ExpireTyping clears typing targets older than maxAge and returns what
	// was cleared so the caller can notify room members.
	ExpireTyping(ctx context.Context, maxAge time.Duration) ([]TypingExpiry, error)
}
