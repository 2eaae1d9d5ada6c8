package domain

import (
	"html"
	"strings"
	"time"
)

const (
	ConversationKindDirect  = "direct"
	ConversationKindBooking = "booking"
	ConversationKindGroup   = "group"

	ConversationStatusActive   = "active"
	ConversationStatusArchived = "archived"
	ConversationStatusDeleted  = "deleted"

	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

// Conversation is a two-participant exchange. ParticipantA/ParticipantB are
// stored in canonical order (A < B by string comparison) so that lookup by
// unordered pair resolves to a single key.
type Conversation struct {
	ID               string          `json:"id"`
	ParticipantA     string          `json:"participant_a"`
	ParticipantB     string          `json:"participant_b"`
	Kind             string          `json:"kind"`
	Title            string          `json:"title,omitempty"`
	Description      string          `json:"description,omitempty"`
	RelatedBookingID string          `json:"related_booking_id,omitempty"`
	Status           string          `json:"status"`
	ArchivedBy       map[string]bool `json:"archived_by,omitempty"`
	LastMessageID    string          `json:"last_message_id,omitempty"`
	LastMessageAt    *time.Time      `json:"last_message_at,omitempty"`
	MessageCount     int             `json:"message_count"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
}

// CanonicalPair orders two participant ids deterministically.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// PairKey is the unordered-pair lookup key for direct conversations.
func PairKey(a, b string) string {
	a, b = CanonicalPair(a, b)
	return a + "|" + b
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// OtherParticipant returns the peer of userID, or "" if userID is not a member.
func (c *Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.ParticipantA:
		return c.ParticipantB
	case c.ParticipantB:
		return c.ParticipantA
	}
	return ""
}

// Participants returns both participant ids.
func (c *Conversation) Participants() []string {
	return []string{c.ParticipantA, c.ParticipantB}
}

func ValidConversationKind(kind string) bool {
	switch kind {
	case ConversationKindDirect, ConversationKindBooking, ConversationKindGroup:
		return true
	}
	return false
}

// SanitizeText trims and HTML-escapes free-form text and hard-bounds it to max
// runes. Applied to titles, descriptions and message content before storage.
func SanitizeText(s string, max int) string {
	s = strings.TrimSpace(s)
	s = html.EscapeString(s)
	if r := []rune(s); len(r) > max {
		s = string(r[:max])
	}
	return s
}
