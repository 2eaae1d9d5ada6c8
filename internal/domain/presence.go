package domain

import "time"

const (
	StatusOnline    = "online"
	StatusAway      = "away"
	StatusBusy      = "busy"
	StatusInvisible = "invisible"
	StatusOffline   = "offline"
)

// PresenceEntry is the single source of truth for a user's reachability,
// independent of any one connection. Entries are created lazily and never
// deleted; offline with an old LastSeen is a valid steady state.
type PresenceEntry struct {
	UserID          string     `json:"user_id"`
	ConnectionID    string     `json:"connection_id,omitempty"`
	Status          string     `json:"status"`
	LastSeen        time.Time  `json:"last_seen"`
	TypingIn        string     `json:"typing_in,omitempty"`
	TypingStartedAt *time.Time `json:"typing_started_at,omitempty"`
}

func ValidPresenceStatus(status string) bool {
	switch status {
	case StatusOnline, StatusAway, StatusBusy, StatusInvisible, StatusOffline:
		return true
	}
	return false
}

// Reachable reports whether the user can receive real-time delivery.
func (p *PresenceEntry) Reachable() bool {
	return p.ConnectionID != "" && p.Status != StatusOffline
}

// VisibleStatus is the status peers are shown: invisible users appear offline.
func (p *PresenceEntry) VisibleStatus() string {
	if p.Status == StatusInvisible {
		return StatusOffline
	}
	return p.Status
}

// IsTyping reports whether the user currently has a typing target.
func (p *PresenceEntry) IsTyping() bool {
	return p.TypingIn != ""
}
