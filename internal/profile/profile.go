// Package profile is the narrow interface to the profile data source,
// consumed for sender display fields on broadcast payloads.
package profile

import (
	"context"
	"sync"
)

// Profile holds the display fields attached to sender-enriched payloads.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Source resolves display profiles. Lookups are best-effort: a missing
// profile is not an error, enrichment just degrades to the bare user id.
type Source interface {
	Lookup(ctx context.Context, userID string) (Profile, bool)
}

// StaticSource is an in-memory Source, populated at startup or by tests.
type StaticSource struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewStaticSource() *StaticSource {
	return &StaticSource{profiles: make(map[string]Profile)}
}

func (s *StaticSource) Put(p Profile) {
	s.mu.Lock()
	s.profiles[p.UserID] = p
	s.mu.Unlock()
}

func (s *StaticSource) Lookup(ctx context.Context, userID string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	return p, ok
}
