package memory

import (
	"context"
	"sync"
	"time"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
	"github.com/EAniwa/legacylancers-sub002/internal/repository"
)

// PresenceStore owns the presence map and the connection->user index used to
// resolve cleanup on disconnect. The index is derived state and every mutation
// here keeps it consistent with the entries' ConnectionID field.
type PresenceStore struct {
	mu      sync.RWMutex
	entries map[string]*domain.PresenceEntry
	byConn  map[string]string // connection id -> user id
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{
		entries: make(map[string]*domain.PresenceEntry),
		byConn:  make(map[string]string),
	}
}

func (s *PresenceStore) SetStatus(ctx context.Context, userID, status, connectionID string) (*domain.PresenceEntry, error) {
	if !domain.ValidPresenceStatus(status) {
		return nil, domain.ErrInvalidKind
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(userID)
	if e.ConnectionID != "" && e.ConnectionID != connectionID {
		delete(s.byConn, e.ConnectionID)
	}
	e.Status = status
	e.LastSeen = time.Now().UTC()
	if status == domain.StatusOffline {
		if e.ConnectionID != "" {
			delete(s.byConn, e.ConnectionID)
		}
		e.ConnectionID = ""
		e.TypingIn = ""
		e.TypingStartedAt = nil
	} else if connectionID != "" {
		e.ConnectionID = connectionID
		s.byConn[connectionID] = userID
	}
	return clonePresence(e), nil
}

func (s *PresenceStore) SetTyping(ctx context.Context, userID, conversationID string) (*domain.PresenceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(userID)
	if conversationID == "" {
		e.TypingIn = ""
		e.TypingStartedAt = nil
	} else {
		now := time.Now().UTC()
		e.TypingIn = conversationID
		e.TypingStartedAt = &now
	}
	e.LastSeen = time.Now().UTC()
	return clonePresence(e), nil
}

func (s *PresenceStore) Get(ctx context.Context, userID string) (*domain.PresenceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[userID]
	if !ok {
		// Never-seen users are a valid query target: report them offline.
		return &domain.PresenceEntry{UserID: userID, Status: domain.StatusOffline}, nil
	}
	return clonePresence(e), nil
}

func (s *PresenceStore) BulkGet(ctx context.Context, userIDs []string) ([]*domain.PresenceEntry, error) {
	out := make([]*domain.PresenceEntry, 0, len(userIDs))
	for _, id := range userIDs {
		e, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *PresenceStore) Disconnect(ctx context.Context, connectionID string) (*domain.PresenceEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.byConn[connectionID]
	if !ok {
		return nil, false, nil
	}
	delete(s.byConn, connectionID)

	e := s.entry(userID)
	e.ConnectionID = ""
	e.Status = domain.StatusOffline
	e.LastSeen = time.Now().UTC()
	e.TypingIn = ""
	e.TypingStartedAt = nil
	return clonePresence(e), true, nil
}

func (s *PresenceStore) ExpireTyping(ctx context.Context, maxAge time.Duration) ([]repository.TypingExpiry, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []repository.TypingExpiry
	for _, e := range s.entries {
		if e.TypingIn == "" || e.TypingStartedAt == nil {
			continue
		}
		if e.TypingStartedAt.Before(cutoff) {
			expired = append(expired, repository.TypingExpiry{UserID: e.UserID, ConversationID: e.TypingIn})
			e.TypingIn = ""
			e.TypingStartedAt = nil
		}
	}
	return expired, nil
}

// entry returns the live entry for userID, creating it lazily. Callers hold mu.
func (s *PresenceStore) entry(userID string) *domain.PresenceEntry {
	e, ok := s.entries[userID]
	if !ok {
		e = &domain.PresenceEntry{UserID: userID, Status: domain.StatusOffline}
		s.entries[userID] = e
	}
	return e
}

func clonePresence(e *domain.PresenceEntry) *domain.PresenceEntry {
	out := *e
	if e.TypingStartedAt != nil {
		at := *e.TypingStartedAt
		out.TypingStartedAt = &at
	}
	return &out
}
