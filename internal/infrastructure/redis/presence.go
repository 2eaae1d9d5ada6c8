package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
	"github.com/EAniwa/legacylancers-sub002/internal/repository"
)

// MirroredPresence decorates a repository.Presence with a write-through
// mirror of each entry into Redis, keyed presence:<user_id>, so other
// services can observe reachability. The inner store stays authoritative;
// mirror failures are logged and swallowed.
type MirroredPresence struct {
	inner  repository.Presence
	client *RedisClient
}

func NewMirroredPresence(inner repository.Presence, client *RedisClient) *MirroredPresence {
	return &MirroredPresence{inner: inner, client: client}
}

func (m *MirroredPresence) SetStatus(ctx context.Context, userID, status, connectionID string) (*domain.PresenceEntry, error) {
	e, err := m.inner.SetStatus(ctx, userID, status, connectionID)
	if err != nil {
		return nil, err
	}
	m.mirror(ctx, e)
	return e, nil
}

func (m *MirroredPresence) SetTyping(ctx context.Context, userID, conversationID string) (*domain.PresenceEntry, error) {
	e, err := m.inner.SetTyping(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	m.mirror(ctx, e)
	return e, nil
}

func (m *MirroredPresence) Get(ctx context.Context, userID string) (*domain.PresenceEntry, error) {
	return m.inner.Get(ctx, userID)
}

func (m *MirroredPresence) BulkGet(ctx context.Context, userIDs []string) ([]*domain.PresenceEntry, error) {
	return m.inner.BulkGet(ctx, userIDs)
}

func (m *MirroredPresence) Disconnect(ctx context.Context, connectionID string) (*domain.PresenceEntry, bool, error) {
	e, ok, err := m.inner.Disconnect(ctx, connectionID)
	if err != nil || !ok {
		return e, ok, err
	}
	m.mirror(ctx, e)
	return e, ok, nil
}

func (m *MirroredPresence) ExpireTyping(ctx context.Context, maxAge time.Duration) ([]repository.TypingExpiry, error) {
	return m.inner.ExpireTyping(ctx, maxAge)
}

func (m *MirroredPresence) mirror(ctx context.Context, e *domain.PresenceEntry) {
	key := fmt.Sprintf("presence:%s", e.UserID)
	fields := map[string]interface{}{
		"status":    e.Status,
		"last_seen": e.LastSeen.Format(time.RFC3339),
		"typing_in": e.TypingIn,
	}
	if err := m.client.client.HSet(ctx, key, fields).Err(); err != nil {
		log.Printf("Failed to mirror presence for user %s to Redis: %v", e.UserID, err)
	}
}
