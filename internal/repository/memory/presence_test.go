package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
)

func TestPresenceStore_StatusAndDisconnect(t *testing.T) {
	s := NewPresenceStore()
	ctx := context.Background()
	user := uuid.New().String()
	conn := uuid.New().String()

	e, err := s.SetStatus(ctx, user, domain.StatusOnline, conn)
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if !e.Reachable() {
		t.Fatal("online user with connection should be reachable")
	}

	got, _, err := s.Disconnect(ctx, conn)
	if err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if got == nil || got.UserID != user {
		t.Fatalf("disconnect resolved wrong user: %+v", got)
	}
	if got.Status != domain.StatusOffline || got.ConnectionID != "" {
		t.Fatalf("disconnect should mark offline, got %+v", got)
	}

	// Unknown connections are a no-op.
	if _, ok, _ := s.Disconnect(ctx, uuid.New().String()); ok {
		t.Fatal("unknown connection should not resolve")
	}
}

func TestPresenceStore_InvalidStatusRejected(t *testing.T) {
	s := NewPresenceStore()
	if _, err := s.SetStatus(context.Background(), uuid.New().String(), "lurking", ""); err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestPresenceStore_UnknownUserReportsOffline(t *testing.T) {
	s := NewPresenceStore()
	e, err := s.Get(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if e.Status != domain.StatusOffline {
		t.Fatalf("unknown user should be offline, got %s", e.Status)
	}
}

func TestPresenceStore_TypingExpiry(t *testing.T) {
	s := NewPresenceStore()
	ctx := context.Background()
	user := uuid.New().String()
	conv := uuid.New().String()

	if _, err := s.SetTyping(ctx, user, conv); err != nil {
		t.Fatalf("set typing failed: %v", err)
	}

	// Fresh indicator survives the sweep.
	expired, err := s.ExpireTyping(ctx, time.Minute)
	if err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("fresh typing indicator should not expire, got %d", len(expired))
	}

	// A zero max age expires everything with a set target.
	time.Sleep(5 * time.Millisecond)
	expired, err = s.ExpireTyping(ctx, 0)
	if err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if len(expired) != 1 || expired[0].UserID != user || expired[0].ConversationID != conv {
		t.Fatalf("unexpected expiry result: %+v", expired)
	}

	e, _ := s.Get(ctx, user)
	if e.IsTyping() {
		t.Fatal("typing target should be cleared after expiry")
	}
}

func TestPresenceStore_OfflineClearsTyping(t *testing.T) {
	s := NewPresenceStore()
	ctx := context.Background()
	user := uuid.New().String()

	_, _ = s.SetTyping(ctx, user, uuid.New().String())
	e, err := s.SetStatus(ctx, user, domain.StatusOffline, "")
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if e.IsTyping() {
		t.Fatal("going offline should clear typing state")
	}
}

func TestPresenceStore_InvisibleAppearsOffline(t *testing.T) {
	s := NewPresenceStore()
	ctx := context.Background()
	user := uuid.New().String()

	_, _ = s.SetStatus(ctx, user, domain.StatusInvisible, uuid.New().String())
	e, _ := s.Get(ctx, user)
	if e.VisibleStatus() != domain.StatusOffline {
		t.Fatalf("invisible should be shown as offline, got %s", e.VisibleStatus())
	}
	if !e.Reachable() {
		t.Fatal("invisible user remains reachable for delivery")
	}
}
