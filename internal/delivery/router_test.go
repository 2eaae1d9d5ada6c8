package delivery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
	"github.com/EAniwa/legacylancers-sub002/internal/notify"
	"github.com/EAniwa/legacylancers-sub002/internal/profile"
	"github.com/EAniwa/legacylancers-sub002/internal/repository/memory"
)

type capturingDispatcher struct {
	mu            sync.Mutex
	notifications []notify.Notification
	fail          bool
	panics        bool
}

func (d *capturingDispatcher) Dispatch(ctx context.Context, n notify.Notification) error {
	if d.panics {
		panic("dispatcher exploded")
	}
	d.mu.Lock()
	d.notifications = append(d.notifications, n)
	d.mu.Unlock()
	if d.fail {
		return errors.New("dispatch failed")
	}
	return nil
}

func (d *capturingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notifications)
}

func newTestConversation(a, b string) *domain.Conversation {
	pa, pb := domain.CanonicalPair(a, b)
	return &domain.Conversation{
		ID:           uuid.New().String(),
		ParticipantA: pa,
		ParticipantB: pb,
		Kind:         domain.ConversationKindDirect,
		Status:       domain.ConversationStatusActive,
	}
}

func newTestMessage(convID, sender, content string) *domain.Message {
	return &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: convID,
		SenderID:       sender,
		Kind:           domain.MessageKindText,
		Content:        content,
	}
}

func TestRouter_OfflineRecipientGetsExactlyOneFallback(t *testing.T) {
	manager := NewManager()
	presence := memory.NewPresenceStore()
	dispatcher := &capturingDispatcher{}
	router := NewDeliveryRouter(manager, presence, profile.NewStaticSource(), dispatcher)

	a, b := uuid.New().String(), uuid.New().String()
	conv := newTestConversation(a, b)
	long := strings.Repeat("x", 150)

	router.MessageCreated(context.Background(), conv, newTestMessage(conv.ID, a, long))

	if dispatcher.count() != 1 {
		t.Fatalf("expected exactly one fallback notification, got %d", dispatcher.count())
	}
	n := dispatcher.notifications[0]
	if n.RecipientID != b {
		t.Fatalf("notification addressed to %s, want %s", n.RecipientID, b)
	}
	if !strings.HasSuffix(n.Preview, "...") || len([]rune(n.Preview)) != notify.PreviewLength+3 {
		t.Fatalf("preview not truncated correctly: %d runes", len([]rune(n.Preview)))
	}
}

func TestRouter_ReachableRecipientGetsNoFallback(t *testing.T) {
	manager := NewManager()
	presence := memory.NewPresenceStore()
	dispatcher := &capturingDispatcher{}
	router := NewDeliveryRouter(manager, presence, profile.NewStaticSource(), dispatcher)

	a, b := uuid.New().String(), uuid.New().String()
	conv := newTestConversation(a, b)

	sockB := &fakeSocket{}
	connB := manager.Register(b, sockB)
	manager.JoinRoom(connB.ID, conv.ID)
	if _, err := presence.SetStatus(context.Background(), b, domain.StatusOnline, connB.ID); err != nil {
		t.Fatalf("set status failed: %v", err)
	}

	router.MessageCreated(context.Background(), conv, newTestMessage(conv.ID, a, "hello"))

	if dispatcher.count() != 0 {
		t.Fatalf("reachable recipient should get no fallback, got %d", dispatcher.count())
	}
	if n := len(sockB.ofType(domain.EventNewMessage)); n != 1 {
		t.Fatalf("recipient should receive room broadcast, got %d", n)
	}
}

func TestRouter_DispatcherFailureDoesNotPropagate(t *testing.T) {
	manager := NewManager()
	presence := memory.NewPresenceStore()
	router := NewDeliveryRouter(manager, presence, profile.NewStaticSource(), &capturingDispatcher{fail: true})

	a, b := uuid.New().String(), uuid.New().String()
	conv := newTestConversation(a, b)

	// Must not panic or error; a notification failure never fails the send.
	router.MessageCreated(context.Background(), conv, newTestMessage(conv.ID, a, "hello"))
}

func TestRouter_DispatcherPanicIsContained(t *testing.T) {
	manager := NewManager()
	presence := memory.NewPresenceStore()
	router := NewDeliveryRouter(manager, presence, profile.NewStaticSource(), &capturingDispatcher{panics: true})

	a, b := uuid.New().String(), uuid.New().String()
	conv := newTestConversation(a, b)

	router.MessageCreated(context.Background(), conv, newTestMessage(conv.ID, a, "hello"))
}

func TestRouter_SenderEnrichment(t *testing.T) {
	manager := NewManager()
	presence := memory.NewPresenceStore()
	profiles := profile.NewStaticSource()
	dispatcher := &capturingDispatcher{}
	router := NewDeliveryRouter(manager, presence, profiles, dispatcher)

	a, b := uuid.New().String(), uuid.New().String()
	profiles.Put(profile.Profile{UserID: a, DisplayName: "Ada"})
	conv := newTestConversation(a, b)

	router.MessageCreated(context.Background(), conv, newTestMessage(conv.ID, a, "hi"))

	if dispatcher.count() != 1 {
		t.Fatalf("expected one notification, got %d", dispatcher.count())
	}
	if dispatcher.notifications[0].SenderName != "Ada" {
		t.Fatalf("expected enriched sender name, got %q", dispatcher.notifications[0].SenderName)
	}
}

func TestRouter_PresenceChangedHidesInvisible(t *testing.T) {
	manager := NewManager()
	presence := memory.NewPresenceStore()
	router := NewDeliveryRouter(manager, presence, profile.NewStaticSource(), &capturingDispatcher{})

	watcher := &fakeSocket{}
	manager.Register(uuid.New().String(), watcher)

	entry := &domain.PresenceEntry{UserID: uuid.New().String(), Status: domain.StatusInvisible}
	router.PresenceChanged(entry, "")

	events := watcher.ofType(domain.EventUserPresenceUpdate)
	if len(events) != 1 {
		t.Fatalf("expected one presence broadcast, got %d", len(events))
	}
	data := events[0].Data.(map[string]interface{})
	if data["status"] != domain.StatusOffline {
		t.Fatalf("invisible user should be announced offline, got %v", data["status"])
	}
}
