package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
	"github.com/EAniwa/legacylancers-sub002/internal/repository"
)

func seedMessage(t *testing.T, s *MessageStore, convID, sender, content string) *domain.Message {
	t.Helper()
	m, err := s.Create(context.Background(), repository.CreateMessageInput{
		ConversationID: convID,
		SenderID:       sender,
		Kind:           domain.MessageKindText,
		Content:        content,
	})
	if err != nil {
		t.Fatalf("seed message failed: %v", err)
	}
	return m
}

func TestMessageStore_CreateValidation(t *testing.T) {
	s := NewMessageStore()
	ctx := context.Background()
	conv := uuid.New().String()

	if _, err := s.Create(ctx, repository.CreateMessageInput{
		ConversationID: conv,
		SenderID:       uuid.New().String(),
		Kind:           "carrier-pigeon",
		Content:        "hi",
	}); !errors.Is(err, domain.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}

	if _, err := s.Create(ctx, repository.CreateMessageInput{
		ConversationID: conv,
		SenderID:       uuid.New().String(),
		Content:        strings.Repeat("a", domain.MaxMessageLength+1),
	}); !errors.Is(err, domain.ErrContentTooLong) {
		t.Fatalf("expected ErrContentTooLong, got %v", err)
	}

	// Kind defaults to text when omitted.
	m, err := s.Create(ctx, repository.CreateMessageInput{
		ConversationID: conv,
		SenderID:       uuid.New().String(),
		Content:        "hello",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if m.Kind != domain.MessageKindText {
		t.Fatalf("expected default kind text, got %s", m.Kind)
	}
}

func TestMessageStore_MarkReadIdempotent(t *testing.T) {
	s := NewMessageStore()
	ctx := context.Background()
	conv := uuid.New().String()
	sender, reader := uuid.New().String(), uuid.New().String()
	m := seedMessage(t, s, conv, sender, "hello")

	first, err := s.MarkRead(ctx, m.ID, reader, conv)
	if err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	second, err := s.MarkRead(ctx, m.ID, reader, conv)
	if err != nil {
		t.Fatalf("second mark read failed: %v", err)
	}
	if !first.ReadBy[reader].Equal(second.ReadBy[reader]) {
		t.Fatal("read timestamp changed on repeated mark read")
	}

	if _, err := s.MarkRead(ctx, m.ID, reader, uuid.New().String()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong conversation, got %v", err)
	}
}

func TestMessageStore_UnreadCount(t *testing.T) {
	s := NewMessageStore()
	ctx := context.Background()
	conv := uuid.New().String()
	sender, recipient := uuid.New().String(), uuid.New().String()

	const k = 5
	var ids []string
	for i := 0; i < k; i++ {
		ids = append(ids, seedMessage(t, s, conv, sender, "msg").ID)
	}

	count, _ := s.UnreadCount(ctx, conv, recipient)
	if count != k {
		t.Fatalf("expected %d unread, got %d", k, count)
	}
	// The sender's own messages never count against the sender.
	count, _ = s.UnreadCount(ctx, conv, sender)
	if count != 0 {
		t.Fatalf("expected 0 unread for sender, got %d", count)
	}

	for _, id := range ids {
		if _, err := s.MarkRead(ctx, id, recipient, conv); err != nil {
			t.Fatalf("mark read failed: %v", err)
		}
	}
	count, _ = s.UnreadCount(ctx, conv, recipient)
	if count != 0 {
		t.Fatalf("expected 0 unread after reading all, got %d", count)
	}
}

func TestMessageStore_DeleteForUser(t *testing.T) {
	s := NewMessageStore()
	ctx := context.Background()
	conv := uuid.New().String()
	sender, peer := uuid.New().String(), uuid.New().String()
	m := seedMessage(t, s, conv, sender, "secret")

	// delete-for-everyone is sender-only.
	if _, err := s.DeleteForUser(ctx, m.ID, peer, conv, true); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// delete-for-me hides it from the requester only.
	if _, err := s.DeleteForUser(ctx, m.ID, peer, conv, false); err != nil {
		t.Fatalf("delete for me failed: %v", err)
	}
	peerView, _ := s.FindByConversation(ctx, conv, peer, repository.MessageQuery{})
	if len(peerView) != 0 {
		t.Fatalf("message should be hidden from peer, got %d", len(peerView))
	}
	senderView, _ := s.FindByConversation(ctx, conv, sender, repository.MessageQuery{})
	if len(senderView) != 1 {
		t.Fatalf("message should still be visible to sender, got %d", len(senderView))
	}

	// delete-for-everyone hides it from both.
	if _, err := s.DeleteForUser(ctx, m.ID, sender, conv, true); err != nil {
		t.Fatalf("delete for everyone failed: %v", err)
	}
	senderView, _ = s.FindByConversation(ctx, conv, sender, repository.MessageQuery{})
	if len(senderView) != 0 {
		t.Fatalf("message should be hidden after delete-for-everyone, got %d", len(senderView))
	}
}

func TestMessageStore_FindByConversationPaging(t *testing.T) {
	s := NewMessageStore()
	ctx := context.Background()
	conv := uuid.New().String()
	sender := uuid.New().String()

	for i := 0; i < 10; i++ {
		seedMessage(t, s, conv, sender, "m")
	}

	page, _ := s.FindByConversation(ctx, conv, sender, repository.MessageQuery{Limit: 4})
	if len(page) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(page))
	}
	for i := 1; i < len(page); i++ {
		if page[i].CreatedAt.Before(page[i-1].CreatedAt) {
			t.Fatal("page is not oldest-first")
		}
	}
}
