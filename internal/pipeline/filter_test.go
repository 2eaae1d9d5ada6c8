package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
)

func sendEvent(userID, content string) *Event {
	return &Event{
		Name:    domain.EventSendMessage,
		UserID:  userID,
		Payload: &domain.SendMessagePayload{ConversationID: uuid.New().String(), Content: content},
	}
}

func TestContentFilter_BlockedPattern(t *testing.T) {
	f, err := NewContentFilter(DefaultBlockedPatterns, time.Second, 3)
	if err != nil {
		t.Fatalf("filter construction failed: %v", err)
	}

	if err := f.Intercept(context.Background(), sendEvent("u1", "hello there")); err != nil {
		t.Fatalf("benign content rejected: %v", err)
	}
	if err := f.Intercept(context.Background(), sendEvent("u1", "FREE   money for you")); !errors.Is(err, domain.ErrContentRejected) {
		t.Fatalf("expected ErrContentRejected, got %v", err)
	}
}

func TestContentFilter_DuplicateBurst(t *testing.T) {
	f, _ := NewContentFilter(nil, time.Minute, 2)
	ctx := context.Background()

	// Two identical submissions pass, the third inside the window does not.
	for i := 0; i < 2; i++ {
		if err := f.Intercept(ctx, sendEvent("u1", "same thing")); err != nil {
			t.Fatalf("submission %d rejected: %v", i+1, err)
		}
	}
	if err := f.Intercept(ctx, sendEvent("u1", "same thing")); !errors.Is(err, domain.ErrContentRejected) {
		t.Fatalf("expected ErrContentRejected on burst, got %v", err)
	}

	// Different content resets the streak.
	if err := f.Intercept(ctx, sendEvent("u1", "something else")); err != nil {
		t.Fatalf("fresh content rejected: %v", err)
	}
	// Another sender is unaffected.
	if err := f.Intercept(ctx, sendEvent("u2", "same thing")); err != nil {
		t.Fatalf("other sender rejected: %v", err)
	}
}

func TestContentFilter_IgnoresNonContentEvents(t *testing.T) {
	f, _ := NewContentFilter(DefaultBlockedPatterns, time.Second, 1)
	e := &Event{Name: domain.EventTypingStart, UserID: "u1", Payload: &domain.TypingPayload{ConversationID: uuid.New().String()}}
	if err := f.Intercept(context.Background(), e); err != nil {
		t.Fatalf("non-content event rejected: %v", err)
	}
}

func TestContentFilter_BadPatternFailsConstruction(t *testing.T) {
	if _, err := NewContentFilter([]string{"("}, time.Second, 1); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
