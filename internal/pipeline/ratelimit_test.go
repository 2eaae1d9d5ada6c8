package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
)

func TestRateLimiter_BudgetBoundary(t *testing.T) {
	r := NewRateLimiter(Budgets{domain.EventSendMessage: 5}, 120, 0)
	defer r.Stop()

	e := &Event{Name: domain.EventSendMessage, UserID: "u1"}
	for i := 0; i < 5; i++ {
		if err := r.Intercept(context.Background(), e); err != nil {
			t.Fatalf("event %d within budget rejected: %v", i+1, err)
		}
	}
	if err := r.Intercept(context.Background(), e); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited past budget, got %v", err)
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	r := NewRateLimiter(Budgets{domain.EventSendMessage: 1}, 120, 0)
	defer r.Stop()

	ctx := context.Background()
	if err := r.Intercept(ctx, &Event{Name: domain.EventSendMessage, UserID: "u1"}); err != nil {
		t.Fatalf("first event rejected: %v", err)
	}
	if err := r.Intercept(ctx, &Event{Name: domain.EventSendMessage, UserID: "u1"}); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited for same key, got %v", err)
	}

	// Another user is unaffected.
	if err := r.Intercept(ctx, &Event{Name: domain.EventSendMessage, UserID: "u2"}); err != nil {
		t.Fatalf("other user rejected: %v", err)
	}
	// Another event of the same user draws from its own budget.
	if err := r.Intercept(ctx, &Event{Name: domain.EventTypingStart, UserID: "u1"}); err != nil {
		t.Fatalf("other event rejected: %v", err)
	}
}

func TestRateLimiter_DefaultBudgetApplies(t *testing.T) {
	r := NewRateLimiter(Budgets{}, 2, 0)
	defer r.Stop()

	ctx := context.Background()
	e := &Event{Name: "some_unlisted_event", UserID: "u1"}
	for i := 0; i < 2; i++ {
		if err := r.Intercept(ctx, e); err != nil {
			t.Fatalf("event %d within default budget rejected: %v", i+1, err)
		}
	}
	if err := r.Intercept(ctx, e); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited past default budget, got %v", err)
	}
}
