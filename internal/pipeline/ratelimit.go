package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
)

// Budgets maps event names to allowed events per minute. Events without an
// entry fall back to the default budget.
type Budgets map[string]int

// DefaultBudgets are the per-event budgets applied when none are configured.
func DefaultBudgets() Budgets {
	return Budgets{
		domain.EventSendMessage:      30,
		domain.EventTypingStart:      60,
		domain.EventTypingStop:       60,
		domain.EventJoinConversation: 10,
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a per-(user, event) token bucket and rejects events over
// budget with ErrRateLimited. Exceeding the budget never closes the
// connection. Idle entries are dropped by a periodic cleanup loop.
type RateLimiter struct {
	mu            sync.Mutex
	budgets       Budgets
	defaultBudget int
	entries       map[string]*limiterEntry
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// NewRateLimiter creates the stage. defaultPerMinute applies to events not
// listed in budgets; cleanupInterval controls how often idle limiters are
// reaped.
func NewRateLimiter(budgets Budgets, defaultPerMinute int, cleanupInterval time.Duration) *RateLimiter {
	if defaultPerMinute <= 0 {
		defaultPerMinute = 120
	}
	if budgets == nil {
		budgets = DefaultBudgets()
	}
	r := &RateLimiter{
		budgets:       budgets,
		defaultBudget: defaultPerMinute,
		entries:       make(map[string]*limiterEntry),
		stopCh:        make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go r.cleanupLoop(cleanupInterval)
	}
	return r
}

func (r *RateLimiter) Intercept(ctx context.Context, e *Event) error {
	if !r.allow(e.UserID, e.Name) {
		return domain.ErrRateLimited
	}
	return nil
}

func (r *RateLimiter) allow(userID, event string) bool {
	budget, ok := r.budgets[event]
	if !ok {
		budget = r.defaultBudget
	}

	key := userID + "|" + event

	r.mu.Lock()
	entry, ok := r.entries[key]
	if !ok {
		// Burst equals the budget: a full window's worth may arrive at once,
		// the budget+1-th in the same window is rejected.
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(budget)), budget)}
		r.entries[key] = entry
	}
	entry.lastSeen = time.Now()
	r.mu.Unlock()

	return entry.limiter.Allow()
}

func (r *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-3 * interval)
			r.mu.Lock()
			for key, entry := range r.entries {
				if entry.lastSeen.Before(cutoff) {
					delete(r.entries, key)
				}
			}
			r.mu.Unlock()
		case <-r.stopCh:
			return
		}
	}
}

// Stop terminates the cleanup loop.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}
