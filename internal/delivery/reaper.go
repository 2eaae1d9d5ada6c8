package delivery

import (
	"context"
	"log"
	"time"

	"github.com/EAniwa/legacylancers-sub002/internal/repository"
)

// Reaper periodically clears typing indicators whose owner went quiet
// without sending typing_stop, and tells the affected rooms so peers don't
// keep showing a stale "is typing" hint. Best-effort: every failure is
// logged and swallowed.
type Reaper struct {
	presence repository.Presence
	router   *DeliveryRouter
	timeout  time.Duration
	interval time.Duration
}

func NewReaper(presence repository.Presence, router *DeliveryRouter, timeout, interval time.Duration) *Reaper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reaper{presence: presence, router: router, timeout: timeout, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (r *Reaper) Run(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Typing reaper recovered from panic: %v", rec)
		}
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Typing reaper stopping...")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep expires stale typing targets and broadcasts the stop to each room.
func (r *Reaper) Sweep(ctx context.Context) {
	expired, err := r.presence.ExpireTyping(ctx, r.timeout)
	if err != nil {
		log.Printf("Typing sweep failed: %v", err)
		return
	}
	for _, ex := range expired {
		r.router.TypingChanged(ex.ConversationID, ex.UserID, false, "")
	}
	if len(expired) > 0 {
		log.Printf("Typing sweep cleared %d stale indicators", len(expired))
	}
}
