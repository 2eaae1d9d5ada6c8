package pipeline

import (
	"context"
	"hash/fnv"
	"regexp"
	"sync"
	"time"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
)

// DefaultBlockedPatterns are the content patterns rejected out of the box.
var DefaultBlockedPatterns = []string{
	`(?i)\bfree\s+money\b`,
	`(?i)\bclick\s+here\s+to\s+claim\b`,
	`(?i)\bcrypto\s+giveaway\b`,
	`https?://\S+\s+https?://\S+\s+https?://\S+`, // link floods
}

type senderHistory struct {
	contentHash uint64
	count       int
	firstSeen   time.Time
}

// ContentFilter rejects disallowed content patterns and duplicate-burst
// submission. It applies only to content-bearing events; everything else
// passes through untouched. Runs after validation, so the typed payload is
// available.
type ContentFilter struct {
	patterns   []*regexp.Regexp
	window     time.Duration
	maxRepeats int

	mu      sync.Mutex
	history map[string]*senderHistory
}

// NewContentFilter compiles the pattern list. A sender repeating identical
// content more than maxRepeats times inside window is rejected.
func NewContentFilter(patterns []string, window time.Duration, maxRepeats int) (*ContentFilter, error) {
	if window <= 0 {
		window = 10 * time.Second
	}
	if maxRepeats <= 0 {
		maxRepeats = 3
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &ContentFilter{
		patterns:   compiled,
		window:     window,
		maxRepeats: maxRepeats,
		history:    make(map[string]*senderHistory),
	}, nil
}

func (f *ContentFilter) Intercept(ctx context.Context, e *Event) error {
	if e.Name != domain.EventSendMessage {
		return nil
	}
	payload, ok := e.Payload.(*domain.SendMessagePayload)
	if !ok {
		return domain.ErrInvalidPayload
	}

	for _, re := range f.patterns {
		if re.MatchString(payload.Content) {
			return domain.ErrContentRejected
		}
	}
	if f.isBurst(e.UserID, payload.Content) {
		return domain.ErrContentRejected
	}
	return nil
}

func (f *ContentFilter) isBurst(userID, content string) bool {
	h := fnv.New64a()
	h.Write([]byte(content))
	sum := h.Sum64()
	now := time.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.history[userID]
	if !ok || entry.contentHash != sum || now.Sub(entry.firstSeen) > f.window {
		f.history[userID] = &senderHistory{contentHash: sum, count: 1, firstSeen: now}
		return false
	}
	entry.count++
	return entry.count > f.maxRepeats
}
