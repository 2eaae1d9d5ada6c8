// Package memory holds the process-memory repository adapters. Each store is
// a map guarded by a single mutex; check-then-create sequences run entirely
// under the write lock so the invariants hold under concurrent access.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
	"github.com/EAniwa/legacylancers-sub002/internal/repository"
)

type ConversationStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Conversation
	direct map[string]string // canonical pair key -> conversation id
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		byID:   make(map[string]*domain.Conversation),
		direct: make(map[string]string),
	}
}

func (s *ConversationStore) Create(ctx context.Context, in repository.CreateConversationInput) (*domain.Conversation, error) {
	if in.ParticipantA == "" || in.ParticipantB == "" || in.ParticipantA == in.ParticipantB {
		return nil, domain.ErrInvalidParticipants
	}
	if !domain.ValidConversationKind(in.Kind) {
		return nil, domain.ErrInvalidKind
	}

	a, b := domain.CanonicalPair(in.ParticipantA, in.ParticipantB)

	s.mu.Lock()
	defer s.mu.Unlock()

	// The uniqueness check and the insert share the write lock: two racing
	// direct-creation requests cannot both pass the check.
	if in.Kind == domain.ConversationKindDirect {
		if id, ok := s.direct[domain.PairKey(a, b)]; ok {
			if c := s.byID[id]; c != nil && c.Status != domain.ConversationStatusDeleted {
				return nil, domain.ErrConversationExists
			}
		}
	}

	now := time.Now().UTC()
	c := &domain.Conversation{
		ID:               uuid.New().String(),
		ParticipantA:     a,
		ParticipantB:     b,
		Kind:             in.Kind,
		Title:            domain.SanitizeText(in.Title, domain.MaxTitleLength),
		Description:      domain.SanitizeText(in.Description, domain.MaxDescriptionLength),
		RelatedBookingID: in.RelatedBookingID,
		Status:           domain.ConversationStatusActive,
		ArchivedBy:       make(map[string]bool),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.byID[c.ID] = c
	if in.Kind == domain.ConversationKindDirect {
		s.direct[domain.PairKey(a, b)] = c.ID
	}
	return cloneConversation(c), nil
}

func (s *ConversationStore) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneConversation(c), nil
}

func (s *ConversationStore) FindByParticipantPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.direct[domain.PairKey(userA, userB)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := s.byID[id]
	if c == nil || c.Status == domain.ConversationStatusDeleted {
		return nil, domain.ErrNotFound
	}
	return cloneConversation(c), nil
}

func (s *ConversationStore) FindForUser(ctx context.Context, userID string, f repository.ConversationFilter) ([]*domain.Conversation, error) {
	status := f.Status
	if status == "" {
		status = domain.ConversationStatusActive
	}

	s.mu.RLock()
	var out []*domain.Conversation
	for _, c := range s.byID {
		if !c.HasParticipant(userID) {
			continue
		}
		switch status {
		case domain.ConversationStatusActive:
			if c.Status != domain.ConversationStatusActive || c.ArchivedBy[userID] {
				continue
			}
		case domain.ConversationStatusArchived:
			if c.Status == domain.ConversationStatusDeleted || !c.ArchivedBy[userID] {
				continue
			}
		case domain.ConversationStatusDeleted:
			if c.Status != domain.ConversationStatusDeleted {
				continue
			}
		default:
			continue
		}
		out = append(out, cloneConversation(c))
	}
	s.mu.RUnlock()

	// Most recent activity first; conversations with no messages sort last.
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := out[i].LastMessageAt, out[j].LastMessageAt
		switch {
		case li == nil:
			return false
		case lj == nil:
			return true
		default:
			return li.After(*lj)
		}
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *ConversationStore) Update(ctx context.Context, id string, u repository.ConversationUpdate) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok || c.Status == domain.ConversationStatusDeleted {
		return nil, domain.ErrNotFound
	}

	if u.Title != nil {
		c.Title = domain.SanitizeText(*u.Title, domain.MaxTitleLength)
	}
	if u.Description != nil {
		c.Description = domain.SanitizeText(*u.Description, domain.MaxDescriptionLength)
	}
	if u.Status != nil {
		switch *u.Status {
		case domain.ConversationStatusActive, domain.ConversationStatusArchived:
			c.Status = *u.Status
		default:
			return nil, domain.ErrInvalidKind
		}
	}
	if u.LastMessageID != nil {
		c.LastMessageID = *u.LastMessageID
	}
	if u.LastMessageAt != nil {
		at := *u.LastMessageAt
		c.LastMessageAt = &at
	}
	c.MessageCount += u.MessageCountDelta
	c.UpdatedAt = time.Now().UTC()
	return cloneConversation(c), nil
}

func (s *ConversationStore) Archive(ctx context.Context, id, userID string) error {
	return s.setArchiveFlag(id, userID, true)
}

func (s *ConversationStore) Unarchive(ctx context.Context, id, userID string) error {
	return s.setArchiveFlag(id, userID, false)
}

func (s *ConversationStore) setArchiveFlag(id, userID string, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok || c.Status == domain.ConversationStatusDeleted {
		return domain.ErrNotFound
	}
	if !c.HasParticipant(userID) {
		return domain.ErrNotParticipant
	}
	if archived {
		c.ArchivedBy[userID] = true
	} else {
		delete(c.ArchivedBy, userID)
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *ConversationStore) SoftDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status == domain.ConversationStatusDeleted {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	c.Status = domain.ConversationStatusDeleted
	c.DeletedAt = &now
	c.UpdatedAt = now
	return nil
}

func (s *ConversationStore) HasAccess(ctx context.Context, id, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok || c.Status == domain.ConversationStatusDeleted {
		return false, nil
	}
	return c.HasParticipant(userID), nil
}

// cloneConversation copies the record so callers never share the stored maps.
func cloneConversation(c *domain.Conversation) *domain.Conversation {
	out := *c
	out.ArchivedBy = make(map[string]bool, len(c.ArchivedBy))
	for k, v := range c.ArchivedBy {
		out.ArchivedBy[k] = v
	}
	if c.LastMessageAt != nil {
		at := *c.LastMessageAt
		out.LastMessageAt = &at
	}
	if c.DeletedAt != nil {
		at := *c.DeletedAt
		out.DeletedAt = &at
	}
	return &out
}
