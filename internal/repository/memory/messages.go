package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
	"github.com/EAniwa/legacylancers-sub002/internal/repository"
)

const defaultPageSize = 50

type MessageStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Message
	byConv map[string][]string // conversation id -> message ids in creation order
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		byID:   make(map[string]*domain.Message),
		byConv: make(map[string][]string),
	}
}

func (s *MessageStore) Create(ctx context.Context, in repository.CreateMessageInput) (*domain.Message, error) {
	kind := in.Kind
	if kind == "" {
		kind = domain.MessageKindText
	}
	if !domain.ValidMessageKind(kind) {
		return nil, domain.ErrInvalidKind
	}
	if len([]rune(in.Content)) > domain.MaxMessageLength {
		return nil, domain.ErrContentTooLong
	}

	now := time.Now().UTC()
	m := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Kind:           kind,
		Content:        domain.SanitizeText(in.Content, domain.MaxMessageLength),
		ReplyToID:      in.ReplyToID,
		Metadata:       in.Metadata,
		ReadBy:         make(map[string]time.Time),
		DeletedFor:     make(map[string]time.Time),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.mu.Lock()
	s.byID[m.ID] = m
	s.byConv[m.ConversationID] = append(s.byConv[m.ConversationID], m.ID)
	s.mu.Unlock()

	return cloneMessage(m), nil
}

// FindByConversation returns up to q.Limit of the newest messages created
// before q.Before, oldest-first for display. Messages hidden from viewerID
// (deleted for them or for everyone) are skipped.
func (s *MessageStore) FindByConversation(ctx context.Context, conversationID, viewerID string, q repository.MessageQuery) ([]*domain.Message, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	before := q.Before
	if before.IsZero() {
		before = time.Now().UTC().Add(time.Second)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byConv[conversationID]
	// Walk newest-to-oldest collecting the page, then reverse to chronological.
	var page []*domain.Message
	for i := len(ids) - 1; i >= 0 && len(page) < limit; i-- {
		m := s.byID[ids[i]]
		if m == nil || !m.CreatedAt.Before(before) {
			continue
		}
		if viewerID != "" && !m.VisibleTo(viewerID) {
			continue
		}
		page = append(page, cloneMessage(m))
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

func (s *MessageStore) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneMessage(m), nil
}

func (s *MessageStore) MarkRead(ctx context.Context, messageID, readerID, conversationID string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[messageID]
	if !ok || m.ConversationID != conversationID {
		return nil, domain.ErrNotFound
	}
	// Idempotent: the first read timestamp wins.
	if _, read := m.ReadBy[readerID]; !read {
		m.ReadBy[readerID] = time.Now().UTC()
		m.UpdatedAt = time.Now().UTC()
	}
	return cloneMessage(m), nil
}

func (s *MessageStore) DeleteForUser(ctx context.Context, messageID, userID, conversationID string, deleteForEveryone bool) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[messageID]
	if !ok || m.ConversationID != conversationID {
		return nil, domain.ErrNotFound
	}
	now := time.Now().UTC()
	if deleteForEveryone {
		if m.SenderID != userID {
			return nil, domain.ErrForbidden
		}
		m.DeletedForAll = true
	} else {
		if _, deleted := m.DeletedFor[userID]; !deleted {
			m.DeletedFor[userID] = now
		}
	}
	m.UpdatedAt = now
	return cloneMessage(m), nil
}

func (s *MessageStore) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.byConv[conversationID] {
		m := s.byID[id]
		if m == nil || m.SenderID == userID || !m.VisibleTo(userID) {
			continue
		}
		if !m.ReadByUser(userID) {
			count++
		}
	}
	return count, nil
}

func cloneMessage(m *domain.Message) *domain.Message {
	out := *m
	out.ReadBy = make(map[string]time.Time, len(m.ReadBy))
	for k, v := range m.ReadBy {
		out.ReadBy[k] = v
	}
	out.DeletedFor = make(map[string]time.Time, len(m.DeletedFor))
	for k, v := range m.DeletedFor {
		out.DeletedFor[k] = v
	}
	if m.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
