package pipeline

import (
	"context"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
	"github.com/EAniwa/legacylancers-sub002/internal/repository"
)

// MembershipAuthorizer re-derives conversation membership for every event
// scoped to a conversation id. Events without a conversation reference pass
// through.
type MembershipAuthorizer struct {
	conversations repository.Conversations
}

func NewMembershipAuthorizer(conversations repository.Conversations) *MembershipAuthorizer {
	return &MembershipAuthorizer{conversations: conversations}
}

func (a *MembershipAuthorizer) Intercept(ctx context.Context, e *Event) error {
	scoped, ok := e.Payload.(domain.ConversationScoped)
	if !ok {
		return nil
	}
	allowed, err := a.conversations.HasAccess(ctx, scoped.ConversationRef(), e.UserID)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.ErrForbidden
	}
	return nil
}
