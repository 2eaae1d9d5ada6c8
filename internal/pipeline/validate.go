package pipeline

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
)

// Validator decodes the raw payload into the event's declared shape and
// checks it declaratively before any field reaches business logic. Events
// without a registered shape are rejected outright.
type Validator struct {
	validate *validator.Validate
	shapes   map[string]func() interface{}
}

func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(),
		shapes: map[string]func() interface{}{
			domain.EventJoinConversation:  func() interface{} { return &domain.JoinConversationPayload{} },
			domain.EventLeaveConversation: func() interface{} { return &domain.LeaveConversationPayload{} },
			domain.EventSendMessage:       func() interface{} { return &domain.SendMessagePayload{} },
			domain.EventMarkMessageRead:   func() interface{} { return &domain.MarkMessageReadPayload{} },
			domain.EventDeleteMessage:     func() interface{} { return &domain.DeleteMessagePayload{} },
			domain.EventTypingStart:       func() interface{} { return &domain.TypingPayload{} },
			domain.EventTypingStop:        func() interface{} { return &domain.TypingPayload{} },
			domain.EventGetUserPresence:   func() interface{} { return &domain.GetUserPresencePayload{} },
			domain.EventUpdateStatus:      func() interface{} { return &domain.UpdateStatusPayload{} },
		},
	}
}

func (v *Validator) Intercept(ctx context.Context, e *Event) error {
	shape, ok := v.shapes[e.Name]
	if !ok {
		return domain.ErrInvalidPayload
	}

	payload := shape()
	if len(e.Raw) > 0 {
		if err := json.Unmarshal(e.Raw, payload); err != nil {
			return domain.ErrInvalidPayload
		}
	}
	if err := v.validate.Struct(payload); err != nil {
		return domain.ErrInvalidPayload
	}

	e.Payload = payload
	return nil
}
