package domain

import "encoding/json"

// Client -> server event names.
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventMarkMessageRead   = "mark_message_read"
	EventDeleteMessage     = "delete_message"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
	EventGetUserPresence   = "get_user_presence"
	EventUpdateStatus      = "update_status"
)

// Server -> client event names.
const (
	EventConnectionEstablished = "connection_established"
	EventNewMessage            = "new_message"
	EventMessageRead           = "message_read"
	EventMessageDeleted        = "message_deleted"
	EventUserPresenceUpdate    = "user_presence_update"
)

// ClientEvent is the inbound wire frame. Data stays raw until the pipeline's
// validation stage decodes it into the event's typed payload.
type ClientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerEvent is the outbound wire frame, used both for broadcasts and for
// per-event acknowledgments.
type ServerEvent struct {
	Type    string      `json:"type"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// ConversationScoped is implemented by payloads that reference a conversation;
// the pipeline's authorization stage re-derives membership from it.
type ConversationScoped interface {
	ConversationRef() string
}

type JoinConversationPayload struct {
	ConversationID string `json:"conversation_id" validate:"required,uuid"`
}

func (p *JoinConversationPayload) ConversationRef() string { return p.ConversationID }

type LeaveConversationPayload struct {
	ConversationID string `json:"conversation_id" validate:"required,uuid"`
}

func (p *LeaveConversationPayload) ConversationRef() string { return p.ConversationID }

type SendMessagePayload struct {
	ConversationID string                 `json:"conversation_id" validate:"required,uuid"`
	Content        string                 `json:"content" validate:"required,max=5000"`
	MessageType    string                 `json:"message_type" validate:"omitempty,oneof=text file image"`
	ReplyToID      string                 `json:"reply_to_message_id" validate:"omitempty,uuid"`
	Metadata       map[string]interface{} `json:"metadata"`
}

func (p *SendMessagePayload) ConversationRef() string { return p.ConversationID }

type MarkMessageReadPayload struct {
	ConversationID string `json:"conversation_id" validate:"required,uuid"`
	MessageID      string `json:"message_id" validate:"required,uuid"`
}

func (p *MarkMessageReadPayload) ConversationRef() string { return p.ConversationID }

type DeleteMessagePayload struct {
	ConversationID    string `json:"conversation_id" validate:"required,uuid"`
	MessageID         string `json:"message_id" validate:"required,uuid"`
	DeleteForEveryone bool   `json:"delete_for_everyone"`
}

func (p *DeleteMessagePayload) ConversationRef() string { return p.ConversationID }

type TypingPayload struct {
	ConversationID string `json:"conversation_id" validate:"required,uuid"`
}

func (p *TypingPayload) ConversationRef() string { return p.ConversationID }

type GetUserPresencePayload struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,max=100,dive,uuid"`
}

type UpdateStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=online away busy invisible offline"`
}
