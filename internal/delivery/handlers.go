package delivery

import (
	"context"
	"log"

	"github.com/gofiber/websocket/v2"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
	"github.com/EAniwa/legacylancers-sub002/internal/pipeline"
	"github.com/EAniwa/legacylancers-sub002/internal/repository"
)

// Handlers owns the business logic behind each client event. Every inbound
// event runs through the pipeline chain first; a rejection is acked to the
// client and never reaches a handler.
type Handlers struct {
	conversations repository.Conversations
	messages      repository.Messages
	presence      repository.Presence
	manager       *Manager
	router        *DeliveryRouter
	chain         *pipeline.Chain
}

func NewHandlers(
	conversations repository.Conversations,
	messages repository.Messages,
	presence repository.Presence,
	manager *Manager,
	router *DeliveryRouter,
	chain *pipeline.Chain,
) *Handlers {
	return &Handlers{
		conversations: conversations,
		messages:      messages,
		presence:      presence,
		manager:       manager,
		router:        router,
		chain:         chain,
	}
}

// HandleConnection runs the full lifecycle of one authenticated socket:
// register, announce online, process events in arrival order, and on exit
// mark offline and announce it. The read loop is the per-connection ordering
// guarantee; events from one client are handled one at a time.
func (h *Handlers) HandleConnection(c *websocket.Conn, userID string) {
	defer c.Close()

	ctx := context.Background()
	conn := h.manager.Register(userID, c)

	defer func() {
		remaining := h.manager.Unregister(conn.ID)
		entry, ok, err := h.presence.Disconnect(ctx, conn.ID)
		if err != nil {
			log.Printf("Presence cleanup for connection %s failed: %v", conn.ID, err)
		}
		if ok && remaining == 0 {
			h.router.PresenceChanged(entry, conn.ID)
		}
		log.Printf("WebSocket client disconnected: user %s connection %s", userID, conn.ID)
	}()

	entry, err := h.presence.SetStatus(ctx, userID, domain.StatusOnline, conn.ID)
	if err != nil {
		log.Printf("Failed to mark user %s online: %v", userID, err)
	} else {
		h.router.PresenceChanged(entry, conn.ID)
	}

	if err := conn.Send(domain.ServerEvent{
		Type:    domain.EventConnectionEstablished,
		Success: true,
		Data: map[string]interface{}{
			"connection_id": conn.ID,
			"user_id":       userID,
		},
	}); err != nil {
		log.Printf("Failed to send welcome frame to %s: %v", conn.ID, err)
	}

	log.Printf("WebSocket client connected: user %s connection %s", userID, conn.ID)

	for {
		var evt domain.ClientEvent
		if err := c.ReadJSON(&evt); err != nil {
			log.Printf("WebSocket read error for connection %s: %v", conn.ID, err)
			return
		}
		h.Dispatch(ctx, conn, evt)
	}
}

// Dispatch gates one event through the pipeline, runs its handler and acks
// the result. Failures are acked on the same connection; they never tear the
// connection down.
func (h *Handlers) Dispatch(ctx context.Context, conn *Connection, evt domain.ClientEvent) {
	e := &pipeline.Event{
		Name:         evt.Type,
		UserID:       conn.UserID,
		ConnectionID: conn.ID,
		Raw:          evt.Data,
	}

	if err := h.chain.Run(ctx, e); err != nil {
		h.ack(conn, evt.Type, nil, err)
		return
	}

	data, err := h.handle(ctx, conn, e)
	if err != nil {
		log.Printf("Event %s from user %s failed: %v", evt.Type, conn.UserID, err)
	}
	h.ack(conn, evt.Type, data, err)
}

func (h *Handlers) ack(conn *Connection, eventType string, data interface{}, err error) {
	resp := domain.ServerEvent{Type: eventType, Success: err == nil, Data: data}
	if err != nil {
		resp.Error = domain.AsError(err)
	}
	if sendErr := conn.Send(resp); sendErr != nil {
		log.Printf("Failed to ack %s on connection %s: %v", eventType, conn.ID, sendErr)
	}
}

func (h *Handlers) handle(ctx context.Context, conn *Connection, e *pipeline.Event) (interface{}, error) {
	switch e.Name {
	case domain.EventJoinConversation:
		return h.handleJoin(ctx, conn, e.Payload.(*domain.JoinConversationPayload))
	case domain.EventLeaveConversation:
		return h.handleLeave(ctx, conn, e.Payload.(*domain.LeaveConversationPayload))
	case domain.EventSendMessage:
		return h.handleSend(ctx, conn, e.Payload.(*domain.SendMessagePayload))
	case domain.EventMarkMessageRead:
		return h.handleMarkRead(ctx, conn, e.Payload.(*domain.MarkMessageReadPayload))
	case domain.EventDeleteMessage:
		return h.handleDelete(ctx, conn, e.Payload.(*domain.DeleteMessagePayload))
	case domain.EventTypingStart:
		return h.handleTyping(ctx, conn, e.Payload.(*domain.TypingPayload), true)
	case domain.EventTypingStop:
		return h.handleTyping(ctx, conn, e.Payload.(*domain.TypingPayload), false)
	case domain.EventGetUserPresence:
		return h.handleGetPresence(ctx, e.Payload.(*domain.GetUserPresencePayload))
	case domain.EventUpdateStatus:
		return h.handleUpdateStatus(ctx, conn, e.Payload.(*domain.UpdateStatusPayload))
	default:
		// The validator rejects unknown events before this point.
		return nil, domain.ErrInvalidPayload
	}
}

func (h *Handlers) handleJoin(ctx context.Context, conn *Connection, p *domain.JoinConversationPayload) (interface{}, error) {
	conv, err := h.conversations.FindByID(ctx, p.ConversationID)
	if err != nil {
		return nil, err
	}
	unread, err := h.messages.UnreadCount(ctx, p.ConversationID, conn.UserID)
	if err != nil {
		return nil, err
	}
	h.manager.JoinRoom(conn.ID, p.ConversationID)
	return map[string]interface{}{
		"conversation": conv,
		"unread_count": unread,
	}, nil
}

func (h *Handlers) handleLeave(ctx context.Context, conn *Connection, p *domain.LeaveConversationPayload) (interface{}, error) {
	h.manager.LeaveRoom(conn.ID, p.ConversationID)

	// Leaving while typing there must not strand a stale indicator.
	entry, err := h.presence.Get(ctx, conn.UserID)
	if err == nil && entry.TypingIn == p.ConversationID {
		if _, err := h.presence.SetTyping(ctx, conn.UserID, ""); err == nil {
			h.router.TypingChanged(p.ConversationID, conn.UserID, false, conn.ID)
		}
	}
	return map[string]interface{}{"conversation_id": p.ConversationID}, nil
}

func (h *Handlers) handleSend(ctx context.Context, conn *Connection, p *domain.SendMessagePayload) (interface{}, error) {
	conv, err := h.conversations.FindByID(ctx, p.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv.Status != domain.ConversationStatusActive {
		return nil, domain.ErrNotFound
	}

	msg, err := h.messages.Create(ctx, repository.CreateMessageInput{
		ConversationID: p.ConversationID,
		SenderID:       conn.UserID,
		Kind:           p.MessageType,
		Content:        p.Content,
		ReplyToID:      p.ReplyToID,
		Metadata:       p.Metadata,
	})
	if err != nil {
		return nil, err
	}

	// The ledger does not reach into the directory; the denormalized
	// last-message fields are the send handler's responsibility.
	if _, err := h.conversations.Update(ctx, conv.ID, repository.ConversationUpdate{
		LastMessageID:     &msg.ID,
		LastMessageAt:     &msg.CreatedAt,
		MessageCountDelta: 1,
	}); err != nil {
		log.Printf("Failed to update conversation %s after message %s: %v", conv.ID, msg.ID, err)
	}

	// Sending a message implies the sender stopped typing.
	if entry, err := h.presence.Get(ctx, conn.UserID); err == nil && entry.TypingIn == conv.ID {
		if _, err := h.presence.SetTyping(ctx, conn.UserID, ""); err == nil {
			h.router.TypingChanged(conv.ID, conn.UserID, false, conn.ID)
		}
	}

	h.router.MessageCreated(ctx, conv, msg)
	return map[string]interface{}{"message": msg}, nil
}

func (h *Handlers) handleMarkRead(ctx context.Context, conn *Connection, p *domain.MarkMessageReadPayload) (interface{}, error) {
	msg, err := h.messages.MarkRead(ctx, p.MessageID, conn.UserID, p.ConversationID)
	if err != nil {
		return nil, err
	}
	h.router.ReadMarked(p.ConversationID, msg, conn.UserID, conn.ID)
	return map[string]interface{}{
		"message_id": msg.ID,
		"read_by":    conn.UserID,
		"read_at":    msg.ReadBy[conn.UserID],
	}, nil
}

func (h *Handlers) handleDelete(ctx context.Context, conn *Connection, p *domain.DeleteMessagePayload) (interface{}, error) {
	msg, err := h.messages.DeleteForUser(ctx, p.MessageID, conn.UserID, p.ConversationID, p.DeleteForEveryone)
	if err != nil {
		return nil, err
	}
	// Delete-for-me is invisible to the room; only a delete-for-everyone is
	// announced.
	if p.DeleteForEveryone {
		h.router.MessageDeleted(p.ConversationID, msg.ID, conn.UserID, conn.ID)
	}
	return map[string]interface{}{
		"message_id":          msg.ID,
		"delete_for_everyone": p.DeleteForEveryone,
	}, nil
}

func (h *Handlers) handleTyping(ctx context.Context, conn *Connection, p *domain.TypingPayload, typing bool) (interface{}, error) {
	target := ""
	if typing {
		target = p.ConversationID
	}
	if _, err := h.presence.SetTyping(ctx, conn.UserID, target); err != nil {
		return nil, err
	}
	h.router.TypingChanged(p.ConversationID, conn.UserID, typing, conn.ID)
	return map[string]interface{}{
		"conversation_id": p.ConversationID,
		"is_typing":       typing,
	}, nil
}

func (h *Handlers) handleGetPresence(ctx context.Context, p *domain.GetUserPresencePayload) (interface{}, error) {
	entries, err := h.presence.BulkGet(ctx, p.UserIDs)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		status := e.VisibleStatus()
		out = append(out, map[string]interface{}{
			"user_id":   e.UserID,
			"status":    status,
			"last_seen": e.LastSeen,
			// Invisible users don't leak typing activity either.
			"is_typing": e.IsTyping() && status != domain.StatusOffline,
		})
	}
	return map[string]interface{}{"presence": out}, nil
}

func (h *Handlers) handleUpdateStatus(ctx context.Context, conn *Connection, p *domain.UpdateStatusPayload) (interface{}, error) {
	entry, err := h.presence.SetStatus(ctx, conn.UserID, p.Status, conn.ID)
	if err != nil {
		return nil, err
	}
	h.router.PresenceChanged(entry, conn.ID)
	return map[string]interface{}{
		"status":    entry.Status,
		"last_seen": entry.LastSeen,
	}, nil
}
