package delivery

import (
	"context"
	"log"
	"time"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
	"github.com/EAniwa/legacylancers-sub002/internal/notify"
	"github.com/EAniwa/legacylancers-sub002/internal/profile"
	"github.com/EAniwa/legacylancers-sub002/internal/repository"
)

// DeliveryRouter maps domain outcomes to the connections that must hear about
// them: a conversation room, a user's own connections, or every connection
// for presence changes. When a new message's recipient has no live
// connection it triggers the offline-fallback dispatcher.
type DeliveryRouter struct {
	manager    *Manager
	presence   repository.Presence
	profiles   profile.Source
	dispatcher notify.Dispatcher
}

func NewDeliveryRouter(manager *Manager, presence repository.Presence, profiles profile.Source, dispatcher notify.Dispatcher) *DeliveryRouter {
	return &DeliveryRouter{
		manager:    manager,
		presence:   presence,
		profiles:   profiles,
		dispatcher: dispatcher,
	}
}

// MessageCreated broadcasts a new message to the conversation room with a
// sender-enriched payload and falls back to a notification for each
// unreachable recipient.
func (r *DeliveryRouter) MessageCreated(ctx context.Context, conv *domain.Conversation, msg *domain.Message) {
	data := map[string]interface{}{
		"message": msg,
		"sender":  r.senderInfo(ctx, msg.SenderID),
	}
	r.manager.BroadcastRoom(conv.ID, "", domain.ServerEvent{
		Type:    domain.EventNewMessage,
		Success: true,
		Data:    data,
	})

	for _, recipientID := range conv.Participants() {
		if recipientID == msg.SenderID {
			continue
		}
		r.maybeNotifyOffline(ctx, recipientID, msg)
	}
}

// ReadMarked broadcasts a read receipt to the room, excluding the reader's
// own connection: the reader gets the result in its acknowledgment.
func (r *DeliveryRouter) ReadMarked(convID string, msg *domain.Message, readerID, actorConn string) {
	r.manager.BroadcastRoom(convID, actorConn, domain.ServerEvent{
		Type:    domain.EventMessageRead,
		Success: true,
		Data: map[string]interface{}{
			"conversation_id": convID,
			"message_id":      msg.ID,
			"read_by":         readerID,
			"read_at":         msg.ReadBy[readerID],
		},
	})
}

// MessageDeleted announces a delete-for-everyone to the room, excluding the
// actor.
func (r *DeliveryRouter) MessageDeleted(convID, messageID, actorID, actorConn string) {
	r.manager.BroadcastRoom(convID, actorConn, domain.ServerEvent{
		Type:    domain.EventMessageDeleted,
		Success: true,
		Data: map[string]interface{}{
			"conversation_id": convID,
			"message_id":      messageID,
			"deleted_by":      actorID,
		},
	})
}

// TypingChanged broadcasts a typing start/stop to room peers, excluding the
// typist's own connection when known.
func (r *DeliveryRouter) TypingChanged(convID, userID string, typing bool, actorConn string) {
	name := domain.EventTypingStop
	if typing {
		name = domain.EventTypingStart
	}
	r.manager.BroadcastRoom(convID, actorConn, domain.ServerEvent{
		Type:    name,
		Success: true,
		Data: map[string]interface{}{
			"conversation_id": convID,
			"user_id":         userID,
			"is_typing":       typing,
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// PresenceChanged fans a status change out to every connection. Invisible
// users are announced as offline.
func (r *DeliveryRouter) PresenceChanged(entry *domain.PresenceEntry, actorConn string) {
	r.manager.BroadcastAll(actorConn, domain.ServerEvent{
		Type:    domain.EventUserPresenceUpdate,
		Success: true,
		Data: map[string]interface{}{
			"user_id":   entry.UserID,
			"status":    entry.VisibleStatus(),
			"last_seen": entry.LastSeen,
		},
	})
}

// maybeNotifyOffline hands a fallback notification to the dispatcher when the
// recipient cannot be reached in real time. It never propagates a failure:
// the original send must succeed regardless of what the dispatcher does.
func (r *DeliveryRouter) maybeNotifyOffline(ctx context.Context, recipientID string, msg *domain.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered from panic dispatching notification for %s: %v", recipientID, rec)
		}
	}()

	entry, err := r.presence.Get(ctx, recipientID)
	if err != nil {
		log.Printf("Failed to read presence for %s: %v", recipientID, err)
		return
	}
	if entry.Reachable() && r.manager.UserConnectionCount(recipientID) > 0 {
		return
	}

	sender := r.senderInfo(ctx, msg.SenderID)
	n := notify.Notification{
		RecipientID:    recipientID,
		SenderID:       msg.SenderID,
		SenderName:     sender.DisplayName,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Preview:        notify.Preview(msg.Content),
		Channels:       []string{"push", "in_app"},
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.dispatcher.Dispatch(ctx, n); err != nil {
		log.Printf("Offline notification for %s failed: %v", recipientID, err)
	}
}

func (r *DeliveryRouter) senderInfo(ctx context.Context, senderID string) profile.Profile {
	if r.profiles != nil {
		if p, ok := r.profiles.Lookup(ctx, senderID); ok {
			return p
		}
	}
	return profile.Profile{UserID: senderID}
}
