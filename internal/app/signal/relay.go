/*
Package signal contains the real-time core of the coaching platform.

This file defines the Messaging Relay: it turns a sendMessage frame into an
immutable Message, hands it to the external store, and forwards it to the
receiver's channel when one is open. Delivery over the channel is
best-effort; the store is the durable path read back over REST.
*/
package signal

import (
	"context"
	"encoding/json"
	"time"

	"coachlink/internal/app/identity"
	"coachlink/internal/pkg/logx"
	"coachlink/internal/pkg/randx"
)

// MaxMessageBytes caps the chat message body length.
const MaxMessageBytes = 5000

// MessageStore is the external chat history store. Writes from the relay are
// fire-and-forget: a failure is logged, never retried here.
type MessageStore interface {
	SaveMessage(ctx context.Context, m Message) error
}

// NotificationStore is the external store backing the notification bell.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n Notification) error
}

// handleSendMessage relays one chat message. The message object is created
// here and never mutated afterwards; the receiver gets a messageUpdate only
// if their channel is open right now.
func (h *Hub) handleSendMessage(c *Client, raw []byte) {
	msg, ok := h.buildMessage(c, raw)
	if !ok {
		return
	}

	h.persistMessage(msg)

	if !h.emitTo(msg.ReceiverID, EventMessageUpdate, msg) {
		h.logger.Info().
			Str("message_id", msg.ID).
			Str("receiver_id", msg.ReceiverID).
			Msg("Receiver offline, message waits in store for next fetch.")
	}
}

// handleChatNotification is the secondary chat-aware path: the same payload
// as sendMessage, forwarded to the receiver's notification surface without
// another store write (sendMessage already persisted it).
func (h *Hub) handleChatNotification(c *Client, raw []byte) {
	msg, ok := h.buildMessage(c, raw)
	if !ok {
		return
	}

	h.emitTo(msg.ReceiverID, EventChatNotification, msg)
}

// buildMessage validates a sendMessage payload and mints the relayed Message.
func (h *Hub) buildMessage(c *Client, raw []byte) (Message, bool) {
	var payload SendMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn().Err(err).Msg("Invalid sendMessage payload")
		return Message{}, false
	}

	if payload.Message == "" || payload.ReceiverID == "" {
		h.logger.Warn().
			Str("sender_id", c.participant.ID).
			Msg("sendMessage missing body or receiverId, dropping.")
		return Message{}, false
	}

	if len(payload.Message) > MaxMessageBytes {
		h.logger.Warn().
			Str("sender_id", c.participant.ID).
			Int("body_bytes", len(payload.Message)).
			Msg("sendMessage body too long, dropping.")
		return Message{}, false
	}

	senderID := payload.UserID
	if senderID == "" {
		senderID = c.participant.ID
	}

	senderRole := identity.Role(payload.SenderModel)
	if !senderRole.Valid() {
		senderRole = c.participant.Role
	}

	receiverRole := identity.RoleTrainer
	if senderRole == identity.RoleTrainer {
		receiverRole = identity.RoleUser
	}

	createdAt := time.Now().UTC()
	if payload.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, payload.CreatedAt); err == nil {
			createdAt = t
		}
	}

	return Message{
		ID:           randx.MessageID(),
		SenderID:     senderID,
		SenderRole:   string(senderRole),
		ReceiverID:   payload.ReceiverID,
		ReceiverRole: string(receiverRole),
		Body:         payload.Message,
		CreatedAt:    createdAt,
	}, true
}

// persistMessage writes the message to the external store without blocking
// the event loop. A failed write leaves the channel delivery untouched.
func (h *Hub) persistMessage(msg Message) {
	if h.messages == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := h.messages.SaveMessage(ctx, msg); err != nil {
			logx.Error(err, "Failed to persist chat message",
				"message_id", msg.ID,
				"sender_id", msg.SenderID,
			)
		}
	}()
}
