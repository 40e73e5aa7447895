/*
Package signal contains the real-time core of the coaching platform.

This file defines the Notification Fan-out: booking lifecycle events
published by one party are persisted and pushed to the recipient's channel
when it is open. There is no backlog replay; an offline recipient sees the
notification on their next REST fetch.
*/
package signal

import (
	"context"
	"encoding/json"
	"time"

	"coachlink/internal/pkg/logx"
	"coachlink/internal/pkg/randx"
)

// handleBookingNotification persists and fans out one booking notification.
// outEvent selects which receive-side event name the recipient's UI listens
// on (new booking vs cancel, trainer vs user variant).
func (h *Hub) handleBookingNotification(c *Client, raw []byte, outEvent EventName) {
	var payload BookingNotificationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn().Err(err).Msg("Invalid booking notification payload")
		return
	}

	recipient := payload.Recipient()
	if recipient == "" || payload.Content == "" {
		h.logger.Warn().
			Str("publisher_id", c.participant.ID).
			Str("event", string(outEvent)).
			Msg("Booking notification missing recipient or content, dropping.")
		return
	}

	notification := Notification{
		ID:          randx.NotificationID(),
		RecipientID: recipient,
		Content:     payload.Content,
		CreatedAt:   time.Now().UTC(),
	}

	h.persistNotification(notification)

	if !h.emitTo(recipient, outEvent, payload.Content) {
		h.logger.Info().
			Str("recipient_id", recipient).
			Str("event", string(outEvent)).
			Msg("Recipient offline, notification waits in store.")
	}
}

// persistNotification writes the notification without blocking the loop.
func (h *Hub) persistNotification(n Notification) {
	if h.notices == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := h.notices.SaveNotification(ctx, n); err != nil {
			logx.Error(err, "Failed to persist notification",
				"notification_id", n.ID,
				"recipient_id", n.RecipientID,
			)
		}
	}()
}
