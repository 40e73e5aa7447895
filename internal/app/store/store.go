/*
Package store is the durable half of the two-path delivery model.

This file defines the pgx-backed Store with the message and notification
queries the hub and the REST handlers use.
*/
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"coachlink/internal/app/signal"
	"coachlink/internal/pkg/logx"
)

// DefaultHistoryLimit bounds a conversation page when the caller does not ask
// for a specific size.
const DefaultHistoryLimit = 50

// Store wraps the connection pool with the queries this service needs.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store over an initialized pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SaveMessage inserts one relayed chat message.
func (s *Store) SaveMessage(ctx context.Context, m signal.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, sender_id, sender_role, receiver_id, receiver_role, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.SenderID, m.SenderRole, m.ReceiverID, m.ReceiverRole, m.Body, m.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			// A redelivered frame minted the same row twice; the first write won.
			return nil
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// History returns one page of the conversation between two identities,
// newest first, and marks the requester's received rows as read.
func (s *Store) History(ctx context.Context, selfID, partnerID string, limit, offset int) ([]signal.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = DefaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, sender_id, sender_role, receiver_id, receiver_role, body, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, selfID, partnerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var msgs []signal.Message
	for rows.Next() {
		var m signal.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderRole, &m.ReceiverID, &m.ReceiverRole, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE receiver_id = $1 AND sender_id = $2 AND NOT is_read
	`, selfID, partnerID); err != nil {
		// Read-marking only feeds the unread summary; the page still loads.
		logx.Warn("Failed to mark conversation read", "self_id", selfID, "partner_id", partnerID, "error", err.Error())
	}

	return msgs, nil
}

// UnreadCount is the number of unread messages from one conversation partner.
type UnreadCount struct {
	PartnerID string `json:"partnerId"`
	Count     int    `json:"count"`
}

// UnreadSummary returns per-partner unread counts for one recipient. Clients
// use it to reconstruct the volatile unread badges after a reload.
func (s *Store) UnreadSummary(ctx context.Context, selfID string) ([]UnreadCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sender_id, COUNT(*)
		FROM messages
		WHERE receiver_id = $1 AND NOT is_read
		GROUP BY sender_id
		ORDER BY sender_id
	`, selfID)
	if err != nil {
		return nil, fmt.Errorf("query unread summary: %w", err)
	}
	defer rows.Close()

	var counts []UnreadCount
	for rows.Next() {
		var c UnreadCount
		if err := rows.Scan(&c.PartnerID, &c.Count); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// SaveNotification inserts one fan-out notification.
func (s *Store) SaveNotification(ctx context.Context, n signal.Notification) error {
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, content, created_at)
		VALUES ($1, $2, $3, $4)
	`, n.ID, n.RecipientID, n.Content, createdAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Notifications lists the persisted notifications for one recipient,
// newest first.
func (s *Store) Notifications(ctx context.Context, recipientID string) ([]signal.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipient_id, content, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
	`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var items []signal.Notification
	for rows.Next() {
		var n signal.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// ClearNotifications removes every persisted notification for one recipient.
func (s *Store) ClearNotifications(ctx context.Context, recipientID string) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM notifications WHERE recipient_id = $1
	`, recipientID); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}
