/*
Package signal contains the real-time core of the coaching platform.

This file defines the Hub, the owner of every live channel. It runs the
single logical event loop: connects and disconnects, presence broadcasts,
call negotiation, and dispatch of inbound frames to the relay and fan-out
handlers. No two handlers run concurrently, which is what lets the call
state machine rely on plain state-check guards instead of locks.
*/
package signal

import (
	"time"

	"github.com/rs/zerolog"

	"coachlink/internal/pkg/logx"
)

const (
	// inboundBuffer sizes the shared frame queue feeding the event loop.
	inboundBuffer = 1024

	// DefaultOfferTTL is how long a call offer may stay unanswered.
	DefaultOfferTTL = 30 * time.Second

	// persistTimeout bounds each fire-and-forget store write.
	persistTimeout = 5 * time.Second
)

// inboundFrame pairs a decoded envelope with the channel it arrived on.
type inboundFrame struct {
	client *Client
	env    Envelope
}

// Hub owns the per-identity channel registry, the presence set, and all
// in-flight call sessions. All three are mutated only on the Run loop.
type Hub struct {
	// clients maps identity id to its single live channel.
	clients map[string]*Client

	// presence is the set of identity ids with an open channel.
	presence presenceSet

	// calls maps roomId to its in-flight session. Terminal sessions are
	// removed as soon as they end.
	calls map[string]*CallSession

	// register queues channels whose handshake completed.
	register chan *Client

	// unregister queues channels being torn down.
	unregister chan *Client

	// inbound is the shared frame queue for the event loop.
	inbound chan inboundFrame

	// timeouts receives roomIds whose offer timer fired.
	timeouts chan string

	// stopChan signals the Run loop to terminate.
	stopChan chan struct{}

	// done is closed when the Run loop has fully exited.
	done chan struct{}

	// messages is the external chat store (fire-and-forget writes).
	messages MessageStore

	// notices is the external notification store (fire-and-forget writes).
	notices NotificationStore

	// offerTTL is the unanswered-offer timeout, DefaultOfferTTL in production.
	offerTTL time.Duration

	// structured logger with Hub context.
	logger zerolog.Logger
}

// NewHub constructs a Hub. Run must be started by the caller.
func NewHub(messages MessageStore, notices NotificationStore) *Hub {
	hubLogger := logx.Logger().With().Str("component", "Hub").Logger()

	return &Hub{
		clients:    make(map[string]*Client),
		presence:   make(presenceSet),
		calls:      make(map[string]*CallSession),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame, inboundBuffer),
		timeouts:   make(chan string, 64),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		messages:   messages,
		notices:    notices,
		offerTTL:   DefaultOfferTTL,
		logger:     hubLogger,
	}
}

// Register queues a channel for registration under its identity id.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopChan:
		c.logger.Warn().Msg("Hub stopped, rejecting registration.")
		c.closeSend()
	}
}

// Submit queues one decoded inbound frame for the event loop.
func (h *Hub) Submit(c *Client, env Envelope) {
	select {
	case h.inbound <- inboundFrame{client: c, env: env}:
	default:
		h.logger.Warn().
			Str("event", string(env.Event)).
			Str("identity_id", c.participant.ID).
			Msg("Inbound queue full, dropping frame.")
	}
}

// Run is the hub's event loop. It exits when Shutdown is called.
func (h *Hub) Run() {
	defer func() {
		for _, client := range h.clients {
			client.closeSend()
		}
		h.clients = make(map[string]*Client)
		close(h.done)
		h.logger.Info().Msg("Hub event loop stopped.")
	}()

	h.logger.Info().Msg("Hub event loop started.")

	for {
		select {
		case client := <-h.register:
			h.handleConnect(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case frame := <-h.inbound:
			h.dispatch(frame.client, frame.env)

		case roomID := <-h.timeouts:
			h.handleOfferTimeout(roomID)

		case <-h.stopChan:
			return
		}
	}
}

// Shutdown stops the event loop and waits for it to drain.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down Hub...")

	select {
	case <-h.stopChan:
	default:
		close(h.stopChan)
	}

	<-h.done
	h.logger.Info().Msg("Hub shutdown complete.")
}

// handleConnect registers a channel under its identity id, superseding any
// earlier channel for the same id, and broadcasts the new presence set.
func (h *Hub) handleConnect(c *Client) {
	id := c.participant.ID

	if existing, ok := h.clients[id]; ok {
		h.logger.Warn().
			Str("identity_id", id).
			Msg("Identity already connected. Closing old connection for replacement.")

		existing.Kick("Session replaced by new connection. Check other tabs.")
	}

	h.clients[id] = c

	if h.presence.add(id) {
		h.broadcastPresence()
	}

	h.logger.Info().
		Str("identity_id", id).
		Int("online", len(h.clients)).
		Msg("Channel registered.")
}

// handleDisconnect tears down a channel: deregisters it, broadcasts the
// shrunk presence set, and ends any call the identity was part of. A stale
// channel that was already replaced is ignored.
func (h *Hub) handleDisconnect(c *Client) {
	id := c.participant.ID

	current, ok := h.clients[id]
	if !ok {
		h.logger.Warn().
			Str("identity_id", id).
			Msg("Unregister for unknown/already removed channel.")
		return
	}

	if current != c {
		h.logger.Info().
			Str("identity_id", id).
			Msg("Ignoring unregister for stale connection.")
		return
	}

	delete(h.clients, id)
	c.closeSend()

	if h.presence.remove(id) {
		h.broadcastPresence()
	}

	h.endCallsInvolving(id)

	h.logger.Info().
		Str("identity_id", id).
		Int("online", len(h.clients)).
		Msg("Channel removed.")
}

// broadcastPresence emits the current presence snapshot to every open channel.
func (h *Hub) broadcastPresence() {
	snapshot := h.presence.snapshot()

	for _, client := range h.clients {
		client.Emit(EventOnlineUsers, snapshot)
	}
}

// emitTo delivers one event to the identity's channel if it is open.
// Returns false when the identity has no open channel (no backlog is kept).
func (h *Hub) emitTo(id string, event EventName, data any) bool {
	client, ok := h.clients[id]
	if !ok {
		return false
	}
	client.Emit(event, data)
	return true
}

// dispatch decodes and routes one inbound frame. The event set is closed:
// anything not named here is logged and dropped.
func (h *Hub) dispatch(c *Client, env Envelope) {
	switch env.Event {
	case EventJoin:
		h.handleJoin(c, env.Data)

	case EventSendMessage:
		h.handleSendMessage(c, env.Data)

	case EventChatNotification:
		h.handleChatNotification(c, env.Data)

	case EventOutgoingCall:
		h.handleOutgoingCall(c, env.Data)

	case EventAcceptIncomingCall:
		h.handleAcceptIncomingCall(c, env.Data)

	case EventTrainerCallAccept:
		h.handleTrainerCallAccept(c, env.Data)

	case EventRejectCall:
		h.handleRejectCall(c, env.Data)

	case EventLeaveCall:
		h.handleLeaveCall(c, env.Data)

	case EventCancelTrainerNotify:
		h.handleBookingNotification(c, env.Data, EventReceiveCancelForTrainer)

	case EventCancelUserNotify:
		h.handleBookingNotification(c, env.Data, EventReceiveCancelForUser)

	case EventNewBookingNotify:
		h.handleBookingNotification(c, env.Data, EventReceiveNewBooking)

	default:
		h.logger.Warn().
			Str("event", string(env.Event)).
			Str("identity_id", c.participant.ID).
			Msg("Unsupported event, dropping frame.")
	}
}

// handleJoin re-announces presence for an already registered channel. The SPA
// emits join when a chat screen mounts; registration itself happened at
// upgrade time, so this is a no-op apart from the refreshed broadcast.
func (h *Hub) handleJoin(c *Client, raw []byte) {
	id := c.participant.ID

	if !h.presence.contains(id) {
		// Registration raced the first join frame; treat join as connect.
		h.handleConnect(c)
		return
	}

	h.broadcastPresence()
}
