/*
Package signal contains the real-time core of the coaching platform.

This file defines the Client struct, one identity's live channel. It owns the
WebSocket read/write pumps and the buffered send queue; every parsed inbound
frame is handed to the hub's event loop rather than handled here.
*/
package signal

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"coachlink/internal/app/identity"
	"coachlink/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// sendQueueSize is the per-channel outbound buffer. Frames beyond it are
	// dropped with a warning (best-effort delivery, no backlog).
	sendQueueSize = 256

	// WsCloseCodeSessionReplaced is a custom WebSocket Close Code (4000-4999
	// range) signaling that a newer connection for the same identity took over.
	WsCloseCodeSessionReplaced = 4001
)

// Client represents one identity's live bidirectional channel.
type Client struct {
	// the hub this channel is registered with.
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// who is on this channel. Immutable for the channel's lifetime.
	participant identity.Participant

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// structured logger with identity context.
	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection. The caller is
// responsible for registering it with the hub and starting both pumps.
func NewClient(hub *Hub, wsConn *websocket.Conn, p identity.Participant) *Client {
	clientLogger := logx.Logger().With().
		Str("identity_id", p.ID).
		Str("role", string(p.Role)).
		Logger()

	return &Client{
		hub:         hub,
		conn:        wsConn,
		participant: p,
		send:        make(chan []byte, sendQueueSize),
		logger:      clientLogger,
	}
}

// Participant returns the identity bound to this channel.
func (c *Client) Participant() identity.Participant {
	return c.participant
}

// ReadPump reads frames from the WebSocket connection, handles heartbeats,
// and forwards decoded envelopes to the hub. It unregisters the client when
// the connection drops for any reason.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		env, err := DecodeEnvelope(frameBytes)
		if err != nil {
			c.logger.Warn().Err(err).
				Bytes("frame_bytes", frameBytes).
				Msg("Client sent invalid frame")
			continue
		}

		c.hub.Submit(c, env)
	}
}

// cleanupOnDisconnect unregisters the client from the hub and closes the
// underlying connection when the ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Channel cleanup starting.")

	select {
	case c.hub.unregister <- c:
	default:
		c.logger.Warn().Msg("Hub unregister channel blocked. Connection cleanup still proceeding.")
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Channel close error")
	}
}

// WritePump writes queued frames to the WebSocket connection and keeps the
// heartbeat alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Channel close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send queue.
// Returns true if the WritePump loop should continue.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic Ping to maintain the heartbeat.
// Returns false if the WritePump loop should terminate.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// Emit marshals and queues one outbound event for this channel. Delivery is
// best-effort: a full queue drops the frame with a warning.
func (c *Client) Emit(event EventName, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error encoding outbound frame")
		return
	}

	select {
	case c.send <- frame:
	default:
		c.logger.Warn().
			Str("event", string(event)).
			Int("queue_len", len(c.send)).
			Msg("Channel send queue full, dropping frame")
	}
}

// Kick gracefully closes the channel with a custom Close Frame (4001)
// telling the client a newer connection for the same identity took over.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionReplaced).
		Str("reason", reason).
		Msg("Sending WS Kick message and closing connection.")

	closeMessage := websocket.FormatCloseMessage(
		WsCloseCodeSessionReplaced,
		reason,
	)

	if c.conn != nil {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))

		if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to send WS 4001 Close Message.")
		}
	}

	c.closeSend()
}

// closeSend closes the send queue exactly once.
func (c *Client) closeSend() {
	select {
	case <-c.send:
	default:
		close(c.send)
	}
}
