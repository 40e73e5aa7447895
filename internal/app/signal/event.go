/*
Package signal contains the real-time core of the coaching platform: presence
tracking, chat relay, call negotiation, and notification fan-out over one
WebSocket channel per identity.

This file defines the wire protocol: a closed set of event names, the frame
envelope, and the typed payloads for every event the hub accepts or emits.
Unrecognized event names are dropped at the boundary rather than trusted.
*/
package signal

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventName identifies one wire event. The names (including the historical
// misspellings "sneder" and "trianer-accept") are frozen: the SPA listens on
// them verbatim.
type EventName string

// Client-to-server events.
const (
	EventJoin                EventName = "join"
	EventSendMessage         EventName = "sendMessage"
	EventChatNotification    EventName = "chatNotification"
	EventOutgoingCall        EventName = "outgoing-video-call"
	EventAcceptIncomingCall  EventName = "accept-incoming-call"
	EventTrainerCallAccept   EventName = "trainer-call-accept"
	EventRejectCall          EventName = "reject-call"
	EventLeaveCall           EventName = "leave-call"
	EventCancelTrainerNotify EventName = "cancelTrainerNotification"
	EventCancelUserNotify    EventName = "cancelUserNotification"
	EventNewBookingNotify    EventName = "newBookingNotification"
)

// Server-to-client events.
const (
	EventOnlineUsers             EventName = "updateOnlineUsers"
	EventMessageUpdate           EventName = "messageUpdate"
	EventIncomingCall            EventName = "incoming-video-call"
	EventAcceptedCall            EventName = "accepted-call"
	EventTrainerAccept           EventName = "trianer-accept"
	EventCallRejected            EventName = "call-rejected"
	EventUserLeft                EventName = "user-left"
	EventReceiveCancelForTrainer EventName = "receiveCancelNotificationForTrainer"
	EventReceiveCancelForUser    EventName = "receiveCancelNotificationForUser"
	EventReceiveNewBooking       EventName = "receiveNewBooking"
)

// Envelope is the frame shape carried on every WebSocket channel:
// an event name plus its raw payload, decoded per event by the hub.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DecodeEnvelope parses one inbound frame. It only validates the outer shape;
// per-event payload decoding happens in the hub dispatch.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("frame missing event name")
	}
	return env, nil
}

// encodeFrame marshals an outbound frame. Payloads here are built by the hub
// from known types, so a marshal failure is a programming error surfaced to
// the caller for logging.
func encodeFrame(event EventName, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// SendMessagePayload is emitted by a sender's chat input bar.
// Field names mirror the SPA's newMessage object.
type SendMessagePayload struct {
	Message     string `json:"message"`
	ReceiverID  string `json:"receiverId"`
	SenderName  string `json:"trainerName,omitempty"`
	SenderModel string `json:"senderModel"`
	CreatedAt   string `json:"createdAt"`
	UserID      string `json:"userId"`
}

// Message is the relayed chat message: created by the relay on send,
// immutable afterwards, persisted by the external store.
type Message struct {
	ID           string    `json:"id"`
	SenderID     string    `json:"senderId"`
	SenderRole   string    `json:"senderRole"`
	ReceiverID   string    `json:"receiverId"`
	ReceiverRole string    `json:"receiverRole"`
	Body         string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// OutgoingCallPayload starts a call offer. From is the caller, To the callee.
type OutgoingCallPayload struct {
	To           string `json:"to"`
	From         string `json:"from"`
	TrainerName  string `json:"trainerName"`
	TrainerImage string `json:"trainerImage"`
	CallType     string `json:"callType"`
	RoomID       string `json:"roomId"`
}

// IncomingCallPayload is what the callee's UI renders for an offer.
type IncomingCallPayload struct {
	CalleeID     string `json:"_id"`
	From         string `json:"from"`
	CallType     string `json:"callType"`
	TrainerName  string `json:"trainerName"`
	TrainerImage string `json:"trainerImage"`
	RoomID       string `json:"roomId"`
}

// AcceptIncomingCallPayload is the callee's accept of a pending offer.
type AcceptIncomingCallPayload struct {
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	TrainerID string `json:"trainerId"`
}

// AcceptedCallPayload notifies the caller that the offer was accepted.
type AcceptedCallPayload struct {
	RoomID   string `json:"roomId"`
	From     string `json:"from"`
	CalleeID string `json:"_id"`
}

// TrainerCallAcceptPayload is the caller's confirmation reply that flips
// both sides to active.
type TrainerCallAcceptPayload struct {
	RoomID    string `json:"roomId"`
	TrainerID string `json:"trainerId"`
	To        string `json:"to"`
}

// TrainerAcceptPayload completes the handshake on the callee side.
type TrainerAcceptPayload struct {
	RoomID string `json:"roomId"`
	From   string `json:"from"`
}

// RejectCallPayload ends a pending offer, from either side.
// Sneder carries the rejecting party's id; the field name is frozen.
type RejectCallPayload struct {
	To     string `json:"to"`
	Sender string `json:"sender"`
	Name   string `json:"name"`
	From   string `json:"from"`
	Sneder string `json:"sneder"`
}

// LeaveCallPayload is a hangup after the call was accepted or became active.
type LeaveCallPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// BookingNotificationPayload carries a booking-lifecycle notification to a
// single recipient. The cancel-user variant arrives with "userId" instead of
// "receiverId"; both fields funnel into the same struct.
type BookingNotificationPayload struct {
	ReceiverID string `json:"receiverId,omitempty"`
	UserID     string `json:"userId,omitempty"`
	Content    string `json:"content"`
}

// Recipient resolves whichever id field the variant populated.
func (p BookingNotificationPayload) Recipient() string {
	if p.ReceiverID != "" {
		return p.ReceiverID
	}
	return p.UserID
}

// Notification is a persisted out-of-band event shown in the bell menu.
// Read state is a client-local hint; the store only tracks content.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
	Read        bool      `json:"read"`
}
