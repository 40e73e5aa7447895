/*
Package signal contains the real-time core of the coaching platform.

This file defines the CallSession state machine coordinating one call
negotiation between exactly two participants. Every transition is guarded by
a state check, so duplicate or late events degrade to logged no-ops instead
of corrupting the session.
*/
package signal

import (
	"encoding/json"
	"time"

	"coachlink/internal/app/identity"
	"coachlink/internal/pkg/randx"
)

// CallState is the lifecycle position of one call session.
type CallState string

const (
	// CallOffered: the offer was sent; the 30s timer is running.
	CallOffered CallState = "offered"

	// CallAccepted: the callee accepted; waiting for the caller's confirmation.
	CallAccepted CallState = "accepted"

	// CallActive: both sides confirmed and the media room is live.
	CallActive CallState = "active"

	// CallEnded: terminal. EndReason records how the session got here.
	CallEnded CallState = "ended"
)

// EndReason distinguishes the terminal paths out of a session.
type EndReason string

const (
	EndNone     EndReason = ""
	EndRejected EndReason = "rejected"
	EndTimedOut EndReason = "timedOut"
	EndHungUp   EndReason = "ended"
)

// CallSession tracks one call negotiation. It is owned by the hub and only
// mutated on the hub's event loop, which is what makes the plain state-check
// guards sufficient.
type CallSession struct {
	RoomID    string
	Caller    identity.Participant
	Callee    identity.Participant
	CallType  string
	State     CallState
	Reason    EndReason
	CreatedAt time.Time

	// offerTimer fires the offer timeout back into the hub loop.
	// Nil once the session has left the offered state.
	offerTimer *time.Timer
}

// NewCallSession creates a session in the offered state.
func NewCallSession(roomID string, caller, callee identity.Participant, callType string) *CallSession {
	return &CallSession{
		RoomID:    roomID,
		Caller:    caller,
		Callee:    callee,
		CallType:  callType,
		State:     CallOffered,
		CreatedAt: time.Now(),
	}
}

// Terminal reports whether the session reached its end state.
func (s *CallSession) Terminal() bool {
	return s.State == CallEnded
}

// Accept moves offered -> accepted. Returns false (no-op) from any other
// state, including a second accept or an accept after timeout.
func (s *CallSession) Accept() bool {
	if s.State != CallOffered {
		return false
	}
	s.State = CallAccepted
	s.stopOfferTimer()
	return true
}

// Confirm moves accepted -> active once the caller acknowledges the accept.
func (s *CallSession) Confirm() bool {
	if s.State != CallAccepted {
		return false
	}
	s.State = CallActive
	return true
}

// Reject ends a pending offer. Valid only while offered.
func (s *CallSession) Reject() bool {
	if s.State != CallOffered {
		return false
	}
	s.State = CallEnded
	s.Reason = EndRejected
	s.stopOfferTimer()
	return true
}

// Timeout ends a pending offer that was never answered. Identical in effect
// to Reject apart from the recorded reason; a timer that fires after the
// session moved on is a no-op.
func (s *CallSession) Timeout() bool {
	if s.State != CallOffered {
		return false
	}
	s.State = CallEnded
	s.Reason = EndTimedOut
	s.offerTimer = nil
	return true
}

// Leave ends an accepted or active call when either party hangs up or
// disconnects. The second of two simultaneous leaves is a no-op, which is
// the tie-break for both parties leaving at once.
func (s *CallSession) Leave() bool {
	if s.State != CallAccepted && s.State != CallActive {
		return false
	}
	s.State = CallEnded
	s.Reason = EndHungUp
	return true
}

// Involves reports whether id is one of the two participants.
func (s *CallSession) Involves(id string) bool {
	return s.Caller.ID == id || s.Callee.ID == id
}

// Counterpart returns the other participant relative to id. The second
// return is false when id is not part of the session.
func (s *CallSession) Counterpart(id string) (identity.Participant, bool) {
	switch id {
	case s.Caller.ID:
		return s.Callee, true
	case s.Callee.ID:
		return s.Caller, true
	}
	return identity.Participant{}, false
}

// stopOfferTimer cancels the pending timeout. A fire that already raced past
// Stop is harmless: the timeout handler re-checks state on the hub loop.
func (s *CallSession) stopOfferTimer() {
	if s.offerTimer != nil {
		s.offerTimer.Stop()
		s.offerTimer = nil
	}
}

// handleOutgoingCall starts a new offer. The incoming-call event reaches the
// callee only if their channel is open; either way the offer timer runs, so
// an unreachable callee resolves through the ordinary timeout path.
func (h *Hub) handleOutgoingCall(c *Client, raw []byte) {
	var payload OutgoingCallPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn().Err(err).Msg("Invalid outgoing-video-call payload")
		return
	}

	if payload.To == "" || payload.From == "" {
		h.logger.Warn().Msg("outgoing-video-call missing to/from")
		return
	}

	if payload.RoomID == "" {
		// Older SPA builds relied on the server to mint the room id.
		roomID, err := randx.CallRoomID()
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to mint call room id")
			return
		}
		payload.RoomID = roomID
	}

	if existing, ok := h.calls[payload.RoomID]; ok && !existing.Terminal() {
		h.logger.Warn().
			Str("room_id", payload.RoomID).
			Str("state", string(existing.State)).
			Msg("Duplicate offer for in-flight room, ignoring.")
		return
	}

	caller := identity.Participant{
		ID:    payload.From,
		Role:  c.participant.Role,
		Name:  payload.TrainerName,
		Image: payload.TrainerImage,
	}
	callee := identity.Participant{ID: payload.To}
	if caller.Role == identity.RoleTrainer {
		callee.Role = identity.RoleUser
	} else {
		callee.Role = identity.RoleTrainer
	}

	session := NewCallSession(payload.RoomID, caller, callee, payload.CallType)
	session.offerTimer = time.AfterFunc(h.offerTTL, func() {
		select {
		case h.timeouts <- session.RoomID:
		case <-h.stopChan:
		}
	})
	h.calls[payload.RoomID] = session

	h.logger.Info().
		Str("room_id", payload.RoomID).
		Str("caller_id", caller.ID).
		Str("callee_id", callee.ID).
		Str("call_type", payload.CallType).
		Msg("Call offered.")

	delivered := h.emitTo(callee.ID, EventIncomingCall, IncomingCallPayload{
		CalleeID:     callee.ID,
		From:         caller.ID,
		CallType:     payload.CallType,
		TrainerName:  payload.TrainerName,
		TrainerImage: payload.TrainerImage,
		RoomID:       payload.RoomID,
	})
	if !delivered {
		h.logger.Info().
			Str("room_id", payload.RoomID).
			Str("callee_id", callee.ID).
			Msg("Callee has no open channel; offer will time out.")
	}
}

// handleAcceptIncomingCall moves the session to accepted and notifies the
// caller, who replies with trainer-call-accept to flip both sides active.
func (h *Hub) handleAcceptIncomingCall(c *Client, raw []byte) {
	var payload AcceptIncomingCallPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn().Err(err).Msg("Invalid accept-incoming-call payload")
		return
	}

	session, ok := h.calls[payload.RoomID]
	if !ok {
		h.logger.Warn().Str("room_id", payload.RoomID).Msg("Accept for unknown room, ignoring.")
		return
	}

	if !session.Accept() {
		h.logger.Info().
			Str("room_id", payload.RoomID).
			Str("state", string(session.State)).
			Msg("Accept from non-offered state, ignoring.")
		return
	}

	h.emitTo(session.Caller.ID, EventAcceptedCall, AcceptedCallPayload{
		RoomID:   session.RoomID,
		From:     session.Caller.ID,
		CalleeID: session.Callee.ID,
	})
}

// handleTrainerCallAccept is the caller's confirmation: the session becomes
// active and the callee gets the final handshake event.
func (h *Hub) handleTrainerCallAccept(c *Client, raw []byte) {
	var payload TrainerCallAcceptPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn().Err(err).Msg("Invalid trainer-call-accept payload")
		return
	}

	session, ok := h.calls[payload.RoomID]
	if !ok {
		h.logger.Warn().Str("room_id", payload.RoomID).Msg("Confirmation for unknown room, ignoring.")
		return
	}

	if !session.Confirm() {
		h.logger.Info().
			Str("room_id", payload.RoomID).
			Str("state", string(session.State)).
			Msg("Confirmation from non-accepted state, ignoring.")
		return
	}

	h.emitTo(session.Callee.ID, EventTrainerAccept, TrainerAcceptPayload{
		RoomID: session.RoomID,
		From:   payload.TrainerID,
	})

	h.logger.Info().Str("room_id", session.RoomID).Msg("Call active.")
}

// handleRejectCall ends a pending offer. The payload has no roomId, so the
// session is located by its participant pair. Rejections of rooms that
// already resolved are no-ops.
func (h *Hub) handleRejectCall(c *Client, raw []byte) {
	var payload RejectCallPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn().Err(err).Msg("Invalid reject-call payload")
		return
	}

	session := h.findCallBetween(payload.Sneder, payload.To)
	if session == nil {
		h.logger.Info().
			Str("to", payload.To).
			Str("sneder", payload.Sneder).
			Msg("Reject with no matching pending offer, ignoring.")
		return
	}

	if !session.Reject() {
		return
	}
	delete(h.calls, session.RoomID)

	h.emitTo(payload.To, EventCallRejected, nil)

	h.logger.Info().
		Str("room_id", session.RoomID).
		Str("rejected_by", payload.Sneder).
		Msg("Call rejected.")
}

// handleLeaveCall ends an accepted or active call. The remaining party
// receives user-left carrying its own id: the SPA clears whichever role's
// call state matches, so the sender does not need to know which side is
// local on the receiver.
func (h *Hub) handleLeaveCall(c *Client, raw []byte) {
	var payload LeaveCallPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Warn().Err(err).Msg("Invalid leave-call payload")
		return
	}

	session, ok := h.calls[payload.RoomID]
	if !ok {
		h.logger.Info().Str("room_id", payload.RoomID).Msg("Leave for unknown room, ignoring.")
		return
	}

	if !session.Leave() {
		h.logger.Info().
			Str("room_id", payload.RoomID).
			Str("state", string(session.State)).
			Msg("Leave from non-joined state, ignoring.")
		return
	}
	delete(h.calls, session.RoomID)

	if remaining, ok := session.Counterpart(payload.UserID); ok {
		h.emitTo(remaining.ID, EventUserLeft, remaining.ID)
	}

	h.logger.Info().
		Str("room_id", session.RoomID).
		Str("left_by", payload.UserID).
		Msg("Call ended by participant leaving.")
}

// handleOfferTimeout fires when an offer stayed unanswered for the full TTL.
// It behaves like a reject, and both ends get the call-rejected event.
func (h *Hub) handleOfferTimeout(roomID string) {
	session, ok := h.calls[roomID]
	if !ok {
		return
	}

	if !session.Timeout() {
		// Timer raced the accept/reject path; the session moved on.
		return
	}
	delete(h.calls, roomID)

	h.emitTo(session.Caller.ID, EventCallRejected, nil)
	h.emitTo(session.Callee.ID, EventCallRejected, nil)

	h.logger.Info().
		Str("room_id", roomID).
		Dur("offer_ttl", h.offerTTL).
		Msg("Call offer timed out.")
}

// endCallsInvolving terminates every non-terminal session the identity is
// part of (forced-disconnect cleanup). Pending offers resolve as rejections;
// joined calls resolve as the disconnected party leaving.
func (h *Hub) endCallsInvolving(id string) {
	for roomID, session := range h.calls {
		if session.Terminal() || !session.Involves(id) {
			continue
		}

		remaining, _ := session.Counterpart(id)

		switch {
		case session.Reject():
			h.emitTo(remaining.ID, EventCallRejected, nil)
		case session.Leave():
			h.emitTo(remaining.ID, EventUserLeft, remaining.ID)
		}

		delete(h.calls, roomID)

		h.logger.Info().
			Str("room_id", roomID).
			Str("disconnected_id", id).
			Msg("Call ended by disconnect.")
	}
}

// findCallBetween locates the non-terminal session involving both ids.
func (h *Hub) findCallBetween(a, b string) *CallSession {
	for _, session := range h.calls {
		if session.Terminal() {
			continue
		}
		if session.Involves(a) && session.Involves(b) {
			return session
		}
	}
	return nil
}
