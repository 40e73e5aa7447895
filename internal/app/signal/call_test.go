package signal

import (
	"encoding/json"
	"testing"
	"time"

	"coachlink/internal/app/identity"
)

func testParticipants() (identity.Participant, identity.Participant) {
	caller := identity.Participant{ID: "trainer-1", Role: identity.RoleTrainer, Name: "Coach"}
	callee := identity.Participant{ID: "user-1", Role: identity.RoleUser}
	return caller, callee
}

// --- CallSession state machine tests ---

func TestCallSession_AcceptOnce(t *testing.T) {
	caller, callee := testParticipants()
	s := NewCallSession("room-1", caller, callee, "video")

	if s.State != CallOffered {
		t.Fatalf("new session state = %q, want %q", s.State, CallOffered)
	}
	if !s.Accept() {
		t.Fatal("first accept should succeed")
	}
	if s.State != CallAccepted {
		t.Errorf("state = %q, want %q", s.State, CallAccepted)
	}
	if s.Accept() {
		t.Error("second accept should be a no-op")
	}
}

func TestCallSession_ConfirmRequiresAccepted(t *testing.T) {
	caller, callee := testParticipants()
	s := NewCallSession("room-1", caller, callee, "video")

	if s.Confirm() {
		t.Error("confirm straight from offered should fail")
	}

	s.Accept()
	if !s.Confirm() {
		t.Fatal("confirm after accept should succeed")
	}
	if s.State != CallActive {
		t.Errorf("state = %q, want %q", s.State, CallActive)
	}
	if s.Confirm() {
		t.Error("second confirm should be a no-op")
	}
}

func TestCallSession_RejectOnlyWhileOffered(t *testing.T) {
	caller, callee := testParticipants()
	s := NewCallSession("room-1", caller, callee, "video")

	if !s.Reject() {
		t.Fatal("reject of a pending offer should succeed")
	}
	if s.State != CallEnded || s.Reason != EndRejected {
		t.Errorf("state = %q reason = %q, want ended/rejected", s.State, s.Reason)
	}
	if s.Reject() {
		t.Error("second reject should be a no-op")
	}

	s2 := NewCallSession("room-2", caller, callee, "video")
	s2.Accept()
	if s2.Reject() {
		t.Error("reject after accept should be a no-op")
	}
}

func TestCallSession_TimeoutLosesToAccept(t *testing.T) {
	caller, callee := testParticipants()
	s := NewCallSession("room-1", caller, callee, "video")

	s.Accept()
	if s.Timeout() {
		t.Error("timeout firing after accept should be a no-op")
	}
	if s.State != CallAccepted {
		t.Errorf("state = %q, want %q", s.State, CallAccepted)
	}
}

func TestCallSession_LeaveTieBreak(t *testing.T) {
	caller, callee := testParticipants()
	s := NewCallSession("room-1", caller, callee, "video")

	if s.Leave() {
		t.Error("leave while still offered should be a no-op")
	}

	s.Accept()
	s.Confirm()

	if !s.Leave() {
		t.Fatal("first leave should succeed")
	}
	if s.Reason != EndHungUp {
		t.Errorf("reason = %q, want %q", s.Reason, EndHungUp)
	}
	if s.Leave() {
		t.Error("second simultaneous leave should be a no-op")
	}
}

func TestCallSession_Counterpart(t *testing.T) {
	caller, callee := testParticipants()
	s := NewCallSession("room-1", caller, callee, "video")

	other, ok := s.Counterpart(caller.ID)
	if !ok || other.ID != callee.ID {
		t.Errorf("counterpart of caller = %q, want %q", other.ID, callee.ID)
	}
	other, ok = s.Counterpart(callee.ID)
	if !ok || other.ID != caller.ID {
		t.Errorf("counterpart of callee = %q, want %q", other.ID, caller.ID)
	}
	if _, ok := s.Counterpart("stranger"); ok {
		t.Error("counterpart of a stranger should report false")
	}
	if s.Involves("stranger") {
		t.Error("session should not involve a stranger")
	}
}

// --- Hub call negotiation tests ---

func TestHub_FullCallHandshake(t *testing.T) {
	h, _, _ := newTestHub()
	trainer := connectTestClient(h, "trainer-1", identity.RoleTrainer)
	user := connectTestClient(h, "user-1", identity.RoleUser)
	drainFrames(trainer)
	drainFrames(user)

	h.handleOutgoingCall(trainer, mustMarshal(t, OutgoingCallPayload{
		To:          "user-1",
		From:        "trainer-1",
		TrainerName: "Coach",
		CallType:    "video",
		RoomID:      "room-1",
	}))

	env := expectFrame(t, user, EventIncomingCall)
	var offer IncomingCallPayload
	if err := json.Unmarshal(env.Data, &offer); err != nil {
		t.Fatalf("decode incoming call payload: %v", err)
	}
	if offer.RoomID != "room-1" || offer.From != "trainer-1" || offer.CalleeID != "user-1" {
		t.Errorf("offer payload = %+v", offer)
	}

	h.handleAcceptIncomingCall(user, mustMarshal(t, AcceptIncomingCallPayload{
		RoomID:    "room-1",
		UserID:    "user-1",
		TrainerID: "trainer-1",
	}))
	expectFrame(t, trainer, EventAcceptedCall)

	h.handleTrainerCallAccept(trainer, mustMarshal(t, TrainerCallAcceptPayload{
		RoomID:    "room-1",
		TrainerID: "trainer-1",
		To:        "user-1",
	}))
	expectFrame(t, user, EventTrainerAccept)

	session := h.calls["room-1"]
	if session == nil || session.State != CallActive {
		t.Fatalf("session after handshake = %+v, want active", session)
	}

	h.handleLeaveCall(user, mustMarshal(t, LeaveCallPayload{RoomID: "room-1", UserID: "user-1"}))

	env = expectFrame(t, trainer, EventUserLeft)
	var remainingID string
	if err := json.Unmarshal(env.Data, &remainingID); err != nil {
		t.Fatalf("decode user-left payload: %v", err)
	}
	if remainingID != "trainer-1" {
		t.Errorf("user-left payload = %q, want the remaining party's own id", remainingID)
	}
	if _, ok := h.calls["room-1"]; ok {
		t.Error("ended session should be removed from the registry")
	}
}

func TestHub_RejectPendingOffer(t *testing.T) {
	h, _, _ := newTestHub()
	trainer := connectTestClient(h, "trainer-1", identity.RoleTrainer)
	user := connectTestClient(h, "user-1", identity.RoleUser)
	drainFrames(trainer)
	drainFrames(user)

	h.handleOutgoingCall(trainer, mustMarshal(t, OutgoingCallPayload{
		To: "user-1", From: "trainer-1", CallType: "video", RoomID: "room-1",
	}))
	drainFrames(user)

	// The reject payload carries no roomId; the hub matches on the pair.
	h.handleRejectCall(user, mustMarshal(t, RejectCallPayload{
		To:     "trainer-1",
		Sneder: "user-1",
	}))

	expectFrame(t, trainer, EventCallRejected)
	if _, ok := h.calls["room-1"]; ok {
		t.Error("rejected session should be removed")
	}

	// A repeated reject finds no session and emits nothing.
	h.handleRejectCall(user, mustMarshal(t, RejectCallPayload{
		To:     "trainer-1",
		Sneder: "user-1",
	}))
	if queuedFrames(trainer) != 0 {
		t.Errorf("duplicate reject queued %d extra frames", queuedFrames(trainer))
	}
}

func TestHub_OfferTimeoutFiresOnce(t *testing.T) {
	h, _, _ := newTestHub()
	trainer := connectTestClient(h, "trainer-1", identity.RoleTrainer)
	user := connectTestClient(h, "user-1", identity.RoleUser)
	drainFrames(trainer)
	drainFrames(user)

	h.offerTTL = 10 * time.Millisecond
	h.handleOutgoingCall(trainer, mustMarshal(t, OutgoingCallPayload{
		To: "user-1", From: "trainer-1", CallType: "video", RoomID: "room-1",
	}))
	drainFrames(user)

	select {
	case roomID := <-h.timeouts:
		h.handleOfferTimeout(roomID)
	case <-time.After(2 * time.Second):
		t.Fatal("offer timer never fired")
	}

	expectFrame(t, trainer, EventCallRejected)
	expectFrame(t, user, EventCallRejected)
	if _, ok := h.calls["room-1"]; ok {
		t.Error("timed-out session should be removed")
	}

	// A late duplicate fire is a no-op.
	h.handleOfferTimeout("room-1")
	if queuedFrames(trainer) != 0 || queuedFrames(user) != 0 {
		t.Error("duplicate timeout queued extra frames")
	}
}

func TestHub_AcceptCancelsOfferTimer(t *testing.T) {
	h, _, _ := newTestHub()
	trainer := connectTestClient(h, "trainer-1", identity.RoleTrainer)
	user := connectTestClient(h, "user-1", identity.RoleUser)
	drainFrames(trainer)
	drainFrames(user)

	h.handleOutgoingCall(trainer, mustMarshal(t, OutgoingCallPayload{
		To: "user-1", From: "trainer-1", CallType: "video", RoomID: "room-1",
	}))
	drainFrames(user)

	h.handleAcceptIncomingCall(user, mustMarshal(t, AcceptIncomingCallPayload{
		RoomID: "room-1", UserID: "user-1", TrainerID: "trainer-1",
	}))
	drainFrames(trainer)

	// Even if the timer had already fired into the queue, the re-check on
	// the loop keeps the accepted session alive.
	h.handleOfferTimeout("room-1")

	session := h.calls["room-1"]
	if session == nil || session.State != CallAccepted {
		t.Fatalf("session = %+v, want accepted and still registered", session)
	}
	if queuedFrames(trainer) != 0 || queuedFrames(user) != 0 {
		t.Error("stale timeout should not emit anything")
	}
}

func TestHub_DuplicateOfferIgnored(t *testing.T) {
	h, _, _ := newTestHub()
	trainer := connectTestClient(h, "trainer-1", identity.RoleTrainer)
	user := connectTestClient(h, "user-1", identity.RoleUser)
	drainFrames(trainer)
	drainFrames(user)

	offer := mustMarshal(t, OutgoingCallPayload{
		To: "user-1", From: "trainer-1", CallType: "video", RoomID: "room-1",
	})
	h.handleOutgoingCall(trainer, offer)
	h.handleOutgoingCall(trainer, offer)

	if got := queuedFrames(user); got != 1 {
		t.Errorf("callee received %d offers, want 1", got)
	}
}

func TestHub_DisconnectEndsPendingOffer(t *testing.T) {
	h, _, _ := newTestHub()
	trainer := connectTestClient(h, "trainer-1", identity.RoleTrainer)
	user := connectTestClient(h, "user-1", identity.RoleUser)
	drainFrames(trainer)
	drainFrames(user)

	h.handleOutgoingCall(trainer, mustMarshal(t, OutgoingCallPayload{
		To: "user-1", From: "trainer-1", CallType: "video", RoomID: "room-1",
	}))
	drainFrames(user)

	h.handleDisconnect(trainer)

	// Presence shrink first, then the forced rejection.
	expectFrame(t, user, EventOnlineUsers)
	expectFrame(t, user, EventCallRejected)
	if _, ok := h.calls["room-1"]; ok {
		t.Error("session should be cleaned up on disconnect")
	}
}

func TestHub_DisconnectEndsActiveCall(t *testing.T) {
	h, _, _ := newTestHub()
	trainer := connectTestClient(h, "trainer-1", identity.RoleTrainer)
	user := connectTestClient(h, "user-1", identity.RoleUser)
	drainFrames(trainer)
	drainFrames(user)

	h.handleOutgoingCall(trainer, mustMarshal(t, OutgoingCallPayload{
		To: "user-1", From: "trainer-1", CallType: "video", RoomID: "room-1",
	}))
	h.handleAcceptIncomingCall(user, mustMarshal(t, AcceptIncomingCallPayload{
		RoomID: "room-1", UserID: "user-1", TrainerID: "trainer-1",
	}))
	h.handleTrainerCallAccept(trainer, mustMarshal(t, TrainerCallAcceptPayload{
		RoomID: "room-1", TrainerID: "trainer-1", To: "user-1",
	}))
	drainFrames(trainer)
	drainFrames(user)

	h.handleDisconnect(user)

	expectFrame(t, trainer, EventOnlineUsers)
	expectFrame(t, trainer, EventUserLeft)
	if _, ok := h.calls["room-1"]; ok {
		t.Error("session should be cleaned up on disconnect")
	}
}

func TestHub_OfferToOfflineCalleeStillTracked(t *testing.T) {
	h, _, _ := newTestHub()
	trainer := connectTestClient(h, "trainer-1", identity.RoleTrainer)
	drainFrames(trainer)

	h.handleOutgoingCall(trainer, mustMarshal(t, OutgoingCallPayload{
		To: "user-offline", From: "trainer-1", CallType: "video", RoomID: "room-1",
	}))

	session := h.calls["room-1"]
	if session == nil || session.State != CallOffered {
		t.Fatal("offer to an offline callee should still open a session")
	}

	// It resolves through the ordinary timeout path.
	h.handleOfferTimeout("room-1")
	expectFrame(t, trainer, EventCallRejected)
}
