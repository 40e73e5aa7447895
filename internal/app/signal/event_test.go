package signal

import (
	"encoding/json"
	"testing"
)

// --- Wire envelope tests ---

func TestDecodeEnvelope_Valid(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event":"sendMessage","data":{"message":"hi","receiverId":"u1"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Event != EventSendMessage {
		t.Errorf("event = %q", env.Event)
	}

	var payload SendMessagePayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Message != "hi" || payload.ReceiverID != "u1" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestDecodeEnvelope_NoData(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"event":"join"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Event != EventJoin || env.Data != nil {
		t.Errorf("env = %+v", env)
	}
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	cases := []string{
		``,
		`{`,
		`"just a string"`,
		`{"data":{"x":1}}`,
		`{"event":""}`,
	}
	for _, raw := range cases {
		if _, err := DecodeEnvelope([]byte(raw)); err == nil {
			t.Errorf("DecodeEnvelope(%q) should fail", raw)
		}
	}
}

func TestEncodeFrame_RoundTrip(t *testing.T) {
	frame, err := encodeFrame(EventCallRejected, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(frame) != `{"event":"call-rejected"}` {
		t.Errorf("nil-payload frame = %s", frame)
	}

	frame, err = encodeFrame(EventOnlineUsers, []string{"a", "b"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := DecodeEnvelope(frame)
	if err != nil {
		t.Fatalf("decode own frame: %v", err)
	}
	if env.Event != EventOnlineUsers {
		t.Errorf("event = %q", env.Event)
	}
}

// The SPA listens on these names verbatim; this pins the frozen spellings.
func TestEventNames_FrozenSpellings(t *testing.T) {
	if EventTrainerAccept != "trianer-accept" {
		t.Errorf("EventTrainerAccept = %q", EventTrainerAccept)
	}

	b := mustMarshal(t, RejectCallPayload{Sneder: "u1"})
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["sneder"] != "u1" {
		t.Errorf("reject payload keys = %v, want sneder", decoded)
	}
}
