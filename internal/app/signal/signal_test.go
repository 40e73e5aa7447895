package signal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"coachlink/internal/app/identity"
)

// Shared helpers for the signal package tests. Handlers are invoked directly
// instead of through the Run loop, which keeps every test deterministic; the
// loop itself only multiplexes channels onto these same handlers.

type fakeMessageStore struct {
	saved chan Message
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{saved: make(chan Message, 16)}
}

func (f *fakeMessageStore) SaveMessage(ctx context.Context, m Message) error {
	f.saved <- m
	return nil
}

type fakeNotificationStore struct {
	saved chan Notification
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{saved: make(chan Notification, 16)}
}

func (f *fakeNotificationStore) SaveNotification(ctx context.Context, n Notification) error {
	f.saved <- n
	return nil
}

func newTestHub() (*Hub, *fakeMessageStore, *fakeNotificationStore) {
	messages := newFakeMessageStore()
	notices := newFakeNotificationStore()
	return NewHub(messages, notices), messages, notices
}

// connectTestClient registers a pump-less client under the given identity.
// Emitted frames queue on c.send where tests read them back.
func connectTestClient(h *Hub, id string, role identity.Role) *Client {
	c := NewClient(h, nil, identity.Participant{ID: id, Role: role})
	h.handleConnect(c)
	return c
}

// takeFrame pops and decodes the next queued outbound frame.
func takeFrame(t *testing.T, c *Client) Envelope {
	t.Helper()

	select {
	case b := <-c.send:
		env, err := DecodeEnvelope(b)
		if err != nil {
			t.Fatalf("queued frame does not decode: %v", err)
		}
		return env
	default:
		t.Fatal("no frame queued")
	}
	return Envelope{}
}

// expectFrame asserts the next queued frame carries the given event.
func expectFrame(t *testing.T, c *Client, event EventName) Envelope {
	t.Helper()

	env := takeFrame(t, c)
	if env.Event != event {
		t.Fatalf("frame event = %q, want %q", env.Event, event)
	}
	return env
}

// drainFrames discards everything currently queued on the channel.
func drainFrames(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func queuedFrames(c *Client) int {
	return len(c.send)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b
}

// awaitMessage waits for the fire-and-forget persistence goroutine.
func awaitMessage(t *testing.T, store *fakeMessageStore) Message {
	t.Helper()

	select {
	case m := <-store.saved:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("message was never persisted")
	}
	return Message{}
}

func awaitNotification(t *testing.T, store *fakeNotificationStore) Notification {
	t.Helper()

	select {
	case n := <-store.saved:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never persisted")
	}
	return Notification{}
}

// noPersistedMessage asserts nothing reached the store in a short window.
func noPersistedMessage(t *testing.T, store *fakeMessageStore) {
	t.Helper()

	select {
	case m := <-store.saved:
		t.Fatalf("unexpected persisted message %q", m.Body)
	case <-time.After(50 * time.Millisecond):
	}
}
