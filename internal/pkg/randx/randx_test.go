package randx

import (
	"strings"
	"testing"
)

func TestCallRoomID(t *testing.T) {
	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		id, err := CallRoomID()
		if err != nil {
			t.Fatalf("CallRoomID: %v", err)
		}
		if !IsValidCallRoomID(id) {
			t.Fatalf("generated id %q fails its own validation", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q within 100 draws", id)
		}
		seen[id] = struct{}{}
	}
}

func TestIsValidCallRoomID(t *testing.T) {
	if IsValidCallRoomID("") {
		t.Error("empty id should be invalid")
	}
	if IsValidCallRoomID("short") {
		t.Error("short id should be invalid")
	}
	if IsValidCallRoomID(strings.Repeat("a", CallRoomIDLength+1)) {
		t.Error("long id should be invalid")
	}
	if IsValidCallRoomID("abcdefghij-!") {
		t.Error("non-Base62 characters should be invalid")
	}
	if !IsValidCallRoomID(strings.Repeat("a", CallRoomIDLength)) {
		t.Error("well-formed id should be valid")
	}
}

func TestMessageAndNotificationIDs(t *testing.T) {
	if MessageID() == MessageID() {
		t.Error("message ids should not repeat")
	}
	if len(NotificationID()) != 36 {
		t.Errorf("notification id is not a canonical UUID: %q", NotificationID())
	}
}
