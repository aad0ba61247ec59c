package status

import (
	"encoding/json"
	"testing"

	"fragmenter/mp4frag"
)

func TestPublishHookFuncWithoutClientsIsNoOp(t *testing.T) {
	h := NewHub()
	hook := h.PublishHookFunc()

	// No clients connected: Broadcast (called via the hook) must be a
	// safe no-op rather than blocking or panicking.
	hook(mp4frag.MediaSegment{Sequence: 3, DurationS: 2, TimestampMs: 1000})
}

func TestEventMarshalsExpectedFields(t *testing.T) {
	ev := Event{Type: EventSegment, Sequence: 5, DurationS: 1.5, TimestampMs: 42}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["type"] != "segment" || got["sequence"].(float64) != 5 {
		t.Fatalf("unexpected event json: %v", got)
	}
}

func TestNewHubStartsEmpty(t *testing.T) {
	h := NewHub()
	if len(h.clients) != 0 {
		t.Fatalf("new hub should start with no clients, got %d", len(h.clients))
	}
}
