package mp4frag

import (
	"sync"

	"github.com/google/uuid"
)

// MediaSegment is a snapshot of one published moof+mdat pair, safe to
// retain by a caller (the parser never hands out aliasing references —
// every MediaSegment returned from a public accessor owns its own
// copy of Bytes).
type MediaSegment struct {
	Bytes       []byte
	TimestampMs int64
	DurationS   float64
	// Sequence is the HLS sequence (-1 when HLS is disabled) for
	// published segments; for segments passed to the archive hook it is
	// the buffer FIFO's 1-based publish counter instead.
	Sequence int
}

const subscriberBuffer = 4

// subscription is one subscriber's bounded delivery channel.
type subscription struct {
	id uuid.UUID
	ch chan []byte
}

// subscriberHub fans published segment bytes out to zero or more
// subscribers without ever blocking the publisher: a subscriber whose
// channel is full has its oldest queued segment dropped, grounded on
// the teacher's client-map fan-out in services/broadcaster.go,
// generalized from an unbounded "best effort write" to an explicit
// bounded drop-oldest channel per subscriber.
type subscriberHub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*subscription
}

func newSubscriberHub() *subscriberHub {
	return &subscriberHub{subs: make(map[uuid.UUID]*subscription)}
}

func (h *subscriberHub) add() (uuid.UUID, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.New()
	sub := &subscription{id: id, ch: make(chan []byte, subscriberBuffer)}
	h.subs[id] = sub
	return id, sub.ch
}

func (h *subscriberHub) remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		close(sub.ch)
		delete(h.subs, id)
	}
}

func (h *subscriberHub) publish(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- data:
		default:
			// slow subscriber: drop the oldest pending segment, then
			// deliver the new one. Never block the publisher.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- data:
			default:
			}
		}
	}
}

func (h *subscriberHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}
