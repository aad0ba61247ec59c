package mp4frag

import "testing"

func TestSubscriberHubAddRemove(t *testing.T) {
	h := newSubscriberHub()
	id, ch := h.add()
	h.publish([]byte("a"))
	if got := <-ch; string(got) != "a" {
		t.Fatalf("got %q, want %q", got, "a")
	}
	h.remove(id)
	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after remove")
	}
}

// A slow subscriber never blocks publish: once its buffer is full the
// oldest pending segment is dropped in favor of the newest.
func TestSubscriberHubDropsOldestWhenFull(t *testing.T) {
	h := newSubscriberHub()
	_, ch := h.add()

	for i := 0; i < subscriberBuffer+2; i++ {
		h.publish([]byte{byte(i)})
	}

	last := byte(subscriberBuffer + 1)
	var got byte
	for i := 0; i < subscriberBuffer; i++ {
		b := <-ch
		got = b[0]
	}
	if got != last {
		t.Fatalf("last received byte = %d, want %d", got, last)
	}
}

func TestSubscriberHubCloseAll(t *testing.T) {
	h := newSubscriberHub()
	_, ch1 := h.add()
	_, ch2 := h.add()
	h.closeAll()
	if _, ok := <-ch1; ok {
		t.Fatal("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatal("expected ch2 closed")
	}
}
