package mp4frag

// hlsEntry is one playlist entry. It carries its own segment bytes
// (not the sequence number again) so get_hls_segment/get_hls_named_segment
// can look a segment up directly from the HLS FIFO.
type hlsEntry struct {
	sequence  int
	name      string
	durationS float64
	segment   []byte
}

// hlsFIFO is the bounded, oldest-evicted-first playlist entry ring.
type hlsFIFO struct {
	capacity int
	entries  []hlsEntry
}

func newHLSFIFO(capacity int) *hlsFIFO {
	return &hlsFIFO{capacity: capacity}
}

// push appends entry and evicts from the head until the FIFO is back
// within capacity. It returns the entries evicted, oldest first, so a
// caller can archive them before they're gone.
func (f *hlsFIFO) push(entry hlsEntry) []hlsEntry {
	f.entries = append(f.entries, entry)
	var evicted []hlsEntry
	for len(f.entries) > f.capacity {
		evicted = append(evicted, f.entries[0])
		f.entries = f.entries[1:]
	}
	return evicted
}

func (f *hlsFIFO) snapshot() []hlsEntry {
	out := make([]hlsEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *hlsFIFO) bySequence(sequence int) ([]byte, bool) {
	for _, e := range f.entries {
		if e.sequence == sequence {
			return e.segment, true
		}
	}
	return nil, false
}

func (f *hlsFIFO) byName(name string) ([]byte, bool) {
	for _, e := range f.entries {
		if e.name == name {
			return e.segment, true
		}
	}
	return nil, false
}

// bufferedSegment pairs raw segment bytes with the overall publish
// counter, independent of any HLS sequence, so eviction can still be
// archived/numbered when HLS is disabled.
type bufferedSegment struct {
	seq  int
	data []byte
}

// segmentFIFO is the bounded raw-segment-bytes ring used for
// buffer_list/buffer_concat, independent of HLS.
type segmentFIFO struct {
	capacity int
	segments []bufferedSegment
}

func newSegmentFIFO(capacity int) *segmentFIFO {
	return &segmentFIFO{capacity: capacity}
}

// push appends segment and evicts from the head until within
// capacity, returning evicted segments oldest first.
func (f *segmentFIFO) push(seq int, segment []byte) []bufferedSegment {
	f.segments = append(f.segments, bufferedSegment{seq: seq, data: segment})
	var evicted []bufferedSegment
	for len(f.segments) > f.capacity {
		evicted = append(evicted, f.segments[0])
		f.segments = f.segments[1:]
	}
	return evicted
}

func (f *segmentFIFO) snapshot() [][]byte {
	out := make([][]byte, len(f.segments))
	for i, s := range f.segments {
		out[i] = s.data
	}
	return out
}

func (f *segmentFIFO) concat() []byte {
	total := 0
	for _, s := range f.segments {
		total += len(s.data)
	}
	out := make([]byte, 0, total)
	for _, s := range f.segments {
		out = append(out, s.data...)
	}
	return out
}
