// Package mp4frag implements a streaming transform for fragmented MP4
// (fMP4) byte streams of the form ftyp moov (moof mdat)+ [mfra],
// extracting an initialization fragment, a codec MIME descriptor, and
// emitting each moof+mdat segment to subscribers, while optionally
// maintaining a rolling buffer and an HLS v7 playlist.
package mp4frag

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stream is the public entry point: feed it raw encoder bytes via
// Feed, read back initialization/segment/playlist state via its
// accessors, and Subscribe to receive each new segment as it's
// published. A Stream owns all in-flight box buffers and both
// rolling FIFOs; every accessor either copies small metadata or
// returns an owned copy of the latest bytes, never an alias into
// parser-internal state.
type Stream struct {
	cfg Config
	sm  *stateMachine

	mu          sync.Mutex
	initialized bool
	initialization []byte
	mime        string
	mimeSet     bool
	initBaseMs  int64

	lastSegment []byte
	timestampMs int64
	durationS   float64
	sequence    int
	publishSeq  int

	hls *hlsFIFO
	buf *segmentFIFO

	playlist    string
	playlistSet bool

	hub *subscriberHub

	evictHook    func(MediaSegment)
	publishHook  func(MediaSegment)
	initHook     func(mime string, ok bool)
	recoveryHook func(attempts int)

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs a Stream ready to have Feed called on it. Config
// sizes are clamped per spec before use.
func New(cfg Config) *Stream {
	cfg = cfg.normalized()
	s := &Stream{
		cfg:         cfg,
		hub:         newSubscriberHub(),
		timestampMs: -1,
		durationS:   -1,
		sequence:    -1,
		buf:         newSegmentFIFO(cfg.BufferListSize),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	if cfg.hlsEnabled() {
		s.hls = newHLSFIFO(cfg.HLSListSize)
	}
	s.sm = newStateMachine(cfg.MoofHuntLimit, s.handleMoov, s.handleSegment, s.handleRecovery)
	return s
}

// SetArchiveHook registers a callback invoked once per segment evicted
// from the rolling buffer FIFO, before it is dropped. The hook itself
// is always run on its own goroutine, so it may block (e.g. on a
// slow S3 upload) without stalling parsing or publication.
func (s *Stream) SetArchiveHook(hook func(MediaSegment)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictHook = hook
}

// SetPublishHook registers a callback invoked once per published
// segment, after accessors already reflect it. Used by optional
// collaborators (ledger, status hub). Always run on its own
// goroutine; it may block without stalling the parser.
func (s *Stream) SetPublishHook(hook func(MediaSegment)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishHook = hook
}

// SetInitHook registers a callback invoked once the initialization
// fragment has been parsed, with the MIME type and whether it could be
// resolved (ok=false when avcC was absent). Always run on its own
// goroutine.
func (s *Stream) SetInitHook(hook func(mime string, ok bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initHook = hook
}

// SetRecoveryHook registers a callback invoked once corruption
// recovery (MoofHunt) is engaged. Always run on its own goroutine.
func (s *Stream) SetRecoveryHook(hook func(attempts int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recoveryHook = hook
}

// Feed drives the state machine with one chunk of raw input bytes.
// Chunk boundaries are arbitrary; Feed may be called directly by a
// caller that already owns the read loop, or driven by Run.
func (s *Stream) Feed(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.sm.feed(chunk)
}

// Run pulls chunks from in and feeds them to the parser until in is
// closed or Stop is called. Each received chunk is processed to
// completion before the next read, per the concurrency model: the
// worker is the sole mutator of parser state. A short back-off is
// used when no chunk is immediately available, matching the
// reference implementation's 100ms poll cadence rather than busy
// spinning.
func (s *Stream) Run(in <-chan []byte) {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		case chunk, ok := <-in:
			if !ok {
				return
			}
			s.Feed(chunk)
		case <-time.After(100 * time.Millisecond):
			// no chunk ready; loop back and re-check stopCh instead
			// of blocking indefinitely on an idle source.
		}
	}
}

// Stop requests shutdown and waits for Run to return. Idempotent:
// calling it twice has the same observable effect as calling it once.
func (s *Stream) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.doneCh
	s.hub.closeAll()
}

func (s *Stream) handleMoov(init []byte) {
	mime, ok := buildMIME(init)
	now := time.Now().UnixMilli()

	s.mu.Lock()
	s.initialization = append([]byte(nil), init...)
	s.initialized = true
	if ok {
		s.mime = mime
		s.mimeSet = true
	}
	s.initBaseMs = now
	if s.cfg.hlsEnabled() && s.cfg.HLSListInit {
		s.playlist = renderInitPlaylist(s.cfg.HLSBase)
		s.playlistSet = true
	}
	initHook := s.initHook
	s.mu.Unlock()

	// Run off the parser's own goroutine: a slow or blocking collaborator
	// (e.g. status.Hub.Broadcast) must never stall Feed.
	if initHook != nil {
		go initHook(mime, ok)
	}
}

// handleRecovery is the state machine's onRecovery callback, invoked
// synchronously from the parser's hot path the instant MoofHunt
// engages. The registered hook itself is dispatched on its own
// goroutine so a slow status broadcast can never stall parsing.
func (s *Stream) handleRecovery(attempts int) {
	s.mu.Lock()
	recoveryHook := s.recoveryHook
	s.mu.Unlock()

	if recoveryHook != nil {
		go recoveryHook(attempts)
	}
}

func (s *Stream) handleSegment(segment []byte) {
	now := time.Now().UnixMilli()
	segCopy := append([]byte(nil), segment...)

	s.mu.Lock()
	durationS := math.Max(float64(now-s.initBaseMs)/1000.0, 1.0)
	s.initBaseMs = now
	s.timestampMs = now
	s.durationS = durationS
	s.lastSegment = segCopy
	s.publishSeq++

	hlsSeq := -1
	if s.cfg.hlsEnabled() {
		s.sequence++
		hlsSeq = s.sequence
		name := fmt.Sprintf("%s%d", s.cfg.HLSBase, hlsSeq)
		entry := hlsEntry{sequence: hlsSeq, name: name, durationS: durationS, segment: segCopy}
		// HLS FIFO eviction is not separately archived: the buffer FIFO
		// below evicts on its own independent counter and is the
		// archival source of truth, so a segment never gets archived
		// twice when both FIFOs are enabled.
		s.hls.push(entry)
		s.playlist = renderLivePlaylist(s.cfg.HLSBase, durationS, s.hls.snapshot())
		s.playlistSet = true
	}

	evictedBuf := s.buf.push(s.publishSeq, segCopy)

	mediaSeg := MediaSegment{Bytes: segCopy, TimestampMs: now, DurationS: durationS, Sequence: hlsSeq}
	evictHook := s.evictHook
	publishHook := s.publishHook
	s.mu.Unlock()

	// Both hooks are dispatched fire-and-forget on their own goroutines:
	// archive.Sink does a blocking S3 PutObject and ledger/status do
	// blocking DB writes and WebSocket sends, none of which may stall
	// this, the sole parser worker, or backpressure the encoder's
	// chunk channel.
	if evictHook != nil {
		for _, e := range evictedBuf {
			evicted := MediaSegment{Bytes: e.data, Sequence: e.seq, DurationS: durationS}
			go evictHook(evicted)
		}
	}
	if publishHook != nil {
		go publishHook(mediaSeg)
	}
	s.hub.publish(segCopy)
}

// Initialization returns the ftyp+moov bytes, or nil if moov hasn't
// been parsed yet.
func (s *Stream) Initialization() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil
	}
	return append([]byte(nil), s.initialization...)
}

// MIME returns the codec MIME string, or "" with ok=false if unset
// (no moov parsed yet, or avcC was absent).
func (s *Stream) MIME() (mime string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mime, s.mimeSet
}

// Segment returns the most recently published segment's bytes, or nil
// if none has been published yet.
func (s *Stream) Segment() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSegment == nil {
		return nil
	}
	return append([]byte(nil), s.lastSegment...)
}

// TimestampMs returns the wall-clock timestamp of the most recent
// segment in milliseconds, or -1 before the first segment.
func (s *Stream) TimestampMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timestampMs
}

// DurationS returns the duration of the most recent segment in
// seconds, or -1 before the first segment.
func (s *Stream) DurationS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationS
}

// M3U8 returns the current HLS playlist text, or "" with ok=false if
// HLS is disabled or nothing has been rendered yet.
func (s *Stream) M3U8() (m3u8 string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playlist, s.playlistSet
}

// Sequence returns the HLS sequence of the most recent segment, or -1
// if HLS is disabled or no segment has been published yet.
func (s *Stream) Sequence() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequence
}

// BufferList returns a copy of the raw-segment rolling buffer FIFO in
// order, or nil if empty.
func (s *Stream) BufferList() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.buf.snapshot()
	if len(list) == 0 {
		return nil
	}
	for i, seg := range list {
		list[i] = append([]byte(nil), seg...)
	}
	return list
}

// BufferListConcat returns the buffer FIFO concatenated in order.
func (s *Stream) BufferListConcat() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.concat()
}

// BufferConcat returns Initialization followed by BufferListConcat.
func (s *Stream) BufferConcat() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]byte(nil), s.initialization...)
	out = append(out, s.buf.concat()...)
	return out
}

// GetHLSSegment returns the segment bytes for the given HLS sequence
// number, or nil with ok=false if it's not currently resident in the
// HLS FIFO.
func (s *Stream) GetHLSSegment(sequence int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hls == nil {
		return nil, false
	}
	seg, ok := s.hls.bySequence(sequence)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), seg...), true
}

// GetHLSNamedSegment returns the segment bytes for the given HLS
// playlist entry name (e.g. "test3"), or nil with ok=false.
func (s *Stream) GetHLSNamedSegment(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hls == nil {
		return nil, false
	}
	seg, ok := s.hls.byName(name)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), seg...), true
}

// Subscribe registers a new subscriber and returns its id (for a
// later Unsubscribe) along with a channel that receives each
// subsequently published segment's bytes.
func (s *Stream) Subscribe() (uuid.UUID, <-chan []byte) {
	return s.hub.add()
}

// Unsubscribe removes a subscriber registered via Subscribe and closes
// its channel.
func (s *Stream) Unsubscribe(id uuid.UUID) {
	s.hub.remove(id)
}
