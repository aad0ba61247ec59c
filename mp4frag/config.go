package mp4frag

// Config holds the immutable options a Stream is constructed with.
// Sizes are clamped to the valid range on entry; HLS features stay
// disabled unless HLSBase is set.
type Config struct {
	// HLSBase is the base name used for playlist entries and .m4s
	// lookups (e.g. "test" -> "test0.m4s", "test1.m4s", ...). HLS
	// support (sequence tracking, the HLS FIFO, m3u8 rendering) is
	// disabled entirely when this is empty.
	HLSBase string

	// HLSListSize is the number of entries kept in the HLS playlist
	// FIFO. Clamped to [2, 10]. Defaults to 4 when unset (<=0).
	HLSListSize int

	// HLSListInit, when true, emits an init-mode playlist as soon as
	// the initialization fragment is parsed, before any segment has
	// been published.
	HLSListInit bool

	// BufferListSize is the number of raw segments kept in the
	// rolling buffer FIFO. Clamped to [2, 10]. Defaults to 2 when
	// unset (<=0). Read independently of HLSListSize.
	BufferListSize int

	// MoofHuntLimit bounds the number of MoofHunt attempts after
	// corruption before the stream is considered unrecoverable.
	// Defaults to 40 when zero.
	MoofHuntLimit int
}

const (
	minListSize = 2
	maxListSize = 10

	defaultHLSListSize    = 4
	defaultBufferListSize = 2
	defaultMoofHuntLimit  = 40
)

func clampListSize(n, def int) int {
	if n <= 0 {
		n = def
	}
	if n < minListSize {
		return minListSize
	}
	if n > maxListSize {
		return maxListSize
	}
	return n
}

// normalized returns a copy of c with every size field clamped and
// every unset optional field defaulted, ready for use by a Stream.
func (c Config) normalized() Config {
	c.HLSListSize = clampListSize(c.HLSListSize, defaultHLSListSize)
	c.BufferListSize = clampListSize(c.BufferListSize, defaultBufferListSize)
	if c.MoofHuntLimit <= 0 {
		c.MoofHuntLimit = defaultMoofHuntLimit
	}
	return c
}

func (c Config) hlsEnabled() bool {
	return c.HLSBase != ""
}
