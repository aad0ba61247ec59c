package mp4frag

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// renderInitPlaylist renders the init-mode m3u8: emitted once the
// initialization fragment exists but before any segment has been
// published, when HLSListInit is set.
func renderInitPlaylist(hlsBase string) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:7\n")
	b.WriteString("#EXT-X-TARGETDURATION:1\n")
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	fmt.Fprintf(&b, "#EXT-X-MAP:URI=\"init-%s.mp4\"\n", hlsBase)
	return b.String()
}

// renderLivePlaylist renders the live-mode m3u8 from the current HLS
// FIFO contents, with the target duration reflecting the most
// recently published segment.
func renderLivePlaylist(hlsBase string, lastDurationS float64, entries []hlsEntry) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:7\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", int(math.Round(lastDurationS)))
	mediaSequence := 0
	if len(entries) > 0 {
		mediaSequence = entries[0].sequence
	}
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d\n", mediaSequence)
	fmt.Fprintf(&b, "#EXT-X-MAP:URI=\"init-%s.mp4\"\n", hlsBase)
	for _, e := range entries {
		fmt.Fprintf(&b, "#EXTINF:%s\n", strconv.FormatFloat(e.durationS, 'f', -1, 64))
		b.WriteString(e.name)
		b.WriteString("\n")
	}
	return b.String()
}
