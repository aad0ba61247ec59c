package mp4frag

import (
	"fmt"
	"log"
)

// buildMIME derives the codec MIME string from the concatenated
// ftyp+moov bytes, per spec section 4.3. It returns ok=false if avcC
// is absent, in which case the initialization is logged as malformed
// and mime is left unset.
func buildMIME(init []byte) (mime string, ok bool) {
	idx := findTag(tagAvcC, init)
	if idx == -1 {
		log.Printf("mp4frag: avcC not found, mime left unset")
		return "", false
	}
	profileStart := idx + 5
	if profileStart+3 > len(init) {
		log.Printf("mp4frag: avcC profile bytes truncated, mime left unset")
		return "", false
	}
	profile := init[profileStart : profileStart+3]

	audio := ""
	if findTag(tagMp4a, init) != -1 {
		audio = ", mp4a.40.2"
	}

	return fmt.Sprintf("video/mp4; codecs='avc1.%02X%02X%02X%s'", profile[0], profile[1], profile[2], audio), true
}
