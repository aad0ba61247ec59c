package mp4frag

import "encoding/binary"

// buildBox returns a well-formed, header-inclusive-length box with
// the given 4-byte tag and payload.
func buildBox(tag string, payload []byte) []byte {
	if len(tag) != 4 {
		panic("tag must be 4 bytes")
	}
	total := 8 + len(payload)
	box := make([]byte, total)
	binary.BigEndian.PutUint32(box[0:4], uint32(total))
	copy(box[4:8], tag)
	copy(box[8:], payload)
	return box
}

// buildMoovPayload builds a moov payload embedding an avcC box (so
// buildMIME can find the 3 codec profile bytes at avcCIndex+5) and,
// optionally, an mp4a tag anywhere before it.
func buildMoovPayload(profile [3]byte, withAudio bool) []byte {
	var payload []byte
	if withAudio {
		payload = append(payload, []byte("mp4a")...)
		payload = append(payload, 0, 0, 0, 0)
	}
	payload = append(payload, []byte("avcC")...)
	payload = append(payload, 0x01)       // configurationVersion filler byte
	payload = append(payload, profile[:]...) // AVCProfileIndication, profile_compatibility, AVCLevelIndication
	payload = append(payload, 0, 0, 0, 0) // trailing filler
	return payload
}

func ftypBox() []byte {
	return buildBox("ftyp", []byte("isom\x00\x00\x02\x00isomiso2avc1mp41"))
}

func moovBox(profile [3]byte, withAudio bool) []byte {
	return buildBox("moov", buildMoovPayload(profile, withAudio))
}

func moofBox(n int) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i)
	}
	return buildBox("moof", payload)
}

func mdatBox(n int) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(0xAA)
	}
	return buildBox("mdat", payload)
}
