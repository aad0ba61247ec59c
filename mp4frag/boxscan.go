package mp4frag

import "encoding/binary"

// Box tags this package cares about. Each is exactly 4 ASCII bytes,
// found at offset 4 of a well-formed ISO-BMFF box header.
var (
	tagFtyp = [4]byte{'f', 't', 'y', 'p'}
	tagMoov = [4]byte{'m', 'o', 'o', 'v'}
	tagMoof = [4]byte{'m', 'o', 'o', 'f'}
	tagMdat = [4]byte{'m', 'd', 'a', 't'}
	tagMfra = [4]byte{'m', 'f', 'r', 'a'}
	tagMp4a = [4]byte{'m', 'p', '4', 'a'}
	tagAvcC = [4]byte{'a', 'v', 'c', 'C'}
)

// startsWith reports whether chunk begins with a box header carrying
// the given 4-byte tag at offset 4.
func startsWith(tag [4]byte, chunk []byte) bool {
	if len(chunk) < 8 {
		return false
	}
	return chunk[4] == tag[0] && chunk[5] == tag[1] && chunk[6] == tag[2] && chunk[7] == tag[3]
}

// lengthAt reads the big-endian, header-inclusive 32-bit box length
// at offset 0. Caller must ensure len(chunk) >= 4.
func lengthAt(chunk []byte) uint32 {
	return binary.BigEndian.Uint32(chunk[:4])
}

// findTag returns the byte offset of the first occurrence of tag
// anywhere in chunk, or -1 if not present. Used for MoofHunt's general
// corruption-recovery search, the mfra end-marker check, and the
// avcC/mp4a lookups in buildMIME; the canonical per-box check is
// startsWith, which is offset-4 exact.
func findTag(tag [4]byte, chunk []byte) int {
	needle := tag[:]
	n := len(chunk)
	m := len(needle)
	if m > n {
		return -1
	}
	for i := 0; i <= n-m; i++ {
		if chunk[i] == needle[0] && chunk[i+1] == needle[1] && chunk[i+2] == needle[2] && chunk[i+3] == needle[3] {
			return i
		}
	}
	return -1
}
