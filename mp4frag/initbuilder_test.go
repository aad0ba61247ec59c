package mp4frag

import "testing"

func TestBuildMIMEVideoOnly(t *testing.T) {
	init := append(ftypBox(), moovBox([3]byte{0x42, 0xC0, 0x1E}, false)...)
	mime, ok := buildMIME(init)
	if !ok || mime != "video/mp4; codecs='avc1.42C01E'" {
		t.Fatalf("buildMIME() = %q, %v", mime, ok)
	}
}

func TestBuildMIMEMissingAvcC(t *testing.T) {
	init := buildBox("moov", []byte("no codec box here"))
	if _, ok := buildMIME(init); ok {
		t.Fatal("expected ok=false when avcC is absent")
	}
}

func TestBuildMIMETruncatedProfile(t *testing.T) {
	// avcC tag present but fewer than 3 profile bytes follow idx+5.
	payload := append([]byte("avcC"), 0x01, 0xAA)
	init := buildBox("moov", payload)
	if _, ok := buildMIME(init); ok {
		t.Fatal("expected ok=false when profile bytes are truncated")
	}
}
