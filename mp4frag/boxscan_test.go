package mp4frag

import "testing"

func TestStartsWith(t *testing.T) {
	box := buildBox("ftyp", []byte("isom"))
	if !startsWith(tagFtyp, box) {
		t.Fatal("expected box to start with ftyp")
	}
	if startsWith(tagMoov, box) {
		t.Fatal("did not expect box to start with moov")
	}
	if startsWith(tagFtyp, box[:7]) {
		t.Fatal("chunks under 8 bytes must never match")
	}
}

func TestLengthAt(t *testing.T) {
	box := buildBox("moof", make([]byte, 100))
	if got := lengthAt(box); got != uint32(len(box)) {
		t.Fatalf("lengthAt = %d, want %d", got, len(box))
	}
}

func TestFindTag(t *testing.T) {
	box := buildBox("moov", append([]byte("padding"), []byte("avcC")...))
	idx := findTag(tagAvcC, box)
	if idx < 0 {
		t.Fatal("expected to find avcC tag")
	}
	if box[idx] != 'a' || box[idx+1] != 'v' || box[idx+2] != 'c' || box[idx+3] != 'C' {
		t.Fatalf("findTag returned wrong offset %d", idx)
	}
	if findTag(tagMfra, box) != -1 {
		t.Fatal("did not expect to find mfra tag")
	}
}
