package encoder

import (
	"context"
	"strings"
	"testing"
)

func TestCommandIncludesFragmentedMovflags(t *testing.T) {
	spec := Spec{Source: "rtmp://example/live", Title: "test-title"}
	cmd := spec.command(context.Background())

	joined := strings.Join(cmd.Args, " ")
	for _, want := range []string{
		"-i rtmp://example/live",
		"+frag_keyframe+empty_moov+default_base_moof",
		"title=test-title",
		"pipe:1",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("command args %q missing %q", joined, want)
		}
	}
}

func TestCommandDefaultsTitle(t *testing.T) {
	spec := Spec{Source: "-"}
	cmd := spec.command(context.Background())
	if !strings.Contains(strings.Join(cmd.Args, " "), "title=fragmenter") {
		t.Fatal("expected default title when Spec.Title is empty")
	}
}
