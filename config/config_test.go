package config

import (
	"os"
	"testing"
)

func withEnv(t *testing.T, kv map[string]string, fn func()) {
	t.Helper()
	for k, v := range kv {
		old, had := os.LookupEnv(k)
		os.Setenv(k, v)
		defer func(k, old string, had bool) {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		}(k, old, had)
	}
	fn()
}

func TestLoadDefaults(t *testing.T) {
	withEnv(t, map[string]string{
		"HLS_BASE":         "",
		"HLS_LIST_SIZE":    "",
		"BUFFER_LIST_SIZE": "",
		"ARCHIVE_BUCKET":   "",
		"DATABASE_URL":     "",
		"API_TOKEN":        "",
	}, func() {
		cfg := Load()
		if cfg.HLSBase != "stream" {
			t.Fatalf("HLSBase = %q, want %q", cfg.HLSBase, "stream")
		}
		if cfg.HLSListSize != 4 {
			t.Fatalf("HLSListSize = %d, want 4", cfg.HLSListSize)
		}
		if cfg.HTTPAddr != ":8080" {
			t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
		}
	})
}

func TestLoadOverridesFromEnv(t *testing.T) {
	withEnv(t, map[string]string{
		"HLS_BASE":      "mystream",
		"HLS_LIST_SIZE": "7",
		"HLS_LIST_INIT": "false",
		"FRAME_SIZE":    "2048",
	}, func() {
		cfg := Load()
		if cfg.HLSBase != "mystream" {
			t.Fatalf("HLSBase = %q, want %q", cfg.HLSBase, "mystream")
		}
		if cfg.HLSListSize != 7 {
			t.Fatalf("HLSListSize = %d, want 7", cfg.HLSListSize)
		}
		if cfg.HLSListInit != false {
			t.Fatal("HLSListInit = true, want false")
		}
		if cfg.FrameSize != 2048 {
			t.Fatalf("FrameSize = %d, want 2048", cfg.FrameSize)
		}
	})
}

func TestGetenvIntFallsBackOnInvalidValue(t *testing.T) {
	withEnv(t, map[string]string{"MOOF_HUNT_LIMIT": "not-a-number"}, func() {
		cfg := Load()
		if cfg.MoofHuntLimit != 40 {
			t.Fatalf("MoofHuntLimit = %d, want default 40", cfg.MoofHuntLimit)
		}
	})
}
