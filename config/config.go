// Package config loads runtime configuration for the fragmenter service
// from the environment, falling back to a .env file for local
// development the way the rest of this codebase does.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every environment-tunable knob the composition root
// needs to build an encoder, a stream, and the optional archive/ledger/
// status collaborators.
type Config struct {
	// RTMPSource is the input the encoder reads from: an RTMP URL, a
	// local file path, or "-" for stdin, passed straight to ffmpeg.
	RTMPSource string
	// FrameSize is the chunk size in bytes the encoder pump reads at a
	// time from ffmpeg's stdout.
	FrameSize int

	// HLSBase, HLSListSize, HLSListInit, BufferListSize, MoofHuntLimit
	// are passed straight through to mp4frag.Config.
	HLSBase        string
	HLSListSize    int
	HLSListInit    bool
	BufferListSize int
	MoofHuntLimit  int

	// ArchiveBucket and ArchivePrefix configure the S3 archive sink.
	// ArchiveBucket empty disables archival entirely.
	ArchiveBucket string
	ArchivePrefix string

	// DatabaseURL configures the segment ledger. Empty disables it.
	DatabaseURL string

	// HTTPAddr is the address httpapi.Server listens on.
	HTTPAddr string
	// APIToken, when set, is required as a bearer token on every HTTP
	// route except /healthz. Empty disables auth.
	APIToken string
}

// Load reads Config from the environment, loading a .env file first if
// one is present in the working directory.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("warning: no .env file found, using system environment variables")
	}

	cfg := Config{
		RTMPSource:     getenv("RTMP_SOURCE", "-"),
		FrameSize:      getenvInt("FRAME_SIZE", 65536),
		HLSBase:        getenv("HLS_BASE", "stream"),
		HLSListSize:    getenvInt("HLS_LIST_SIZE", 4),
		HLSListInit:    getenvBool("HLS_LIST_INIT", true),
		BufferListSize: getenvInt("BUFFER_LIST_SIZE", 2),
		MoofHuntLimit:  getenvInt("MOOF_HUNT_LIMIT", 40),
		ArchiveBucket:  getenv("ARCHIVE_BUCKET", ""),
		ArchivePrefix:  getenv("ARCHIVE_PREFIX", "segments"),
		DatabaseURL:    getenv("DATABASE_URL", ""),
		HTTPAddr:       getenv("HTTP_ADDR", ":8080"),
		APIToken:       getenv("API_TOKEN", ""),
	}

	if cfg.ArchiveBucket == "" {
		log.Println("warning: ARCHIVE_BUCKET not set, archival disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Println("warning: DATABASE_URL not set, segment ledger disabled")
	}
	if cfg.APIToken == "" {
		log.Println("warning: API_TOKEN not set, admin endpoints are unauthenticated")
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("warning: invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("warning: invalid %s=%q, using default %v", key, v, def)
		return def
	}
	return b
}
