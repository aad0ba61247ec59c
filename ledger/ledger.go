// Package ledger records one row per published segment to Postgres,
// so archived segments in S3 can be looked up by sequence and
// timestamp after the in-memory rolling buffer has moved on.
package ledger

import (
	"database/sql"
	"fmt"
	"log"
	"net/url"

	_ "github.com/lib/pq"

	"fragmenter/mp4frag"
)

// Ledger wraps a Postgres connection recording segment metadata. A nil
// *Ledger is a valid no-op so callers can wire the publish hook
// unconditionally.
type Ledger struct {
	db *sql.DB
}

// Open connects to dsn and ensures the segments table exists. If dsn
// is empty, Open returns (nil, nil): the ledger stays disabled without
// a separate feature flag.
func Open(dsn string) (*Ledger, error) {
	if dsn == "" {
		return nil, nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: invalid database URL: %w", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ledger: connect to database: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("ledger: create tables: %w", err)
	}

	log.Printf("ledger: connected to database at %s", parsed.Host)
	return &Ledger{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS segments (
			id SERIAL PRIMARY KEY,
			stream_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			duration_s DOUBLE PRECISION NOT NULL,
			timestamp_ms BIGINT NOT NULL,
			byte_size INTEGER NOT NULL,
			archive_key TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_segments_stream_sequence
		ON segments (stream_id, sequence)
	`)
	return err
}

// Entry is one row recorded per published segment.
type Entry struct {
	StreamID   string
	Sequence   int
	DurationS  float64
	TimestampMs int64
	ByteSize   int
	ArchiveKey string
}

// Record inserts one row for a published segment. Calling Record on a
// nil *Ledger is a no-op.
func (l *Ledger) Record(e Entry) error {
	if l == nil {
		return nil
	}
	_, err := l.db.Exec(`
		INSERT INTO segments (stream_id, sequence, duration_s, timestamp_ms, byte_size, archive_key)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.StreamID, e.Sequence, e.DurationS, e.TimestampMs, e.ByteSize, e.ArchiveKey)
	if err != nil {
		return fmt.Errorf("ledger: insert segment: %w", err)
	}
	return nil
}

// Recent returns the most recently recorded entries for streamID, most
// recent first, capped at limit rows.
func (l *Ledger) Recent(streamID string, limit int) ([]Entry, error) {
	if l == nil {
		return nil, nil
	}
	rows, err := l.db.Query(`
		SELECT stream_id, sequence, duration_s, timestamp_ms, byte_size, archive_key
		FROM segments
		WHERE stream_id = $1
		ORDER BY sequence DESC
		LIMIT $2
	`, streamID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.StreamID, &e.Sequence, &e.DurationS, &e.TimestampMs, &e.ByteSize, &e.ArchiveKey); err != nil {
			return nil, fmt.Errorf("ledger: scan row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection. Safe to call on a
// nil *Ledger.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

// PublishHookFunc adapts Record into the func(MediaSegment) shape
// mp4frag.Stream.SetPublishHook expects, logging failures since the
// ledger must never block publication.
func (l *Ledger) PublishHookFunc(streamID string) func(mp4frag.MediaSegment) {
	return func(seg mp4frag.MediaSegment) {
		err := l.Record(Entry{
			StreamID:    streamID,
			Sequence:    seg.Sequence,
			DurationS:   seg.DurationS,
			TimestampMs: seg.TimestampMs,
			ByteSize:    len(seg.Bytes),
		})
		if err != nil {
			log.Printf("ledger: %v", err)
		}
	}
}
