// Package archive ships evicted rolling-buffer segments off to S3 so
// they outlive the in-memory ring, once it's about to be overwritten.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"fragmenter/mp4frag"
)

// Sink uploads each archived segment to bucket/prefix/streamID/segNNNNNN.m4s
// (the segment's Sequence, zero-padded to six digits).
// A nil *Sink is a valid no-op: Archive on a nil receiver returns
// immediately, so callers can wire the hook unconditionally and let
// config decide whether archival is active.
type Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// New constructs a Sink backed by the default AWS SDK credential chain,
// the same way the rest of this codebase builds its S3 clients. If
// bucket is empty, New returns (nil, nil): archival stays disabled
// without the caller needing a separate feature flag.
func New(ctx context.Context, bucket, prefix, region string) (*Sink, error) {
	if bucket == "" {
		return nil, nil
	}
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("archive: unable to load SDK config: %w", err)
	}

	log.Printf("archive: uploading to s3://%s/%s in region %s", bucket, prefix, region)
	return &Sink{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Archive uploads one evicted segment. It is meant to be called from a
// mp4frag.Stream archive hook, which requires it never block the
// publisher for long; callers should invoke it from its own goroutine
// per segment rather than inline on the parser's hot path.
func (s *Sink) Archive(ctx context.Context, streamID string, seg mp4frag.MediaSegment) error {
	if s == nil {
		return nil
	}
	key := fmt.Sprintf("%s/%s/seg%06d.m4s", s.prefix, streamID, seg.Sequence)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(seg.Bytes),
		ContentType: aws.String("video/mp4"),
	})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	return nil
}

// HookFunc adapts Archive into the func(MediaSegment) shape
// mp4frag.Stream.SetArchiveHook expects, logging (rather than
// propagating) failures since archival is best-effort.
func (s *Sink) HookFunc(streamID string) func(mp4frag.MediaSegment) {
	return func(seg mp4frag.MediaSegment) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Archive(ctx, streamID, seg); err != nil {
			log.Printf("archive: %v", err)
		}
	}
}
