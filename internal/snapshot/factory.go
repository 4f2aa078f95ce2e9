package snapshot

import (
	"context"
	"fmt"

	"katalog/internal/config"
	"katalog/internal/katalog"
)

// NewSinkFromConfig creates a Sink based on the snapshot config type.
func NewSinkFromConfig(ctx context.Context, cfg config.SnapshotConfig, clock katalog.Clock) (Sink, error) {
	switch cfg.Type {
	case "memory":
		return NewMemorySink(clock), nil
	case "s3":
		return NewS3Sink(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case "filesystem", "":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem snapshot sink requires root to be set")
		}
		return NewFileSystemSink(cfg.Root)
	default:
		return nil, fmt.Errorf("unknown snapshot type: %s", cfg.Type)
	}
}

// NewFromConfig builds a Snapshotter with the sink and the age keys named in
// cfg. Encryption is enabled by recipients; decryption by an identity path.
func NewFromConfig(ctx context.Context, cfg config.SnapshotConfig, logger katalog.Logger, clock katalog.Clock) (*Snapshotter, error) {
	sink, err := NewSinkFromConfig(ctx, cfg, clock)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithLogger(logger)}
	if clock != nil {
		opts = append(opts, WithClock(clock))
	}
	if len(cfg.AgeRecipients) > 0 {
		enc, err := NewAgeEncryptor(cfg.AgeRecipients)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithEncryptor(enc))
	}
	if cfg.AgeIdentityPath != "" {
		dec, err := LoadAgeDecryptor(cfg.AgeIdentityPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithDecryptor(dec))
	}
	return New(sink, opts...), nil
}
