package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
)

// Config selects and configures a backend.
type Config struct {
	Driver string   `mapstructure:"driver"`
	FSRoot string   `mapstructure:"fs_root"`
	S3     S3Config `mapstructure:"s3"`
}

// Open returns the store named by cfg.Driver (fs when empty).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(cfg.Driver)))
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// ReadAll fetches a whole object.
func ReadAll(ctx context.Context, store Store, key string) (Info, []byte, error) {
	info, body, err := store.Get(ctx, key)
	if err != nil {
		return Info{}, nil, err
	}
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	if err != nil {
		return Info{}, nil, fmt.Errorf("read %s: %w", key, err)
	}
	return info, data, nil
}

// PutBytes stores payload under key.
func PutBytes(ctx context.Context, store Store, key string, payload []byte, contentType string, metadata map[string]string) (Info, error) {
	return store.Put(ctx, key, bytes.NewReader(payload), PutOptions{ContentType: contentType, Metadata: metadata})
}
