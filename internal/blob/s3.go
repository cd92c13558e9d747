package blob

import (
	"context"

	infraS3 "penguindash/internal/infra/blob/s3"
)

// S3Config configures the S3 backend.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// NewMockS3 returns an S3-backed store whose HTTP transport is an in-memory
// fake. Used by tests in packages that cannot import the infra backend.
func NewMockS3(bucket string) Store { return infraS3.NewMock(bucket) }
