package storage

import (
	"context"
	"errors"
)

// BlobStore is the external keyed binary store the ingestor writes to.
// Implementations classify their own failures: a missing bucket must be
// reported as ErrBucketNotFound so callers never have to inspect message
// text.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (data []byte, contentType string, err error)
}

var (
	// ErrBucketNotFound means the backing bucket has not been provisioned.
	// It is a configuration error and is never retried.
	ErrBucketNotFound = errors.New("storage bucket not configured, provision the bucket before uploading")

	ErrFileTooLarge     = errors.New("file exceeds the 10MB upload limit")
	ErrUnsupportedType  = errors.New("only PNG and JPG image files are supported")
	ErrEmptyFile        = errors.New("no floor plan file provided")
	ErrUploadsExhausted = errors.New("upload failed after retries")
)
