package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	// MaxUploadBytes caps uploads at 10 MiB; the vision API rejects larger images.
	MaxUploadBytes = 10 * 1024 * 1024

	maxAttempts        = 3
	defaultBackoffBase = 500 * time.Millisecond
)

var allowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
}

// Ingestor validates an uploaded floor plan and writes it to the blob store
// with bounded retry. One successful Put per successful call.
type Ingestor struct {
	store       BlobStore
	backoffBase time.Duration
	now         func() time.Time
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithBackoffBase overrides the first retry delay. Tests use this to keep
// the schedule short; the production default is 500ms.
func WithBackoffBase(d time.Duration) Option {
	return func(i *Ingestor) { i.backoffBase = d }
}

// WithClock overrides the timestamp source used for key derivation.
func WithClock(now func() time.Time) Option {
	return func(i *Ingestor) { i.now = now }
}

func NewIngestor(store BlobStore, opts ...Option) *Ingestor {
	ing := &Ingestor{
		store:       store,
		backoffBase: defaultBackoffBase,
		now:         time.Now,
	}
	for _, o := range opts {
		o(ing)
	}
	return ing
}

// Ingest validates the file, derives a storage key and writes the bytes.
// Validation failures return before any storage I/O. Transient write
// failures are retried up to three times with exponential backoff
// (500ms, 1s, 2s); ErrBucketNotFound aborts immediately.
func (i *Ingestor) Ingest(ctx context.Context, data []byte, filename, contentType string, size int64) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if size > MaxUploadBytes {
		return "", ErrFileTooLarge
	}
	if !allowedContentTypes[strings.ToLower(contentType)] {
		return "", ErrUnsupportedType
	}

	key := DeriveKey(i.now(), filename)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := i.store.Put(ctx, key, data, contentType)
		if err == nil {
			return key, nil
		}
		lastErr = err

		// A missing bucket is an operator problem, not a transient fault.
		if errors.Is(err, ErrBucketNotFound) {
			return "", err
		}

		log.Printf("[warn] operation=ingest attempt=%d/%d key=%s error=%v", attempt, maxAttempts, key, err)

		if attempt < maxAttempts {
			delay := i.backoffBase << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	if lastErr == nil {
		lastErr = ErrUploadsExhausted
	}
	return "", fmt.Errorf("upload floor plan after %d attempts: %w", maxAttempts, lastErr)
}

// DeriveKey builds the storage key as "<unix-millis>_<filename>". Distinct
// timestamps keep concurrent uploads of identically named files apart while
// the original filename stays recoverable as a suffix.
func DeriveKey(at time.Time, filename string) string {
	return fmt.Sprintf("%d_%s", at.UnixMilli(), filename)
}

// RecoverFilename strips the timestamp prefix from a storage key. Keys
// without a separator are returned verbatim.
func RecoverFilename(key string) string {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) < 2 {
		return key
	}
	return parts[1]
}
