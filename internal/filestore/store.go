// Package filestore defines the object storage interface used for client
// document uploads (photos, certificates, ID proofs).
//
// All providers implement the Store interface. Callers depend only on this
// package — never on a specific provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	err = store.PutObject(ctx, cfg.Bucket, key, r, size, "application/pdf")
package filestore

import (
	"context"
	"io"
	"time"
)

// Store is the interface all document storage providers must implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// EnsureBucket creates bucket if it does not already exist.
	// Called once at startup for the configured document bucket.
	EnsureBucket(ctx context.Context, bucket string) error

	// PutObject uploads the content read from r to key inside bucket.
	// size may be -1 when the length is not known in advance.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// GetObject opens a streaming handle to the object at key inside bucket.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, bucket, key string) (Object, error)

	// StatObject returns metadata for the object at key inside bucket
	// without downloading its content.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// RemoveObject deletes the object at key inside bucket.
	// Removing a key that does not exist is not an error.
	RemoveObject(ctx context.Context, bucket, key string) error

	// PresignGetURL returns a time-limited URL that allows the holder to
	// download the object at key inside bucket without credentials.
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
