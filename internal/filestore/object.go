package filestore

import (
	"io"
	"time"
)

// ObjectInfo describes a stored document object.
type ObjectInfo struct {
	// Key is the full object path within the bucket
	// (e.g. "client-42/documents/9f3c….pdf").
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	// ContentType is the MIME type (e.g. "application/pdf").
	ContentType string

	// ETag is the object's entity tag / hash, as returned by the backend.
	ETag string

	// LastModified is when the object was last written.
	LastModified time.Time
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}
