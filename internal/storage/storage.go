// Package storage provides a capability interface for uploaded image blobs
// and a local filesystem implementation.
package storage

import (
	"context"
	"errors"
	"io"
)

// MaxUploadSize is the largest accepted image upload, in bytes.
const MaxUploadSize = 2 << 20

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image exceeds maximum size")
	ErrBlobNotFound     = errors.New("blob not found")
)

// Upload is one incoming image file.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// BlobStore stores uploaded images outside the relational rows. Paths
// returned by Store are opaque references valid for Delete and Open.
type BlobStore interface {
	// Store validates and persists the upload under a generated unique name
	// and returns its path.
	Store(ctx context.Context, upload Upload) (string, error)

	// Delete removes a stored blob.
	// Returns ErrBlobNotFound if no blob exists at the given path.
	Delete(ctx context.Context, path string) error

	// Open returns a reader over a stored blob.
	// Returns ErrBlobNotFound if no blob exists at the given path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
