package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// allowedExtensions is the accepted set of image file extensions.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// FsStore implements BlobStore on the local filesystem. Blobs live under
// root/images with uuid-generated names.
type FsStore struct {
	root string
}

// NewFsStore creates the storage root if needed and returns a filesystem
// blob store rooted there.
func NewFsStore(root string) (*FsStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "images"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FsStore{root: root}, nil
}

// Store validates and persists the upload under a generated unique name and
// returns its path relative to the storage root.
func (s *FsStore) Store(_ context.Context, upload Upload) (string, error) {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedImage
	}
	if upload.Size > MaxUploadSize {
		return "", ErrImageTooLarge
	}

	path := filepath.Join("images", uuid.NewString()+ext)
	dst, err := os.Create(filepath.Join(s.root, path))
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}
	defer dst.Close()

	// Size comes from the request and cannot be trusted; enforce the cap on
	// the actual bytes as well.
	written, err := io.Copy(dst, io.LimitReader(upload.Content, MaxUploadSize+1))
	if err != nil {
		_ = os.Remove(filepath.Join(s.root, path))
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if written > MaxUploadSize {
		_ = os.Remove(filepath.Join(s.root, path))
		return "", ErrImageTooLarge
	}
	return filepath.ToSlash(path), nil
}

// Delete removes a stored blob.
func (s *FsStore) Delete(_ context.Context, path string) error {
	resolved, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Open returns a reader over a stored blob.
func (s *FsStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	resolved, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// resolve maps a stored path back to the filesystem, rejecting anything that
// escapes the storage root.
func (s *FsStore) resolve(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", ErrBlobNotFound
	}
	return filepath.Join(s.root, cleaned), nil
}
