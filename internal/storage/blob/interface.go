// internal/storage/blob/interface.go
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read and Delete when nothing is stored at
// the path.
var ErrNotFound = errors.New("blob not found")

// Storage is the backend snapshot blobs and manifests are kept in.
// Paths are slash-separated and relative to the backend root.
type Storage interface {
	// Write stores data at the given path, replacing what was there
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under the prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}
