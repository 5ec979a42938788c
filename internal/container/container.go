// Package container wraps the archive file format used by the store.
//
// A Container is bound to one path and opens the file for the duration
// of each call only. ZIP members cannot be updated or deleted in place,
// so every mutation rewrites the archive into a sibling temp file and
// renames it over the original.
package container

// Container is the archive primitive the store is built on.
type Container interface {
	// Path returns the archive file path
	Path() string

	// Exists reports whether the archive file is present
	Exists() (bool, error)

	// Names lists entry names in archive order. A missing archive has none.
	Names() ([]string, error)

	// ReadEntry returns the bytes of the named entry. ok is false when
	// the archive or the entry is missing.
	ReadEntry(name string) (data []byte, ok bool, err error)

	// Init creates an empty archive, replacing any existing file
	Init() error

	// Create replaces the archive with one holding only this entry
	Create(name string, data []byte) error

	// Append adds an entry after the existing ones. Uniqueness of
	// names is the caller's responsibility.
	Append(name string, data []byte) error

	// Rewrite keeps only the entries for which keep returns true
	Rewrite(keep func(name string) bool) error
}
