// Package storage provides the record backends that persist agent data.
// Records are addressed by /-separated logical paths and hold text, JSON, or
// raw bytes. Two backends exist: a rooted local directory tree and a single
// bucket of an S3-compatible object store. Backends keep no state between
// calls beyond their configuration.
package storage

import "context"

// Backend reads and writes whole records at logical paths. Implementations
// must be safe for concurrent use across distinct paths. Concurrent writers
// to the same path race and the last accepted write wins.
type Backend interface {
	// ReadText returns the record at path as UTF-8 text.
	ReadText(ctx context.Context, path string) (string, error)
	// WriteText stores content at path, creating any missing parent
	// namespace and replacing existing content.
	WriteText(ctx context.Context, path, content string) error
	// ReadJSON decodes the record at path into v.
	ReadJSON(ctx context.Context, path string, v any) error
	// WriteJSON encodes v and stores it at path.
	WriteJSON(ctx context.Context, path string, v any) error
	// ReadBytes returns the raw record at path.
	ReadBytes(ctx context.Context, path string) ([]byte, error)
	// WriteBytes stores data at path.
	WriteBytes(ctx context.Context, path string, data []byte) error
	// Exists reports whether a record is present. It never fails; an
	// unreadable record reports false.
	Exists(ctx context.Context, path string) bool
	// Delete removes the record at path. Missing records are ignored.
	Delete(ctx context.Context, path string) error
	// ListDir returns the names of the records directly under path,
	// sorted. Nested namespaces and their contents are excluded.
	ListDir(ctx context.Context, path string) ([]string, error)
}
