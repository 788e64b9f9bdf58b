// Package storage defines the vault file-system abstraction.
package storage

import "io/fs"

// Provider is the interface for vault file operations.
// Every path is relative to the vault root.
type Provider interface {
	// Root returns the absolute vault directory.
	Root() string
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// Move renames oldPath to newPath. It never overwrites an existing file.
	Move(oldPath, newPath string) error
}
