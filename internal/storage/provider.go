// Package storage defines the vault file-system abstraction.
package storage

import "time"

// FileInfo is lightweight metadata for one vault file.
type FileInfo struct {
	Path    string // relative to the vault root
	ModTime time.Time
}

// Provider is the interface for vault file operations. All paths are
// relative to the vault root unless stated otherwise.
type Provider interface {
	// List returns metadata for every note file under dir.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// ReadLines returns the file content split into lines.
	ReadLines(path string) ([]string, error)
	// Write atomically writes content to path (temp file + rename).
	Write(path string, content []byte) error
	// WriteBackup writes content atomically after copying the existing file
	// to a .bak sibling; the backup is restored on failure and removed on
	// success.
	WriteBackup(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Abs resolves a relative vault path to an absolute one, rejecting
	// paths that escape the vault root.
	Abs(path string) (string, error)
	// Rel converts an absolute path inside the vault to a root-relative one.
	Rel(abs string) (string, error)
	// Root returns the absolute vault root directory.
	Root() string
}
