// Package storage defines the workspace file-system abstraction.
package storage

import (
	"io/fs"
	"time"
)

// FileMeta is a lightweight listing entry used for index syncing.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileEntry is one scanned .mdc file with its raw content.
type FileEntry struct {
	Path    string    `json:"filePath"`
	Content []byte    `json:"content"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
}

// ScanResult aggregates a recursive directory scan. Per-entry read
// failures land in Errors without aborting the scan.
type ScanResult struct {
	Files      []FileEntry `json:"files"`
	TotalFiles int         `json:"totalFiles"`
	Errors     []string    `json:"errors"`
}

// Provider is the interface for workspace file operations. All paths
// are relative to the workspace root.
type Provider interface {
	// List returns metadata for every .mdc file under dir.
	List(dir string) ([]FileMeta, error)
	// Scan recursively collects .mdc files with content under dir,
	// skipping hidden directories.
	Scan(dir string) (*ScanResult, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// Exists reports whether path exists.
	Exists(path string) bool
	// Abs resolves path against the workspace root, rejecting escapes.
	Abs(path string) (string, error)
	// Root returns the absolute workspace root.
	Root() string
}
