// Package storage keeps candidate documents (CVs, intake profiles) on disk.
package storage

import "time"

// Document describes one stored file.
type Document struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	ContentType string    `json:"content_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Provider is the interface for document file operations. Paths are
// relative to the provider root.
type Provider interface {
	// List returns every file under dir whose name ends in ext ("" for all).
	List(dir, ext string) ([]Document, error)
	// Stat describes a single file.
	Stat(path string) (Document, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
