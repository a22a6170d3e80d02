package storage

import "time"

// FileInfo describes one vault file.
type FileInfo struct {
	Path      string // relative to the vault root
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the file-store surface the document stores depend on.
// Not-found conditions are reported as apperr.ErrNotFound; everything
// else from the underlying file system is an apperr.ErrIO.
type Provider interface {
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
	Create(path string, content []byte) error
	Exists(path string) bool
	Delete(path string) error
	Rename(oldPath, newPath string) error
	List(dir string) ([]FileInfo, error)
}
