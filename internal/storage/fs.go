// Package storage provides the vault file store for diagram documents.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/DavidROliverBA/bac4-sub000/internal/apperr"
	"github.com/DavidROliverBA/bac4-sub000/internal/checksum"
)

// DocumentSuffix marks diagram view documents in the vault.
const DocumentSuffix = ".diagram.json"

// GraphSuffix marks node/graph sibling documents (split generation) and
// the global graph document.
const GraphSuffix = ".graph.json"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to vault directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.NotFound("file", path)
		}
		return nil, apperr.IO("read", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.IO("mkdir", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".bac4-tmp-*")
	if err != nil {
		return apperr.IO("create temp", path, err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return apperr.IO("write temp", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return apperr.IO("fsync", path, err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.IO("close temp", path, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return apperr.IO("rename", path, err)
	}
	success = true
	return nil
}

// Create writes content only if the path does not exist yet.
func (f *FS) Create(path string, content []byte) error {
	if f.Exists(path) {
		return fmt.Errorf("storage: %s: %w", path, apperr.ErrConflict)
	}
	return f.Write(path, content)
}

// Exists reports whether a vault file is present.
func (f *FS) Exists(path string) bool {
	abs, err := f.safePath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && !info.IsDir()
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.NotFound("file", path)
		}
		return apperr.IO("delete", path, err)
	}
	return nil
}

// Rename moves a file within the vault.
func (f *FS) Rename(oldPath, newPath string) error {
	absOld, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absOld); errors.Is(err, os.ErrNotExist) {
		return apperr.NotFound("file", oldPath)
	}
	dir := filepath.Dir(absNew)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.IO("mkdir for rename", newPath, err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return apperr.IO("rename", oldPath, err)
	}
	return nil
}

// List walks dir (relative to root) and returns metadata for every
// .json document in the vault.
func (f *FS) List(dir string) ([]FileInfo, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []FileInfo
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, FileInfo{
			Path:      rel,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, apperr.IO("list", dir, err)
	}
	return out, nil
}

// ListDiagrams returns metadata for every diagram view document.
func (f *FS) ListDiagrams() ([]FileInfo, error) {
	all, err := f.List("")
	if err != nil {
		return nil, err
	}
	var out []FileInfo
	for _, fi := range all {
		if strings.HasSuffix(fi.Path, DocumentSuffix) {
			out = append(out, fi)
		}
	}
	return out, nil
}

// SiblingGraphPath derives the node-file path for a split-generation
// view document by suffix substitution.
func SiblingGraphPath(viewPath string) string {
	if strings.HasSuffix(viewPath, DocumentSuffix) {
		return strings.TrimSuffix(viewPath, DocumentSuffix) + GraphSuffix
	}
	return viewPath + GraphSuffix
}
