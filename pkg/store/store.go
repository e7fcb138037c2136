// Package store owns the storage directory: it writes decoded file
// bytes to disk, reads them back as encoded payloads, and deletes them.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/filedrop/filedrop/pkg/encode"
	"github.com/filedrop/filedrop/pkg/types"
)

// Store persists file bytes under a single base directory.
type Store struct {
	fs     afero.Fs
	base   string
	logger *log.Logger
}

// New creates a store rooted at dir. The directory is created lazily on
// first write.
func New(fs afero.Fs, dir string, logger *log.Logger) *Store {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Store{fs: fs, base: dir, logger: logger}
}

// Dir returns the absolute storage directory.
func (s *Store) Dir() string {
	return s.base
}

// Write persists data under the given file name and returns the
// absolute path written. A name collision overwrites; callers key names
// by record id to avoid that.
func (s *Store) Write(name string, data []byte) (string, error) {
	if err := s.fs.MkdirAll(s.base, 0o755); err != nil {
		return "", fmt.Errorf("create storage directory %s: %w", s.base, err)
	}

	path := filepath.Join(s.base, name)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	s.logger.Debug("file written", "path", path, "size", len(data))
	return path, nil
}

// Read returns the encoded payload of the file at path. Missing paths
// and directories report types.ErrNotFound.
func (s *Store) Read(path string) (string, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("read %s: %w", path, types.ErrNotFound)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("read %s: not a regular file: %w", path, types.ErrNotFound)
	}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return encode.Encode(data), nil
}

// Delete removes the file at path. A path that is already gone is
// success, not an error.
func (s *Store) Delete(path string) error {
	if err := s.fs.Remove(path); err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("delete skipped, file already gone", "path", path)
			return nil
		}
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path resolves to a readable regular file.
func (s *Store) Exists(path string) bool {
	info, err := s.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
