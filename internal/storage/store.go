// Package storage serves the published catalog documents from a directory.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CatalogFile is the document the dashboard fetches by default.
const CatalogFile = "jobs_all.json"

var ErrNotFound = errors.New("file not found")

type Store struct {
	baseDir string
}

func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) Dir() string {
	return s.baseDir
}

func (s *Store) filePath(path string) (string, error) {
	// Prevent path traversal
	if path == "" || strings.Contains(path, "..") {
		return "", fmt.Errorf("invalid path: %q", path)
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if !strings.HasPrefix(fullPath, filepath.Clean(s.baseDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s", path)
	}

	return fullPath, nil
}

func (s *Store) Put(path string, content []byte) error {
	fullPath, err := s.filePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	return os.WriteFile(fullPath, content, 0644)
}

// Open returns the file at path with its modification time.
func (s *Store) Open(path string) (*os.File, time.Time, error) {
	fullPath, err := s.filePath(path)
	if err != nil {
		return nil, time.Time{}, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, time.Time{}, fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, time.Time{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	return f, info.ModTime(), nil
}

func (s *Store) Get(path string) ([]byte, error) {
	fullPath, err := s.filePath(path)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	return content, nil
}

// List returns the slash-separated paths under the base directory that start
// with prefix.
func (s *Store) List(prefix string) ([]string, error) {
	files := []string{}
	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if prefix == "" || strings.HasPrefix(relPath, prefix) {
			files = append(files, relPath)
		}

		return nil
	})

	return files, err
}

func (s *Store) Exists(path string) bool {
	fullPath, err := s.filePath(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}
