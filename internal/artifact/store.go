// Package artifact manages the directory that holds generated tables.
//
// Files are written to a temporary name and renamed into place, so readers
// never observe a partial artifact and a failed write leaves nothing
// behind. Lookups by name are confined to the directory.
package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidName is returned for names that are empty, contain a path
	// separator or would resolve outside the directory.
	ErrInvalidName = errors.New("invalid filename")

	// ErrNotFound is returned when no artifact with the name exists.
	ErrNotFound = errors.New("artifact not found")
)

const tempPrefix = ".tmp-"

// Store is a directory of artifacts.
type Store struct {
	dir string
}

// New opens the store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the absolute directory path.
func (s *Store) Dir() string { return s.dir }

// Write creates or replaces the artifact name with the bytes produced by
// fill and returns its absolute path.
func (s *Store) Write(name string, fill func(w io.Writer) error) (path string, err error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	dst := filepath.Join(s.dir, name)
	tmp := filepath.Join(s.dir, tempPrefix+uuid.NewString())

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = fill(bw); err != nil {
		return "", err
	}
	if err = bw.Flush(); err != nil {
		return "", fmt.Errorf("flush artifact: %w", err)
	}
	if err = f.Sync(); err != nil {
		return "", fmt.Errorf("sync artifact: %w", err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err = os.Rename(tmp, dst); err != nil {
		return "", fmt.Errorf("rename artifact: %w", err)
	}
	return dst, nil
}

// Resolve returns the absolute path of an existing artifact. Names that
// escape the directory fail with ErrInvalidName; missing files and
// directories fail with ErrNotFound.
func (s *Store) Resolve(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidName
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return path, nil
}

// validateName accepts a single path element. Temporary files are never
// addressable.
func validateName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return ErrInvalidName
	case strings.ContainsAny(name, `/\`) || strings.Contains(name, ".."):
		return ErrInvalidName
	case strings.HasPrefix(name, tempPrefix):
		return ErrInvalidName
	case strings.ContainsRune(name, 0):
		return ErrInvalidName
	}
	return nil
}
