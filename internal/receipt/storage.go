package receipt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Storage defines the interface for receipt image storage
type Storage interface {
	// Save saves an image and returns the name it was stored under
	Save(filename string, data []byte) (string, error)

	// Get retrieves an image by the name returned from Save
	Get(name string) ([]byte, error)

	// Delete removes an image
	Delete(name string) error
}

// LocalStorage implements the Storage interface using a flat local directory
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// path keeps every name inside the storage directory
func (l *LocalStorage) path(name string) (string, error) {
	base := filepath.Base(name)
	if base != name || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: invalid storage name %q", ErrInvalidInput, name)
	}
	return filepath.Join(l.basePath, base), nil
}

// Save saves an image to local storage
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	path, err := l.path(filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return filename, nil
}

// Get retrieves an image from local storage
func (l *LocalStorage) Get(name string) ([]byte, error) {
	path, err := l.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("image %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes an image from local storage
func (l *LocalStorage) Delete(name string) error {
	path, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters from phone-generated names and truncates them
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := unsafeFilenameChars.ReplaceAllString(filepath.Ext(filename), "")
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(strings.TrimSpace(base), "_")

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "receipt"
	}
	if ext != "" {
		return base + "." + ext
	}
	return base
}
