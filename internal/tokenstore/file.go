package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// File stores the token in a file readable only by the current user.
type File struct {
	path string
}

// NewFile creates a file store at the default location
// (<user cache dir>/autogmail/token).
func NewFile() *File {
	return NewFileAt(DefaultFilePath())
}

// NewFileAt creates a file store at path.
func NewFileAt(path string) *File {
	return &File{path: path}
}

// DefaultFilePath returns the default token file location.
func DefaultFilePath() string {
	return filepath.Join(userCacheDir(), "autogmail", Key)
}

// Path returns the token file location.
func (f *File) Path() string {
	return f.path
}

// Get reads the token file. A missing file means no token.
func (f *File) Get(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Set writes the token file, creating its directory if needed.
func (f *File) Set(_ context.Context, token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Clear removes the token file. Removing a missing file is not an error.
func (f *File) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		return os.TempDir()
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
