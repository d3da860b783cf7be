package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Permissions for files the tool writes.
const (
	// FilePermissionSecure is used for config files that may carry credentials
	FilePermissionSecure = 0600
	// DirPermissionSecure is used for the config directory
	DirPermissionSecure = 0700
)

// CleanPath rejects traversal and returns an absolute path.
func CleanPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("invalid path: empty")
	}
	if strings.Contains(filepath.ToSlash(path), "../") || strings.HasSuffix(path, "..") {
		return "", fmt.Errorf("invalid path: contains directory traversal")
	}
	return filepath.Abs(filepath.Clean(path))
}

// WriteFileSecure writes data through a temp file in the same directory and
// renames it into place with FilePermissionSecure.
func WriteFileSecure(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermissionSecure); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), FilePermissionSecure); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
