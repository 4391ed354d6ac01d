package assets

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when an asset does not exist in a Source.
	ErrNotFound = errors.New("assets: not found")

	// ErrInvalidName is returned for names that could escape a Source.
	ErrInvalidName = errors.New("assets: invalid name")
)

// ObjectInfo describes an opened asset.
type ObjectInfo struct {
	Name        string
	Size        int64
	ContentType string
	ModTime     time.Time
	ETag        string
}

// Source provides asset contents by relative, slash-separated name.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error)
}

// CleanName validates an asset name and returns its canonical form.
// Absolute paths, dot segments, backslashes and NUL bytes are rejected
// before cleaning so traversal attempts are never cleaned into a valid name.
func CleanName(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}
	if strings.IndexByte(name, 0) != -1 {
		return "", ErrInvalidName
	}
	if strings.Contains(name, "\\") {
		return "", ErrInvalidName
	}
	if strings.HasPrefix(name, "/") {
		return "", ErrInvalidName
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "." || seg == ".." {
			return "", ErrInvalidName
		}
	}

	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", ErrInvalidName
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", ErrInvalidName
	}
	return clean, nil
}
