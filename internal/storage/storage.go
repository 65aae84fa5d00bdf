// Package storage reads and writes font artifacts by locator.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotExist is returned when no artifact is stored under a locator.
var ErrNotExist = errors.New("artifact does not exist")

// Object is an opened artifact. The caller closes Body.
type Object struct {
	Body io.ReadCloser
	Size int64
}

// FileStore holds font artifacts.
type FileStore interface {
	Open(ctx context.Context, locator string) (*Object, error)
	Put(ctx context.Context, locator string, r io.Reader) error
}

// Local stores artifacts under a directory on disk.
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Local{root: dir}, nil
}

// path resolves locator inside the root and rejects escapes.
func (l *Local) path(locator string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimPrefix(locator, "/"))
	if clean == "/" {
		return "", fmt.Errorf("invalid locator %q", locator)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

func (l *Local) Open(ctx context.Context, locator string) (*Object, error) {
	p, err := l.path(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return &Object{Body: f, Size: info.Size()}, nil
}

func (l *Local) Put(ctx context.Context, locator string, r io.Reader) error {
	p, err := l.path(locator)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return f.Close()
}
