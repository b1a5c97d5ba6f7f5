package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const DriverFilesystem = "fs"

// Filesystem keeps images as files in one directory. Refs are the file path
// "<dir>/<name>", and Open refuses anything outside dir.
type Filesystem struct {
	dir string
}

func NewFilesystem(dir string) (*Filesystem, error) {
	if dir == "" {
		dir = "images"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Filesystem{dir: filepath.Clean(dir)}, nil
}

func (f *Filesystem) Driver() string { return DriverFilesystem }

func sanitizeName(name string) (string, error) {
	base := filepath.Base(filepath.ToSlash(name))
	if strings.TrimSpace(base) == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("invalid image name %q", name)
	}
	return base, nil
}

func (f *Filesystem) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	base, err := sanitizeName(name)
	if err != nil {
		return "", err
	}

	path := filepath.Join(f.dir, base)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("%s: %w", base, ErrExists)
	}
	if err != nil {
		return "", err
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	return filepath.ToSlash(path), nil
}

func (f *Filesystem) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	path := filepath.Clean(filepath.FromSlash(ref))
	rel, err := filepath.Rel(f.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("image ref %q outside %s", ref, f.dir)
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}
