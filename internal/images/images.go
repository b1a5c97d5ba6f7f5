// Package images stores uploaded product photos and loads them back for
// display. Products reference an image by the opaque ref a Store returns.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrExists   = errors.New("image already exists")
	ErrNotFound = errors.New("image not found")
)

// Store is an image backend. Put must refuse to overwrite an existing name.
type Store interface {
	Driver() string
	Put(ctx context.Context, name string, data []byte, contentType string) (ref string, err error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Upload is a file received from the farmer form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// AllowedExtension reports whether filename carries an accepted image extension.
func AllowedExtension(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

var now = time.Now

// StoredName is the name an upload is saved under: its upload time followed
// by the original base name.
func StoredName(filename string, at time.Time) string {
	return at.Format("20060102150405") + "_" + filepath.Base(filename)
}

// SaveUpload writes the upload to the store. It returns false without error
// when no file was provided.
func SaveUpload(ctx context.Context, store Store, up *Upload) (string, bool, error) {
	if up == nil || up.Filename == "" {
		return "", false, nil
	}

	contentType := up.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(up.Filename)))
	}

	ref, err := store.Put(ctx, StoredName(up.Filename, now()), up.Data, contentType)
	if err != nil {
		return "", false, fmt.Errorf("save upload %s: %w", up.Filename, err)
	}
	return ref, true, nil
}

type Status int

const (
	// Absent means the product has no image.
	Absent Status = iota
	// Present means the bytes decoded as an image.
	Present
	// Unreadable means the ref could not be opened or decoded; Err says why.
	Unreadable
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "absent"
	case Present:
		return "present"
	case Unreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type Result struct {
	Status      Status
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Err         error
}

// Load resolves ref into a Result. It never returns the failure separately;
// callers pick a placeholder for anything not Present.
func Load(ctx context.Context, store Store, ref string) Result {
	if ref == "" {
		return Result{Status: Absent}
	}

	rc, err := store.Open(ctx, ref)
	if err != nil {
		return Result{Status: Unreadable, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Result{Status: Unreadable, Err: fmt.Errorf("read %s: %w", ref, err)}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{Status: Unreadable, Err: fmt.Errorf("decode %s: %w", ref, err)}
	}

	return Result{
		Status:      Present,
		Data:        data,
		ContentType: "image/" + format,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}
}
