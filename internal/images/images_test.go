package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, G: 30, B: 30, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fixedClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestAllowedExtension(t *testing.T) {
	for _, name := range []string{"a.png", "a.jpg", "a.JPEG", "dir/b.Png"} {
		assert.True(t, AllowedExtension(name), name)
	}
	for _, name := range []string{"a.gif", "a", "a.png.exe", ".pngx"} {
		assert.False(t, AllowedExtension(name), name)
	}
}

func TestStoredName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "20240309140507_okra.png", StoredName("C:/Users/asha/okra.png", at))
	assert.Equal(t, "20240309140507_okra.png", StoredName("okra.png", at))
}

func TestFilesystemSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	store, err := NewFilesystem(dir)
	require.NoError(t, err)
	fixedClock(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	ref, ok, err := SaveUpload(ctx, store, &Upload{Filename: "okra.png", Data: pngBytes(t, 4, 3)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "20240101120000_okra.png")), ref)

	res := Load(ctx, store, ref)
	require.Equal(t, Present, res.Status, "err: %v", res.Err)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, 4, res.Width)
	assert.Equal(t, 3, res.Height)
	assert.NotEmpty(t, res.Data)

	// Same second, same name: the first file is kept.
	_, _, err = SaveUpload(ctx, store, &Upload{Filename: "okra.png", Data: []byte("other")})
	assert.ErrorIs(t, err, ErrExists)
	assert.Equal(t, Present, Load(ctx, store, ref).Status)
}

func TestSaveUploadWithoutFile(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	ref, ok, err := SaveUpload(context.Background(), store, nil)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, ref)

	_, ok, err = SaveUpload(context.Background(), store, &Upload{})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadStatuses(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilesystem(dir)
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, Absent, Load(ctx, store, "").Status)

	missing := Load(ctx, store, filepath.ToSlash(filepath.Join(dir, "gone.png")))
	assert.Equal(t, Unreadable, missing.Status)
	assert.ErrorIs(t, missing.Err, ErrNotFound)

	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	bad := Load(ctx, store, filepath.ToSlash(garbage))
	assert.Equal(t, Unreadable, bad.Status)
	assert.Error(t, bad.Err)

	outside := Load(ctx, store, "../../etc/passwd")
	assert.Equal(t, Unreadable, outside.Status)
	assert.Error(t, outside.Err)
}

func TestS3SaveAndLoad(t *testing.T) {
	store, rt := newFakeS3(t, "uploads")
	fixedClock(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	ref, ok, err := SaveUpload(ctx, store, &Upload{Filename: "beans.png", Data: pngBytes(t, 2, 2)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "uploads/20240101120000_beans.png", ref)
	assert.Equal(t, "image/png", rt.objects[ref].contentType)

	res := Load(ctx, store, ref)
	require.Equal(t, Present, res.Status, "err: %v", res.Err)
	assert.Equal(t, 2, res.Width)

	_, _, err = SaveUpload(ctx, store, &Upload{Filename: "beans.png", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrExists)

	missing := Load(ctx, store, "uploads/none.png")
	assert.Equal(t, Unreadable, missing.Status)
	assert.ErrorIs(t, missing.Err, ErrNotFound)
}
