package ioutils

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Exchange", "Exchange"},
		{"brand:with:colons", "brand_with_colons"},
		{"a/b\\c", "a_b_c"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces", "multiple spaces"},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.input))
		})
	}
}

func TestWriteFile_CreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "out.png")

	require.NoError(t, WriteFile(context.Background(), path, []byte("data")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestWriteFile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WriteFile(ctx, filepath.Join(t.TempDir(), "x"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLockDir(t *testing.T) {
	dir := t.TempDir()

	first, err := LockDir(dir)
	require.NoError(t, err)

	_, err = LockDir(dir)
	assert.True(t, errors.Is(err, ErrDirLocked))

	assert.FileExists(t, filepath.Join(dir, LockFileName))
	require.NoError(t, first.Unlock())
	assert.NoFileExists(t, filepath.Join(dir, LockFileName))
	require.NoError(t, first.Unlock(), "second Unlock is a no-op")

	again, err := LockDir(dir)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var none *DirLock
	assert.NoError(t, none.Unlock())
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestImageService_Cover(t *testing.T) {
	svc := NewImageService("")

	tests := []struct {
		name       string
		srcW, srcH int
		dstW, dstH int
	}{
		{"wide to square", 200, 100, 50, 50},
		{"tall to wide", 100, 300, 160, 90},
		{"same ratio", 100, 100, 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := solidImage(tt.srcW, tt.srcH, color.RGBA{R: 200, A: 255})
			got := svc.Cover(src, tt.dstW, tt.dstH)

			assert.Equal(t, tt.dstW, got.Bounds().Dx())
			assert.Equal(t, tt.dstH, got.Bounds().Dy())

			// Cover leaves no transparent gaps
			c := got.RGBAAt(0, 0)
			assert.Equal(t, uint8(255), c.A)
			c = got.RGBAAt(tt.dstW-1, tt.dstH-1)
			assert.Equal(t, uint8(255), c.A)
		})
	}
}

func TestImageService_LoadAndEncode(t *testing.T) {
	dir := t.TempDir()
	svc := NewImageService(dir)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(4, 4, color.White)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bg.png"), buf.Bytes(), 0644))

	img, err := svc.Load("bg.png")
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, err = svc.Load("missing.png")
	assert.Error(t, err)

	a, err := svc.EncodePNG(context.Background(), img)
	require.NoError(t, err)
	b, err := svc.EncodePNG(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, a, b, "PNG encoding is not deterministic")
}
