// Package archive packages rendered derivatives into a single ZIP archive
// and owns the naming scheme for every exported file.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"strings"
	"time"

	ioutils "github.com/handiism/post-exporter/internal/io"
)

var (
	// ErrDuplicateEntry is returned when a path is added twice.
	ErrDuplicateEntry = errors.New("duplicate archive entry")

	// ErrFinalized is returned when adding to a finalized archive.
	ErrFinalized = errors.New("archive already finalized")
)

// Encoder turns a rendered image into file bytes.
type Encoder interface {
	EncodePNG(ctx context.Context, img image.Image) ([]byte, error)
}

// Builder accumulates images into a ZIP archive.
//
// Entries are written in the order they are added, with a fixed modification
// time, so the same inputs always produce the same archive bytes. Folders
// are created implicitly from entry paths.
//
// Example:
//
//	var buf bytes.Buffer
//	b := archive.New(&buf, job.Date)
//	b.AddImage(ctx, "Instagram_Feed_1x1/Brand_2026-10-17_slide_01.png", img)
//	if err := b.Finalize(); err != nil {
//	    return err
//	}
type Builder struct {
	zw       *zip.Writer
	enc      Encoder
	modified time.Time

	files     []string
	folders   []string
	seen      map[string]bool
	finalized bool
}

// New creates a Builder writing to w. Entries are stamped with modified.
func New(w io.Writer, modified time.Time) *Builder {
	return &Builder{
		zw:       zip.NewWriter(w),
		enc:      ioutils.NewImageService(""),
		modified: modified,
		seen:     make(map[string]bool),
	}
}

// WithEncoder replaces the PNG encoder.
func (b *Builder) WithEncoder(enc Encoder) *Builder {
	b.enc = enc
	return b
}

// AddImage encodes img and stores it at relPath.
func (b *Builder) AddImage(ctx context.Context, relPath string, img image.Image) error {
	if b.finalized {
		return ErrFinalized
	}
	data, err := b.enc.EncodePNG(ctx, img)
	if err != nil {
		return fmt.Errorf("encode %s: %w", relPath, err)
	}
	return b.AddFile(relPath, data)
}

// AddFile stores data at relPath.
//
// Paths are cleaned and must be relative; ".." segments are rejected.
// PNG data is stored without recompression.
func (b *Builder) AddFile(relPath string, data []byte) error {
	if b.finalized {
		return ErrFinalized
	}
	name, err := cleanEntryPath(relPath)
	if err != nil {
		return err
	}
	if b.seen[name] {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
	}

	if dir := path.Dir(name); dir != "." {
		if err := b.addFolder(dir); err != nil {
			return err
		}
	}

	method := zip.Deflate
	if strings.EqualFold(path.Ext(name), ".png") {
		method = zip.Store
	}
	w, err := b.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: b.modified,
	})
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}

	b.seen[name] = true
	b.files = append(b.files, name)
	return nil
}

func (b *Builder) addFolder(dir string) error {
	if parent := path.Dir(dir); parent != "." {
		if err := b.addFolder(parent); err != nil {
			return err
		}
	}
	key := dir + "/"
	if b.seen[key] {
		return nil
	}
	if _, err := b.zw.CreateHeader(&zip.FileHeader{
		Name:     key,
		Method:   zip.Store,
		Modified: b.modified,
	}); err != nil {
		return err
	}
	b.seen[key] = true
	b.folders = append(b.folders, dir)
	return nil
}

// Finalize writes the ZIP central directory. The underlying writer is not
// closed. Finalizing twice is a no-op.
func (b *Builder) Finalize() error {
	if b.finalized {
		return nil
	}
	b.finalized = true
	return b.zw.Close()
}

// Entries returns the file entries in insertion order.
func (b *Builder) Entries() []string {
	out := make([]string, len(b.files))
	copy(out, b.files)
	return out
}

// Folders returns the folders created so far.
func (b *Builder) Folders() []string {
	out := make([]string, len(b.folders))
	copy(out, b.folders)
	return out
}

func cleanEntryPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	clean := path.Clean(p)
	if clean == "." || clean == "" || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid archive path %q", p)
	}
	return clean, nil
}
