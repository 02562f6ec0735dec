package export

import (
	"context"
	"fmt"
	"path/filepath"

	ioutils "github.com/handiism/post-exporter/internal/io"
)

// Saver stores a finished artifact and returns where it went.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// DirSaver writes artifacts below a directory. Names may contain
// forward-slash separated folders.
type DirSaver struct {
	Dir string
}

// Save implements Saver.
func (s DirSaver) Save(ctx context.Context, name string, data []byte) (string, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("refusing to save outside %s: %q", s.Dir, name)
	}
	path := filepath.Join(s.Dir, rel)
	if err := ioutils.WriteFile(ctx, path, data); err != nil {
		return "", err
	}
	return path, nil
}
