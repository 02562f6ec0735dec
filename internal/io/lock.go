package ioutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside locked directories and removed again on
// Unlock.
const LockFileName = ".post-export.lock"

// ErrDirLocked is returned when another process holds the directory lock.
var ErrDirLocked = errors.New("output directory is locked by another export")

// DirLock is an advisory, cross-process lock on an output directory.
type DirLock struct {
	lock *flock.Flock
}

// LockDir takes the export lock for dir without blocking.
//
// Example:
//
//	lock, err := LockDir("/exports")
//	if err != nil {
//	    return err
//	}
//	defer lock.Unlock()
func LockDir(dir string) (*DirLock, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, LockFileName)

	// A releasing holder unlinks the file after we may have opened it; a
	// lock on the unlinked file guards nothing, so try again on the new one.
	for range 3 {
		l := flock.New(path)
		ok, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return nil, ErrDirLocked
		}
		if current(l) {
			return &DirLock{lock: l}, nil
		}
		_ = l.Unlock()
	}
	return nil, ErrDirLocked
}

// current reports whether the held lock file is still the one at its path.
func current(l *flock.Flock) bool {
	held, err := l.Stat()
	if err != nil {
		return false
	}
	onDisk, err := os.Stat(l.Path())
	if err != nil {
		return false
	}
	return os.SameFile(held, onDisk)
}

// Unlock removes the lock file and releases the lock. It is safe to call on
// a nil lock.
func (d *DirLock) Unlock() error {
	if d == nil || d.lock == nil {
		return nil
	}
	if !d.lock.Locked() {
		return nil
	}
	rmErr := os.Remove(d.lock.Path())
	if errors.Is(rmErr, os.ErrNotExist) {
		rmErr = nil
	}
	if err := d.lock.Unlock(); err != nil {
		return err
	}
	if rmErr != nil {
		return fmt.Errorf("remove lock file: %w", rmErr)
	}
	return nil
}
