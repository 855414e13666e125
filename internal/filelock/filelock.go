// Package filelock serializes writes to catalog output files across processes
// and makes each write atomic, so a reader never sees a half-written metadata
// file or report.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockSuffix is appended to a target path to name its lock file
const LockSuffix = ".lock"

// Lock is an exclusive advisory lock backed by a lock file
type Lock struct {
	flock *flock.Flock
	path  string
}

// New returns a lock on path. The lock file is created on first Lock.
func New(path string) *Lock {
	return &Lock{
		flock: flock.New(path),
		path:  path,
	}
}

// Path returns the lock file path
func (l *Lock) Path() string {
	return l.path
}

// Lock blocks until the exclusive lock is held
func (l *Lock) Lock() error {
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	return nil
}

// TryLock takes the lock if it is free and reports whether it did
func (l *Lock) TryLock() (bool, error) {
	ok, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("try lock %s: %w", l.path, err)
	}
	return ok, nil
}

// Unlock releases the lock
func (l *Lock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}

// AtomicWrite replaces path with data. The data goes to a temp file in the
// target directory which is then renamed over path, so path holds either the
// old or the new content. Missing parent directories are created.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".eegcat-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}

	committed = true
	return nil
}

// LockAndWrite holds path+LockSuffix while atomically writing data to path
func LockAndWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	lock := New(path + LockSuffix)
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	return AtomicWrite(path, data)
}
