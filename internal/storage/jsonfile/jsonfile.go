// Package jsonfile implements the storage backends on top of flat JSON
// files. Every mutation runs under an exclusive cross-process file lock
// and is written out as temp-file-then-rename, so a concurrent reader
// never observes a partially written store.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"despesas/internal/storage"
)

// lockTimeout bounds lock acquisition so a held lock surfaces as
// ErrStoreBusy instead of hanging. Variable so tests can shorten it.
var lockTimeout = 5 * time.Second

const lockRetryDelay = 50 * time.Millisecond

// file is one JSON-backed store guarded by a sibling .lock file.
type file struct {
	path string
	lock *flock.Flock
}

func newFile(path string) (*file, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	return &file{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// withLock runs fn while holding the store lock. Acquisition is bounded:
// a held lock results in ErrStoreBusy rather than waiting forever.
func (f *file) withLock(exclusive bool, fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = f.lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = f.lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", storage.ErrStoreBusy, f.path)
	}
	defer f.lock.Unlock()

	return fn()
}

// read unmarshals the store into v. A missing file leaves v untouched,
// so callers start from their zero collection.
func (f *file) read(v any) error {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: corrupt store %s: %v", storage.ErrStorageUnavailable, f.path, err)
	}
	return nil
}

// write replaces the store atomically: marshal, write a temp file in the
// same directory, then rename over the store file.
func (f *file) write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrStorageUnavailable, err)
	}
	return nil
}
