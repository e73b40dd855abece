// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
)

// DiskStore writes uploads into a local directory.
type DiskStore struct {
	dir string
	now func() time.Time
}

// NewDiskStore creates dir if needed and returns a store writing into it.
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, oops.Code("UPLOAD_CONFIG_INVALID").Errorf("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, oops.Code("UPLOAD_STORE_FAILED").With("dir", dir).Wrap(err)
	}
	return &DiskStore{dir: dir, now: time.Now}, nil
}

// Dir returns the directory files are written to.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Put writes r to <dir>/<unix-ms>-<name> and returns /uploads/<unix-ms>-<name>.
// Partially written files are removed on failure.
func (s *DiskStore) Put(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", oops.Code("UPLOAD_STORE_FAILED").Wrap(err)
	}
	name := objectName(s.now(), filename)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", oops.Code("UPLOAD_STORE_FAILED").With("path", path).Wrap(err)
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return "", oops.Code("UPLOAD_STORE_FAILED").With("path", path).Wrap(err)
	}
	return PublicPrefix + name, nil
}

var _ Store = (*DiskStore)(nil)
