// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package formatting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// # Artifact Storage

// ArtifactStore keeps one output file per job.
type ArtifactStore interface {
	Create(jobID string) (io.WriteCloser, error)
	Open(jobID string) (io.ReadCloser, int64, error)
	Remove(jobID string) error
}

// DirStore stores artifacts as files in a single directory.
type DirStore struct {
	dir string
}

// NewDirStore creates dir if needed and returns a store rooted there.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("formatting: failed to create output directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (store *DirStore) path(jobID string) string {
	return filepath.Join(store.dir, filepath.Base(jobID)+".txt")
}

// Create opens a fresh artifact for writing, truncating any previous one.
func (store *DirStore) Create(jobID string) (io.WriteCloser, error) {
	handle, err := os.Create(store.path(jobID))
	if err != nil {
		return nil, fmt.Errorf("formatting: failed to create artifact: %w", err)
	}
	return handle, nil
}

// Open returns the artifact and its size.
func (store *DirStore) Open(jobID string) (io.ReadCloser, int64, error) {
	handle, err := os.Open(store.path(jobID))
	if err != nil {
		return nil, 0, fmt.Errorf("formatting: failed to open artifact: %w", err)
	}

	info, err := handle.Stat()
	if err != nil {
		handle.Close()
		return nil, 0, fmt.Errorf("formatting: failed to stat artifact: %w", err)
	}
	return handle, info.Size(), nil
}

// Remove deletes the artifact. A missing file is not an error.
func (store *DirStore) Remove(jobID string) error {
	err := os.Remove(store.path(jobID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("formatting: failed to remove artifact: %w", err)
	}
	return nil
}
