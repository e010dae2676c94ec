// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package cas

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/internal/util"
	"github.com/latentcollapse/hlx-core/pkg/log"
)

// FSBackend is the filesystem object layer: <root>/objects/<xx>/<yyyy>,
// written atomically (temp file in the same directory, fsync, rename),
// grounded on pkg/archive/fsBackend.go's getDirectory/atomic-write
// shape, generalized from per-job directories to the two-level hex
// fan-out spec.md §4.6 requires.
type FSBackend struct {
	root string
}

// NewFSBackend roots the object layer at <root>/objects.
func NewFSBackend(root string) (*FSBackend, error) {
	dir := filepath.Join(root, "objects")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.StoragePrecondition, err, "create object root %s", dir)
	}
	return &FSBackend{root: root}, nil
}

func (fb *FSBackend) path(d [digest.Size]byte) string {
	dir, name := fanOutKey(d)
	return filepath.Join(fb.root, "objects", dir, name)
}

func (fb *FSBackend) Put(ctx context.Context, d [digest.Size]byte, b []byte) error {
	p := fb.path(d)
	existing, err := os.ReadFile(p)
	if err == nil {
		if bytes.Equal(existing, b) {
			return nil
		}
		return errs.New(errs.DigestCollision, "object at %s does not match digest %x", p, d)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return errs.Wrap(errs.StoragePrecondition, err, "stat object %s", p)
	}

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.StoragePrecondition, err, "create fan-out directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errs.Wrap(errs.StoragePrecondition, err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return errs.Wrap(errs.StoragePrecondition, err, "write temp file %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.Wrap(errs.StoragePrecondition, err, "fsync temp file %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.StoragePrecondition, err, "close temp file %s", tmpName)
	}
	if err := os.Rename(tmpName, p); err != nil {
		// Another writer may have won the race with equal bytes.
		if existing, readErr := os.ReadFile(p); readErr == nil {
			if bytes.Equal(existing, b) {
				return nil
			}
			return errs.New(errs.DigestCollision, "object at %s does not match digest %x", p, d)
		}
		return errs.Wrap(errs.StoragePrecondition, err, "rename temp file into place at %s", p)
	}
	log.Debugf("cas: wrote object %x (%d bytes)", d, len(b))
	return nil
}

func (fb *FSBackend) Get(ctx context.Context, d [digest.Size]byte) ([]byte, error) {
	b, err := os.ReadFile(fb.path(d))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errs.New(errs.NotFound, "object %x not found", d)
	}
	if err != nil {
		return nil, errs.Wrap(errs.StoragePrecondition, err, "read object %x", d)
	}
	return b, nil
}

func (fb *FSBackend) Exists(ctx context.Context, d [digest.Size]byte) (bool, error) {
	_, err := os.Stat(fb.path(d))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.StoragePrecondition, err, "stat object %x", d)
	}
	return true, nil
}

// BucketUsageMB reports the on-disk size in megabytes of one fan-out
// bucket (the two-hex-character directory holding every object whose
// digest starts with that prefix). An operational diagnostic, not
// part of the CAS contract itself — Store.Stats' total_bytes remains
// the authoritative figure derived from the index.
func (fb *FSBackend) BucketUsageMB(prefix string) float64 {
	return util.DiskUsage(filepath.Join(fb.root, "objects", prefix))
}
