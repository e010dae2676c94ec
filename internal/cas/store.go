// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package cas

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jmoiron/sqlx"

	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/pkg/lrucache"
)

// Clock lets tests substitute a fixed time for created_at instead of
// reaching for the wall clock directly.
type Clock func() time.Time

// Store ties the object layer and the metadata index together behind
// the operation contracts of spec.md §4.6. It is built once by
// cmd/hlxd and passed to every caller explicitly — there is no
// package-level singleton (spec.md §9).
type Store struct {
	objects ObjectBackend
	db      *sqlx.DB
	cache   *lrucache.Cache
	now     Clock
}

const queryCacheTTL = 5 * time.Second

// Open builds a Store with a sqlite index at indexDSN, backed by
// objects. cacheBytes is the pkg/lrucache budget of the read-through
// query cache; each cached query result counts as its row count plus
// one, so the budget bounds cached rows rather than bytes.
func Open(indexDSN string, objects ObjectBackend, cacheBytes int) (*Store, error) {
	db, err := connectIndex(indexDSN)
	if err != nil {
		return nil, err
	}
	return &Store{
		objects: objects,
		db:      db,
		cache:   lrucache.New(cacheBytes),
		now:     time.Now,
	}, nil
}

// Close releases the underlying index connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutMeta carries the caller-supplied fields of a put — everything
// except handle, size and created_at, which Store derives itself.
type PutMeta struct {
	Name         string
	Stage        string
	EntryPoint   string
	WorkgroupX   uint32
	WorkgroupY   uint32
	WorkgroupZ   uint32
	SourceHash   string
	MetadataJSON string
}

// Put stores b under tag (digest.TagShader or digest.TagGeneric),
// enforcing INV-001/INV-002: first-writer-wins object bytes, an
// idempotent metadata upsert, and the shader structural precondition
// when tag is digest.TagShader.
func (s *Store) Put(ctx context.Context, tag string, b []byte, m PutMeta) (string, error) {
	if tag == digest.TagShader {
		if err := validateShaderPreconditions(b); err != nil {
			return "", err
		}
	}

	d := digest.Sum(b)
	handle := digest.Handle(tag, d)

	if err := s.objects.Put(ctx, d, b); err != nil {
		return "", err
	}

	row := Metadata{
		Handle:       handle,
		Name:         m.Name,
		Stage:        m.Stage,
		EntryPoint:   m.EntryPoint,
		WorkgroupX:   m.WorkgroupX,
		WorkgroupY:   m.WorkgroupY,
		WorkgroupZ:   m.WorkgroupZ,
		Size:         int64(len(b)),
		CreatedAt:    s.now().Unix(),
		SourceHash:   m.SourceHash,
		MetadataJSON: m.MetadataJSON,
	}
	if err := upsertMetadata(ctx, s.db, row); err != nil {
		return "", err
	}
	// Query results are cheap to recompute and carry a short TTL
	// (queryCacheTTL); rather than track every key ever issued, a
	// fresh put simply waits out the existing cache entries.
	return handle, nil
}

// Get reads back the bytes for handle. Fails NotFound if absent.
func (s *Store) Get(ctx context.Context, handle string) ([]byte, error) {
	_, d, ok := digest.Parse(handle)
	if !ok {
		return nil, errs.New(errs.HandleUnresolved, "malformed handle %q", handle)
	}
	return s.objects.Get(ctx, d)
}

// Exists reports whether handle's object is present.
func (s *Store) Exists(ctx context.Context, handle string) (bool, error) {
	_, d, ok := digest.Parse(handle)
	if !ok {
		return false, errs.New(errs.HandleUnresolved, "malformed handle %q", handle)
	}
	return s.objects.Exists(ctx, d)
}

// GetMetadata returns the index row for handle.
func (s *Store) GetMetadata(ctx context.Context, handle string) (Metadata, error) {
	return getMetadata(ctx, s.db, handle)
}

// Query runs f against the index, serving repeated identical filters
// out of the read-through cache (spec.md §4.6's "advisory" index).
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Metadata, error) {
	key := queryCacheKey(f)
	v := s.cache.Get(key, func() (interface{}, time.Duration, int) {
		rows, err := queryMetadata(ctx, s.db, f)
		if err != nil {
			// Do not poison the cache with an error result; force the
			// next caller to retry against the index directly.
			return cachedQuery{err: err}, 0, 0
		}
		return cachedQuery{rows: rows}, queryCacheTTL, len(rows) + 1
	})
	cached := v.(cachedQuery)
	return cached.rows, cached.err
}

type cachedQuery struct {
	rows []Metadata
	err  error
}

func queryCacheKey(f QueryFilter) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%s|%s|%v|%d|%d|%d|%d", f.Name, f.Stage, f.WorkgroupSet, f.WorkgroupX, f.WorkgroupY, f.WorkgroupZ, f.Limit)
	return fmt.Sprintf("query:%x", h.Sum64())
}

// List returns up to limit handles in insertion order.
func (s *Store) List(ctx context.Context, limit uint32) ([]string, error) {
	return listHandles(ctx, s.db, limit)
}

// Stats returns the object count and total byte size of the store.
func (s *Store) Stats(ctx context.Context) (count int64, totalBytes int64, err error) {
	return indexStats(ctx, s.db)
}
