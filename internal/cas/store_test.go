// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package cas

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	fb, err := NewFSBackend(t.TempDir())
	noErr(t, err)
	dsn := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(dsn, fb, 1<<20)
	noErr(t, err)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorePutGetGeneric(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	b := []byte("generic payload")
	handle, err := s.Put(ctx, digest.TagGeneric, b, PutMeta{Name: "greeting"})
	noErr(t, err)

	got, err := s.Get(ctx, handle)
	noErr(t, err)
	if string(got) != string(b) {
		t.Fatalf("got %q, want %q", got, b)
	}

	ok, err := s.Exists(ctx, handle)
	noErr(t, err)
	if !ok {
		t.Fatalf("expected handle to exist")
	}

	m, err := s.GetMetadata(ctx, handle)
	noErr(t, err)
	if m.Name != "greeting" || m.Size != int64(len(b)) {
		t.Fatalf("unexpected metadata row: %+v", m)
	}
}

func TestStorePutIdempotentSameHandle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	b := []byte("idempotent payload")
	h1, err := s.Put(ctx, digest.TagGeneric, b, PutMeta{Name: "a"})
	noErr(t, err)
	h2, err := s.Put(ctx, digest.TagGeneric, b, PutMeta{Name: "a"})
	noErr(t, err)
	if h1 != h2 {
		t.Fatalf("expected same handle on re-put, got %s and %s", h1, h2)
	}

	count, _, err := s.Stats(ctx)
	noErr(t, err)
	if count != 1 {
		t.Fatalf("expected exactly one stored row after idempotent re-put, got %d", count)
	}
}

func TestStorePutShaderPrecondition(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// too short, fails the size >= 20 check regardless of magic
	_, err := s.Put(ctx, digest.TagShader, []byte{0x03, 0x02, 0x23, 0x07}, PutMeta{})
	if !errs.Is(err, errs.StoragePrecondition) {
		t.Fatalf("expected StoragePrecondition, got %v", err)
	}

	valid := append([]byte{0x03, 0x02, 0x23, 0x07}, make([]byte, 16)...)
	_, err = s.Put(ctx, digest.TagShader, valid, PutMeta{Stage: "vertex"})
	noErr(t, err)
}

func TestStoreQueryDeterministicOrder(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	var handles []string
	for _, name := range []string{"z-shader", "a-shader", "m-shader"} {
		h, err := s.Put(ctx, digest.TagGeneric, []byte(name), PutMeta{Name: "same-name", Stage: "fragment"})
		noErr(t, err)
		handles = append(handles, h)
	}

	rows, err := s.Query(ctx, QueryFilter{Stage: "fragment"})
	noErr(t, err)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Handle > rows[i].Handle {
			t.Fatalf("rows not handle-ascending: %s before %s", rows[i-1].Handle, rows[i].Handle)
		}
	}
}

func TestStoreListAndStats(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for _, payload := range []string{"one", "two", "three"} {
		_, err := s.Put(ctx, digest.TagGeneric, []byte(payload), PutMeta{Name: payload})
		noErr(t, err)
	}

	handles, err := s.List(ctx, 0)
	noErr(t, err)
	if len(handles) != 3 {
		t.Fatalf("expected 3 handles, got %d", len(handles))
	}

	count, totalBytes, err := s.Stats(ctx)
	noErr(t, err)
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
	if totalBytes != int64(len("one")+len("two")+len("three")) {
		t.Fatalf("unexpected total bytes %d", totalBytes)
	}
}

func TestStoreConcurrentPutSameBytesOneObject(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	const n = 32
	b := []byte("concurrent payload, identical every time")

	var wg sync.WaitGroup
	handles := make([]string, n)
	putErrs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], putErrs[i] = s.Put(ctx, digest.TagGeneric, b, PutMeta{Name: "race"})
		}(i)
	}
	wg.Wait()

	for i, err := range putErrs {
		noErr(t, err)
		if handles[i] != handles[0] {
			t.Fatalf("handle %d = %s, want %s (all handles must be string-equal)", i, handles[i], handles[0])
		}
	}

	count, _, err := s.Stats(ctx)
	noErr(t, err)
	if count != 1 {
		t.Fatalf("expected exactly one stored object after %d concurrent puts, got %d", n, count)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, digest.Handle(digest.TagGeneric, [digest.Size]byte{}))
	if !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
