// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cas implements the content-addressed store (spec.md §4.6):
// a pluggable object layer (ObjectBackend) fronted by a sqlite metadata
// index. It is constructed explicitly by cmd/hlxd and threaded through
// as a parameter — never a package-level singleton (spec.md §9).
package cas

import (
	"context"

	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
)

// ObjectBackend stores and retrieves opaque blobs by digest. Put must
// be safe for concurrent callers writing the same digest: the
// first writer wins, later callers observe the same bytes back.
type ObjectBackend interface {
	// Put writes b under d if absent. If present, it must read the
	// existing bytes back and return DigestCollision when they differ
	// from b (the index layer, not ObjectBackend, enforces INV-002's
	// "return the existing handle" half — ObjectBackend only owns byte
	// fidelity).
	Put(ctx context.Context, d [digest.Size]byte, b []byte) error
	Get(ctx context.Context, d [digest.Size]byte) ([]byte, error)
	Exists(ctx context.Context, d [digest.Size]byte) (bool, error)
}

// fanOutKey renders the two-level hex fan-out key spec.md §4.6
// requires: first two hex characters, then the remaining 62.
func fanOutKey(d [digest.Size]byte) (dir, name string) {
	full := hexEncode(d[:])
	return full[:2], full[2:]
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}

// validateShaderPreconditions enforces spec.md §4.6's minimal
// structural check for shader payloads: size >= 20, a multiple of 4,
// and the SPIR-V magic word 0x07230203 as the first little-endian u32.
// Generic (non-shader-tagged) puts skip this.
func validateShaderPreconditions(b []byte) error {
	if len(b) < 20 || len(b)%4 != 0 {
		return errs.New(errs.StoragePrecondition, "shader payload must be >= 20 bytes and a multiple of 4, got %d", len(b))
	}
	magic := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	if magic != 0x07230203 {
		return errs.New(errs.StoragePrecondition, "shader payload missing SPIR-V magic, got %#x", magic)
	}
	return nil
}
