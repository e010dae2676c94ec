// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package digest computes the canonical content-address of a Value
// (spec.md §4.2) and formats/parses Handle strings. The canonical
// serialization is the LC-B encoding with Object keys written in
// lexicographic order — lcb.EncodeCanonical supplies exactly that, so
// this package never encodes directly; it depends on lcb for the byte
// walk and only owns the hashing and string-formatting concerns.
package digest

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/latentcollapse/hlx-core/internal/codec/lcb"
	"github.com/latentcollapse/hlx-core/internal/value"
)

// Size is the digest length in bytes (spec.md §3: "exactly 32 bytes").
const Size = 32

// Handle tag prefixes in use (spec.md §3, §6).
const (
	TagShader  = "&h_shader_"
	TagGeneric = "&h_"
)

// Sum returns the BLAKE2b-256 digest of raw bytes. Used directly by the
// CAS object layer, where the addressed content is an opaque blob
// rather than a Value (spec.md §4.2: "or raw bytes for CAS").
func Sum(b []byte) [Size]byte {
	return blake2b.Sum256(b)
}

// OfValue computes the content address of v per spec.md §4.2: the
// BLAKE2b-256 digest of v's canonical LC-B encoding (Object keys sorted
// lexicographically, Contract fields already ascending by index). Equal
// Values always produce the same digest regardless of how they were
// constructed.
func OfValue(v value.Value) ([Size]byte, error) {
	enc, err := lcb.EncodeCanonical(v)
	if err != nil {
		return [Size]byte{}, err
	}
	return Sum(enc), nil
}

// Handle formats tag + hex(digest), e.g. "&h_shader_abcd...".
func Handle(tag string, d [Size]byte) string {
	var sb strings.Builder
	sb.Grow(len(tag) + Size*2)
	sb.WriteString(tag)
	sb.WriteString(hex.EncodeToString(d[:]))
	return sb.String()
}

// Parse splits a handle string into its tag and digest. It accepts a tag
// that starts with "&h_" and ends in "_" ("&h_" itself included)
// followed by exactly 64 lowercase hex characters, per spec.md §3's
// "tag + digest" shape.
func Parse(handle string) (tag string, d [Size]byte, ok bool) {
	if len(handle) < Size*2 || !strings.HasPrefix(handle, "&h_") {
		return "", d, false
	}
	hexPart := handle[len(handle)-Size*2:]
	tag = handle[:len(handle)-Size*2]
	if !strings.HasSuffix(tag, "_") {
		return "", d, false
	}
	raw, err := hex.DecodeString(hexPart)
	if err != nil || len(raw) != Size {
		return "", d, false
	}
	if strings.ToLower(hexPart) != hexPart {
		return "", d, false
	}
	copy(d[:], raw)
	return tag, d, true
}
