// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lcb

import "github.com/latentcollapse/hlx-core/internal/errs"

// maxLEB128Bytes bounds how many bytes in total (terminating byte
// included) a u32/i64 LEB128 value may use before a decoder rejects it
// as overlong (spec.md §4.3:
// "Decoders reject unknown tags and overlong LEB128"). ceil(64/7) = 10.
const maxLEB128Bytes = 10

// putUvarint appends value as unsigned LEB128.
func putUvarint(dst []byte, value uint32) []byte {
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if value == 0 {
			break
		}
	}
	return dst
}

// putVarint appends value as signed LEB128 (i64).
func putVarint(dst []byte, value int64) []byte {
	for {
		b := byte(value & 0x7f)
		value >>= 7
		signBitSet := b&0x40 != 0
		if (value == 0 && !signBitSet) || (value == -1 && signBitSet) {
			dst = append(dst, b)
			break
		}
		dst = append(dst, b|0x80)
	}
	return dst
}

// getUvarint decodes an unsigned LEB128 u32 starting at data[pos].
// Returns the value and the offset just past it.
func getUvarint(data []byte, pos int) (uint32, int, error) {
	var result uint32
	var shift uint
	for i := 0; ; i++ {
		if i >= maxLEB128Bytes {
			return 0, 0, errs.New(errs.LcDecode, "overlong LEB128 u32 at offset %d", pos)
		}
		if pos >= len(data) {
			return 0, 0, errs.New(errs.LcDecode, "truncated LEB128 u32 at offset %d", pos)
		}
		b := data[pos]
		pos++
		if shift >= 32 && (b&0x7f) != 0 {
			return 0, 0, errs.New(errs.LcDecode, "LEB128 u32 overflow at offset %d", pos)
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, pos, nil
}

// PutUvarint appends v as unsigned LEB128 u32. Exported for
// internal/batch, which frames the same LEB128 u32 fields (instruction
// count, contract_id, param count, name length) outside a Value walk.
func PutUvarint(dst []byte, v uint32) []byte { return putUvarint(dst, v) }

// GetUvarint decodes an unsigned LEB128 u32 at data[pos], returning the
// offset just past it. Exported for internal/batch.
func GetUvarint(data []byte, pos int) (uint32, int, error) { return getUvarint(data, pos) }

// getVarint decodes a signed LEB128 i64 starting at data[pos].
func getVarint(data []byte, pos int) (int64, int, error) {
	var result int64
	var shift uint
	var b byte
	for i := 0; ; i++ {
		if i >= maxLEB128Bytes {
			return 0, 0, errs.New(errs.LcDecode, "overlong LEB128 i64 at offset %d", pos)
		}
		if pos >= len(data) {
			return 0, 0, errs.New(errs.LcDecode, "truncated LEB128 i64 at offset %d", pos)
		}
		b = data[pos]
		pos++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, pos, nil
}

// PutVarint appends v as signed LEB128 i64. Exported for
// internal/batch, which frames the same signed integer shape in
// Response results outside a Value walk.
func PutVarint(dst []byte, v int64) []byte { return putVarint(dst, v) }

// GetVarint decodes a signed LEB128 i64 at data[pos], returning the
// offset just past it. Exported for internal/batch.
func GetVarint(data []byte, pos int) (int64, int, error) { return getVarint(data, pos) }
