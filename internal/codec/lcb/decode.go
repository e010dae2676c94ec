// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lcb

import (
	"math"
	"unicode/utf8"

	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/internal/value"
)

// Decode parses a single LC-B-encoded Value from the front of data and
// returns the value plus the number of bytes consumed. It is total over
// the tag set defined in tag.go (A2): any other leading byte, or a
// truncated payload, is rejected with LcDecode rather than panicking.
func Decode(data []byte) (value.Value, int, error) {
	return decode(data, 0)
}

func decode(data []byte, pos int) (value.Value, int, error) {
	if pos >= len(data) {
		return value.Value{}, pos, errs.New(errs.LcDecode, "truncated value at offset %d", pos)
	}
	tag := data[pos]
	pos++

	switch tag {
	case TagNull:
		return value.Null(), pos, nil

	case TagBool:
		if pos >= len(data) {
			return value.Value{}, pos, errs.New(errs.LcDecode, "truncated bool at offset %d", pos)
		}
		b := data[pos]
		pos++
		if b != 0 && b != 1 {
			return value.Value{}, pos, errs.New(errs.LcDecode, "invalid bool byte %#x at offset %d", b, pos-1)
		}
		return value.Bool(b == 1), pos, nil

	case TagInt:
		i, next, err := getVarint(data, pos)
		if err != nil {
			return value.Value{}, pos, err
		}
		return value.Int(i), next, nil

	case TagFloat:
		if pos+8 > len(data) {
			return value.Value{}, pos, errs.New(errs.LcDecode, "truncated float at offset %d", pos)
		}
		var bits uint64
		for i := 0; i < 8; i++ {
			bits |= uint64(data[pos+i]) << (8 * i)
		}
		return value.Float(math.Float64frombits(bits)), pos + 8, nil

	case TagText:
		n, next, err := getUvarint(data, pos)
		if err != nil {
			return value.Value{}, pos, err
		}
		pos = next
		if pos+int(n) > len(data) {
			return value.Value{}, pos, errs.New(errs.LcDecode, "truncated text at offset %d", pos)
		}
		if !utf8.Valid(data[pos : pos+int(n)]) {
			return value.Value{}, pos, errs.New(errs.LcDecode, "invalid UTF-8 text at offset %d", pos)
		}
		s := string(data[pos : pos+int(n)])
		return value.Text(s), pos + int(n), nil

	case TagBytes:
		n, next, err := getUvarint(data, pos)
		if err != nil {
			return value.Value{}, pos, err
		}
		pos = next
		if pos+int(n) > len(data) {
			return value.Value{}, pos, errs.New(errs.LcDecode, "truncated bytes at offset %d", pos)
		}
		b := make([]byte, n)
		copy(b, data[pos:pos+int(n)])
		return value.Bytes(b), pos + int(n), nil

	case TagArray:
		n, next, err := getUvarint(data, pos)
		if err != nil {
			return value.Value{}, pos, err
		}
		pos = next
		if int(n) > len(data)-pos {
			return value.Value{}, pos, errs.New(errs.LcDecode, "array count %d exceeds remaining input at offset %d", n, pos)
		}
		elems := make([]value.Value, 0, n)
		for i := uint32(0); i < n; i++ {
			var v value.Value
			v, pos, err = decode(data, pos)
			if err != nil {
				return value.Value{}, pos, err
			}
			elems = append(elems, v)
		}
		return value.Array(elems), pos, nil

	case TagObject:
		o := value.NewObject()
		n, next, err := getUvarint(data, pos)
		if err != nil {
			return value.Value{}, pos, err
		}
		pos = next
		for i := uint32(0); i < n; i++ {
			klen, next, err := getUvarint(data, pos)
			if err != nil {
				return value.Value{}, pos, err
			}
			pos = next
			if pos+int(klen) > len(data) {
				return value.Value{}, pos, errs.New(errs.LcDecode, "truncated object key at offset %d", pos)
			}
			if !utf8.Valid(data[pos : pos+int(klen)]) {
				return value.Value{}, pos, errs.New(errs.LcDecode, "invalid UTF-8 object key at offset %d", pos)
			}
			key := string(data[pos : pos+int(klen)])
			pos += int(klen)
			var v value.Value
			v, pos, err = decode(data, pos)
			if err != nil {
				return value.Value{}, pos, err
			}
			o.Set(key, v)
		}
		return value.ObjectOf(o), pos, nil

	case TagContract:
		id, next, err := getUvarint(data, pos)
		if err != nil {
			return value.Value{}, pos, err
		}
		pos = next
		c := value.NewContract(id)
		n, next, err := getUvarint(data, pos)
		if err != nil {
			return value.Value{}, pos, err
		}
		pos = next
		for i := uint32(0); i < n; i++ {
			idx, next, err := getUvarint(data, pos)
			if err != nil {
				return value.Value{}, pos, err
			}
			pos = next
			var v value.Value
			v, pos, err = decode(data, pos)
			if err != nil {
				return value.Value{}, pos, err
			}
			c.SetField(idx, v)
		}
		return value.ContractOf(c), pos, nil

	case TagHandle:
		n, next, err := getUvarint(data, pos)
		if err != nil {
			return value.Value{}, pos, err
		}
		pos = next
		if pos+int(n) > len(data) {
			return value.Value{}, pos, errs.New(errs.LcDecode, "truncated handle tag at offset %d", pos)
		}
		if !utf8.Valid(data[pos : pos+int(n)]) {
			return value.Value{}, pos, errs.New(errs.LcDecode, "invalid UTF-8 handle tag at offset %d", pos)
		}
		htag := string(data[pos : pos+int(n)])
		pos += int(n)
		if pos+32 > len(data) {
			return value.Value{}, pos, errs.New(errs.LcDecode, "truncated handle digest at offset %d", pos)
		}
		var digest [32]byte
		copy(digest[:], data[pos:pos+32])
		return value.Handle(htag, digest), pos + 32, nil

	case TagChainPrev:
		return value.ChainPrevRef(), pos, nil

	case TagChainFrom:
		idx, next, err := getUvarint(data, pos)
		if err != nil {
			return value.Value{}, pos, err
		}
		return value.ChainFromRef(idx), next, nil

	default:
		return value.Value{}, pos, errs.New(errs.LcDecode, "unknown wire tag %#x at offset %d", tag, pos-1)
	}
}
