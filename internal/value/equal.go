// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package value

import "bytes"

// Equal reports structural, deep equality (§4.1). Object key order does
// not affect equality (two Objects with the same key/value pairs in
// different insertion order are equal); Contract field order is always
// canonical so this is moot there. NaN floats are never equal to
// anything, including themselves, matching IEEE-754 semantics (§3 notes
// NaN payload is unspecified — we do not special-case it).
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindText:
		return a.Text == b.Text
	case KindBytes:
		return bytes.Equal(a.Bytes, b.Bytes)
	case KindHandle:
		return a.HandleTag == b.HandleTag && a.HandleDigest == b.HandleDigest
	case KindArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !Equal(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return objectEqual(a.Object, b.Object)
	case KindContract:
		return contractEqual(a.Contract, b.Contract)
	case KindChainRef:
		return a.ChainRef == b.ChainRef
	default:
		return false
	}
}

func objectEqual(a, b *Object) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Keys) != len(b.Keys) {
		return false
	}
	for _, k := range a.Keys {
		bv, ok := b.Values[k]
		if !ok {
			return false
		}
		if !Equal(a.Values[k], bv) {
			return false
		}
	}
	return true
}

func contractEqual(a, b *Contract) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ContractID != b.ContractID || len(a.FieldIdx) != len(b.FieldIdx) {
		return false
	}
	for _, idx := range a.FieldIdx {
		bv, ok := b.Fields[idx]
		if !ok {
			return false
		}
		if !Equal(a.Fields[idx], bv) {
			return false
		}
	}
	return true
}
