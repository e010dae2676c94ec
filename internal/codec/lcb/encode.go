// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lcb

import (
	"math"

	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/internal/value"
)

// Encode writes v in construction order: Object keys appear in their
// Keys field order, not sorted. Use for general-purpose wire output
// where the producer's insertion order is part of the surface (LC-B
// batch parameters, for instance).
func Encode(v value.Value) ([]byte, error) {
	return encode(nil, v, false)
}

// EncodeCanonical writes v with Object keys in lexicographic order, the
// rule §4.2 defines for digest computation (A1 determinism: equal
// Values produce byte-identical output regardless of construction
// order).
func EncodeCanonical(v value.Value) ([]byte, error) {
	return encode(nil, v, true)
}

func encode(dst []byte, v value.Value, canonical bool) ([]byte, error) {
	switch v.Kind {
	case value.KindNull:
		return append(dst, TagNull), nil

	case value.KindBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		return append(dst, TagBool, b), nil

	case value.KindInt:
		dst = append(dst, TagInt)
		return putVarint(dst, v.Int), nil

	case value.KindFloat:
		dst = append(dst, TagFloat)
		bits := math.Float64bits(v.Float)
		for i := 0; i < 8; i++ {
			dst = append(dst, byte(bits>>(8*i)))
		}
		return dst, nil

	case value.KindText:
		dst = append(dst, TagText)
		dst = putUvarint(dst, uint32(len(v.Text)))
		return append(dst, v.Text...), nil

	case value.KindBytes:
		dst = append(dst, TagBytes)
		dst = putUvarint(dst, uint32(len(v.Bytes)))
		return append(dst, v.Bytes...), nil

	case value.KindArray:
		dst = append(dst, TagArray)
		dst = putUvarint(dst, uint32(len(v.Array)))
		var err error
		for _, elem := range v.Array {
			dst, err = encode(dst, elem, canonical)
			if err != nil {
				return nil, err
			}
		}
		return dst, nil

	case value.KindObject:
		return encodeObject(dst, v.Object, canonical)

	case value.KindContract:
		return encodeContract(dst, v.Contract, canonical)

	case value.KindHandle:
		dst = append(dst, TagHandle)
		dst = putUvarint(dst, uint32(len(v.HandleTag)))
		dst = append(dst, v.HandleTag...)
		return append(dst, v.HandleDigest[:]...), nil

	case value.KindChainRef:
		switch v.ChainRef.Kind {
		case value.ChainPrev:
			return append(dst, TagChainPrev), nil
		case value.ChainFrom:
			dst = append(dst, TagChainFrom)
			return putUvarint(dst, v.ChainRef.From), nil
		}
		return nil, errs.New(errs.LcEncode, "unknown chain ref kind")

	default:
		return nil, errs.New(errs.LcEncode, "unknown value kind %v", v.Kind)
	}
}

func encodeObject(dst []byte, o *value.Object, canonical bool) ([]byte, error) {
	if o == nil {
		o = value.NewObject()
	}
	dst = append(dst, TagObject)
	dst = putUvarint(dst, uint32(len(o.Keys)))

	keys := o.Keys
	if canonical {
		keys = o.SortedKeys()
	}
	var err error
	for _, k := range keys {
		dst = putUvarint(dst, uint32(len(k)))
		dst = append(dst, k...)
		dst, err = encode(dst, o.Values[k], canonical)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// encodeContract writes a Contract Value under TagContract: contract_id,
// then fields in ascending index order regardless of canonical (field
// order is part of Contract's identity, not a construction artifact —
// value.Contract.SetField already keeps FieldIdx sorted).
func encodeContract(dst []byte, c *value.Contract, canonical bool) ([]byte, error) {
	if c == nil {
		return nil, errs.New(errs.LcEncode, "nil contract")
	}
	dst = append(dst, TagContract)
	dst = putUvarint(dst, c.ContractID)
	dst = putUvarint(dst, uint32(len(c.FieldIdx)))
	var err error
	for _, idx := range c.FieldIdx {
		dst = putUvarint(dst, idx)
		dst, err = encode(dst, c.Fields[idx], canonical)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}
