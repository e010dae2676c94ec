// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package batch

import (
	"github.com/latentcollapse/hlx-core/internal/codec/lcb"
	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
)

// Encode renders r as the full LC-B batch payload, magic through
// trailer, per spec.md §4.7. Parameter values are written with
// lcb.Encode (construction order), not EncodeCanonical — a batch
// parameter's on-wire order is part of the caller's request, not a
// content address subject to §4.2's canonicalization rule.
func Encode(r Request) ([]byte, error) {
	body, err := encodeBody(r)
	if err != nil {
		return nil, err
	}
	trailer := digest.Sum(body)
	return append(body, trailer[:]...), nil
}

func encodeBody(r Request) ([]byte, error) {
	dst := make([]byte, 0, 64)
	dst = putU32LE(dst, Magic)
	dst = append(dst, Version)
	dst = append(dst, r.BatchID[:]...)
	dst = lcb.PutUvarint(dst, uint32(len(r.Instructions)))

	for _, instr := range r.Instructions {
		dst = lcb.PutUvarint(dst, instr.ContractID)
		dst = lcb.PutUvarint(dst, uint32(len(instr.Params)))
		for _, p := range instr.Params {
			dst = lcb.PutUvarint(dst, uint32(len(p.Name)))
			dst = append(dst, p.Name...)
			valBytes, err := lcb.Encode(p.Value)
			if err != nil {
				return nil, errs.Wrap(errs.LcEncode, err, "encode param %q", p.Name)
			}
			dst = append(dst, valBytes...)
		}
	}
	return dst, nil
}

func putU32LE(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
