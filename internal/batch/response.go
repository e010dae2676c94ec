// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package batch

import (
	"math"

	"github.com/latentcollapse/hlx-core/internal/codec/lcb"
	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
)

// ResultKind tags a Response result's wire representation (spec.md
// §4.7). It deliberately does not reuse value.Kind: a batch Result is
// a narrower, protocol-specific shape (e.g. a Tensor convention over
// raw float32s, binary32 rather than LC-B's binary64 Float) rather
// than a general Value.
type ResultKind uint8

const (
	ResultNull ResultKind = iota
	ResultBool
	ResultInt
	ResultFloat
	ResultTensor
	ResultHandle
	ResultError
)

// Tensor is the response-side convention layered on top of a raw
// float32 buffer: ndim dimensions, a shape vector, then the flattened
// elements (spec.md §4.7 Response payload, kind 4).
type Tensor struct {
	Shape    []uint32
	Elements []float32
}

// Result is one decoded batch response entry.
type Result struct {
	Kind ResultKind

	Bool   bool
	Int    int64
	Float  float32
	Tensor Tensor
	Handle [digest.Size]byte
	ErrMsg string
}

// Response is a fully decoded LC-B batch response.
type Response struct {
	Err     string // non-empty iff this is an error response (status_byte = 1)
	Results []Result
}

// EncodeResponse renders resp as the Response payload of spec.md §4.7.
func EncodeResponse(resp Response) ([]byte, error) {
	if resp.Err != "" {
		dst := []byte{1}
		dst = lcb.PutUvarint(dst, uint32(len(resp.Err)))
		dst = append(dst, resp.Err...)
		return dst, nil
	}

	dst := []byte{0}
	dst = lcb.PutUvarint(dst, uint32(len(resp.Results)))
	for _, r := range resp.Results {
		var err error
		dst, err = encodeResult(dst, r)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func encodeResult(dst []byte, r Result) ([]byte, error) {
	dst = append(dst, byte(r.Kind))
	switch r.Kind {
	case ResultNull:
		return dst, nil
	case ResultBool:
		b := byte(0)
		if r.Bool {
			b = 1
		}
		return append(dst, b), nil
	case ResultInt:
		return lcb.PutVarint(dst, r.Int), nil
	case ResultFloat:
		bits := math.Float32bits(r.Float)
		return append(dst, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24)), nil
	case ResultTensor:
		dst = append(dst, byte(len(r.Tensor.Shape)))
		for _, s := range r.Tensor.Shape {
			dst = lcb.PutUvarint(dst, s)
		}
		dst = lcb.PutUvarint(dst, uint32(len(r.Tensor.Elements)))
		for _, f := range r.Tensor.Elements {
			bits := math.Float32bits(f)
			dst = append(dst, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
		}
		return dst, nil
	case ResultHandle:
		return append(dst, r.Handle[:]...), nil
	case ResultError:
		dst = lcb.PutUvarint(dst, uint32(len(r.ErrMsg)))
		return append(dst, r.ErrMsg...), nil
	default:
		return nil, errs.New(errs.LcEncode, "unknown result kind %d", r.Kind)
	}
}

// DecodeResponse parses a Response payload.
func DecodeResponse(data []byte) (Response, error) {
	if len(data) < 1 {
		return Response{}, errs.New(errs.LcDecode, "empty response payload")
	}
	status := data[0]
	pos := 1
	if status == 1 {
		n, next, err := lcb.GetUvarint(data, pos)
		if err != nil {
			return Response{}, err
		}
		pos = next
		if pos+int(n) > len(data) {
			return Response{}, errs.New(errs.LcDecode, "truncated error message")
		}
		return Response{Err: string(data[pos : pos+int(n)])}, nil
	}
	if status != 0 {
		return Response{}, errs.New(errs.LcDecode, "invalid status byte %d", status)
	}

	n, next, err := lcb.GetUvarint(data, pos)
	if err != nil {
		return Response{}, err
	}
	pos = next

	results := make([]Result, 0, n)
	for i := uint32(0); i < n; i++ {
		r, next, err := decodeResult(data, pos)
		if err != nil {
			return Response{}, err
		}
		pos = next
		results = append(results, r)
	}
	return Response{Results: results}, nil
}

func decodeResult(data []byte, pos int) (Result, int, error) {
	if pos >= len(data) {
		return Result{}, pos, errs.New(errs.LcDecode, "truncated result kind")
	}
	kind := ResultKind(data[pos])
	pos++

	switch kind {
	case ResultNull:
		return Result{Kind: ResultNull}, pos, nil

	case ResultBool:
		if pos >= len(data) {
			return Result{}, pos, errs.New(errs.LcDecode, "truncated bool result")
		}
		b := data[pos]
		return Result{Kind: ResultBool, Bool: b == 1}, pos + 1, nil

	case ResultInt:
		v, next, err := lcb.GetVarint(data, pos)
		if err != nil {
			return Result{}, pos, err
		}
		return Result{Kind: ResultInt, Int: v}, next, nil

	case ResultFloat:
		if pos+4 > len(data) {
			return Result{}, pos, errs.New(errs.LcDecode, "truncated float result")
		}
		bits := uint32(data[pos]) | uint32(data[pos+1])<<8 | uint32(data[pos+2])<<16 | uint32(data[pos+3])<<24
		return Result{Kind: ResultFloat, Float: math.Float32frombits(bits)}, pos + 4, nil

	case ResultTensor:
		if pos >= len(data) {
			return Result{}, pos, errs.New(errs.LcDecode, "truncated tensor ndim")
		}
		ndim := int(data[pos])
		pos++
		shape := make([]uint32, ndim)
		for i := 0; i < ndim; i++ {
			s, next, err := lcb.GetUvarint(data, pos)
			if err != nil {
				return Result{}, pos, err
			}
			shape[i] = s
			pos = next
		}
		nElem, next, err := lcb.GetUvarint(data, pos)
		if err != nil {
			return Result{}, pos, err
		}
		pos = next
		elems := make([]float32, nElem)
		for i := uint32(0); i < nElem; i++ {
			if pos+4 > len(data) {
				return Result{}, pos, errs.New(errs.LcDecode, "truncated tensor element at index %d", i)
			}
			bits := uint32(data[pos]) | uint32(data[pos+1])<<8 | uint32(data[pos+2])<<16 | uint32(data[pos+3])<<24
			elems[i] = math.Float32frombits(bits)
			pos += 4
		}
		return Result{Kind: ResultTensor, Tensor: Tensor{Shape: shape, Elements: elems}}, pos, nil

	case ResultHandle:
		if pos+digest.Size > len(data) {
			return Result{}, pos, errs.New(errs.LcDecode, "truncated handle result")
		}
		var d [digest.Size]byte
		copy(d[:], data[pos:pos+digest.Size])
		return Result{Kind: ResultHandle, Handle: d}, pos + digest.Size, nil

	case ResultError:
		n, next, err := lcb.GetUvarint(data, pos)
		if err != nil {
			return Result{}, pos, err
		}
		pos = next
		if pos+int(n) > len(data) {
			return Result{}, pos, errs.New(errs.LcDecode, "truncated error result message")
		}
		msg := string(data[pos : pos+int(n)])
		return Result{Kind: ResultError, ErrMsg: msg}, pos + int(n), nil

	default:
		return Result{}, pos, errs.New(errs.LcDecode, "unknown result kind %d at offset %d", kind, pos-1)
	}
}
