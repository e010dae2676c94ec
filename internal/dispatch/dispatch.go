// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"context"
	"math"

	"github.com/latentcollapse/hlx-core/internal/batch"
	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/internal/value"
)

// Dispatch evaluates req's instructions in strict ascending order
// (P8), resolving ChainRef parameters against prior results (P9) and
// validating every other parameter's name and kind before invoking its
// handler. Any dispatch-time error (ContractUnknown, ParamMissing,
// ParamTypeMismatch, ChainForwardRef, ChainOutOfRange) aborts the
// whole batch and produces a single error Response — it never reaches
// a handler. A handler-returned error becomes a per-instruction
// ResultError and the batch continues (spec.md §7).
func (r *Registry) Dispatch(ctx context.Context, req batch.Request) batch.Response {
	results := make([]batch.Result, 0, len(req.Instructions))
	chained := make([]value.Value, 0, len(req.Instructions))
	chainable := make([]bool, 0, len(req.Instructions))

	for i, instr := range req.Instructions {
		select {
		case <-ctx.Done():
			return batch.Response{Err: errs.New(errs.DeadlineExceeded, "batch deadline exceeded at instruction %d", i).Error()}
		default:
		}

		spec, ok := r.lookup(instr.ContractID)
		if !ok {
			return batch.Response{Err: errs.New(errs.ContractUnknown, "unknown contract id %d", instr.ContractID).Error()}
		}

		params := make(map[string]value.Value, len(instr.Params))
		for _, p := range instr.Params {
			v := p.Value
			if v.Kind == value.KindChainRef {
				resolved, err := resolveChain(v.ChainRef, i, chained, chainable)
				if err != nil {
					return batch.Response{Err: err.Error()}
				}
				v = resolved
			}
			params[p.Name] = v
		}

		if err := validateParams(spec, params); err != nil {
			return batch.Response{Err: err.Error()}
		}

		res, err := spec.Fn(ctx, params)
		if err != nil {
			res = batch.Result{Kind: batch.ResultError, ErrMsg: err.Error()}
		}
		results = append(results, res)

		v, ok := resultToValue(res)
		chained = append(chained, v)
		chainable = append(chainable, ok)
	}

	return batch.Response{Results: results}
}

// resolveChain resolves ref against the results of instructions before
// index i. ChainPrev is i-1; ChainFrom(k) requires k < i (spec.md §4.7,
// P9). A reference to an instruction index that is not yet
// computed — at or after i — is ChainForwardRef. ChainPrev with no
// predecessor (i == 0) has no forward instruction to blame, so this
// port reports it as ChainOutOfRange instead — the two kinds spec.md
// §7 lists without further distinction are used to separate "points
// at the future" from "points nowhere at all" (an Open Question
// decision, see DESIGN.md).
func resolveChain(ref value.ChainRef, i int, chained []value.Value, chainable []bool) (value.Value, error) {
	var k int
	switch ref.Kind {
	case value.ChainPrev:
		if i == 0 {
			return value.Value{}, errs.New(errs.ChainOutOfRange, "ChainPrev at instruction 0 has no predecessor")
		}
		k = i - 1
	case value.ChainFrom:
		k = int(ref.From)
		if k >= i {
			return value.Value{}, errs.New(errs.ChainForwardRef, "instruction %d references result %d, which has not run yet", i, k)
		}
	default:
		return value.Value{}, errs.New(errs.ChainForwardRef, "unknown chain ref kind")
	}
	if !chainable[k] {
		return value.Value{}, errs.New(errs.ParamTypeMismatch, "instruction %d chains to result %d, which is an error result", i, k)
	}
	return chained[k], nil
}

// resultToValue projects a batch.Result back into the Value model so
// it can serve as a later instruction's parameter. ok is false for
// ResultError, which has no Value representation and so can never be
// chained (see resolveChain).
func resultToValue(r batch.Result) (v value.Value, ok bool) {
	switch r.Kind {
	case batch.ResultNull:
		return value.Null(), true
	case batch.ResultBool:
		return value.Bool(r.Bool), true
	case batch.ResultInt:
		return value.Int(r.Int), true
	case batch.ResultFloat:
		return value.Float(float64(r.Float)), true
	case batch.ResultTensor:
		return value.Bytes(encodeTensorBytes(r.Tensor)), true
	case batch.ResultHandle:
		return value.Handle(digest.TagGeneric, r.Handle), true
	case batch.ResultError:
		return value.Value{}, false
	default:
		return value.Value{}, false
	}
}

// encodeTensorBytes lays out t using the tensor-shaped Bytes
// convention of spec.md §4.3: u8 ndim, ndim × u32 shape (little-
// endian), then f32[∏shape] (little-endian).
func encodeTensorBytes(t batch.Tensor) []byte {
	out := make([]byte, 0, 1+4*len(t.Shape)+4*len(t.Elements))
	out = append(out, byte(len(t.Shape)))
	for _, s := range t.Shape {
		out = append(out, byte(s), byte(s>>8), byte(s>>16), byte(s>>24))
	}
	for _, f := range t.Elements {
		bits := math.Float32bits(f)
		out = append(out, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}
	return out
}
