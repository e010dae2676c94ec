// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"context"

	"github.com/latentcollapse/hlx-core/internal/batch"
	"github.com/latentcollapse/hlx-core/internal/cas"
	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/internal/value"
)

// Contract ids 1 and 2 are always registered by cmd/hlxd: a smoke-test
// echo and a minimal CAS write, both outside the reserved 800-899 /
// 900-999 blocks spec.md §6 sets aside for the parser and GPU tiers.
const (
	ContractEcho   = 1
	ContractCASPut = 2
)

// NewEchoHandler returns the Int echo used by operators to smoke-test
// a running daemon: it returns its single parameter unchanged.
func NewEchoHandler() HandlerSpec {
	return HandlerSpec{
		Params: []ParamSpec{{Name: "value", Kind: value.KindInt}},
		Fn: func(ctx context.Context, params map[string]value.Value) (batch.Result, error) {
			return batch.Result{Kind: batch.ResultInt, Int: params["value"].Int}, nil
		},
	}
}

// NewCASPutHandler wraps store.Put as contract 2, storing an opaque
// byte payload under a caller-given name. Failures surface as a
// per-instruction Error result rather than aborting the batch — a CAS
// write failure on one instruction should not cost the rest of the
// batch its results (spec.md §7's "handler-raised error" case).
func NewCASPutHandler(store *cas.Store) HandlerSpec {
	return HandlerSpec{
		Params: []ParamSpec{
			{Name: "bytes", Kind: value.KindBytes},
			{Name: "name", Kind: value.KindText},
		},
		Fn: func(ctx context.Context, params map[string]value.Value) (batch.Result, error) {
			handle, err := store.Put(ctx, digest.TagGeneric, params["bytes"].Bytes, cas.PutMeta{
				Name: params["name"].Text,
			})
			if err != nil {
				return batch.Result{}, err
			}
			_, d, ok := digest.Parse(handle)
			if !ok {
				return batch.Result{}, errs.New(errs.HandleUnresolved, "cas.put returned malformed handle %q", handle)
			}
			return batch.Result{Kind: batch.ResultHandle, Handle: d}, nil
		},
	}
}
