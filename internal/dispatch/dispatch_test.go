// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"context"
	"testing"

	"github.com/latentcollapse/hlx-core/internal/batch"
	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/internal/value"
)

func doubleHandler() HandlerSpec {
	return HandlerSpec{
		Params: []ParamSpec{{Name: "n", Kind: value.KindInt}},
		Fn: func(ctx context.Context, params map[string]value.Value) (batch.Result, error) {
			return batch.Result{Kind: batch.ResultInt, Int: params["n"].Int * 2}, nil
		},
	}
}

func TestDispatchStrictOrderAndChaining(t *testing.T) {
	r := NewRegistry()
	r.Register(1, doubleHandler())

	req := batch.Request{
		Instructions: []batch.Instruction{
			{ContractID: 1, Params: []batch.Param{{Name: "n", Value: value.Int(3)}}},
			{ContractID: 1, Params: []batch.Param{{Name: "n", Value: value.ChainPrevRef()}}},
			{ContractID: 1, Params: []batch.Param{{Name: "n", Value: value.ChainFromRef(0)}}},
		},
	}

	resp := r.Dispatch(context.Background(), req)
	if resp.Err != "" {
		t.Fatalf("unexpected batch error: %s", resp.Err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	if resp.Results[0].Int != 6 {
		t.Fatalf("instruction 0: expected 6, got %d", resp.Results[0].Int)
	}
	if resp.Results[1].Int != 12 {
		t.Fatalf("instruction 1 (ChainPrev of 6): expected 12, got %d", resp.Results[1].Int)
	}
	if resp.Results[2].Int != 12 {
		t.Fatalf("instruction 2 (ChainFrom 0 of 6): expected 12, got %d", resp.Results[2].Int)
	}
}

func TestDispatchUnknownContract(t *testing.T) {
	r := NewRegistry()
	req := batch.Request{Instructions: []batch.Instruction{{ContractID: 99}}}

	resp := r.Dispatch(context.Background(), req)
	if resp.Err == "" {
		t.Fatalf("expected an error response for unknown contract")
	}
}

func TestDispatchChainForwardRef(t *testing.T) {
	r := NewRegistry()
	r.Register(1, doubleHandler())

	req := batch.Request{
		Instructions: []batch.Instruction{
			{ContractID: 1, Params: []batch.Param{{Name: "n", Value: value.ChainFromRef(0)}}},
		},
	}
	resp := r.Dispatch(context.Background(), req)
	if resp.Err == "" {
		t.Fatalf("expected a ChainForwardRef error")
	}
}

func TestDispatchChainPrevAtZeroIsOutOfRange(t *testing.T) {
	r := NewRegistry()
	r.Register(1, doubleHandler())

	req := batch.Request{
		Instructions: []batch.Instruction{
			{ContractID: 1, Params: []batch.Param{{Name: "n", Value: value.ChainPrevRef()}}},
		},
	}
	resp := r.Dispatch(context.Background(), req)
	if resp.Err == "" {
		t.Fatalf("expected a ChainOutOfRange error")
	}
}

func TestDispatchParamMissing(t *testing.T) {
	r := NewRegistry()
	r.Register(1, doubleHandler())

	req := batch.Request{Instructions: []batch.Instruction{{ContractID: 1}}}
	resp := r.Dispatch(context.Background(), req)
	if resp.Err == "" {
		t.Fatalf("expected ParamMissing error")
	}
}

func TestDispatchParamTypeMismatch(t *testing.T) {
	r := NewRegistry()
	r.Register(1, doubleHandler())

	req := batch.Request{
		Instructions: []batch.Instruction{
			{ContractID: 1, Params: []batch.Param{{Name: "n", Value: value.Text("not an int")}}},
		},
	}
	resp := r.Dispatch(context.Background(), req)
	if resp.Err == "" {
		t.Fatalf("expected ParamTypeMismatch error")
	}
}

func TestDispatchHandlerErrorBecomesResultNotBatchAbort(t *testing.T) {
	r := NewRegistry()
	r.Register(1, HandlerSpec{
		Params: []ParamSpec{{Name: "n", Kind: value.KindInt}},
		Fn: func(ctx context.Context, params map[string]value.Value) (batch.Result, error) {
			return batch.Result{}, errs.New(errs.HandlerFailed, "simulated failure")
		},
	})

	req := batch.Request{
		Instructions: []batch.Instruction{
			{ContractID: 1, Params: []batch.Param{{Name: "n", Value: value.Int(1)}}},
		},
	}
	resp := r.Dispatch(context.Background(), req)
	if resp.Err != "" {
		t.Fatalf("handler-raised error must not abort the batch, got %s", resp.Err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Kind != batch.ResultError {
		t.Fatalf("expected a single Error result, got %+v", resp.Results)
	}
}

func TestDispatchCannotChainToErrorResult(t *testing.T) {
	r := NewRegistry()
	r.Register(1, HandlerSpec{
		Fn: func(ctx context.Context, params map[string]value.Value) (batch.Result, error) {
			return batch.Result{}, errs.New(errs.HandlerFailed, "simulated failure")
		},
	})
	r.Register(2, doubleHandler())

	req := batch.Request{
		Instructions: []batch.Instruction{
			{ContractID: 1},
			{ContractID: 2, Params: []batch.Param{{Name: "n", Value: value.ChainPrevRef()}}},
		},
	}
	resp := r.Dispatch(context.Background(), req)
	if resp.Err == "" {
		t.Fatalf("expected an error when chaining to a failed instruction's result")
	}
}
