// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package batch

import (
	"testing"
)

func TestResponseRoundTripSuccess(t *testing.T) {
	var h [32]byte
	copy(h[:], []byte("0123456789abcdef0123456789abcde"))

	resp := Response{
		Results: []Result{
			{Kind: ResultNull},
			{Kind: ResultBool, Bool: true},
			{Kind: ResultInt, Int: -4200},
			{Kind: ResultFloat, Float: 3.5},
			{Kind: ResultTensor, Tensor: Tensor{Shape: []uint32{2, 2}, Elements: []float32{1, 2, 3, 4}}},
			{Kind: ResultHandle, Handle: h},
			{Kind: ResultError, ErrMsg: "handler failed"},
		},
	}

	enc, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	got, err := DecodeResponse(enc)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if len(got.Results) != len(resp.Results) {
		t.Fatalf("result count mismatch: got %d, want %d", len(got.Results), len(resp.Results))
	}
	for i, r := range resp.Results {
		g := got.Results[i]
		if g.Kind != r.Kind {
			t.Fatalf("result %d kind mismatch: got %v, want %v", i, g.Kind, r.Kind)
		}
	}
	if got.Results[2].Int != -4200 {
		t.Fatalf("int result mismatch: got %d", got.Results[2].Int)
	}
	if got.Results[3].Float != 3.5 {
		t.Fatalf("float result mismatch: got %v", got.Results[3].Float)
	}
	if len(got.Results[4].Tensor.Elements) != 4 || got.Results[4].Tensor.Shape[0] != 2 {
		t.Fatalf("tensor result mismatch: %+v", got.Results[4].Tensor)
	}
	if got.Results[5].Handle != h {
		t.Fatalf("handle result mismatch")
	}
	if got.Results[6].ErrMsg != "handler failed" {
		t.Fatalf("error result mismatch: %q", got.Results[6].ErrMsg)
	}
}

func TestResponseRoundTripError(t *testing.T) {
	resp := Response{Err: "batch deadline exceeded"}
	enc, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	got, err := DecodeResponse(enc)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if got.Err != resp.Err {
		t.Fatalf("error message mismatch: got %q, want %q", got.Err, resp.Err)
	}
	if len(got.Results) != 0 {
		t.Fatalf("expected no results on error response, got %d", len(got.Results))
	}
}
