// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package transport

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/latentcollapse/hlx-core/internal/batch"
	"github.com/latentcollapse/hlx-core/internal/dispatch"
	"github.com/latentcollapse/hlx-core/internal/value"
)

func doubleHandler() dispatch.HandlerSpec {
	return dispatch.HandlerSpec{
		Params: []dispatch.ParamSpec{{Name: "n", Kind: value.KindInt}},
		Fn: func(ctx context.Context, params map[string]value.Value) (batch.Result, error) {
			return batch.Result{Kind: batch.ResultInt, Int: params["n"].Int * 2}, nil
		},
	}
}

func startTestServer(t *testing.T) (net.Conn, func()) {
	t.Helper()
	reg := dispatch.NewRegistry()
	reg.Register(1, doubleHandler())

	sockPath := filepath.Join(t.TempDir(), "hlx.sock")
	srv := NewServer(Config{Network: "unix", Address: sockPath}, reg, nil, nil)

	ln, err := srv.Listen()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx, ln)
		close(done)
	}()

	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}

	return conn, func() {
		conn.Close()
		cancel()
		<-done
	}
}

func TestServerRoundTripsOneBatch(t *testing.T) {
	conn, cleanup := startTestServer(t)
	defer cleanup()

	req := batch.Request{
		Instructions: []batch.Instruction{
			{ContractID: 1, Params: []batch.Param{{Name: "n", Value: value.Int(21)}}},
		},
	}
	frame, err := batch.Encode(req)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	if err := writeFrame(conn, frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	payload, err := readFrame(conn)
	if err != nil {
		t.Fatalf("read response frame: %v", err)
	}

	resp, err := batch.DecodeResponse(payload)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Err != "" {
		t.Fatalf("unexpected batch error: %s", resp.Err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Int != 42 {
		t.Fatalf("expected single result 42, got %+v", resp.Results)
	}
}

func TestServerHandlesMultipleBatchesFIFO(t *testing.T) {
	conn, cleanup := startTestServer(t)
	defer cleanup()

	for i := int64(1); i <= 3; i++ {
		req := batch.Request{
			Instructions: []batch.Instruction{
				{ContractID: 1, Params: []batch.Param{{Name: "n", Value: value.Int(i)}}},
			},
		}
		frame, err := batch.Encode(req)
		if err != nil {
			t.Fatalf("encode request %d: %v", i, err)
		}
		if err := writeFrame(conn, frame); err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		payload, err := readFrame(conn)
		if err != nil {
			t.Fatalf("read response %d: %v", i, err)
		}
		resp, err := batch.DecodeResponse(payload)
		if err != nil {
			t.Fatalf("decode response %d: %v", i, err)
		}
		if resp.Results[0].Int != i*2 {
			t.Fatalf("batch %d: expected %d, got %d", i, i*2, resp.Results[0].Int)
		}
	}
}

func TestServerMalformedFrameGetsErrorResponseNotDisconnect(t *testing.T) {
	conn, cleanup := startTestServer(t)
	defer cleanup()

	if err := writeFrame(conn, []byte{0xde, 0xad, 0xbe, 0xef}); err != nil {
		t.Fatalf("write malformed frame: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	payload, err := readFrame(conn)
	if err != nil {
		t.Fatalf("read response to malformed frame: %v", err)
	}
	resp, err := batch.DecodeResponse(payload)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Err == "" {
		t.Fatalf("expected an error response for a malformed frame")
	}

	req := batch.Request{
		Instructions: []batch.Instruction{
			{ContractID: 1, Params: []batch.Param{{Name: "n", Value: value.Int(5)}}},
		},
	}
	frame, err := batch.Encode(req)
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	if err := writeFrame(conn, frame); err != nil {
		t.Fatalf("connection should survive a malformed prior frame: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	payload, err = readFrame(conn)
	if err != nil {
		t.Fatalf("read follow-up response: %v", err)
	}
	resp, err = batch.DecodeResponse(payload)
	if err != nil {
		t.Fatalf("decode follow-up response: %v", err)
	}
	if resp.Results[0].Int != 10 {
		t.Fatalf("expected 10, got %+v", resp.Results)
	}
}
