// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transport serves the dispatcher over the length-prefixed
// socket of spec.md §4.7/§6: one accepted connection per worker,
// batches handled to completion in strict FIFO order on that
// connection, with no in-band cancellation beyond the per-batch
// wall-clock deadline.
package transport

import (
	"encoding/binary"
	"io"

	"github.com/latentcollapse/hlx-core/internal/errs"
)

// maxFrameBytes bounds a single frame's payload so a corrupt or
// malicious length prefix cannot force an unbounded allocation.
const maxFrameBytes = 64 << 20

// readFrame reads one `u32 LE length` + payload frame (spec.md §4.7).
// A clean close before any byte of a new frame returns io.EOF
// unwrapped; every other failure (a read error, a peer vanishing
// mid-frame, a length over maxFrameBytes) is reported as
// TransportClosed.
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errs.Wrap(errs.TransportClosed, err, "read frame length")
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > maxFrameBytes {
		return nil, errs.New(errs.TransportClosed, "frame length %d exceeds maximum %d", n, maxFrameBytes)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errs.Wrap(errs.TransportClosed, err, "read frame payload")
	}
	return payload, nil
}

// writeFrame writes payload as one length-prefixed frame. A failed
// write means the peer is gone; the caller treats this as
// TransportClosed and tears down the connection (spec.md §5: "the
// server treats a broken write as TransportClosed and releases all
// resources acquired during the batch").
func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return errs.Wrap(errs.TransportClosed, err, "write frame length")
	}
	if _, err := w.Write(payload); err != nil {
		return errs.Wrap(errs.TransportClosed, err, "write frame payload")
	}
	return nil
}
