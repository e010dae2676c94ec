// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package dispatch

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/latentcollapse/hlx-core/internal/batch"
	"github.com/latentcollapse/hlx-core/pkg/log"
	"github.com/latentcollapse/hlx-core/pkg/nats"
)

// BatchCompletedSubject is the NATS subject one message is published
// to per completed batch, when a publisher is configured. The
// transport contract (spec.md §4.7) says the server does not
// interpret the caller-chosen batch_id beyond echoing it into
// observability — this is that echo.
const BatchCompletedSubject = "hlx.batch.completed"

// NATSObserver builds a function matching transport.BatchObserver's
// signature that publishes one message per completed batch to
// client. It has no compile-time dependency on package transport —
// the function type is structural — so dispatch stays the owner of
// this concern per spec.md §4.8, and transport only needs a plain
// func value wired in by cmd/hlxd.
func NATSObserver(client *nats.Client) func(batchID [batch.BatchIDSize]byte, instructionCount int, resp batch.Response) {
	return func(batchID [batch.BatchIDSize]byte, instructionCount int, resp batch.Response) {
		payload := encodeBatchCompleted(batchID, instructionCount, resp)
		if err := client.Publish(BatchCompletedSubject, payload); err != nil {
			log.Warnf("dispatch: publish %s: %v", BatchCompletedSubject, err)
		}
	}
}

// encodeBatchCompleted renders batch_id (hex) + status + instruction
// count into a small fixed-layout payload: 64 bytes of hex digest,
// one status byte (0 ok, 1 error), then a little-endian uint32
// instruction count.
func encodeBatchCompleted(batchID [batch.BatchIDSize]byte, instructionCount int, resp batch.Response) []byte {
	out := make([]byte, hex.EncodedLen(batch.BatchIDSize)+1+4)
	hex.Encode(out, batchID[:])

	status := byte(0)
	if resp.Err != "" {
		status = 1
	}
	out[hex.EncodedLen(batch.BatchIDSize)] = status

	binary.LittleEndian.PutUint32(out[hex.EncodedLen(batch.BatchIDSize)+1:], uint32(instructionCount))
	return out
}
