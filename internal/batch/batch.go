// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package batch implements the LC-B batch request/response framing of
// spec.md §4.7: a length-prefixed payload carrying an ordered list of
// (contract_id, named parameters) instructions, sealed with a BLAKE2b
// integrity trailer. This package only encodes/decodes frames; dispatch
// (resolving ChainRef, invoking handlers) lives in internal/dispatch.
package batch

import (
	"github.com/latentcollapse/hlx-core/internal/value"
)

// Magic is the LC-B batch magic word, "LCB1" read little-endian
// (spec.md §4.7, §6).
const Magic = 0x3142434C

// Version is the only batch wire version this implementation speaks.
const Version = 1

// BatchIDSize is the fixed width of the caller-chosen opaque batch id.
const BatchIDSize = 32

// Param is one named instruction parameter.
type Param struct {
	Name  string
	Value value.Value
}

// Instruction is one (contract_id, params) entry in a batch.
type Instruction struct {
	ContractID uint32
	Params     []Param
}

// Request is a fully decoded LC-B batch, header through trailer.
type Request struct {
	BatchID      [BatchIDSize]byte
	Instructions []Instruction
}
