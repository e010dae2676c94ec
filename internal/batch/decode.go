// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package batch

import (
	"bytes"
	"unicode/utf8"

	"github.com/latentcollapse/hlx-core/internal/codec/lcb"
	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
)

const trailerSize = digest.Size

// Decode parses a full LC-B batch payload (magic through trailer),
// verifying the trailer before returning (spec.md §4.7: "The trailer
// is verified before dispatch"). P10: any single-byte mutation
// anywhere in the frame changes the computed trailer and is rejected
// with TrailerMismatch.
func Decode(data []byte) (Request, error) {
	if len(data) < trailerSize {
		return Request{}, errs.New(errs.TrailerMismatch, "frame shorter than trailer (%d bytes)", len(data))
	}
	body := data[:len(data)-trailerSize]
	wantTrailer := data[len(data)-trailerSize:]
	gotTrailer := digest.Sum(body)
	if !bytes.Equal(gotTrailer[:], wantTrailer) {
		return Request{}, errs.New(errs.TrailerMismatch, "batch trailer does not match frame contents")
	}
	return decodeBody(body)
}

func decodeBody(body []byte) (Request, error) {
	pos := 0
	if len(body) < 4+1+BatchIDSize {
		return Request{}, errs.New(errs.MagicMismatch, "batch header truncated")
	}
	magic := getU32LE(body, pos)
	pos += 4
	if magic != Magic {
		return Request{}, errs.New(errs.MagicMismatch, "bad magic %#x, want %#x", magic, Magic)
	}
	version := body[pos]
	pos++
	if version != Version {
		return Request{}, errs.New(errs.VersionUnsupported, "unsupported batch version %d", version)
	}

	var r Request
	copy(r.BatchID[:], body[pos:pos+BatchIDSize])
	pos += BatchIDSize

	n, pos2, err := lcb.GetUvarint(body, pos)
	if err != nil {
		return Request{}, err
	}
	pos = pos2

	r.Instructions = make([]Instruction, 0, n)
	for i := uint32(0); i < n; i++ {
		instr, next, err := decodeInstruction(body, pos)
		if err != nil {
			return Request{}, err
		}
		pos = next
		r.Instructions = append(r.Instructions, instr)
	}
	return r, nil
}

func decodeInstruction(data []byte, pos int) (Instruction, int, error) {
	var instr Instruction
	var err error

	instr.ContractID, pos, err = lcb.GetUvarint(data, pos)
	if err != nil {
		return Instruction{}, pos, err
	}

	nParams, pos2, err := lcb.GetUvarint(data, pos)
	if err != nil {
		return Instruction{}, pos, err
	}
	pos = pos2

	instr.Params = make([]Param, 0, nParams)
	for i := uint32(0); i < nParams; i++ {
		nameLen, next, err := lcb.GetUvarint(data, pos)
		if err != nil {
			return Instruction{}, pos, err
		}
		pos = next
		if pos+int(nameLen) > len(data) {
			return Instruction{}, pos, errs.New(errs.LcDecode, "truncated param name at offset %d", pos)
		}
		if !utf8.Valid(data[pos : pos+int(nameLen)]) {
			return Instruction{}, pos, errs.New(errs.LcDecode, "invalid UTF-8 param name at offset %d", pos)
		}
		name := string(data[pos : pos+int(nameLen)])
		pos += int(nameLen)

		v, next2, err := lcb.Decode(data[pos:])
		if err != nil {
			return Instruction{}, pos, err
		}
		pos += next2

		instr.Params = append(instr.Params, Param{Name: name, Value: v})
	}
	return instr, pos, nil
}

func getU32LE(data []byte, pos int) uint32 {
	return uint32(data[pos]) | uint32(data[pos+1])<<8 | uint32(data[pos+2])<<16 | uint32(data[pos+3])<<24
}
