// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lcb

import (
	"math"
	"testing"

	"github.com/latentcollapse/hlx-core/internal/value"
)

func roundTrip(t *testing.T, v value.Value) value.Value {
	t.Helper()
	enc, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode(%v): %v", v, err)
	}
	dec, n, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode(% x): %v", enc, err)
	}
	if n != len(enc) {
		t.Fatalf("Decode(% x) consumed %d bytes, want %d", enc, n, len(enc))
	}
	if !value.Equal(v, dec) {
		t.Errorf("round trip mismatch: %v -> % x -> %v", v, enc, dec)
	}
	return dec
}

func TestRoundTripIntBoundaries(t *testing.T) {
	cases := []int64{0, -1, 1, math.MinInt64, math.MaxInt64}
	for _, i := range cases {
		roundTrip(t, value.Int(i))
	}
}

func TestRoundTripEmptyArray(t *testing.T) {
	roundTrip(t, value.Array(nil))
}

func TestRoundTripEmptyObject(t *testing.T) {
	roundTrip(t, value.ObjectOf(value.NewObject()))
}

func TestRoundTripEmptyBytes(t *testing.T) {
	roundTrip(t, value.Bytes(nil))
}

func TestRoundTripEmptyText(t *testing.T) {
	roundTrip(t, value.Text(""))
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	_, _, err := Decode([]byte{0xfe})
	if err == nil {
		t.Fatal("expected error for unknown wire tag")
	}
}

func TestDecodeRejectsOverlongVarint(t *testing.T) {
	// 11 continuation bytes plus a terminator: 12 bytes, more than the
	// maxLEB128Bytes total the signed Int varint may use.
	overlong := []byte{TagInt}
	for i := 0; i < 11; i++ {
		overlong = append(overlong, 0x80)
	}
	overlong = append(overlong, 0x00)
	_, _, err := Decode(overlong)
	if err == nil {
		t.Fatal("expected error for overlong LEB128")
	}
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	if _, _, err := Decode(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, _, err := Decode([]byte{TagBool}); err == nil {
		t.Fatal("expected error for truncated bool")
	}
	if _, _, err := Decode([]byte{TagFloat, 1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated float")
	}
}

func TestDecodeRejectsInvalidUTF8Text(t *testing.T) {
	// TagText, length 1, one byte that is not valid UTF-8 on its own.
	bad := []byte{TagText, 1, 0xff}
	if _, _, err := Decode(bad); err == nil {
		t.Fatal("expected error for invalid UTF-8 text")
	}
}

func TestRoundTripNested(t *testing.T) {
	o := value.NewObject()
	o.Set("a", value.Int(1))
	o.Set("b", value.Array([]value.Value{value.Text("x"), value.Null()}))

	c := value.NewContract(7)
	c.SetField(0, value.Bool(true))
	c.SetField(2, value.Float(1.5))

	roundTrip(t, value.Array([]value.Value{
		value.ObjectOf(o),
		value.ContractOf(c),
		value.Handle("h_sha256", [32]byte{1, 2, 3}),
	}))
}
