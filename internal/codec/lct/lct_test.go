// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lct

import (
	"math"
	"math/rand"
	"testing"

	"github.com/latentcollapse/hlx-core/internal/value"
)

func TestEncodePrimitives(t *testing.T) {
	cases := []struct {
		v    value.Value
		want string
	}{
		{value.Null(), "NULL"},
		{value.Bool(true), "TRUE"},
		{value.Bool(false), "FALSE"},
		{value.Int(42), "42"},
		{value.Int(-17), "-17"},
		{value.Text("hello"), `"hello"`},
		{value.Bytes([]byte{1, 2, 3}), "#010203"},
		{value.Array(nil), "[]"},
		{value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)}), "[1,2,3]"},
	}
	for _, c := range cases {
		got, err := Encode(c.v)
		if err != nil {
			t.Fatalf("Encode(%v): %v", c.v, err)
		}
		if got != c.want {
			t.Errorf("Encode(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestEncodeObject(t *testing.T) {
	o := value.NewObject()
	o.Set("x", value.Int(10))
	got, err := Encode(value.ObjectOf(o))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got != "{x:10}" {
		t.Errorf("Encode(object) = %q, want %q", got, "{x:10}")
	}
}

func TestEncodeContract(t *testing.T) {
	c := value.NewContract(14)
	c.SetField(0, value.Int(42))
	got, err := Encode(value.ContractOf(c))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got != "{C:14,0=42}" {
		t.Errorf("Encode(contract) = %q, want %q", got, "{C:14,0=42}")
	}
}

func TestRoundTrip(t *testing.T) {
	o := value.NewObject()
	o.Set("a", value.Text("b"))
	c := value.NewContract(1000)
	c.SetField(1, value.Text("hello"))
	c.SetField(0, value.Int(-3))

	cases := []value.Value{
		value.Null(),
		value.Bool(true),
		value.Int(-17),
		value.Float(3.5),
		value.Text(`with "quotes" and \backslash`),
		value.Bytes([]byte{0xde, 0xad, 0xbe, 0xef}),
		value.Array([]value.Value{value.Int(1), value.Null(), value.Bool(false)}),
		value.ObjectOf(o),
		value.ContractOf(c),
	}

	for _, v := range cases {
		enc, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode(%v): %v", v, err)
		}
		dec, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%q): %v", enc, err)
		}
		if !value.Equal(v, dec) {
			t.Errorf("round trip mismatch: %v -> %q -> %v", v, enc, dec)
		}
	}
}

// TestRoundTripFloatRandom is a testing/quick-style property loop
// (SPEC_FULL.md §8): encoding then decoding an arbitrary float64 bit
// pattern must reproduce the exact same bits, not merely a nearby
// value. This is the case that exposed formatFloat's former 15-digit
// truncation, which lost precision on ordinary fractions.
func TestRoundTripFloatRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		bits := rng.Uint64()
		f := math.Float64frombits(bits)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}

		enc, err := Encode(value.Float(f))
		if err != nil {
			t.Fatalf("Encode(%v): %v", f, err)
		}
		dec, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%q): %v", enc, err)
		}
		if dec.Float != f {
			t.Fatalf("round trip mismatch: %v (bits %#x) -> %q -> %v (bits %#x)",
				f, bits, enc, dec.Float, math.Float64bits(dec.Float))
		}
	}
}

func TestDecodeRejectsTrailingContent(t *testing.T) {
	if _, err := Decode("42 garbage"); err == nil {
		t.Error("expected error for trailing content")
	}
}

func TestDecodeRejectsEmpty(t *testing.T) {
	if _, err := Decode(""); err == nil {
		t.Error("expected error for empty input")
	}
}
