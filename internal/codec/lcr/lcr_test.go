// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lcr

import (
	"testing"

	"github.com/latentcollapse/hlx-core/internal/value"
)

func TestEncodePrimitives(t *testing.T) {
	cases := []struct {
		v    value.Value
		want string
	}{
		{value.Null(), "∅"},
		{value.Bool(true), "⊤"},
		{value.Bool(false), "⊥"},
		{value.Int(42), "🜃42"},
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

func TestRoundTrip(t *testing.T) {
	o := value.NewObject()
	o.Set("a", value.Text("b"))
	c := value.NewContract(902)
	c.SetField(0, value.Text("test"))
	c.SetField(1, value.Int(7))

	cases := []value.Value{
		value.Null(),
		value.Bool(true),
		value.Int(-17),
		value.Float(3.14),
		value.Text(`hello "world" \ again`),
		value.Bytes([]byte{1, 2, 3}),
		value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)}),
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

func TestDecodeRejectsEmpty(t *testing.T) {
	if _, err := Decode(""); err == nil {
		t.Error("expected error for empty input")
	}
}
