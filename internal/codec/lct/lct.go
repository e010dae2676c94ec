// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lct implements the LC-T text codec (spec.md §4.4): a
// human-readable rendering of the Value model, ported from
// original_source's lc_t_codec.py byte-for-byte grammar — NULL/TRUE/
// FALSE keywords, quoted strings, "#"+hex bytes, "@"+suffix handles,
// "[...]" arrays, "{key:val,...}" objects and "{C:id,idx=val,...}"
// contracts. The structural syntax is ASCII, but Text values and
// Object keys are copied into the output as raw UTF-8: non-ASCII
// characters are not escaped, so the output is ASCII only when the
// value's strings are.
package lct

import (
	"strconv"
	"strings"

	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/internal/value"
)

// handlePrefix is the universal handle tag prefix every value.Handle in
// this codebase carries (digest.TagShader and digest.TagGeneric both
// start with it); LC-T strips it on encode and restores it on decode,
// matching lc_t_codec.py's primary "&h_" branch.
const handlePrefix = "&h_"

// Encode renders v as an LC-T string. Object keys are written in
// construction order (LC-T is not used for digesting, so there is no
// canonical-order requirement here).
func Encode(v value.Value) (string, error) {
	var sb strings.Builder
	if err := encode(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func encode(sb *strings.Builder, v value.Value) error {
	switch v.Kind {
	case value.KindNull:
		sb.WriteString("NULL")
		return nil

	case value.KindBool:
		if v.Bool {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
		return nil

	case value.KindInt:
		sb.WriteString(strconv.FormatInt(v.Int, 10))
		return nil

	case value.KindFloat:
		sb.WriteString(formatFloat(v.Float))
		return nil

	case value.KindText:
		encodeString(sb, v.Text)
		return nil

	case value.KindBytes:
		sb.WriteByte('#')
		sb.WriteString(hexEncode(v.Bytes))
		return nil

	case value.KindHandle:
		full := v.HandleTag
		sb.WriteByte('@')
		if strings.HasPrefix(full, handlePrefix) {
			sb.WriteString(full[len(handlePrefix):])
		} else {
			sb.WriteString(full)
		}
		sb.WriteString(hexEncode(v.HandleDigest[:]))
		return nil

	case value.KindArray:
		sb.WriteByte('[')
		for i, elem := range v.Array {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := encode(sb, elem); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
		return nil

	case value.KindObject:
		return encodeObject(sb, v.Object)

	case value.KindContract:
		return encodeContract(sb, v.Contract)

	case value.KindChainRef:
		return errs.New(errs.LcEncode, "ChainRef has no LC-T surface form")

	default:
		return errs.New(errs.LcEncode, "unknown value kind %v", v.Kind)
	}
}

func encodeObject(sb *strings.Builder, o *value.Object) error {
	if o == nil {
		o = value.NewObject()
	}
	sb.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte(':')
		if err := encode(sb, o.Values[k]); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

func encodeContract(sb *strings.Builder, c *value.Contract) error {
	if c == nil {
		return errs.New(errs.LcEncode, "nil contract")
	}
	sb.WriteString("{C:")
	sb.WriteString(strconv.FormatUint(uint64(c.ContractID), 10))
	for _, idx := range c.FieldIdx {
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatUint(uint64(idx), 10))
		sb.WriteByte('=')
		if err := encode(sb, c.Fields[idx]); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

func encodeString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '"':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}

// formatFloat follows lc_t_codec.py's "shape" rule (a float that looks
// integer-valued still needs a visible decimal point, e.g. 3.0 not
// "3"), but uses the shortest round-trip precision rather than the
// original's fixed %.15g: spec.md §4.4 requires the decimal form to
// parse back to the identical bit pattern, and 15 significant digits
// is not always enough (e.g. 0.3333333333333333 needs 16).
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s = strconv.FormatFloat(f, 'f', 1, 64)
	}
	return s
}
