// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lcr

import (
	"strconv"
	"strings"

	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/internal/value"
)

// Encode renders v in the LC-R glyph grammar (lc_r_codec.py's
// LCREncoder.encode, ported glyph-for-glyph). Object keys are written
// in construction order, same as LC-T.
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
		sb.WriteRune(gNull)
		return nil

	case value.KindBool:
		if v.Bool {
			sb.WriteRune(gTrue)
		} else {
			sb.WriteRune(gFalse)
		}
		return nil

	case value.KindInt:
		sb.WriteRune(gInt)
		sb.WriteString(strconv.FormatInt(v.Int, 10))
		return nil

	case value.KindFloat:
		sb.WriteRune(gFloat)
		sb.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
		return nil

	case value.KindText:
		sb.WriteRune(gText)
		encodeString(sb, v.Text)
		return nil

	case value.KindBytes:
		sb.WriteRune(gBytes)
		sb.WriteString(hexEncode(v.Bytes))
		return nil

	case value.KindHandle:
		sb.WriteRune(gHandle)
		full := v.HandleTag + hexEncode(v.HandleDigest[:])
		sb.WriteString(strings.TrimPrefix(full, "&"))
		return nil

	case value.KindArray:
		sb.WriteRune(gArray)
		sb.WriteByte('[')
		for i, elem := range v.Array {
			if i > 0 {
				sb.WriteRune(gSeparator)
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
		return errs.New(errs.LcEncode, "ChainRef has no LC-R surface form")

	default:
		return errs.New(errs.LcEncode, "unknown value kind %v", v.Kind)
	}
}

func encodeObject(sb *strings.Builder, o *value.Object) error {
	if o == nil {
		o = value.NewObject()
	}
	sb.WriteRune(gObject)
	sb.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			sb.WriteRune(gSeparator)
		}
		sb.WriteRune(gText)
		encodeString(sb, k)
		sb.WriteRune(gBind)
		if err := encode(sb, o.Values[k]); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

// encodeContract writes CONTRACT_START, digits(contract_id), then for
// each field (in ascending index order) FIELD + digits(index) + " " +
// value, then CONTRACT_END. Unlike lc_r_codec.py's Python dict walk
// (which numbers fields by iteration position, 0,1,2,...), this uses
// the Contract's actual field indices — the Value model's Contract
// carries explicit u32 indices, not a positional count, so the glyph
// form must round-trip those, not manufacture new ones.
func encodeContract(sb *strings.Builder, c *value.Contract) error {
	if c == nil {
		return errs.New(errs.LcEncode, "nil contract")
	}
	sb.WriteRune(gCStart)
	sb.WriteString(strconv.FormatUint(uint64(c.ContractID), 10))
	for _, idx := range c.FieldIdx {
		sb.WriteRune(gField)
		sb.WriteString(strconv.FormatUint(uint64(idx), 10))
		sb.WriteByte(' ')
		if err := encode(sb, c.Fields[idx]); err != nil {
			return err
		}
	}
	sb.WriteRune(gCEnd)
	return nil
}

// encodeString escapes both quotes and backslashes. lc_r_codec.py's
// encoder only escapes quotes, which makes its own decoder's generic
// backslash-escape handling lossy for text containing a literal
// backslash; escaping both here keeps encode/decode a true bijection.
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
