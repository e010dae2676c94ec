// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lcr

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/internal/value"
)

// Decode parses a single LC-R value. Unlike lct.Decode it does not
// require consuming the whole input up front for nested calls (array/
// object/contract parsing recurses through the same rune cursor), but
// the top-level call still rejects trailing content.
func Decode(s string) (value.Value, error) {
	if !utf8.ValidString(s) {
		return value.Value{}, errs.New(errs.LcParse, "invalid UTF-8 input")
	}
	p := &parser{text: []rune(s)}
	if len(p.text) == 0 {
		return value.Value{}, errs.New(errs.LcParse, "empty input")
	}
	v, err := p.parseValue()
	if err != nil {
		return value.Value{}, err
	}
	if p.pos < len(p.text) {
		return value.Value{}, errs.New(errs.LcParse, "unexpected content after value at position %d", p.pos)
	}
	return v, nil
}

type parser struct {
	text []rune
	pos  int
}

func (p *parser) parseValue() (value.Value, error) {
	if p.pos >= len(p.text) {
		return value.Value{}, errs.New(errs.LcParse, "unexpected end of input")
	}
	r := p.text[p.pos]

	switch r {
	case gNull:
		p.pos++
		return value.Null(), nil
	case gTrue:
		p.pos++
		return value.Bool(true), nil
	case gFalse:
		p.pos++
		return value.Bool(false), nil
	case gHandle:
		p.pos++
		return p.parseHandle()
	case gInt:
		p.pos++
		s := p.readNumber()
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return value.Value{}, errs.New(errs.LcParse, "invalid integer at position %d", p.pos)
		}
		return value.Int(i), nil
	case gFloat:
		p.pos++
		s := p.readNumber()
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return value.Value{}, errs.New(errs.LcParse, "invalid float at position %d", p.pos)
		}
		return value.Float(f), nil
	case gText:
		p.pos++
		s, err := p.readString()
		if err != nil {
			return value.Value{}, err
		}
		return value.Text(s), nil
	case gBytes:
		p.pos++
		return p.parseBytes()
	case gArray:
		p.pos++
		return p.parseArray()
	case gObject:
		p.pos++
		return p.parseObject()
	case gCStart:
		p.pos++
		return p.parseContract()
	default:
		return value.Value{}, errs.New(errs.LcParse, "unexpected character %q at position %d", r, p.pos)
	}
}

func (p *parser) readNumber() string {
	start := p.pos
	for p.pos < len(p.text) {
		r := p.text[p.pos]
		if (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '+' || r == 'e' || r == 'E' {
			p.pos++
		} else {
			break
		}
	}
	return string(p.text[start:p.pos])
}

func (p *parser) readString() (string, error) {
	if p.pos >= len(p.text) || p.text[p.pos] != '"' {
		return "", errs.New(errs.LcParse, "expected opening quote at position %d", p.pos)
	}
	p.pos++
	var sb strings.Builder
	escaped := false
	for p.pos < len(p.text) {
		r := p.text[p.pos]
		if escaped {
			sb.WriteRune(r)
			escaped = false
		} else if r == '\\' {
			escaped = true
		} else if r == '"' {
			p.pos++
			return sb.String(), nil
		} else {
			sb.WriteRune(r)
		}
		p.pos++
	}
	return "", errs.New(errs.LcParse, "unterminated string")
}

// readUntilGlyph matches lc_r_codec.py's _read_until_glyph: consume
// runes until hitting a glyph or a structural marker, trimming spaces.
func (p *parser) readUntilGlyph() string {
	start := p.pos
	for p.pos < len(p.text) {
		r := p.text[p.pos]
		if isGlyph(r) || r == ']' || r == '}' || r == ')' || r == ' ' {
			break
		}
		p.pos++
	}
	return strings.TrimSpace(string(p.text[start:p.pos]))
}

func (p *parser) parseHandle() (value.Value, error) {
	rest := p.readUntilGlyph()
	full := "&" + rest
	tag, d, ok := digest.Parse(full)
	if !ok {
		return value.Value{}, errs.New(errs.LcParse, "invalid handle at position %d", p.pos)
	}
	return value.Handle(tag, d), nil
}

func (p *parser) parseBytes() (value.Value, error) {
	hexStr := p.readUntilGlyph()
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return value.Value{}, errs.New(errs.LcParse, "invalid hex bytes at position %d", p.pos)
	}
	return value.Bytes(raw), nil
}

func (p *parser) parseArray() (value.Value, error) {
	if p.pos >= len(p.text) || p.text[p.pos] != '[' {
		return value.Value{}, errs.New(errs.LcParse, "expected '[' at position %d", p.pos)
	}
	p.pos++
	var elems []value.Value
	for p.pos < len(p.text) {
		if p.text[p.pos] == ']' {
			p.pos++
			return value.Array(elems), nil
		}
		v, err := p.parseValue()
		if err != nil {
			return value.Value{}, err
		}
		elems = append(elems, v)
		if p.pos < len(p.text) && p.text[p.pos] == gSeparator {
			p.pos++
		}
	}
	return value.Value{}, errs.New(errs.LcParse, "unterminated array")
}

func (p *parser) parseObject() (value.Value, error) {
	if p.pos >= len(p.text) || p.text[p.pos] != '{' {
		return value.Value{}, errs.New(errs.LcParse, "expected '{' at position %d", p.pos)
	}
	p.pos++
	o := value.NewObject()
	for p.pos < len(p.text) {
		if p.text[p.pos] == '}' {
			p.pos++
			return value.ObjectOf(o), nil
		}
		if p.text[p.pos] != gText {
			return value.Value{}, errs.New(errs.LcParse, "expected text key at position %d", p.pos)
		}
		p.pos++
		key, err := p.readString()
		if err != nil {
			return value.Value{}, err
		}
		if p.pos >= len(p.text) || p.text[p.pos] != gBind {
			return value.Value{}, errs.New(errs.LcParse, "expected bind glyph at position %d", p.pos)
		}
		p.pos++
		v, err := p.parseValue()
		if err != nil {
			return value.Value{}, err
		}
		o.Set(key, v)
		if p.pos < len(p.text) && p.text[p.pos] == gSeparator {
			p.pos++
		}
	}
	return value.Value{}, errs.New(errs.LcParse, "unterminated object")
}

func (p *parser) parseContract() (value.Value, error) {
	idStr := p.readUntilGlyph()
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return value.Value{}, errs.New(errs.LcParse, "invalid contract id at position %d", p.pos)
	}
	c := value.NewContract(uint32(id))
	for p.pos < len(p.text) {
		r := p.text[p.pos]
		if r == gCEnd {
			p.pos++
			return value.ContractOf(c), nil
		}
		if r != gField {
			return value.Value{}, errs.New(errs.LcParse, "expected field glyph at position %d", p.pos)
		}
		p.pos++
		idxStr := p.readUntilGlyph()
		idx, err := strconv.ParseUint(strings.TrimSpace(idxStr), 10, 32)
		if err != nil {
			return value.Value{}, errs.New(errs.LcParse, "invalid field index at position %d", p.pos)
		}
		for p.pos < len(p.text) && p.text[p.pos] == ' ' {
			p.pos++
		}
		v, err := p.parseValue()
		if err != nil {
			return value.Value{}, err
		}
		c.SetField(uint32(idx), v)
	}
	return value.Value{}, errs.New(errs.LcParse, "unterminated contract")
}
