// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package lct

import (
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/latentcollapse/hlx-core/internal/digest"
	"github.com/latentcollapse/hlx-core/internal/errs"
	"github.com/latentcollapse/hlx-core/internal/value"
)

// Decode parses a complete LC-T string into a Value, rejecting any
// leftover trailing content (lc_t_codec.py's decode() does the same:
// "Ensure we consumed all input").
func Decode(s string) (value.Value, error) {
	if !utf8.ValidString(s) {
		return value.Value{}, errs.New(errs.LcParse, "invalid UTF-8 input")
	}
	p := &parser{text: strings.TrimSpace(s)}
	if p.text == "" {
		return value.Value{}, errs.New(errs.LcParse, "empty input")
	}
	v, err := p.parseValue()
	if err != nil {
		return value.Value{}, err
	}
	p.skipSpace()
	if p.pos < len(p.text) {
		return value.Value{}, errs.New(errs.LcParse, "unexpected content after value at position %d", p.pos)
	}
	return v, nil
}

type parser struct {
	text string
	pos  int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.text) && (p.text[p.pos] == ' ' || p.text[p.pos] == '\t' || p.text[p.pos] == '\n' || p.text[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) match(keyword string) bool {
	end := p.pos + len(keyword)
	if end > len(p.text) || p.text[p.pos:end] != keyword {
		return false
	}
	if end < len(p.text) && isAlnum(p.text[end]) {
		return false
	}
	p.pos = end
	return true
}

func isAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *parser) parseValue() (value.Value, error) {
	p.skipSpace()
	if p.pos >= len(p.text) {
		return value.Value{}, errs.New(errs.LcParse, "unexpected end of input")
	}
	c := p.text[p.pos]

	if p.match("NULL") {
		return value.Null(), nil
	}
	if p.match("TRUE") {
		return value.Bool(true), nil
	}
	if p.match("FALSE") {
		return value.Bool(false), nil
	}

	switch {
	case c == '@':
		p.pos++
		return p.parseHandle()
	case c == '#':
		p.pos++
		return p.parseBytes()
	case c == '"':
		s, err := p.readString()
		if err != nil {
			return value.Value{}, err
		}
		return value.Text(s), nil
	case c == '[':
		return p.parseArray()
	case c == '{':
		return p.parseBrace()
	case c == '-' || isDigit(c):
		return p.readNumber()
	}
	return value.Value{}, errs.New(errs.LcParse, "unexpected character %q at position %d", c, p.pos)
}

func (p *parser) parseHandle() (value.Value, error) {
	start := p.pos
	for p.pos < len(p.text) && isAlnum(p.text[p.pos]) {
		p.pos++
	}
	full := "&h_" + p.text[start:p.pos]
	tag, d, ok := digest.Parse(full)
	if !ok {
		return value.Value{}, errs.New(errs.LcParse, "invalid handle at position %d", start)
	}
	return value.Handle(tag, d), nil
}

func (p *parser) parseBytes() (value.Value, error) {
	start := p.pos
	for p.pos < len(p.text) && isHex(p.text[p.pos]) {
		p.pos++
	}
	raw, err := hex.DecodeString(p.text[start:p.pos])
	if err != nil {
		return value.Value{}, errs.New(errs.LcParse, "invalid hex bytes at position %d", start)
	}
	return value.Bytes(raw), nil
}

func isHex(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func (p *parser) readString() (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		if c == '"' {
			p.pos++
			return sb.String(), nil
		}
		if c == '\\' {
			p.pos++
			if p.pos >= len(p.text) {
				return "", errs.New(errs.LcParse, "unterminated escape sequence")
			}
			switch p.text[p.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				sb.WriteByte(p.text[p.pos])
			}
			p.pos++
			continue
		}
		sb.WriteByte(c)
		p.pos++
	}
	return "", errs.New(errs.LcParse, "unterminated string")
}

func (p *parser) readNumberStr() string {
	start := p.pos
	if p.pos < len(p.text) && p.text[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.text) && isDigit(p.text[p.pos]) {
		p.pos++
	}
	isFloat := false
	if p.pos < len(p.text) && p.text[p.pos] == '.' {
		isFloat = true
		p.pos++
		for p.pos < len(p.text) && isDigit(p.text[p.pos]) {
			p.pos++
		}
	}
	if p.pos < len(p.text) && (p.text[p.pos] == 'e' || p.text[p.pos] == 'E') {
		isFloat = true
		p.pos++
		if p.pos < len(p.text) && (p.text[p.pos] == '+' || p.text[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.text) && isDigit(p.text[p.pos]) {
			p.pos++
		}
	}
	_ = isFloat
	return p.text[start:p.pos]
}

func (p *parser) readNumber() (value.Value, error) {
	start := p.pos
	s := p.readNumberStr()
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return value.Value{}, errs.New(errs.LcParse, "invalid number at position %d", start)
		}
		return value.Float(f), nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return value.Value{}, errs.New(errs.LcParse, "invalid number at position %d", start)
	}
	return value.Int(i), nil
}

func (p *parser) parseArray() (value.Value, error) {
	p.pos++ // '['
	p.skipSpace()
	var elems []value.Value
	if p.pos < len(p.text) && p.text[p.pos] == ']' {
		p.pos++
		return value.Array(elems), nil
	}
	for {
		p.skipSpace()
		v, err := p.parseValue()
		if err != nil {
			return value.Value{}, err
		}
		elems = append(elems, v)
		p.skipSpace()
		if p.pos >= len(p.text) {
			return value.Value{}, errs.New(errs.LcParse, "unterminated array")
		}
		if p.text[p.pos] == ']' {
			p.pos++
			break
		}
		if p.text[p.pos] != ',' {
			return value.Value{}, errs.New(errs.LcParse, "expected ',' or ']' in array at position %d", p.pos)
		}
		p.pos++
	}
	return value.Array(elems), nil
}

func (p *parser) parseBrace() (value.Value, error) {
	p.pos++ // '{'
	p.skipSpace()
	if p.pos < len(p.text) && p.text[p.pos] == '}' {
		p.pos++
		return value.ObjectOf(value.NewObject()), nil
	}
	if p.pos+2 <= len(p.text) && p.text[p.pos:p.pos+2] == "C:" {
		return p.parseContract()
	}
	return p.parseObject()
}

func (p *parser) parseContract() (value.Value, error) {
	p.pos += 2 // 'C:'
	idStr := p.readNumberStr()
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return value.Value{}, errs.New(errs.LcParse, "invalid contract id")
	}
	c := value.NewContract(uint32(id))
	for p.pos < len(p.text) {
		p.skipSpace()
		if p.text[p.pos] == '}' {
			p.pos++
			break
		}
		if p.text[p.pos] == ',' {
			p.pos++
			p.skipSpace()
		}
		idxStr := p.readNumberStr()
		idx, err := strconv.ParseUint(idxStr, 10, 32)
		if err != nil {
			return value.Value{}, errs.New(errs.LcParse, "invalid field index at position %d", p.pos)
		}
		p.skipSpace()
		if p.pos >= len(p.text) || p.text[p.pos] != '=' {
			return value.Value{}, errs.New(errs.LcParse, "expected '=' after field index at position %d", p.pos)
		}
		p.pos++
		p.skipSpace()
		v, err := p.parseValue()
		if err != nil {
			return value.Value{}, err
		}
		c.SetField(uint32(idx), v)
	}
	return value.ContractOf(c), nil
}

func (p *parser) parseObject() (value.Value, error) {
	o := value.NewObject()
	for {
		p.skipSpace()
		if p.pos >= len(p.text) {
			return value.Value{}, errs.New(errs.LcParse, "unterminated object")
		}
		if p.text[p.pos] == '}' {
			p.pos++
			break
		}
		key, err := p.readIdentifier()
		if err != nil {
			return value.Value{}, err
		}
		p.skipSpace()
		if p.pos >= len(p.text) || p.text[p.pos] != ':' {
			return value.Value{}, errs.New(errs.LcParse, "expected ':' after key %q at position %d", key, p.pos)
		}
		p.pos++
		p.skipSpace()
		v, err := p.parseValue()
		if err != nil {
			return value.Value{}, err
		}
		o.Set(key, v)
		p.skipSpace()
		if p.pos < len(p.text) && p.text[p.pos] == ',' {
			p.pos++
		}
	}
	return value.ObjectOf(o), nil
}

func (p *parser) readIdentifier() (string, error) {
	start := p.pos
	for p.pos < len(p.text) && isAlnum(p.text[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", errs.New(errs.LcParse, "expected identifier at position %d", p.pos)
	}
	return p.text[start:p.pos], nil
}
