// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lcr implements the LC-R glyph codec (spec.md §4.5): the same
// Value grammar as LC-T, rendered in the core LC_R_GLYPHS table from
// original_source's glyphs.py. Only that core table is normative for
// the wire codec — the Celtic/Futhark/Alchemical/math-operator tables
// in glyphs.py are documentation extras with no bearing on bijection.
package lcr

// Core glyphs, verbatim from glyphs.py's LC_R_GLYPHS (display-extension
// tables such as CELTIC_GLYPHS, ELDER_FUTHARK, ALCHEMICAL_GLYPHS and
// MATH_OPERATORS are intentionally not ported — they are never read by
// the decoder).
const (
	gTrue      = '⊤' // ⊤
	gFalse     = '⊥' // ⊥
	gNull      = '∅' // ∅
	gHandle    = '⟁' // ⟁
	gCStart    = '\U0001F70A' // 🜊
	gField     = '\U0001F701' // 🜁
	gCEnd      = '\U0001F702' // 🜂
	gInt       = '\U0001F703' // 🜃
	gFloat     = '\U0001F704' // 🜄
	gText      = '᛭'     // ᛭
	gBytes     = '᛫'     // ᛫
	gArray     = '⋔'     // ⋔
	gObject    = '⋕'     // ⋕
	gSeparator = '⋅'     // ⋅
	gBind      = '⋯'     // ⋯
)

func isGlyph(r rune) bool {
	switch r {
	case gTrue, gFalse, gNull, gHandle, gCStart, gField, gCEnd,
		gInt, gFloat, gText, gBytes, gArray, gObject, gSeparator, gBind:
		return true
	default:
		return false
	}
}
