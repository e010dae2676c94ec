// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lcb implements the LC-B canonical binary codec (spec.md §4.3):
// a recursive tag-prefixed walk over the Value model, little-endian
// fixed fields, LEB128 for lengths and integers. Encoding is
// deterministic (A1); decoding is total over the defined tag set (A2).
package lcb

// Wire tags, spec.md §4.3.
const (
	TagNull      = 0
	TagBool      = 1
	TagInt       = 2
	TagFloat     = 3
	TagText      = 4
	TagBytes     = 5
	TagArray     = 6
	TagObject    = 7
	TagHandle    = 8
	TagChainPrev = 9
	TagChainFrom = 10

	// TagContract is not part of spec.md §4.3's published tag table
	// (which stops at 10) even though Contract is a first-class Value
	// variant in §3 and in the LC-T/LC-R grammars. We resolve this gap
	// — see DESIGN.md — by extending the tag space with 11: contract_id
	// (LEB128 u32), field count (LEB128 u32), then ascending-index
	// (field index LEB128 u32, Value) pairs.
	TagContract = 11
)
