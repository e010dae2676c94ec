// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package value defines the abstract sum type every HLX codec and the
// dispatcher agree on: Value. It carries no encoding or storage logic;
// it is the in-memory representation the codecs (lcb, lct, lcr), the
// digest package, the CAS, and the dispatcher all operate over.
package value

import "fmt"

// Kind tags a Value's variant.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindBytes
	KindHandle
	KindArray
	KindObject
	KindContract
	KindChainRef
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBytes:
		return "bytes"
	case KindHandle:
		return "handle"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindContract:
		return "contract"
	case KindChainRef:
		return "chainref"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ChainKind distinguishes the two ChainRef forms spec.md §3/§4.3 allows:
// a reference to the immediately preceding instruction's result, or an
// explicit zero-based index into the batch's result list so far.
type ChainKind uint8

const (
	ChainPrev ChainKind = iota
	ChainFrom
)

// ChainRef refers to the result of a prior instruction in the same
// batch. It is opaque to every operation except the batch dispatcher:
// it is never stored, hashed, or addressable (spec.md §3 invariant).
type ChainRef struct {
	Kind ChainKind
	// From is the zero-based instruction index; meaningful only when
	// Kind == ChainFrom.
	From uint32
}

// Object is an ordered string->Value mapping. Key order is preserved
// for textual surfaces (insertion order at construction); §4.2 requires
// digest computation to instead walk keys in lexicographic order,
// which Object.SortedKeys supplies without mutating Keys/insertion order.
type Object struct {
	Keys   []string
	Values map[string]Value
}

// NewObject builds an empty Object; keys are added in insertion order
// with Set. Set on a key that is already present overwrites its value,
// and the decoders build Objects through Set, so a key repeated in
// their input keeps its first position and its last value.
func NewObject() *Object {
	return &Object{Values: make(map[string]Value)}
}

// Set appends key (or overwrites its value, preserving original
// position, if already present).
func (o *Object) Set(key string, v Value) {
	if _, ok := o.Values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = v
}

// SortedKeys returns Keys sorted lexicographically, the canonical
// order §4.2 requires for digest computation. It does not mutate o.
func (o *Object) SortedKeys() []string {
	out := make([]string, len(o.Keys))
	copy(out, o.Keys)
	insertionSort(out)
	return out
}

func insertionSort(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Contract is a (contract_id, ordered field map) pair. Field indices
// are a set of distinct u32; wire order is always ascending by index
// (spec.md §3 invariant — there is no separate "insertion order" for
// contracts the way there is for Object).
type Contract struct {
	ContractID uint32
	FieldIdx   []uint32
	Fields     map[uint32]Value
}

// NewContract builds an empty Contract for the given contract id.
func NewContract(id uint32) *Contract {
	return &Contract{ContractID: id, Fields: make(map[uint32]Value)}
}

// SetField records a field value, keeping FieldIdx sorted ascending.
func (c *Contract) SetField(idx uint32, v Value) {
	if _, ok := c.Fields[idx]; !ok {
		c.FieldIdx = append(c.FieldIdx, idx)
		insertionSortU32(c.FieldIdx)
	}
	c.Fields[idx] = v
}

func insertionSortU32(s []uint32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Value is the tagged union of §3. Only the field matching Kind is
// meaningful; codecs and the dispatcher are exhaustive switches on Kind.
type Value struct {
	Kind Kind

	Bool  bool
	Int   int64
	Float float64
	Text  string
	Bytes []byte

	// Handle payload: Tag is the prefix ("&h_shader_", "&h_", ...),
	// Digest is the raw 32-byte BLAKE2b-256 digest.
	HandleTag    string
	HandleDigest [32]byte

	Array    []Value
	Object   *Object
	Contract *Contract
	ChainRef ChainRef
}

func Null() Value                { return Value{Kind: KindNull} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value          { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value      { return Value{Kind: KindFloat, Float: f} }
func Text(s string) Value        { return Value{Kind: KindText, Text: s} }
func Bytes(b []byte) Value       { return Value{Kind: KindBytes, Bytes: b} }
func Array(vs []Value) Value     { return Value{Kind: KindArray, Array: vs} }
func ObjectOf(o *Object) Value    { return Value{Kind: KindObject, Object: o} }
func ContractOf(c *Contract) Value {
	return Value{Kind: KindContract, Contract: c}
}

func Handle(tag string, digest [32]byte) Value {
	return Value{Kind: KindHandle, HandleTag: tag, HandleDigest: digest}
}

func ChainPrevRef() Value {
	return Value{Kind: KindChainRef, ChainRef: ChainRef{Kind: ChainPrev}}
}

func ChainFromRef(idx uint32) Value {
	return Value{Kind: KindChainRef, ChainRef: ChainRef{Kind: ChainFrom, From: idx}}
}
