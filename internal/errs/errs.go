// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package errs is the error taxonomy of spec.md §7, shared by the
// codecs, the CAS, the dispatcher and the transport. Every error
// raised across a component boundary is a *Error carrying one Kind.
package errs

import "fmt"

type Kind uint8

const (
	_ Kind = iota

	// Codec surface
	LcParse
	LcEncode
	LcDecode

	// Batch frame
	MagicMismatch
	VersionUnsupported
	TrailerMismatch

	// Dispatch time
	ContractUnknown
	ParamMissing
	ParamTypeMismatch
	ChainForwardRef
	ChainOutOfRange

	// CAS
	NotFound
	DigestCollision
	StoragePrecondition
	HandleUnresolved

	// Transport / scheduling
	TransportClosed
	DeadlineExceeded

	// Handler-raised
	HandlerFailed
)

var names = map[Kind]string{
	LcParse:             "LcParse",
	LcEncode:            "LcEncode",
	LcDecode:            "LcDecode",
	MagicMismatch:       "MagicMismatch",
	VersionUnsupported:  "VersionUnsupported",
	TrailerMismatch:     "TrailerMismatch",
	ContractUnknown:     "ContractUnknown",
	ParamMissing:        "ParamMissing",
	ParamTypeMismatch:   "ParamTypeMismatch",
	ChainForwardRef:     "ChainForwardRef",
	ChainOutOfRange:     "ChainOutOfRange",
	NotFound:            "NotFound",
	DigestCollision:     "DigestCollision",
	StoragePrecondition: "StoragePrecondition",
	HandleUnresolved:    "HandleUnresolved",
	TransportClosed:     "TransportClosed",
	DeadlineExceeded:    "DeadlineExceeded",
	HandlerFailed:       "HandlerFailed",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "Unknown"
}

// Error is the single error type every component returns. Kind is the
// machine-checkable tag (used by P10-style tests to assert "rejected
// with exactly one of {...}"); Msg is the human-readable detail.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a *Error with no wrapped cause.
func New(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a *Error around an existing error.
func Wrap(k Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of Kind k.
func Is(err error, k Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == k
}

// KindOf extracts the Kind from err, or false if err is not an *Error.
func KindOf(err error) (Kind, bool) {
	e, ok := err.(*Error)
	if !ok {
		return 0, false
	}
	return e.Kind, true
}
