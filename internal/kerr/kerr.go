// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kerr defines the error kinds shared by the feature-detection
// engine, following the four-kind policy of spec §7: BadSequence and
// BadFeature are reported to the caller without touching engine state;
// CorruptIndex aborts index load; InternalInvariant is fatal.
package kerr

import "fmt"

// Kind identifies one of the engine's error categories.
type Kind int

const (
	// BadSequence marks a query containing disallowed characters or a
	// second FASTA header.
	BadSequence Kind = iota
	// BadFeature marks a library feature with a non-ACGTN base at
	// index-build time.
	BadFeature
	// CorruptIndex marks a malformed compiled index file.
	CorruptIndex
	// InternalInvariant marks a train that violates its ordering
	// invariants. Fatal: the call is aborted.
	InternalInvariant
)

func (k Kind) String() string {
	switch k {
	case BadSequence:
		return "BadSequence"
	case BadFeature:
		return "BadFeature"
	case CorruptIndex:
		return "CorruptIndex"
	case InternalInvariant:
		return "InternalInvariant"
	default:
		return "UnknownError"
	}
}

// Error is the concrete error type returned by the engine. Context names
// the feature, file or component the error arose from.
type Error struct {
	Kind    Kind
	Context string
	Err     error
}

func New(kind Kind, context string, err error) *Error {
	return &Error{Kind: kind, Context: context, Err: err}
}

func (e *Error) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err and true if err is a *Error, or false
// otherwise. err itself must be the *Error: wrapping errors are not
// unwrapped.
func KindOf(err error) (Kind, bool) {
	e, ok := err.(*Error)
	if !ok {
		return 0, false
	}
	return e.Kind, true
}
