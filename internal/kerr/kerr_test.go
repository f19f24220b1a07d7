// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kerr

import (
	"errors"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	e := New(BadFeature, "EcoRI", errors.New("invalid base"))
	want := "BadFeature: EcoRI: invalid base"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorMessageNoContext(t *testing.T) {
	e := New(CorruptIndex, "", errors.New("short read"))
	want := "CorruptIndex: short read"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("boom")
	e := New(InternalInvariant, "train", inner)
	if !errors.Is(e, inner) {
		t.Error("errors.Is must see through Unwrap to the wrapped error")
	}
}

func TestKindOf(t *testing.T) {
	e := New(BadSequence, "query", errors.New("bad base"))
	kind, ok := KindOf(e)
	if !ok || kind != BadSequence {
		t.Errorf("KindOf = (%v, %v), want (%v, true)", kind, ok, BadSequence)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf must return false for a non-*Error")
	}
}

func TestKindString(t *testing.T) {
	for _, test := range []struct {
		k    Kind
		want string
	}{
		{BadSequence, "BadSequence"},
		{BadFeature, "BadFeature"},
		{CorruptIndex, "CorruptIndex"},
		{InternalInvariant, "InternalInvariant"},
		{Kind(99), "UnknownError"},
	} {
		if got := test.k.String(); got != test.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(test.k), got, test.want)
		}
	}
}
