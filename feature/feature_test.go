// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feature

import "testing"

func TestTypeString(t *testing.T) {
	for _, test := range []struct {
		typ  Type
		want string
	}{
		{Feature, "Feature"},
		{Promoter, "Promoter"},
		{Primer, "Primer"},
		{Enzyme, "Enzyme"},
		{Gene, "Gene"},
		{Origin, "Origin"},
		{Regulatory, "Regulatory"},
		{Terminator, "Terminator"},
		{ExactFeature, "ExactFeature"},
		{Type(99), "Unknown"},
	} {
		if got := test.typ.String(); got != test.want {
			t.Errorf("Type(%d).String() = %q, want %q", test.typ, got, test.want)
		}
	}
}
