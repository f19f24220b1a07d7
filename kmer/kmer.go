// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kmer implements the fixed-width DNA k-mer codec (spec §4.1):
// encoding of KTUP-length windows as 2-bit-packed integers,
// reverse complementation, and IUPAC degenerate-base normalization.
package kmer

// KTUP is the fragment width in bases that the feature index and the
// fragment matcher operate on.
const KTUP = 12

// MINFRAG is the shortest feature retained in the index; features
// shorter than this contribute no index entries. A short remainder of
// a longer feature is still indexed, through a tail entry covering the
// feature's final KTUP bases.
const MINFRAG = 6

// baseValue holds the 2-bit code for each of the four canonical bases,
// in the order the spec defines: A, G, C, T.
var baseValue = [256]int8{}

func init() {
	for i := range baseValue {
		baseValue[i] = -1
	}
	baseValue['A'] = 0
	baseValue['G'] = 1
	baseValue['C'] = 2
	baseValue['T'] = 3
}

// degenerate maps IUPAC ambiguity codes, and the placeholder characters
// '*' and '-', onto one of the four canonical bases (spec §4.1). It is
// applied before Encode so that queries are normalized with the same
// rule the index was built with.
var degenerate = buildDegenerate()

func buildDegenerate() [256]byte {
	var m [256]byte
	set := func(to byte, from string) {
		for i := 0; i < len(from); i++ {
			m[from[i]] = to
			if from[i] >= 'A' && from[i] <= 'Z' {
				m[from[i]+('a'-'A')] = to
			}
		}
	}
	set('A', "DHMNRVW*-")
	set('C', "BYS")
	set('G', "K")
	set('T', "U")
	return m
}

// Normalize returns a copy of seq with IUPAC degenerate codes (and the
// '*'/'-' placeholders) mapped onto one of A, G, C or T, and the four
// canonical bases uppercased. Bytes that are not recognized IUPAC codes
// are passed through unchanged, so that Encode can reject them on a
// per-fragment basis rather than failing the whole sequence (spec §7).
func Normalize(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		if u := degenerate[b]; u != 0 {
			out[i] = u
			continue
		}
		switch b {
		case 'a', 'g', 'c', 't':
			out[i] = b - ('a' - 'A')
		default:
			out[i] = b
		}
	}
	return out
}

// Encode packs a KTUP-length window into a 2-bit-per-base integer code.
// It reports ok=false if window is not exactly KTUP bases long, or
// contains a byte that is not one of A, G, C, T (after Normalize).
func Encode(window []byte) (code uint64, ok bool) {
	if len(window) != KTUP {
		return 0, false
	}
	for _, b := range window {
		v := baseValue[b]
		if v < 0 {
			return 0, false
		}
		code = code<<2 | uint64(v)
	}
	return code, true
}

// ReverseComplement returns the reverse complement of seq. A<->T and
// G<->C are swapped; any other byte (e.g. one Encode would reject) is
// passed through unchanged in its reversed position.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = complement(b)
	}
	return out
}

func complement(b byte) byte {
	switch b {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'G':
		return 'C'
	case 'C':
		return 'G'
	case 'a':
		return 't'
	case 't':
		return 'a'
	case 'g':
		return 'c'
	case 'c':
		return 'g'
	default:
		return b
	}
}
