// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package boundary implements the circular-boundary mapper and gene
// variant labelling (C6, spec §4.6): normalizing 1-based positions
// that wrap the origin of a circular sequence, and deriving the enzyme
// cut position and gene variant flags.
package boundary

import "github.com/kortschak/annotate/kmer"

// Wrap normalizes a 1-based position against a circular sequence of
// length L: negative positions are shifted up by one full length, and
// positions beyond L are reduced modulo L back into [1, L].
func Wrap(pos, l int) int {
	if l <= 0 {
		return pos
	}
	if pos < 0 {
		pos += l
	}
	if pos > l {
		m := pos % l
		if m == 0 {
			m = l
		}
		pos = m
	}
	if pos <= 0 {
		pos += l
	}
	return pos
}

// Cut computes an enzyme's cut position from its 1-based feature span
// and cut_after offset (spec §4.6), wrapping into [1, L].
func Cut(start, end, cutAfter int, clockwise bool, l int) int {
	var cut int
	if clockwise {
		cut = start + (cutAfter - 1)
	} else {
		cut = end - (cutAfter - 1)
	}
	return Wrap(cut, l)
}

// Label carries the variant flags spec §4.6 derives for a Gene train
// promoted to an annotation.
type Label struct {
	Subset      bool
	SubsetStart int
	SubsetEnd   int
	Variant     bool
	HasGaps     bool
}

// LabelGene implements spec §4.6's gene-variant decision tree. start
// and stop are the train's raw (pre-1-based, pre-wrap) query
// coordinates; headFragmentIndex is the train's first hit's
// fragment_index.
func LabelGene(matches, highFidelity bool, trainScore float64, deletes, inserts, headFragmentIndex, start, stop int) Label {
	if !matches && highFidelity {
		subsetStart := headFragmentIndex * kmer.KTUP
		return Label{
			Subset:      true,
			SubsetStart: subsetStart,
			SubsetEnd:   subsetStart + stop - start,
		}
	}
	if trainScore > 0.05 || deletes > kmer.KTUP {
		return Label{Variant: true}
	}
	if inserts > 2*kmer.KTUP {
		return Label{HasGaps: true}
	}
	return Label{}
}
