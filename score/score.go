// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package score implements the scorer / pruner (C5, spec §4.5): it
// keeps qualifying trains per feature, then resolves overlaps across
// different features, following the same interval-tree idiom the
// teacher repo uses in cmd/ins's cullContained and cmd/cull.
package score

import (
	"strings"

	"github.com/biogo/store/interval"

	"github.com/kortschak/annotate/feature"
	"github.com/kortschak/annotate/index"
	"github.com/kortschak/annotate/kmer"
	"github.com/kortschak/annotate/train"
)

// Candidate pairs a kept train with the feature metadata and query
// span it needs for cross-feature pruning and downstream annotation.
type Candidate struct {
	FeatureID int
	Meta      index.Meta
	Train     *train.Train
	Score     float64
	Left      int
	Stop      int
}

// PickGoodTrains applies spec §4.5's "_pick_good_trains": trains are
// visited in construction order; a train whose head is engulfed by the
// immediately preceding kept train is skipped outright. Surviving
// trains are kept iff they match(), or are a high-fidelity Gene train.
// No score is recorded here; BuildCandidates records it on the
// Candidate of every kept train.
func PickGoodTrains(trains []*train.Train, typ feature.Type, featureLength int) []*train.Train {
	var kept []*train.Train
	var prev *train.Train
	for _, t := range trains {
		if prev != nil {
			head := t.StartPosition()
			prevStop := prev.StopPosition(featureLength)
			if head >= prev.StartPosition() && prevStop >= head+kmer.KTUP-1 {
				continue
			}
		}
		if t.Matches(typ, featureLength) || (typ == feature.Gene && t.HighFidelity(featureLength)) {
			kept = append(kept, t)
			prev = t
		}
	}
	return kept
}

// BuildCandidates runs PickGoodTrains for every feature_local_id group
// of trains and assembles the Candidate list PruneOverlaps consumes.
func BuildCandidates(idx *index.Index, byFeature map[int][]*train.Train) []Candidate {
	var cands []Candidate
	for id, trains := range byFeature {
		if id < 0 || id >= len(idx.Features) {
			continue
		}
		meta := idx.Features[id]
		kept := PickGoodTrains(trains, meta.Type, meta.Length)
		for _, t := range kept {
			cands = append(cands, Candidate{
				FeatureID: id,
				Meta:      meta,
				Train:     t,
				Score:     t.Score(meta.Type, meta.Length),
				Left:      t.LeftPosition(meta.Antisense, meta.Length),
				Stop:      t.StopPosition(meta.Length),
			})
		}
	}
	return cands
}

// overlapEntry adapts a Candidate to interval.IntInterface so
// PruneOverlaps can reuse the teacher's cullContained idiom
// (cmd/ins/main.go) for the cross-feature scan instead of a bespoke
// nested loop.
type overlapEntry struct {
	uid uintptr
	c   Candidate
}

func (e overlapEntry) Overlap(b interval.IntRange) bool {
	return b.Start <= e.c.Stop && e.c.Left <= b.End
}
func (e overlapEntry) ID() uintptr { return e.uid }
func (e overlapEntry) Range() interval.IntRange {
	return interval.IntRange{Start: e.c.Left, End: e.c.Stop}
}

// PruneOverlaps implements spec §4.5's "_trains_to_features": an outer
// candidate (never an Enzyme) is dropped if an overlapping inner
// candidate is a Gene, or shares the outer's type with a name that
// contains (or is contained by) the outer's name, and scores better
// (lower pct_error).
func PruneOverlaps(cands []Candidate) []Candidate {
	var tree interval.IntTree
	for i, c := range cands {
		err := tree.Insert(overlapEntry{uid: uintptr(i), c: c}, true)
		if err != nil {
			panic(err)
		}
	}
	tree.AdjustRanges()

	var kept []Candidate
outer:
	for i, outer := range cands {
		if outer.Meta.Type == feature.Enzyme {
			kept = append(kept, outer)
			continue
		}
		hits := tree.Get(overlapEntry{c: outer})
		for _, h := range hits {
			inner := h.(overlapEntry)
			if inner.uid == uintptr(i) {
				continue
			}
			sameFamily := inner.c.Meta.Type == feature.Gene ||
				(inner.c.Meta.Type == outer.Meta.Type && namesRelated(inner.c.Meta.Name, outer.Meta.Name))
			if sameFamily && inner.c.Score < outer.Score {
				continue outer
			}
		}
		kept = append(kept, outer)
	}
	return kept
}

func namesRelated(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
