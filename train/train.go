// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package train implements the train builder (C4, spec §4.4): it
// chains the k-mer hits of a single feature into candidate contiguous
// matches, forking speculative trains at ambiguous insert/delete
// junctions. It also carries the matches()/high-fidelity predicates
// (spec §4.5) that both the builder and the scorer (package score)
// need.
package train

import (
	"errors"

	"github.com/kortschak/annotate/feature"
	"github.com/kortschak/annotate/internal/kerr"
	"github.com/kortschak/annotate/kmer"
	"github.com/kortschak/annotate/match"
)

var (
	errNonAdvancing     = errors.New("fragment index does not advance")
	errNegativePosition = errors.New("negative query position")
)

// DefaultMaxMutationJump is the hard cap on bases folded into
// Mutations by a single same-position extension (spec §9 Open
// Questions #2; engine.Options.MaxMutationJump defaults to this).
const DefaultMaxMutationJump = 4 * kmer.KTUP

// Train is an ordered, non-empty chain of hits for one feature in one
// orientation (spec §3 "Train").
type Train struct {
	List      []match.Hit
	Hits      int
	Mutations int
	Inserts   int
	Deletes   int
	Short     bool
}

// New starts a train from a single hit.
func New(h match.Hit, short bool) *Train {
	return &Train{
		List:  []match.Hit{h},
		Hits:  kmer.KTUP - h.Shift,
		Short: short,
	}
}

// Clone returns an independent deep copy; the hit list is copied, so
// appending to either train's List does not affect the other (spec §9).
func (t *Train) Clone() *Train {
	c := *t
	c.List = append([]match.Hit(nil), t.List...)
	return &c
}

func (t *Train) tail() match.Hit { return t.List[len(t.List)-1] }

// StopPosition is the query position of the last base of the train's
// match (spec §3).
func (t *Train) StopPosition(featureLength int) int {
	last := t.tail()
	if last.Shift != 0 {
		r := featureLength % kmer.KTUP
		return last.Position + r - 1
	}
	return last.Position + kmer.KTUP - 1
}

// StartPosition is the position of the train's first hit.
func (t *Train) StartPosition() int { return t.List[0].Position }

// LeftPosition is the leftmost coordinate used to order trains across
// features for cross-feature pruning (spec §3).
func (t *Train) LeftPosition(antisense bool, featureLength int) int {
	start := t.StartPosition()
	if !antisense {
		return start
	}
	return 2*start - t.StopPosition(featureLength)
}

// Matches reports the per-train matches() predicate of spec §4.5.
func (t *Train) Matches(typ feature.Type, featureLength int) bool {
	if typ == feature.ExactFeature || typ == feature.Enzyme {
		return t.Hits == featureLength && t.Inserts == 0 && t.Deletes == 0 && t.Mutations == 0
	}
	return t.pctError(typ, featureLength) < 0.25
}

// pctError computes the error fraction of spec §4.5's non-exact branch.
func (t *Train) pctError(typ feature.Type, featureLength int) float64 {
	const (
		factorMissing      = 0.0 // dead path retained per spec §9 Open Questions #3
		factorInsertsGene  = 0.0 // dead path retained per spec §9 Open Questions #3
		mutationsNotCosted = 0.7
		mutationsCosted    = 0.3
		deleteCost         = 0.1
		insertCost         = 0.1
	)
	_ = factorMissing
	_ = factorInsertsGene

	net := float64(t.Hits) - mutationsNotCosted*0 + mutationsCosted*float64(t.Mutations) - deleteCost*float64(t.Deletes)

	insertPenalty := 0.0
	if typ == feature.Gene {
		if float64(t.Inserts) <= 0.75*float64(featureLength) {
			insertPenalty = 0
		} else {
			insertPenalty = insertCost * float64(t.Inserts)
		}
	} else {
		insertPenalty = insertCost * float64(t.Inserts)
	}
	net -= insertPenalty

	return 1 - net/float64(featureLength)
}

// Score returns the train's pct_error value, computed on each call;
// score.BuildCandidates stores it on each kept train's Candidate
// (spec §4.5 "_pick_good_trains").
func (t *Train) Score(typ feature.Type, featureLength int) float64 {
	return t.pctError(typ, featureLength)
}

// HighFidelity reports spec §3's "High fidelity" predicate.
func (t *Train) HighFidelity(featureLength int) bool {
	return t.Inserts == 0 && t.Deletes == 0 && float64(t.Hits) >= 0.20*float64(featureLength)
}

type action int

const (
	actionNone action = iota
	actionConsecutive
	actionMutation
	actionInsert
	actionDelete
)

// decide computes Δf, Δp, insert_size for (t, h) and returns which of
// spec §4.4's branches applies.
func decide(t *Train, h match.Hit, featureLength int) (act action, deltaF, deltaP, insertSize int) {
	last := t.tail()
	deltaF = h.FragmentIndex - last.FragmentIndex
	deltaP = h.Position - (last.Position + kmer.KTUP)
	insertSize = deltaP - (deltaF-1)*kmer.KTUP

	if deltaF == 1 && deltaP == 0 {
		return actionConsecutive, deltaF, deltaP, insertSize
	}
	if t.Short {
		return actionNone, deltaF, deltaP, insertSize
	}
	if deltaF > 0 && deltaP >= 0 {
		switch {
		case insertSize == 0:
			return actionMutation, deltaF, deltaP, insertSize
		case insertSize > 0 && float64(deltaP) < 0.75*float64(featureLength):
			return actionInsert, deltaF, deltaP, insertSize
		case insertSize < 0:
			return actionDelete, deltaF, deltaP, insertSize
		}
	}
	return actionNone, deltaF, deltaP, insertSize
}

// Build assembles the hits of a single feature (already grouped and
// ordered by fragment index then position, e.g. via match.ByFeature)
// into the set of candidate trains spec §4.4 describes.
func Build(hits []match.Hit, typ feature.Type, featureLength, seqLength, maxMutationJump int) []*Train {
	if maxMutationJump <= 0 {
		maxMutationJump = DefaultMaxMutationJump
	}

	var trains []*Train
	for _, h := range hits {
		// suppressNewTrain mirrors the original's create_new_train flag:
		// only a consecutive extension or a same-position mutation
		// absorbs h entirely. An insert or delete fork also extends (or
		// forks) the train it matched, but h still seeds a fresh train
		// of its own below (spec §4.4 branch 2b: "mark any newly created
		// train for h as short=true"; the original's
		// `_frags_to_trains` never clears create_new_train on its
		// insert/delete branches).
		suppressNewTrain := false
		newShort := false

		// Every live train is tried against h — the original's
		// `for train in trains:` has no break, so a single hit can
		// extend or fork more than one train in the same pass.
		for j := 0; j < len(trains); j++ {
			t := trains[j]
			act, deltaF, deltaP, insertSize := decide(t, h, featureLength)

			switch act {
			case actionConsecutive:
				t.List = append(t.List, h)
				t.Hits += kmer.KTUP - h.Shift
				suppressNewTrain = true

			case actionMutation:
				if deltaP > maxMutationJump {
					continue
				}
				t.List = append(t.List, h)
				t.Hits += kmer.KTUP - h.Shift
				t.Mutations += deltaP
				suppressNewTrain = true

			case actionInsert:
				if t.Matches(typ, featureLength) {
					clone := t.Clone()
					clone.Short = true
					trains = insertBefore(trains, j, clone)
					j++
				}
				t.List = append(t.List, h)
				t.Hits += kmer.KTUP - h.Shift
				t.Inserts += insertSize
				if deltaF > 3 {
					t.Mutations += (deltaF - 3) * kmer.KTUP
				}
				newShort = true

			case actionDelete:
				abs := -insertSize
				hyp := t.Clone()
				hyp.Deletes += abs
				hyp.Hits = kmer.KTUP*(len(t.List)+1) + featureLength - h.FragmentIndex*kmer.KTUP
				if hyp.Matches(typ, featureLength) {
					clone := t.Clone()
					trains = insertBefore(trains, j, clone)
					j++
				}
				t.List = append(t.List, h)
				t.Hits += kmer.KTUP - h.Shift
				t.Deletes += abs
			}
		}

		if !suppressNewTrain && h.Position <= seqLength {
			trains = append(trains, New(h, newShort))
		}
	}

	return trains
}

func insertBefore(trains []*Train, j int, t *Train) []*Train {
	trains = append(trains, nil)
	copy(trains[j+1:], trains[j:])
	trains[j] = t
	return trains
}

// Validate checks the ordering invariants spec §8 property 2 and §7's
// InternalInvariant kind describe: hits strictly increasing in both
// fragment index and position, never negative.
func (t *Train) Validate() error {
	for i := 1; i < len(t.List); i++ {
		prev, cur := t.List[i-1], t.List[i]
		if cur.FragmentIndex <= prev.FragmentIndex {
			return kerr.New(kerr.InternalInvariant, "train", errNonAdvancing)
		}
		if cur.Position < 0 || prev.Position < 0 {
			return kerr.New(kerr.InternalInvariant, "train", errNegativePosition)
		}
	}
	return nil
}
