// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package match implements the fragment matcher (C3, spec §4.3): it
// streams KTUP-wide k-mers of a normalized query against a compiled
// index.Index and emits raw fragment hits for the train builder.
package match

import (
	"sort"

	"github.com/kortschak/annotate/index"
	"github.com/kortschak/annotate/kmer"
)

// Hit is one raw fragment match (spec §3 "Raw Fragment Hit"). Position
// is 0-based against the query; for hits produced from the tail entry
// of a feature at least KTUP long it has already been corrected by the
// entry's Shift so it names the query coordinate of the fragment's
// nominal (virtual full-width) start, matching the convention
// full-width hits already use. For the tail entry of a feature shorter
// than KTUP it is the start of the feature's real run, uncorrected.
type Hit struct {
	FeatureID     int
	FragmentIndex int
	Position      int
	Shift         int
}

// tailKey buckets tail entries by the literal window width the matcher
// must compare the query against: KTUP for a feature whose overall
// length is >= KTUP (the tail's stored k-mer is the feature's real
// final KTUP bases, overlapping the previous fragment), or the
// feature's own length when that is shorter than KTUP (the tail's
// stored k-mer was built by left-padding that short real run with 'A',
// spec §4.2 step 2-3 / §9 Open Questions #1) — in which case only that
// short real run, wherever it falls in the query, is compared.
type tailKey struct {
	winLen int
	code   uint64
}

// Scan streams query, treated as circular (spec §1, §4.6), against idx
// and returns the unordered set of raw hits: every query window is
// tried at every rotation so a feature whose recognition sequence
// wraps the sequence's origin is still found (spec §8 property 9;
// scenarios S5/S6). query must already be normalized (kmer.Normalize);
// windows that fail to encode are silently dropped, per spec §7 ("a
// per-fragment failure is not a per-query failure"). Chaining a
// multi-fragment feature across the origin is not attempted: every
// feature this engine indexes with more than one fragment is expected
// to be found starting somewhere within one linear copy of the query,
// the wrap-tolerant path exists for the single-fragment (tail-only)
// case that covers every Enzyme and other short feature.
func Scan(idx *index.Index, query []byte) []Hit {
	l := len(query)
	if l == 0 {
		return nil
	}

	tailBuckets := make(map[tailKey][]index.Entry, len(idx.Tail))
	var shortLens []int
	seenLen := make(map[int]bool)
	for _, e := range idx.Tail {
		winLen := kmer.KTUP
		if meta := idx.Features[e.FeatureID]; meta.Length < kmer.KTUP {
			winLen = meta.Length
		}
		k := tailKey{winLen, e.KmerHash}
		tailBuckets[k] = append(tailBuckets[k], e)
		if winLen < kmer.KTUP && !seenLen[winLen] {
			seenLen[winLen] = true
			shortLens = append(shortLens, winLen)
		}
	}

	var hits []Hit
	if l >= kmer.KTUP {
		for p := 0; p < l; p++ {
			window := circularWindow(query, p, kmer.KTUP, l)
			code, ok := kmer.Encode(window)
			if !ok {
				continue
			}
			for _, e := range lookupFull(idx.Full, code) {
				hits = append(hits, Hit{
					FeatureID:     e.FeatureID,
					FragmentIndex: e.FragmentIndex,
					Position:      p,
					Shift:         0,
				})
			}
			for _, e := range tailBuckets[tailKey{kmer.KTUP, code}] {
				hits = append(hits, Hit{
					FeatureID:     e.FeatureID,
					FragmentIndex: e.FragmentIndex,
					Position:      (p + e.Shift) % l,
					Shift:         e.Shift,
				})
			}
		}
	}

	// Short-feature tails (whole feature < KTUP): the stored k-mer is
	// the real short run padded on the left with 'A', so the matcher
	// rebuilds the same padded window from the query's real run at
	// each rotation and compares it directly; no position correction
	// is needed since the real run already starts exactly at p.
	for _, winLen := range shortLens {
		if winLen > l {
			continue
		}
		pad := kmer.KTUP - winLen
		padded := make([]byte, kmer.KTUP)
		for i := 0; i < pad; i++ {
			padded[i] = 'A'
		}
		for p := 0; p < l; p++ {
			copy(padded[pad:], circularWindow(query, p, winLen, l))
			code, ok := kmer.Encode(padded)
			if !ok {
				continue
			}
			for _, e := range tailBuckets[tailKey{winLen, code}] {
				hits = append(hits, Hit{
					FeatureID:     e.FeatureID,
					FragmentIndex: e.FragmentIndex,
					Position:      p,
					Shift:         e.Shift,
				})
			}
		}
	}

	return hits
}

// circularWindow returns the winLen bytes of query starting at p,
// wrapping around the origin if the window would otherwise run past
// the end (l = len(query)).
func circularWindow(query []byte, p, winLen, l int) []byte {
	if p+winLen <= l {
		return query[p : p+winLen]
	}
	out := make([]byte, winLen)
	for i := 0; i < winLen; i++ {
		out[i] = query[(p+i)%l]
	}
	return out
}

// lookupFull returns every full-width entry whose KmerHash equals code,
// using binary search since idx.Full is sorted ascending by KmerHash.
func lookupFull(full []index.Entry, code uint64) []index.Entry {
	lo := sort.Search(len(full), func(i int) bool { return full[i].KmerHash >= code })
	hi := sort.Search(len(full), func(i int) bool { return full[i].KmerHash > code })
	if lo >= hi {
		return nil
	}
	return full[lo:hi]
}

// ByFeature groups hits by feature_local_id and returns the ids sorted
// ascending, with each group sorted by fragment index then position
// (arrival order only breaks exact ties). This is the
// deterministic grouping the train builder (package train) consumes,
// matching the "downstream stages sort deterministically" rule of
// spec §4.3.
func ByFeature(hits []Hit) (ids []int, groups map[int][]Hit) {
	groups = make(map[int][]Hit)
	seen := make(map[int]bool)
	for _, h := range hits {
		groups[h.FeatureID] = append(groups[h.FeatureID], h)
		if !seen[h.FeatureID] {
			seen[h.FeatureID] = true
			ids = append(ids, h.FeatureID)
		}
	}
	sort.Ints(ids)
	for _, id := range ids {
		g := groups[id]
		sort.SliceStable(g, func(i, j int) bool {
			if g[i].FragmentIndex != g[j].FragmentIndex {
				return g[i].FragmentIndex < g[j].FragmentIndex
			}
			return g[i].Position < g[j].Position
		})
	}
	return ids, groups
}
