// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package engine implements the façade (C8, spec §4.8): it drives
// C3→C4→C5→C6 over the feature index, runs the ORF/tag scanner (C7)
// independently, and returns a single sorted annotation list together
// with the cache key callers need (spec §6 "Engine invocation").
package engine

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/kortschak/annotate/boundary"
	"github.com/kortschak/annotate/feature"
	"github.com/kortschak/annotate/index"
	"github.com/kortschak/annotate/internal/kerr"
	"github.com/kortschak/annotate/kmer"
	"github.com/kortschak/annotate/match"
	"github.com/kortschak/annotate/orf"
	"github.com/kortschak/annotate/score"
	"github.com/kortschak/annotate/train"
)

// ORFTypeID is the pseudo type_id used for ORF and tag annotations,
// which have no corresponding feature.Type.
const ORFTypeID = feature.Type(-1)

// Options controls optional behavior of Detect (spec §6).
type Options struct {
	IncludeSequence   bool
	SingleCuttersOnly bool
	DetectORFs        bool
	MaxMutationJump   int
}

// DefaultOptions matches spec §6's stated defaults.
func DefaultOptions() Options {
	return Options{
		DetectORFs:      true,
		MaxMutationJump: train.DefaultMaxMutationJump,
	}
}

// Annotation is one emitted feature, ORF or tag (spec §3, §6).
type Annotation struct {
	Name         string
	FeatureID    int
	TypeID       feature.Type
	Start        int
	End          int
	Clockwise    bool
	ShowFeature  bool
	Cut          *int
	ORFFrame     *int
	VariantLabel string
	Score        *float64
}

// Result is the engine's public return value.
type Result struct {
	SequenceHash string
	Length       int
	Annotations  []Annotation
	Sequence     string
}

// Clean implements spec §6's query-cleaning steps. It strips the first
// FASTA header and any `;` comment lines, discards characters outside
// [A-Za-z*-], and rejects the query with kerr.BadSequence if what
// remains is not valid IUPAC DNA or a second FASTA header is present.
func Clean(raw []byte) (clean []byte, hash string, err error) {
	lines := strings.Split(string(raw), "\n")
	var body strings.Builder
	seenHeader := false
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if len(trimmed) > 0 && (trimmed[0] == '>' || trimmed[0] == ';') {
			if trimmed[0] == '>' {
				if seenHeader {
					return nil, "", kerr.New(kerr.BadSequence, "query", fmt.Errorf("multiple FASTA records"))
				}
				seenHeader = true
			}
			continue
		}
		body.WriteString(line)
	}

	var kept []byte
	for i := 0; i < body.Len(); i++ {
		b := body.String()[i]
		if isBaseLetter(b) || b == '*' || b == '-' {
			kept = append(kept, b)
		}
	}
	for _, b := range kept {
		if !isAllowedQueryByte(b) {
			return nil, "", kerr.New(kerr.BadSequence, "query", fmt.Errorf("disallowed character %q", b))
		}
	}

	lower := strings.ToLower(string(kept))
	sum := sha1.Sum([]byte(lower))
	hash = hex.EncodeToString(sum[:])

	clean = kmer.Normalize(kept)
	return clean, hash, nil
}

func isBaseLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isAllowedQueryByte(b byte) bool {
	switch b {
	case 'A', 'T', 'G', 'C', 'N', 'B', 'D', 'H', 'K', 'M', 'R', 'S', 'V', 'W', 'Y', 'U',
		'a', 't', 'g', 'c', 'n', 'b', 'd', 'h', 'k', 'm', 'r', 's', 'v', 'w', 'y', 'u',
		'*', '-':
		return true
	default:
		return false
	}
}

// Detect runs the full engine over a raw (uncleaned) query against a
// compiled index (spec §4.8, §6).
func Detect(idx *index.Index, raw []byte, opt Options) (*Result, error) {
	clean, hash, err := Clean(raw)
	if err != nil {
		return nil, err
	}
	l := len(clean)

	var annotations []Annotation

	hits := match.Scan(idx, clean)
	ids, groups := match.ByFeature(hits)

	byFeature := make(map[int][]*train.Train, len(ids))
	for _, id := range ids {
		meta := idx.Features[id]
		trains := train.Build(groups[id], meta.Type, meta.Length, l, opt.MaxMutationJump)
		for _, t := range trains {
			if err := t.Validate(); err != nil {
				return nil, err
			}
		}
		byFeature[id] = trains
	}

	cands := score.BuildCandidates(idx, byFeature)
	sort.Slice(cands, func(i, j int) bool { return cands[i].Left < cands[j].Left })
	kept := score.PruneOverlaps(cands)

	for _, c := range kept {
		annotations = append(annotations, buildAnnotation(c, l))
	}

	if opt.SingleCuttersOnly {
		annotations = filterSingleCutters(annotations)
	}

	if opt.DetectORFs {
		for _, o := range orf.Scan(clean) {
			frame := o.Frame + 1
			annotations = append(annotations, Annotation{
				Name:      fmt.Sprintf("ORF frame %d", frame),
				TypeID:    ORFTypeID,
				Start:     o.Start,
				End:       o.End,
				Clockwise: o.Clockwise,
				ORFFrame:  &frame,
			})
			for _, t := range o.Tags {
				annotations = append(annotations, Annotation{
					Name:      t.Name + " tag",
					TypeID:    ORFTypeID,
					Start:     t.Start,
					End:       t.End,
					Clockwise: o.Clockwise,
					ORFFrame:  &frame,
				})
			}
		}
	}

	sort.SliceStable(annotations, func(i, j int) bool { return annotations[i].Start < annotations[j].Start })

	res := &Result{SequenceHash: hash, Length: l, Annotations: annotations}
	if opt.IncludeSequence {
		res.Sequence = string(clean)
	}
	return res, nil
}

func buildAnnotation(c score.Candidate, l int) Annotation {
	meta := c.Meta
	t := c.Train
	clockwise := !meta.Antisense

	start := boundary.Wrap(t.StartPosition()+1, l)
	stopRaw := t.StopPosition(meta.Length)
	end := boundary.Wrap(stopRaw+1, l)

	candScore := c.Score
	ann := Annotation{
		Name:        meta.Name,
		FeatureID:   meta.SourceID,
		TypeID:      meta.Type,
		Start:       start,
		End:         end,
		Clockwise:   clockwise,
		ShowFeature: meta.ShowFeature,
		Score:       &candScore,
	}

	if meta.Type == feature.Enzyme {
		cut := boundary.Cut(start, end, meta.CutAfter, clockwise, l)
		ann.Cut = &cut
	}

	if meta.Type == feature.Gene {
		matches := t.Matches(meta.Type, meta.Length)
		hf := t.HighFidelity(meta.Length)
		head := t.List[0].FragmentIndex
		lbl := boundary.LabelGene(matches, hf, c.Score, t.Deletes, t.Inserts, head, t.StartPosition(), stopRaw)
		switch {
		case lbl.Subset:
			ann.VariantLabel = "subset"
		case lbl.Variant:
			ann.VariantLabel = "variant"
		case lbl.HasGaps:
			ann.VariantLabel = "has_gaps"
		}
	}

	return ann
}

// filterSingleCutters keeps only Enzyme annotations whose name occurs
// exactly once among the Enzyme annotations (spec §6 option
// single_cutters_only); non-Enzyme annotations pass through unchanged.
func filterSingleCutters(anns []Annotation) []Annotation {
	counts := make(map[string]int)
	for _, a := range anns {
		if a.TypeID == feature.Enzyme {
			counts[a.Name]++
		}
	}
	var out []Annotation
	for _, a := range anns {
		if a.TypeID == feature.Enzyme && counts[a.Name] != 1 {
			continue
		}
		out = append(out, a)
	}
	return out
}
