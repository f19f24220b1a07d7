// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/kortschak/annotate/feature"
	"github.com/kortschak/annotate/index"
	"github.com/kortschak/annotate/internal/kerr"
)

// testLibrary is a small stand-in for "the default library used by the
// source's tests" that spec.md §8 scenarios S1-S8 refer to: the
// retrieval pack's original_source/ does not carry the fixture data
// file itself (only code and build files survived the filtering, per
// its _INDEX.md), so the concrete feature set below is reconstructed
// from what the scenarios assert about it (EK at feature_id 15, a
// DraI-like blunt cutter) rather than copied from an unavailable file.
func testLibrary() feature.Library {
	return feature.Library{
		Name:      "test",
		DBVersion: "v1",
		Records: []feature.Record{
			{ID: 15, Type: feature.Feature, Name: "EK", Sequence: []byte("GATGACGACGACAAG"), ShowFeature: true},
			{ID: 20, Type: feature.Enzyme, Name: "DraI", Sequence: []byte("TTTAAA"), CutAfter: 3},
		},
	}
}

func buildTestIndex(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.Build(testLibrary())
	if err != nil {
		t.Fatalf("index.Build: %v", err)
	}
	return idx
}

func detect(t *testing.T, idx *index.Index, query string, opt Options) *Result {
	t.Helper()
	res, err := Detect(idx, []byte(query), opt)
	if err != nil {
		t.Fatalf("Detect(%q): %v", query, err)
	}
	return res
}

func annotationsNamed(res *Result, name string) []Annotation {
	var out []Annotation
	for _, a := range res.Annotations {
		if a.Name == name {
			out = append(out, a)
		}
	}
	return out
}

// S1: a lone short feature-only sequence detects only itself.
func TestS1LoneShortFeature(t *testing.T) {
	idx := buildTestIndex(t)
	res := detect(t, idx, "GATGACGACGACAAG", Options{DetectORFs: false})
	eks := annotationsNamed(res, "EK")
	if len(eks) != 1 {
		t.Fatalf("len(EK annotations) = %d, want 1: %+v", len(eks), res.Annotations)
	}
	ek := eks[0]
	if ek.FeatureID != 15 || ek.Start != 1 || ek.End != 15 || !ek.Clockwise {
		t.Errorf("EK annotation = %+v, want {FeatureID:15 Start:1 End:15 Clockwise:true}", ek)
	}
	if len(res.Annotations) != 1 {
		t.Errorf("expected exactly one annotation total, got %+v", res.Annotations)
	}
}

// S2: lowercase input detects the same feature.
func TestS2LowerCaseQuery(t *testing.T) {
	idx := buildTestIndex(t)
	res := detect(t, idx, "gatgacgacgacaag", Options{DetectORFs: false})
	eks := annotationsNamed(res, "EK")
	if len(eks) != 1 || eks[0].Start != 1 || eks[0].End != 15 {
		t.Errorf("lowercase EK annotation = %+v, want a single {Start:1 End:15}", eks)
	}
}

// S3: a long homopolymer run detects no features.
func TestS3Homopolymer(t *testing.T) {
	idx := buildTestIndex(t)
	res := detect(t, idx, strings.Repeat("T", 4096), Options{DetectORFs: true})
	for _, a := range res.Annotations {
		if a.TypeID != ORFTypeID {
			t.Errorf("unexpected feature annotation in a homopolymer run: %+v", a)
		}
	}
}

// S4: FASTA text with a header and interleaved ';' comments cleans down
// to the same result as S1.
func TestS4FastaWithComments(t *testing.T) {
	idx := buildTestIndex(t)
	raw := ">EK | 15\n" +
		"GATG\n" +
		"; a comment\n" +
		"ACGACGACAAG\n" +
		";; another comment\n"
	res := detect(t, idx, raw, Options{DetectORFs: false})
	eks := annotationsNamed(res, "EK")
	if len(eks) != 1 || eks[0].Start != 1 || eks[0].End != 15 {
		t.Errorf("FASTA-cleaned EK annotation = %+v, want a single {Start:1 End:15}", eks)
	}
}

// S5: a DraI site that wraps the circular origin is reported with
// start > end and the correct wrapped cut position.
func TestS5EnzymeWrapsOrigin(t *testing.T) {
	idx := buildTestIndex(t)
	res := detect(t, idx, "aaatgaccctttgggatgaaagggcccttt", Options{DetectORFs: false})
	dras := annotationsNamed(res, "DraI")
	if len(dras) != 1 {
		t.Fatalf("len(DraI annotations) = %d, want 1: %+v", len(dras), res.Annotations)
	}
	d := dras[0]
	if d.Start != 28 || d.End != 3 || d.Cut == nil || *d.Cut != 30 || !d.Clockwise {
		cut := -1
		if d.Cut != nil {
			cut = *d.Cut
		}
		t.Errorf("DraI annotation = {Start:%d End:%d Cut:%d Clockwise:%v}, want {28 3 30 true}", d.Start, d.End, cut, d.Clockwise)
	}
}

// S6: the same site shifted by one base still wraps, with cut at the
// new wrapped position.
func TestS6EnzymeWrapShifted(t *testing.T) {
	idx := buildTestIndex(t)
	res := detect(t, idx, "taaatgaccctttgggatgaaagggccctt", Options{DetectORFs: false})
	dras := annotationsNamed(res, "DraI")
	if len(dras) != 1 {
		t.Fatalf("len(DraI annotations) = %d, want 1: %+v", len(dras), res.Annotations)
	}
	d := dras[0]
	if d.Start != 29 || d.End != 4 || d.Cut == nil || *d.Cut != 1 {
		cut := -1
		if d.Cut != nil {
			cut = *d.Cut
		}
		t.Errorf("DraI annotation = {Start:%d End:%d Cut:%d}, want {29 4 1}", d.Start, d.End, cut)
	}
}

// S7: an 840-base sequence with a single frame-0 sense ORF spanning the
// whole query.
func TestS7FullLengthORF(t *testing.T) {
	idx := buildTestIndex(t)
	seq := "ATG" + strings.Repeat("GCA", 278) + "TGA"
	if len(seq) != 840 {
		t.Fatalf("test fixture length = %d, want 840", len(seq))
	}
	res := detect(t, idx, seq, Options{DetectORFs: true})

	var orfs []Annotation
	for _, a := range res.Annotations {
		if a.TypeID == ORFTypeID && strings.HasPrefix(a.Name, "ORF frame") {
			orfs = append(orfs, a)
		}
	}
	if len(orfs) != 1 {
		t.Fatalf("len(ORF annotations) = %d, want 1: %+v", len(orfs), orfs)
	}
	o := orfs[0]
	if o.Name != "ORF frame 1" || o.Start != 1 || o.End != 840 || !o.Clockwise {
		t.Errorf("ORF annotation = %+v, want {Name:\"ORF frame 1\" Start:1 End:840 Clockwise:true}", o)
	}
}

// S8: two concatenated FASTA records are rejected as BadSequence.
func TestS8MultiRecordFastaRejected(t *testing.T) {
	idx := buildTestIndex(t)
	raw := ">record one\nACGTACGT\n>record two\nGGGGCCCC\n"
	_, err := Detect(idx, []byte(raw), DefaultOptions())
	if err == nil {
		t.Fatal("expected an error for a multi-record FASTA input")
	}
	if kind, ok := kerr.KindOf(err); !ok || kind != kerr.BadSequence {
		t.Errorf("error kind = %v, want BadSequence", err)
	}
}

// Property 1: sequence_hash is SHA1(lowercase(clean(query))).
func TestSequenceHashMatchesCleanedLowercase(t *testing.T) {
	idx := buildTestIndex(t)
	res := detect(t, idx, "GATGACGACGACAAG", Options{DetectORFs: false})
	sum := sha1.Sum([]byte("gatgacgacgacaag"))
	want := hex.EncodeToString(sum[:])
	if res.SequenceHash != want {
		t.Errorf("SequenceHash = %s, want %s", res.SequenceHash, want)
	}
}

// Property 3: every annotation's positions lie in [1, L], even across
// the origin.
func TestAnnotationPositionsWithinBounds(t *testing.T) {
	idx := buildTestIndex(t)
	res := detect(t, idx, "aaatgaccctttgggatgaaagggcccttt", Options{DetectORFs: true})
	for _, a := range res.Annotations {
		if a.Start < 1 || a.Start > res.Length || a.End < 1 || a.End > res.Length {
			t.Errorf("annotation %+v out of bounds for length %d", a, res.Length)
		}
	}
}

// Property 7: Detect is a pure function of (index, query).
func TestDetectIsDeterministic(t *testing.T) {
	idx := buildTestIndex(t)
	query := "aaatgaccctttgggatgaaagggcccttt"
	r1 := detect(t, idx, query, DefaultOptions())
	r2 := detect(t, idx, query, DefaultOptions())
	if len(r1.Annotations) != len(r2.Annotations) {
		t.Fatalf("annotation count differs across calls: %d vs %d", len(r1.Annotations), len(r2.Annotations))
	}
	for i := range r1.Annotations {
		a, b := r1.Annotations[i], r2.Annotations[i]
		same := a.Name == b.Name && a.FeatureID == b.FeatureID && a.TypeID == b.TypeID &&
			a.Start == b.Start && a.End == b.End && a.Clockwise == b.Clockwise &&
			a.ShowFeature == b.ShowFeature && a.VariantLabel == b.VariantLabel &&
			intPtrEqual(a.Cut, b.Cut) && intPtrEqual(a.ORFFrame, b.ORFFrame) && floatPtrEqual(a.Score, b.Score)
		if !same {
			t.Errorf("annotation %d differs across calls: %+v vs %+v", i, a, b)
		}
	}
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestCleanStripsHeaderAndComments(t *testing.T) {
	clean, _, err := Clean([]byte(">h\nACGT\n;comment\nACGT\n"))
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if string(clean) != "ACGTACGT" {
		t.Errorf("Clean = %q, want %q", clean, "ACGTACGT")
	}
}

func TestCleanRejectsBadCharacter(t *testing.T) {
	_, _, err := Clean([]byte("ACGTXACGT"))
	if err == nil {
		t.Fatal("expected an error for a disallowed character")
	}
	if kind, ok := kerr.KindOf(err); !ok || kind != kerr.BadSequence {
		t.Errorf("error kind = %v, want BadSequence", err)
	}
}

func TestSingleCuttersOnlyFiltersRepeatedEnzyme(t *testing.T) {
	lib := feature.Library{
		Records: []feature.Record{
			{ID: 1, Type: feature.Enzyme, Name: "EcoRI", Sequence: []byte("GAATTC"), CutAfter: 1},
		},
	}
	idx, err := index.Build(lib)
	if err != nil {
		t.Fatalf("index.Build: %v", err)
	}
	// Two non-overlapping copies of the site.
	query := "GAATTC" + strings.Repeat("A", 20) + "GAATTC"
	res := detect(t, idx, query, Options{SingleCuttersOnly: true, DetectORFs: false})
	for _, a := range res.Annotations {
		if a.Name == "EcoRI" {
			t.Errorf("single_cutters_only must drop a twice-occurring enzyme, got %+v", a)
		}
	}
}
