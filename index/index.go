// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package index implements the feature-index builder (C2, spec §4.2):
// it compiles a feature.Library into the sorted, on-disk k-mer index
// that the fragment matcher (package match) streams queries against.
package index

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/kortschak/annotate/feature"
	"github.com/kortschak/annotate/internal/kerr"
	"github.com/kortschak/annotate/kmer"
)

// Entry is one compiled k-mer index line (spec §3 "Feature Index Entry").
type Entry struct {
	FeatureID     int
	FragmentIndex int
	Mask          uint64
	KmerHash      uint64
	Shift         int
}

// Meta holds the per-local-id metadata needed by the scorer, the
// boundary mapper and the variant labeller: it is not part of the
// k-mer line format of spec §6 (which describes only the C3 input
// stream), but the engine cannot score or place a hit without it, so
// it travels alongside the compiled index as a second, explicit block.
type Meta struct {
	SourceID    int
	Name        string
	Type        feature.Type
	Length      int
	CutAfter    int
	ShowFeature bool
	Antisense   bool
}

// Index is the immutable, read-only-after-build structure C3 streams
// queries against.
type Index struct {
	Features []Meta  // by feature_local_id
	Full     []Entry // sorted ascending by KmerHash
	Tail     []Entry
}

// Build compiles lib into an Index, following spec §4.2 exactly:
// two ID-assignment passes (sense, then antisense for qualifying
// non-Enzyme features), KTUP-wide fragmentation with a single padded
// tail entry per feature, and a full-width section sorted by hash.
func Build(lib feature.Library) (*Index, error) {
	var idx Index

	type source struct {
		rec feature.Record
		seq []byte
		rc  bool
	}
	var sources []source
	for _, r := range lib.Records {
		for _, b := range r.Sequence {
			if !isACGTN(b) {
				return nil, kerr.New(kerr.BadFeature, r.Name, fmt.Errorf("invalid base %q", b))
			}
		}
		sources = append(sources, source{rec: r, seq: r.Sequence, rc: false})
	}
	for _, r := range lib.Records {
		if r.Type == feature.Enzyme {
			continue
		}
		rc := kmer.ReverseComplement(r.Sequence)
		if string(rc) == string(r.Sequence) {
			continue
		}
		sources = append(sources, source{rec: r, seq: rc, rc: true})
	}

	for localID, s := range sources {
		idx.Features = append(idx.Features, Meta{
			SourceID:    s.rec.ID,
			Name:        s.rec.Name,
			Type:        s.rec.Type,
			Length:      len(s.seq),
			CutAfter:    s.rec.CutAfter,
			ShowFeature: s.rec.ShowFeature,
			Antisense:   s.rc,
		})
		full, tail := fragmentsFor(localID, s.seq)
		idx.Full = append(idx.Full, full...)
		if tail != nil {
			idx.Tail = append(idx.Tail, *tail)
		}
	}

	sort.Slice(idx.Full, func(i, j int) bool {
		if idx.Full[i].KmerHash != idx.Full[j].KmerHash {
			return idx.Full[i].KmerHash < idx.Full[j].KmerHash
		}
		if idx.Full[i].FeatureID != idx.Full[j].FeatureID {
			return idx.Full[i].FeatureID < idx.Full[j].FeatureID
		}
		return idx.Full[i].FragmentIndex < idx.Full[j].FragmentIndex
	})

	return &idx, nil
}

func isACGTN(b byte) bool {
	switch b {
	case 'A', 'C', 'G', 'T', 'N':
		return true
	default:
		return false
	}
}

// fragmentsFor splits one (possibly reverse-complemented) feature
// sequence into KTUP-wide full fragments plus, if the length is not an
// exact multiple of KTUP, one padded tail fragment (spec §4.2 step 2-3).
// Features shorter than MINFRAG contribute no entries at all (spec §3).
func fragmentsFor(localID int, seq []byte) (full []Entry, tail *Entry) {
	n := len(seq)
	if n < kmer.MINFRAG {
		return nil, nil
	}

	nFull := n / kmer.KTUP
	for i := 0; i < nFull; i++ {
		window := seq[i*kmer.KTUP : (i+1)*kmer.KTUP]
		code, ok := kmer.Encode(window)
		if !ok {
			continue
		}
		full = append(full, Entry{
			FeatureID:     localID,
			FragmentIndex: i,
			Mask:          0,
			KmerHash:      code,
			Shift:         0,
		})
	}

	r := n % kmer.KTUP
	if r == 0 {
		return full, nil
	}

	var window []byte
	if n >= kmer.KTUP {
		window = seq[n-kmer.KTUP:]
	} else {
		window = make([]byte, kmer.KTUP)
		pad := kmer.KTUP - n
		for i := 0; i < pad; i++ {
			window[i] = 'A'
		}
		copy(window[pad:], seq)
	}
	code, ok := kmer.Encode(window)
	if !ok {
		return full, nil
	}

	sentinel := make([]byte, kmer.KTUP)
	for i := 0; i < kmer.KTUP-r; i++ {
		sentinel[i] = 'A'
	}
	for i := kmer.KTUP - r; i < kmer.KTUP; i++ {
		sentinel[i] = 'T'
	}
	mask, _ := kmer.Encode(sentinel)
	if mask == 0 {
		mask = 1 // mask is only ever tested for nonzeroness (spec §4.2 step 3)
	}

	tail = &Entry{
		FeatureID:     localID,
		FragmentIndex: nFull,
		Mask:          mask,
		KmerHash:      code,
		Shift:         kmer.KTUP - r,
	}
	return full, tail
}

// WriteTo serializes idx in the compiled index file format of spec §6,
// preceded by the Meta block described above.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64

	wf := func(format string, args ...interface{}) error {
		s := fmt.Sprintf(format, args...)
		m, err := bw.WriteString(s)
		n += int64(m)
		return err
	}

	if err := wf("%d\n", len(idx.Features)); err != nil {
		return n, err
	}
	for _, m := range idx.Features {
		show := 0
		if m.ShowFeature {
			show = 1
		}
		anti := 0
		if m.Antisense {
			anti = 1
		}
		name := strings.ReplaceAll(m.Name, ",", "_")
		if err := wf("%d,%d,%s,%d,%d,%d,%d,\n", m.SourceID, int(m.Type), name, m.Length, m.CutAfter, show, anti); err != nil {
			return n, err
		}
	}

	total := len(idx.Full) + len(idx.Tail)
	if err := wf("%d\n", total); err != nil {
		return n, err
	}
	for _, e := range idx.Full {
		if err := wf("%d,%d,%d,%d,%d,\n", e.FeatureID, e.FragmentIndex, e.Mask, e.KmerHash, e.Shift); err != nil {
			return n, err
		}
	}
	for _, e := range idx.Tail {
		if err := wf("%d,%d,%d,%d,%d,\n", e.FeatureID, e.FragmentIndex, e.Mask, e.KmerHash, e.Shift); err != nil {
			return n, err
		}
	}

	return n, bw.Flush()
}

// ReadFrom parses the format WriteTo produces, validating the header
// counts, field shapes and the sort-order invariant on the full-width
// section; any violation is reported as kerr.CorruptIndex (spec §7).
func ReadFrom(r io.Reader) (*Index, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<20), 1<<24)

	nextLine := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", kerr.New(kerr.CorruptIndex, "read", err)
			}
			return "", kerr.New(kerr.CorruptIndex, "read", io.ErrUnexpectedEOF)
		}
		return sc.Text(), nil
	}

	line, err := nextLine()
	if err != nil {
		return nil, err
	}
	nFeat, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return nil, kerr.New(kerr.CorruptIndex, "feature count", err)
	}

	idx := &Index{}
	for i := 0; i < nFeat; i++ {
		line, err := nextLine()
		if err != nil {
			return nil, err
		}
		fields := strings.Split(strings.TrimRight(line, ","), ",")
		if len(fields) != 7 {
			return nil, kerr.New(kerr.CorruptIndex, "feature record", fmt.Errorf("want 7 fields, got %d", len(fields)))
		}
		sourceID, err1 := strconv.Atoi(fields[0])
		typ, err2 := strconv.Atoi(fields[1])
		length, err3 := strconv.Atoi(fields[3])
		cutAfter, err4 := strconv.Atoi(fields[4])
		show, err5 := strconv.Atoi(fields[5])
		anti, err6 := strconv.Atoi(fields[6])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil {
			return nil, kerr.New(kerr.CorruptIndex, "feature record", fmt.Errorf("non-numeric field"))
		}
		idx.Features = append(idx.Features, Meta{
			SourceID:    sourceID,
			Name:        fields[2],
			Type:        feature.Type(typ),
			Length:      length,
			CutAfter:    cutAfter,
			ShowFeature: show != 0,
			Antisense:   anti != 0,
		})
	}

	line, err = nextLine()
	if err != nil {
		return nil, err
	}
	nEntries, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return nil, kerr.New(kerr.CorruptIndex, "entry count", err)
	}

	var lastHash uint64
	haveLast := false
	inTail := false
	for i := 0; i < nEntries; i++ {
		line, err := nextLine()
		if err != nil {
			return nil, err
		}
		fields := strings.Split(strings.TrimRight(line, ","), ",")
		if len(fields) != 5 {
			return nil, kerr.New(kerr.CorruptIndex, "index entry", fmt.Errorf("want 5 fields, got %d", len(fields)))
		}
		featID, err1 := strconv.Atoi(fields[0])
		fragIdx, err2 := strconv.Atoi(fields[1])
		mask, err3 := strconv.ParseUint(fields[2], 10, 64)
		hash, err4 := strconv.ParseUint(fields[3], 10, 64)
		shift, err5 := strconv.Atoi(fields[4])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			return nil, kerr.New(kerr.CorruptIndex, "index entry", fmt.Errorf("non-numeric field"))
		}
		e := Entry{FeatureID: featID, FragmentIndex: fragIdx, Mask: mask, KmerHash: hash, Shift: shift}
		if mask == 0 {
			if inTail {
				return nil, kerr.New(kerr.CorruptIndex, "entry order", fmt.Errorf("full-width entry after tail section"))
			}
			if haveLast && hash < lastHash {
				return nil, kerr.New(kerr.CorruptIndex, "sort order", fmt.Errorf("kmer_hash not ascending"))
			}
			lastHash, haveLast = hash, true
			idx.Full = append(idx.Full, e)
		} else {
			inTail = true
			idx.Tail = append(idx.Tail, e)
		}
	}

	return idx, nil
}
