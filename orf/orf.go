// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package orf implements the ORF and protein-tag scanner (C7, spec
// §4.7): six-frame translation of a doubled circular sequence, M...*
// open-reading-frame detection, and known peptide-tag scanning within
// each ORF's amino-acid window.
package orf

import (
	"bytes"

	"github.com/kortschak/annotate/boundary"
	"github.com/kortschak/annotate/kmer"
)

// MinLength is the shortest ORF, in amino acids, the scanner reports
// (spec §4.7 step 4, Glossary).
const MinLength = 150

// StopSymbol marks a stop codon in a translated amino-acid sequence.
const StopSymbol = '*'

// codonTable maps every standard codon to its one-letter amino acid,
// or StopSymbol for the three stop codons.
var codonTable = buildCodonTable()

func buildCodonTable() map[string]byte {
	bases := "TCAG"
	aas := "FFLLSSSSYY**CC*WLLLLPPPPHHQQRRRRIIIMTTTTNNKKSSRRVVVVAAAADDEEGGGG"
	m := make(map[string]byte, 64)
	i := 0
	for _, b0 := range bases {
		for _, b1 := range bases {
			for _, b2 := range bases {
				m[string([]byte{byte(b0), byte(b1), byte(b2)})] = aas[i]
				i++
			}
		}
	}
	return m
}

// Tag is a known peptide found inside an ORF's translation, mapped
// back to nucleotide coordinates (spec §4.7 step 5).
type Tag struct {
	Name  string
	Start int
	End   int
}

// knownTag is one (name, peptide) pair in the tag catalog. A name may
// appear more than once for a tag with recognized sequence variants
// (e.g. FLAG, Myr).
type knownTag struct {
	Name     string
	Sequence string
}

// knownTags is the full peptide-tag catalog: the Glossary's seven
// examples plus the variants
// `_examples/original_source/src/django/giraffe/blat/tags.py`'s
// PROTEIN_TAGS carries beyond them (two FLAG variants, two Myr
// sequences, S15, SBP Tag and TAP).
var knownTags = []knownTag{
	{"FLAG", "DYKDDDDK"},
	{"FLAG", "DYKDHDI"},
	{"FLAG", "DYKDHDG"},
	{"HA", "YPYDVPDYA"},
	{"6xHIS", "HHHHHH"},
	{"Myc", "EQKLISEEDL"},
	{"TEV", "ENLYFQG"},
	{"Myr", "MGSNKSKPKDASQRR"},
	{"Myr", "MGSSKSKPKDPSQRA"},
	{"V5", "GKPIPNPLLGLDST"},
	{"S15", "KETAAAKFERQHMDS"},
	{"Strep Tag", "WSHPQFEK"},
	{"SBP Tag", "MDEKTTGWRGGHVVEGLAGELEQLRARLEHHPQGQREP"},
	{"TAP", "GRRIPGLINPWKRRWKKNFIAVSAANRFKKISSSGALDYDIPTTASENLYFQGEFGLAQHDEAVDNKFNKEQQNAFYEILHLPNLNEEQRNAFIQSLKDDPSQSANLLAEAKKLNDAQAPKVDNKFNKEQQNAFYEILHLPNLNEEQRNAFIQSLKDDPSQSANLLAEAKKLNDAQAPKVDANHQ"},
}

// ORF is one detected open reading frame.
type ORF struct {
	Frame     int
	Clockwise bool
	Start     int
	End       int
	Tags      []Tag
}

// translate turns a nucleotide sequence into amino acids, three bases
// at a time, continuing past stop codons so repeated stops in a
// doubled sequence can all be located (spec §4.7 step 4 scans for
// successive '*' occurrences).
func translate(nuc []byte) []byte {
	n := len(nuc) / 3
	aa := make([]byte, n)
	for i := 0; i < n; i++ {
		codon := nuc[i*3 : i*3+3]
		if c, ok := codonTable[string(codon)]; ok {
			aa[i] = c
		} else {
			aa[i] = 'X'
		}
	}
	return aa
}

// Scan detects ORFs and their embedded tags in query, which is
// normalized and doubled internally (spec §4.7).
func Scan(query []byte) []ORF {
	norm := kmer.Normalize(query)
	l := len(norm)
	if l == 0 {
		return nil
	}
	doubled := append(append([]byte(nil), norm...), norm...)
	aaLen := l / 3

	var orfs []ORF
	for _, strand := range []int{1, -1} {
		nuc := doubled
		if strand == -1 {
			nuc = kmer.ReverseComplement(doubled)
		}
		for frame := 0; frame < 3; frame++ {
			sub := nuc[frame:]
			aa := translate(sub)

			aaStart := 0
			for {
				rel := bytes.IndexByte(aa[aaStart:], StopSymbol)
				if rel < 0 {
					break
				}
				aaEnd := aaStart + rel

				if aaEnd-aaLen+1 > aaStart {
					aaStart = aaEnd - aaLen + 1
				}

				m := indexM(aa, aaStart, aaEnd)
				if m >= 0 && m < aaLen && aaEnd-m >= MinLength {
					start, end := ntSpan(strand, frame, m, aaEnd-m+1, l)
					orf := ORF{
						Frame:     frame,
						Clockwise: strand == 1,
						Start:     boundary.Wrap(start, l),
						End:       boundary.Wrap(end, l),
						Tags:      scanTags(aa, m, aaEnd, strand, frame, l),
					}
					orfs = append(orfs, orf)
				}

				aaStart = aaEnd + 1
				if aaStart >= aaLen {
					// Every position beyond one full turn of the circle
					// only re-finds an ORF already considered, shifted by
					// aaLen; stopping here is what keeps a wrapping M...*
					// reported once instead of twice (spec §8 property 10).
					break
				}
			}
		}
	}
	return orfs
}

// indexM returns the index of the first 'M' in aa[start:end), or -1.
func indexM(aa []byte, start, end int) int {
	if start >= end || start < 0 || end > len(aa) {
		return -1
	}
	rel := bytes.IndexByte(aa[start:end], 'M')
	if rel < 0 {
		return -1
	}
	return start + rel
}

// scanTags searches aa[m:aaEnd] for each known peptide tag and maps
// matches back to nucleotide coordinates.
func scanTags(aa []byte, m, aaEnd, strand, frame, l int) []Tag {
	window := aa[m:aaEnd]
	var found []Tag
	for _, t := range knownTags {
		seq := t.Sequence
		off := 0
		for {
			rel := bytes.Index(window[off:], []byte(seq))
			if rel < 0 {
				break
			}
			pos := m + off + rel
			start, end := ntSpan(strand, frame, pos, len(seq), l)
			found = append(found, Tag{
				Name:  t.Name,
				Start: boundary.Wrap(start, l),
				End:   boundary.Wrap(end, l),
			})
			off += rel + 1
		}
	}
	return found
}

// ntSpan maps an amino-acid window [start, start+count) in reading
// frame `frame` on the given strand back to 1-based nucleotide
// coordinates over a sequence of length l (spec §4.7 step 4-5).
func ntSpan(strand, frame, start, count, l int) (s, e int) {
	if strand == 1 {
		s = frame + start*3 + 1
		e = frame + (start+count)*3
		return s, e
	}
	s = l - frame - (start+count)*3 + 1
	e = l - frame - start*3
	if s < 0 {
		s += l
	}
	return s, e
}
