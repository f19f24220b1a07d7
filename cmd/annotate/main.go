// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// annotate locates feature-library matches and open reading frames in
// a query DNA sequence and reports them as GFF or JSON, mirroring the
// cmd/ins driver this engine replaces.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"
	"github.com/biogo/hts/fai"

	"github.com/kortschak/annotate/engine"
	"github.com/kortschak/annotate/index"
)

func main() {
	idxPath := flag.String("index", "", "specify compiled feature index file (required)")
	in := flag.String("query", "", "specify query sequence file (required)")
	record := flag.String("record", "", "for a large, fai-indexed multi-record FASTA, annotate only this record")
	jsonOut := flag.Bool("json", false, "specify json format for annotation output")
	singleCutters := flag.Bool("single-cutters", false, "filter enzyme annotations to single cutters only")
	noORFs := flag.Bool("no-orfs", false, "disable ORF and protein-tag detection")
	includeSeq := flag.Bool("include-sequence", false, "include the cleaned query sequence in JSON output")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -index <index.db> -query <seq.fa> >out.gff
  $ %[1]s -index <index.db> -query <genome.fa> -record chr2 >out.gff

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *idxPath == "" || *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*idxPath)
	if err != nil {
		log.Fatalf("failed to open index: %v", err)
	}
	idx, err := index.ReadFrom(f)
	f.Close()
	if err != nil {
		log.Fatalf("failed to read index: %v", err)
	}

	var raw []byte
	if *record != "" {
		raw, err = readIndexedRecord(*in, *record)
	} else {
		raw, err = ioutil.ReadFile(*in)
	}
	if err != nil {
		log.Fatalf("failed to read query: %v", err)
	}

	opt := engine.DefaultOptions()
	opt.SingleCuttersOnly = *singleCutters
	opt.DetectORFs = !*noORFs
	opt.IncludeSequence = *includeSeq

	res, err := engine.Detect(idx, raw, opt)
	if err != nil {
		log.Fatalf("failed to annotate query: %v", err)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(res); err != nil {
			log.Fatalf("failed to write annotations: %v", err)
		}
		return
	}

	enc := gff.NewWriter(os.Stdout, 60, true)
	for _, a := range res.Annotations {
		strand := seq.Plus
		if !a.Clockwise {
			strand = seq.Minus
		}
		attrs := gff.Attributes{{Tag: "Name", Value: a.Name}}
		if a.VariantLabel != "" {
			attrs = append(attrs, gff.Attribute{Tag: "Variant", Value: a.VariantLabel})
		}
		if a.Cut != nil {
			attrs = append(attrs, gff.Attribute{Tag: "Cut", Value: fmt.Sprintf("%d", *a.Cut)})
		}
		kind := strings.ToLower(a.TypeID.String())
		if a.TypeID == engine.ORFTypeID {
			kind = "orf"
		}
		_, err := enc.Write(&gff.Feature{
			SeqName:        "query",
			Source:         "annotate",
			Feature:        kind,
			FeatStart:      a.Start,
			FeatEnd:        a.End,
			FeatScore:      a.Score,
			FeatStrand:     strand,
			FeatFrame:      gff.NoFrame,
			FeatAttributes: attrs,
		})
		if err != nil {
			log.Fatalf("failed to write feature: %v", err)
		}
	}
}

// readIndexedRecord fetches the raw bytes of a single named record from
// a large, fai-indexed multi-record FASTA file without reading the
// whole file into memory, the way cmd/ins's query-side random access
// does for BLAST subject ranges.
func readIndexedRecord(path, name string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := fai.NewIndex(f)
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", path, err)
	}

	ff := fai.NewFile(f, idx)
	rec, err := ff.Seq(name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch record %q from %s: %w", name, path, err)
	}
	return ioutil.ReadAll(rec)
}
