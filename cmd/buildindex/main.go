// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// buildindex compiles a feature-library text file (spec §6) into the
// on-disk k-mer index the annotate command reads, mirroring the
// maintenance role cmd/audit-ins-db plays for the teacher's BLAST
// stores.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kortschak/annotate/index"
	"github.com/kortschak/annotate/library"
)

func main() {
	in := flag.String("lib", "", "specify feature-library text file (required)")
	out := flag.String("out", "", "specify output index file (required)")
	name := flag.String("name", "default", "specify library name")
	dbVersion := flag.String("db-version", "", "specify db_version recorded for cache invalidation (required)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s -lib <library.txt> -db-version <v> -out <index.db>

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *in == "" || *out == "" || *dbVersion == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatalf("failed to open library: %v", err)
	}
	lib, err := library.Parse(f, *name, *dbVersion)
	f.Close()
	if err != nil {
		log.Fatalf("failed to parse library: %v", err)
	}
	log.Printf("parsed %d features from %s", len(lib.Records), *in)

	idx, err := index.Build(lib)
	if err != nil {
		log.Fatalf("failed to build index: %v", err)
	}
	log.Printf("compiled %d full-width and %d tail entries across %d local ids",
		len(idx.Full), len(idx.Tail), len(idx.Features))

	w, err := os.Create(*out)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *out, err)
	}
	if _, err := idx.WriteTo(w); err != nil {
		w.Close()
		log.Fatalf("failed to write index: %v", err)
	}
	if err := w.Close(); err != nil {
		log.Fatalf("failed to close %s: %v", *out, err)
	}
}
