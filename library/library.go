// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package library parses the feature-library text format (spec §6),
// the external ingestion format spec.md places out of scope for the
// core engine. It exists so cmd/buildindex and cmd/annotate are
// runnable end to end; it is not imported by index, match, train,
// score, boundary, orf or engine.
package library

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kortschak/annotate/feature"
	"github.com/kortschak/annotate/internal/kerr"
)

var typeCodes = map[byte]feature.Type{
	'F': feature.Feature,
	'G': feature.Gene,
	'P': feature.Promoter,
	'O': feature.Origin,
	'R': feature.Regulatory,
	'T': feature.Terminator,
	'f': feature.ExactFeature,
	'S': feature.Primer,
	'E': feature.Enzyme,
}

// Parse reads the line-oriented feature-library text format and
// returns a feature.Library named name with the given db_version.
func Parse(r io.Reader, name, dbVersion string) (feature.Library, error) {
	lib := feature.Library{Name: name, DBVersion: dbVersion}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<16), 1<<22)

	id := 0
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rec, err := parseLine(line, id)
		if err != nil {
			return lib, kerr.New(kerr.BadFeature, fmt.Sprintf("line %d", lineNo), err)
		}
		id++
		lib.Records = append(lib.Records, rec)
	}
	if err := sc.Err(); err != nil {
		return lib, kerr.New(kerr.BadFeature, "read", err)
	}
	return lib, nil
}

func parseLine(line string, id int) (feature.Record, error) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return feature.Record{}, fmt.Errorf("missing ':' in %q", line)
	}
	tag, rest := line[:colon], line[colon+1:]

	space := strings.IndexByte(rest, ' ')
	if space < 0 {
		return feature.Record{}, fmt.Errorf("missing sequence in %q", line)
	}
	head, seq := rest[:space], strings.TrimSpace(rest[space:])
	seq = strings.ToUpper(seq)

	switch tag {
	case "E", "E*":
		name, cutAfter, err := parseEnzymeHead(head)
		if err != nil {
			return feature.Record{}, err
		}
		return feature.Record{
			ID:          id,
			Type:        feature.Enzyme,
			Name:        name,
			Sequence:    []byte(seq),
			CutAfter:    cutAfter,
			ShowFeature: tag == "E*",
		}, nil
	default:
		if len(tag) != 1 {
			return feature.Record{}, fmt.Errorf("unknown type tag %q", tag)
		}
		typ, ok := typeCodes[tag[0]]
		if !ok {
			return feature.Record{}, fmt.Errorf("unknown type tag %q", tag)
		}
		return feature.Record{
			ID:          id,
			Type:        typ,
			Name:        head,
			Sequence:    []byte(seq),
			ShowFeature: true,
		}, nil
	}
}

// parseEnzymeHead parses "<name>,<cut_after>/<cut_before>". cut_before
// is accepted for format compatibility but unused: the data model
// (spec §3) records only cut_after.
func parseEnzymeHead(head string) (name string, cutAfter int, err error) {
	comma := strings.IndexByte(head, ',')
	if comma < 0 {
		return "", 0, fmt.Errorf("missing ',' in enzyme header %q", head)
	}
	name = head[:comma]
	cuts := head[comma+1:]
	slash := strings.IndexByte(cuts, '/')
	after := cuts
	if slash >= 0 {
		after = cuts[:slash]
	}
	cutAfter, err = strconv.Atoi(after)
	if err != nil {
		return "", 0, fmt.Errorf("bad cut_after in %q: %w", head, err)
	}
	return name, cutAfter, nil
}
