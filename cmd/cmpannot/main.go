// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// cmpannot compares two `annotate -json` outputs for the same query,
// labelling each base with the feature type each side assigns it, and
// reports in total how many bases agree, are missing from one side, or
// are annotated with conflicting types.
// It is a direct generalization of cmd/cmpint to this engine's own
// annotation format, optionally emitting a DOT graph of the
// discordances exactly as cmpint does.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/biogo/store/step"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kortschak/annotate/engine"
)

func main() {
	aFile := flag.String("a", "", "specify the first annotate -json output (required)")
	bFile := flag.String("b", "", "specify the second annotate -json output (required)")
	out := flag.String("dot", "", "specify prefix for a DOT file describing disagreements")
	none := flag.String("none", "none", "specify label for 'no annotation'")

	flag.Parse()
	if *aFile == "" || *bFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	a, err := readResult(*aFile)
	if err != nil {
		log.Fatal(err)
	}
	b, err := readResult(*bFile)
	if err != nil {
		log.Fatal(err)
	}
	if a.Length != b.Length {
		log.Fatalf("result lengths differ: %d != %d", a.Length, b.Length)
	}

	v, err := step.New(0, a.Length, pair{})
	if err != nil {
		log.Fatal(err)
	}
	v.Relaxed = true

	apply := func(res *engine.Result, set func(*pair, string)) {
		for _, ann := range res.Annotations {
			start, end := ann.Start-1, ann.End
			if end < start {
				end = res.Length
			}
			err := v.ApplyRange(start, end, func(e step.Equaler) step.Equaler {
				p := e.(pair)
				set(&p, ann.TypeID.String())
				return p
			})
			if err != nil {
				log.Fatal(err)
			}
		}
	}
	apply(a, func(p *pair, name string) { p.a = name })
	apply(b, func(p *pair, name string) { p.b = name })

	var (
		agree     int
		aMissing  int
		bMissing  int
		mismatch  int
		conflicts = make(map[names]int)
	)
	v.Do(func(start, end int, e step.Equaler) {
		p := e.(pair)
		if p.isZero() {
			return
		}
		n := end - start
		switch {
		case p.a == p.b:
			agree += n
		case p.a == "":
			aMissing += n
			conflicts[names{a: "", b: p.b}] += n
		case p.b == "":
			bMissing += n
			conflicts[names{a: p.a, b: ""}] += n
		default:
			mismatch += n
			conflicts[p.names] += n
		}
	})

	report := struct {
		Agree    int `json:"agree"`
		AMissing int `json:"a_missing"`
		BMissing int `json:"b_missing"`
		Mismatch int `json:"mismatch"`
	}{agree, aMissing, bMissing, mismatch}
	m, err := json.Marshal(report)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s\n", m)

	if *out != "" {
		if err := dotOut(*out, *aFile, *bFile, conflicts, *none); err != nil {
			log.Fatal(err)
		}
	}
}

func readResult(path string) (*engine.Result, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res engine.Result
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &res, nil
}

// pair is a step vector element tracking the type name each side
// assigns to a base.
type pair struct {
	names
}

type names struct {
	a, b string
}

func (p pair) isZero() bool { return p.names == names{} }

func (p pair) Equal(e step.Equaler) bool { return p.names == e.(pair).names }

func dotOut(path, aFile, bFile string, edges map[names]int, none string) error {
	g := newNameGraph(none)
	for p, w := range edges {
		e := edge{
			f: g.nodeFor(aFile, p.a),
			t: g.nodeFor(bFile, p.b),
			w: float64(w),
		}
		g.SetWeightedEdge(e)
	}
	b, err := dot.Marshal(g, "discord", "", "\t")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path+".dot", b, 0o664)
}

type nameGraph struct {
	*simple.WeightedUndirectedGraph
	idFor map[string]int64
	none  string
}

func newNameGraph(none string) nameGraph {
	return nameGraph{
		WeightedUndirectedGraph: simple.NewWeightedUndirectedGraph(0, 0),
		idFor:                   make(map[string]int64),
		none:                    none,
	}
}

func (g nameGraph) nodeFor(file, s string) graph.Node {
	if s == "" {
		s = g.none
	}
	s = file + ":" + s
	id, ok := g.idFor[s]
	if ok {
		return g.Node(id)
	}
	id = g.WeightedUndirectedGraph.NewNode().ID()
	g.idFor[s] = id
	n := node{id: id, name: s}
	g.AddNode(n)
	return n
}

type node struct {
	id   int64
	name string
}

func (n node) ID() int64     { return n.id }
func (n node) DOTID() string { return n.name }

type edge struct {
	f, t graph.Node
	w    float64
}

func (e edge) From() graph.Node         { return e.f }
func (e edge) To() graph.Node           { return e.t }
func (e edge) ReversedEdge() graph.Edge { return edge{f: e.t, t: e.f, w: e.w} }
func (e edge) Weight() float64          { return e.w }
func (e edge) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "weight", Value: fmt.Sprint(e.w)}}
}
