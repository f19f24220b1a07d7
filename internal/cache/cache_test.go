// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"path/filepath"
	"testing"

	"github.com/kortschak/annotate/engine"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTestCache(t)
	res := &engine.Result{SequenceHash: "deadbeef", Length: 30, Annotations: []engine.Annotation{
		{Name: "EcoRI", Start: 10, End: 16, Clockwise: true},
	}}

	if err := c.Put("deadbeef", "v1", res); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get("deadbeef", "v1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.SequenceHash != res.SequenceHash || got.Length != res.Length {
		t.Errorf("got %+v, want %+v", got, res)
	}
	if len(got.Annotations) != 1 || got.Annotations[0].Name != "EcoRI" {
		t.Errorf("unexpected annotations: %+v", got.Annotations)
	}
}

func TestGetMiss(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.Get("nonexistent", "v1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected a cache miss")
	}
}

func TestEachIteratesAllEntries(t *testing.T) {
	c := openTestCache(t)
	want := map[string]string{
		"hash1": "v1",
		"hash2": "v1",
		"hash1dup": "v2",
	}
	for hash, ver := range want {
		res := &engine.Result{SequenceHash: hash, Length: 1}
		if err := c.Put(hash, ver, res); err != nil {
			t.Fatalf("Put(%s,%s): %v", hash, ver, err)
		}
	}

	seen := make(map[string]string)
	err := c.Each(func(hash, ver string, res *engine.Result) error {
		seen[hash] = ver
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if len(seen) != len(want) {
		t.Fatalf("Each saw %d entries, want %d", len(seen), len(want))
	}
	for hash, ver := range want {
		if seen[hash] != ver {
			t.Errorf("seen[%s] = %s, want %s", hash, seen[hash], ver)
		}
	}
}
