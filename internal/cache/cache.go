// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache is an optional, persisted cache of engine.Result
// values keyed by (sequence_hash, db_version), adapted from the
// teacher's internal/store/cmd/audit-ins-db kv.DB usage. A cache miss
// or absent cache is never an error: callers that skip this package
// entirely see identical behavior to a bare engine.Detect call.
package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"modernc.org/kv"

	"github.com/kortschak/annotate/engine"
)

// Cache wraps a modernc.org/kv database of serialized engine.Result
// values.
type Cache struct {
	db *kv.DB
}

// Open opens (or creates, if absent) the cache database at path.
func Open(path string) (*Cache, error) {
	opts := &kv.Options{}
	db, err := kv.Open(path, opts)
	if err != nil {
		db, err = kv.Create(path, opts)
		if err != nil {
			return nil, fmt.Errorf("cache: open %s: %w", path, err)
		}
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

func key(sequenceHash, dbVersion string) []byte {
	return []byte(sequenceHash + "\x00" + dbVersion)
}

// Get returns the cached result for (sequenceHash, dbVersion), and
// whether it was present.
func (c *Cache) Get(sequenceHash, dbVersion string) (*engine.Result, bool, error) {
	v, err := c.db.Get(nil, key(sequenceHash, dbVersion))
	if err != nil {
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	var res engine.Result
	if err := json.NewDecoder(bytes.NewReader(v)).Decode(&res); err != nil {
		return nil, false, fmt.Errorf("cache: decode: %w", err)
	}
	return &res, true, nil
}

// Put stores res under (sequenceHash, dbVersion).
func (c *Cache) Put(sequenceHash, dbVersion string, res *engine.Result) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(res); err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	return c.db.Set(key(sequenceHash, dbVersion), buf.Bytes())
}

// Each streams every (key, result) pair in the cache, in kv's default
// key order, following the SeekFirst/Next idiom of cmd/audit-ins-db.
func (c *Cache) Each(fn func(sequenceHash, dbVersion string, res *engine.Result) error) error {
	it, err := c.db.SeekFirst()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	for {
		k, v, err := it.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		parts := bytes.SplitN(k, []byte("\x00"), 2)
		if len(parts) != 2 {
			continue
		}
		var res engine.Result
		if err := json.Unmarshal(v, &res); err != nil {
			return fmt.Errorf("cache: decode: %w", err)
		}
		if err := fn(string(parts[0]), string(parts[1]), &res); err != nil {
			return err
		}
	}
}
