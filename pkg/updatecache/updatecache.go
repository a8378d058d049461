// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package updatecache persists update-loop bookkeeping (the last fetch's
// ETag/Last-Modified pair, which on-disk database file is current, and a
// generation counter) in a small LevelDB instance, following the teacher's
// pkg/iporgdb.DB. This is strictly ambient: pkg/asndb itself never imports
// this package, since a loaded Database is a read-only snapshot with no
// notion of "current." Only cmd/asndb-update touches it.
package updatecache

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/vmihailenco/msgpack/v5"

	"asndb/pkg/fetch"
)

// Error is a sentinel string error scoped to this package.
type Error string

func (e Error) Error() string { return string(e) }

// ErrClosed is returned by every method once Close has been called.
const ErrClosed Error = "updatecache: database closed"

const stateKey = "state"

// State is the record persisted under stateKey.
type State struct {
	ETag           string
	LastModified   time.Time
	CurrentDBPath  string
	Generation     uint64
	LastFetchedAt  time.Time
	LastBuildError string
}

// Cache wraps a LevelDB instance holding a single State record.
type Cache struct {
	db     *leveldb.DB
	mu     sync.RWMutex
	path   string
	closed bool
}

// Open opens or creates a LevelDB database at path, using the same
// Snappy-compressed, large-write-buffer configuration the teacher's
// pkg/iporgdb uses for build-time throughput.
func Open(path string) (*Cache, error) {
	opts := &opt.Options{
		Compression: opt.SnappyCompression,
		WriteBuffer: 64 * 1024 * 1024,
	}
	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("updatecache: open: %w", err)
	}
	return &Cache{db: db, path: path}, nil
}

// Close closes the underlying LevelDB handle.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return c.db.Close()
}

// Load returns the persisted State, or the zero State if none has been
// saved yet.
func (c *Cache) Load() (State, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return State{}, ErrClosed
	}

	raw, err := c.db.Get([]byte(stateKey), nil)
	if err == leveldb.ErrNotFound {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("updatecache: get: %w", err)
	}

	var s State
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return State{}, fmt.Errorf("updatecache: decode: %w", err)
	}
	return s, nil
}

// Save persists s, overwriting any prior State.
func (c *Cache) Save(s State) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	raw, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("updatecache: encode: %w", err)
	}
	return c.db.Put([]byte(stateKey), raw, nil)
}

// FetchMetadata extracts the fetch.Metadata half of State, for handing to
// fetch.Fetcher.Fetch.
func (s State) FetchMetadata() fetch.Metadata {
	return fetch.Metadata{ETag: s.ETag, LastModified: s.LastModified}
}

const rawFeedKey = "raw-feed"

// SaveRawFeed snappy-compresses and stores the last downloaded feed body, so
// a rebuild triggered between process restarts can reuse it without
// refetching when the upstream ETag hasn't changed. This is a separate
// compression pass from LevelDB's own Snappy value compression (opt.Options
// above applies to every key, including this one) — it lets the cached
// bytes be read back and decompressed directly by a caller that opens the
// LevelDB files without going through this package, e.g. for debugging.
func (c *Cache) SaveRawFeed(raw []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return c.db.Put([]byte(rawFeedKey), snappy.Encode(nil, raw), nil)
}

// LoadRawFeed returns the last feed body saved by SaveRawFeed, or nil if
// none has been saved yet.
func (c *Cache) LoadRawFeed() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	compressed, err := c.db.Get([]byte(rawFeedKey), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updatecache: get raw feed: %w", err)
	}
	return snappy.Decode(nil, compressed)
}
