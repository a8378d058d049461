// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package rangetable implements the immutable, binary-searchable IPv4 range
// table described by the database's core invariants: parallel arrays of
// (start, end, asn), sorted and disjoint, plus an asn->name map.
package rangetable

import "sort"

// Table is an immutable set of disjoint IPv4 ranges, each owning an ASN, plus
// the name each ASN resolves to. Table is safe for concurrent read-only use;
// it holds no mutable state after construction.
type Table struct {
	starts []uint32
	ends   []uint32
	asns   []uint32
	names  map[uint32]string

	// overlapAllowed records which lookup semantics this table was built
	// under (spec.md S4.3's "edge-case policy for overlapping feeds").
	overlapAllowed bool
}

// Entry is one input range record.
type Entry struct {
	Start uint32
	End   uint32
	ASN   uint32
}

// Option configures New.
type Option func(*Table)

// WithOverlapAllowed selects the "most specific range wins" lookup semantics
// instead of requiring disjoint ranges. The choice lives only in the
// in-memory Table: no on-disk format records it, and the codec readers
// rebuild every table in the default disjoint mode.
func WithOverlapAllowed() Option {
	return func(t *Table) { t.overlapAllowed = true }
}

// New builds an immutable Table from entries, which must already be sorted by
// Start, and a name map. If overlap is not allowed (the default), New returns
// an error when two ranges overlap (invariant 3); the caller decides whether
// that is fatal.
func New(entries []Entry, names map[uint32]string, opts ...Option) (*Table, error) {
	t := &Table{
		starts: make([]uint32, len(entries)),
		ends:   make([]uint32, len(entries)),
		asns:   make([]uint32, len(entries)),
		names:  names,
	}
	if t.names == nil {
		t.names = map[uint32]string{}
	}
	for _, opt := range opts {
		opt(t)
	}

	for i, e := range entries {
		t.starts[i] = e.Start
		t.ends[i] = e.End
		t.asns[i] = e.ASN
	}

	if !t.overlapAllowed {
		if err := validateDisjoint(t.starts, t.ends); err != nil {
			return nil, err
		}
	} else {
		if !sort.SliceIsSorted(entries, func(i, j int) bool { return entries[i].Start < entries[j].Start }) {
			return nil, errNotSorted
		}
	}

	return t, nil
}

var errNotSorted = &formatError{"rangetable: entries are not sorted by start"}

type formatError struct{ msg string }

func (e *formatError) Error() string { return e.msg }

func validateDisjoint(starts, ends []uint32) error {
	for i := 1; i < len(starts); i++ {
		if starts[i] < starts[i-1] {
			return &formatError{"rangetable: starts not non-decreasing"}
		}
		if ends[i-1] >= starts[i] {
			return &formatError{"rangetable: overlapping or out-of-order ranges"}
		}
	}
	for i := range starts {
		if starts[i] > ends[i] {
			return &formatError{"rangetable: start > end"}
		}
	}
	return nil
}

// Lookup returns the ASN and optional name owning ip, or ok=false if ip falls
// in a gap or before the first range.
//
// Disjoint mode: binary search for the largest i with starts[i] <= ip, then a
// single bounds check (spec.md 4.3's primary algorithm) — O(log N), no
// further scanning.
//
// Overlap-allowed mode: same binary search, then linear scan backward and
// forward from i choosing the containing range with the smallest (end-start)
// span (spec.md 4.3's edge-case policy), since a flat binary search alone
// cannot express longest-prefix-match-like specificity across overlaps.
func (t *Table) Lookup(ip uint32) (asn uint32, name string, ok bool) {
	i := sort.Search(len(t.starts), func(i int) bool { return t.starts[i] > ip }) - 1
	if i < 0 {
		return 0, "", false
	}

	if !t.overlapAllowed {
		if ip > t.ends[i] {
			return 0, "", false
		}
		return t.asns[i], t.names[t.asns[i]], true
	}

	bestIdx := -1
	bestSpan := uint32(0xFFFFFFFF)
	for j := i; j >= 0 && t.starts[j] <= ip; j-- {
		if t.ends[j] >= ip {
			span := t.ends[j] - t.starts[j]
			if span < bestSpan {
				bestSpan = span
				bestIdx = j
			}
		}
	}
	for j := i + 1; j < len(t.starts) && t.starts[j] <= ip; j++ {
		if t.ends[j] >= ip {
			span := t.ends[j] - t.starts[j]
			if span < bestSpan {
				bestSpan = span
				bestIdx = j
			}
		}
	}
	if bestIdx < 0 {
		return 0, "", false
	}
	return t.asns[bestIdx], t.names[t.asns[bestIdx]], true
}

// EntryCount returns N, the number of ranges in the table. O(1).
func (t *Table) EntryCount() int {
	return len(t.starts)
}

// UniqueASNCount returns the number of distinct ASNs with a resolvable name.
// O(1).
func (t *Table) UniqueASNCount() int {
	return len(t.names)
}

// OverlapAllowed reports which lookup semantics this table uses.
func (t *Table) OverlapAllowed() bool {
	return t.overlapAllowed
}

// Ranges exposes the raw parallel arrays read-only, for codecs that need to
// serialize the table (pkg/ultracompact, pkg/altcodec) and for property tests
// that verify the invariants directly against the arrays.
func (t *Table) Ranges() (starts, ends, asns []uint32) {
	return t.starts, t.ends, t.asns
}

// Names returns the asn->name map. Callers must not mutate it.
func (t *Table) Names() map[uint32]string {
	return t.names
}
