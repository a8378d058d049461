// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package trie implements the bit-level prefix trie used for
// longest-prefix-match lookups: IPv6 addresses, and IPv4/IPv6 workloads built
// from (possibly nested) CIDR prefixes rather than a flat disjoint range
// list. See spec.md 4.6.
//
// A trie goes through exactly two phases: Builder accepts Insert calls, and
// Freeze converts it into an immutable Frozen value. Once frozen, further
// inserts are a programming error and panic — mirroring the type-state
// builder pattern spec.md 9 calls out as one valid realization of the
// build/freeze split.
package trie

// node is a single trie node. Children are nil until needed; payload is the
// zero value (asn=0, hasValue=false) until an insert terminates there.
type node struct {
	children [2]*node
	asn      uint32
	orgName  string
	hasValue bool
}

// Builder accumulates prefix inserts before being frozen into a Frozen trie.
type Builder struct {
	root *node
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{root: &node{}}
}

// Insert walks from the root, descending bit(address, i) for i in
// [0, prefixLen), creating missing nodes, and stores (asn, orgName) at the
// terminal node. A second Insert at the same node overwrites the first
// (last write wins), matching spec.md 4.6.
//
// bitAt(i) must return 0 or 1 for i in [0, prefixLen). Callers pass
// ipaddr.BitV4 or ipaddr.V6.Bit bound to a specific address.
func (b *Builder) Insert(prefixLen int, bitAt func(i int) byte, asn uint32, orgName string) {
	b.mustBeOpen()
	n := b.root
	for i := 0; i < prefixLen; i++ {
		bit := bitAt(i)
		if n.children[bit] == nil {
			n.children[bit] = &node{}
		}
		n = n.children[bit]
	}
	n.asn = asn
	n.orgName = orgName
	n.hasValue = true
}

// Frozen is an immutable, read-only trie safe for concurrent lookups.
type Frozen struct {
	root *node
}

// Freeze converts b into a Frozen trie. b must not be used after Freeze.
func (b *Builder) Freeze() *Frozen {
	f := &Frozen{root: b.root}
	b.root = nil // guards against accidental reuse of the builder
	return f
}

// Insert on a Builder whose root has already been handed to Freeze panics;
// nil-root is the only signal available once frozen, since Frozen itself
// exposes no mutating method.
func (b *Builder) mustBeOpen() {
	if b.root == nil {
		panic("trie: Insert called on a builder that has already been frozen")
	}
}

// Lookup walks from the root for up to bitWidth bits, recording the deepest
// node with a value as the current best, and returns that best match's
// (asn, orgName), or ok=false if no prefix along the path carried a value.
func (f *Frozen) Lookup(bitWidth int, bitAt func(i int) byte) (asn uint32, orgName string, ok bool) {
	n := f.root
	var bestASN uint32
	var bestName string
	bestOK := false

	if n.hasValue {
		bestASN, bestName, bestOK = n.asn, n.orgName, true
	}

	for i := 0; i < bitWidth; i++ {
		bit := bitAt(i)
		next := n.children[bit]
		if next == nil {
			break
		}
		n = next
		if n.hasValue {
			bestASN, bestName, bestOK = n.asn, n.orgName, true
		}
	}

	return bestASN, bestName, bestOK
}
