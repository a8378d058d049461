// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package altcodec implements the secondary on-disk formats kept for
// interoperability and size comparison against the primary Ultra-Compact
// format: IP2A (delta-encoded, no names), ASN2 (fixed-width, optionally
// zlib-compressed, big-endian), and ASND (fixed-width IPv4-only,
// little-endian, uncompressed). See spec.md 4.5.
package altcodec

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"asndb/pkg/rangetable"
	"asndb/pkg/varint"
)

// MagicIP2A identifies the IP2A format.
const MagicIP2A = "IP2A"

const ip2aVersion = 1

// WriteIP2A serializes table to w in the delta-encoded IP2A format. Names are
// not carried by this format; lookups against an IP2A file return only the
// ASN.
func WriteIP2A(w io.Writer, table *rangetable.Table) error {
	starts, ends, asns := table.Ranges()

	var buf bytes.Buffer
	buf.WriteString(MagicIP2A)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], ip2aVersion)
	buf.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], uint32(len(starts)))
	buf.Write(u32[:])

	prevStart := uint32(0)
	for i := range starts {
		buf.Write(varint.Encode(starts[i] - prevStart))
		buf.Write(varint.Encode(ends[i] - starts[i]))
		buf.Write(varint.Encode(asns[i]))
		prevStart = starts[i]
	}

	zw := zlib.NewWriter(w)
	if _, err := zw.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("ip2a: write: %w", err)
	}
	return zw.Close()
}

// IP2AEntry is a single range decoded from an IP2A file (no name attached).
type IP2AEntry struct {
	Start uint32
	End   uint32
	ASN   uint32
}

// ReadIP2A parses an IP2A byte stream.
func ReadIP2A(r io.Reader) ([]IP2AEntry, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, err)
	}

	if len(data) < 12 || string(data[:4]) != MagicIP2A {
		return nil, ErrInvalidFormat
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version > ip2aVersion {
		return nil, ErrUnsupportedVersion
	}
	count := binary.LittleEndian.Uint32(data[8:12])

	entries := make([]IP2AEntry, count)
	offset := 12
	prevStart := uint32(0)
	for i := uint32(0); i < count; i++ {
		delta, err := varint.Decode(data, &offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedData, err)
		}
		size, err := varint.Decode(data, &offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedData, err)
		}
		asn, err := varint.Decode(data, &offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedData, err)
		}

		start := prevStart + delta
		entries[i] = IP2AEntry{Start: start, End: start + size, ASN: asn}
		prevStart = start
	}

	return entries, nil
}

// LookupIP2A performs the same binary-search point lookup as
// rangetable.Table but against entries decoded straight from an IP2A file,
// for callers that want the secondary format without paying to build a full
// Table.
func LookupIP2A(entries []IP2AEntry, ip uint32) (asn uint32, ok bool) {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Start > ip }) - 1
	if i < 0 || ip > entries[i].End {
		return 0, false
	}
	return entries[i].ASN, true
}
