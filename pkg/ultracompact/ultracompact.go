// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package ultracompact implements asndb's primary on-disk format: a
// zlib-compressed stream of a 12-byte header, big-endian start + varint-delta
// ranges, and a varint-encoded ASN name table. The byte layout is fixed by
// compatibility with files already in the wild; see spec.md 4.4 for the exact
// field order this package must preserve.
package ultracompact

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"unicode/utf8"

	"asndb/pkg/rangetable"
	"asndb/pkg/varint"
)

// Magic identifies the Ultra-Compact format.
const Magic = "ULTR"

const headerSize = 4 + 4 + 4 // magic + range_count + asn_count

// decompressAttempts bounds the exponential buffer-growth retry loop the
// reader uses when the decompressed size isn't known up front.
const decompressAttempts = 3

// Errors returned by this package. Each is distinguishable per spec.md 7.
var (
	ErrInvalidFormat       = fmt.Errorf("ultracompact: invalid format")
	ErrCorruptedData       = fmt.Errorf("ultracompact: corrupted data")
	ErrDecompressionFailed = fmt.Errorf("ultracompact: decompression failed")
)

// Write serializes table to w in the Ultra-Compact format.
//
// Ranges are emitted in ascending start order (the order Ranges() returns,
// which rangetable.New already requires to be sorted); ASNs are emitted in
// ascending numeric order. The ASN count is written twice — once in the fixed
// header, once again immediately before the name table — a quirk of the
// format that must be preserved for compatibility (spec.md 9, "Open
// question").
func Write(w io.Writer, table *rangetable.Table) error {
	starts, ends, asns := table.Ranges()
	names := table.Names()

	asnList := make([]uint32, 0, len(names))
	for asn := range names {
		asnList = append(asnList, asn)
	}
	sort.Slice(asnList, func(i, j int) bool { return asnList[i] < asnList[j] })

	var buf bytes.Buffer
	buf.WriteString(Magic)

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(starts)))
	buf.Write(countBuf[:])
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(asnList)))
	buf.Write(countBuf[:])

	var startBuf [4]byte
	for i := range starts {
		binary.BigEndian.PutUint32(startBuf[:], starts[i])
		buf.Write(startBuf[:])
		buf.Write(varint.Encode(ends[i] - starts[i]))
		buf.Write(varint.Encode(asns[i]))
	}

	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(asnList)))
	buf.Write(countBuf[:])

	for _, asn := range asnList {
		name := names[asn]
		buf.Write(varint.Encode(asn))
		buf.Write(varint.Encode(uint32(len(name))))
		buf.WriteString(name)
	}

	zw := zlib.NewWriter(w)
	if _, err := zw.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("ultracompact: write: %w", err)
	}
	return zw.Close()
}

// Read parses an Ultra-Compact byte stream into a rangetable.Table.
func Read(r io.Reader) (*rangetable.Table, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ultracompact: read: %w", err)
	}

	data, err := decompress(compressed)
	if err != nil {
		return nil, err
	}

	if len(data) < headerSize || string(data[:4]) != Magic {
		return nil, ErrInvalidFormat
	}

	rangeCount := binary.LittleEndian.Uint32(data[4:8])

	starts := make([]uint32, rangeCount)
	ends := make([]uint32, rangeCount)
	asns := make([]uint32, rangeCount)

	offset := headerSize
	for i := uint32(0); i < rangeCount; i++ {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated range %d", ErrCorruptedData, i)
		}
		start := binary.BigEndian.Uint32(data[offset : offset+4])
		offset += 4

		size, err := varint.Decode(data, &offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedData, err)
		}
		asn, err := varint.Decode(data, &offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedData, err)
		}

		starts[i] = start
		ends[i] = start + size // wrapping addition is intentional, see spec.md 9
		asns[i] = asn
	}

	if offset+4 > len(data) {
		return nil, fmt.Errorf("%w: missing asn table count", ErrCorruptedData)
	}
	headerASNCount := binary.LittleEndian.Uint32(data[4+4 : 4+4+4])
	asnTableCount := binary.LittleEndian.Uint32(data[offset : offset+4])
	offset += 4
	if asnTableCount != headerASNCount {
		return nil, fmt.Errorf("%w: asn count mismatch (header %d, table %d)",
			ErrInvalidFormat, headerASNCount, asnTableCount)
	}

	names := make(map[uint32]string, asnTableCount)
	for i := uint32(0); i < asnTableCount; i++ {
		asn, err := varint.Decode(data, &offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedData, err)
		}
		nameLen, err := varint.Decode(data, &offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedData, err)
		}
		if offset+int(nameLen) > len(data) {
			return nil, fmt.Errorf("%w: name length past end of buffer", ErrCorruptedData)
		}
		nameBytes := data[offset : offset+int(nameLen)]
		offset += int(nameLen)

		if !utf8.Valid(nameBytes) {
			// A corrupted name entry is dropped, not fatal (spec.md 7).
			continue
		}
		names[asn] = string(nameBytes)
	}

	entries := make([]rangetable.Entry, rangeCount)
	for i := range entries {
		entries[i] = rangetable.Entry{Start: starts[i], End: ends[i], ASN: asns[i]}
	}

	return rangetable.New(entries, names)
}

// decompress inflates zlib-compressed data, starting with an 8x size guess
// and doubling on failure up to decompressAttempts times (spec.md 4.4).
func decompress(compressed []byte) ([]byte, error) {
	guess := len(compressed) * 8
	if guess == 0 {
		guess = 64
	}

	var lastErr error
	for attempt := 0; attempt < decompressAttempts; attempt++ {
		zr, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			lastErr = err
			guess *= 2
			continue
		}
		limited := io.LimitReader(zr, int64(guess)+1)
		out, err := io.ReadAll(limited)
		zr.Close()
		if err != nil {
			lastErr = err
			guess *= 2
			continue
		}
		if len(out) > guess {
			// Hit the limit; the true size is larger than our guess.
			lastErr = fmt.Errorf("decompressed output exceeds guess of %d bytes", guess)
			guess *= 2
			continue
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrDecompressionFailed, lastErr)
}
