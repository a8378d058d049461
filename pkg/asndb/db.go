// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package asndb is the database façade (spec.md 4.7): a single public lookup
// entry point that chooses, at load time, between the range-table backing
// (IPv4, disjoint ranges decoded from one of the four on-disk formats) and
// the trie backing (IPv6, or CIDR-prefix workloads with possible nesting).
//
// A loaded Database is immutable and may be shared by reference across
// goroutines without synchronization: lookups never mutate it.
package asndb

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"asndb/pkg/altcodec"
	"asndb/pkg/ipaddr"
	"asndb/pkg/rangetable"
	"asndb/pkg/trie"
	"asndb/pkg/ultracompact"
)

// Database is the immutable loaded artifact callers query. At most one of
// v4Table or v4Trie is populated for IPv4 lookups (table for the four
// on-disk range formats, trie for a CIDR-prefix build); v6Trie is populated
// only when the Database was built from CIDR prefixes that included IPv6.
//
// Name() results are returned as plain string copies rather than references
// into Database-owned storage: rangetable.Table and trie.Frozen both hand
// back Go strings, which already carry their own backing array independent
// of the Database's lifetime, so there is no dangling-reference risk to
// document beyond "copy, not a view."
type Database struct {
	v4Table *rangetable.Table
	v4Trie  *trie.Frozen
	v6Trie  *trie.Frozen
}

// Load reads path fully into memory and delegates to LoadBytes.
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIoError, err)
	}
	return LoadBytes(data)
}

// LoadBytes detects which on-disk format data is in and constructs a
// Database backed by a range table. The detection order is: attempt zlib
// decompression (Ultra-Compact and IP2A are both zlib streams; their own
// internal magic then disambiguates the two) and, if that fails, look for
// the ASN2 or ASND magic directly at offset 0 (both formats keep their
// header uncompressed or optionally self-describe compression via a flag
// bit — see pkg/altcodec).
func LoadBytes(data []byte) (*Database, error) {
	if looksLikeZlib(data) {
		inner, err := peekZlibMagic(data)
		if err == nil {
			switch inner {
			case ultracompact.Magic:
				table, err := ultracompact.Read(bytes.NewReader(data))
				if err != nil {
					return nil, translateErr(err)
				}
				return &Database{v4Table: table}, nil
			case altcodec.MagicIP2A:
				entries, err := altcodec.ReadIP2A(bytes.NewReader(data))
				if err != nil {
					return nil, translateErr(err)
				}
				return &Database{v4Table: tableFromIP2A(entries)}, nil
			}
		}
	}

	if len(data) >= 4 && binary.BigEndian.Uint32(data[:4]) == altcodec.MagicASN2 {
		entries, names, err := altcodec.ReadASN2(bytes.NewReader(data))
		if err != nil {
			return nil, translateErr(err)
		}
		table, err := tableFromASN2(entries, names)
		if err != nil {
			return nil, translateErr(err)
		}
		return &Database{v4Table: table}, nil
	}
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == altcodec.MagicASND {
		entries, names, err := altcodec.ReadASND(bytes.NewReader(data))
		if err != nil {
			return nil, translateErr(err)
		}
		table, err := tableFromASND(entries, names)
		if err != nil {
			return nil, translateErr(err)
		}
		return &Database{v4Table: table}, nil
	}

	return nil, ErrInvalidFormat
}

// translateErr maps a pkg/ultracompact or pkg/altcodec sentinel to the
// corresponding asndb sentinel, so that callers of Load/LoadBytes can match
// against the taxonomy spec.md 7 documents (errors.Is(err,
// asndb.ErrCorruptedData), etc.) without reaching into the codec
// sub-packages directly. The original error is kept as the wrapped cause, so
// errors.Is against the sub-package's own sentinel still matches too.
func translateErr(err error) error {
	switch {
	case errors.Is(err, ultracompact.ErrInvalidFormat), errors.Is(err, altcodec.ErrInvalidFormat):
		return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	case errors.Is(err, ultracompact.ErrDecompressionFailed), errors.Is(err, altcodec.ErrDecompressionFailed):
		return fmt.Errorf("%w: %w", ErrDecompressionFailed, err)
	case errors.Is(err, ultracompact.ErrCorruptedData), errors.Is(err, altcodec.ErrCorruptedData):
		return fmt.Errorf("%w: %w", ErrCorruptedData, err)
	case errors.Is(err, altcodec.ErrUnsupportedVersion):
		return fmt.Errorf("%w: %w", ErrUnsupportedVersion, err)
	default:
		return err
	}
}

func looksLikeZlib(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	cmf, flg := data[0], data[1]
	if cmf&0x0f != 8 {
		return false
	}
	return (uint16(cmf)*256+uint16(flg))%31 == 0
}

// peekZlibMagic decompresses just enough of data to read the inner 4-byte
// magic, without committing to a full-buffer decompression strategy (that
// happens inside ultracompact.Read/altcodec.ReadIP2A once the format is
// known).
func peekZlibMagic(data []byte) (string, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer zr.Close()
	var magic [4]byte
	if _, err := io.ReadFull(zr, magic[:]); err != nil {
		return "", err
	}
	return string(magic[:]), nil
}

func tableFromIP2A(entries []altcodec.IP2AEntry) *rangetable.Table {
	rtEntries := make([]rangetable.Entry, len(entries))
	for i, e := range entries {
		rtEntries[i] = rangetable.Entry{Start: e.Start, End: e.End, ASN: e.ASN}
	}
	table, _ := rangetable.New(rtEntries, nil)
	return table
}

func tableFromASN2(entries []altcodec.ASN2Entry, names map[uint32]string) (*rangetable.Table, error) {
	rtEntries := make([]rangetable.Entry, len(entries))
	for i, e := range entries {
		rtEntries[i] = rangetable.Entry{Start: e.Start, End: e.End, ASN: e.ASN}
	}
	return rangetable.New(rtEntries, names)
}

func tableFromASND(entries []altcodec.ASNDEntry, names map[uint32]string) (*rangetable.Table, error) {
	rtEntries := make([]rangetable.Entry, len(entries))
	for i, e := range entries {
		rtEntries[i] = rangetable.Entry{Start: e.Start, End: e.End, ASN: e.ASN}
	}
	return rangetable.New(rtEntries, names)
}

// NewFromPrefixes builds a trie-backed Database from CIDR-style prefixes,
// for IPv6 or overlapping/nested IPv4 workloads (spec.md 4.6-4.7). v4Prefixes
// and v6Prefixes may each be nil.
func NewFromPrefixes(v4Prefixes []PrefixEntry, v6Prefixes []V6PrefixEntry) *Database {
	db := &Database{}

	if len(v4Prefixes) > 0 {
		b := trie.NewBuilder()
		for _, p := range v4Prefixes {
			b.Insert(p.PrefixLen, func(i int) byte { return ipaddr.BitV4(p.Address, i) }, p.ASN, p.OrgName)
		}
		db.v4Trie = b.Freeze()
	}

	if len(v6Prefixes) > 0 {
		b := trie.NewBuilder()
		for _, p := range v6Prefixes {
			addr := p.Address
			b.Insert(p.PrefixLen, func(i int) byte { return addr.Bit(i) }, p.ASN, p.OrgName)
		}
		db.v6Trie = b.Freeze()
	}

	return db
}

// PrefixEntry is one IPv4 CIDR insert for NewFromPrefixes.
type PrefixEntry struct {
	Address   uint32
	PrefixLen int
	ASN       uint32
	OrgName   string
}

// V6PrefixEntry is one IPv6 CIDR insert for NewFromPrefixes.
type V6PrefixEntry struct {
	Address   ipaddr.V6
	PrefixLen int
	ASN       uint32
	OrgName   string
}

// LookupV4 looks up a raw IPv4 address. It never fails: an address not
// covered by any range or prefix simply returns ok=false.
func (db *Database) LookupV4(ip uint32) (asn uint32, name string, ok bool) {
	if db.v4Table != nil {
		return db.v4Table.Lookup(ip)
	}
	if db.v4Trie != nil {
		return db.v4Trie.Lookup(32, func(i int) byte { return ipaddr.BitV4(ip, i) })
	}
	return 0, "", false
}

// LookupV4String parses s as a dotted-quad IPv4 address and looks it up. An
// unparseable string returns ok=false, never an error, per spec.md 7's
// "lookup never fails" contract.
func (db *Database) LookupV4String(s string) (asn uint32, name string, ok bool) {
	ip, err := ipaddr.ParseV4(s)
	if err != nil {
		return 0, "", false
	}
	return db.LookupV4(ip)
}

// LookupV6 looks up a raw IPv6 address against the trie path. It never fails.
func (db *Database) LookupV6(ip ipaddr.V6) (asn uint32, name string, ok bool) {
	if db.v6Trie == nil {
		return 0, "", false
	}
	return db.v6Trie.Lookup(128, func(i int) byte { return ip.Bit(i) })
}

// LookupV6String parses s as an IPv6 literal and looks it up.
func (db *Database) LookupV6String(s string) (asn uint32, name string, ok bool) {
	ip, err := ipaddr.ParseV6(s)
	if err != nil {
		return 0, "", false
	}
	return db.LookupV6(ip)
}

// EntryCount returns the number of ranges backing the IPv4 range table, or 0
// if this Database is trie-backed. O(1).
func (db *Database) EntryCount() int {
	if db.v4Table == nil {
		return 0
	}
	return db.v4Table.EntryCount()
}

// UniqueASNCount returns the number of distinct ASNs with a resolvable name
// in the IPv4 range table, or 0 if this Database is trie-backed. O(1).
func (db *Database) UniqueASNCount() int {
	if db.v4Table == nil {
		return 0
	}
	return db.v4Table.UniqueASNCount()
}
