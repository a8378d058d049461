// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package altcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"asndb/pkg/rangetable"
)

// MagicASND is the little-endian magic number identifying the ASND format.
const MagicASND = 0x4153_4E44

const (
	asndVersion    = 1
	asndHeaderSize = 4 + 4 + 4 + 4 // magic, version, entry_count, string_table_offset
	asndEntrySize  = 4 + 4 + 4     // start, end, asn_packed
	asndASNMask    = 0x00FFFFFF    // top 8 bits reserved, must be zero on write
)

// ASNDEntry is a single decoded ASND range. Because the top 8 bits of the
// packed ASN field are reserved, ASND cannot represent an ASN above
// 0x00FFFFFF; WriteASND rejects any table holding one.
type ASNDEntry struct {
	Start uint32
	End   uint32
	ASN   uint32
}

// WriteASND serializes table in the fixed-width, uncompressed, IPv4-only ASND
// format. Names are kept out of the fixed 12-byte entry stride: they go into
// a trailing string table (LE32 count, then LE32 asn, LE32 name length and
// the name bytes per entry, in ascending ASN order) located by the header's
// string_table_offset. Entries carry no reference into that table; a name is
// found through the same asn->name relationship the other formats use (one
// name per distinct ASN, written once).
func WriteASND(w io.Writer, table *rangetable.Table) error {
	starts, ends, asns := table.Ranges()
	names := table.Names()

	for _, asn := range asns {
		if asn > asndASNMask {
			return fmt.Errorf("asnd: asn %d exceeds 24-bit field", asn)
		}
	}

	asnList := make([]uint32, 0, len(names))
	for asn := range names {
		asnList = append(asnList, asn)
	}
	sort.Slice(asnList, func(i, j int) bool { return asnList[i] < asnList[j] })

	var entries bytes.Buffer
	for i := range starts {
		writeLE32(&entries, starts[i])
		writeLE32(&entries, ends[i])
		writeLE32(&entries, asns[i]&asndASNMask)
	}

	stringTableOffset := uint32(asndHeaderSize + entries.Len())

	var strings_ bytes.Buffer
	writeLE32(&strings_, uint32(len(asnList)))
	for _, asn := range asnList {
		name := names[asn]
		writeLE32(&strings_, asn)
		writeLE32(&strings_, uint32(len(name)))
		strings_.WriteString(name)
	}

	var header bytes.Buffer
	writeLE32(&header, MagicASND)
	writeLE32(&header, asndVersion)
	writeLE32(&header, uint32(len(starts)))
	writeLE32(&header, stringTableOffset)

	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write(entries.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(strings_.Bytes())
	return err
}

// ReadASND parses an ASND byte stream.
func ReadASND(r io.Reader) ([]ASNDEntry, map[uint32]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	if len(data) < asndHeaderSize || binary.LittleEndian.Uint32(data[0:4]) != MagicASND {
		return nil, nil, ErrInvalidFormat
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version > asndVersion {
		return nil, nil, ErrUnsupportedVersion
	}
	entryCount := binary.LittleEndian.Uint32(data[8:12])
	stringTableOffset := binary.LittleEndian.Uint32(data[12:16])

	entries := make([]ASNDEntry, entryCount)
	pos := asndHeaderSize
	for i := uint32(0); i < entryCount; i++ {
		if pos+asndEntrySize > len(data) {
			return nil, nil, fmt.Errorf("%w: truncated entry table", ErrCorruptedData)
		}
		entries[i] = ASNDEntry{
			Start: binary.LittleEndian.Uint32(data[pos : pos+4]),
			End:   binary.LittleEndian.Uint32(data[pos+4 : pos+8]),
			ASN:   binary.LittleEndian.Uint32(data[pos+8:pos+12]) & asndASNMask,
		}
		pos += asndEntrySize
	}

	if int(stringTableOffset) > len(data) {
		return nil, nil, fmt.Errorf("%w: string table offset past end of buffer", ErrCorruptedData)
	}
	pos = int(stringTableOffset)
	if pos+4 > len(data) {
		return nil, nil, fmt.Errorf("%w: truncated string table", ErrCorruptedData)
	}
	nameCount := binary.LittleEndian.Uint32(data[pos : pos+4])
	pos += 4

	names := make(map[uint32]string, nameCount)
	for i := uint32(0); i < nameCount; i++ {
		if pos+8 > len(data) {
			return nil, nil, fmt.Errorf("%w: truncated string table entry", ErrCorruptedData)
		}
		asn := binary.LittleEndian.Uint32(data[pos : pos+4])
		nameLen := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		pos += 8
		if pos+int(nameLen) > len(data) {
			return nil, nil, fmt.Errorf("%w: name length past end of buffer", ErrCorruptedData)
		}
		names[asn] = string(data[pos : pos+int(nameLen)])
		pos += int(nameLen)
	}

	return entries, names, nil
}

func writeLE32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// LookupASND performs a binary-search point lookup against entries decoded
// from an ASND file.
func LookupASND(entries []ASNDEntry, ip uint32) (asn uint32, ok bool) {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Start > ip }) - 1
	if i < 0 || ip > entries[i].End {
		return 0, false
	}
	return entries[i].ASN, true
}
