// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package altcodec

import (
	"bytes"
	"testing"

	"asndb/pkg/rangetable"
)

func TestASNDRoundTrip(t *testing.T) {
	entries := []rangetable.Entry{
		{Start: 10, End: 20, ASN: 100},
		{Start: 30, End: 40, ASN: 200},
	}
	names := map[uint32]string{100: "Alpha Networks", 200: "Beta Corp"}
	table, err := rangetable.New(entries, names)
	if err != nil {
		t.Fatalf("rangetable.New: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteASND(&buf, table); err != nil {
		t.Fatalf("WriteASND: %v", err)
	}

	gotEntries, gotNames, err := ReadASND(&buf)
	if err != nil {
		t.Fatalf("ReadASND: %v", err)
	}
	if len(gotEntries) != 2 {
		t.Fatalf("got %d entries, want 2", len(gotEntries))
	}
	if gotEntries[0].Start != 10 || gotEntries[0].End != 20 || gotEntries[0].ASN != 100 {
		t.Errorf("entry 0 = %+v", gotEntries[0])
	}
	if gotNames[100] != "Alpha Networks" {
		t.Errorf("names[100] = %q", gotNames[100])
	}
}

func TestWriteASNDRejectsOversizedASN(t *testing.T) {
	entries := []rangetable.Entry{{Start: 1, End: 2, ASN: 0x01000000}}
	table, err := rangetable.New(entries, nil)
	if err != nil {
		t.Fatalf("rangetable.New: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteASND(&buf, table); err == nil {
		t.Fatal("expected error for ASN exceeding 24-bit field, got nil")
	}
}

func TestASNDReservedBitsMasked(t *testing.T) {
	entries := []rangetable.Entry{{Start: 1, End: 2, ASN: 0x00ABCDEF}}
	table, err := rangetable.New(entries, nil)
	if err != nil {
		t.Fatalf("rangetable.New: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteASND(&buf, table); err != nil {
		t.Fatalf("WriteASND: %v", err)
	}
	raw := buf.Bytes()
	raw[asndHeaderSize+11] = 0xFF // set the reserved top byte of entry 0's asn_packed field
	gotEntries, _, err := ReadASND(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadASND: %v", err)
	}
	if gotEntries[0].ASN != 0x00ABCDEF {
		t.Errorf("got ASN %#x, want %#x", gotEntries[0].ASN, 0x00ABCDEF)
	}
}

func TestLookupASND(t *testing.T) {
	entries := []rangetable.Entry{
		{Start: 10, End: 20, ASN: 100},
		{Start: 30, End: 40, ASN: 200},
	}
	table, err := rangetable.New(entries, nil)
	if err != nil {
		t.Fatalf("rangetable.New: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteASND(&buf, table); err != nil {
		t.Fatalf("WriteASND: %v", err)
	}
	gotEntries, _, err := ReadASND(&buf)
	if err != nil {
		t.Fatalf("ReadASND: %v", err)
	}
	if asn, ok := LookupASND(gotEntries, 35); !ok || asn != 200 {
		t.Errorf("LookupASND(35) = (%d, %v), want (200, true)", asn, ok)
	}
	if _, ok := LookupASND(gotEntries, 25); ok {
		t.Error("LookupASND(25) should miss the gap between ranges")
	}
}

func TestReadASNDRejectsBadMagic(t *testing.T) {
	if _, _, err := ReadASND(bytes.NewReader(make([]byte, 20))); err == nil {
		t.Fatal("expected error, got nil")
	}
}
