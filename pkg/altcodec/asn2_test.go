// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package altcodec

import (
	"bytes"
	"testing"

	"asndb/pkg/rangetable"
)

func buildASN2TestTable(t *testing.T) *rangetable.Table {
	t.Helper()
	entries := []rangetable.Entry{
		{Start: 10, End: 20, ASN: 100},
		{Start: 30, End: 40, ASN: 200},
	}
	names := map[uint32]string{100: "Alpha Networks", 200: "Beta Corp"}
	table, err := rangetable.New(entries, names)
	if err != nil {
		t.Fatalf("rangetable.New: %v", err)
	}
	return table
}

func TestASN2RoundTripUncompressed(t *testing.T) {
	table := buildASN2TestTable(t)

	var buf bytes.Buffer
	if err := WriteASN2(&buf, table, false); err != nil {
		t.Fatalf("WriteASN2: %v", err)
	}

	entries, names, err := ReadASN2(&buf)
	if err != nil {
		t.Fatalf("ReadASN2: %v", err)
	}
	checkASN2Roundtrip(t, table, entries, names)
}

func TestASN2RoundTripCompressed(t *testing.T) {
	table := buildASN2TestTable(t)

	var buf bytes.Buffer
	if err := WriteASN2(&buf, table, true); err != nil {
		t.Fatalf("WriteASN2: %v", err)
	}

	entries, names, err := ReadASN2(&buf)
	if err != nil {
		t.Fatalf("ReadASN2: %v", err)
	}
	checkASN2Roundtrip(t, table, entries, names)
}

func checkASN2Roundtrip(t *testing.T, table *rangetable.Table, entries []ASN2Entry, names map[uint32]string) {
	t.Helper()
	starts, ends, asns := table.Ranges()
	if len(entries) != len(starts) {
		t.Fatalf("got %d entries, want %d", len(entries), len(starts))
	}
	for i, e := range entries {
		if e.Start != starts[i] || e.End != ends[i] || e.ASN != asns[i] {
			t.Errorf("entry %d = %+v", i, e)
		}
	}
	for asn, name := range table.Names() {
		if names[asn] != name {
			t.Errorf("names[%d] = %q, want %q", asn, names[asn], name)
		}
	}
}

func TestASN2HeaderAlwaysUncompressed(t *testing.T) {
	table := buildASN2TestTable(t)
	var buf bytes.Buffer
	if err := WriteASN2(&buf, table, true); err != nil {
		t.Fatalf("WriteASN2: %v", err)
	}
	raw := buf.Bytes()
	if len(raw) < asn2HeaderSize {
		t.Fatalf("output too short: %d bytes", len(raw))
	}
	if raw[0] != 0x41 || raw[1] != 0x53 || raw[2] != 0x4e || raw[3] != 0x32 {
		t.Error("header magic is not readable uncompressed at offset 0")
	}
}

func TestReadASN2RejectsBadMagic(t *testing.T) {
	if _, _, err := ReadASN2(bytes.NewReader(make([]byte, 20))); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLookupASN2(t *testing.T) {
	table := buildASN2TestTable(t)
	var buf bytes.Buffer
	if err := WriteASN2(&buf, table, false); err != nil {
		t.Fatalf("WriteASN2: %v", err)
	}
	entries, _, err := ReadASN2(&buf)
	if err != nil {
		t.Fatalf("ReadASN2: %v", err)
	}
	if asn, ok := LookupASN2(entries, 15); !ok || asn != 100 {
		t.Errorf("LookupASN2(15) = (%d, %v), want (100, true)", asn, ok)
	}
	if _, ok := LookupASN2(entries, 25); ok {
		t.Error("LookupASN2(25) should miss the gap between ranges")
	}
}
