// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package altcodec

import (
	"bytes"
	"compress/zlib"
	"testing"

	"asndb/pkg/rangetable"
)

func buildIP2ATestTable(t *testing.T) *rangetable.Table {
	t.Helper()
	entries := []rangetable.Entry{
		{Start: 10, End: 20, ASN: 100},
		{Start: 21, End: 21, ASN: 64512},
		{Start: 1000, End: 5000, ASN: 7018},
	}
	table, err := rangetable.New(entries, nil)
	if err != nil {
		t.Fatalf("rangetable.New: %v", err)
	}
	return table
}

func TestIP2ARoundTrip(t *testing.T) {
	table := buildIP2ATestTable(t)

	var buf bytes.Buffer
	if err := WriteIP2A(&buf, table); err != nil {
		t.Fatalf("WriteIP2A: %v", err)
	}

	entries, err := ReadIP2A(&buf)
	if err != nil {
		t.Fatalf("ReadIP2A: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	starts, ends, asns := table.Ranges()
	for i, e := range entries {
		if e.Start != starts[i] || e.End != ends[i] || e.ASN != asns[i] {
			t.Errorf("entry %d = %+v, want start=%d end=%d asn=%d", i, e, starts[i], ends[i], asns[i])
		}
	}
}

func TestLookupIP2A(t *testing.T) {
	table := buildIP2ATestTable(t)
	var buf bytes.Buffer
	if err := WriteIP2A(&buf, table); err != nil {
		t.Fatalf("WriteIP2A: %v", err)
	}
	entries, err := ReadIP2A(&buf)
	if err != nil {
		t.Fatalf("ReadIP2A: %v", err)
	}

	cases := []struct {
		ip      uint32
		wantASN uint32
		wantOK  bool
	}{
		{9, 0, false},
		{10, 100, true},
		{21, 64512, true},
		{22, 0, false},
		{3000, 7018, true},
		{5001, 0, false},
	}
	for _, c := range cases {
		asn, ok := LookupIP2A(entries, c.ip)
		if ok != c.wantOK || asn != c.wantASN {
			t.Errorf("LookupIP2A(%d) = (%d, %v), want (%d, %v)", c.ip, asn, ok, c.wantASN, c.wantOK)
		}
	}
}

func TestReadIP2ARejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write([]byte("XXXX\x01\x00\x00\x00\x00\x00\x00\x00"))
	zw.Close()
	if _, err := ReadIP2A(&buf); err == nil {
		t.Fatal("expected error, got nil")
	}
}
