// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package varint

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, 268435455, 268435456, 0xFFFFFFFF}

	for _, v := range cases {
		encoded := Encode(v)
		offset := 0
		decoded, err := Decode(encoded, &offset)
		if err != nil {
			t.Fatalf("Decode(%d): %v", v, err)
		}
		if decoded != v {
			t.Errorf("got %d, want %d", decoded, v)
		}
		if offset != len(encoded) {
			t.Errorf("offset %d, want %d (full consumption)", offset, len(encoded))
		}
	}
}

func TestEncodeLength(t *testing.T) {
	cases := []struct {
		v    uint32
		want int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{0xFFFFFFFF, 5},
	}
	for _, c := range cases {
		got := len(Encode(c.v))
		if got != c.want {
			t.Errorf("Encode(%d): got length %d, want %d", c.v, got, c.want)
		}
	}
}

func TestAppendEncode(t *testing.T) {
	var buf []byte
	buf = AppendEncode(buf, 300)
	buf = AppendEncode(buf, 1)
	offset := 0
	first, err := Decode(buf, &offset)
	if err != nil || first != 300 {
		t.Fatalf("first value: got (%d, %v), want 300", first, err)
	}
	second, err := Decode(buf, &offset)
	if err != nil || second != 1 {
		t.Fatalf("second value: got (%d, %v), want 1", second, err)
	}
	if offset != len(buf) {
		t.Errorf("offset %d, want %d", offset, len(buf))
	}
}

func TestDecodeTruncated(t *testing.T) {
	buf := []byte{0x80, 0x80}
	offset := 0
	if _, err := Decode(buf, &offset); err == nil {
		t.Fatal("expected error for truncated buffer, got nil")
	}
	if offset != 0 {
		t.Errorf("offset should be unchanged on failure, got %d", offset)
	}
}

func TestDecodeOverflow(t *testing.T) {
	buf := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}
	offset := 0
	if _, err := Decode(buf, &offset); err == nil {
		t.Fatal("expected error for 6-byte varint, got nil")
	}
	if offset != 0 {
		t.Errorf("offset should be unchanged on failure, got %d", offset)
	}
}

func TestDecodeMidBuffer(t *testing.T) {
	buf := append([]byte{0xFF, 0xFF}, Encode(42)...)
	offset := 2
	v, err := Decode(buf, &offset)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v != 42 {
		t.Errorf("got %d, want 42", v)
	}
	if offset != len(buf) {
		t.Errorf("offset %d, want %d", offset, len(buf))
	}
}
