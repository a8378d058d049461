// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package ipaddr

import "testing"

func TestParseV4RoundTrip(t *testing.T) {
	cases := []string{"0.0.0.0", "255.255.255.255", "192.168.1.1", "10.0.0.255", "1.2.3.4"}
	for _, s := range cases {
		ip, err := ParseV4(s)
		if err != nil {
			t.Fatalf("ParseV4(%q): %v", s, err)
		}
		if got := FormatV4(ip); got != s {
			t.Errorf("FormatV4(ParseV4(%q)) = %q", s, got)
		}
	}
}

func TestParseV4Invalid(t *testing.T) {
	cases := []string{
		"",
		"1.2.3",
		"1.2.3.4.5",
		"256.0.0.0",
		"1.2.3.04d",
		"1.2.3.-4",
		"1..2.3",
		"1.2.3.",
		".1.2.3",
		"1.2.3.4 ",
		"0x1.2.3.4",
		"1.2.3.4444",
	}
	for _, s := range cases {
		if _, err := ParseV4(s); err == nil {
			t.Errorf("ParseV4(%q): expected error, got none", s)
		}
	}
}

func TestParseV4LeadingZeros(t *testing.T) {
	// Leading zeros within an octet are accepted as plain decimal digits;
	// the parser does not special-case octal.
	ip, err := ParseV4("010.0.0.1")
	if err != nil {
		t.Fatalf("ParseV4: %v", err)
	}
	if ip != 10<<24|1 {
		t.Errorf("got %d", ip)
	}
}

func TestBitV4(t *testing.T) {
	ip, _ := ParseV4("128.0.0.1")
	if BitV4(ip, 0) != 1 {
		t.Error("bit 0 should be set for 128.x.x.x")
	}
	if BitV4(ip, 1) != 0 {
		t.Error("bit 1 should be clear for 128.x.x.x")
	}
	if BitV4(ip, 31) != 1 {
		t.Error("bit 31 should be set for x.x.x.1")
	}
}

func TestParseV6RoundTrip(t *testing.T) {
	cases := []string{
		"2001:0db8:0000:0000:0000:0000:0000:0001",
		"0000:0000:0000:0000:0000:0000:0000:0000",
		"ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff",
	}
	for _, s := range cases {
		ip, err := ParseV6(s)
		if err != nil {
			t.Fatalf("ParseV6(%q): %v", s, err)
		}
		if got := FormatV6(ip); got != s {
			t.Errorf("FormatV6(ParseV6(%q)) = %q", s, got)
		}
	}
}

func TestParseV6Compression(t *testing.T) {
	cases := []struct {
		compressed, full string
	}{
		{"::1", "0000:0000:0000:0000:0000:0000:0000:0001"},
		{"2001:db8::1", "2001:0db8:0000:0000:0000:0000:0000:0001"},
		{"::", "0000:0000:0000:0000:0000:0000:0000:0000"},
		{"fe80::1", "fe80:0000:0000:0000:0000:0000:0000:0001"},
	}
	for _, c := range cases {
		ip, err := ParseV6(c.compressed)
		if err != nil {
			t.Fatalf("ParseV6(%q): %v", c.compressed, err)
		}
		if got := FormatV6(ip); got != c.full {
			t.Errorf("ParseV6(%q): got %q, want %q", c.compressed, got, c.full)
		}
	}
}

func TestParseV6Invalid(t *testing.T) {
	cases := []string{
		"",
		"not-an-ip",
		"1:2:3:4:5:6:7:8:9",
		"1:2:3::4:5:6:7:8:9",
		"gggg::1",
		"1:2:3",
		"12345::1",
	}
	for _, s := range cases {
		if _, err := ParseV6(s); err == nil {
			t.Errorf("ParseV6(%q): expected error, got none", s)
		}
	}
}

func TestV6Bit(t *testing.T) {
	ip, err := ParseV6("8000::")
	if err != nil {
		t.Fatalf("ParseV6: %v", err)
	}
	if ip.Bit(0) != 1 {
		t.Error("bit 0 should be set for 8000::")
	}
	if ip.Bit(1) != 0 {
		t.Error("bit 1 should be clear for 8000::")
	}
}
