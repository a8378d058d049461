// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package feed parses the iptoasn-style TSV range feed (spec.md 6.2):
// start_ip, end_ip, asn, country, org_name, tab-separated, one range per
// line. Unlike the teacher's parser this package does not expand each line
// into aligned CIDR blocks — the range table backing this database accepts
// arbitrary [start, end] pairs directly, so there is no need to quantize a
// feed line into power-of-two-aligned pieces.
package feed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"asndb/pkg/ipaddr"
)

// Error is a sentinel string error scoped to this package, mirroring the
// teacher pack's per-package error taxonomy (model.Error, ripebulk.Error):
// feed problems are a different concern from database-format problems and
// get their own small type rather than reusing asndb.Error.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrNotSorted is collected, not returned immediately, by Validate: a
	// feed that isn't sorted by start address can still be used by a caller
	// that sorts it first.
	ErrNotSorted Error = "feed: ranges are not sorted by start address"

	// ErrOverlap is collected by Validate when two ranges overlap.
	ErrOverlap Error = "feed: ranges overlap"
)

// Record is one parsed feed line.
type Record struct {
	Start   uint32
	End     uint32
	ASN     uint32
	Country string
	OrgName string
}

// Parser reads Records from the iptoasn TSV format. Malformed lines are
// skipped rather than treated as fatal, following the teacher's practice of
// tolerating noisy upstream feeds (pkg/iptoasn/parser.go accepts a lenient
// country field for the same reason); a line that fails to parse at all is
// dropped silently since feed.txt files in practice contain stray comment
// and blank lines the publisher never fully cleaned up.
type Parser struct {
	scanner *bufio.Scanner
	lineNum int
}

// NewParser returns a Parser reading from r.
func NewParser(r io.Reader) *Parser {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return &Parser{scanner: scanner}
}

// ParseAll reads every well-formed line from the underlying reader.
func (p *Parser) ParseAll() ([]Record, error) {
	var records []Record
	for {
		rec, ok, err := p.parseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (p *Parser) parseNext() (Record, bool, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return Record{}, false, fmt.Errorf("feed: scanner error at line %d: %w", p.lineNum, err)
		}
		return Record{}, false, io.EOF
	}
	p.lineNum++
	line := strings.TrimSpace(p.scanner.Text())

	if line == "" || strings.HasPrefix(line, "#") {
		return Record{}, false, nil
	}

	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return Record{}, false, nil
	}

	start, err := ipaddr.ParseV4(strings.TrimSpace(fields[0]))
	if err != nil {
		return Record{}, false, nil
	}
	end, err := ipaddr.ParseV4(strings.TrimSpace(fields[1]))
	if err != nil {
		return Record{}, false, nil
	}
	if start > end {
		return Record{}, false, nil
	}

	asnStr := strings.TrimSpace(fields[2])
	asnStr = strings.TrimPrefix(strings.ToUpper(asnStr), "AS")
	asn, err := strconv.ParseUint(asnStr, 10, 32)
	if err != nil {
		return Record{}, false, nil
	}

	var country, orgName string
	if len(fields) > 3 {
		country = strings.TrimSpace(fields[3])
	}
	if len(fields) > 4 {
		orgName = strings.TrimSpace(fields[4])
	}

	return Record{Start: start, End: end, ASN: uint32(asn), Country: country, OrgName: orgName}, true, nil
}

// Validate checks that records are sorted by Start and pairwise disjoint,
// returning every violation found rather than stopping at the first one —
// a build tool wants the full list of problems in one pass, not one error
// per invocation.
func Validate(records []Record) []error {
	var errs []error
	// far is the index of the earlier in-order record reaching furthest.
	far := 0
	for i := 1; i < len(records); i++ {
		if records[i].Start < records[i-1].Start {
			errs = append(errs, fmt.Errorf("%w: record %d (start %s) precedes record %d (start %s)",
				ErrNotSorted, i, ipaddr.FormatV4(records[i].Start), i-1, ipaddr.FormatV4(records[i-1].Start)))
			continue
		}
		if records[i].Start <= records[far].End {
			errs = append(errs, fmt.Errorf("%w: record %d [%s-%s] overlaps record %d [%s-%s]",
				ErrOverlap, i, ipaddr.FormatV4(records[i].Start), ipaddr.FormatV4(records[i].End),
				far, ipaddr.FormatV4(records[far].Start), ipaddr.FormatV4(records[far].End)))
		}
		if records[i].End > records[far].End {
			far = i
		}
	}
	return errs
}
