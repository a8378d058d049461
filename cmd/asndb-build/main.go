// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Command asndb-build parses a feed file (and optionally merges a MaxMind
// mmdb file) into one of the four on-disk range-table formats.
package main

import (
	"compress/gzip"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"asndb/pkg/buildpipe"
	"asndb/pkg/feed"
	"asndb/pkg/feed/maxmind"
	"asndb/pkg/rangetable"

	"asndb/pkg/altcodec"
	"asndb/pkg/ultracompact"
)

const version = "0.1.0"

type config struct {
	feedPath     string
	outPath      string
	format       string
	mergeMaxmind string
	compress     bool
	showVersion  bool
}

func parseFlags() *config {
	cfg := &config{}
	flag.StringVar(&cfg.feedPath, "feed", "", "Path to iptoasn-style TSV feed (required)")
	flag.StringVar(&cfg.outPath, "out", "", "Output database path (required)")
	flag.StringVar(&cfg.format, "format", "ultra", "Output format: ultra, ip2a, asn2, asnd")
	flag.StringVar(&cfg.mergeMaxmind, "merge-maxmind", "", "Optional MaxMind ASN mmdb file to merge in")
	flag.BoolVar(&cfg.compress, "compress", true, "Compress the ASN2 body (ignored for other formats)")
	flag.BoolVar(&cfg.showVersion, "version", false, "Show version")
	flag.Parse()

	if cfg.showVersion {
		fmt.Printf("asndb-build version %s\n", version)
		os.Exit(0)
	}
	if cfg.feedPath == "" || cfg.outPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: asndb-build -feed <path> -out <path> [-format ultra|ip2a|asn2|asnd] [-merge-maxmind <path>]")
		os.Exit(1)
	}
	return cfg
}

func main() {
	cfg := parseFlags()

	var (
		records   []feed.Record
		mmRecords []maxmind.Record
	)

	parseFeed := func(ctx context.Context) error {
		f, err := os.Open(cfg.feedPath)
		if err != nil {
			return fmt.Errorf("open feed: %w", err)
		}
		defer f.Close()

		var feedReader io.Reader = f
		if strings.HasSuffix(cfg.feedPath, ".gz") {
			gz, err := gzip.NewReader(f)
			if err != nil {
				return fmt.Errorf("open gzip feed: %w", err)
			}
			defer gz.Close()
			feedReader = gz
		}

		records, err = feed.NewParser(feedReader).ParseAll()
		if err != nil {
			return fmt.Errorf("parse feed: %w", err)
		}
		log.Printf("parsed %d feed records from %s", len(records), cfg.feedPath)
		return nil
	}

	// pkg/buildpipe parallelizes TSV aggregation against MaxMind network
	// iteration when both sources are in play: the two are independent
	// until the merge step below, and the MaxMind mmdb walk in particular
	// can take long enough on a large database to be worth overlapping
	// with the TSV parse rather than running it after.
	pool := buildpipe.NewPool(context.Background(), buildpipe.Config{Workers: 2})
	pool.Submit(0, parseFeed)
	if cfg.mergeMaxmind != "" {
		pool.Submit(1, func(ctx context.Context) error {
			var err error
			mmRecords, err = maxmind.Records(cfg.mergeMaxmind)
			return err
		})
	}
	for _, r := range pool.Wait() {
		if r.Error != nil {
			log.Fatalf("build pipeline task %d: %v", r.Index, r.Error)
		}
	}

	if cfg.mergeMaxmind != "" {
		log.Printf("merging %d records from %s", len(mmRecords), cfg.mergeMaxmind)
		for _, r := range mmRecords {
			records = append(records, feed.Record{Start: r.Start, End: r.End, ASN: r.ASN, OrgName: r.OrgName})
		}
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Start < records[j].Start })

	if problems := feed.Validate(records); len(problems) > 0 {
		for _, p := range problems {
			log.Printf("feed warning: %v", p)
		}
		log.Printf("%d overlap/ordering problems found; no records dropped, building with overlap-allowed lookup semantics", len(problems))
	}

	entries := make([]rangetable.Entry, len(records))
	names := make(map[uint32]string)
	for i, r := range records {
		entries[i] = rangetable.Entry{Start: r.Start, End: r.End, ASN: r.ASN}
		if r.OrgName != "" {
			names[r.ASN] = r.OrgName
		}
	}

	table, err := rangetable.New(entries, names, rangetable.WithOverlapAllowed())
	if err != nil {
		log.Fatalf("build range table: %v", err)
	}
	log.Printf("built range table: %d ranges, %d unique ASNs", table.EntryCount(), table.UniqueASNCount())

	out, err := os.Create(cfg.outPath)
	if err != nil {
		log.Fatalf("create output file: %v", err)
	}
	defer out.Close()

	switch cfg.format {
	case "ultra":
		err = ultracompact.Write(out, table)
	case "ip2a":
		err = altcodec.WriteIP2A(out, table)
	case "asn2":
		err = altcodec.WriteASN2(out, table, cfg.compress)
	case "asnd":
		err = altcodec.WriteASND(out, table)
	default:
		log.Fatalf("unknown format %q", cfg.format)
	}
	if err != nil {
		log.Fatalf("write %s: %v", cfg.format, err)
	}

	log.Printf("wrote %s database to %s", cfg.format, cfg.outPath)
}
