// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Command asndb-update keeps a built database file current by polling the
// upstream feed on an interval (or once, for cron-driven use) and rebuilding
// when the feed has changed.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"asndb/pkg/buildpipe"
	"asndb/pkg/feed"
	"asndb/pkg/fetch"
	"asndb/pkg/rangetable"
	"asndb/pkg/ultracompact"
	"asndb/pkg/updatecache"
)

const version = "0.1.0"

type config struct {
	dbPath      string
	cacheDir    string
	sourceURL   string
	once        bool
	interval    time.Duration
	showVersion bool
}

func parseFlags() *config {
	cfg := &config{}
	flag.StringVar(&cfg.dbPath, "db", "", "Database file to keep updated (required)")
	flag.StringVar(&cfg.cacheDir, "cache", "", "LevelDB cache directory for update bookkeeping (required)")
	flag.StringVar(&cfg.sourceURL, "source", "", "Upstream feed URL (required)")
	flag.BoolVar(&cfg.once, "once", false, "Run a single update check and exit")
	flag.DurationVar(&cfg.interval, "interval", time.Hour, "Polling interval when not using -once")
	flag.BoolVar(&cfg.showVersion, "version", false, "Show version")
	flag.Parse()

	if cfg.showVersion {
		fmt.Printf("asndb-update version %s\n", version)
		os.Exit(0)
	}
	if cfg.dbPath == "" || cfg.cacheDir == "" || cfg.sourceURL == "" {
		fmt.Fprintln(os.Stderr, "Usage: asndb-update -db <path> -cache <dir> -source <url> [-once] [-interval <dur>]")
		os.Exit(1)
	}
	return cfg
}

func main() {
	cfg := parseFlags()

	cache, err := updatecache.Open(cfg.cacheDir)
	if err != nil {
		log.Fatalf("open update cache: %v", err)
	}
	defer cache.Close()

	fetcher := fetch.NewFetcher(cfg.sourceURL)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The ticker already paces polling at cfg.interval; the pool's rate
	// limiter is a second, independent cap (burst of 1 at 1/interval) so
	// ticker drift can't drive the upstream source faster than the
	// configured interval allows. The limiter lives in this process only: it
	// does not pace separate -once invocations.
	pool := buildpipe.NewPool(ctx, buildpipe.Config{
		Workers:   1,
		RateLimit: 1 / cfg.interval.Seconds(),
		BurstSize: 1,
	})
	defer pool.Stop()

	runOnce := func() error {
		return pool.RunOne(ctx, func(ctx context.Context) error {
			return updateOnce(ctx, cfg, cache, fetcher)
		})
	}

	if cfg.once {
		if err := runOnce(); err != nil {
			log.Fatalf("update failed: %v", err)
		}
		return
	}

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	if err := runOnce(); err != nil {
		log.Printf("update failed: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			log.Printf("shutting down")
			return
		case <-ticker.C:
			if err := runOnce(); err != nil {
				log.Printf("update failed: %v", err)
			}
		}
	}
}

func updateOnce(ctx context.Context, cfg *config, cache *updatecache.Cache, fetcher *fetch.Fetcher) error {
	state, err := cache.Load()
	if err != nil {
		return fmt.Errorf("load cache state: %w", err)
	}

	result, err := fetcher.Fetch(ctx, state.FetchMetadata())
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	if result.NotModified {
		log.Printf("feed unchanged since last fetch (etag=%s)", state.ETag)
		return nil
	}
	defer result.Body.Close()

	raw, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read feed body: %w", err)
	}

	records, err := feed.NewParser(bytes.NewReader(raw)).ParseAll()
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Start < records[j].Start })
	log.Printf("fetched and parsed %d records", len(records))

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
		return fmt.Errorf("build range table: %w", err)
	}

	tmpPath := cfg.dbPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp db file: %w", err)
	}
	if err := ultracompact.Write(out, table); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write db: %w", err)
	}
	out.Close()
	if err := os.Rename(tmpPath, cfg.dbPath); err != nil {
		return fmt.Errorf("rename temp db file: %w", err)
	}

	if err := cache.SaveRawFeed(raw); err != nil {
		log.Printf("warning: failed to cache raw feed bytes: %v", err)
	}

	state.ETag = result.Meta.ETag
	state.LastModified = result.Meta.LastModified
	state.CurrentDBPath = cfg.dbPath
	state.Generation++
	state.LastFetchedAt = time.Now()
	if err := cache.Save(state); err != nil {
		return fmt.Errorf("save cache state: %w", err)
	}

	log.Printf("rebuilt %s (generation %d, %d ranges)", cfg.dbPath, state.Generation, table.EntryCount())
	return nil
}
