// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Command asndb-lookup queries a built database for one or more IP
// addresses.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"asndb/pkg/asndb"
)

const version = "0.1.0"

type config struct {
	dbPath      string
	stats       bool
	json        bool
	showVersion bool
}

func parseFlags() (*config, []string) {
	cfg := &config{}
	flag.StringVar(&cfg.dbPath, "db", "", "Database path (required)")
	flag.BoolVar(&cfg.stats, "stats", false, "Print database statistics instead of looking up IPs")
	flag.BoolVar(&cfg.json, "json", false, "Output as JSON")
	flag.BoolVar(&cfg.showVersion, "version", false, "Show version")
	flag.Parse()

	if cfg.showVersion {
		fmt.Printf("asndb-lookup version %s\n", version)
		os.Exit(0)
	}
	if cfg.dbPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: asndb-lookup -db <path> [-stats] [-json] <ip> [<ip> ...]")
		os.Exit(1)
	}
	return cfg, flag.Args()
}

type lookupResult struct {
	IP    string `json:"ip"`
	ASN   uint32 `json:"asn,omitempty"`
	Name  string `json:"name,omitempty"`
	Found bool   `json:"found"`
}

func main() {
	cfg, ips := parseFlags()

	db, err := asndb.Load(cfg.dbPath)
	if err != nil {
		log.Fatalf("load database: %v", err)
	}

	if cfg.stats {
		printStats(db, cfg.json)
		return
	}

	if len(ips) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one IP address is required")
		os.Exit(1)
	}

	results := make([]lookupResult, 0, len(ips))
	for _, ip := range ips {
		var asn uint32
		var name string
		var ok bool
		if strings.Contains(ip, ":") {
			asn, name, ok = db.LookupV6String(ip)
		} else {
			asn, name, ok = db.LookupV4String(ip)
		}
		results = append(results, lookupResult{IP: ip, ASN: asn, Name: name, Found: ok})
	}

	if cfg.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			log.Fatalf("encode JSON: %v", err)
		}
		return
	}

	for _, r := range results {
		if !r.Found {
			fmt.Printf("%s\tnot found\n", r.IP)
			continue
		}
		fmt.Printf("%s\tAS%d\t%s\n", r.IP, r.ASN, r.Name)
	}
}

func printStats(db *asndb.Database, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(map[string]int{
			"entry_count":      db.EntryCount(),
			"unique_asn_count": db.UniqueASNCount(),
		})
		return
	}
	fmt.Printf("entries: %d\n", db.EntryCount())
	fmt.Printf("unique ASNs: %d\n", db.UniqueASNCount())
}
