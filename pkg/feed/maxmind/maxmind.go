// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package maxmind adapts a local GeoLite2-ASN/GeoIP2-ISP .mmdb file into the
// same feed.Record shape pkg/feed produces from a TSV file, so the build
// pipeline can merge either source into one range table. This stays firmly
// on the offline side of the line the teacher's pkg/sources/maxmind crossed
// in the other direction (that package also drove live geo/city lookups);
// here the .mmdb is read once, locally, at build time — there is no runtime
// network call, matching spec.md 1's "no online queries" non-goal.
package maxmind

import (
	"fmt"
	"net"

	"github.com/oschwald/maxminddb-golang"

	"asndb/pkg/ipaddr"
)

// asnRecord matches the field layout of MaxMind's GeoLite2-ASN database.
type asnRecord struct {
	AutonomousSystemNumber       uint32 `maxminddb:"autonomous_system_number"`
	AutonomousSystemOrganization string `maxminddb:"autonomous_system_organization"`
}

// Record is one network block read out of the mmdb file, already reduced to
// the same (start, end, asn, name) shape as feed.Record.
type Record struct {
	Start   uint32
	End     uint32
	ASN     uint32
	OrgName string
}

// Records opens the mmdb file at path and returns one Record per IPv4
// network it contains, in the file's natural iteration order (not
// necessarily sorted — callers should sort before handing the result to
// rangetable.New). IPv6 networks are skipped: the on-disk range formats this
// database builds are IPv4-only (spec.md 3), IPv6 lookups go through the
// trie path built from a separate CIDR source.
func Records(path string) ([]Record, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("maxmind: open %s: %w", path, err)
	}
	defer reader.Close()

	var records []Record
	networks := reader.Networks()
	for networks.Next() {
		var rec asnRecord
		subnet, err := networks.Network(&rec)
		if err != nil {
			continue
		}
		ip4 := subnet.IP.To4()
		if ip4 == nil {
			continue
		}
		ones, bits := subnet.Mask.Size()
		if bits != 32 {
			continue
		}
		start := ipToUint32(ip4)
		end := start + (uint32(1)<<(32-ones) - 1)
		if rec.AutonomousSystemNumber == 0 {
			continue
		}
		records = append(records, Record{
			Start:   start,
			End:     end,
			ASN:     rec.AutonomousSystemNumber,
			OrgName: rec.AutonomousSystemOrganization,
		})
	}
	if err := networks.Err(); err != nil {
		return nil, fmt.Errorf("maxmind: iterate %s: %w", path, err)
	}
	return records, nil
}

func ipToUint32(ip net.IP) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

// FormatV4 is re-exported for callers building diagnostic output without
// importing pkg/ipaddr directly.
var FormatV4 = ipaddr.FormatV4
