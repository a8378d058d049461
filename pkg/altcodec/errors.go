// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package altcodec

import "fmt"

// Errors shared by the IP2A, ASN2, and ASND readers (spec.md 7). Every reader
// in this package rejects a file whose magic does not match its expected
// constant with ErrInvalidFormat.
var (
	ErrInvalidFormat       = fmt.Errorf("altcodec: invalid format")
	ErrCorruptedData       = fmt.Errorf("altcodec: corrupted data")
	ErrUnsupportedVersion  = fmt.Errorf("altcodec: unsupported version")
	ErrDecompressionFailed = fmt.Errorf("altcodec: decompression failed")
)
