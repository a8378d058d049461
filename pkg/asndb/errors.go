// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

package asndb

// Error is a sentinel string error, following the teacher pack's idiom
// (model.Error in the originating repo) of small string-based error types
// instead of a custom struct hierarchy: easy to compare with errors.Is,
// cheap to declare per failure mode.
type Error string

func (e Error) Error() string { return string(e) }

// The taxonomy spec.md 7 requires callers be able to distinguish.
const (
	// ErrInvalidAddress: an IPv4 or IPv6 string failed to parse. No function
	// in this module returns it: pkg/ipaddr reports parse failures with its
	// own *ipaddr.ErrInvalidAddress type, and LookupV4String/LookupV6String
	// fold a parse failure into a (0, "", false) result rather than
	// propagating it, per spec.md 7's "lookup never fails" contract.
	ErrInvalidAddress Error = "asndb: invalid address"

	// ErrInvalidFormat: magic bytes didn't match any recognized codec, or
	// header fields are self-inconsistent, or claimed counts exceed
	// available bytes.
	ErrInvalidFormat Error = "asndb: invalid format"

	// ErrCorruptedData: a varint overflowed 32 bits, a name length pointed
	// past the end of the buffer, or a name's UTF-8 could not be decoded
	// non-recoverably.
	ErrCorruptedData Error = "asndb: corrupted data"

	// ErrUnsupportedVersion: the file's version field is newer than this
	// reader knows how to parse.
	ErrUnsupportedVersion Error = "asndb: unsupported version"

	// ErrDecompressionFailed: zlib returned a non-positive output length
	// after the retry budget was exhausted.
	ErrDecompressionFailed Error = "asndb: decompression failed"

	// ErrIoError: a pass-through failure from the byte-source collaborator.
	ErrIoError Error = "asndb: io error"
)
