// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides tracescope's CBOR encoding configuration.
//
// tracescope uses two serialization formats:
//
//   - JSON for CLI --json output.
//   - CBOR for correlation snapshots written by the export command.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same session always produces identical snapshot bytes.
//
// For buffers:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For streams (compressed snapshot files):
//
//	encoder := codec.NewEncoder(writer)
//	decoder := codec.NewDecoder(reader)
//
// Types that appear in both outputs carry `json` tags only:
// fxamacker/cbor v2 reads `json` tags when `cbor` tags are absent.
// Types implementing encoding.TextMarshaler (trace types, timestamp
// domains, blob digests) are encoded as text strings in both.
package codec
