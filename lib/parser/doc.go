// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package parser turns trace blobs into [trace.Parser] values.
//
// Each supported file format is a [Variant]: a name, the trace type it
// produces, and a Decode function that rejects anything not in its
// format. The set of variants is closed; [DefaultVariants] lists them
// in the priority order a [Selector] tries them.
//
// Protobuf trace files are decoded at the wire level with protowire.
// Decode validates the whole stream and records, per entry, the bytes
// of the entry message and its timestamps; the properties of an entry
// are decoded again on every [trace.Parser] Entry call into a
// [*Record]. Parsers keep sub-slices of the blob they were decoded
// from, so the blob's memory (possibly a file mapping) must outlive
// them.
//
// The [Selector] assigns blobs to variants. It never fails on bad
// input: format and duplicate problems come back as [*Error] values
// next to the accepted parsers.
package parser
