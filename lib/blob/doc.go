// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package blob turns the file paths given to a load session into an
// ordered list of in-memory trace blobs.
//
// A path names either a trace file or a container. Containers (zip
// archives and gzip, zstd or lz4 streams) are expanded in place, so a
// zip holding three traces contributes three blobs at its position in
// the input order. Nested containers are expanded up to a fixed depth.
//
// Large plain files are memory-mapped read-only instead of copied onto
// the heap. The mappings belong to the returned [Set] and are released
// by [Set.Close]; blob data must not be used after that.
//
// Every blob carries a BLAKE3 keyed [Digest] of its bytes, shown in
// diagnostics and recorded in exported snapshots so a snapshot can be
// matched to the exact inputs it was computed from.
package blob
