// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot exports the frame correlation of a load session.
//
// A [Snapshot] lists every loaded trace with its source files (name and
// BLAKE3 digest), each entry's timestamp and the frames the entry was
// mapped to, and the files the session rejected. It is encoded as
// deterministic CBOR via lib/codec, optionally wrapped in a zstd or
// LZ4 stream.
//
// Snapshots are an output for other tools. tracescope never loads
// them back as trace input; [Read] exists for consumers and tests.
package snapshot
