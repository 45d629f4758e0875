// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for tracescope
// packages.
//
// [ProtoTrace] writes synthetic protobuf-wire trace files field by
// field with protowire, so parser and session tests exercise the same
// byte layout a device produces without checked-in binary fixtures.
// [ScreenRecording] and [LegacyScreenRecording] do the same for the
// MPEG-4 recordings and their embedded frame timestamp block.
//
// [MemoryParser] is an in-memory trace.Parser for tests of packages
// that sit above the parsers (frame mapping, sessions, export); it lets
// a test describe a trace as a list of timestamps and entry values.
//
// [RequirePanics] and [RequireErrorIs] encapsulate the two assertions
// every package needs for the error policy: programmer errors panic,
// everything else returns a sentinel-wrapped error.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package depends only on lib/trace and lib/timestamp, never on
// the parsers, so parser tests can use it.
package testutil
