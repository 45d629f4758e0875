// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package trace provides random-access, time-ordered views over decoded
// trace files and the frame maps that correlate them.
//
// A [Parser] owns the decoded records of one trace file and exposes one
// timestamp per record for each clock domain it supports. [New] wraps a
// parser in a full [Trace]; [Trace.Init] finalizes it with the clock
// domain the load session settled on. From there every query
// (SliceEntries, SliceTime, FindClosestEntry, ...) produces lightweight
// views that share the parser and the full trace.
//
// # Index spaces
//
// Entry indices handed to [Trace.Entry] and [Trace.SliceEntries] are
// relative to the slice and may be negative (counting from the slice
// end). Indices returned by [Entry.Index] are absolute indices into the
// full trace. Frame indices are always absolute.
//
// # Frames
//
// A [FrameMap], built with a [FrameMapBuilder], maps every entry of a
// full trace to a half-open [FramesRange] and every frame back to an
// [EntriesRange]. The map is attached once to the full trace by
// [Trace.SetFrameInfo]; all slices, including ones created before the
// map was attached, observe the same map through the full trace.
//
// # Error policy
//
// Range-producing operations clamp to the slice bounds and degrade to
// empty ranges. Direct entry access through [Trace.Entry] panics when
// the index is out of bounds, because that is a programming error;
// [Trace.EntryChecked] is the error-returning form for indices that
// come from user input. Querying with a timestamp domain the parser
// does not support returns [timestamp.ErrDomainMismatch]; frame-domain
// queries on a trace without a frame map return [ErrNoFrameInfo].
package trace
