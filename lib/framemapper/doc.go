// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package framemapper correlates the entries of independently captured
// traces through a shared frame clock.
//
// The most reliable loaded trace (the anchor) gets the identity
// mapping: entry i is frame i. Frame assignments then flow along a
// fixed pipeline, each step matching the entries of a destination
// trace to the already mapped entries of a source trace:
//
//	screen recording -> surface flinger     time window
//	surface flinger  -> transactions        vsync id join
//	transactions     -> window manager      interval buckets
//	window manager   -> protolog            half-open interval buckets
//	window manager   -> input method traces nearest entry, 200ms tolerance
//
// A step runs only when both traces are loaded and its source has
// frame info. Steps run in order and never revisit an earlier trace.
// Each destination's frame map is attached once, after it is fully
// built.
package framemapper
