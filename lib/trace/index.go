// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"fmt"

	"github.com/PixelExperience/development/lib/timestamp"
)

// EntriesRange is a half-open interval [Start, End) of absolute entry
// indices. Start <= End always holds; the range is empty when they are
// equal.
type EntriesRange struct {
	Start int `json:"start" cbor:"start"`
	End   int `json:"end" cbor:"end"`
}

// Len returns the number of entries in the range.
func (r EntriesRange) Len() int { return r.End - r.Start }

// IsEmpty reports whether the range contains no entries.
func (r EntriesRange) IsEmpty() bool { return r.Start >= r.End }

// Contains reports whether index lies in [Start, End).
func (r EntriesRange) Contains(index int) bool { return index >= r.Start && index < r.End }

func (r EntriesRange) String() string { return fmt.Sprintf("entries[%d, %d)", r.Start, r.End) }

// FramesRange is a half-open interval [Start, End) of absolute frame
// indices.
type FramesRange struct {
	Start int `json:"start" cbor:"start"`
	End   int `json:"end" cbor:"end"`
}

// Len returns the number of frames in the range.
func (r FramesRange) Len() int { return r.End - r.Start }

// IsEmpty reports whether the range contains no frames.
func (r FramesRange) IsEmpty() bool { return r.Start >= r.End }

// Contains reports whether frame lies in [Start, End).
func (r FramesRange) Contains(frame int) bool { return frame >= r.Start && frame < r.End }

// Union returns the smallest range covering both r and other. An empty
// operand is ignored.
func (r FramesRange) Union(other FramesRange) FramesRange {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return FramesRange{Start: min(r.Start, other.Start), End: max(r.End, other.End)}
}

func (r FramesRange) String() string { return fmt.Sprintf("frames[%d, %d)", r.Start, r.End) }

// At returns a pointer to index, for the optional bounds of
// [Trace.SliceEntries] and [Trace.SliceFrames].
func At(index int) *int { return &index }

// TimeAt returns a pointer to ts, for the optional bounds of
// [Trace.SliceTime].
func TimeAt(ts timestamp.Timestamp) *timestamp.Timestamp { return &ts }
