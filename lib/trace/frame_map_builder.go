// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import "fmt"

// FrameMapBuilder accumulates the frame assignment of one destination
// trace during a propagation step. Every entry starts unmapped.
// A builder is not safe for concurrent use.
type FrameMapBuilder struct {
	lengthEntries int
	lengthFrames  int
	entryFrames   []FramesRange
	built         bool
}

// NewFrameMapBuilder returns a builder for a trace of lengthEntries
// entries whose frame indices stay below lengthFrames.
func NewFrameMapBuilder(lengthEntries, lengthFrames int) *FrameMapBuilder {
	if lengthEntries < 0 || lengthFrames < 0 {
		panic(fmt.Sprintf("trace: negative frame map size (entries=%d, frames=%d)", lengthEntries, lengthFrames))
	}
	return &FrameMapBuilder{
		lengthEntries: lengthEntries,
		lengthFrames:  lengthFrames,
		entryFrames:   make([]FramesRange, lengthEntries),
	}
}

// SetFrames assigns frames to the entry at absolute index entry,
// replacing any earlier assignment. An empty range clears the entry.
// Panics if entry or frames fall outside the sizes the builder was
// created with.
func (b *FrameMapBuilder) SetFrames(entry int, frames FramesRange) *FrameMapBuilder {
	if b.built {
		panic("trace: SetFrames called after Build")
	}
	if entry < 0 || entry >= b.lengthEntries {
		panic(fmt.Sprintf("trace: frame map entry %d out of bounds [0, %d)", entry, b.lengthEntries))
	}
	if frames.IsEmpty() {
		b.entryFrames[entry] = FramesRange{}
		return b
	}
	if frames.Start < 0 || frames.End > b.lengthFrames {
		panic(fmt.Sprintf("trace: %v exceeds frame bound %d", frames, b.lengthFrames))
	}
	b.entryFrames[entry] = frames
	return b
}

// Build finalizes the forward map and derives the reverse frame to
// entries buckets. The builder cannot be used afterwards.
func (b *FrameMapBuilder) Build() *FrameMap {
	if b.built {
		panic("trace: Build called twice")
	}
	b.built = true

	frameEntries := make([]EntriesRange, b.lengthFrames)
	for entry, frames := range b.entryFrames {
		if frames.IsEmpty() {
			continue
		}
		for frame := frames.Start; frame < frames.End; frame++ {
			bucket := &frameEntries[frame]
			if bucket.IsEmpty() {
				*bucket = EntriesRange{Start: entry, End: entry + 1}
				continue
			}
			bucket.Start = min(bucket.Start, entry)
			bucket.End = max(bucket.End, entry+1)
		}
	}

	frameMap := &FrameMap{
		lengthEntries: b.lengthEntries,
		lengthFrames:  b.lengthFrames,
		entryFrames:   b.entryFrames,
		frameEntries:  frameEntries,
	}
	frameMap.entryUnion = newRangeUnion(b.lengthEntries, func(i int) (int, int) {
		return b.entryFrames[i].Start, b.entryFrames[i].End
	})
	frameMap.frameUnion = newRangeUnion(b.lengthFrames, func(i int) (int, int) {
		return frameEntries[i].Start, frameEntries[i].End
	})
	b.entryFrames = nil
	return frameMap
}
