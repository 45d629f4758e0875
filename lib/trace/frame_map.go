// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

// FrameMap is the immutable, bidirectional mapping between the entries
// of one full trace and the shared frame index space. Build one with a
// [FrameMapBuilder].
//
// Range queries return the union of the per-element ranges inside the
// query. Frame assignments need not grow with the entry index: a
// correlation-id join can give an early entry later frames than a
// later entry.
type FrameMap struct {
	lengthEntries int
	lengthFrames  int

	// entryFrames[i] is the frame range of entry i; empty if unmapped.
	entryFrames []FramesRange

	// frameEntries[f] is the range spanning every entry that touches
	// frame f; empty if no entry does.
	frameEntries []EntriesRange

	// Unions over runs of entryFrames and frameEntries.
	entryUnion rangeUnion
	frameUnion rangeUnion
}

// LengthEntries returns the number of entries the map was built for.
// It must equal the entry count of the full trace it is attached to.
func (m *FrameMap) LengthEntries() int { return m.lengthEntries }

// LengthFrames returns the declared upper bound on frame indices.
func (m *FrameMap) LengthFrames() int { return m.lengthFrames }

// EntryFrames returns the frame range assigned to a single entry, or
// false if the entry is unmapped or out of range.
func (m *FrameMap) EntryFrames(entry int) (FramesRange, bool) {
	if entry < 0 || entry >= m.lengthEntries {
		return FramesRange{}, false
	}
	frames := m.entryFrames[entry]
	return frames, !frames.IsEmpty()
}

// FramesRange returns the frames covered by the mapped entries inside
// entries, or false if no entry in the (clamped) range is mapped.
func (m *FrameMap) FramesRange(entries EntriesRange) (FramesRange, bool) {
	start := clamp(entries.Start, 0, m.lengthEntries)
	end := clamp(entries.End, 0, m.lengthEntries)
	if start >= end {
		return FramesRange{}, false
	}
	low, high, ok := m.entryUnion.query(start, end)
	if !ok {
		return FramesRange{}, false
	}
	return FramesRange{Start: low, End: high}, true
}

// FullTraceFramesRange returns the frames covered by the whole trace.
func (m *FrameMap) FullTraceFramesRange() (FramesRange, bool) {
	return m.FramesRange(EntriesRange{Start: 0, End: m.lengthEntries})
}

// EntriesRange returns the entries mapped to the frames inside frames,
// or false if none of the (clamped) frames has an entry.
func (m *FrameMap) EntriesRange(frames FramesRange) (EntriesRange, bool) {
	start := clamp(frames.Start, 0, m.lengthFrames)
	end := clamp(frames.End, 0, m.lengthFrames)
	if start >= end {
		return EntriesRange{}, false
	}
	low, high, ok := m.frameUnion.query(start, end)
	if !ok {
		return EntriesRange{}, false
	}
	return EntriesRange{Start: low, End: high}, true
}

func clamp(value, low, high int) int {
	return min(max(value, low), high)
}
