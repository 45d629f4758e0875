// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/PixelExperience/development/lib/timestamp"
)

var (
	// ErrNoFrameInfo is returned by frame-domain queries on a trace
	// that has no frame map attached.
	ErrNoFrameInfo = errors.New("trace has no frame info")

	// ErrIncompatibleFrameMap is returned by SetFrameInfo when the map
	// was built for a different number of entries.
	ErrIncompatibleFrameMap = errors.New("frame map entry count does not match trace")

	// ErrNotFullTrace is returned by operations that are only valid on
	// the full trace, not on a slice of it.
	ErrNotFullTrace = errors.New("operation requires the full trace")

	// ErrOutOfBounds is returned by EntryChecked and by frame queries
	// with negative frame indices.
	ErrOutOfBounds = errors.New("index out of bounds")
)

// frameInfo is the frame data attached to a full trace. It is replaced
// as a whole so that readers never see a map without its range.
type frameInfo struct {
	frameMap  *FrameMap
	frames    FramesRange
	hasFrames bool
}

// sliceFrames is the frame range fixed for a slice when it was cut from
// a parent that already had frame info.
type sliceFrames struct {
	frames FramesRange
	ok     bool
}

// Trace is an immutable view over a contiguous range of the entries of
// a decoded trace file. The full trace covers every entry; slices cover
// a sub-range and share the full trace's parser and frame map.
//
// A Trace is safe for concurrent reads. SetFrameInfo may run
// concurrently with reads; readers observe either no map or the
// complete map.
type Trace struct {
	traceType     Type
	parser        Parser
	full          *Trace
	entries       EntriesRange
	lengthEntries int

	// Set on the full trace only.
	domain    timestamp.Domain
	frameInfo atomic.Pointer[frameInfo]

	// Set on slices cut while the full trace had frame info. Nil means
	// the frames are derived from the map on demand.
	frames *sliceFrames
}

// New returns the full, uninitialized trace over every entry of parser.
// Call [Trace.Init] before querying it.
func New(parser Parser) *Trace {
	length := parser.LengthEntries()
	trace := &Trace{
		traceType:     parser.Type(),
		parser:        parser,
		entries:       EntriesRange{Start: 0, End: length},
		lengthEntries: length,
	}
	trace.full = trace
	return trace
}

// Init finalizes the full trace with the clock domain its timestamps
// are reported in. Returns [timestamp.ErrDomainMismatch] if the parser
// has no timestamps in domain.
func (t *Trace) Init(domain timestamp.Domain) error {
	if t.full != t {
		return fmt.Errorf("init %s: %w", t.traceType, ErrNotFullTrace)
	}
	if !SupportsDomain(t.parser, domain) {
		return fmt.Errorf("init %s: %w: no %s timestamps", t.traceType, timestamp.ErrDomainMismatch, domain)
	}
	t.domain = domain
	return nil
}

// Type returns the subsystem the trace was captured from.
func (t *Trace) Type() Type { return t.traceType }

// LengthEntries returns the number of entries in this view.
func (t *Trace) LengthEntries() int { return t.lengthEntries }

// EntriesRange returns the absolute entry range covered by this view.
func (t *Trace) EntriesRange() EntriesRange { return t.entries }

// FullTrace returns the full trace this view was cut from (itself for
// the full trace).
func (t *Trace) FullTrace() *Trace { return t.full }

// IsFull reports whether t is the full trace rather than a slice.
func (t *Trace) IsFull() bool { return t.full == t }

// Domain returns the clock domain entries report timestamps in, or 0
// before Init.
func (t *Trace) Domain() timestamp.Domain { return t.full.domain }

// Descriptors names the source blobs of the underlying parser.
func (t *Trace) Descriptors() []string { return t.parser.Descriptors() }

// SupportsDomain reports whether the trace can be queried with
// timestamps of domain.
func (t *Trace) SupportsDomain(domain timestamp.Domain) bool {
	return SupportsDomain(t.parser, domain)
}

// SetFrameInfo attaches frameMap to the full trace. The full trace's
// frames become frameMap.FullTraceFramesRange(). Every existing and
// future slice observes the new map.
func (t *Trace) SetFrameInfo(frameMap *FrameMap) error {
	if t.full != t {
		return fmt.Errorf("set frame info on %s: %w", t.traceType, ErrNotFullTrace)
	}
	if frameMap.LengthEntries() != t.lengthEntries {
		return fmt.Errorf("set frame info on %s: %w (map has %d entries, trace has %d)",
			t.traceType, ErrIncompatibleFrameMap, frameMap.LengthEntries(), t.lengthEntries)
	}
	frames, ok := frameMap.FullTraceFramesRange()
	t.frameInfo.Store(&frameInfo{frameMap: frameMap, frames: frames, hasFrames: ok})
	return nil
}

// HasFrameInfo reports whether a frame map is attached.
func (t *Trace) HasFrameInfo() bool {
	return t.full.frameInfo.Load() != nil
}

// FramesRange returns the frames covered by this view. The boolean is
// false when a map is attached but no entry of the view is mapped.
func (t *Trace) FramesRange() (FramesRange, bool, error) {
	info := t.full.frameInfo.Load()
	if info == nil {
		return FramesRange{}, false, t.noFrameInfoError()
	}
	frames, ok := t.currentFrames(info)
	return frames, ok, nil
}

// LengthFrames returns the number of frames covered by this view.
func (t *Trace) LengthFrames() (int, error) {
	frames, ok, err := t.FramesRange()
	if err != nil || !ok {
		return 0, err
	}
	return frames.Len(), nil
}

// Entry returns the entry at a slice-relative index. Negative indices
// count from the end of the slice, so Entry(-1) is the last entry.
// Panics if the index is outside the slice: use [Trace.EntryChecked]
// for indices from untrusted input.
func (t *Trace) Entry(index int) Entry {
	entry, err := t.EntryChecked(index)
	if err != nil {
		panic(err.Error())
	}
	return entry
}

// EntryChecked is [Trace.Entry] returning [ErrOutOfBounds] instead of
// panicking.
func (t *Trace) EntryChecked(index int) (Entry, error) {
	absolute := t.toAbsolute(index)
	if !t.entries.Contains(absolute) {
		return Entry{}, fmt.Errorf("%s entry: %w: relative index %d, slice length %d",
			t.traceType, ErrOutOfBounds, index, t.lengthEntries)
	}
	return t.entryAt(absolute), nil
}

// entryAt builds the entry at an absolute index known to be in range.
func (t *Trace) entryAt(absolute int) Entry {
	entry := Entry{
		full:      t.full,
		index:     absolute,
		timestamp: t.timestamps()[absolute],
	}
	if info := t.full.frameInfo.Load(); info != nil {
		if frames, ok := info.frameMap.FramesRange(EntriesRange{Start: absolute, End: absolute + 1}); ok {
			entry.frames, entry.hasFrames = t.clampFrames(info, frames)
		}
	}
	return entry
}

// FindClosestEntry returns the entry whose timestamp is nearest to
// target. When two entries are equally near, the later one wins.
// Returns false for an empty slice.
func (t *Trace) FindClosestEntry(target timestamp.Timestamp) (Entry, bool, error) {
	timestamps, err := t.timestampsFor(target.Domain())
	if err != nil {
		return Entry{}, false, err
	}
	if t.lengthEntries == 0 {
		return Entry{}, false, nil
	}

	position := t.clampEntry(firstGreaterOrEqual(timestamps, target))
	if position == t.entries.End {
		return t.Entry(t.lengthEntries - 1), true, nil
	}
	if position == t.entries.Start {
		return t.Entry(0), true, nil
	}

	difference := timestamps[position].AbsDiff(target)
	previousDifference := timestamps[position-1].AbsDiff(target)
	if previousDifference < difference {
		return t.entryAt(position - 1), true, nil
	}
	return t.entryAt(position), true, nil
}

// FindFirstGreaterOrEqualEntry returns the first entry of the slice
// with timestamp >= target.
func (t *Trace) FindFirstGreaterOrEqualEntry(target timestamp.Timestamp) (Entry, bool, error) {
	timestamps, err := t.timestampsFor(target.Domain())
	if err != nil || t.lengthEntries == 0 {
		return Entry{}, false, err
	}
	position := t.clampEntry(firstGreaterOrEqual(timestamps, target))
	if position == t.entries.End || timestamps[position].Before(target) {
		return Entry{}, false, nil
	}
	return t.entryAt(position), true, nil
}

// FindFirstGreaterEntry returns the first entry of the slice with
// timestamp > target.
func (t *Trace) FindFirstGreaterEntry(target timestamp.Timestamp) (Entry, bool, error) {
	timestamps, err := t.timestampsFor(target.Domain())
	if err != nil || t.lengthEntries == 0 {
		return Entry{}, false, err
	}
	position := t.clampEntry(firstGreater(timestamps, target))
	if position == t.entries.End || !timestamps[position].After(target) {
		return Entry{}, false, nil
	}
	return t.entryAt(position), true, nil
}

// FindLastLowerOrEqualEntry returns the last entry of the slice with
// timestamp <= target.
func (t *Trace) FindLastLowerOrEqualEntry(target timestamp.Timestamp) (Entry, bool, error) {
	if t.lengthEntries == 0 {
		_, err := t.timestampsFor(target.Domain())
		return Entry{}, false, err
	}
	firstGreater, found, err := t.FindFirstGreaterEntry(target)
	if err != nil {
		return Entry{}, false, err
	}
	return t.stepBack(firstGreater, found)
}

// FindLastLowerEntry returns the last entry of the slice with
// timestamp < target.
func (t *Trace) FindLastLowerEntry(target timestamp.Timestamp) (Entry, bool, error) {
	if t.lengthEntries == 0 {
		_, err := t.timestampsFor(target.Domain())
		return Entry{}, false, err
	}
	firstGreaterOrEqual, found, err := t.FindFirstGreaterOrEqualEntry(target)
	if err != nil {
		return Entry{}, false, err
	}
	return t.stepBack(firstGreaterOrEqual, found)
}

// stepBack returns the entry before boundary, the last entry when there
// is no boundary, or nothing when boundary is the first entry.
func (t *Trace) stepBack(boundary Entry, found bool) (Entry, bool, error) {
	if !found {
		return t.Entry(-1), true, nil
	}
	if boundary.Index() == t.entries.Start {
		return Entry{}, false, nil
	}
	return t.entryAt(boundary.Index() - 1), true, nil
}

// SliceEntries returns the view over the slice-relative index range
// [start, end). Nil bounds default to the current slice bounds;
// negative bounds count from the end. Bounds are clamped to the slice.
func (t *Trace) SliceEntries(start, end *int) *Trace {
	entries := t.entries
	if start != nil {
		entries.Start = t.clampEntry(t.toAbsolute(*start))
	}
	if end != nil {
		entries.End = t.clampEntry(t.toAbsolute(*end))
	}
	return t.sliceWithFramesFromMap(entries)
}

// SliceTime returns the view over entries with start <= timestamp <
// end. Nil bounds default to the current slice bounds. Returns
// [timestamp.ErrDomainMismatch] if either bound is in a domain the
// trace does not support.
func (t *Trace) SliceTime(start, end *timestamp.Timestamp) (*Trace, error) {
	entries := t.entries
	if start != nil {
		timestamps, err := t.timestampsFor(start.Domain())
		if err != nil {
			return nil, err
		}
		entries.Start = t.clampEntry(firstGreaterOrEqual(timestamps, *start))
	}
	if end != nil {
		timestamps, err := t.timestampsFor(end.Domain())
		if err != nil {
			return nil, err
		}
		entries.End = t.clampEntry(firstGreaterOrEqual(timestamps, *end))
	}
	return t.sliceWithFramesFromMap(entries), nil
}

// SliceFrames returns the view over the absolute frame range
// [start, end). Nil bounds default to the current frames; bounds are
// clamped to them. Returns [ErrNoFrameInfo] without a frame map.
func (t *Trace) SliceFrames(start, end *int) (*Trace, error) {
	info := t.full.frameInfo.Load()
	if info == nil {
		return nil, t.noFrameInfoError()
	}
	current, ok := t.currentFrames(info)
	if !ok {
		return t.createSlice(info, EntriesRange{}, false, FramesRange{}, false), nil
	}
	frames := current
	if start != nil {
		if *start < 0 {
			return nil, fmt.Errorf("slice %s frames: %w: negative frame %d", t.traceType, ErrOutOfBounds, *start)
		}
		frames.Start = clamp(*start, current.Start, current.End)
	}
	if end != nil {
		if *end < 0 {
			return nil, fmt.Errorf("slice %s frames: %w: negative frame %d", t.traceType, ErrOutOfBounds, *end)
		}
		frames.End = clamp(*end, current.Start, current.End)
	}
	entries, entriesOK := info.frameMap.EntriesRange(frames)
	return t.createSlice(info, entries, entriesOK, frames, true), nil
}

// Frame returns the view over the entries mapped to a single frame.
// Returns [ErrNoFrameInfo] without a frame map.
func (t *Trace) Frame(frame int) (*Trace, error) {
	info := t.full.frameInfo.Load()
	if info == nil {
		return nil, t.noFrameInfoError()
	}
	if frame < 0 {
		return nil, fmt.Errorf("%s frame: %w: negative frame %d", t.traceType, ErrOutOfBounds, frame)
	}
	frames := FramesRange{Start: frame, End: frame + 1}
	entries, ok := info.frameMap.EntriesRange(frames)
	return t.createSlice(info, entries, ok, frames, true), nil
}

// ForEachEntry calls fn for every entry of the slice in index order
// with the entry and its slice-relative index.
func (t *Trace) ForEachEntry(fn func(entry Entry, index int)) {
	for index := range t.lengthEntries {
		fn(t.entryAt(t.entries.Start+index), index)
	}
}

// All returns an iterator over the slice-relative index and entry of
// every entry in the slice.
func (t *Trace) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for index := range t.lengthEntries {
			if !yield(index, t.entryAt(t.entries.Start+index)) {
				return
			}
		}
	}
}

// ForEachTimestamp calls fn with the timestamp and slice-relative index
// of every entry of the slice, without materializing entries.
func (t *Trace) ForEachTimestamp(fn func(ts timestamp.Timestamp, index int)) {
	timestamps := t.timestamps()
	for index := range t.lengthEntries {
		fn(timestamps[t.entries.Start+index], index)
	}
}

// ForEachFrame calls fn with the sub-trace of every frame covered by
// the slice, in frame order. Returns [ErrNoFrameInfo] without a frame
// map.
func (t *Trace) ForEachFrame(fn func(frame *Trace, index int)) error {
	info := t.full.frameInfo.Load()
	if info == nil {
		return t.noFrameInfoError()
	}
	for frame, sub := range t.Frames() {
		fn(sub, frame)
	}
	return nil
}

// Frames returns an iterator over the absolute index and sub-trace of
// every frame covered by the slice. It yields nothing when no frame map
// is attached; use [Trace.ForEachFrame] to tell that case apart.
func (t *Trace) Frames() iter.Seq2[int, *Trace] {
	return func(yield func(int, *Trace) bool) {
		info := t.full.frameInfo.Load()
		if info == nil {
			return
		}
		frames, ok := t.currentFrames(info)
		if !ok {
			return
		}
		for frame := frames.Start; frame < frames.End; frame++ {
			frameRange := FramesRange{Start: frame, End: frame + 1}
			entries, entriesOK := info.frameMap.EntriesRange(frameRange)
			if !yield(frame, t.createSlice(info, entries, entriesOK, frameRange, true)) {
				return
			}
		}
	}
}

// sliceWithFramesFromMap creates a slice over entries whose frames are
// looked up in the attached map, if any.
func (t *Trace) sliceWithFramesFromMap(entries EntriesRange) *Trace {
	info := t.full.frameInfo.Load()
	if info == nil {
		return t.createSlice(nil, entries, true, FramesRange{}, false)
	}
	frames, ok := info.frameMap.FramesRange(entries)
	return t.createSlice(info, entries, true, frames, ok)
}

// createSlice clamps entries and frames to this view and returns the
// new view. An invalid or inverted entry range becomes the empty range
// at the end of this view.
func (t *Trace) createSlice(info *frameInfo, entries EntriesRange, entriesOK bool, frames FramesRange, framesOK bool) *Trace {
	if entriesOK {
		entries = EntriesRange{Start: t.clampEntry(entries.Start), End: t.clampEntry(entries.End)}
	}
	if !entriesOK || entries.Start >= entries.End {
		entries = EntriesRange{Start: t.entries.End, End: t.entries.End}
	}

	slice := &Trace{
		traceType:     t.traceType,
		parser:        t.parser,
		full:          t.full,
		entries:       entries,
		lengthEntries: entries.Len(),
	}
	if info != nil {
		fixed := &sliceFrames{}
		if framesOK {
			fixed.frames, fixed.ok = t.clampFrames(info, frames)
		}
		slice.frames = fixed
	}
	return slice
}

// currentFrames returns the frames of this view given the attached
// frame info.
func (t *Trace) currentFrames(info *frameInfo) (FramesRange, bool) {
	if t.full == t {
		return info.frames, info.hasFrames
	}
	if t.frames != nil {
		return t.frames.frames, t.frames.ok
	}
	frames, ok := info.frameMap.FramesRange(t.entries)
	if !ok {
		return FramesRange{}, false
	}
	return clampFramesTo(frames, info.frames, info.hasFrames)
}

// clampFrames clamps frames to the frames of this view. A view without
// frames clamps everything away.
func (t *Trace) clampFrames(info *frameInfo, frames FramesRange) (FramesRange, bool) {
	current, ok := t.currentFrames(info)
	return clampFramesTo(frames, current, ok)
}

func clampFramesTo(frames, bounds FramesRange, boundsOK bool) (FramesRange, bool) {
	if !boundsOK {
		return FramesRange{}, false
	}
	clamped := FramesRange{
		Start: clamp(frames.Start, bounds.Start, bounds.End),
		End:   clamp(frames.End, bounds.Start, bounds.End),
	}
	return clamped, true
}

func (t *Trace) toAbsolute(index int) int {
	if index < 0 {
		return t.entries.End + index
	}
	return t.entries.Start + index
}

func (t *Trace) clampEntry(absolute int) int {
	return clamp(absolute, t.entries.Start, t.entries.End)
}

// timestamps returns the full trace's timestamps in the domain chosen
// by Init. Panics on an uninitialized trace.
func (t *Trace) timestamps() []timestamp.Timestamp {
	domain := t.full.domain
	if domain == 0 {
		panic(fmt.Sprintf("trace: %s used before Init", t.traceType))
	}
	return t.parser.Timestamps(domain)
}

// timestampsFor returns the full trace's timestamps in domain, or
// [timestamp.ErrDomainMismatch] if the parser has none.
func (t *Trace) timestampsFor(domain timestamp.Domain) ([]timestamp.Timestamp, error) {
	timestamps := t.parser.Timestamps(domain)
	if timestamps == nil {
		return nil, fmt.Errorf("%w: %s trace cannot be accessed with %s timestamps",
			timestamp.ErrDomainMismatch, t.traceType, domain)
	}
	return timestamps, nil
}

func (t *Trace) noFrameInfoError() error {
	return fmt.Errorf("%s: %w", t.traceType, ErrNoFrameInfo)
}
