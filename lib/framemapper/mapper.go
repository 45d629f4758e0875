// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framemapper

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
)

// Config tunes a Mapper. The zero value runs the full pipeline with
// the default anchors.
type Config struct {
	// Anchors is the anchor preference order. Empty means
	// DefaultAnchors.
	Anchors []trace.Type

	// Disabled lists steps to skip.
	Disabled []Step

	// Jobs bounds the goroutines decoding entry values for the vsync
	// join. Zero or negative means GOMAXPROCS.
	Jobs int

	// Logger receives step progress at debug level and malformed
	// correlation ids at warn level. Nil discards.
	Logger *slog.Logger
}

// Mapper computes and attaches frame maps for a set of traces.
type Mapper struct {
	traces   *trace.Traces
	anchors  []trace.Type
	disabled []Step
	jobs     int
	logger   *slog.Logger
}

// New returns a mapper over traces. Every trace must already be
// initialized in a common timestamp domain.
func New(traces *trace.Traces, config Config) *Mapper {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	anchors := config.Anchors
	if len(anchors) == 0 {
		anchors = DefaultAnchors
	}
	jobs := config.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return &Mapper{
		traces:   traces,
		anchors:  slices.Clone(anchors),
		disabled: slices.Clone(config.Disabled),
		jobs:     jobs,
		logger:   logger,
	}
}

// ComputeMapping anchors the frame clock on the first loaded anchor
// trace and runs every enabled step. Without an anchor it does
// nothing. Malformed entries are skipped, never reported as errors:
// the only errors are context cancellation and traces queried in a
// timestamp domain they do not support.
func (m *Mapper) ComputeMapping(ctx context.Context) error {
	anchor := m.pickAnchor()
	if anchor == nil {
		m.logger.Debug("no anchor trace loaded, frames not computed")
		return nil
	}
	if err := setIdentityFrames(anchor); err != nil {
		return err
	}
	m.logger.Debug("frame clock anchored", "type", anchor.Type().String(), "frames", anchor.LengthEntries())

	for _, step := range Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if slices.Contains(m.disabled, step) {
			m.logger.Debug("frame mapping step disabled", "step", step.String())
			continue
		}
		if err := m.runStep(ctx, step); err != nil {
			return fmt.Errorf("frame mapping step %s: %w", step, err)
		}
	}
	return nil
}

func (m *Mapper) pickAnchor() *trace.Trace {
	for _, traceType := range m.anchors {
		if anchor := m.traces.Get(traceType); anchor != nil {
			return anchor
		}
	}
	return nil
}

// setIdentityFrames maps entry i of full to frame i.
func setIdentityFrames(full *trace.Trace) error {
	length := full.LengthEntries()
	builder := trace.NewFrameMapBuilder(length, length)
	for i := range length {
		builder.SetFrames(i, trace.FramesRange{Start: i, End: i + 1})
	}
	return full.SetFrameInfo(builder.Build())
}

func (m *Mapper) runStep(ctx context.Context, step Step) error {
	switch step {
	case ScreenRecordingToSurfaceFlinger:
		return m.propagate(step, trace.ScreenRecording, trace.SurfaceFlinger, propagateTimeWindow)
	case SurfaceFlingerToTransactions:
		return m.propagate(step, trace.SurfaceFlinger, trace.Transactions, func(source, destination *trace.Trace, builder *trace.FrameMapBuilder) error {
			return m.propagateVsyncJoin(ctx, source, destination, builder)
		})
	case TransactionsToWindowManager:
		return m.propagate(step, trace.Transactions, trace.WindowManager, propagateIntervalBuckets)
	case WindowManagerToProtoLog:
		return m.propagate(step, trace.WindowManager, trace.ProtoLog, propagateHalfOpenBuckets)
	case WindowManagerToInputMethod:
		for _, inputMethodType := range inputMethodTypes {
			if err := m.propagate(step, trace.WindowManager, inputMethodType, propagateNearest); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown step %d", step)
	}
}

// propagateFunc fills builder with frames for the entries of
// destination, read from the mapped entries of source.
type propagateFunc func(source, destination *trace.Trace, builder *trace.FrameMapBuilder) error

// propagate runs one source to destination mapping when both traces
// are loaded and the source has frame info, then attaches the result.
func (m *Mapper) propagate(step Step, sourceType, destinationType trace.Type, fill propagateFunc) error {
	source := m.traces.Get(sourceType)
	destination := m.traces.Get(destinationType)
	if source == nil || destination == nil || !source.HasFrameInfo() {
		m.logger.Debug("frame mapping step skipped",
			"step", step.String(),
			"source", sourceType.String(),
			"destination", destinationType.String(),
			"source_loaded", source != nil,
			"destination_loaded", destination != nil,
		)
		return nil
	}

	frames, ok, err := source.FramesRange()
	if err != nil {
		return err
	}
	lengthFrames := 0
	if ok {
		lengthFrames = frames.End
	}
	builder := trace.NewFrameMapBuilder(destination.LengthEntries(), lengthFrames)
	if err := fill(source, destination, builder); err != nil {
		return err
	}
	if err := destination.SetFrameInfo(builder.Build()); err != nil {
		return err
	}

	mapped, _, _ := destination.FramesRange()
	m.logger.Debug("frames propagated",
		"step", step.String(),
		"destination", destinationType.String(),
		"frames", mapped.String(),
	)
	return nil
}

// propagateTimeWindow gives each screen recording frame's frames to
// the last compositor entry in the closed window [t-2s, t] before it.
func propagateTimeWindow(recording, compositor *trace.Trace, builder *trace.FrameMapBuilder) error {
	for _, entry := range recording.All() {
		start := entry.Timestamp().Add(-maxPipelineLatencyNs)
		end := entry.Timestamp().Add(oneNanosecond)
		matches, err := compositor.SliceTime(trace.TimeAt(start), trace.TimeAt(end))
		if err != nil {
			return err
		}
		if matches.LengthEntries() == 0 {
			continue
		}
		setEntryFrames(builder, matches.Entry(-1).Index(), entry)
	}
	return nil
}

// propagateIntervalBuckets gives window manager entry k the frames of
// the transactions in [t_k, t_k+1); the last entry's bucket is
// [t_last, t_last + 2s).
func propagateIntervalBuckets(transactions, windowManager *trace.Trace, builder *trace.FrameMapBuilder) error {
	length := windowManager.LengthEntries()
	for k := range length {
		start := windowManager.Entry(k).Timestamp()
		end := start.Add(maxPipelineLatencyNs)
		if k+1 < length {
			end = windowManager.Entry(k + 1).Timestamp()
		}
		if err := setSliceFrames(builder, windowManager.Entry(k).Index(), transactions, start, end); err != nil {
			return err
		}
	}
	return nil
}

// propagateHalfOpenBuckets gives the ProtoLog entries in (t_k, t_k+1]
// the frames of window manager entry k+1, then gives the entries in
// [t_0 - 2s, t_0] the frames of entry 0.
func propagateHalfOpenBuckets(windowManager, protoLog *trace.Trace, builder *trace.FrameMapBuilder) error {
	length := windowManager.LengthEntries()
	for k := 0; k+1 < length; k++ {
		previous := windowManager.Entry(k)
		current := windowManager.Entry(k + 1)
		start := previous.Timestamp().Add(oneNanosecond)
		end := current.Timestamp().Add(oneNanosecond)
		if err := setMatchesFrames(builder, protoLog, start, end, current); err != nil {
			return err
		}
	}
	if length == 0 {
		return nil
	}

	first := windowManager.Entry(0)
	start := first.Timestamp().Add(-maxPipelineLatencyNs)
	end := first.Timestamp().Add(oneNanosecond)
	return setMatchesFrames(builder, protoLog, start, end, first)
}

// propagateNearest gives each input method entry the frames of the
// closest window manager entry, unless it is more than 200ms away.
func propagateNearest(windowManager, inputMethod *trace.Trace, builder *trace.FrameMapBuilder) error {
	for _, entry := range inputMethod.All() {
		closest, found, err := windowManager.FindClosestEntry(entry.Timestamp())
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if closest.Timestamp().AbsDiff(entry.Timestamp()) > maxInputMethodDriftNs {
			continue
		}
		setEntryFrames(builder, entry.Index(), closest)
	}
	return nil
}

// setEntryFrames assigns the frames of source to destination entry
// index; an unmapped source clears the destination entry.
func setEntryFrames(builder *trace.FrameMapBuilder, index int, source trace.Entry) {
	frames, ok, _ := source.FramesRange()
	if !ok {
		frames = trace.FramesRange{}
	}
	builder.SetFrames(index, frames)
}

// setSliceFrames assigns destination entry index the frames covered by
// the source entries in [start, end).
func setSliceFrames(builder *trace.FrameMapBuilder, index int, source *trace.Trace, start, end timestamp.Timestamp) error {
	matches, err := source.SliceTime(trace.TimeAt(start), trace.TimeAt(end))
	if err != nil {
		return err
	}
	frames, ok, err := matches.FramesRange()
	if err != nil {
		return err
	}
	if !ok {
		frames = trace.FramesRange{}
	}
	builder.SetFrames(index, frames)
	return nil
}

// setMatchesFrames assigns the frames of source to every destination
// entry in [start, end).
func setMatchesFrames(builder *trace.FrameMapBuilder, destination *trace.Trace, start, end timestamp.Timestamp, source trace.Entry) error {
	matches, err := destination.SliceTime(trace.TimeAt(start), trace.TimeAt(end))
	if err != nil {
		return err
	}
	for _, entry := range matches.All() {
		setEntryFrames(builder, entry.Index(), source)
	}
	return nil
}
