// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"context"
	"fmt"

	"github.com/PixelExperience/development/lib/timestamp"
)

// Entry is an ephemeral view of one record of a trace: its absolute
// index, its timestamp and, when frame info is attached, its frames.
// Entries are produced on demand and never stored by the trace.
type Entry struct {
	full      *Trace
	index     int
	timestamp timestamp.Timestamp
	frames    FramesRange
	hasFrames bool
}

// FullTrace returns the full trace the entry belongs to.
func (e Entry) FullTrace() *Trace { return e.full }

// Index returns the absolute index of the entry in the full trace.
func (e Entry) Index() int { return e.index }

// Timestamp returns the entry's timestamp in the trace's domain.
func (e Entry) Timestamp() timestamp.Timestamp { return e.timestamp }

// FramesRange returns the frames the entry is mapped to. The boolean is
// false for entries the frame map leaves unmapped. Returns
// [ErrNoFrameInfo] if the trace has no frame map.
func (e Entry) FramesRange() (FramesRange, bool, error) {
	if !e.full.HasFrameInfo() {
		return FramesRange{}, false, e.full.noFrameInfoError()
	}
	return e.frames, e.hasFrames, nil
}

// Value re-materializes the decoded record through the parser. The
// parser may decode lazily, so this can block; it honours ctx.
func (e Entry) Value(ctx context.Context) (any, error) {
	value, err := e.full.parser.Entry(ctx, e.index, e.timestamp.Domain())
	if err != nil {
		return nil, fmt.Errorf("%s entry %d: %w", e.full.traceType, e.index, err)
	}
	return value, nil
}
