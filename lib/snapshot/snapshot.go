// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"github.com/PixelExperience/development/lib/blob"
	"github.com/PixelExperience/development/lib/session"
	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
	"github.com/PixelExperience/development/lib/version"
)

// FormatVersion is incremented on incompatible changes to [Snapshot].
const FormatVersion = 1

// Snapshot is the exported correlation of one session.
type Snapshot struct {
	FormatVersion int              `json:"format_version"`
	Tool          string           `json:"tool"`
	Domain        timestamp.Domain `json:"domain"`
	Traces        []Trace          `json:"traces"`
	Rejected      []Rejection      `json:"rejected,omitempty"`
}

// Trace is one loaded trace.
type Trace struct {
	Type    trace.Type `json:"type"`
	Sources []Source   `json:"sources"`

	// Frames is the frame range the trace covers, absent when the
	// trace has no frame info or no mapped entry.
	Frames *Range `json:"frames,omitempty"`

	Entries []Entry `json:"entries"`
}

// Source is a file a trace was decoded from.
type Source struct {
	Name   string      `json:"name"`
	Digest blob.Digest `json:"digest"`
}

// Entry is one trace entry.
type Entry struct {
	Index       int   `json:"index"`
	TimestampNs int64 `json:"timestamp_ns"`

	// Frames is absent for unmapped entries.
	Frames *Range `json:"frames,omitempty"`
}

// Range is a half-open frame interval.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Rejection is a file the session did not load.
type Rejection struct {
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Type   string `json:"type,omitempty"`
}

// Build captures the correlation of s.
func Build(s *session.Session) Snapshot {
	snapshot := Snapshot{
		FormatVersion: FormatVersion,
		Tool:          "tracescope " + version.Short(),
		Domain:        s.Domain,
	}
	s.Traces.ForEach(func(full *trace.Trace) {
		snapshot.Traces = append(snapshot.Traces, buildTrace(s, full))
	})
	for _, rejected := range s.Errors {
		rejection := Rejection{Source: rejected.Source, Kind: rejected.Kind.String()}
		if rejected.Type.Valid() {
			rejection.Type = rejected.Type.String()
		}
		snapshot.Rejected = append(snapshot.Rejected, rejection)
	}
	return snapshot
}

func buildTrace(s *session.Session, full *trace.Trace) Trace {
	exported := Trace{
		Type:    full.Type(),
		Entries: make([]Entry, 0, full.LengthEntries()),
	}
	for _, source := range s.Sources(full) {
		exported.Sources = append(exported.Sources, Source{Name: source.Name, Digest: source.Digest})
	}
	if frames, ok, err := full.FramesRange(); err == nil && ok {
		exported.Frames = &Range{Start: frames.Start, End: frames.End}
	}
	for _, entry := range full.All() {
		exportedEntry := Entry{Index: entry.Index(), TimestampNs: entry.Timestamp().ValueNs()}
		if frames, ok, err := entry.FramesRange(); err == nil && ok {
			exportedEntry.Frames = &Range{Start: frames.Start, End: frames.End}
		}
		exported.Entries = append(exported.Entries, exportedEntry)
	}
	return exported
}
