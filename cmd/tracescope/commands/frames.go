// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/PixelExperience/development/cmd/tracescope/cli"
	"github.com/PixelExperience/development/lib/session"
	"github.com/PixelExperience/development/lib/trace"
)

type framesParams struct {
	cli.JSONOutput
	sessionParams
	Frame int `flag:"frame" desc:"first frame to show"`
	Count int `flag:"count" desc:"number of consecutive frames" default:"1"`
}

var errNoFrameInfo = errors.New("no loaded trace has frame info; load a screen recording, SurfaceFlinger or WindowManager trace")

// frameSection is the cross-section of every correlated trace at one
// frame.
type frameSection struct {
	Frame  int          `json:"frame"`
	Traces []frameTrace `json:"traces"`
}

type frameTrace struct {
	Type    trace.Type   `json:"type"`
	Entries []frameEntry `json:"entries"`
}

type frameEntry struct {
	Index       int    `json:"index"`
	Timestamp   string `json:"timestamp"`
	TimestampNs int64  `json:"timestamp_ns"`
}

func framesCommand(stdout, stderr io.Writer) *cli.Command {
	var params framesParams

	return &cli.Command{
		Name:    "frames",
		Summary: "Show each trace's entries at a frame",
		Description: `Load and correlate traces, then print, for each requested frame, the
entries of every trace mapped to that frame. Traces the frame mapper
could not reach are omitted.`,
		Usage: "tracescope frames --frame N [--count K] [flags] FILE...",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("frames", &params)
		},
		Examples: []cli.Example{
			{
				Description: "What every trace did during frame 42",
				Command:     "tracescope frames --frame 42 bugreport.zip",
			},
		},
		Run: func(ctx context.Context, args []string) (err error) {
			if params.Frame < 0 {
				return fmt.Errorf("--frame must not be negative, got %d", params.Frame)
			}
			if params.Count < 1 {
				return fmt.Errorf("--count must be at least 1, got %d", params.Count)
			}

			loaded, _, _, err := params.open(ctx, args, stderr)
			if err != nil {
				return err
			}
			defer closeSession(loaded, &err)

			sections, err := crossSections(loaded, params.Frame, params.Count)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(stdout, sections); done {
				return err
			}
			writeFrameSections(stdout, sections)
			return nil
		},
	}
}

// crossSections collects the entries of every framed trace for frames
// [first, first+count).
func crossSections(loaded *session.Session, first, count int) ([]frameSection, error) {
	var framed []*trace.Trace
	loaded.Traces.ForEach(func(full *trace.Trace) {
		if full.HasFrameInfo() {
			framed = append(framed, full)
		}
	})
	if len(framed) == 0 {
		return nil, errNoFrameInfo
	}

	sections := make([]frameSection, 0, count)
	for frame := first; frame < first+count; frame++ {
		section := frameSection{Frame: frame, Traces: []frameTrace{}}
		for _, full := range framed {
			slice, err := full.Frame(frame)
			if err != nil {
				return nil, err
			}
			if slice.LengthEntries() == 0 {
				continue
			}
			traceAtFrame := frameTrace{Type: full.Type(), Entries: make([]frameEntry, 0, slice.LengthEntries())}
			for _, entry := range slice.All() {
				traceAtFrame.Entries = append(traceAtFrame.Entries, frameEntry{
					Index:       entry.Index(),
					Timestamp:   entry.Timestamp().String(),
					TimestampNs: entry.Timestamp().ValueNs(),
				})
			}
			section.Traces = append(section.Traces, traceAtFrame)
		}
		sections = append(sections, section)
	}
	return sections, nil
}

func writeFrameSections(w io.Writer, sections []frameSection) {
	for i, section := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "frame %d\n", section.Frame)
		if len(section.Traces) == 0 {
			fmt.Fprintln(w, "  (no entries)")
			continue
		}
		for _, traceAtFrame := range section.Traces {
			indices := make([]string, len(traceAtFrame.Entries))
			for j, entry := range traceAtFrame.Entries {
				indices[j] = fmt.Sprintf("#%d@%s", entry.Index, entry.Timestamp)
			}
			fmt.Fprintf(w, "  %-30s %s\n", traceAtFrame.Type, strings.Join(indices, " "))
		}
	}
}
