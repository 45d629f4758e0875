// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the tracescope command tree.
package commands

import (
	"io"

	"github.com/PixelExperience/development/cmd/tracescope/cli"
	"github.com/PixelExperience/development/lib/clock"
)

// Root builds the complete command tree. Command output goes to stdout;
// logs and help go to stderr. now names exported snapshots.
func Root(stdout, stderr io.Writer, now clock.Clock) *cli.Command {
	return &cli.Command{
		Name: "tracescope",
		Description: `Tracescope: Android trace correlation.

Load SurfaceFlinger, transactions, WindowManager, input method, ProtoLog,
accessibility and screen recording traces (alone, compressed, or inside
bug report zips), and line them up on a shared frame clock.`,
		HelpOutput: stderr,
		Subcommands: []*cli.Command{
			loadCommand(stdout, stderr),
			framesCommand(stdout, stderr),
			exportCommand(stdout, stderr, now),
			inspectCommand(stdout),
			versionCommand(stdout),
		},
		Examples: []cli.Example{
			{
				Description: "Summarize every trace in a bug report",
				Command:     "tracescope load bugreport.zip",
			},
			{
				Description: "Show what each trace was doing during frames 120-124",
				Command:     "tracescope frames --frame 120 --count 5 layers_trace.winscope transactions_trace.winscope wm_trace.winscope",
			},
			{
				Description: "Write an lz4-compressed correlation snapshot",
				Command:     "tracescope export --compression lz4 --output capture.cbor.lz4 bugreport.zip",
			},
		},
	}
}
