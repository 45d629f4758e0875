// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/PixelExperience/development/cmd/tracescope/cli"
	"github.com/PixelExperience/development/lib/snapshot"
)

type inspectParams struct {
	cli.JSONOutput
}

func inspectCommand(stdout io.Writer) *cli.Command {
	var params inspectParams

	return &cli.Command{
		Name:    "inspect",
		Summary: "Print a snapshot written by export",
		Description: `Read a snapshot file (any compression) and print a summary of its
traces, or the whole snapshot as JSON with --json.`,
		Usage: "tracescope inspect [--json] SNAPSHOT",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("inspect", &params)
		},
		Run: func(_ context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one snapshot path, got %d arguments", len(args))
			}
			read, err := snapshot.ReadFile(args[0])
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(stdout, read); done {
				return err
			}
			return writeSnapshotSummary(stdout, read)
		},
	}
}

func writeSnapshotSummary(w io.Writer, read snapshot.Snapshot) error {
	fmt.Fprintf(w, "format: %d\ntool: %s\ndomain: %s\n\n", read.FormatVersion, read.Tool, read.Domain)

	table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(table, "TYPE\tENTRIES\tMAPPED\tFRAMES\tSOURCES")
	for _, exportedTrace := range read.Traces {
		mapped := 0
		for _, entry := range exportedTrace.Entries {
			if entry.Frames != nil {
				mapped++
			}
		}
		fmt.Fprintf(table, "%s\t%d\t%d\t%s\t%s\n",
			exportedTrace.Type,
			len(exportedTrace.Entries),
			mapped,
			formatRange(exportedTrace.Frames),
			formatSources(exportedTrace.Sources),
		)
	}
	if err := table.Flush(); err != nil {
		return err
	}

	if len(read.Rejected) > 0 {
		fmt.Fprintf(w, "\nrejected:\n")
		for _, rejection := range read.Rejected {
			fmt.Fprintf(w, "  %s: %s\n", rejection.Source, rejection.Kind)
		}
	}
	return nil
}
