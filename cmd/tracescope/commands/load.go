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
	"github.com/PixelExperience/development/lib/session"
	"github.com/PixelExperience/development/lib/snapshot"
	"github.com/PixelExperience/development/lib/trace"
)

type loadParams struct {
	cli.JSONOutput
	sessionParams
}

// loadResult is the --json output of "tracescope load".
type loadResult struct {
	Domain   string               `json:"domain"`
	Traces   []traceSummary       `json:"traces"`
	Rejected []snapshot.Rejection `json:"rejected"`
}

type traceSummary struct {
	Type    trace.Type        `json:"type"`
	Entries int               `json:"entries"`
	Frames  *snapshot.Range   `json:"frames,omitempty"`
	First   string            `json:"first,omitempty"`
	Last    string            `json:"last,omitempty"`
	Sources []snapshot.Source `json:"sources"`
}

func loadCommand(stdout, stderr io.Writer) *cli.Command {
	var params loadParams

	return &cli.Command{
		Name:    "load",
		Summary: "Load and correlate traces",
		Description: `Load trace files and archives, correlate them on the frame clock, and
print one line per trace: its type, entry count, frame range, first and
last timestamps and the digest of the file it came from.

Files that no parser accepts, and duplicate traces of a type already
loaded, are listed after the table. In that case the command exits with
status 2 after printing.`,
		Usage: "tracescope load [flags] FILE...",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("load", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Summarize a bug report capture",
				Command:     "tracescope load bugreport.zip",
			},
			{
				Description: "Machine-readable summary in the elapsed clock",
				Command:     "tracescope load --json --domain elapsed layers_trace.winscope wm_trace.winscope",
			},
		},
		Run: func(ctx context.Context, args []string) (err error) {
			loaded, _, _, err := params.open(ctx, args, stderr)
			if err != nil {
				return err
			}
			defer closeSession(loaded, &err)

			result := summarize(loaded)
			if done, err := params.EmitJSON(stdout, result); done {
				if err != nil {
					return err
				}
				return rejectedExit(result)
			}

			if err := writeLoadTable(stdout, result); err != nil {
				return err
			}
			return rejectedExit(result)
		},
	}
}

func summarize(loaded *session.Session) loadResult {
	exported := snapshot.Build(loaded)
	result := loadResult{
		Domain:   loaded.Domain.String(),
		Traces:   make([]traceSummary, 0, len(exported.Traces)),
		Rejected: append([]snapshot.Rejection{}, exported.Rejected...),
	}
	for _, exportedTrace := range exported.Traces {
		summary := traceSummary{
			Type:    exportedTrace.Type,
			Entries: len(exportedTrace.Entries),
			Frames:  exportedTrace.Frames,
			Sources: exportedTrace.Sources,
		}
		if full := loaded.Traces.Get(exportedTrace.Type); full != nil && full.LengthEntries() > 0 {
			summary.First = full.Entry(0).Timestamp().String()
			summary.Last = full.Entry(-1).Timestamp().String()
		}
		result.Traces = append(result.Traces, summary)
	}
	return result
}

func writeLoadTable(w io.Writer, result loadResult) error {
	fmt.Fprintf(w, "domain: %s\n\n", result.Domain)

	table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(table, "TYPE\tENTRIES\tFRAMES\tFIRST\tLAST\tDIGEST")
	for _, summary := range result.Traces {
		fmt.Fprintf(table, "%s\t%d\t%s\t%s\t%s\t%s\n",
			summary.Type,
			summary.Entries,
			formatRange(summary.Frames),
			orDash(summary.First),
			orDash(summary.Last),
			formatSources(summary.Sources),
		)
	}
	if err := table.Flush(); err != nil {
		return err
	}

	if len(result.Rejected) > 0 {
		fmt.Fprintf(w, "\nrejected:\n")
		for _, rejection := range result.Rejected {
			if rejection.Type != "" {
				fmt.Fprintf(w, "  %s: %s (%s)\n", rejection.Source, rejection.Kind, rejection.Type)
			} else {
				fmt.Fprintf(w, "  %s: %s\n", rejection.Source, rejection.Kind)
			}
		}
	}
	return nil
}

func rejectedExit(result loadResult) error {
	if len(result.Rejected) > 0 {
		return &cli.ExitError{Code: 2}
	}
	return nil
}

func formatRange(frames *snapshot.Range) string {
	if frames == nil {
		return "-"
	}
	return fmt.Sprintf("[%d, %d)", frames.Start, frames.End)
}

func formatSources(sources []snapshot.Source) string {
	switch len(sources) {
	case 0:
		return "-"
	case 1:
		return sources[0].Digest.Short()
	default:
		return fmt.Sprintf("%s +%d", sources[0].Digest.Short(), len(sources)-1)
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
