// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/PixelExperience/development/cmd/tracescope/cli"
	"github.com/PixelExperience/development/lib/clock"
	"github.com/PixelExperience/development/lib/snapshot"
)

type exportParams struct {
	sessionParams
	Output      string `flag:"output,o" desc:"snapshot path (default: a timestamped file in export.directory)"`
	Compression string `flag:"compression" desc:"zstd, lz4 or none (default: export.compression)"`
}

func exportCommand(stdout, stderr io.Writer, now clock.Clock) *cli.Command {
	var params exportParams

	return &cli.Command{
		Name:    "export",
		Summary: "Write a CBOR snapshot of the correlation",
		Description: `Load and correlate traces, then write the result as a CBOR snapshot:
every trace's type, source files with digests, entry timestamps and frame
ranges, plus the files that were rejected. The snapshot is written
atomically and can be read back with "tracescope inspect".`,
		Usage: "tracescope export [--output PATH] [--compression zstd|lz4|none] [flags] FILE...",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("export", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Export into the configured snapshot directory",
				Command:     "tracescope export bugreport.zip",
			},
			{
				Description: "Uncompressed snapshot at an explicit path",
				Command:     "tracescope export --compression none -o capture.cbor layers_trace.winscope",
			},
		},
		Run: func(ctx context.Context, args []string) (err error) {
			loaded, cfg, logger, err := params.open(ctx, args, stderr)
			if err != nil {
				return err
			}
			defer closeSession(loaded, &err)

			compressionName := cfg.Export.Compression
			if params.Compression != "" {
				compressionName = params.Compression
			}
			compression, err := snapshot.ParseCompression(compressionName)
			if err != nil {
				return fmt.Errorf("--compression: %w", err)
			}

			path := params.Output
			if path == "" {
				if err := cfg.EnsureExportDirectory(); err != nil {
					return err
				}
				name := "tracescope-" + now.Now().UTC().Format("20060102T150405Z") + compression.Extension()
				path = filepath.Join(cfg.Export.Directory, name)
			}

			exported := snapshot.Build(loaded)
			if err := snapshot.WriteFile(path, exported, compression); err != nil {
				return err
			}
			logger.Info("snapshot written",
				"path", path,
				"compression", compression.String(),
				"traces", len(exported.Traces),
			)
			fmt.Fprintln(stdout, path)
			return nil
		},
	}
}
