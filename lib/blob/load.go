// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Options controls how Load reads its inputs.
type Options struct {
	// Jobs bounds how many files are read and expanded concurrently.
	// Zero or negative means GOMAXPROCS.
	Jobs int

	// MmapThreshold is the file size in bytes at or above which a
	// plain file is memory-mapped instead of read. Zero disables
	// mapping.
	MmapThreshold int64

	// MaxDecompressedSize caps the size of every blob produced by
	// decompression or archive extraction. Zero means unlimited.
	MaxDecompressedSize int64

	// Logger receives a warning for every container that fails to
	// expand. Nil discards.
	Logger *slog.Logger
}

// loaded is the per-path result of Load, written by exactly one
// goroutine.
type loaded struct {
	blobs   []Blob
	release func() error
}

// Load reads paths concurrently and returns their blobs in input
// order, with containers expanded in place.
//
// A missing or unreadable file fails the whole load. A container that
// cannot be expanded (corrupt stream, member over the size limit) is
// kept as a single raw blob and a warning is logged: the parser
// selector will then report it as an unsupported format rather than
// aborting the session.
func Load(ctx context.Context, paths []string, options Options) (*Set, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	jobs := options.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]loaded, len(paths))
	expander := &expander{maxSize: options.MaxDecompressedSize}

	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(max(1, min(jobs, len(paths))))
	for i, path := range paths {
		group.Go(func() error {
			if err := groupContext.Err(); err != nil {
				return err
			}
			result, err := loadPath(groupContext, path, options.MmapThreshold, expander, logger)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	err := group.Wait()

	set := &Set{}
	for _, result := range results {
		set.Blobs = append(set.Blobs, result.blobs...)
		if result.release != nil {
			set.releases = append(set.releases, result.release)
		}
	}
	if err != nil {
		if closeErr := set.Close(); closeErr != nil {
			logger.Warn("releasing mappings after failed load", "error", closeErr)
		}
		return nil, err
	}

	logger.Debug("blobs loaded", "paths", len(paths), "blobs", len(set.Blobs))
	return set, nil
}

func loadPath(ctx context.Context, path string, mmapThreshold int64, expander *expander, logger *slog.Logger) (loaded, error) {
	data, release, err := readFile(path, mmapThreshold)
	if err != nil {
		return loaded{}, err
	}

	kind := DetectContainer(data)
	if kind == ContainerNone {
		return loaded{blobs: []Blob{New(path, data)}, release: release}, nil
	}

	blobs, err := expander.expand(ctx, path, data, 0)
	if err != nil {
		if ctx.Err() != nil {
			releaseQuietly(release, logger)
			return loaded{}, ctx.Err()
		}
		logger.Warn("container expansion failed, keeping raw bytes",
			"path", path,
			"container", kind.String(),
			"error", err,
		)
		return loaded{blobs: []Blob{New(path, data)}, release: release}, nil
	}

	// Expanded blobs own their decompressed bytes; the mapping of the
	// container itself is no longer referenced.
	releaseQuietly(release, logger)
	logger.Debug("container expanded", "path", path, "container", kind.String(), "blobs", len(blobs))
	return loaded{blobs: blobs}, nil
}

// readFile returns the content of path, memory-mapped when the file is
// at least mmapThreshold bytes. release is nil for heap reads.
func readFile(path string, mmapThreshold int64) ([]byte, func() error, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading trace file: %w", err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("reading trace file %s: is a directory", path)
	}

	size := info.Size()
	if mmapSupported && mmapThreshold > 0 && size > 0 && size >= mmapThreshold {
		return mapFile(path, size)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading trace file: %w", err)
	}
	return data, nil, nil
}

func releaseQuietly(release func() error, logger *slog.Logger) {
	if release == nil {
		return
	}
	if err := release(); err != nil {
		logger.Warn("releasing mapping", "error", err)
	}
}
