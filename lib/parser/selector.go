// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/PixelExperience/development/lib/blob"
	"github.com/PixelExperience/development/lib/trace"
)

// ErrorKind classifies a blob the selector did not turn into a parser.
type ErrorKind uint8

const (
	// AlreadyLoaded means the blob decoded into a trace type an earlier
	// blob already provided. The blob is dropped.
	AlreadyLoaded ErrorKind = iota + 1

	// UnsupportedFormat means no variant could decode the blob.
	UnsupportedFormat
)

func (k ErrorKind) String() string {
	switch k {
	case AlreadyLoaded:
		return "already_loaded"
	case UnsupportedFormat:
		return "unsupported_format"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error describes one rejected blob. Errors are diagnostics reported
// next to the accepted parsers, never a failure of the load.
type Error struct {
	// Source is the name of the rejected blob.
	Source string `json:"source"`

	Kind ErrorKind `json:"kind"`

	// Type is the trace type the blob decoded into. Set only for
	// AlreadyLoaded.
	Type trace.Type `json:"type,omitempty"`

	// Cause aggregates the failure of every variant for
	// UnsupportedFormat.
	Cause error `json:"-"`
}

func (e *Error) Error() string {
	switch e.Kind {
	case AlreadyLoaded:
		return fmt.Sprintf("%s: a %s trace is already loaded", e.Source, e.Type)
	case UnsupportedFormat:
		return fmt.Sprintf("%s: unsupported format", e.Source)
	default:
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// SelectorConfig tunes a Selector.
type SelectorConfig struct {
	// Jobs bounds how many blobs are decoded concurrently. Zero or
	// negative means GOMAXPROCS.
	Jobs int

	// Logger receives a debug record for every blob decision. Nil
	// discards.
	Logger *slog.Logger
}

// Selector assigns blobs to variants.
type Selector struct {
	variants []Variant
	jobs     int
	logger   *slog.Logger
}

// NewSelector returns a selector trying variants in the given order.
func NewSelector(variants []Variant, config SelectorConfig) *Selector {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	jobs := config.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return &Selector{
		variants: append([]Variant(nil), variants...),
		jobs:     jobs,
		logger:   logger,
	}
}

// decodeResult is the outcome of trying every variant on one blob,
// written by exactly one goroutine.
type decodeResult struct {
	parser   trace.Parser
	variant  Variant
	failures error
}

// Select decodes blobs and returns the accepted parsers and the
// rejected blobs, both in blob order.
//
// For each blob the variants are tried in order and the first that
// decodes it wins. The parser is accepted unless an earlier blob
// already produced a parser of the same type, in which case the blob
// is reported as AlreadyLoaded. A blob no variant decodes is reported
// as UnsupportedFormat.
//
// Blobs are decoded concurrently; acceptance is decided afterwards in
// blob order, so the result does not depend on scheduling. The only
// error returned is the context's.
func (s *Selector) Select(ctx context.Context, blobs []blob.Blob) ([]trace.Parser, []*Error, error) {
	results := make([]decodeResult, len(blobs))

	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(max(1, min(s.jobs, len(blobs))))
	for i, input := range blobs {
		group.Go(func() error {
			if err := groupContext.Err(); err != nil {
				return err
			}
			results[i] = s.decode(input)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		parsers  []trace.Parser
		rejected []*Error
	)
	loaded := make(map[trace.Type]string)
	for i, result := range results {
		source := blobs[i].Name
		if result.parser == nil {
			s.logger.Debug("no parser variant accepted blob", "source", source, "error", result.failures)
			rejected = append(rejected, &Error{Source: source, Kind: UnsupportedFormat, Cause: result.failures})
			continue
		}

		traceType := result.parser.Type()
		if earlier, claimed := loaded[traceType]; claimed {
			s.logger.Debug("dropping duplicate trace",
				"source", source,
				"type", traceType.String(),
				"loaded_from", earlier,
			)
			rejected = append(rejected, &Error{Source: source, Kind: AlreadyLoaded, Type: traceType})
			continue
		}

		loaded[traceType] = source
		parsers = append(parsers, result.parser)
		s.logger.Debug("parser selected",
			"source", source,
			"variant", result.variant.Name(),
			"entries", result.parser.LengthEntries(),
		)
	}
	return parsers, rejected, nil
}

// decode tries every variant in order on input.
func (s *Selector) decode(input blob.Blob) decodeResult {
	var failures error
	for _, variant := range s.variants {
		parser, err := variant.Decode(input)
		if err == nil {
			return decodeResult{parser: parser, variant: variant}
		}
		failures = multierr.Append(failures, err)
	}
	return decodeResult{failures: failures}
}
