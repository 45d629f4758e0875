// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/PixelExperience/development/lib/blob"
	"github.com/PixelExperience/development/lib/config"
	"github.com/PixelExperience/development/lib/framemapper"
	"github.com/PixelExperience/development/lib/parser"
	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
)

// ErrNoCommonDomain is returned when the loaded traces share no
// timestamp domain.
var ErrNoCommonDomain = errors.New("no timestamp domain supported by every trace")

// Options tunes a load.
type Options struct {
	// Jobs bounds concurrent reads, decodes and entry extraction.
	// Zero or negative means GOMAXPROCS.
	Jobs int

	// MmapThreshold and MaxDecompressedSize are passed to [blob.Load].
	MmapThreshold       int64
	MaxDecompressedSize int64

	// Variants is the format priority order. Nil means
	// [parser.DefaultVariants].
	Variants []parser.Variant

	// Domain forces the timestamp domain. Zero picks real when every
	// trace supports it, else elapsed.
	Domain timestamp.Domain

	// Anchors and DisabledSteps configure the frame mapper.
	Anchors       []trace.Type
	DisabledSteps []framemapper.Step

	Logger *slog.Logger
}

// OptionsFromConfig converts the loaded configuration file into Options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) (Options, error) {
	variants, err := parser.ParseVariants(cfg.Parsers.Order)
	if err != nil {
		return Options{}, fmt.Errorf("parsers.order: %w", err)
	}
	domain, _, err := cfg.Load.TimestampDomain()
	if err != nil {
		return Options{}, err
	}
	anchors, err := cfg.Frames.AnchorTypes()
	if err != nil {
		return Options{}, err
	}
	disabled, err := cfg.Frames.Disabled()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Jobs:                cfg.Load.Jobs,
		MmapThreshold:       cfg.Load.MmapThreshold,
		MaxDecompressedSize: cfg.Load.MaxDecompressedSize,
		Variants:            variants,
		Domain:              domain,
		Anchors:             anchors,
		DisabledSteps:       disabled,
		Logger:              logger,
	}, nil
}

// Session is the result of a load: correlated traces and the files
// that could not be used.
type Session struct {
	// Traces holds one full trace per loaded type, initialized in
	// Domain, with frame info attached where the mapper could derive
	// it.
	Traces *trace.Traces

	// Errors lists rejected blobs in input order.
	Errors []*parser.Error

	// Domain is the timestamp domain every trace is indexed in.
	Domain timestamp.Domain

	blobs *blob.Set
}

// Load reads paths and builds a session from them. It fails on
// unreadable files, on traces without a common timestamp domain and on
// context cancellation.
func Load(ctx context.Context, paths []string, options Options) (*Session, error) {
	blobs, err := blob.Load(ctx, paths, blob.Options{
		Jobs:                options.Jobs,
		MmapThreshold:       options.MmapThreshold,
		MaxDecompressedSize: options.MaxDecompressedSize,
		Logger:              options.Logger,
	})
	if err != nil {
		return nil, err
	}
	session, err := Open(ctx, blobs, options)
	if err != nil {
		return nil, errors.Join(err, blobs.Close())
	}
	return session, nil
}

// Open builds a session from blobs already in memory. The session
// takes ownership of blobs and closes them in [Session.Close].
func Open(ctx context.Context, blobs *blob.Set, options Options) (*Session, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	variants := options.Variants
	if variants == nil {
		variants = parser.DefaultVariants()
	}

	selector := parser.NewSelector(variants, parser.SelectorConfig{Jobs: options.Jobs, Logger: logger})
	parsers, rejected, err := selector.Select(ctx, blobs.Blobs)
	if err != nil {
		return nil, err
	}
	for _, parserError := range rejected {
		logger.Warn("trace file rejected",
			"source", parserError.Source,
			"kind", parserError.Kind.String(),
			"error", parserError,
		)
	}

	domain, err := SelectDomain(parsers, options.Domain)
	if err != nil {
		return nil, err
	}

	traces := trace.NewTraces()
	for _, decoded := range parsers {
		full := trace.New(decoded)
		if err := full.Init(domain); err != nil {
			return nil, err
		}
		traces.Set(full)
		logger.Debug("trace loaded",
			"type", decoded.Type().String(),
			"entries", decoded.LengthEntries(),
			"sources", decoded.Descriptors(),
		)
	}

	mapper := framemapper.New(traces, framemapper.Config{
		Anchors:  options.Anchors,
		Disabled: options.DisabledSteps,
		Jobs:     options.Jobs,
		Logger:   logger,
	})
	if err := mapper.ComputeMapping(ctx); err != nil {
		return nil, err
	}

	return &Session{
		Traces: traces,
		Errors: rejected,
		Domain: domain,
		blobs:  blobs,
	}, nil
}

// SelectDomain returns the domain every parser supports. A nonzero
// forced domain is used as is if every parser supports it. Otherwise
// real is preferred over elapsed. With no parsers the domain is
// elapsed.
func SelectDomain(parsers []trace.Parser, forced timestamp.Domain) (timestamp.Domain, error) {
	if forced != 0 {
		for _, decoded := range parsers {
			if !trace.SupportsDomain(decoded, forced) {
				return 0, fmt.Errorf("%w: %s trace has no %s timestamps",
					ErrNoCommonDomain, decoded.Type(), forced)
			}
		}
		return forced, nil
	}
	if len(parsers) == 0 {
		return timestamp.Elapsed, nil
	}
	for _, candidate := range []timestamp.Domain{timestamp.Real, timestamp.Elapsed} {
		supported := true
		for _, decoded := range parsers {
			if !trace.SupportsDomain(decoded, candidate) {
				supported = false
				break
			}
		}
		if supported {
			return candidate, nil
		}
	}
	return 0, ErrNoCommonDomain
}

// Sources returns the blobs a trace was decoded from, in load order.
func (s *Session) Sources(full *trace.Trace) []blob.Blob {
	var sources []blob.Blob
	for _, name := range full.Descriptors() {
		for _, candidate := range s.blobs.Blobs {
			if candidate.Name == name {
				sources = append(sources, candidate)
				break
			}
		}
	}
	return sources
}

// Close releases the memory mappings backing the session's traces.
// Traces must not be read afterwards.
func (s *Session) Close() error {
	return s.blobs.Close()
}
