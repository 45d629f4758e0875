// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
)

// MemoryParser is a trace.Parser over timestamps and values held in
// memory. Build one with [NewMemoryParser].
type MemoryParser struct {
	traceType trace.Type
	elapsed   []timestamp.Timestamp
	wall      []timestamp.Timestamp
	values    []any
	name      string
}

// NewMemoryParser returns a parser of traceType with one entry per
// elapsed timestamp. Entries have no value until [MemoryParser.WithValues].
func NewMemoryParser(traceType trace.Type, elapsedNs ...int64) *MemoryParser {
	parser := &MemoryParser{
		traceType: traceType,
		elapsed:   make([]timestamp.Timestamp, 0, len(elapsedNs)),
		values:    make([]any, len(elapsedNs)),
		name:      UniqueID("memory." + traceType.String()),
	}
	for _, value := range elapsedNs {
		parser.elapsed = append(parser.elapsed, timestamp.New(timestamp.Elapsed, value))
	}
	return parser
}

// WithRealOffset adds real timestamps at elapsed + offsetNs.
func (p *MemoryParser) WithRealOffset(offsetNs int64) *MemoryParser {
	p.wall = make([]timestamp.Timestamp, len(p.elapsed))
	for i, elapsed := range p.elapsed {
		p.wall[i] = timestamp.New(timestamp.Real, elapsed.ValueNs()+offsetNs)
	}
	return p
}

// WithValues sets the entry values in order. Panics if the count
// differs from the number of timestamps.
func (p *MemoryParser) WithValues(values ...any) *MemoryParser {
	if len(values) != len(p.elapsed) {
		panic(fmt.Sprintf("testutil: %d values for %d entries", len(values), len(p.elapsed)))
	}
	p.values = values
	return p
}

// Type implements trace.Parser.
func (p *MemoryParser) Type() trace.Type { return p.traceType }

// LengthEntries implements trace.Parser.
func (p *MemoryParser) LengthEntries() int { return len(p.elapsed) }

// Timestamps implements trace.Parser.
func (p *MemoryParser) Timestamps(domain timestamp.Domain) []timestamp.Timestamp {
	switch domain {
	case timestamp.Elapsed:
		return p.elapsed
	case timestamp.Real:
		return p.wall
	default:
		return nil
	}
}

// Entry implements trace.Parser.
func (p *MemoryParser) Entry(ctx context.Context, index int, _ timestamp.Domain) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(p.values) {
		return nil, fmt.Errorf("entry %d: %w", index, trace.ErrOutOfBounds)
	}
	return p.values[index], nil
}

// Descriptors implements trace.Parser.
func (p *MemoryParser) Descriptors() []string { return []string{p.name} }

// NewTrace wraps parser in a full trace initialized in the elapsed
// domain.
func NewTrace(t *testing.T, parser trace.Parser) *trace.Trace {
	t.Helper()
	full := trace.New(parser)
	if err := full.Init(timestamp.Elapsed); err != nil {
		t.Fatalf("initializing %s trace: %v", parser.Type(), err)
	}
	return full
}
