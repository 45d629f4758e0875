// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"

	"fortio.org/safecast"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/PixelExperience/development/lib/blob"
	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
)

// ErrMagicMismatch is returned by Decode when a blob does not start
// with the variant's magic number.
var ErrMagicMismatch = errors.New("magic number mismatch")

// magicTag is the tag byte of field 1 with wire type fixed64, which
// every protobuf trace file starts with.
const magicTag = 0x09

const magicFieldNumber protowire.Number = 1

// protoFormat describes one protobuf trace file layout.
type protoFormat struct {
	name      string
	traceType trace.Type
	magic     string

	// entriesField is the repeated entry message field of the file.
	entriesField protowire.Number

	// offsetField holds real_to_elapsed_time_offset as fixed64, in
	// units of offsetUnitNs nanoseconds. Zero if the format has none.
	offsetField  protowire.Number
	offsetUnitNs int64

	// elapsedField is the entry's elapsed timestamp field.
	elapsedField fieldSpec

	// properties are the entry fields surfaced in a Record.
	properties []fieldSpec
}

// protoVariant decodes one protoFormat.
type protoVariant struct {
	format *protoFormat
}

func (v protoVariant) Name() string { return v.format.name }

func (v protoVariant) Type() trace.Type { return v.format.traceType }

func (v protoVariant) Decode(input blob.Blob) (trace.Parser, error) {
	format := v.format
	data := input.Data
	if len(data) < 1+len(format.magic) || data[0] != magicTag || !bytes.Equal(data[1:1+len(format.magic)], []byte(format.magic)) {
		return nil, fmt.Errorf("%s: %w", format.name, ErrMagicMismatch)
	}

	var (
		entries   [][]byte
		offset    uint64
		hasOffset bool
	)
	err := walkMessage(data, func(number protowire.Number, wireType protowire.Type, value []byte) error {
		switch {
		case number == magicFieldNumber:
			return checkWireType(number, wireType, protowire.Fixed64Type)
		case number == format.entriesField:
			if err := checkWireType(number, wireType, protowire.BytesType); err != nil {
				return err
			}
			entry, n := protowire.ConsumeBytes(value)
			if n < 0 {
				return malformedValue(n)
			}
			entries = append(entries, entry)
		case format.offsetField != 0 && number == format.offsetField:
			if err := checkWireType(number, wireType, protowire.Fixed64Type); err != nil {
				return err
			}
			offset, _ = protowire.ConsumeFixed64(value)
			hasOffset = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format.name, err)
	}

	elapsed := make([]timestamp.Timestamp, len(entries))
	for index, entry := range entries {
		value, err := decodeElapsed(entry, format.elapsedField)
		if err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", format.name, index, err)
		}
		elapsed[index] = timestamp.New(timestamp.Elapsed, value)
	}
	if err := checkOrdered(elapsed); err != nil {
		return nil, fmt.Errorf("%s: %w", format.name, err)
	}

	parser := &protoParser{
		format:  format,
		source:  input.Name,
		entries: entries,
		elapsed: elapsed,
	}
	if hasOffset {
		offsetNs, err := scaleOffset(offset, format.offsetUnitNs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", format.name, err)
		}
		if parser.wall, err = realTimestamps(elapsed, offsetNs); err != nil {
			return nil, fmt.Errorf("%s: %w", format.name, err)
		}
	}
	return parser, nil
}

// decodeElapsed returns the elapsed timestamp of an entry, zero when
// the field is absent.
func decodeElapsed(entry []byte, spec fieldSpec) (int64, error) {
	properties, err := decodeFields(entry, []fieldSpec{spec})
	if err != nil {
		return 0, err
	}
	value, ok := properties[spec.name]
	if !ok {
		return 0, nil
	}
	return int64Timestamp(value)
}

// checkOrdered rejects streams whose timestamps decrease: every trace
// view relies on binary search over them.
func checkOrdered(timestamps []timestamp.Timestamp) error {
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i].Before(timestamps[i-1]) {
			return fmt.Errorf("%w: entry %d at %v precedes entry %d at %v",
				ErrMalformed, i, timestamps[i], i-1, timestamps[i-1])
		}
	}
	return nil
}

// scaleOffset converts a raw file offset to nanoseconds.
func scaleOffset(raw uint64, unitNs int64) (int64, error) {
	offset, err := safecast.Conv[int64](raw)
	if err != nil {
		return 0, fmt.Errorf("%w: real-to-elapsed offset %d: %v", ErrMalformed, raw, err)
	}
	if unitNs > 1 && offset > math.MaxInt64/unitNs {
		return 0, fmt.Errorf("%w: real-to-elapsed offset %d overflows nanoseconds", ErrMalformed, raw)
	}
	return offset * unitNs, nil
}

// realTimestamps shifts elapsed timestamps by a non-negative offset
// from scaleOffset. A shift past the int64 range is malformed.
func realTimestamps(elapsed []timestamp.Timestamp, offsetNs int64) ([]timestamp.Timestamp, error) {
	wall := make([]timestamp.Timestamp, len(elapsed))
	for i, value := range elapsed {
		if value.ValueNs() > math.MaxInt64-offsetNs {
			return nil, fmt.Errorf("%w: entry %d at %dns overflows real time with offset %dns",
				ErrMalformed, i, value.ValueNs(), offsetNs)
		}
		wall[i] = timestamp.New(timestamp.Real, value.ValueNs()+offsetNs)
	}
	return wall, nil
}

// protoParser is the trace.Parser of a decoded protobuf trace file.
type protoParser struct {
	format  *protoFormat
	source  string
	entries [][]byte
	elapsed []timestamp.Timestamp
	wall    []timestamp.Timestamp
}

func (p *protoParser) Type() trace.Type { return p.format.traceType }

func (p *protoParser) LengthEntries() int { return len(p.entries) }

func (p *protoParser) Timestamps(domain timestamp.Domain) []timestamp.Timestamp {
	return pickTimestamps(domain, p.elapsed, p.wall)
}

func (p *protoParser) Descriptors() []string { return []string{p.source} }

// Entry decodes the properties of the entry at index into a *Record.
func (p *protoParser) Entry(ctx context.Context, index int, domain timestamp.Domain) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timestamps, err := checkEntryAccess(p, index, domain)
	if err != nil {
		return nil, err
	}
	properties, err := decodeFields(p.entries[index], p.format.properties)
	if err != nil {
		return nil, fmt.Errorf("%s entry %d: %w", p.format.name, index, err)
	}
	return &Record{
		Type:       p.format.traceType,
		Index:      index,
		Timestamp:  timestamps[index],
		Properties: properties,
		Raw:        p.entries[index],
	}, nil
}

func pickTimestamps(domain timestamp.Domain, elapsed, wall []timestamp.Timestamp) []timestamp.Timestamp {
	switch domain {
	case timestamp.Elapsed:
		return elapsed
	case timestamp.Real:
		return wall
	default:
		return nil
	}
}

// checkEntryAccess validates an Entry call and returns the timestamps
// of the requested domain.
func checkEntryAccess(parser trace.Parser, index int, domain timestamp.Domain) ([]timestamp.Timestamp, error) {
	if index < 0 || index >= parser.LengthEntries() {
		return nil, fmt.Errorf("%s entry %d of %d: %w", parser.Type(), index, parser.LengthEntries(), trace.ErrOutOfBounds)
	}
	timestamps := parser.Timestamps(domain)
	if timestamps == nil {
		return nil, fmt.Errorf("%s entry %d: %w: no %s timestamps", parser.Type(), index, timestamp.ErrDomainMismatch, domain)
	}
	return timestamps, nil
}
