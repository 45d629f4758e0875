// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"fortio.org/safecast"

	"github.com/PixelExperience/development/lib/blob"
	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
)

// mpeg4Prefix is the "ftyp" box header of an mp42 file.
var mpeg4Prefix = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2'}

var (
	screenRecordingMagic       = []byte("#VV1NSC0PET1ME2#")
	legacyScreenRecordingMagic = []byte("#VV1NSC0PET1ME!#")
)

const screenRecordingVersion = 1

// screenRecordingVariant decodes recordings carrying the versioned
// metadata block: version (uint32), real-to-elapsed offset in ns
// (uint64), frame count (uint32) and one elapsed timestamp in ns
// (uint64) per frame, all little-endian.
type screenRecordingVariant struct{}

func (screenRecordingVariant) Name() string { return "screen_recording" }

func (screenRecordingVariant) Type() trace.Type { return trace.ScreenRecording }

func (v screenRecordingVariant) Decode(input blob.Blob) (trace.Parser, error) {
	reader, err := metadataReader(input.Data, screenRecordingMagic)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.Name(), err)
	}
	version, err := reader.uint32()
	if err != nil {
		return nil, fmt.Errorf("%s: version: %w", v.Name(), err)
	}
	if version != screenRecordingVersion {
		return nil, fmt.Errorf("%s: %w: unsupported metadata version %d", v.Name(), ErrMalformed, version)
	}
	rawOffset, err := reader.uint64()
	if err != nil {
		return nil, fmt.Errorf("%s: offset: %w", v.Name(), err)
	}
	offsetNs, err := scaleOffset(rawOffset, nanosecond)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.Name(), err)
	}
	elapsed, err := reader.timestamps(1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.Name(), err)
	}
	wall, err := realTimestamps(elapsed, offsetNs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.Name(), err)
	}
	return &screenRecordingParser{
		source:  input.Name,
		elapsed: elapsed,
		wall:    wall,
	}, nil
}

// legacyScreenRecordingVariant decodes recordings from before the
// metadata was versioned: frame count (uint32) and one elapsed
// timestamp in microseconds (uint64) per frame. Legacy recordings carry
// no clock offset, so they only support the elapsed domain.
type legacyScreenRecordingVariant struct{}

func (legacyScreenRecordingVariant) Name() string { return "screen_recording_legacy" }

func (legacyScreenRecordingVariant) Type() trace.Type { return trace.ScreenRecording }

func (v legacyScreenRecordingVariant) Decode(input blob.Blob) (trace.Parser, error) {
	reader, err := metadataReader(input.Data, legacyScreenRecordingMagic)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.Name(), err)
	}
	elapsed, err := reader.timestamps(1000)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.Name(), err)
	}
	return &screenRecordingParser{source: input.Name, elapsed: elapsed}, nil
}

// metadataReader checks the MPEG-4 prefix and positions a reader just
// after the metadata magic.
func metadataReader(data, magic []byte) (*littleEndianReader, error) {
	if !bytes.HasPrefix(data, mpeg4Prefix) {
		return nil, ErrMagicMismatch
	}
	position := bytes.Index(data, magic)
	if position < 0 {
		return nil, fmt.Errorf("%w: no %q metadata block", ErrMagicMismatch, magic)
	}
	return &littleEndianReader{data: data[position+len(magic):]}, nil
}

type littleEndianReader struct {
	data []byte
}

func (r *littleEndianReader) uint32() (uint32, error) {
	if len(r.data) < 4 {
		return 0, fmt.Errorf("%w: metadata truncated", ErrMalformed)
	}
	value := binary.LittleEndian.Uint32(r.data)
	r.data = r.data[4:]
	return value, nil
}

func (r *littleEndianReader) uint64() (uint64, error) {
	if len(r.data) < 8 {
		return 0, fmt.Errorf("%w: metadata truncated", ErrMalformed)
	}
	value := binary.LittleEndian.Uint64(r.data)
	r.data = r.data[8:]
	return value, nil
}

// timestamps reads a frame count followed by that many timestamps,
// multiplying each by scaleNs to get nanoseconds.
func (r *littleEndianReader) timestamps(scaleNs int64) ([]timestamp.Timestamp, error) {
	count, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("frame count: %w", err)
	}
	if uint64(count)*8 > uint64(len(r.data)) {
		return nil, fmt.Errorf("%w: %d frame timestamps declared, %d bytes left", ErrMalformed, count, len(r.data))
	}
	elapsed := make([]timestamp.Timestamp, count)
	for i := range elapsed {
		raw, _ := r.uint64()
		value, err := safecast.Conv[int64](raw)
		if err != nil || value > math.MaxInt64/scaleNs {
			return nil, fmt.Errorf("%w: frame %d timestamp %d out of range", ErrMalformed, i, raw)
		}
		elapsed[i] = timestamp.New(timestamp.Elapsed, value*scaleNs)
	}
	if err := checkOrdered(elapsed); err != nil {
		return nil, err
	}
	return elapsed, nil
}

// screenRecordingParser exposes one entry per video frame.
type screenRecordingParser struct {
	source  string
	elapsed []timestamp.Timestamp
	wall    []timestamp.Timestamp
}

func (p *screenRecordingParser) Type() trace.Type { return trace.ScreenRecording }

func (p *screenRecordingParser) LengthEntries() int { return len(p.elapsed) }

func (p *screenRecordingParser) Timestamps(domain timestamp.Domain) []timestamp.Timestamp {
	return pickTimestamps(domain, p.elapsed, p.wall)
}

func (p *screenRecordingParser) Descriptors() []string { return []string{p.source} }

// Entry returns a *Record whose videoTimeSeconds property is the frame's
// position in the video, measured from the first frame.
func (p *screenRecordingParser) Entry(ctx context.Context, index int, domain timestamp.Domain) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timestamps, err := checkEntryAccess(p, index, domain)
	if err != nil {
		return nil, err
	}
	offsetNs := p.elapsed[index].ValueNs() - p.elapsed[0].ValueNs()
	return &Record{
		Type:      trace.ScreenRecording,
		Index:     index,
		Timestamp: timestamps[index],
		Properties: map[string]any{
			"videoTimeSeconds": float64(offsetNs) / 1e9,
		},
	}, nil
}
