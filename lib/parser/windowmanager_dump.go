// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/PixelExperience/development/lib/blob"
	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
)

// rootWindowContainerField is the field every WindowManagerServiceDumpProto
// carries; a message without it is not a dump.
const rootWindowContainerField protowire.Number = 2

var windowManagerDumpFields = []fieldSpec{
	{1, "policy", kindBytes},
	{2, "rootWindowContainer", kindBytes},
	{3, "focusedWindow", kindBytes},
	{4, "focusedApp", kindString},
}

// windowManagerDumpVariant decodes a one-off window manager state dump
// (`dumpsys window --proto`). Dumps carry no magic number and no time
// information: they produce a single window manager entry at elapsed
// time zero.
type windowManagerDumpVariant struct{}

func (windowManagerDumpVariant) Name() string { return "window_manager_dump" }

func (windowManagerDumpVariant) Type() trace.Type { return trace.WindowManager }

func (v windowManagerDumpVariant) Decode(input blob.Blob) (trace.Parser, error) {
	hasRoot := false
	err := walkMessage(input.Data, func(number protowire.Number, wireType protowire.Type, value []byte) error {
		spec, ok := findSpec(windowManagerDumpFields, number)
		if !ok {
			return nil
		}
		if err := checkWireType(number, wireType, spec.kind.wireType()); err != nil {
			return err
		}
		if number == rootWindowContainerField {
			hasRoot = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.Name(), err)
	}
	if !hasRoot {
		return nil, fmt.Errorf("%s: %w: no root window container", v.Name(), ErrMalformed)
	}
	return &windowManagerDumpParser{source: input.Name, dump: input.Data}, nil
}

type windowManagerDumpParser struct {
	source string
	dump   []byte
}

var dumpTimestamps = []timestamp.Timestamp{timestamp.New(timestamp.Elapsed, 0)}

func (p *windowManagerDumpParser) Type() trace.Type { return trace.WindowManager }

func (p *windowManagerDumpParser) LengthEntries() int { return 1 }

func (p *windowManagerDumpParser) Timestamps(domain timestamp.Domain) []timestamp.Timestamp {
	return pickTimestamps(domain, dumpTimestamps, nil)
}

func (p *windowManagerDumpParser) Descriptors() []string { return []string{p.source} }

func (p *windowManagerDumpParser) Entry(ctx context.Context, index int, domain timestamp.Domain) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timestamps, err := checkEntryAccess(p, index, domain)
	if err != nil {
		return nil, err
	}
	properties, err := decodeFields(p.dump, windowManagerDumpFields)
	if err != nil {
		return nil, fmt.Errorf("window manager dump: %w", err)
	}
	return &Record{
		Type:       trace.WindowManager,
		Index:      index,
		Timestamp:  timestamps[index],
		Properties: properties,
		Raw:        p.dump,
	}, nil
}
