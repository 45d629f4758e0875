// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Magic numbers of the protobuf trace files: the 8 ASCII bytes stored
// in the fixed64 field 1 of the file message.
const (
	MagicSurfaceFlinger            = "LYRTRACE"
	MagicWindowManager             = "WINTRACE"
	MagicTransactions              = "TNXTRACE"
	MagicInputMethodClients        = "IMCTRACE"
	MagicInputMethodManagerService = "IMMTRACE"
	MagicInputMethodService        = "IMSTRACE"
	MagicProtoLog                  = "PROTOLOG"
	MagicAccessibility             = "A11YTRAC"
)

// Field appends one encoded protobuf field to a message.
type Field func(message []byte) []byte

// Fixed64 encodes an unsigned fixed64 field.
func Fixed64(number protowire.Number, value uint64) Field {
	return func(message []byte) []byte {
		message = protowire.AppendTag(message, number, protowire.Fixed64Type)
		return protowire.AppendFixed64(message, value)
	}
}

// Sfixed64 encodes a signed fixed64 field.
func Sfixed64(number protowire.Number, value int64) Field {
	return Fixed64(number, uint64(value))
}

// Sfixed32 encodes a signed fixed32 field.
func Sfixed32(number protowire.Number, value int32) Field {
	return func(message []byte) []byte {
		message = protowire.AppendTag(message, number, protowire.Fixed32Type)
		return protowire.AppendFixed32(message, uint32(value))
	}
}

// Int64 encodes an int64 field as a plain varint.
func Int64(number protowire.Number, value int64) Field {
	return Varint(number, uint64(value))
}

// Varint encodes an unsigned varint field.
func Varint(number protowire.Number, value uint64) Field {
	return func(message []byte) []byte {
		message = protowire.AppendTag(message, number, protowire.VarintType)
		return protowire.AppendVarint(message, value)
	}
}

// Bool encodes a bool field.
func Bool(number protowire.Number, value bool) Field {
	return Varint(number, protowire.EncodeBool(value))
}

// Sint64 encodes a zigzag sint64 field.
func Sint64(number protowire.Number, value int64) Field {
	return Varint(number, protowire.EncodeZigZag(value))
}

// Double encodes a double field.
func Double(number protowire.Number, value float64) Field {
	return Fixed64(number, math.Float64bits(value))
}

// String encodes a string field.
func String(number protowire.Number, value string) Field {
	return func(message []byte) []byte {
		message = protowire.AppendTag(message, number, protowire.BytesType)
		return protowire.AppendString(message, value)
	}
}

// Bytes encodes a bytes field holding raw, possibly malformed content.
func Bytes(number protowire.Number, value []byte) Field {
	return func(message []byte) []byte {
		message = protowire.AppendTag(message, number, protowire.BytesType)
		return protowire.AppendBytes(message, value)
	}
}

// Message encodes a nested message field built from fields.
func Message(number protowire.Number, fields ...Field) Field {
	return Bytes(number, EncodeMessage(fields...))
}

// PackedSint64 encodes a packed repeated sint64 field.
func PackedSint64(number protowire.Number, values ...int64) Field {
	var packed []byte
	for _, value := range values {
		packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(value))
	}
	return Bytes(number, packed)
}

// EncodeMessage returns the encoding of a message made of fields.
func EncodeMessage(fields ...Field) []byte {
	var message []byte
	for _, field := range fields {
		message = field(message)
	}
	return message
}

// ProtoTrace builds a protobuf-wire trace file: the magic number,
// repeated entry messages and the optional real-to-elapsed offset.
type ProtoTrace struct {
	magic        string
	entriesField protowire.Number
	header       []Field
	entries      [][]Field
}

// NewProtoTrace returns a builder for a trace file whose entries are
// field 2 of the file message, the layout shared by every trace type
// except ProtoLog.
func NewProtoTrace(magic string) *ProtoTrace {
	return &ProtoTrace{magic: magic, entriesField: 2}
}

// NewProtoLogTrace returns a builder for a ProtoLog file: version in
// field 2, entries in field 4.
func NewProtoLogTrace(version string) *ProtoTrace {
	trace := &ProtoTrace{magic: MagicProtoLog, entriesField: 4}
	return trace.Header(String(2, version))
}

// RealToElapsedOffset sets the file-level offset between the wall and
// monotonic clocks, in nanoseconds (field 3).
func (p *ProtoTrace) RealToElapsedOffset(offsetNs uint64) *ProtoTrace {
	return p.Header(Fixed64(3, offsetNs))
}

// RealToElapsedOffsetMillis sets the ProtoLog offset, stored in
// milliseconds (field 3).
func (p *ProtoTrace) RealToElapsedOffsetMillis(offsetMs uint64) *ProtoTrace {
	return p.Header(Fixed64(3, offsetMs))
}

// Header appends a file-level field written after the magic number.
func (p *ProtoTrace) Header(fields ...Field) *ProtoTrace {
	p.header = append(p.header, fields...)
	return p
}

// Entry appends one entry message made of fields.
func (p *ProtoTrace) Entry(fields ...Field) *ProtoTrace {
	p.entries = append(p.entries, fields)
	return p
}

// Bytes encodes the file.
func (p *ProtoTrace) Bytes() []byte {
	file := protowire.AppendTag(nil, 1, protowire.Fixed64Type)
	file = append(file, p.magic...)
	for _, field := range p.header {
		file = field(file)
	}
	for _, entry := range p.entries {
		file = Message(p.entriesField, entry...)(file)
	}
	return file
}

// SurfaceFlingerEntry is a LayersTraceProto entry with its elapsed
// timestamp (field 1, sfixed64) and vsync id (field 8).
func SurfaceFlingerEntry(elapsedNs, vsyncID int64) []Field {
	return []Field{Sfixed64(1, elapsedNs), String(2, "visibleRegionsDirty"), Int64(8, vsyncID)}
}

// TransactionsEntry is a TransactionTraceEntry with its elapsed
// timestamp (field 1) and vsync id (field 2).
func TransactionsEntry(elapsedNs, vsyncID int64) []Field {
	return []Field{Int64(1, elapsedNs), Int64(2, vsyncID)}
}

// ElapsedEntry is the common entry layout of the window manager and
// input method traces: elapsed timestamp (field 1, fixed64) and the
// "where" string (field 2).
func ElapsedEntry(elapsedNs int64, where string) []Field {
	return []Field{Fixed64(1, uint64(elapsedNs)), String(2, where)}
}

// AccessibilityEntry is an AccessibilityTraceEntryProto: elapsed
// timestamp (field 1), calendar time (field 2) and "where" (field 3).
func AccessibilityEntry(elapsedNs int64, calendarTime, where string) []Field {
	return []Field{Fixed64(1, uint64(elapsedNs)), String(2, calendarTime), String(3, where)}
}

// ProtoLogEntry is a ProtoLogMessage: message hash (field 1) and
// elapsed timestamp (field 2), plus packed sint64 parameters.
func ProtoLogEntry(elapsedNs int64, messageHash int32, sint64Params ...int64) []Field {
	fields := []Field{Sfixed32(1, messageHash), Fixed64(2, uint64(elapsedNs))}
	if len(sint64Params) > 0 {
		fields = append(fields, PackedSint64(4, sint64Params...))
	}
	return fields
}

// WindowManagerDump encodes a WindowManagerServiceDumpProto with a
// root window container (field 2) made of containerFields. Dumps have
// no magic number.
func WindowManagerDump(containerFields ...Field) []byte {
	return EncodeMessage(
		Message(1, String(1, "policy")),
		Message(2, containerFields...),
	)
}
