// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"maps"
	"slices"

	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
)

// Record is the decoded value of one trace entry: its position, its
// timestamp in the requested domain, and the properties the format
// schema names (camelCase, as in the trace's protobuf definition).
type Record struct {
	Type      trace.Type
	Index     int
	Timestamp timestamp.Timestamp

	// Properties holds int64, int32, uint64, bool, string and []byte
	// scalars, and typed slices for repeated fields.
	Properties map[string]any

	// Raw is the encoded entry message. It aliases the source blob.
	Raw []byte
}

// Property returns the named property, or false if the entry does not
// carry it.
func (r *Record) Property(name string) (any, bool) {
	value, ok := r.Properties[name]
	return value, ok
}

// PropertyNames returns the names of the properties present, sorted.
func (r *Record) PropertyNames() []string {
	return slices.Sorted(maps.Keys(r.Properties))
}
