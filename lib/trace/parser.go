// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"context"

	"github.com/PixelExperience/development/lib/timestamp"
)

// Parser is the capability set a [Trace] needs from a decoded trace
// file. Implementations live in lib/parser; a Parser holds no reference
// back to the traces that wrap it.
type Parser interface {
	// Type returns the subsystem the decoded file came from.
	Type() Type

	// LengthEntries returns the number of decoded entries.
	LengthEntries() int

	// Timestamps returns one timestamp per entry in the given domain,
	// ordered non-decreasingly, or nil if the file carries no time
	// information for that domain. The returned slice must not be
	// modified.
	Timestamps(domain timestamp.Domain) []timestamp.Timestamp

	// Entry re-materializes the decoded value at the absolute index.
	// Implementations may decode lazily, so the call may block and
	// honours ctx.
	Entry(ctx context.Context, index int, domain timestamp.Domain) (any, error)

	// Descriptors names the source blobs the parser was built from.
	Descriptors() []string
}

// SupportsDomain reports whether parser carries timestamps in domain.
func SupportsDomain(parser Parser, domain timestamp.Domain) bool {
	return parser.Timestamps(domain) != nil
}
