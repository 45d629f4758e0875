// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timestamp defines clock-domain tagged instants.
//
// Trace files captured by different subsystems record time in one of two
// incompatible bases: [Elapsed] (monotonic nanoseconds since boot) and
// [Real] (wall-clock nanoseconds since the Unix epoch). A [Timestamp]
// carries its domain with its value, and comparisons across domains are
// refused: [Timestamp.Compare] panics and [Timestamp.CompareChecked]
// returns [ErrDomainMismatch].
//
// All arithmetic is int64 nanoseconds. The package has no dependencies
// on other packages in this module.
package timestamp
