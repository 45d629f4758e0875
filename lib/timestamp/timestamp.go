// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timestamp

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrDomainMismatch is returned when two timestamps from different
// clock domains are compared, or when a trace is queried with a
// timestamp whose domain it does not support.
var ErrDomainMismatch = errors.New("timestamp domain mismatch")

// Domain identifies the clock a timestamp was taken from.
type Domain uint8

const (
	// Elapsed is the monotonic time since boot (CLOCK_BOOTTIME).
	Elapsed Domain = iota + 1

	// Real is the wall-clock time since the Unix epoch.
	Real
)

// Domains lists every domain in preference order for display.
var Domains = []Domain{Real, Elapsed}

// String returns the lowercase name of the domain.
func (d Domain) String() string {
	switch d {
	case Elapsed:
		return "elapsed"
	case Real:
		return "real"
	default:
		return fmt.Sprintf("domain(%d)", uint8(d))
	}
}

// ParseDomain parses the name produced by [Domain.String].
func ParseDomain(name string) (Domain, error) {
	switch strings.ToLower(name) {
	case "elapsed":
		return Elapsed, nil
	case "real":
		return Real, nil
	default:
		return 0, fmt.Errorf("unknown timestamp domain %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler so domains serialize
// by name in JSON, YAML and CBOR.
func (d Domain) MarshalText() ([]byte, error) {
	if d != Elapsed && d != Real {
		return nil, fmt.Errorf("cannot marshal invalid domain %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Domain) UnmarshalText(text []byte) error {
	parsed, err := ParseDomain(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Timestamp is a point in time in a specific clock domain. The zero
// value has no domain and is not valid.
type Timestamp struct {
	domain Domain
	value  int64
}

// New returns a timestamp of valueNs nanoseconds in the given domain.
func New(domain Domain, valueNs int64) Timestamp {
	return Timestamp{domain: domain, value: valueNs}
}

// Domain returns the clock domain of t.
func (t Timestamp) Domain() Domain { return t.domain }

// ValueNs returns the raw nanosecond value of t.
func (t Timestamp) ValueNs() int64 { return t.value }

// IsZero reports whether t is the zero Timestamp (no domain).
func (t Timestamp) IsZero() bool { return t.domain == 0 }

// Add returns t shifted by deltaNs nanoseconds in the same domain,
// saturating at the int64 bounds.
func (t Timestamp) Add(deltaNs int64) Timestamp {
	value := t.value + deltaNs
	switch {
	case deltaNs > 0 && value < t.value:
		value = math.MaxInt64
	case deltaNs < 0 && value > t.value:
		value = math.MinInt64
	}
	return Timestamp{domain: t.domain, value: value}
}

// Compare returns -1, 0 or +1 as t is before, equal to or after other.
// Panics if the domains differ: comparing instants from different
// clocks is a programming error.
func (t Timestamp) Compare(other Timestamp) int {
	result, err := t.CompareChecked(other)
	if err != nil {
		panic(err.Error())
	}
	return result
}

// CompareChecked is [Timestamp.Compare] returning [ErrDomainMismatch]
// instead of panicking.
func (t Timestamp) CompareChecked(other Timestamp) (int, error) {
	if t.domain != other.domain {
		return 0, fmt.Errorf("%w: cannot compare %s timestamp with %s timestamp",
			ErrDomainMismatch, t.domain, other.domain)
	}
	switch {
	case t.value < other.value:
		return -1, nil
	case t.value > other.value:
		return 1, nil
	default:
		return 0, nil
	}
}

// Before reports whether t is strictly before other. Panics on domain
// mismatch.
func (t Timestamp) Before(other Timestamp) bool { return t.Compare(other) < 0 }

// After reports whether t is strictly after other. Panics on domain
// mismatch.
func (t Timestamp) After(other Timestamp) bool { return t.Compare(other) > 0 }

// Sub returns t - other in nanoseconds. Panics on domain mismatch.
func (t Timestamp) Sub(other Timestamp) int64 {
	t.Compare(other)
	return t.value - other.value
}

// AbsDiff returns |t - other| in nanoseconds. Panics on domain
// mismatch.
func (t Timestamp) AbsDiff(other Timestamp) int64 {
	diff := t.Sub(other)
	if diff < 0 {
		return -diff
	}
	return diff
}

// String formats t for humans. Elapsed timestamps render as a duration
// since boot ("1h2m3s4ms5ns"); real timestamps render as RFC 3339 in
// UTC with nanosecond precision.
func (t Timestamp) String() string {
	switch t.domain {
	case Elapsed:
		return formatElapsed(t.value)
	case Real:
		return time.Unix(0, t.value).UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("invalid(%d)", t.value)
	}
}

// formatElapsed renders nanoseconds with day, hour, minute, second,
// millisecond and nanosecond units, omitting leading zero units.
func formatElapsed(ns int64) string {
	if ns == 0 {
		return "0ns"
	}
	var builder strings.Builder
	if ns < 0 {
		builder.WriteByte('-')
		ns = -ns
	}
	units := []struct {
		suffix string
		size   int64
	}{
		{"d", 24 * int64(time.Hour)},
		{"h", int64(time.Hour)},
		{"m", int64(time.Minute)},
		{"s", int64(time.Second)},
		{"ms", int64(time.Millisecond)},
		{"ns", 1},
	}
	for _, unit := range units {
		count := ns / unit.size
		ns -= count * unit.size
		if count > 0 {
			fmt.Fprintf(&builder, "%d%s", count, unit.suffix)
		}
	}
	return builder.String()
}
