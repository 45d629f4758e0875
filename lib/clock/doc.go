// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable wall clock.
//
// Code that stamps output with the current time (export file names)
// accepts a Clock instead of calling time.Now directly. Production
// wiring passes Real(); tests pass Fake() and get stable names:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	root := commands.Root(stdout, stderr, c)
//	c.Advance(time.Second)
package clock
