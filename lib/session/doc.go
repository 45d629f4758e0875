// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session turns a list of trace files into correlated traces.
//
// [Load] reads the files (expanding archives and compressed streams),
// hands the blobs to the parser selector, picks the timestamp domain
// every trace will be indexed in, wraps each parser in a full
// [trace.Trace], and runs the frame mapper over the result. Files that
// no format accepts, and duplicate traces of an already loaded type,
// are reported in [Session.Errors] rather than failing the load.
//
// A Session may hold memory-mapped file contents; call [Session.Close]
// when done with its traces.
package session
