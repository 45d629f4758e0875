// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteTraceFile writes data into a fresh file under the test's
// temporary directory and returns its path. The file name is made
// unique with [UniqueID] so a test can write several traces of the
// same kind.
func WriteTraceFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	directory := TraceDir(t)
	path := filepath.Join(directory, UniqueID(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing trace file %s: %v", path, err)
	}
	return path
}

// TraceDir returns a per-test directory for trace files, created once
// and removed when the test completes.
func TraceDir(t *testing.T) string {
	t.Helper()
	directory := filepath.Join(t.TempDir(), "traces")
	if err := os.MkdirAll(directory, 0o755); err != nil {
		t.Fatalf("creating trace directory: %v", err)
	}
	return directory
}
