// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
)

// ZipMember is one file of a [ZipArchive].
type ZipMember struct {
	Name string
	Data []byte
}

// ZipArchive returns a zip archive holding members in order.
func ZipArchive(t *testing.T, members ...ZipMember) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for _, member := range members {
		file, err := writer.Create(member.Name)
		if err != nil {
			t.Fatalf("zip create %s: %v", member.Name, err)
		}
		if _, err := file.Write(member.Data); err != nil {
			t.Fatalf("zip write %s: %v", member.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buffer.Bytes()
}
