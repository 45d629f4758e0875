// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"errors"
	"sync"
)

// Blob is one trace file's bytes together with a descriptor naming
// where they came from.
type Blob struct {
	// Name is the source path, extended with the member path for
	// blobs extracted from archives ("capture.zip/wm_trace.winscope")
	// and with the compression suffix removed for decompressed
	// streams.
	Name string

	// Data is the raw content. For memory-mapped files it aliases a
	// read-only mapping owned by the Set.
	Data []byte

	// Digest is the keyed BLAKE3 digest of Data.
	Digest Digest
}

// New returns a blob over data with its digest computed.
func New(name string, data []byte) Blob {
	return Blob{Name: name, Data: data, Digest: ComputeDigest(data)}
}

// Set is the ordered result of a load. It owns any memory mappings
// backing its blobs.
type Set struct {
	Blobs []Blob

	mu       sync.Mutex
	releases []func() error
}

// NewSet returns a set over blobs that owns no mappings. Used by
// callers that already hold their trace bytes in memory.
func NewSet(blobs ...Blob) *Set {
	return &Set{Blobs: blobs}
}

// Len returns the number of blobs.
func (s *Set) Len() int { return len(s.Blobs) }

// Close releases every memory mapping held by the set. Blob data that
// aliased a mapping must not be read afterwards. Close is idempotent.
func (s *Set) Close() error {
	s.mu.Lock()
	releases := s.releases
	s.releases = nil
	s.mu.Unlock()

	var errs []error
	for _, release := range releases {
		if err := release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
