// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package blob

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mapFile maps size bytes of the file at path read-only. The returned
// release function unmaps the region; the descriptor is closed before
// returning since the mapping keeps the file referenced.
func mapFile(path string, size int64) ([]byte, func() error, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer unix.Close(fd)

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("memory-mapping %s: %w", path, err)
	}

	release := func() error {
		if err := unix.Munmap(data); err != nil {
			return fmt.Errorf("unmapping %s: %w", path, err)
		}
		return nil
	}
	return data, release, nil
}

const mmapSupported = true
