// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !(darwin || linux)

package blob

import "errors"

func mapFile(path string, size int64) ([]byte, func() error, error) {
	return nil, nil, errors.New("memory mapping is not supported on this platform")
}

const mmapSupported = false
