// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"sort"

	"github.com/PixelExperience/development/lib/timestamp"
)

// firstGreaterOrEqual returns the smallest index whose timestamp is
// >= target, or len(timestamps) if there is none. The caller has
// already checked that the domains agree.
func firstGreaterOrEqual(timestamps []timestamp.Timestamp, target timestamp.Timestamp) int {
	value := target.ValueNs()
	return sort.Search(len(timestamps), func(i int) bool {
		return timestamps[i].ValueNs() >= value
	})
}

// firstGreater returns the smallest index whose timestamp is > target,
// or len(timestamps) if there is none.
func firstGreater(timestamps []timestamp.Timestamp, target timestamp.Timestamp) int {
	value := target.ValueNs()
	return sort.Search(len(timestamps), func(i int) bool {
		return timestamps[i].ValueNs() > value
	})
}
