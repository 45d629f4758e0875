// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import "math"

// rangeUnion answers "smallest start, largest end" over any contiguous
// run of half-open ranges in O(log n). Empty ranges contribute nothing.
// It is a bottom-up segment tree: leaves live at [n, 2n) and node i
// covers the union of nodes 2i and 2i+1.
type rangeUnion struct {
	n      int
	starts []int
	ends   []int
}

// newRangeUnion builds the tree over n ranges; at(i) returns the i-th
// range as (start, end).
func newRangeUnion(n int, at func(int) (start, end int)) rangeUnion {
	union := rangeUnion{
		n:      n,
		starts: make([]int, 2*n),
		ends:   make([]int, 2*n),
	}
	for i := range n {
		start, end := at(i)
		if start >= end {
			start, end = math.MaxInt, math.MinInt
		}
		union.starts[n+i] = start
		union.ends[n+i] = end
	}
	for i := n - 1; i > 0; i-- {
		union.starts[i] = min(union.starts[2*i], union.starts[2*i+1])
		union.ends[i] = max(union.ends[2*i], union.ends[2*i+1])
	}
	return union
}

// query returns the union of the ranges at positions [low, high). The
// caller clamps both bounds to [0, n]. ok is false when every range in
// the run is empty.
func (u rangeUnion) query(low, high int) (start, end int, ok bool) {
	start, end = math.MaxInt, math.MinInt
	for low, high = low+u.n, high+u.n; low < high; low, high = low/2, high/2 {
		if low&1 == 1 {
			start = min(start, u.starts[low])
			end = max(end, u.ends[low])
			low++
		}
		if high&1 == 1 {
			high--
			start = min(start, u.starts[high])
			end = max(end, u.ends[high])
		}
	}
	return start, end, start < end
}
