// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import "slices"

// Traces holds at most one full trace per [Type] for a load session.
// It is not safe for concurrent mutation.
type Traces struct {
	byType map[Type]*Trace
}

// NewTraces returns an empty collection.
func NewTraces() *Traces {
	return &Traces{byType: make(map[Type]*Trace)}
}

// Set stores trace under its type, replacing any earlier trace of the
// same type.
func (c *Traces) Set(trace *Trace) {
	c.byType[trace.Type()] = trace
}

// Get returns the trace of the given type, or nil if none is loaded.
func (c *Traces) Get(traceType Type) *Trace {
	return c.byType[traceType]
}

// Delete removes the trace of the given type.
func (c *Traces) Delete(traceType Type) {
	delete(c.byType, traceType)
}

// Len returns the number of loaded traces.
func (c *Traces) Len() int { return len(c.byType) }

// Types returns the loaded trace types in declaration order.
func (c *Traces) Types() []Type {
	types := make([]Type, 0, len(c.byType))
	for traceType := range c.byType {
		types = append(types, traceType)
	}
	slices.Sort(types)
	return types
}

// ForEach calls fn for every loaded trace in declaration order of their
// types.
func (c *Traces) ForEach(fn func(trace *Trace)) {
	for _, traceType := range c.Types() {
		fn(c.byType[traceType])
	}
}
