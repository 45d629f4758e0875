// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"github.com/PixelExperience/development/lib/trace"
)

const (
	nanosecond  int64 = 1
	millisecond int64 = 1_000_000
)

// elapsedFixed64 is the elapsed_realtime_nanos field shared by the
// window manager, input method and accessibility entries.
var elapsedFixed64 = fieldSpec{1, "elapsedRealtimeNanos", kindFixed64}

var surfaceFlingerFormat = &protoFormat{
	name:         "surface_flinger",
	traceType:    trace.SurfaceFlinger,
	magic:        "LYRTRACE",
	entriesField: 2,
	offsetField:  3,
	offsetUnitNs: nanosecond,
	elapsedField: fieldSpec{1, "elapsedRealtimeNanos", kindSfixed64},
	properties: []fieldSpec{
		{1, "elapsedRealtimeNanos", kindSfixed64},
		{2, "where", kindString},
		{3, "layers", kindBytes},
		{4, "hwcBlob", kindString},
		{5, "excludesCompositionState", kindBool},
		{6, "missedEntries", kindInt32},
		{7, "displays", kindRepeatedBytes},
		{8, "vSyncId", kindInt64},
	},
}

var transactionsFormat = &protoFormat{
	name:         "transactions",
	traceType:    trace.Transactions,
	magic:        "TNXTRACE",
	entriesField: 2,
	offsetField:  3,
	offsetUnitNs: nanosecond,
	elapsedField: fieldSpec{1, "elapsedRealtimeNanos", kindInt64},
	properties: []fieldSpec{
		{1, "elapsedRealtimeNanos", kindInt64},
		{2, "vsyncId", kindInt64},
		{3, "transactions", kindRepeatedBytes},
		{4, "addedLayers", kindRepeatedBytes},
	},
}

var windowManagerFormat = &protoFormat{
	name:         "window_manager",
	traceType:    trace.WindowManager,
	magic:        "WINTRACE",
	entriesField: 2,
	offsetField:  3,
	offsetUnitNs: nanosecond,
	elapsedField: elapsedFixed64,
	properties: []fieldSpec{
		elapsedFixed64,
		{2, "where", kindString},
		{3, "windowManagerService", kindBytes},
	},
}

var inputMethodClientsFormat = &protoFormat{
	name:         "input_method_clients",
	traceType:    trace.InputMethodClients,
	magic:        "IMCTRACE",
	entriesField: 2,
	offsetField:  3,
	offsetUnitNs: nanosecond,
	elapsedField: elapsedFixed64,
	properties: []fieldSpec{
		elapsedFixed64,
		{2, "where", kindString},
		{3, "client", kindBytes},
	},
}

var inputMethodManagerServiceFormat = &protoFormat{
	name:         "input_method_manager_service",
	traceType:    trace.InputMethodManagerService,
	magic:        "IMMTRACE",
	entriesField: 2,
	offsetField:  3,
	offsetUnitNs: nanosecond,
	elapsedField: elapsedFixed64,
	properties: []fieldSpec{
		elapsedFixed64,
		{2, "where", kindString},
		{3, "inputMethodManagerService", kindBytes},
	},
}

var inputMethodServiceFormat = &protoFormat{
	name:         "input_method_service",
	traceType:    trace.InputMethodService,
	magic:        "IMSTRACE",
	entriesField: 2,
	offsetField:  3,
	offsetUnitNs: nanosecond,
	elapsedField: elapsedFixed64,
	properties: []fieldSpec{
		elapsedFixed64,
		{2, "where", kindString},
		{3, "inputMethodService", kindBytes},
	},
}

var accessibilityFormat = &protoFormat{
	name:         "accessibility",
	traceType:    trace.Accessibility,
	magic:        "A11YTRAC",
	entriesField: 2,
	offsetField:  3,
	offsetUnitNs: nanosecond,
	elapsedField: elapsedFixed64,
	properties: []fieldSpec{
		elapsedFixed64,
		{2, "calendarTime", kindString},
		{3, "where", kindString},
		{4, "accessibilityService", kindBytes},
	},
}

// ProtoLog files keep the log in field 4 and store the clock offset in
// milliseconds.
var protoLogFormat = &protoFormat{
	name:         "proto_log",
	traceType:    trace.ProtoLog,
	magic:        "PROTOLOG",
	entriesField: 4,
	offsetField:  3,
	offsetUnitNs: millisecond,
	elapsedField: fieldSpec{2, "elapsedRealtimeNanos", kindFixed64},
	properties: []fieldSpec{
		{1, "messageHash", kindSfixed32},
		{2, "elapsedRealtimeNanos", kindFixed64},
		{3, "strParams", kindRepeatedString},
		{4, "sint64Params", kindRepeatedSint64},
		{5, "doubleParams", kindRepeatedDouble},
		{6, "booleanParams", kindRepeatedBool},
	},
}
