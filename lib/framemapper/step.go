// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framemapper

import (
	"fmt"

	"github.com/PixelExperience/development/lib/trace"
)

// Step identifies one propagation step of the pipeline.
type Step uint8

const (
	ScreenRecordingToSurfaceFlinger Step = iota + 1
	SurfaceFlingerToTransactions
	TransactionsToWindowManager
	WindowManagerToProtoLog
	WindowManagerToInputMethod
)

// Steps lists the pipeline in execution order.
var Steps = []Step{
	ScreenRecordingToSurfaceFlinger,
	SurfaceFlingerToTransactions,
	TransactionsToWindowManager,
	WindowManagerToProtoLog,
	WindowManagerToInputMethod,
}

var stepNames = map[Step]string{
	ScreenRecordingToSurfaceFlinger: "screen_recording_to_surface_flinger",
	SurfaceFlingerToTransactions:    "surface_flinger_to_transactions",
	TransactionsToWindowManager:     "transactions_to_window_manager",
	WindowManagerToProtoLog:         "window_manager_to_proto_log",
	WindowManagerToInputMethod:      "window_manager_to_input_method",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", uint8(s))
}

// ParseStep parses the name produced by [Step.String].
func ParseStep(name string) (Step, error) {
	for step, stepName := range stepNames {
		if stepName == name {
			return step, nil
		}
	}
	return 0, fmt.Errorf("unknown frame mapping step %q", name)
}

// DefaultAnchors is the anchor preference order: the first loaded
// trace of these types defines the frame clock.
var DefaultAnchors = []trace.Type{
	trace.ScreenRecording,
	trace.SurfaceFlinger,
	trace.WindowManager,
}

// inputMethodTypes are the destinations of WindowManagerToInputMethod,
// mapped in this order.
var inputMethodTypes = []trace.Type{
	trace.InputMethodClients,
	trace.InputMethodManagerService,
	trace.InputMethodService,
}

const (
	// maxPipelineLatencyNs bounds how far apart in time two entries
	// describing the same frame can be.
	maxPipelineLatencyNs int64 = 2_000_000_000

	// maxInputMethodDriftNs is the largest distance between an input
	// method entry and the window manager entry it inherits frames
	// from.
	maxInputMethodDriftNs int64 = 200_000_000

	// oneNanosecond shifts exclusive bounds to inclusive ones.
	oneNanosecond int64 = 1
)
