// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/PixelExperience/development/lib/blob"
	"github.com/PixelExperience/development/lib/testutil"
	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
)

func TestScreenRecordingDecode(t *testing.T) {
	data := testutil.ScreenRecording(1_000, 10, 500_000_010, 1_000_000_010)
	parser, err := screenRecordingVariant{}.Decode(blob.New("screen.mp4", data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if parser.Type() != trace.ScreenRecording {
		t.Errorf("Type() = %s, want screen_recording", parser.Type())
	}
	if diff := cmp.Diff([]int64{10, 500_000_010, 1_000_000_010}, elapsedValues(parser)); diff != "" {
		t.Errorf("elapsed timestamps (-want +got):\n%s", diff)
	}
	if got := parser.Timestamps(timestamp.Real)[2].ValueNs(); got != 1_000_001_010 {
		t.Errorf("real timestamp = %d, want 1000001010", got)
	}

	last := record(t, parser, 2)
	if seconds, _ := last.Property("videoTimeSeconds"); seconds != 1.0 {
		t.Errorf("videoTimeSeconds = %v, want 1", seconds)
	}
	middle := record(t, parser, 1)
	if seconds, _ := middle.Property("videoTimeSeconds"); seconds != 0.5 {
		t.Errorf("videoTimeSeconds = %v, want 0.5", seconds)
	}

	if _, err := (legacyScreenRecordingVariant{}).Decode(blob.New("screen.mp4", data)); !errors.Is(err, ErrMagicMismatch) {
		t.Errorf("legacy Decode of a current recording: error = %v, want ErrMagicMismatch", err)
	}
}

func TestLegacyScreenRecordingDecode(t *testing.T) {
	data := testutil.LegacyScreenRecording(1, 2, 3)
	parser, err := legacyScreenRecordingVariant{}.Decode(blob.New("legacy.mp4", data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff([]int64{1000, 2000, 3000}, elapsedValues(parser)); diff != "" {
		t.Errorf("elapsed timestamps (-want +got):\n%s", diff)
	}
	if trace.SupportsDomain(parser, timestamp.Real) {
		t.Error("legacy recording supports the real domain")
	}

	if _, err := (screenRecordingVariant{}).Decode(blob.New("legacy.mp4", data)); !errors.Is(err, ErrMagicMismatch) {
		t.Errorf("current Decode of a legacy recording: error = %v, want ErrMagicMismatch", err)
	}
}

func TestScreenRecordingRejects(t *testing.T) {
	valid := testutil.ScreenRecording(0, 1, 2)
	unsupportedVersion := append([]byte(nil), valid...)
	// The version follows the 16-byte magic, which follows the 52-byte
	// container prefix written by testutil.
	unsupportedVersion[52+16] = 2

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not mpeg-4", []byte("\x09LYRTRACE"), ErrMagicMismatch},
		{"no metadata", valid[:40], ErrMagicMismatch},
		{"truncated timestamps", valid[:len(valid)-len("mdat-trailer")-4], ErrMalformed},
		{"unsupported version", unsupportedVersion, ErrMalformed},
		{"unordered", testutil.ScreenRecording(0, 5, 4), ErrMalformed},
		{"real time beyond int64", testutil.ScreenRecording(100, 1, math.MaxInt64-10), ErrMalformed},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := screenRecordingVariant{}.Decode(blob.New("screen.mp4", test.data))
			if !errors.Is(err, test.want) {
				t.Errorf("Decode error = %v, want %v", err, test.want)
			}
		})
	}
}
