// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package framemapper

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/PixelExperience/development/lib/blob"
	"github.com/PixelExperience/development/lib/parser"
	"github.com/PixelExperience/development/lib/testutil"
	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
)

const (
	millisecond int64 = 1_000_000
	second      int64 = 1_000_000_000
)

const unmapped = "-"

func newTraces(t *testing.T, parsers ...*testutil.MemoryParser) *trace.Traces {
	t.Helper()
	traces := trace.NewTraces()
	for _, memoryParser := range parsers {
		traces.Set(testutil.NewTrace(t, memoryParser))
	}
	return traces
}

func computeMapping(t *testing.T, traces *trace.Traces, config Config) {
	t.Helper()
	if err := New(traces, config).ComputeMapping(context.Background()); err != nil {
		t.Fatalf("ComputeMapping: %v", err)
	}
}

// entryFrames renders the frames of every entry, unmapped for
// entries the map leaves out.
func entryFrames(t *testing.T, full *trace.Trace) []string {
	t.Helper()
	var frames []string
	for _, entry := range full.All() {
		mapped, ok, err := entry.FramesRange()
		if err != nil {
			t.Fatalf("%s entry %d FramesRange: %v", full.Type(), entry.Index(), err)
		}
		if !ok {
			frames = append(frames, unmapped)
			continue
		}
		frames = append(frames, mapped.String())
	}
	return frames
}

func vsyncValues(property string, ids ...any) []any {
	values := make([]any, len(ids))
	for i, id := range ids {
		if id == nil {
			values[i] = map[string]any{}
			continue
		}
		values[i] = map[string]any{property: id}
	}
	return values
}

func TestComputeMappingWithoutAnchor(t *testing.T) {
	traces := newTraces(t,
		testutil.NewMemoryParser(trace.Transactions, 1, 2),
		testutil.NewMemoryParser(trace.ProtoLog, 1),
	)
	computeMapping(t, traces, Config{})

	traces.ForEach(func(full *trace.Trace) {
		if full.HasFrameInfo() {
			t.Errorf("%s has frame info without an anchor", full.Type())
		}
	})
}

func TestAnchorPreferenceOrder(t *testing.T) {
	tests := []struct {
		name   string
		types  []trace.Type
		config Config
		anchor trace.Type
	}{
		{
			name:   "screen recording first",
			types:  []trace.Type{trace.WindowManager, trace.ScreenRecording},
			anchor: trace.ScreenRecording,
		},
		{
			name:   "compositor without recording",
			types:  []trace.Type{trace.WindowManager, trace.SurfaceFlinger},
			anchor: trace.SurfaceFlinger,
		},
		{
			name:   "window manager alone",
			types:  []trace.Type{trace.WindowManager, trace.ProtoLog},
			anchor: trace.WindowManager,
		},
		{
			name:   "configured anchors",
			types:  []trace.Type{trace.WindowManager, trace.SurfaceFlinger},
			config: Config{Anchors: []trace.Type{trace.WindowManager}},
			anchor: trace.WindowManager,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			traces := trace.NewTraces()
			for _, traceType := range test.types {
				traces.Set(testutil.NewTrace(t, testutil.NewMemoryParser(traceType, 10*second, 20*second, 30*second)))
			}
			config := test.config
			config.Disabled = Steps
			computeMapping(t, traces, config)

			anchor := traces.Get(test.anchor)
			want := []string{"frames[0, 1)", "frames[1, 2)", "frames[2, 3)"}
			if diff := cmp.Diff(want, entryFrames(t, anchor)); diff != "" {
				t.Errorf("anchor frames (-want +got):\n%s", diff)
			}
			for _, traceType := range test.types {
				if traceType != test.anchor && traces.Get(traceType).HasFrameInfo() {
					t.Errorf("%s has frame info but is not the anchor", traceType)
				}
			}
		})
	}
}

func TestScreenRecordingToSurfaceFlinger(t *testing.T) {
	traces := newTraces(t,
		testutil.NewMemoryParser(trace.ScreenRecording, 10*second, 11*second, 12*second),
		testutil.NewMemoryParser(trace.SurfaceFlinger,
			7*second, 9*second, 10*second, 10*second+500*millisecond, 11*second, 14*second),
	)
	computeMapping(t, traces, Config{})

	surfaceFlinger := traces.Get(trace.SurfaceFlinger)
	// Each recording frame picks the last compositor entry at most 2s
	// before it; the frame at 12s overrides the one at 11s on entry 4.
	want := []string{unmapped, unmapped, "frames[0, 1)", unmapped, "frames[2, 3)", unmapped}
	if diff := cmp.Diff(want, entryFrames(t, surfaceFlinger)); diff != "" {
		t.Errorf("compositor frames (-want +got):\n%s", diff)
	}
	frames, ok, err := surfaceFlinger.FramesRange()
	if err != nil || !ok {
		t.Fatalf("FramesRange = %v, %v, %v", frames, ok, err)
	}
	if frames != (trace.FramesRange{Start: 0, End: 3}) {
		t.Errorf("FramesRange = %v, want [0, 3)", frames)
	}
}

func TestScreenRecordingWindowNearMinimumTime(t *testing.T) {
	traces := newTraces(t,
		testutil.NewMemoryParser(trace.ScreenRecording, math.MinInt64+second),
		testutil.NewMemoryParser(trace.SurfaceFlinger, math.MinInt64, math.MinInt64+second/2),
	)
	computeMapping(t, traces, Config{})

	want := []string{unmapped, "frames[0, 1)"}
	if diff := cmp.Diff(want, entryFrames(t, traces.Get(trace.SurfaceFlinger))); diff != "" {
		t.Errorf("compositor frames (-want +got):\n%s", diff)
	}
}

func TestScreenRecordingWindowMatchesRecomputation(t *testing.T) {
	var recordingNs, compositorNs []int64
	for j := range 16 {
		recordingNs = append(recordingNs, 500*millisecond+int64(j)*700*millisecond)
	}
	for i := range 40 {
		compositorNs = append(compositorNs, int64(i)*300*millisecond+int64(i%3)*50*millisecond)
	}
	traces := newTraces(t,
		testutil.NewMemoryParser(trace.ScreenRecording, recordingNs...),
		testutil.NewMemoryParser(trace.SurfaceFlinger, compositorNs...),
	)
	computeMapping(t, traces, Config{})

	want := make([]string, len(compositorNs))
	for i := range want {
		want[i] = unmapped
	}
	for frame, recorded := range recordingNs {
		last := -1
		for i, compositor := range compositorNs {
			if compositor >= recorded-maxPipelineLatencyNs && compositor <= recorded {
				last = i
			}
		}
		if last >= 0 {
			want[last] = trace.FramesRange{Start: frame, End: frame + 1}.String()
		}
	}
	if diff := cmp.Diff(want, entryFrames(t, traces.Get(trace.SurfaceFlinger))); diff != "" {
		t.Errorf("compositor frames (-want +got):\n%s", diff)
	}
}

func TestSurfaceFlingerToTransactions(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	traces := newTraces(t,
		testutil.NewMemoryParser(trace.SurfaceFlinger, 1*second, 2*second, 3*second, 4*second).
			WithValues(vsyncValues(surfaceFlingerVsyncProperty, int64(100), int64(100), int64(101), "bad")...),
		testutil.NewMemoryParser(trace.Transactions, 1*second, 2*second, 3*second, 4*second, 5*second).
			WithValues(vsyncValues(transactionsVsyncProperty, int64(100), int64(101), int64(999), nil, "101")...),
	)
	computeMapping(t, traces, Config{Jobs: 3, Logger: logger})

	want := []string{"frames[0, 2)", "frames[2, 3)", unmapped, unmapped, "frames[2, 3)"}
	if diff := cmp.Diff(want, entryFrames(t, traces.Get(trace.Transactions))); diff != "" {
		t.Errorf("transaction frames (-want +got):\n%s", diff)
	}

	output := logs.String()
	if count := strings.Count(output, "entries without a usable vsync id skipped"); count != 2 {
		t.Errorf("got %d skipped-entry warnings, want one per trace:\n%s", count, output)
	}
	if !strings.Contains(output, "property=vSyncId") || !strings.Contains(output, "property=vsyncId") {
		t.Errorf("warnings do not name both properties:\n%s", output)
	}
}

func TestSurfaceFlingerToTransactionsFromDecodedTraces(t *testing.T) {
	compositor := testutil.NewProtoTrace(testutil.MagicSurfaceFlinger)
	for i, vsync := range []int64{7, 8, 8} {
		compositor.Entry(testutil.SurfaceFlingerEntry(int64(i+1)*second, vsync)...)
	}
	transactions := testutil.NewProtoTrace(testutil.MagicTransactions).
		Entry(testutil.TransactionsEntry(1*second, 8)...).
		Entry(testutil.TransactionsEntry(2*second, 9)...).
		Entry(testutil.TransactionsEntry(3*second, 7)...)

	parsers, rejected, err := parser.NewSelector(parser.DefaultVariants(), parser.SelectorConfig{}).Select(
		context.Background(),
		[]blob.Blob{
			blob.New("layers_trace.winscope", compositor.Bytes()),
			blob.New("transactions_trace.winscope", transactions.Bytes()),
		},
	)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(rejected) != 0 {
		t.Fatalf("Select rejected %v", rejected)
	}
	traces := trace.NewTraces()
	for _, decoded := range parsers {
		traces.Set(testutil.NewTrace(t, decoded))
	}
	computeMapping(t, traces, Config{})

	want := []string{"frames[1, 3)", unmapped, "frames[0, 1)"}
	if diff := cmp.Diff(want, entryFrames(t, traces.Get(trace.Transactions))); diff != "" {
		t.Errorf("transaction frames (-want +got):\n%s", diff)
	}
}

// windowManagerPipeline loads a compositor anchor with vsync ids 1-4,
// transactions at 3s, 4.5s, 5s and 8s joined one to one, and window
// manager entries at 3s, 5s and 7s.
func windowManagerPipeline(t *testing.T, extra ...*testutil.MemoryParser) *trace.Traces {
	t.Helper()
	parsers := []*testutil.MemoryParser{
		testutil.NewMemoryParser(trace.SurfaceFlinger, 1*second, 2*second, 3*second, 4*second).
			WithValues(vsyncValues(surfaceFlingerVsyncProperty, int64(1), int64(2), int64(3), int64(4))...),
		testutil.NewMemoryParser(trace.Transactions, 3*second, 4*second+500*millisecond, 5*second, 8*second).
			WithValues(vsyncValues(transactionsVsyncProperty, int64(1), int64(2), int64(3), int64(4))...),
		testutil.NewMemoryParser(trace.WindowManager, 3*second, 5*second, 7*second),
	}
	return newTraces(t, append(parsers, extra...)...)
}

func TestTransactionsToWindowManager(t *testing.T) {
	traces := windowManagerPipeline(t)
	computeMapping(t, traces, Config{})

	want := []string{"frames[0, 2)", "frames[2, 3)", "frames[3, 4)"}
	if diff := cmp.Diff(want, entryFrames(t, traces.Get(trace.WindowManager))); diff != "" {
		t.Errorf("window manager frames (-want +got):\n%s", diff)
	}
}

func TestTransactionsToWindowManagerEmptyBuckets(t *testing.T) {
	traces := newTraces(t,
		testutil.NewMemoryParser(trace.SurfaceFlinger, 1*second, 2*second).
			WithValues(vsyncValues(surfaceFlingerVsyncProperty, int64(1), int64(2))...),
		testutil.NewMemoryParser(trace.Transactions, 2*second, 10*second).
			WithValues(vsyncValues(transactionsVsyncProperty, int64(1), int64(2))...),
		testutil.NewMemoryParser(trace.WindowManager, 1*second, 3*second, 5*second),
	)
	computeMapping(t, traces, Config{})

	// The last bucket spans [5s, 7s) and misses the transaction at 10s.
	want := []string{"frames[0, 1)", unmapped, unmapped}
	if diff := cmp.Diff(want, entryFrames(t, traces.Get(trace.WindowManager))); diff != "" {
		t.Errorf("window manager frames (-want +got):\n%s", diff)
	}
}

func TestWindowManagerToProtoLog(t *testing.T) {
	traces := windowManagerPipeline(t,
		testutil.NewMemoryParser(trace.ProtoLog,
			500*millisecond,
			1*second,
			3*second,
			3*second+1,
			5*second,
			6*second,
			7*second,
			7*second+500*millisecond,
		),
	)
	computeMapping(t, traces, Config{})

	want := []string{
		unmapped,       // before the 2s lookback
		"frames[0, 2)", // lookback start is inclusive
		"frames[0, 2)", // first window manager entry itself
		"frames[2, 3)", // (3s, 5s] belongs to the entry at 5s
		"frames[2, 3)",
		"frames[3, 4)",
		"frames[3, 4)",
		unmapped, // after the last window manager entry
	}
	if diff := cmp.Diff(want, entryFrames(t, traces.Get(trace.ProtoLog))); diff != "" {
		t.Errorf("protolog frames (-want +got):\n%s", diff)
	}
}

func TestWindowManagerToInputMethod(t *testing.T) {
	traces := newTraces(t,
		testutil.NewMemoryParser(trace.WindowManager, 1*second, 2*second),
		testutil.NewMemoryParser(trace.InputMethodClients,
			1*second+199*millisecond,
			2*second-201*millisecond,
			2*second+200*millisecond,
		),
		testutil.NewMemoryParser(trace.InputMethodManagerService, 500*millisecond, 2*second),
	)
	computeMapping(t, traces, Config{})

	clients := []string{"frames[0, 1)", unmapped, "frames[1, 2)"}
	if diff := cmp.Diff(clients, entryFrames(t, traces.Get(trace.InputMethodClients))); diff != "" {
		t.Errorf("input method clients frames (-want +got):\n%s", diff)
	}
	managerService := []string{unmapped, "frames[1, 2)"}
	if diff := cmp.Diff(managerService, entryFrames(t, traces.Get(trace.InputMethodManagerService))); diff != "" {
		t.Errorf("input method manager service frames (-want +got):\n%s", diff)
	}
}

func TestStepsWithoutSourceFramesAreSkipped(t *testing.T) {
	traces := newTraces(t,
		testutil.NewMemoryParser(trace.ScreenRecording, 1*second),
		testutil.NewMemoryParser(trace.Transactions, 1*second),
		testutil.NewMemoryParser(trace.WindowManager, 1*second),
		testutil.NewMemoryParser(trace.ProtoLog, 1*second),
	)
	computeMapping(t, traces, Config{})

	for _, traceType := range []trace.Type{trace.Transactions, trace.WindowManager, trace.ProtoLog} {
		if traces.Get(traceType).HasFrameInfo() {
			t.Errorf("%s has frame info without a mapped source", traceType)
		}
	}
}

func TestDisabledStep(t *testing.T) {
	traces := windowManagerPipeline(t)
	computeMapping(t, traces, Config{Disabled: []Step{TransactionsToWindowManager}})

	if !traces.Get(trace.Transactions).HasFrameInfo() {
		t.Error("transactions lost frame info when a later step was disabled")
	}
	if traces.Get(trace.WindowManager).HasFrameInfo() {
		t.Error("window manager has frame info from a disabled step")
	}
}

func TestComputeMappingCancelled(t *testing.T) {
	traces := windowManagerPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(traces, Config{}).ComputeMapping(ctx)
	testutil.RequireErrorIs(t, err, context.Canceled)
}

func TestReadVsyncID(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int64
		wantErr bool
	}{
		{name: "int64", value: map[string]any{"id": int64(-3)}, want: -3},
		{name: "int32", value: map[string]any{"id": int32(7)}, want: 7},
		{name: "uint32", value: map[string]any{"id": uint32(7)}, want: 7},
		{name: "uint64", value: map[string]any{"id": uint64(1 << 40)}, want: 1 << 40},
		{name: "uint64 overflow", value: map[string]any{"id": uint64(1 << 63)}, wantErr: true},
		{name: "decimal string", value: map[string]any{"id": "12"}, want: 12},
		{name: "garbage string", value: map[string]any{"id": "0x12"}, wantErr: true},
		{name: "float", value: map[string]any{"id": 1.5}, wantErr: true},
		{name: "missing", value: map[string]any{}, wantErr: true},
		{name: "not a record", value: 12, wantErr: true},
		{name: "record", value: &parser.Record{Properties: map[string]any{"id": int64(5)}}, want: 5},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := readVsyncID(test.value, "id")
			if test.wantErr {
				if err == nil {
					t.Fatalf("readVsyncID = %d, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("readVsyncID: %v", err)
			}
			if got != test.want {
				t.Errorf("readVsyncID = %d, want %d", got, test.want)
			}
		})
	}
}

func TestParseStep(t *testing.T) {
	for _, step := range Steps {
		parsed, err := ParseStep(step.String())
		if err != nil {
			t.Fatalf("ParseStep(%q): %v", step, err)
		}
		if parsed != step {
			t.Errorf("ParseStep(%q) = %v", step, parsed)
		}
	}
	if _, err := ParseStep("sideways"); err == nil {
		t.Error("ParseStep accepted an unknown name")
	}
	if got := Step(42).String(); got != "step(42)" {
		t.Errorf("Step(42).String() = %q", got)
	}
}

func TestMapperRequiresCommonDomain(t *testing.T) {
	recording := trace.New(testutil.NewMemoryParser(trace.ScreenRecording, 1*second).WithRealOffset(5 * second))
	if err := recording.Init(timestamp.Real); err != nil {
		t.Fatalf("Init: %v", err)
	}
	traces := trace.NewTraces()
	traces.Set(recording)
	traces.Set(testutil.NewTrace(t, testutil.NewMemoryParser(trace.SurfaceFlinger, 1*second)))

	err := New(traces, Config{}).ComputeMapping(context.Background())
	if !errors.Is(err, timestamp.ErrDomainMismatch) {
		t.Errorf("ComputeMapping error = %v, want ErrDomainMismatch", err)
	}
}
