// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/PixelExperience/development/cmd/tracescope/cli"
	"github.com/PixelExperience/development/lib/clock"
	"github.com/PixelExperience/development/lib/config"
	"github.com/PixelExperience/development/lib/session"
	"github.com/PixelExperience/development/lib/snapshot"
	"github.com/PixelExperience/development/lib/testutil"
	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
	"github.com/PixelExperience/development/lib/version"
)

const (
	millisecond int64 = 1_000_000
	second      int64 = 1_000_000_000
)

var exportTime = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

// surfaceFlingerFile writes a compositor trace at 1s, 2s and 3s with
// vsync ids 10, 11 and 12. Without a screen recording it anchors the
// frame clock, one frame per entry.
func surfaceFlingerFile(t *testing.T) string {
	t.Helper()
	builder := testutil.NewProtoTrace(testutil.MagicSurfaceFlinger)
	for i, elapsed := range []int64{1 * second, 2 * second, 3 * second} {
		builder.Entry(testutil.SurfaceFlingerEntry(elapsed, int64(10+i))...)
	}
	return testutil.WriteTraceFile(t, "layers_trace.winscope", builder.Bytes())
}

// transactionsFile writes two transactions: vsync 11 joins frame 1,
// vsync 99 matches nothing.
func transactionsFile(t *testing.T) string {
	t.Helper()
	return testutil.WriteTraceFile(t, "transactions.winscope",
		testutil.NewProtoTrace(testutil.MagicTransactions).
			Entry(testutil.TransactionsEntry(1500*millisecond, 11)...).
			Entry(testutil.TransactionsEntry(2500*millisecond, 99)...).
			Bytes())
}

type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs the command tree with no configuration file in scope.
func execute(t *testing.T, args ...string) result {
	t.Helper()
	t.Setenv(config.EnvironmentVariable, "")

	var stdout, stderr bytes.Buffer
	err := Root(&stdout, &stderr, clock.Fake(exportTime)).Execute(context.Background(), args)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func decodeJSON[T any](t *testing.T, output string) T {
	t.Helper()
	var value T
	if err := json.Unmarshal([]byte(output), &value); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, output)
	}
	return value
}

func TestLoadJSON(t *testing.T) {
	compositor := surfaceFlingerFile(t)
	transactions := transactionsFile(t)

	got := execute(t, "load", "--json", "--log-level", "warn", transactions, compositor)
	if got.err != nil {
		t.Fatalf("load: %v\nstderr: %s", got.err, got.stderr)
	}

	loaded := decodeJSON[loadResult](t, got.stdout)
	if loaded.Domain != "elapsed" {
		t.Errorf("domain = %q, want elapsed", loaded.Domain)
	}
	if len(loaded.Rejected) != 0 {
		t.Errorf("rejected = %v, want none", loaded.Rejected)
	}

	type row struct {
		Type    trace.Type
		Entries int
		Frames  *snapshot.Range
		First   string
		Last    string
		Source  string
	}
	var rows []row
	for _, summary := range loaded.Traces {
		if len(summary.Sources) != 1 {
			t.Fatalf("%s sources = %v, want one", summary.Type, summary.Sources)
		}
		rows = append(rows, row{
			Type:    summary.Type,
			Entries: summary.Entries,
			Frames:  summary.Frames,
			First:   summary.First,
			Last:    summary.Last,
			Source:  summary.Sources[0].Name,
		})
	}
	want := []row{
		{Type: trace.SurfaceFlinger, Entries: 3, Frames: &snapshot.Range{Start: 0, End: 3}, First: "1s", Last: "3s", Source: compositor},
		{Type: trace.Transactions, Entries: 2, Frames: &snapshot.Range{Start: 1, End: 2}, First: "1s500ms", Last: "2s500ms", Source: transactions},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("traces mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTable(t *testing.T) {
	got := execute(t, "load", surfaceFlingerFile(t), transactionsFile(t))
	if got.err != nil {
		t.Fatalf("load: %v", got.err)
	}

	for _, want := range []string{
		"domain: elapsed",
		"TYPE",
		"surface_flinger",
		"[0, 3)",
		"transactions",
		"[1, 2)",
		"1s500ms",
	} {
		if !strings.Contains(got.stdout, want) {
			t.Errorf("output missing %q:\n%s", want, got.stdout)
		}
	}
	if strings.Contains(got.stdout, "rejected") {
		t.Errorf("output lists rejections for a clean load:\n%s", got.stdout)
	}
}

func TestLoadRejectedFilesExitCode(t *testing.T) {
	notes := testutil.WriteTraceFile(t, "notes.txt", []byte("not a trace"))

	got := execute(t, "load", surfaceFlingerFile(t), notes)

	var exitError *cli.ExitError
	if !errors.As(got.err, &exitError) || exitError.Code != 2 {
		t.Fatalf("error = %v, want exit code 2", got.err)
	}
	if !strings.Contains(got.stdout, "surface_flinger") {
		t.Errorf("loaded traces missing from output:\n%s", got.stdout)
	}
	if !strings.Contains(got.stdout, notes+": unsupported_format") {
		t.Errorf("rejection missing from output:\n%s", got.stdout)
	}
	if !strings.Contains(got.stderr, "notes.txt") {
		t.Errorf("rejection not logged:\n%s", got.stderr)
	}
}

func TestLoadRequiresInput(t *testing.T) {
	got := execute(t, "load")
	testutil.RequireErrorIs(t, got.err, errNoInput)
}

func TestLoadMissingFile(t *testing.T) {
	got := execute(t, "load", filepath.Join(t.TempDir(), "absent.winscope"))
	testutil.RequireErrorIs(t, got.err, os.ErrNotExist)
}

func TestLoadInvalidLogLevel(t *testing.T) {
	got := execute(t, "load", "--log-level", "loud", surfaceFlingerFile(t))
	if got.err == nil || !strings.Contains(got.err.Error(), "logging.level") {
		t.Errorf("error = %v, want logging.level validation failure", got.err)
	}
}

func TestLoadConfigFileForcesDomain(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "tracescope.yaml")
	if err := os.WriteFile(configPath, []byte("load:\n  domain: real\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := execute(t, "load", "--config", configPath, surfaceFlingerFile(t))
	testutil.RequireErrorIs(t, got.err, session.ErrNoCommonDomain)

	// The flag wins over the file.
	got = execute(t, "load", "--config", configPath, "--domain", "elapsed", surfaceFlingerFile(t))
	if got.err != nil {
		t.Errorf("load with --domain elapsed: %v", got.err)
	}
}

func TestFramesJSON(t *testing.T) {
	got := execute(t, "frames", "--json", "--frame", "1", "--count", "3", surfaceFlingerFile(t), transactionsFile(t))
	if got.err != nil {
		t.Fatalf("frames: %v\nstderr: %s", got.err, got.stderr)
	}

	sections := decodeJSON[[]frameSection](t, got.stdout)
	want := []frameSection{
		{Frame: 1, Traces: []frameTrace{
			{Type: trace.SurfaceFlinger, Entries: []frameEntry{{Index: 1, Timestamp: "2s", TimestampNs: 2 * second}}},
			{Type: trace.Transactions, Entries: []frameEntry{{Index: 0, Timestamp: "1s500ms", TimestampNs: 1500 * millisecond}}},
		}},
		{Frame: 2, Traces: []frameTrace{
			{Type: trace.SurfaceFlinger, Entries: []frameEntry{{Index: 2, Timestamp: "3s", TimestampNs: 3 * second}}},
		}},
		{Frame: 3, Traces: []frameTrace{}},
	}
	if diff := cmp.Diff(want, sections); diff != "" {
		t.Errorf("frame sections mismatch (-want +got):\n%s", diff)
	}
}

func TestFramesText(t *testing.T) {
	got := execute(t, "frames", "--frame", "2", "--count", "2", surfaceFlingerFile(t))
	if got.err != nil {
		t.Fatalf("frames: %v", got.err)
	}
	for _, want := range []string{"frame 2", "#2@3s", "frame 3", "(no entries)"} {
		if !strings.Contains(got.stdout, want) {
			t.Errorf("output missing %q:\n%s", want, got.stdout)
		}
	}
}

func TestFramesWithoutFrameInfo(t *testing.T) {
	got := execute(t, "frames", transactionsFile(t))
	testutil.RequireErrorIs(t, got.err, errNoFrameInfo)
}

func TestFramesRejectsBadRange(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "negative frame", args: []string{"--frame", "-1"}, want: "--frame"},
		{name: "zero count", args: []string{"--count", "0"}, want: "--count"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			args := append([]string{"frames"}, test.args...)
			got := execute(t, append(args, surfaceFlingerFile(t))...)
			if got.err == nil || !strings.Contains(got.err.Error(), test.want) {
				t.Errorf("error = %v, want mention of %s", got.err, test.want)
			}
		})
	}
}

func TestExportThenInspect(t *testing.T) {
	for _, compression := range []string{"none", "zstd", "lz4"} {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "capture.cbor")

			got := execute(t, "export", "--compression", compression, "--output", path,
				surfaceFlingerFile(t), transactionsFile(t))
			if got.err != nil {
				t.Fatalf("export: %v\nstderr: %s", got.err, got.stderr)
			}
			if strings.TrimSpace(got.stdout) != path {
				t.Errorf("export printed %q, want %q", got.stdout, path)
			}

			inspected := execute(t, "inspect", "--json", path)
			if inspected.err != nil {
				t.Fatalf("inspect: %v", inspected.err)
			}
			read := decodeJSON[snapshot.Snapshot](t, inspected.stdout)
			if read.FormatVersion != snapshot.FormatVersion || read.Domain != timestamp.Elapsed {
				t.Errorf("header = (%d, %v), want (%d, elapsed)", read.FormatVersion, read.Domain, snapshot.FormatVersion)
			}
			var types []trace.Type
			for _, exportedTrace := range read.Traces {
				types = append(types, exportedTrace.Type)
			}
			if diff := cmp.Diff([]trace.Type{trace.SurfaceFlinger, trace.Transactions}, types); diff != "" {
				t.Errorf("snapshot types (-want +got):\n%s", diff)
			}
			wantTransactionFrames := []*snapshot.Range{{Start: 1, End: 2}, nil}
			var gotTransactionFrames []*snapshot.Range
			for _, entry := range read.Traces[1].Entries {
				gotTransactionFrames = append(gotTransactionFrames, entry.Frames)
			}
			if diff := cmp.Diff(wantTransactionFrames, gotTransactionFrames); diff != "" {
				t.Errorf("transaction frames (-want +got):\n%s", diff)
			}

			summary := execute(t, "inspect", path)
			if summary.err != nil {
				t.Fatalf("inspect: %v", summary.err)
			}
			for _, want := range []string{"format: 1", "domain: elapsed", "surface_flinger", "transactions"} {
				if !strings.Contains(summary.stdout, want) {
					t.Errorf("inspect output missing %q:\n%s", want, summary.stdout)
				}
			}
		})
	}
}

func TestExportDefaultsToConfiguredDirectory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got := execute(t, "export", surfaceFlingerFile(t))
	if got.err != nil {
		t.Fatalf("export: %v\nstderr: %s", got.err, got.stderr)
	}

	path := strings.TrimSpace(got.stdout)
	want := filepath.Join(home, ".cache", "tracescope", "snapshots", "tracescope-20260314T150926Z.cbor.zst")
	if path != want {
		t.Errorf("snapshot written to %s, want %s", path, want)
	}
	if _, err := snapshot.ReadFile(path); err != nil {
		t.Errorf("ReadFile(%s): %v", path, err)
	}
}

func TestExportRejectsUnknownCompression(t *testing.T) {
	got := execute(t, "export", "--compression", "brotli", "--output", filepath.Join(t.TempDir(), "x.cbor"), surfaceFlingerFile(t))
	if got.err == nil || !strings.Contains(got.err.Error(), "compression") {
		t.Errorf("error = %v, want compression failure", got.err)
	}
}

func TestInspectRequiresOnePath(t *testing.T) {
	got := execute(t, "inspect")
	if got.err == nil || !strings.Contains(got.err.Error(), "exactly one") {
		t.Errorf("error = %v, want argument count failure", got.err)
	}
}

func TestVersion(t *testing.T) {
	got := execute(t, "version")
	if got.err != nil {
		t.Fatalf("version: %v", got.err)
	}
	if !strings.HasPrefix(got.stdout, "tracescope "+version.Short()) {
		t.Errorf("version output = %q", got.stdout)
	}

	got = execute(t, "version", "--json")
	if got.err != nil {
		t.Fatalf("version --json: %v", got.err)
	}
	if diff := cmp.Diff(version.Current(), decodeJSON[version.Build](t, got.stdout)); diff != "" {
		t.Errorf("version JSON (-want +got):\n%s", diff)
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	got := execute(t, "lod")
	if got.err == nil || !strings.Contains(got.err.Error(), `did you mean "load"`) {
		t.Errorf("error = %v, want suggestion for load", got.err)
	}
}
