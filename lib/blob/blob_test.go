// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	if _, err := writer.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buffer.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil)
}

func lz4Bytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := lz4.NewWriter(&buffer)
	if _, err := writer.Write(data); err != nil {
		t.Fatalf("lz4 write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("lz4 close: %v", err)
	}
	return buffer.Bytes()
}

type zipMember struct {
	name string
	data []byte
}

func zipBytes(t *testing.T, members ...zipMember) []byte {
	t.Helper()
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)
	for _, member := range members {
		file, err := writer.Create(member.name)
		if err != nil {
			t.Fatalf("zip create %s: %v", member.name, err)
		}
		if _, err := file.Write(member.data); err != nil {
			t.Fatalf("zip write %s: %v", member.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buffer.Bytes()
}

type loadedBlob struct {
	Name string
	Data string
}

func summarize(set *Set) []loadedBlob {
	var result []loadedBlob
	for _, blob := range set.Blobs {
		result = append(result, loadedBlob{Name: blob.Name, Data: string(blob.Data)})
	}
	return result
}

func load(t *testing.T, paths []string, options Options) *Set {
	t.Helper()
	set, err := Load(context.Background(), paths, options)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() {
		if err := set.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return set
}

func TestLoadPlainFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.pb", []byte("alpha")),
		writeFile(t, dir, "b.pb", []byte("bravo")),
		writeFile(t, dir, "c.pb", []byte("charlie")),
	}

	set := load(t, paths, Options{Jobs: 2})

	want := []loadedBlob{
		{Name: paths[0], Data: "alpha"},
		{Name: paths[1], Data: "bravo"},
		{Name: paths[2], Data: "charlie"},
	}
	if diff := cmp.Diff(want, summarize(set)); diff != "" {
		t.Errorf("blobs (-want +got):\n%s", diff)
	}
	if set.Blobs[0].Digest != ComputeDigest([]byte("alpha")) {
		t.Errorf("digest = %s, want digest of content", set.Blobs[0].Digest)
	}
}

func TestLoadMemoryMapped(t *testing.T) {
	if !mmapSupported {
		t.Skip("memory mapping not supported on this platform")
	}
	dir := t.TempDir()
	content := bytes.Repeat([]byte("trace"), 1000)
	path := writeFile(t, dir, "big.pb", content)
	empty := writeFile(t, dir, "empty.pb", nil)

	set, err := Load(context.Background(), []string{path, empty}, Options{MmapThreshold: 1})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(set.Blobs[0].Data, content) {
		t.Error("mapped data differs from file content")
	}
	if len(set.Blobs[1].Data) != 0 {
		t.Errorf("empty file produced %d bytes", len(set.Blobs[1].Data))
	}
	if len(set.releases) != 1 {
		t.Errorf("set holds %d mappings, want 1", len(set.releases))
	}
	if err := set.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := set.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestLoadExpandsCompressedStreams(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "wm.pb.gz", gzipBytes(t, []byte("window manager"))),
		writeFile(t, dir, "sf.pb.zst", zstdBytes(t, []byte("surface flinger"))),
		writeFile(t, dir, "tx.pb.lz4", lz4Bytes(t, []byte("transactions"))),
		writeFile(t, dir, "unsuffixed", gzipBytes(t, []byte("protolog"))),
	}

	set := load(t, paths, Options{})

	want := []loadedBlob{
		{Name: filepath.Join(dir, "wm.pb"), Data: "window manager"},
		{Name: filepath.Join(dir, "sf.pb"), Data: "surface flinger"},
		{Name: filepath.Join(dir, "tx.pb"), Data: "transactions"},
		{Name: filepath.Join(dir, "unsuffixed"), Data: "protolog"},
	}
	if diff := cmp.Diff(want, summarize(set)); diff != "" {
		t.Errorf("blobs (-want +got):\n%s", diff)
	}
}

func TestLoadExpandsNestedArchive(t *testing.T) {
	dir := t.TempDir()
	archive := zipBytes(t,
		zipMember{name: "sf.pb", data: []byte("surface flinger")},
		zipMember{name: "nested/wm.pb.gz", data: gzipBytes(t, []byte("window manager"))},
		zipMember{name: "video.mp4", data: []byte("recording")},
	)
	before := writeFile(t, dir, "first.pb", []byte("first"))
	path := writeFile(t, dir, "capture.zip", archive)

	set := load(t, []string{before, path}, Options{})

	want := []loadedBlob{
		{Name: before, Data: "first"},
		{Name: path + "/sf.pb", Data: "surface flinger"},
		{Name: path + "/nested/wm.pb", Data: "window manager"},
		{Name: path + "/video.mp4", Data: "recording"},
	}
	if diff := cmp.Diff(want, summarize(set)); diff != "" {
		t.Errorf("blobs (-want +got):\n%s", diff)
	}
}

func TestLoadKeepsCorruptContainerRaw(t *testing.T) {
	dir := t.TempDir()
	corrupt := append([]byte{0x1f, 0x8b}, []byte("not really gzip")...)
	path := writeFile(t, dir, "broken.gz", corrupt)

	set := load(t, []string{path}, Options{})

	if set.Len() != 1 {
		t.Fatalf("got %d blobs, want 1", set.Len())
	}
	if set.Blobs[0].Name != path || !bytes.Equal(set.Blobs[0].Data, corrupt) {
		t.Errorf("blob = %q (%d bytes), want raw %q", set.Blobs[0].Name, len(set.Blobs[0].Data), path)
	}
}

func TestExpandEnforcesSizeLimit(t *testing.T) {
	large := bytes.Repeat([]byte{'x'}, 4096)
	tests := []struct {
		name string
		data []byte
	}{
		{"gzip", gzipBytes(t, large)},
		{"zstd", zstdBytes(t, large)},
		{"lz4", lz4Bytes(t, large)},
		{"zip", zipBytes(t, zipMember{name: "large", data: large})},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			expander := &expander{maxSize: 1024}
			_, err := expander.expand(context.Background(), "input", test.data, 0)
			if !errors.Is(err, ErrTooLarge) {
				t.Errorf("expand error = %v, want ErrTooLarge", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	present := writeFile(t, dir, "present.pb", []byte("x"))
	_, err := Load(context.Background(), []string{present, filepath.Join(dir, "absent.pb")}, Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.pb", []byte("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, []string{path}, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load error = %v, want context.Canceled", err)
	}
}

func TestDetectContainer(t *testing.T) {
	tests := []struct {
		data []byte
		want Container
	}{
		{[]byte{0x1f, 0x8b, 0x08}, ContainerGzip},
		{[]byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, ContainerZstd},
		{[]byte{0x04, 0x22, 0x4d, 0x18}, ContainerLZ4},
		{[]byte("PK\x03\x04rest"), ContainerZip},
		{[]byte("\x09LYRTRACE"), ContainerNone},
		{nil, ContainerNone},
	}
	for _, test := range tests {
		if got := DetectContainer(test.data); got != test.want {
			t.Errorf("DetectContainer(% x) = %s, want %s", test.data, got, test.want)
		}
	}
}
