// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrTooLarge is returned when a decompressed stream or archive member
// exceeds the configured size limit.
var ErrTooLarge = errors.New("decompressed size exceeds limit")

// maxExpandDepth bounds how many container layers are unwrapped
// ("traces.zip" holding "wm.pb.gz" is two layers).
const maxExpandDepth = 4

// Container identifies the container format detected at the start of
// a file.
type Container uint8

const (
	ContainerNone Container = iota
	ContainerGzip
	ContainerZstd
	ContainerLZ4
	ContainerZip
)

func (c Container) String() string {
	switch c {
	case ContainerNone:
		return "none"
	case ContainerGzip:
		return "gzip"
	case ContainerZstd:
		return "zstd"
	case ContainerLZ4:
		return "lz4"
	case ContainerZip:
		return "zip"
	default:
		return fmt.Sprintf("container(%d)", uint8(c))
	}
}

var (
	gzipMagic     = []byte{0x1f, 0x8b}
	zstdMagic     = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4FrameMagic = []byte{0x04, 0x22, 0x4d, 0x18}
	zipMagic      = []byte{'P', 'K', 0x03, 0x04}
	zipEmptyMagic = []byte{'P', 'K', 0x05, 0x06}
)

// DetectContainer returns the container format data starts with, or
// ContainerNone for plain content.
func DetectContainer(data []byte) Container {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return ContainerGzip
	case bytes.HasPrefix(data, zstdMagic):
		return ContainerZstd
	case bytes.HasPrefix(data, lz4FrameMagic):
		return ContainerLZ4
	case bytes.HasPrefix(data, zipMagic), bytes.HasPrefix(data, zipEmptyMagic):
		return ContainerZip
	default:
		return ContainerNone
	}
}

// expander unwraps containers into plain blobs.
type expander struct {
	// maxSize caps every decompressed output. Zero means unlimited.
	maxSize int64
}

// expand returns the plain blobs contained in data, in archive order.
// Plain data is returned as a single blob named name.
func (e *expander) expand(ctx context.Context, name string, data []byte, depth int) ([]Blob, error) {
	kind := DetectContainer(data)
	if kind == ContainerNone || depth >= maxExpandDepth {
		return []Blob{New(name, data)}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if kind == ContainerZip {
		return e.expandZip(ctx, name, data, depth)
	}

	decompressed, err := e.decompress(kind, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %s stream: %w", name, kind, err)
	}
	return e.expand(ctx, trimCompressionSuffix(name, kind), decompressed, depth+1)
}

func (e *expander) decompress(kind Container, data []byte) ([]byte, error) {
	switch kind {
	case ContainerGzip:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		return e.readLimited(reader)

	case ContainerZstd:
		decoder, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer decoder.Close()
		return e.readLimited(decoder)

	case ContainerLZ4:
		return e.readLimited(lz4.NewReader(bytes.NewReader(data)))

	default:
		return nil, fmt.Errorf("unsupported container %s", kind)
	}
}

func (e *expander) expandZip(ctx context.Context, name string, data []byte, depth int) ([]Blob, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%s: zip archive: %w", name, err)
	}

	var blobs []Blob
	for _, member := range archive.File {
		if member.FileInfo().IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		memberName := name + "/" + member.Name
		if e.maxSize > 0 && member.UncompressedSize64 > uint64(e.maxSize) {
			return nil, fmt.Errorf("%s: %w (%d bytes, limit %d)", memberName, ErrTooLarge, member.UncompressedSize64, e.maxSize)
		}

		reader, err := member.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", memberName, err)
		}
		content, err := e.readLimited(reader)
		reader.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", memberName, err)
		}

		expanded, err := e.expand(ctx, memberName, content, depth+1)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, expanded...)
	}
	return blobs, nil
}

// readLimited reads reader to the end, failing with ErrTooLarge once
// more than maxSize bytes have been produced.
func (e *expander) readLimited(reader io.Reader) ([]byte, error) {
	if e.maxSize <= 0 {
		return io.ReadAll(reader)
	}
	content, err := io.ReadAll(io.LimitReader(reader, e.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > e.maxSize {
		return nil, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, e.maxSize)
	}
	return content, nil
}

var compressionSuffixes = map[Container][]string{
	ContainerGzip: {".gz", ".gzip"},
	ContainerZstd: {".zst", ".zstd"},
	ContainerLZ4:  {".lz4"},
}

// trimCompressionSuffix drops the file extension of a compressed
// stream so the decompressed blob is named like the original file.
func trimCompressionSuffix(name string, kind Container) string {
	for _, suffix := range compressionSuffixes[kind] {
		if trimmed, ok := strings.CutSuffix(name, suffix); ok && trimmed != "" {
			return trimmed
		}
	}
	return name
}
