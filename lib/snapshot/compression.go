// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/PixelExperience/development/lib/blob"
)

// Compression selects the stream wrapping the encoded snapshot.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses the name produced by [Compression.String].
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want zstd, lz4 or none)", name)
	}
}

// Extension returns the conventional file name suffix.
func (c Compression) Extension() string {
	switch c {
	case CompressionZstd:
		return ".cbor.zst"
	case CompressionLZ4:
		return ".cbor.lz4"
	default:
		return ".cbor"
	}
}

// nopWriteCloser adapts a writer that needs no finalization.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// compressor wraps w in the stream for c. Closing the result flushes
// the stream but does not close w.
func compressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionZstd:
		return zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown compression %d", uint8(c))
	}
}

// decompressor unwraps r according to the container its first bytes
// identify. Only the streams compressor produces are accepted.
func decompressor(r io.Reader, prefix []byte) (io.Reader, func(), error) {
	switch kind := blob.DetectContainer(prefix); kind {
	case blob.ContainerNone:
		return r, func() {}, nil
	case blob.ContainerZstd:
		decoder, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, err
		}
		return decoder, decoder.Close, nil
	case blob.ContainerLZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("snapshot in unsupported %s container", kind)
	}
}
