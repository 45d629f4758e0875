// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/PixelExperience/development/lib/codec"
)

// containerPrefixLength is enough bytes to identify every container
// blob.DetectContainer knows.
const containerPrefixLength = 4

// Write encodes snapshot to w.
func Write(w io.Writer, snapshot Snapshot, compression Compression) error {
	stream, err := compressor(w, compression)
	if err != nil {
		return err
	}
	if err := codec.NewEncoder(stream).Encode(snapshot); err != nil {
		stream.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("flushing %s stream: %w", compression, err)
	}
	return nil
}

// Read decodes a snapshot written by [Write], detecting the
// compression from the stream.
func Read(r io.Reader) (Snapshot, error) {
	buffered := bufio.NewReader(r)
	prefix, err := buffered.Peek(containerPrefixLength)
	if err != nil && !errors.Is(err, io.EOF) {
		return Snapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}
	stream, release, err := decompressor(buffered, prefix)
	if err != nil {
		return Snapshot{}, err
	}
	defer release()

	var snapshot Snapshot
	if err := codec.NewDecoder(stream).Decode(&snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snapshot.FormatVersion != FormatVersion {
		return Snapshot{}, fmt.Errorf("snapshot format version %d, want %d", snapshot.FormatVersion, FormatVersion)
	}
	return snapshot, nil
}

// WriteFile atomically writes snapshot to path. The file is written to
// a temporary location in the same directory, fsynced, and renamed
// into place, so readers never see a partial snapshot. The parent
// directory must already exist.
func WriteFile(path string, snapshot Snapshot, compression Compression) error {
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating temporary snapshot file: %w", err)
	}

	// Write, sync, close, in that order. If any step fails, remove the
	// temporary file and report the first error.
	buffered := bufio.NewWriter(file)
	if err := Write(buffered, snapshot, compression); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return err
	}
	if err := buffered.Flush(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary snapshot file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary snapshot file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary snapshot file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming snapshot file into place: %w", err)
	}

	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}

	return nil
}

// ReadFile reads a snapshot file written by [WriteFile]. When the file
// does not exist, the returned error wraps os.ErrNotExist.
func ReadFile(path string) (Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer file.Close()

	snapshot, err := Read(file)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snapshot, nil
}
