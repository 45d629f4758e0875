// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import "encoding/binary"

// mpeg4Prefix is the ISO base media "ftyp" box header of an mp42 file.
var mpeg4Prefix = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2'}

const (
	screenRecordingMagic       = "#VV1NSC0PET1ME2#"
	legacyScreenRecordingMagic = "#VV1NSC0PET1ME!#"
)

// ScreenRecording returns an MPEG-4 file carrying the current frame
// timestamp block: version 1, the real-to-elapsed offset and one
// elapsed timestamp in nanoseconds per video frame.
func ScreenRecording(realToElapsedOffsetNs uint64, elapsedNs ...int64) []byte {
	file := mpeg4Container()
	file = append(file, screenRecordingMagic...)
	file = binary.LittleEndian.AppendUint32(file, 1)
	file = binary.LittleEndian.AppendUint64(file, realToElapsedOffsetNs)
	file = binary.LittleEndian.AppendUint32(file, uint32(len(elapsedNs)))
	for _, value := range elapsedNs {
		file = binary.LittleEndian.AppendUint64(file, uint64(value))
	}
	return append(file, "mdat-trailer"...)
}

// LegacyScreenRecording returns an MPEG-4 file carrying the legacy
// frame timestamp block: a count and elapsed timestamps in
// microseconds, with no clock offset.
func LegacyScreenRecording(elapsedUs ...int64) []byte {
	file := mpeg4Container()
	file = append(file, legacyScreenRecordingMagic...)
	file = binary.LittleEndian.AppendUint32(file, uint32(len(elapsedUs)))
	for _, value := range elapsedUs {
		file = binary.LittleEndian.AppendUint64(file, uint64(value))
	}
	return append(file, "mdat-trailer"...)
}

// mpeg4Container returns the file prefix and filler bytes standing in
// for the video boxes that precede the metadata block.
func mpeg4Container() []byte {
	file := append([]byte(nil), mpeg4Prefix...)
	file = append(file, "isommp42"...)
	return append(file, make([]byte, 32)...)
}
