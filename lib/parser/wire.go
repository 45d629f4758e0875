// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"errors"
	"fmt"
	"math"

	"fortio.org/safecast"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when a blob has the right magic number but
// its record stream cannot be decoded.
var ErrMalformed = errors.New("malformed trace")

// fieldKind is the protobuf scalar type of a schema field, which fixes
// its wire type and how its value is surfaced in a Record.
type fieldKind uint8

const (
	kindFixed64 fieldKind = iota + 1
	kindSfixed64
	kindSfixed32
	kindInt64
	kindInt32
	kindUint64
	kindBool
	kindString
	kindBytes
	kindRepeatedString
	kindRepeatedBytes
	kindRepeatedSint64
	kindRepeatedDouble
	kindRepeatedBool
)

// fieldSpec names one field of an entry message.
type fieldSpec struct {
	number protowire.Number
	name   string
	kind   fieldKind
}

func (k fieldKind) wireType() protowire.Type {
	switch k {
	case kindFixed64, kindSfixed64, kindRepeatedDouble:
		return protowire.Fixed64Type
	case kindSfixed32:
		return protowire.Fixed32Type
	case kindString, kindBytes, kindRepeatedString, kindRepeatedBytes:
		return protowire.BytesType
	default:
		return protowire.VarintType
	}
}

func (k fieldKind) repeated() bool {
	return k >= kindRepeatedString
}

// packable reports whether a repeated field may also arrive packed
// into a single length-delimited record.
func (k fieldKind) packable() bool {
	return k == kindRepeatedSint64 || k == kindRepeatedDouble || k == kindRepeatedBool
}

// walkMessage calls fn with the number, wire type and raw value bytes
// of every field of message, in encoding order. The value slice
// aliases message.
func walkMessage(message []byte, fn func(number protowire.Number, wireType protowire.Type, value []byte) error) error {
	for offset := 0; offset < len(message); {
		number, wireType, tagLength := protowire.ConsumeTag(message[offset:])
		if tagLength < 0 {
			return fmt.Errorf("%w: tag at offset %d: %v", ErrMalformed, offset, protowire.ParseError(tagLength))
		}
		offset += tagLength
		valueLength := protowire.ConsumeFieldValue(number, wireType, message[offset:])
		if valueLength < 0 {
			return fmt.Errorf("%w: field %d at offset %d: %v", ErrMalformed, number, offset, protowire.ParseError(valueLength))
		}
		if err := fn(number, wireType, message[offset:offset+valueLength]); err != nil {
			return err
		}
		offset += valueLength
	}
	return nil
}

// checkWireType rejects a known field encoded with the wrong wire type.
func checkWireType(number protowire.Number, got, want protowire.Type) error {
	if got != want {
		return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrMalformed, number, got, want)
	}
	return nil
}

// decodeFields decodes the fields of message named by specs into a
// property map. Unknown fields are skipped. Repeated fields accumulate
// across records; for scalars the last record wins, as in protobuf.
func decodeFields(message []byte, specs []fieldSpec) (map[string]any, error) {
	properties := make(map[string]any, len(specs))
	err := walkMessage(message, func(number protowire.Number, wireType protowire.Type, value []byte) error {
		spec, ok := findSpec(specs, number)
		if !ok {
			return nil
		}
		if spec.kind.packable() && wireType == protowire.BytesType {
			return decodePacked(properties, spec, value)
		}
		if err := checkWireType(number, wireType, spec.kind.wireType()); err != nil {
			return err
		}
		decoded, err := decodeScalar(spec.kind, value)
		if err != nil {
			return fmt.Errorf("field %d (%s): %w", number, spec.name, err)
		}
		if spec.kind.repeated() {
			properties[spec.name] = appendRepeated(properties[spec.name], decoded)
			return nil
		}
		properties[spec.name] = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return properties, nil
}

func findSpec(specs []fieldSpec, number protowire.Number) (fieldSpec, bool) {
	for _, spec := range specs {
		if spec.number == number {
			return spec, true
		}
	}
	return fieldSpec{}, false
}

// decodeScalar decodes one value of kind (a single element for
// repeated kinds) from its raw wire bytes.
func decodeScalar(kind fieldKind, value []byte) (any, error) {
	switch kind {
	case kindFixed64:
		decoded, n := protowire.ConsumeFixed64(value)
		if n < 0 {
			return nil, malformedValue(n)
		}
		return decoded, nil
	case kindSfixed64:
		decoded, n := protowire.ConsumeFixed64(value)
		if n < 0 {
			return nil, malformedValue(n)
		}
		return int64(decoded), nil
	case kindSfixed32:
		decoded, n := protowire.ConsumeFixed32(value)
		if n < 0 {
			return nil, malformedValue(n)
		}
		return int32(decoded), nil
	case kindRepeatedDouble:
		decoded, n := protowire.ConsumeFixed64(value)
		if n < 0 {
			return nil, malformedValue(n)
		}
		return math.Float64frombits(decoded), nil
	case kindString, kindRepeatedString:
		decoded, n := protowire.ConsumeBytes(value)
		if n < 0 {
			return nil, malformedValue(n)
		}
		return string(decoded), nil
	case kindBytes, kindRepeatedBytes:
		decoded, n := protowire.ConsumeBytes(value)
		if n < 0 {
			return nil, malformedValue(n)
		}
		return decoded, nil
	}

	decoded, n := protowire.ConsumeVarint(value)
	if n < 0 {
		return nil, malformedValue(n)
	}
	switch kind {
	case kindInt64:
		return int64(decoded), nil
	case kindInt32:
		return int32(decoded), nil
	case kindUint64:
		return decoded, nil
	case kindBool, kindRepeatedBool:
		return protowire.DecodeBool(decoded), nil
	case kindRepeatedSint64:
		return protowire.DecodeZigZag(decoded), nil
	default:
		return nil, fmt.Errorf("%w: unsupported field kind %d", ErrMalformed, kind)
	}
}

// decodePacked unpacks a length-delimited record of packed scalars.
func decodePacked(properties map[string]any, spec fieldSpec, value []byte) error {
	packed, n := protowire.ConsumeBytes(value)
	if n < 0 {
		return fmt.Errorf("field %d (%s): %w", spec.number, spec.name, malformedValue(n))
	}
	for len(packed) > 0 {
		var length int
		switch spec.kind.wireType() {
		case protowire.Fixed64Type:
			_, length = protowire.ConsumeFixed64(packed)
		default:
			_, length = protowire.ConsumeVarint(packed)
		}
		if length < 0 {
			return fmt.Errorf("field %d (%s): %w", spec.number, spec.name, malformedValue(length))
		}
		decoded, err := decodeScalar(spec.kind, packed[:length])
		if err != nil {
			return fmt.Errorf("field %d (%s): %w", spec.number, spec.name, err)
		}
		properties[spec.name] = appendRepeated(properties[spec.name], decoded)
		packed = packed[length:]
	}
	if _, ok := properties[spec.name]; !ok {
		properties[spec.name] = emptyRepeated(spec.kind)
	}
	return nil
}

// appendRepeated appends element to the typed slice held in current.
func appendRepeated(current, element any) any {
	switch value := element.(type) {
	case string:
		values, _ := current.([]string)
		return append(values, value)
	case []byte:
		values, _ := current.([][]byte)
		return append(values, value)
	case int64:
		values, _ := current.([]int64)
		return append(values, value)
	case float64:
		values, _ := current.([]float64)
		return append(values, value)
	case bool:
		values, _ := current.([]bool)
		return append(values, value)
	default:
		return current
	}
}

func emptyRepeated(kind fieldKind) any {
	switch kind {
	case kindRepeatedSint64:
		return []int64{}
	case kindRepeatedDouble:
		return []float64{}
	default:
		return []bool{}
	}
}

func malformedValue(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}

// int64Timestamp converts a raw timestamp field value to signed
// nanoseconds, rejecting values that do not fit.
func int64Timestamp(value any) (int64, error) {
	switch typed := value.(type) {
	case int64:
		return typed, nil
	case uint64:
		converted, err := safecast.Conv[int64](typed)
		if err != nil {
			return 0, fmt.Errorf("%w: timestamp %d: %v", ErrMalformed, typed, err)
		}
		return converted, nil
	default:
		return 0, fmt.Errorf("%w: timestamp has type %T", ErrMalformed, value)
	}
}
