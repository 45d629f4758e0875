// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import "fmt"

// Type identifies the subsystem a trace was captured from. At most one
// trace of each type is loaded in a session.
type Type uint8

const (
	ScreenRecording Type = iota + 1
	SurfaceFlinger
	WindowManager
	Transactions
	InputMethodClients
	InputMethodManagerService
	InputMethodService
	ProtoLog
	Accessibility
)

// AllTypes lists every trace type in declaration order.
var AllTypes = []Type{
	ScreenRecording,
	SurfaceFlinger,
	WindowManager,
	Transactions,
	InputMethodClients,
	InputMethodManagerService,
	InputMethodService,
	ProtoLog,
	Accessibility,
}

var typeNames = map[Type]string{
	ScreenRecording:           "screen_recording",
	SurfaceFlinger:            "surface_flinger",
	WindowManager:             "window_manager",
	Transactions:              "transactions",
	InputMethodClients:        "input_method_clients",
	InputMethodManagerService: "input_method_manager_service",
	InputMethodService:        "input_method_service",
	ProtoLog:                  "proto_log",
	Accessibility:             "accessibility",
}

// String returns the snake_case name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Valid reports whether t is one of the declared types.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseType parses the name produced by [Type.String].
func ParseType(name string) (Type, error) {
	for traceType, typeName := range typeNames {
		if typeName == name {
			return traceType, nil
		}
	}
	return 0, fmt.Errorf("unknown trace type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid trace type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
