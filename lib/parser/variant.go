// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"fmt"
	"strings"

	"github.com/PixelExperience/development/lib/blob"
	"github.com/PixelExperience/development/lib/trace"
)

// Variant is one supported trace file format.
type Variant interface {
	// Name identifies the variant in configuration and diagnostics.
	Name() string

	// Type is the trace type every parser the variant produces has.
	Type() trace.Type

	// Decode returns a parser over blob, or an error if blob is not in
	// this variant's format or is malformed. Decode holds no state
	// between calls and is safe for concurrent use.
	Decode(input blob.Blob) (trace.Parser, error)
}

// DefaultVariants returns every variant in the order a selector tries
// them. The order matters only for formats that could claim the same
// bytes: the magic-less window manager dump comes last.
func DefaultVariants() []Variant {
	return []Variant{
		protoVariant{accessibilityFormat},
		protoVariant{inputMethodClientsFormat},
		protoVariant{inputMethodManagerServiceFormat},
		protoVariant{inputMethodServiceFormat},
		protoVariant{protoLogFormat},
		screenRecordingVariant{},
		legacyScreenRecordingVariant{},
		protoVariant{surfaceFlingerFormat},
		protoVariant{transactionsFormat},
		protoVariant{windowManagerFormat},
		windowManagerDumpVariant{},
	}
}

// VariantNames returns the names of the default variants in order.
func VariantNames() []string {
	variants := DefaultVariants()
	names := make([]string, len(variants))
	for i, variant := range variants {
		names[i] = variant.Name()
	}
	return names
}

// ParseVariants returns the named variants in the given order. An empty
// list selects [DefaultVariants].
func ParseVariants(names []string) ([]Variant, error) {
	if len(names) == 0 {
		return DefaultVariants(), nil
	}
	byName := make(map[string]Variant)
	for _, variant := range DefaultVariants() {
		byName[variant.Name()] = variant
	}

	variants := make([]Variant, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		variant, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown parser variant %q (known: %s)", name, strings.Join(VariantNames(), ", "))
		}
		if seen[name] {
			return nil, fmt.Errorf("parser variant %q listed twice", name)
		}
		seen[name] = true
		variants = append(variants, variant)
	}
	return variants, nil
}
