// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Tracescope loads Android system traces (SurfaceFlinger layers,
// transactions, WindowManager, input method, ProtoLog, accessibility,
// screen recordings) from files and archives, correlates them on a
// shared frame clock, and reports or exports the result.
//
// Usage:
//
//	tracescope load [flags] FILE...
//	tracescope frames --frame N [--count K] [flags] FILE...
//	tracescope export [--output PATH] [--compression zstd|lz4|none] FILE...
//	tracescope inspect SNAPSHOT
//	tracescope version
//
// Every command accepts --config (or TRACESCOPE_CONFIG) naming a YAML
// or JSONC configuration file; see lib/config.
package main
