// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for tracescope.
//
// Configuration comes from a single file named by the --config flag
// (via [LoadFile]) or the TRACESCOPE_CONFIG environment variable (via
// [Load]). There is no automatic file search: with neither set, the
// command runs on [Default]. Environment variables do not override
// individual values.
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas; every other file is YAML.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded.
//
// Key exports:
//
//   - [Config] -- master struct with Load, Parsers, Frames, Logging, Export
//   - [Default] -- returns a Config with the built-in defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Validate] -- reports every invalid field at once
package config
