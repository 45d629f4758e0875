// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/PixelExperience/development/lib/framemapper"
	"github.com/PixelExperience/development/lib/parser"
	"github.com/PixelExperience/development/lib/timestamp"
	"github.com/PixelExperience/development/lib/trace"
)

// EnvironmentVariable names the configuration file when no --config
// flag is given.
const EnvironmentVariable = "TRACESCOPE_CONFIG"

// Config is the master configuration for tracescope.
type Config struct {
	// Load configures reading and decoding trace files.
	Load LoadConfig `yaml:"load" json:"load"`

	// Parsers configures format detection.
	Parsers ParsersConfig `yaml:"parsers" json:"parsers"`

	// Frames configures frame correlation.
	Frames FramesConfig `yaml:"frames" json:"frames"`

	// Logging configures the command logger.
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Export configures snapshot export.
	Export ExportConfig `yaml:"export" json:"export"`
}

// LoadConfig configures reading and decoding trace files.
type LoadConfig struct {
	// Jobs bounds concurrent file reads and decodes.
	// Default: 0 (GOMAXPROCS)
	Jobs int `yaml:"jobs" json:"jobs"`

	// Domain forces the timestamp domain: "elapsed" or "real". Empty
	// picks real when every trace supports it.
	Domain string `yaml:"domain" json:"domain"`

	// MmapThreshold is the file size in bytes from which files are
	// memory-mapped instead of read. Zero disables mapping.
	// Default: 64 MiB
	MmapThreshold int64 `yaml:"mmap_threshold" json:"mmap_threshold"`

	// MaxDecompressedSize caps the bytes produced by expanding one
	// compressed stream or archive member.
	// Default: 4 GiB
	MaxDecompressedSize int64 `yaml:"max_decompressed_size" json:"max_decompressed_size"`
}

// ParsersConfig configures format detection.
type ParsersConfig struct {
	// Order lists the format variants tried on each file, highest
	// priority first. Empty means every built-in variant in the
	// default order.
	Order []string `yaml:"order" json:"order"`
}

// FramesConfig configures frame correlation.
type FramesConfig struct {
	// Anchors is the preference order of traces that can define the
	// frame clock. Empty means screen_recording, surface_flinger,
	// window_manager.
	Anchors []string `yaml:"anchors" json:"anchors"`

	// DisabledSteps lists propagation steps to skip.
	DisabledSteps []string `yaml:"disabled_steps" json:"disabled_steps"`
}

// LoggingConfig configures the command logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level" json:"level"`

	// Format is text, json, or auto (text on a terminal).
	// Default: auto
	Format string `yaml:"format" json:"format"`
}

// ExportConfig configures snapshot export.
type ExportConfig struct {
	// Directory receives snapshots written without an explicit path.
	// Default: ${HOME}/.cache/tracescope/snapshots
	Directory string `yaml:"directory" json:"directory"`

	// Compression is zstd, lz4, or none.
	// Default: zstd
	Compression string `yaml:"compression" json:"compression"`
}

var (
	domainValues      = []string{"", timestamp.Elapsed.String(), timestamp.Real.String()}
	levelValues       = []string{"debug", "info", "warn", "error"}
	formatValues      = []string{"auto", "text", "json"}
	compressionValues = []string{"zstd", "lz4", "none"}
)

// Default returns the default configuration. Loaded files are merged
// over it.
func Default() *Config {
	return &Config{
		Load: LoadConfig{
			MmapThreshold:       64 << 20,
			MaxDecompressedSize: 4 << 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Export: ExportConfig{
			Directory:   filepath.Join("${HOME}", ".cache", "tracescope", "snapshots"),
			Compression: "zstd",
		},
	}
}

// Load loads configuration from the file named by TRACESCOPE_CONFIG.
// It fails if the variable is not set.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a tracescope config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// Resolve loads flagPath when set, else the file named by
// TRACESCOPE_CONFIG when set, else returns [Default] with variables
// expanded.
func Resolve(flagPath string) (*Config, error) {
	if flagPath != "" {
		return LoadFile(flagPath)
	}
	if os.Getenv(EnvironmentVariable) != "" {
		return Load()
	}
	cfg := Default()
	cfg.expandVariables()
	return cfg, nil
}

// LoadFile loads configuration from a specific file path. Values not
// present in the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges one configuration file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return yaml.Unmarshal(data, c)
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Export.Directory = expandVars(c.Export.Directory, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.Load.Jobs < 0 {
		errs = append(errs, fmt.Errorf("load.jobs must not be negative, got %d", c.Load.Jobs))
	}
	if !slices.Contains(domainValues, c.Load.Domain) {
		errs = append(errs, fmt.Errorf("load.domain must be empty or one of: %v", domainValues[1:]))
	}
	if c.Load.MmapThreshold < 0 {
		errs = append(errs, fmt.Errorf("load.mmap_threshold must not be negative"))
	}
	if c.Load.MaxDecompressedSize <= 0 {
		errs = append(errs, fmt.Errorf("load.max_decompressed_size must be positive"))
	}

	if _, err := parser.ParseVariants(c.Parsers.Order); err != nil {
		errs = append(errs, fmt.Errorf("parsers.order: %w", err))
	}

	if _, err := c.Frames.AnchorTypes(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Frames.Disabled(); err != nil {
		errs = append(errs, err)
	}

	if !slices.Contains(levelValues, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", levelValues))
	}
	if !slices.Contains(formatValues, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", formatValues))
	}

	if !slices.Contains(compressionValues, c.Export.Compression) {
		errs = append(errs, fmt.Errorf("export.compression must be one of: %v", compressionValues))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// TimestampDomain returns the forced domain, or false when the domain
// is picked automatically.
func (l LoadConfig) TimestampDomain() (timestamp.Domain, bool, error) {
	if l.Domain == "" {
		return 0, false, nil
	}
	domain, err := timestamp.ParseDomain(l.Domain)
	if err != nil {
		return 0, false, fmt.Errorf("load.domain: %w", err)
	}
	return domain, true, nil
}

// AnchorTypes parses Anchors.
func (f FramesConfig) AnchorTypes() ([]trace.Type, error) {
	var types []trace.Type
	for _, name := range f.Anchors {
		traceType, err := trace.ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("frames.anchors: %w", err)
		}
		types = append(types, traceType)
	}
	return types, nil
}

// Disabled parses DisabledSteps.
func (f FramesConfig) Disabled() ([]framemapper.Step, error) {
	var steps []framemapper.Step
	for _, name := range f.DisabledSteps {
		step, err := framemapper.ParseStep(name)
		if err != nil {
			return nil, fmt.Errorf("frames.disabled_steps: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// EnsureExportDirectory creates the export directory if it does not
// exist.
func (c *Config) EnsureExportDirectory() error {
	if c.Export.Directory == "" {
		return nil
	}
	if err := os.MkdirAll(c.Export.Directory, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Export.Directory, err)
	}
	return nil
}
