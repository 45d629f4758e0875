// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/PixelExperience/development/cmd/tracescope/cli"
	"github.com/PixelExperience/development/lib/config"
	"github.com/PixelExperience/development/lib/session"
)

// sessionParams are the flags shared by every command that loads
// traces. Flags left unset fall back to the configuration file.
type sessionParams struct {
	ConfigPath string `flag:"config" desc:"configuration file (default: $TRACESCOPE_CONFIG)"`
	LogLevel   string `flag:"log-level" desc:"log level: debug, info, warn, error (default: logging.level)"`
	Jobs       int    `flag:"jobs,j" desc:"concurrent reads and decodes (default: load.jobs, 0 means GOMAXPROCS)"`
	Domain     string `flag:"domain" desc:"timestamp domain: elapsed or real (default: load.domain, else real when every trace supports it)"`
}

var errNoInput = errors.New("at least one trace file is required")

// configure resolves the configuration file, applies flag overrides,
// validates the result and builds the command logger.
func (p *sessionParams) configure(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Resolve(p.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if p.LogLevel != "" {
		cfg.Logging.Level = p.LogLevel
	}
	if p.Jobs != 0 {
		cfg.Load.Jobs = p.Jobs
	}
	if p.Domain != "" {
		cfg.Load.Domain = p.Domain
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := cli.NewCommandLogger(stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// open loads paths into a correlated session. The caller closes it.
func (p *sessionParams) open(ctx context.Context, paths []string, stderr io.Writer) (*session.Session, *config.Config, *slog.Logger, error) {
	if len(paths) == 0 {
		return nil, nil, nil, errNoInput
	}
	cfg, logger, err := p.configure(stderr)
	if err != nil {
		return nil, nil, nil, err
	}
	options, err := session.OptionsFromConfig(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	loaded, err := session.Load(ctx, paths, options)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debug("session loaded",
		"traces", loaded.Traces.Len(),
		"rejected", len(loaded.Errors),
		"domain", loaded.Domain.String(),
	)
	return loaded, cfg, logger, nil
}

// closeSession releases the session's blobs, keeping the first error.
func closeSession(loaded *session.Session, err *error) {
	if closeErr := loaded.Close(); closeErr != nil && *err == nil {
		*err = fmt.Errorf("releasing trace files: %w", closeErr)
	}
}
