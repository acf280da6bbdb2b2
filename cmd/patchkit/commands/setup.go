// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/patchkit/cmd/patchkit/cli"
	"github.com/bureau-foundation/patchkit/lib/config"
	"github.com/bureau-foundation/patchkit/lib/session"
	"github.com/bureau-foundation/patchkit/lib/workpool"
)

// configFlag is shared by every command that opens a session.
type configFlag struct {
	path string
}

func (f *configFlag) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.path, "config", "", "config file (default: $"+config.EnvironmentVariable+")")
}

// load reads and validates the configuration.
func (f *configFlag) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.path != "" {
		cfg, err = config.LoadFile(f.path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger is replaced in tests to silence output.
var newLogger = func(cfg *config.Config) *slog.Logger {
	return cli.NewLogger(cfg.SlogLevel(), cfg.Log.Format)
}

// openSession loads the configuration and opens a session over it.
// The caller closes the session.
func (f *configFlag) openSession(command string) (*session.Session, *slog.Logger, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg).With("command", command)

	levels := session.Levels{
		Yaz0Top:    cfg.Compression.Yaz0LevelTop,
		Yaz0Nested: cfg.Compression.Yaz0LevelNested,
		Zstd:       cfg.Compression.ZstdLevel,
		LZ4:        cfg.Compression.LZ4Level,
	}
	codecs := session.DefaultCodecs(levels)

	s, err := session.New(session.Config{
		BaseDir:   cfg.BaseDir,
		OutputDir: cfg.OutputDir,
		Pool: workpool.New(workpool.Config{
			Workers:         cfg.Workers,
			ProgressMessage: session.ProgressMessage,
			Logger:          logger,
		}),
		Codecs: &codecs,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("session opened",
		"base_dir", cfg.BaseDir,
		"output_dir", cfg.OutputDir,
		"profile", cfg.Profile,
		"workers", cfg.Workers,
	)
	return s, logger, nil
}
