// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file for Load.
const EnvironmentVariable = "PATCHKIT_CONFIG"

// Profile selects per-machine defaults.
type Profile string

const (
	// Desktop is for workstations with many cores.
	Desktop Profile = "desktop"
	// Constrained is for small machines and handheld targets.
	Constrained Profile = "constrained"
)

// Default worker counts per profile.
const (
	DesktopWorkers     = 12
	ConstrainedWorkers = 3
)

// Config is the patchkit configuration.
type Config struct {
	// Profile selects worker defaults and the override section.
	Profile Profile `yaml:"profile"`

	// BaseDir holds the pristine distribution files.
	BaseDir string `yaml:"base_dir"`

	// OutputDir receives patched files.
	OutputDir string `yaml:"output_dir"`

	// Workers is the repack worker count. Zero means the profile
	// default.
	Workers int `yaml:"workers"`

	Log LogConfig `yaml:"log"`

	Compression CompressionConfig `yaml:"compression"`

	// Profile overrides, applied after the base config is loaded.
	Desktop     *ConfigOverrides `yaml:"desktop,omitempty"`
	Constrained *ConfigOverrides `yaml:"constrained,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per profile.
type ConfigOverrides struct {
	Workers     *int               `yaml:"workers,omitempty"`
	Log         *LogConfig         `yaml:"log,omitempty"`
	Compression *CompressionConfig `yaml:"compression,omitempty"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is auto, text, or json. Auto picks text when stderr is
	// a terminal and JSON otherwise.
	// Default: auto
	Format string `yaml:"format"`
}

// CompressionConfig sets encoder levels for repacked streams.
type CompressionConfig struct {
	// Yaz0LevelTop is used for streams that are a whole output file.
	// Range 0 (store) to 9. Default: 1
	Yaz0LevelTop int `yaml:"yaz0_level_top"`

	// Yaz0LevelNested is used for streams inside other containers.
	// Range 0 to 9. Default: 9
	Yaz0LevelNested int `yaml:"yaz0_level_nested"`

	// ZstdLevel ranges 1 to 22. Default: 3
	ZstdLevel int `yaml:"zstd_level"`

	// LZ4Level ranges 0 (fast) to 9. Default: 0
	LZ4Level int `yaml:"lz4_level"`
}

// Default returns the configuration used as a base before loading a
// file. BaseDir and OutputDir have no defaults; the file must set
// them.
func Default() *Config {
	return &Config{
		Profile: Desktop,
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Compression: CompressionConfig{
			Yaz0LevelTop:    1,
			Yaz0LevelNested: 9,
			ZstdLevel:       3,
			LZ4Level:        0,
		},
	}
}

// Load loads configuration from the file named by PATCHKIT_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your patchkit.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Relative
// base_dir and output_dir values are resolved against the directory
// containing the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyProfileOverrides()
	cfg.expandVariables()
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// applyProfileOverrides applies the section matching Profile and
// fills in the profile's worker default.
func (c *Config) applyProfileOverrides() {
	var overrides *ConfigOverrides
	defaultWorkers := DesktopWorkers

	switch c.Profile {
	case Desktop:
		overrides = c.Desktop
	case Constrained:
		overrides = c.Constrained
		defaultWorkers = ConstrainedWorkers
	}

	if overrides != nil {
		if overrides.Workers != nil {
			c.Workers = *overrides.Workers
		}
		if overrides.Log != nil {
			if overrides.Log.Level != "" {
				c.Log.Level = overrides.Log.Level
			}
			if overrides.Log.Format != "" {
				c.Log.Format = overrides.Log.Format
			}
		}
		if overrides.Compression != nil {
			// Zero is a valid Yaz0 level, so compression overrides
			// replace the whole section.
			c.Compression = *overrides.Compression
		}
	}

	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.BaseDir = expandVars(c.BaseDir, vars)
	vars["PATCHKIT_BASE"] = c.BaseDir
	c.OutputDir = expandVars(c.OutputDir, vars)
}

func (c *Config) resolvePaths(configDirectory string) {
	if c.BaseDir != "" && !filepath.IsAbs(c.BaseDir) {
		c.BaseDir = filepath.Join(configDirectory, c.BaseDir)
	}
	if c.OutputDir != "" && !filepath.IsAbs(c.OutputDir) {
		c.OutputDir = filepath.Join(configDirectory, c.OutputDir)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. Provided
// vars win over the process environment.
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

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Profile != Desktop && c.Profile != Constrained {
		errs = append(errs, fmt.Errorf("invalid profile: %s", c.Profile))
	}

	if c.BaseDir == "" {
		errs = append(errs, fmt.Errorf("base_dir is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("output_dir is required"))
	}
	if c.BaseDir != "" && filepath.Clean(c.BaseDir) == filepath.Clean(c.OutputDir) {
		errs = append(errs, fmt.Errorf("output_dir must differ from base_dir"))
	}

	if c.Workers < 1 || c.Workers > 256 {
		errs = append(errs, fmt.Errorf("workers must be between 1 and 256, got %d", c.Workers))
	}

	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	if !inRange(c.Compression.Yaz0LevelTop, 0, 9) {
		errs = append(errs, fmt.Errorf("compression.yaz0_level_top must be between 0 and 9"))
	}
	if !inRange(c.Compression.Yaz0LevelNested, 0, 9) {
		errs = append(errs, fmt.Errorf("compression.yaz0_level_nested must be between 0 and 9"))
	}
	if !inRange(c.Compression.ZstdLevel, 1, 22) {
		errs = append(errs, fmt.Errorf("compression.zstd_level must be between 1 and 22"))
	}
	if !inRange(c.Compression.LZ4Level, 0, 9) {
		errs = append(errs, fmt.Errorf("compression.lz4_level must be between 0 and 9"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func inRange(value, low, high int) bool {
	return value >= low && value <= high
}

// SlogLevel returns Log.Level as a slog level. Unknown values map to
// Info; Validate rejects them.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
