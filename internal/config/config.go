// Package config reads the optional snapset configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional snapset configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Generate GenerateConfig `toml:"generate"`
}

// DefaultsConfig holds persistent defaults for the monitor. Nil means unset.
type DefaultsConfig struct {
	WatchDir    *string `toml:"watch_dir"`
	OutputDir   *string `toml:"output_dir"`
	Pattern     *string `toml:"pattern"`
	SetSize     *int    `toml:"set_size"`
	Codec       *string `toml:"codec"`
	Verify      *bool   `toml:"verify"`
	MetricsAddr *string `toml:"metrics_addr"`
}

// GenerateConfig holds defaults for the synthetic producer.
type GenerateConfig struct {
	Interval     *string `toml:"interval"`
	Size         *string `toml:"size"`
	Count        *int    `toml:"count"`
	ImagesPerRun *int    `toml:"images_per_run"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "snapset", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	cfg, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

// LoadFile reads the config file at path. Unlike Load, a missing file is an
// error. Unknown keys are rejected so typos do not pass silently.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if s := c.Defaults.SetSize; s != nil && *s < 1 {
		return fmt.Errorf("defaults.set_size must be at least 1, got %d", *s)
	}
	if n := c.Generate.Count; n != nil && *n < 0 {
		return fmt.Errorf("generate.count must not be negative, got %d", *n)
	}
	if n := c.Generate.ImagesPerRun; n != nil && *n < 1 {
		return fmt.Errorf("generate.images_per_run must be at least 1, got %d", *n)
	}
	return nil
}
