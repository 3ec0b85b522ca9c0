// Package config loads and merges fpgrars.toml configuration for a simulator run.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds every setting a run can take from fpgrars.toml, later overridden
// field-by-field by explicit CLI flags.
type Config struct {
	Execution struct {
		MaxCycles uint64 `toml:"max_cycles"`
		Entry     string `toml:"entry"`
		StackSize uint32 `toml:"stack_size"`
	} `toml:"execution"`

	Display struct {
		Width   int  `toml:"width"`
		Height  int  `toml:"height"`
		Scale   int  `toml:"scale"`
		NoVideo bool `toml:"no_video"`
	} `toml:"display"`

	MIDI struct {
		Port          int    `toml:"port"`
		SoundfontPath string `toml:"soundfont_path"`
	} `toml:"midi"`

	Trace struct {
		Verbose bool   `toml:"verbose"`
		LogFile string `toml:"log_file"`
	} `toml:"trace"`
}

// Default returns the configuration used when no fpgrars.toml is present.
func Default() *Config {
	cfg := &Config{}

	cfg.Execution.MaxCycles = 1_000_000_000
	cfg.Execution.Entry = "main"
	cfg.Execution.StackSize = 2 * 1024 * 1024

	cfg.Display.Width = 320
	cfg.Display.Height = 240
	cfg.Display.Scale = 2
	cfg.Display.NoVideo = false

	cfg.MIDI.Port = 0

	cfg.Trace.Verbose = false

	return cfg
}

// Load reads path if it exists, merging its values over Default. A missing
// file is not an error: the default configuration is returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SidecarPath returns the fpgrars.toml expected to sit alongside the given
// assembly entry file, if the caller did not pass an explicit --config.
func SidecarPath(entryFile string) string {
	return filepath.Join(filepath.Dir(entryFile), "fpgrars.toml")
}

// Save writes the configuration to path in TOML form, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- caller-provided config path
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
