// Package config loads .lls.toml, the optional typed-override file that
// replaces the original implementation's dynamically executed .llsrc.py
// (SPEC_FULL.md §3/§9): declarative only, no code execution, silently
// absent by default.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds every typed override .lls.toml may set. Zero values mean
// "use the built-in default" at every call site.
type Config struct {
	FallbackShell string `toml:"fallback_shell"`
	DefaultModel  string `toml:"default_model"`
	BaseURL       string `toml:"base_url"`
	ColorMode     string `toml:"color_mode"`
}

// HomeDir returns $HOME, falling back to the working directory so a
// misconfigured environment degrades rather than panics.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// Path returns the default location of .lls.toml.
func Path() string {
	return filepath.Join(HomeDir(), ".lls.toml")
}

// Load reads .lls.toml from the default path. A missing file is not an
// error; it returns the zero Config.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads and parses path. A missing file returns the zero Config.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.ColorMode {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("color_mode: unknown value %q (want auto, always, or never)", c.ColorMode)
	}
	return nil
}
