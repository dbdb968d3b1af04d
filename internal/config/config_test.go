package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if *cfg != (Config{}) {
		t.Fatalf("LoadFrom() = %+v, want zero value", cfg)
	}
}

func TestLoadFromValidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".lls.toml")
	data := `
fallback_shell = "zsh"
default_model = "gpt-4o"
base_url = "https://my-proxy.internal"
color_mode = "always"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.FallbackShell != "zsh" || cfg.DefaultModel != "gpt-4o" || cfg.ColorMode != "always" {
		t.Fatalf("LoadFrom() = %+v", cfg)
	}
}

func TestLoadFromRejectsUnknownColorMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".lls.toml")
	if err := os.WriteFile(path, []byte(`color_mode = "rainbow"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom() error = nil, want rejection of unknown color_mode")
	}
}
