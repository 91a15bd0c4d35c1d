// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for treeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete treeline configuration.
type Config struct {
	Version string `toml:"version"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// Ollama configuration
	Ollama OllamaConfig `toml:"ollama"`

	// Layout spacing for the auto-layout grid
	Layout LayoutConfig `toml:"layout"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// StorageConfig selects and locates the persisted store.
type StorageConfig struct {
	// Backend is "sqlite" (default) or "files".
	Backend string `toml:"backend"`
	// DataDir holds the store (default: ~/.treeline).
	DataDir string `toml:"data_dir"`
}

// OllamaConfig contains local Ollama configuration.
type OllamaConfig struct {
	// URL is the Ollama server base URL.
	URL string `toml:"url"`
	// Model is the completion model.
	Model string `toml:"model"`
	// TimeoutSecs bounds a single completion request.
	TimeoutSecs int `toml:"timeout_secs"`
	// RequestsPerSecond caps the request rate to the server.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LayoutConfig contains the auto-layout spacing constants.
type LayoutConfig struct {
	BaseX             float64 `toml:"base_x"`
	BaseY             float64 `toml:"base_y"`
	NodeWidth         float64 `toml:"node_width"`
	VerticalSpacing   float64 `toml:"vertical_spacing"`
	HorizontalSpacing float64 `toml:"horizontal_spacing"`
	DiagonalStep      float64 `toml:"diagonal_step"`
}

// UIConfig contains display configuration.
type UIConfig struct {
	// Theme is "dark", "light", or "auto".
	Theme string `toml:"theme"`
	// WordWrap is the markdown render width in columns.
	WordWrap int `toml:"word_wrap"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Storage: StorageConfig{
			Backend: "sqlite",
		},
		Ollama: OllamaConfig{
			URL:               "http://127.0.0.1:11434",
			Model:             "qwen2.5:7b",
			TimeoutSecs:       120,
			RequestsPerSecond: 2,
		},
		Layout: LayoutConfig{
			BaseX:             100,
			BaseY:             100,
			NodeWidth:         250,
			VerticalSpacing:   200,
			HorizontalSpacing: 50,
			DiagonalStep:      30,
		},
		UI: UIConfig{
			Theme:    "auto",
			WordWrap: 80,
		},
	}
}

// ConfigDir returns the treeline configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".treeline"), nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from path (or the default location when path is
// empty), merges it over the defaults, applies environment overrides, and
// validates. A missing file is not an error: defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets the environment win over the file.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("TREELINE_OLLAMA_URL"); url != "" {
		c.Ollama.URL = url
	}
	if model := os.Getenv("TREELINE_MODEL"); model != "" {
		c.Ollama.Model = model
	}
	if dir := os.Getenv("TREELINE_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if backend := os.Getenv("TREELINE_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if theme := os.Getenv("TREELINE_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// fillDefaults repairs zero values a sparse file left behind.
func (c *Config) fillDefaults() {
	def := Default()

	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Storage.DataDir == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Storage.DataDir = dir
		}
	}
	if c.Ollama.URL == "" {
		c.Ollama.URL = def.Ollama.URL
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = def.Ollama.Model
	}
	if c.Ollama.TimeoutSecs <= 0 {
		c.Ollama.TimeoutSecs = def.Ollama.TimeoutSecs
	}
	if c.Ollama.RequestsPerSecond <= 0 {
		c.Ollama.RequestsPerSecond = def.Ollama.RequestsPerSecond
	}
	if c.Layout.NodeWidth <= 0 {
		c.Layout.NodeWidth = def.Layout.NodeWidth
	}
	if c.Layout.VerticalSpacing <= 0 {
		c.Layout.VerticalSpacing = def.Layout.VerticalSpacing
	}
	if c.Layout.HorizontalSpacing <= 0 {
		c.Layout.HorizontalSpacing = def.Layout.HorizontalSpacing
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.WordWrap <= 0 {
		c.UI.WordWrap = def.UI.WordWrap
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate reports structurally invalid configuration.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite", "files":
	default:
		return fmt.Errorf("config: unknown storage backend %q (want \"sqlite\" or \"files\")", c.Storage.Backend)
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("config: unknown theme %q (want \"dark\", \"light\" or \"auto\")", c.UI.Theme)
	}

	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration as TOML to path (or the default location
// when path is empty).
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
