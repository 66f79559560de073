// Package config loads switchboard configuration. Precedence, lowest
// first: built-in defaults, an optional YAML file, then environment
// variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds everything the CLI wires together.
type Config struct {
	// Workspace is the directory tools operate in. Empty means the
	// current working directory.
	Workspace string `yaml:"workspace" env:"SWB_WORKSPACE"`

	// RouterThreshold is the complexity score at or above which a prompt
	// routes to the premium tier.
	RouterThreshold int `yaml:"router_threshold" env:"SWB_ROUTER_THRESHOLD"`

	// MaxRounds lowers the tool-round budget per run. Values above the
	// loop's hard ceiling are clamped by the loop.
	MaxRounds int `yaml:"max_rounds" env:"SWB_MAX_ROUNDS"`

	// Model forces a specific catalog model, bypassing tier routing.
	Model string `yaml:"model" env:"SWB_MODEL"`

	// Provider overrides the provider backend inferred from the model
	// catalog. Empty means use the catalog's provider for the chosen model.
	Provider string `yaml:"provider" env:"SWB_PROVIDER"`

	// CommandTimeout bounds shell commands without an explicit timeout.
	CommandTimeout time.Duration `yaml:"command_timeout" env:"SWB_COMMAND_TIMEOUT"`

	// MaxCommandTimeout caps model-requested command timeouts.
	MaxCommandTimeout time.Duration `yaml:"max_command_timeout" env:"SWB_MAX_COMMAND_TIMEOUT"`

	// ToolCharLimits overrides per-tool output character limits.
	ToolCharLimits map[string]int `yaml:"tool_char_limits" env:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RouterThreshold:   3,
		MaxRounds:         15,
		CommandTimeout:    10 * time.Second,
		MaxCommandTimeout: 10 * time.Minute,
	}
}

// Load builds the effective configuration. path names a YAML file; an
// empty path or a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.RouterThreshold < 1 {
		return Config{}, fmt.Errorf("router_threshold must be positive, got %d", cfg.RouterThreshold)
	}
	if cfg.MaxRounds < 1 {
		return Config{}, fmt.Errorf("max_rounds must be positive, got %d", cfg.MaxRounds)
	}
	return cfg, nil
}
