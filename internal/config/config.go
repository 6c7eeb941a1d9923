// Package config handles relay configuration loading.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/anthropics/relay/internal/prompt"
	"github.com/anthropics/relay/internal/session"
)

// Config represents the complete relay configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	History  HistoryConfig  `yaml:"history"`
	Chat     ChatConfig     `yaml:"chat"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// ProviderConfig holds model-provider settings.
type ProviderConfig struct {
	Name   string `yaml:"name"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// HistoryConfig holds session history settings.
type HistoryConfig struct {
	// MaxPerSession bounds the number of messages retained per session.
	MaxPerSession int `yaml:"max_per_session"`
}

// ChatConfig holds chat flow settings.
type ChatConfig struct {
	// ContextWindow is the default number of conversation turns of context
	// sent with each prompt. Valid range 0-50.
	ContextWindow int `yaml:"context_window"`

	// SystemPrompt is sent with every provider call when set.
	SystemPrompt string `yaml:"system_prompt"`
}

// ArchiveConfig holds session archive settings.
type ArchiveConfig struct {
	// Path is the SQLite file used by archive save/restore.
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment
// overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	cfg.Provider.Name = "gemini"
	cfg.Provider.Model = "gemini-2.0-flash"
	cfg.History.MaxPerSession = session.DefaultMaxHistory
	cfg.Chat.ContextWindow = prompt.DefaultWindow
	cfg.Archive.Path = "./data/relay.db"
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RELAY_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("RELAY_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("RELAY_CONTEXT_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chat.ContextWindow = n
		}
	}
	if v := os.Getenv("RELAY_MAX_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.History.MaxPerSession = n
		}
	}
	if v := os.Getenv("RELAY_ARCHIVE_PATH"); v != "" {
		cfg.Archive.Path = v
	}
	if v := os.Getenv("RELAY_SYSTEM_PROMPT"); v != "" {
		cfg.Chat.SystemPrompt = v
	}
}

// Validate checks configured values against their allowed ranges.
func (c *Config) Validate() error {
	if err := prompt.ValidateWindow(c.Chat.ContextWindow); err != nil {
		return fmt.Errorf("chat.context_window: %w", err)
	}
	if c.History.MaxPerSession < 1 {
		return fmt.Errorf("history.max_per_session: must be at least 1")
	}
	return nil
}
