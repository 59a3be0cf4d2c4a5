// Package config handles configuration loading and saving.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linanwx/curo/logger"
)

const (
	configDirName  = ".curo"
	configFileName = "config.yaml"
)

var configDirOverride string

// SetConfigDir overrides the config directory for the current process.
// Empty value clears the override.
func SetConfigDir(dir string) {
	configDirOverride = strings.TrimSpace(dir)
}

// Config is the root configuration structure.
type Config struct {
	Client    ClientConfig    `json:"client" yaml:"client"`
	Chat      ChatConfig      `json:"chat" yaml:"chat"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Providers ProvidersConfig `json:"providers" yaml:"providers"`
	Logging   LoggingConfig   `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// ClientConfig describes how the chat client reaches the inference endpoint.
type ClientConfig struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"`                   // defaults to http://127.0.0.1:8000/uploadfile
	Timeout  int    `json:"timeout,omitempty" yaml:"timeout,omitempty"` // seconds, 0 = wait forever
}

// ChatConfig contains transcript controller switches.
type ChatConfig struct {
	// KeepDraftOnFailure keeps the draft text and attachment after a failed
	// submission. Off by default: a failed submission discards the draft.
	KeepDraftOnFailure bool `json:"keepDraftOnFailure,omitempty" yaml:"keepDraftOnFailure,omitempty"`
}

// ServerConfig contains inference service settings.
type ServerConfig struct {
	Addr            string  `json:"addr" yaml:"addr"`                                           // default: 127.0.0.1:8000
	Provider        string  `json:"provider" yaml:"provider"`                                   // openai, anthropic, echo
	TextModel       string  `json:"textModel,omitempty" yaml:"textModel,omitempty"`             // defaults to the provider's text model
	VisionModel     string  `json:"visionModel,omitempty" yaml:"visionModel,omitempty"`         // defaults to the provider's vision model
	SystemPrompt    string  `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`       // text-only prompts
	MaxTokens       int     `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`             // defaults to 4096
	Temperature     float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`         // 0 = provider default
	MaxPromptTokens int     `json:"maxPromptTokens,omitempty" yaml:"maxPromptTokens,omitempty"` // defaults to 16000
	MaxUploadMB     int     `json:"maxUploadMB,omitempty" yaml:"maxUploadMB,omitempty"`         // defaults to 20
}

// ProvidersConfig contains provider API configurations.
type ProvidersConfig struct {
	OpenAI    *ProviderConfig `json:"openai,omitempty" yaml:"openai,omitempty"`
	Anthropic *ProviderConfig `json:"anthropic,omitempty" yaml:"anthropic,omitempty"`
}

// ProviderConfig contains API credentials for a provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" yaml:"apiKey"`
	APIBase string `json:"apiBase,omitempty" yaml:"apiBase,omitempty"` // optional custom base URL
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Level   string `json:"level,omitempty" yaml:"level,omitempty"`   // debug, info, warn, error
	Format  string `json:"format,omitempty" yaml:"format,omitempty"` // text, json
	Stdout  bool   `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	File    string `json:"file,omitempty" yaml:"file,omitempty"` // relative to the config dir
}

// ConfigDir returns the configuration directory.
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// ConfigPath returns the config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file. A missing file yields the defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("config file not found, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.applyDefaults()
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config file, creating the directory if needed.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// BuildLoggerConfig converts logging settings for logger.Init.
func (c *Config) BuildLoggerConfig() logger.Config {
	enabled := true
	if c.Logging.Enabled != nil {
		enabled = *c.Logging.Enabled
	}
	return logger.Config{
		Enabled: enabled,
		Level:   c.Logging.Level,
		Format:  c.Logging.Format,
		Stdout:  c.Logging.Stdout,
		File:    c.Logging.File,
	}
}

// ProviderCredentials returns the configured API key and base for a provider.
// Unknown providers and missing sections return empty values.
func (c *Config) ProviderCredentials(name string) (apiKey, apiBase string) {
	var pc *ProviderConfig
	switch name {
	case "openai":
		pc = c.Providers.OpenAI
	case "anthropic":
		pc = c.Providers.Anthropic
	}
	if pc == nil {
		return "", ""
	}
	return strings.TrimSpace(pc.APIKey), strings.TrimSpace(pc.APIBase)
}

// SetProviderAPIKey stores an API key for the given provider.
func (c *Config) SetProviderAPIKey(name, apiKey string) {
	switch name {
	case "openai":
		if c.Providers.OpenAI == nil {
			c.Providers.OpenAI = &ProviderConfig{}
		}
		c.Providers.OpenAI.APIKey = apiKey
	case "anthropic":
		if c.Providers.Anthropic == nil {
			c.Providers.Anthropic = &ProviderConfig{}
		}
		c.Providers.Anthropic.APIKey = apiKey
	}
}
