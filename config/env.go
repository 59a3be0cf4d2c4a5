package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the environment variables that override file settings.
// Unset variables stay nil and leave the file setting untouched.
type envOverrides struct {
	Endpoint           *string  `env:"CURO_ENDPOINT"`
	Timeout            *int     `env:"CURO_TIMEOUT"`
	KeepDraftOnFailure *bool    `env:"CURO_KEEP_DRAFT_ON_FAILURE"`
	ServerAddr         *string  `env:"CURO_SERVER_ADDR"`
	Provider           *string  `env:"CURO_PROVIDER"`
	TextModel          *string  `env:"CURO_TEXT_MODEL"`
	VisionModel        *string  `env:"CURO_VISION_MODEL"`
	SystemPrompt       *string  `env:"CURO_SYSTEM_PROMPT"`
	MaxTokens          *int     `env:"CURO_MAX_TOKENS"`
	Temperature        *float64 `env:"CURO_TEMPERATURE"`
	MaxUploadMB        *int     `env:"CURO_MAX_UPLOAD_MB"`
	LogLevel           *string  `env:"CURO_LOG_LEVEL"`
	LogFormat          *string  `env:"CURO_LOG_FORMAT"`
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	setString(&c.Client.Endpoint, o.Endpoint)
	setString(&c.Server.Addr, o.ServerAddr)
	setString(&c.Server.Provider, o.Provider)
	setString(&c.Server.TextModel, o.TextModel)
	setString(&c.Server.VisionModel, o.VisionModel)
	setString(&c.Server.SystemPrompt, o.SystemPrompt)
	setString(&c.Logging.Level, o.LogLevel)
	setString(&c.Logging.Format, o.LogFormat)

	if o.Timeout != nil {
		if *o.Timeout < 0 {
			return fmt.Errorf("CURO_TIMEOUT: negative seconds %d", *o.Timeout)
		}
		c.Client.Timeout = *o.Timeout
	}
	if o.KeepDraftOnFailure != nil {
		c.Chat.KeepDraftOnFailure = *o.KeepDraftOnFailure
	}
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		c.Server.MaxTokens = *o.MaxTokens
	}
	if o.Temperature != nil {
		c.Server.Temperature = *o.Temperature
	}
	if o.MaxUploadMB != nil && *o.MaxUploadMB > 0 {
		c.Server.MaxUploadMB = *o.MaxUploadMB
	}
	return nil
}

func setString(dst *string, v *string) {
	if v == nil {
		return
	}
	if s := strings.TrimSpace(*v); s != "" {
		*dst = s
	}
}
