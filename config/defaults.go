package config

const (
	DefaultEndpoint     = "http://127.0.0.1:8000/uploadfile"
	DefaultServerAddr   = "127.0.0.1:8000"
	DefaultProvider     = "openai"
	DefaultSystemPrompt = "You are a helpful assistant that creates bedtime stories for children."

	defaultMaxTokens       = 4096
	defaultMaxPromptTokens = 16000
	defaultMaxUploadMB     = 20
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Endpoint: DefaultEndpoint,
		},
		Server: ServerConfig{
			Addr:            DefaultServerAddr,
			Provider:        DefaultProvider,
			SystemPrompt:    DefaultSystemPrompt,
			MaxTokens:       defaultMaxTokens,
			MaxPromptTokens: defaultMaxPromptTokens,
			MaxUploadMB:     defaultMaxUploadMB,
		},
		Providers: ProvidersConfig{
			OpenAI: &ProviderConfig{},
		},
		Logging: defaultLoggingConfig(),
	}
}

func defaultLoggingConfig() LoggingConfig {
	enabled := true
	return LoggingConfig{
		Enabled: &enabled,
		Level:   "info",
		Format:  "text",
		File:    "logs/curo.log",
	}
}

func (c *Config) applyDefaults() {
	if c.Client.Endpoint == "" {
		c.Client.Endpoint = DefaultEndpoint
	}
	if c.Client.Timeout < 0 {
		c.Client.Timeout = 0
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.Provider == "" {
		c.Server.Provider = DefaultProvider
	}
	if c.Server.SystemPrompt == "" {
		c.Server.SystemPrompt = DefaultSystemPrompt
	}
	if c.Server.MaxTokens <= 0 {
		c.Server.MaxTokens = defaultMaxTokens
	}
	if c.Server.MaxPromptTokens <= 0 {
		c.Server.MaxPromptTokens = defaultMaxPromptTokens
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}

	def := defaultLoggingConfig()
	if c.Logging == (LoggingConfig{}) {
		c.Logging = def
		return
	}
	if c.Logging.Enabled == nil {
		c.Logging.Enabled = def.Enabled
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Format
	}
	if !c.Logging.Stdout && c.Logging.File == "" {
		c.Logging.File = def.File
	}
}
