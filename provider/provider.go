// Package provider defines the model backends the inference server talks to.
package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/linanwx/curo/media"
)

const sdkMaxRetries = 2

// ErrUnknownProvider is returned by New for names nobody registered.
var ErrUnknownProvider = errors.New("unknown provider")

// Provider is the interface for model backends.
type Provider interface {
	// Chat sends a single-turn request and returns the model's reply.
	Chat(ctx context.Context, req *Request) (*Response, error)
}

// Request is one prompt, optionally with an image.
type Request struct {
	System string            // system prompt, may be empty
	Prompt string            // user text
	Image  *media.Attachment // optional
}

// HasImage reports whether the request carries an image.
func (r *Request) HasImage() bool {
	return r.Image != nil && len(r.Image.Data) > 0
}

// Response is the model's reply.
type Response struct {
	Content string
	Usage   Usage
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderConstructor builds a provider for the requested model/runtime settings.
type ProviderConstructor func(apiKey, apiBase, modelName string, maxTokens int, temperature float64) Provider

// ProviderRegistration defines metadata and constructor for a provider.
type ProviderRegistration struct {
	Models      []string
	TextModel   string // default for text-only prompts
	VisionModel string // default for prompts with an image
	EnvKey      string
	EnvBase     string
	// KeyOptional marks providers that work without credentials.
	KeyOptional bool
	Constructor ProviderConstructor
}

// Options are the runtime settings passed to New.
type Options struct {
	APIKey      string
	APIBase     string
	Model       string
	MaxTokens   int
	Temperature float64
}

var providerRegistry = map[string]ProviderRegistration{}

// RegisterProvider registers provider metadata and constructor.
func RegisterProvider(name string, reg ProviderRegistration) {
	name = strings.TrimSpace(name)
	if name == "" || reg.Constructor == nil {
		return
	}

	models := make([]string, 0, len(reg.Models))
	for _, model := range reg.Models {
		model = strings.TrimSpace(model)
		if model == "" {
			continue
		}
		models = append(models, model)
	}

	reg.Models = models
	reg.EnvKey = strings.TrimSpace(reg.EnvKey)
	reg.EnvBase = strings.TrimSpace(reg.EnvBase)
	providerRegistry[name] = reg
}

// Lookup returns the registration for name.
func Lookup(name string) (ProviderRegistration, bool) {
	reg, ok := providerRegistry[strings.TrimSpace(name)]
	return reg, ok
}

// SupportedProviders returns all supported provider names in sorted order.
func SupportedProviders() []string {
	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportedModelsForProvider returns known models for the given provider.
func SupportedModelsForProvider(providerName string) []string {
	reg, ok := providerRegistry[providerName]
	if !ok {
		return nil
	}
	out := make([]string, len(reg.Models))
	copy(out, reg.Models)
	return out
}

// IsKnownModel reports whether model is listed for the provider. Unlisted
// models still work; callers only use this to warn.
func IsKnownModel(providerName, model string) bool {
	for _, m := range SupportedModelsForProvider(providerName) {
		if m == model {
			return true
		}
	}
	return false
}

// New builds the named provider. Empty credentials fall back to the
// registration's environment variables (OPENAI_API_KEY and friends). These
// are the vendors' own names and belong to the registration; CURO_*
// settings are read by the config package.
func New(name string, opts Options) (Provider, error) {
	reg, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnknownProvider, name, strings.Join(SupportedProviders(), ", "))
	}

	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" && reg.EnvKey != "" {
		apiKey = strings.TrimSpace(os.Getenv(reg.EnvKey))
	}
	if apiKey == "" && !reg.KeyOptional {
		return nil, fmt.Errorf("provider %s: no API key (set it in config or %s)", name, reg.EnvKey)
	}
	apiBase := strings.TrimSpace(opts.APIBase)
	if apiBase == "" && reg.EnvBase != "" {
		apiBase = strings.TrimSpace(os.Getenv(reg.EnvBase))
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = reg.TextModel
	}

	return reg.Constructor(apiKey, apiBase, model, opts.MaxTokens, opts.Temperature), nil
}

// normalizeSDKBaseURL turns a configured base into what the SDKs expect:
// no trailing slash and no endpoint path the SDK appends itself.
func normalizeSDKBaseURL(apiBase, defaultBase, endpointSuffix string) string {
	base := strings.TrimSpace(apiBase)
	if base == "" {
		base = defaultBase
	}
	base = strings.TrimRight(base, "/")
	if endpointSuffix != "" {
		base = strings.TrimSuffix(base, endpointSuffix)
	}
	return strings.TrimRight(base, "/")
}
