package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linanwx/curo/logger"
)

const (
	anthropicAPIBase          = "https://api.anthropic.com"
	anthropicDefaultMaxTokens = 4096
)

func init() {
	RegisterProvider("anthropic", ProviderRegistration{
		Models:      []string{"claude-sonnet-4-5", "claude-haiku-4-5"},
		TextModel:   "claude-haiku-4-5",
		VisionModel: "claude-sonnet-4-5",
		EnvKey:      "ANTHROPIC_API_KEY",
		EnvBase:     "ANTHROPIC_API_BASE",
		Constructor: func(apiKey, apiBase, modelName string, maxTokens int, temperature float64) Provider {
			return newAnthropicProvider(apiKey, apiBase, modelName, maxTokens, temperature)
		},
	})
}

// AnthropicProvider talks to the Anthropic messages API.
type AnthropicProvider struct {
	modelName   string
	maxTokens   int
	temperature float64
	client      anthropic.Client
}

func newAnthropicProvider(apiKey, apiBase, modelName string, maxTokens int, temperature float64) *AnthropicProvider {
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(normalizeSDKBaseURL(apiBase, anthropicAPIBase, "/v1/messages")),
		option.WithMaxRetries(sdkMaxRetries),
	)
	return &AnthropicProvider{
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      client,
	}
}

func buildAnthropicParams(req *Request, model string, maxTokens int, temperature float64) anthropic.MessageNewParams {
	var blocks []anthropic.ContentBlockParamUnion
	if req.HasImage() {
		blocks = append(blocks, anthropic.NewImageBlockBase64(req.Image.MIMEType, req.Image.Base64()))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.Prompt))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		MaxTokens: int64(maxTokens),
	}
	if s := strings.TrimSpace(req.System); s != "" {
		params.System = []anthropic.TextBlockParam{{Text: s}}
	}
	if temperature != 0 {
		params.Temperature = anthropic.Float(temperature)
	}
	return params
}

// Chat sends a messages request.
func (p *AnthropicProvider) Chat(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	logger.Info(
		"anthropic request",
		"modelName", p.modelName,
		"hasImage", req.HasImage(),
		"inputChars", len(req.Prompt),
	)

	resp, err := p.client.Messages.New(ctx, buildAnthropicParams(req, p.modelName, p.maxTokens, p.temperature))
	if err != nil {
		logger.Error("anthropic request send error", "modelName", p.modelName, "err", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.AsText().Text)
		}
	}

	logger.Info(
		"anthropic response",
		"modelName", p.modelName,
		"stopReason", resp.StopReason,
		"inputTokens", resp.Usage.InputTokens,
		"outputTokens", resp.Usage.OutputTokens,
		"outputChars", content.Len(),
		"latencyMs", time.Since(start).Milliseconds(),
	)

	return &Response{
		Content: content.String(),
		Usage: Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}
