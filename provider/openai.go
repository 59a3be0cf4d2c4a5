package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	oaioption "github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/linanwx/curo/logger"
)

const openaiAPIBase = "https://api.openai.com/v1"

func init() {
	RegisterProvider("openai", ProviderRegistration{
		Models:      []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini", "gpt-4.1"},
		TextModel:   "gpt-4o-mini",
		VisionModel: "gpt-4o",
		EnvKey:      "OPENAI_API_KEY",
		EnvBase:     "OPENAI_API_BASE",
		Constructor: func(apiKey, apiBase, modelName string, maxTokens int, temperature float64) Provider {
			return newOpenAIProvider(apiKey, apiBase, modelName, maxTokens, temperature)
		},
	})
}

// OpenAIProvider talks to the OpenAI chat completions API or anything
// compatible with it.
type OpenAIProvider struct {
	apiBase     string
	modelName   string
	maxTokens   int
	temperature float64
	client      openai.Client
}

func newOpenAIProvider(apiKey, apiBase, modelName string, maxTokens int, temperature float64) *OpenAIProvider {
	baseURL := normalizeSDKBaseURL(apiBase, openaiAPIBase, "/chat/completions")
	client := openai.NewClient(
		oaioption.WithAPIKey(apiKey),
		oaioption.WithBaseURL(baseURL),
		oaioption.WithMaxRetries(sdkMaxRetries),
	)
	return &OpenAIProvider{
		apiBase:     baseURL,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      client,
	}
}

// toOpenAIMessages builds the message list. Images travel as an image_url
// content part holding a data URL, next to the prompt text.
func toOpenAIMessages(req *Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if s := strings.TrimSpace(req.System); s != "" {
		messages = append(messages, openai.SystemMessage(s))
	}
	if req.HasImage() {
		messages = append(messages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(req.Prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: req.Image.DataURL(),
			}),
		}))
		return messages
	}
	return append(messages, openai.UserMessage(req.Prompt))
}

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	logger.Info(
		"openai request",
		"modelName", p.modelName,
		"hasImage", req.HasImage(),
		"hasSystem", req.System != "",
		"inputChars", len(req.Prompt),
	)

	chatReq := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.modelName),
		Messages: toOpenAIMessages(req),
	}
	if p.maxTokens > 0 {
		chatReq.MaxTokens = openai.Int(int64(p.maxTokens))
	}
	if p.temperature != 0 {
		chatReq.Temperature = openai.Float(p.temperature)
	}

	chatResp, err := p.client.Chat.Completions.New(ctx, chatReq)
	if err != nil {
		logger.Error("openai request send error", "modelName", p.modelName, "err", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		logger.Warn("openai no choices", "modelName", p.modelName)
		return &Response{}, nil
	}

	choice := chatResp.Choices[0]
	logger.Info(
		"openai response",
		"modelName", p.modelName,
		"finishReason", choice.FinishReason,
		"promptTokens", chatResp.Usage.PromptTokens,
		"completionTokens", chatResp.Usage.CompletionTokens,
		"totalTokens", chatResp.Usage.TotalTokens,
		"outputChars", len(choice.Message.Content),
		"latencyMs", time.Since(start).Milliseconds(),
	)

	return &Response{
		Content: choice.Message.Content,
		Usage: Usage{
			PromptTokens:     int(chatResp.Usage.PromptTokens),
			CompletionTokens: int(chatResp.Usage.CompletionTokens),
			TotalTokens:      int(chatResp.Usage.TotalTokens),
		},
	}, nil
}
