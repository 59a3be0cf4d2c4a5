package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linanwx/curo/config"
	"github.com/linanwx/curo/logger"
	"github.com/linanwx/curo/provider"
	"github.com/linanwx/curo/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the inference endpoint",
	Long: `Run the HTTP inference endpoint the chat client talks to.

Endpoints:
  POST /            JSON {"prompt": "..."}
  POST /uploadfile  multipart prompt + optional file (image)

Both answer {"response": "..."}. Text prompts go to the text model with the
configured system prompt; prompts with an image go to the vision model.

Examples:
  curo serve
  curo serve --provider anthropic --addr 0.0.0.0:8000
  curo serve --provider echo        # no API key, replies with the prompt`,
	RunE: runServe,
}

var (
	serveAddr     string
	serveProvider string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "Model provider: "+strings.Join(provider.SupportedProviders(), ", "))
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if a := strings.TrimSpace(serveAddr); a != "" {
		cfg.Server.Addr = a
	}
	if p := strings.TrimSpace(serveProvider); p != "" {
		cfg.Server.Provider = p
	}

	text, vision, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	reg, _ := provider.Lookup(cfg.Server.Provider)
	textModel, visionModel := resolveModels(cfg.Server, reg)

	srv, err := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		SystemPrompt:    cfg.Server.SystemPrompt,
		MaxPromptTokens: cfg.Server.MaxPromptTokens,
		MaxUploadBytes:  int64(cfg.Server.MaxUploadMB) << 20,
		ProviderName:    cfg.Server.Provider,
		TextModel:       textModel,
		VisionModel:     visionModel,
	}, text, vision)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("curo serving on http://%s (provider %s). Press Ctrl+C to stop.\n", cfg.Server.Addr, cfg.Server.Provider)
	return srv.ListenAndServe(ctx)
}

// buildProviders creates the text and vision backends for the configured
// provider.
func buildProviders(cfg *config.Config) (text, vision provider.Provider, err error) {
	name := cfg.Server.Provider
	reg, ok := provider.Lookup(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", provider.ErrUnknownProvider, name)
	}
	textModel, visionModel := resolveModels(cfg.Server, reg)
	apiKey, apiBase := cfg.ProviderCredentials(name)

	for _, m := range []string{textModel, visionModel} {
		if !provider.IsKnownModel(name, m) {
			logger.Warn("model not in the provider's known list, using it anyway", "provider", name, "model", m)
		}
	}

	opts := provider.Options{
		APIKey:      apiKey,
		APIBase:     apiBase,
		MaxTokens:   cfg.Server.MaxTokens,
		Temperature: cfg.Server.Temperature,
	}
	opts.Model = textModel
	if text, err = provider.New(name, opts); err != nil {
		return nil, nil, err
	}
	opts.Model = visionModel
	if vision, err = provider.New(name, opts); err != nil {
		return nil, nil, err
	}

	logger.Info("providers ready", "provider", name, "textModel", textModel, "visionModel", visionModel)
	return text, vision, nil
}

func resolveModels(sc config.ServerConfig, reg provider.ProviderRegistration) (textModel, visionModel string) {
	textModel = strings.TrimSpace(sc.TextModel)
	if textModel == "" {
		textModel = reg.TextModel
	}
	visionModel = strings.TrimSpace(sc.VisionModel)
	if visionModel == "" {
		visionModel = reg.VisionModel
	}
	return textModel, visionModel
}
