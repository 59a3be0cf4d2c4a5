// Package cmd implements the curo command line.
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/linanwx/curo/chat"
	"github.com/linanwx/curo/config"
	"github.com/linanwx/curo/inference"
	"github.com/linanwx/curo/logger"
)

var (
	configDirFlag string
	endpointFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "curo",
	Short: "Chat with a model from the terminal, images included",
	Long: `curo is a terminal chat client. It sends your text, and optionally an
image, to an inference endpoint and keeps the conversation on screen.

It also ships the endpoint itself ("curo serve"), backed by OpenAI,
Anthropic or a local echo provider.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Config directory (default ~/.curo)")
	rootCmd.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "Inference endpoint URL (overrides config)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig applies --config-dir, loads the config, starts the logger and
// applies --endpoint.
func loadConfig() (*config.Config, error) {
	config.SetConfigDir(configDirFlag)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	dir, _ := config.ConfigDir()
	if err := logger.Init(cfg.BuildLoggerConfig(), dir); err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
	}
	if e := strings.TrimSpace(endpointFlag); e != "" {
		cfg.Client.Endpoint = e
	}
	return cfg, nil
}

// newController wires the chat controller to the configured endpoint.
func newController(cfg *config.Config) *chat.Controller {
	client := inference.NewClient(inference.Config{
		Endpoint: cfg.Client.Endpoint,
		Timeout:  time.Duration(cfg.Client.Timeout) * time.Second,
	})
	logger.Debug("inference client ready", "endpoint", client.Endpoint(), "timeoutSec", cfg.Client.Timeout)
	return chat.NewController(client, chat.Options{
		KeepDraftOnFailure: cfg.Chat.KeepDraftOnFailure,
	})
}
