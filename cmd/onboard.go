package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/linanwx/curo/config"
	"github.com/linanwx/curo/provider"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Create the curo configuration interactively",
	Long:  `Create the curo configuration directory and config file with a short wizard.`,
	RunE:  runOnboard,
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}

// providerURLs maps provider names to their API key portal URLs.
var providerURLs = map[string]string{
	"openai":    "https://platform.openai.com/api-keys",
	"anthropic": "https://console.anthropic.com",
}

func runOnboard(_ *cobra.Command, _ []string) error {
	config.SetConfigDir(configDirFlag)
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Config already exists at:", configPath)
		fmt.Println("To reconfigure, edit the file directly or delete it first.")
		return nil
	}

	var (
		selectedProvider string
		textModel        string
		visionModel      string
		apiKey           string
		endpoint         = config.DefaultEndpoint
	)

	// Step 1: provider
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose the model provider for curo serve").
				Description("The chat client talks to an endpoint; this picks what that endpoint uses.").
				Options(buildProviderOptions()...).
				Value(&selectedProvider),
		),
	).Run()
	if err != nil {
		return err
	}
	reg, _ := provider.Lookup(selectedProvider)
	textModel, visionModel = reg.TextModel, reg.VisionModel

	// Step 2: models
	modelOptions := buildModelOptions(selectedProvider)
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model for text prompts").
				Options(modelOptions...).
				Value(&textModel),
			huh.NewSelect[string]().
				Title("Model for prompts with an image").
				Options(modelOptions...).
				Value(&visionModel),
		),
	).Run()
	if err != nil {
		return err
	}

	// Step 3: API key
	if !reg.KeyOptional {
		keyURL := providerURLs[selectedProvider]
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Enter your "+selectedProvider+" API key").
					Description("Create one at "+keyURL+". Leave empty to use "+reg.EnvKey+".").
					EchoMode(huh.EchoModePassword).
					Value(&apiKey),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// Step 4: endpoint
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Inference endpoint for curo chat").
				Description("Keep the default to talk to a local curo serve.").
				Validate(validateEndpoint).
				Value(&endpoint),
		),
	).Run()
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	cfg.Client.Endpoint = strings.TrimSpace(endpoint)
	cfg.Server.Provider = selectedProvider
	cfg.Server.TextModel = textModel
	cfg.Server.VisionModel = visionModel
	if k := strings.TrimSpace(apiKey); k != "" {
		cfg.SetProviderAPIKey(selectedProvider, k)
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("curo configured.")
	fmt.Println()
	fmt.Println("  Config:", configPath)
	fmt.Println("  Provider:", selectedProvider)
	fmt.Println("  Text model:", textModel)
	fmt.Println("  Vision model:", visionModel)
	fmt.Println("  Endpoint:", cfg.Client.Endpoint)
	fmt.Println()
	fmt.Println("Run 'curo serve' in one terminal and 'curo chat' in another.")
	return nil
}

func buildProviderOptions() []huh.Option[string] {
	names := provider.SupportedProviders()
	options := make([]huh.Option[string], 0, len(names))
	for _, name := range names {
		label := name + " (" + strings.Join(provider.SupportedModelsForProvider(name), ", ") + ")"
		if name == config.DefaultProvider {
			label += " [Recommended]"
		}
		options = append(options, huh.NewOption(label, name))
	}
	return options
}

func buildModelOptions(providerName string) []huh.Option[string] {
	models := provider.SupportedModelsForProvider(providerName)
	options := make([]huh.Option[string], 0, len(models))
	for _, m := range models {
		options = append(options, huh.NewOption(m, m))
	}
	return options
}

func validateEndpoint(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("endpoint must be an http or https URL")
	}
	if u.Host == "" {
		return errors.New("endpoint needs a host")
	}
	return nil
}
