package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/linanwx/curo/config"
	"github.com/linanwx/curo/provider"
)

func TestResolveModels(t *testing.T) {
	reg, ok := provider.Lookup("openai")
	if !ok {
		t.Fatal("openai provider not registered")
	}

	tests := []struct {
		name       string
		sc         config.ServerConfig
		wantText   string
		wantVision string
	}{
		{"defaults", config.ServerConfig{}, reg.TextModel, reg.VisionModel},
		{"text override", config.ServerConfig{TextModel: " gpt-4.1 "}, "gpt-4.1", reg.VisionModel},
		{"both override", config.ServerConfig{TextModel: "gpt-4.1-mini", VisionModel: "gpt-4.1"}, "gpt-4.1-mini", "gpt-4.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, vision := resolveModels(tt.sc, reg)
			if text != tt.wantText || vision != tt.wantVision {
				t.Fatalf("resolveModels() = %q, %q; want %q, %q", text, vision, tt.wantText, tt.wantVision)
			}
		})
	}
}

func TestBuildProvidersEcho(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Provider = "echo"

	text, vision, err := buildProviders(cfg)
	if err != nil {
		t.Fatalf("buildProviders() error = %v", err)
	}
	resp, err := text.Chat(context.Background(), &provider.Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != "Echo: hi" {
		t.Fatalf("Content = %q", resp.Content)
	}
	if vision == nil {
		t.Fatal("vision provider is nil")
	}
}

func TestBuildProvidersErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Provider = "nope"
	if _, _, err := buildProviders(cfg); !errors.Is(err, provider.ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg.Server.Provider = "anthropic"
	if _, _, err := buildProviders(cfg); err == nil {
		t.Fatal("expected an error without an API key")
	}
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"http://127.0.0.1:8000/uploadfile", false},
		{" https://example.com/uploadfile ", false},
		{"ftp://example.com", true},
		{"http://", true},
		{"not a url", true},
	}
	for _, tt := range tests {
		if err := validateEndpoint(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("validateEndpoint(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}
