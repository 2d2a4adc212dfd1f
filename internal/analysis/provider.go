package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ProviderType names a generative text backend
type ProviderType string

const (
	// ProviderGemini uses the Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses the Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// Request is a provider-agnostic generation request
type Request struct {
	System string
	Prompt string
	// JSON asks the provider to constrain output to a JSON document where supported
	JSON bool
}

// Provider produces raw text for a prompt. Output is untrusted and always parsed and validated.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Type() ProviderType
}

// GeminiConfig configures the Gemini provider. A nil Temperature means 0.7.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature *float32
}

// ClaudeConfig configures the Claude provider. A nil Temperature is left out of requests.
type ClaudeConfig struct {
	APIKey      string
	Model       string
	Temperature *float64
	MaxTokens   int64
}

// ProviderConfig selects and configures one provider
type ProviderConfig struct {
	Provider ProviderType
	Gemini   GeminiConfig
	Claude   ClaudeConfig
}

// NewProvider builds the configured provider. It returns a nil Provider and no error when the selected
// provider has no credential; the dispatcher then always uses the fallback.
func NewProvider(ctx context.Context, cfg ProviderConfig, logger *slog.Logger) (Provider, error) {
	switch ProviderType(strings.ToLower(string(cfg.Provider))) {
	case ProviderGemini, "":
		if cfg.Gemini.APIKey == "" {
			logger.Warn("Gemini API key not configured, analysis will use fallback output")
			return nil, nil
		}
		p, err := NewGeminiProvider(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderClaude:
		if cfg.Claude.APIKey == "" {
			logger.Warn("Anthropic API key not configured, analysis will use fallback output")
			return nil, nil
		}
		return NewClaudeProvider(cfg.Claude), nil
	default:
		return nil, fmt.Errorf("unknown analysis provider %q", cfg.Provider)
	}
}
