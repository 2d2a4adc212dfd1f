package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewGeminiProvider_Temperature(t *testing.T) {
	tests := []struct {
		name        string
		temperature *float32
		want        float32
	}{
		{name: "unset uses default", temperature: nil, want: defaultGeminiTemperature},
		{name: "zero is honored", temperature: genai.Ptr[float32](0), want: 0},
		{name: "explicit value", temperature: genai.Ptr[float32](1.2), want: 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "test-key", Temperature: tt.temperature})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.temperature)
			assert.Equal(t, defaultGeminiModel, p.model)
		})
	}
}

func TestNewClaudeProvider_Temperature(t *testing.T) {
	unset := NewClaudeProvider(ClaudeConfig{APIKey: "test-key"})
	assert.Nil(t, unset.temperature)
	assert.Equal(t, int64(defaultClaudeMaxTokens), unset.maxTokens)

	zero := 0.0
	explicit := NewClaudeProvider(ClaudeConfig{APIKey: "test-key", Temperature: &zero})
	require.NotNil(t, explicit.temperature)
	assert.Equal(t, 0.0, *explicit.temperature)
}

func TestNewProvider_Selection(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ProviderConfig
		wantType ProviderType
		wantNil  bool
		wantErr  string
	}{
		{name: "gemini without key", cfg: ProviderConfig{Provider: ProviderGemini}, wantNil: true},
		{name: "claude without key", cfg: ProviderConfig{Provider: ProviderClaude}, wantNil: true},
		{name: "default is gemini", cfg: ProviderConfig{Gemini: GeminiConfig{APIKey: "k"}}, wantType: ProviderGemini},
		{name: "claude", cfg: ProviderConfig{Provider: "Claude", Claude: ClaudeConfig{APIKey: "k"}}, wantType: ProviderClaude},
		{name: "unknown", cfg: ProviderConfig{Provider: "gpt"}, wantErr: "unknown analysis provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(context.Background(), tt.cfg, discardLogger())
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			assert.Equal(t, tt.wantType, p.Type())
		})
	}
}
