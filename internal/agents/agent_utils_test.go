package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/finreact/config"
)

func TestNewChatModelProviders(t *testing.T) {
	ctx := context.Background()

	cfg := &config.Config{}
	cfg.LLM.Provider = config.ProviderOpenAI
	cfg.LLM.OpenAIAPIKey = "sk-test"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.MaxTokens = 512
	m, err := NewChatModel(ctx, cfg)
	require.NoError(t, err)
	assert.NotNil(t, m)

	cfg.LLM.Provider = config.ProviderDeepSeek
	cfg.LLM.DeepSeekAPIKey = "ds-test"
	cfg.LLM.Model = "deepseek-chat"
	m, err = NewChatModel(ctx, cfg)
	require.NoError(t, err)
	assert.NotNil(t, m)

	cfg.LLM.Provider = "anthropic"
	_, err = NewChatModel(ctx, cfg)
	assert.ErrorContains(t, err, "unknown LLM provider")
}
