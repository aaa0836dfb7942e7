package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/dyike/finreact/config"
)

// NewChatModel builds the tool-calling chat model selected by LLM_PROVIDER.
func NewChatModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI, "":
		return newOpenAIModel(ctx, cfg)
	case config.ProviderDeepSeek:
		return newDeepSeekModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}

func newOpenAIModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	maxTokens := cfg.LLM.MaxTokens
	temperature := cfg.LLM.Temperature
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.LLM.OpenAIBaseURL,
		APIKey:      cfg.LLM.OpenAIAPIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
	}
	return chatModel, nil
}

func newDeepSeekModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	chatModel, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
		APIKey:      cfg.LLM.DeepSeekAPIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DeepSeek model: %w", err)
	}
	return chatModel, nil
}
