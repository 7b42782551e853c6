// Package models constructs the chat model shared by the recommendation
// agents.
package models

import (
	"context"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/wayfarer-ai/wayfarer/internal/config"
)

// NewOpenAI creates an OpenAI-compatible ChatModel from config. A custom
// BaseURL points the same client at any compatible provider.
func NewOpenAI(ctx context.Context, cfg config.ModelConfig) (model.BaseChatModel, error) {
	temperature := cfg.Temperature
	maxTokens := cfg.MaxTokens

	modelConfig := &einoopenai.ChatModelConfig{
		APIKey:              cfg.APIKey,
		Model:               cfg.Model,
		Temperature:         &temperature,
		MaxCompletionTokens: &maxTokens,
		Timeout:             60 * time.Second,
	}
	if cfg.BaseURL != "" {
		modelConfig.BaseURL = cfg.BaseURL
	}
	return einoopenai.NewChatModel(ctx, modelConfig)
}
