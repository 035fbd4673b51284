package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoOptions configures an OpenAI-compatible chat endpoint.
type EinoOptions struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
}

type EinoGenerator struct {
	chat  model.BaseChatModel
	model string
}

func NewEinoGenerator(ctx context.Context, opts EinoOptions) (*EinoGenerator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("api key is required for model %s", opts.Model)
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   opts.BaseURL,
		APIKey:    opts.APIKey,
		Model:     opts.Model,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return &EinoGenerator{chat: chatModel, model: opts.Model}, nil
}

// NewDeepSeekGenerator uses the native DeepSeek client, which also handles
// the reasoner models.
func NewDeepSeekGenerator(ctx context.Context, apiKey, modelName string, maxTokens int) (*EinoGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required for model %s", modelName)
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	chatModel, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
		APIKey:    apiKey,
		Model:     modelName,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create deepseek model: %w", err)
	}
	return &EinoGenerator{chat: chatModel, model: modelName}, nil
}

// NewEinoGeneratorWithModel wraps an existing eino chat model.
func NewEinoGeneratorWithModel(chat model.BaseChatModel, name string) *EinoGenerator {
	return &EinoGenerator{chat: chat, model: name}
}

func (g *EinoGenerator) Name() string { return "eino:" + g.model }

func (g *EinoGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]*schema.Message, 0, 2)
	if system != "" {
		messages = append(messages, schema.SystemMessage(system))
	}
	messages = append(messages, schema.UserMessage(prompt))

	resp, err := g.chat.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("chat model generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("chat model returned no message")
	}
	return resp.Content, nil
}
