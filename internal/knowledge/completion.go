package knowledge

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// CompletionClient 对话补全网关
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Ready() bool
}

// chatAPI 便于测试替换远端调用，*openai.Client天然满足
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAICompletion 使用OpenAI Chat Completion API生成回答
type OpenAICompletion struct {
	client      chatAPI
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAICompletion 创建补全客户端，baseURL为空时使用官方endpoint
func NewOpenAICompletion(apiKey, baseURL, model string, temperature float32, maxTokens int) *OpenAICompletion {
	if model == "" {
		model = openai.GPT4oMini
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	c := &OpenAICompletion{
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
	if strings.TrimSpace(apiKey) != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
		c.client = openai.NewClientWithConfig(cfg)
	}
	return c
}

func (c *OpenAICompletion) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAICompletion) Ready() bool {
	return c.client != nil
}
