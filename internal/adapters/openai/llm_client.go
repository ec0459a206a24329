package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client is a core.Completer backed by the OpenAI chat completion API.
// Any OpenAI-compatible endpoint works when the client config carries a BaseURL.
type Client struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	jsonMode    bool
	logger      *zap.Logger
}

// NewClient creates a new OpenAI completer
func NewClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	jsonMode bool,
	logger *zap.Logger,
) *Client {
	return &Client{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		jsonMode:    jsonMode,
		logger:      logger,
	}
}

// Complete sends one system/user exchange and returns the assistant text
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model %s", c.modelName)
	}

	c.logger.Debug("Chat completion received",
		zap.String("model", c.modelName),
		zap.String("id", resp.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return resp.Choices[0].Message.Content, nil
}
