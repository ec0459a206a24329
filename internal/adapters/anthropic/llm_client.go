package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"
)

// Client is a core.Completer backed by the Anthropic Messages API
type Client struct {
	client      anthropic.Client
	modelName   string
	maxTokens   int64
	temperature float64
	logger      *zap.Logger
}

// NewClient creates a new Anthropic completer
func NewClient(client anthropic.Client, modelName string, maxTokens int, temperature float32, logger *zap.Logger) *Client {
	return &Client{
		client:      client,
		modelName:   modelName,
		maxTokens:   int64(maxTokens),
		temperature: float64(temperature),
		logger:      logger,
	}
}

// Complete sends the prompt pair as one user turn with a system block
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.modelName),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create message with Anthropic: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	c.logger.Debug("Anthropic message received",
		zap.String("model", c.modelName),
		zap.String("id", msg.ID),
		zap.Int64("output_tokens", msg.Usage.OutputTokens))

	return sb.String(), nil
}
