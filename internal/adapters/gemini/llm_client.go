package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// Client is a core.Completer backed by Google Gemini
type Client struct {
	client    *genai.Client
	modelName string
	maxTokens int32
	temp      float32
	logger    *zap.Logger
}

// NewClient wraps an existing genai client
func NewClient(client *genai.Client, modelName string, maxTokens int, temperature float32, logger *zap.Logger) *Client {
	return &Client{
		client:    client,
		modelName: modelName,
		maxTokens: int32(maxTokens),
		temp:      temperature,
		logger:    logger,
	}
}

// Close closes the Gemini client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Complete generates a single answer for the prompt pair
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	// the model handle carries the system instruction, so build one per call
	model := c.client.GenerativeModel(c.modelName)
	model.SetTemperature(c.temp)
	model.SetMaxOutputTokens(c.maxTokens)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("empty response from Gemini")
	}
	c.logger.Debug("Gemini content generated", zap.String("model", c.modelName))
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
