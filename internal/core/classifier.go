package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-claim-detector/internal/utils"
)

// CompletionClassifier classifies messages with a hosted completion service
type CompletionClassifier struct {
	completer     Completer
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	maxBodySize   int
	timeout       time.Duration
	systemPrompt  string
}

// NewCompletionClassifier creates a classifier on top of a completer.
// A zero timeout leaves the call bounded only by ctx.
func NewCompletionClassifier(
	completer Completer,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
	maxBodySize int,
	timeout time.Duration,
) *CompletionClassifier {
	return &CompletionClassifier{
		completer:     completer,
		logger:        logger,
		textProcessor: textProcessor,
		maxBodySize:   maxBodySize,
		timeout:       timeout,
		systemPrompt:  SystemPrompt(),
	}
}

// Classify sends the message to the completer and normalizes the answer.
// Only transport failures are returned as errors.
func (c *CompletionClassifier) Classify(ctx context.Context, text, subject, sender string) (ClassificationResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body := c.textProcessor.ProcessText(text, c.maxBodySize)
	raw, err := c.completer.Complete(ctx, c.systemPrompt, UserPrompt(body, subject, sender))
	if err != nil {
		return ClassificationResult{}, fmt.Errorf("completion failed: %w", err)
	}

	result := Normalize(raw)
	if result.ParseError != "" {
		c.logger.Warn("Model response could not be parsed",
			zap.String("sender", sender),
			zap.String("parse_error", result.ParseError))
	}
	return result, nil
}

// Close releases the completer when it holds resources
func (c *CompletionClassifier) Close() error {
	if closer, ok := c.completer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
