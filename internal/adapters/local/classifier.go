package local

import (
	"context"

	"go.uber.org/multierr"

	"github.com/mikey/llm-claim-detector/internal/core"
)

// Classifier runs the completion classifier against a self-hosted backend.
// It must be started before use and only serves one request at a time.
type Classifier struct {
	*core.CompletionClassifier
	backend *Backend
}

// NewClassifier pairs a completion classifier with the backend serving it
func NewClassifier(classifier *core.CompletionClassifier, backend *Backend) *Classifier {
	return &Classifier{
		CompletionClassifier: classifier,
		backend:              backend,
	}
}

// Start brings the backend up and blocks until the model is loaded
func (c *Classifier) Start(ctx context.Context) error {
	return c.backend.Start(ctx)
}

// SequentialOnly reports that the backend cannot take concurrent calls
func (c *Classifier) SequentialOnly() bool {
	return true
}

// Close stops the backend process and releases the completer
func (c *Classifier) Close() error {
	return multierr.Append(c.backend.Stop(), c.CompletionClassifier.Close())
}
