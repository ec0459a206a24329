package core

import (
	"context"
	"time"
)

// MailQuery selects the messages a mail source lists.
// Since is used when From and To are zero.
type MailQuery struct {
	Since   time.Time
	From    time.Time
	To      time.Time
	Mailbox string
}

// MailSource defines the interface for retrieving messages from a mailbox
type MailSource interface {
	// ListMessages returns summaries newest first, capped at the page size
	ListMessages(ctx context.Context, q MailQuery) ([]MessageSummary, error)

	// GetMessageDetail fetches the full message
	GetMessageDetail(ctx context.Context, externalID, mailbox string) (*MessageDetail, error)
}

// Completer defines the interface for interacting with LLM services
type Completer interface {
	// Complete sends the prompts and returns the raw model text
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Classifier turns message text into a classification
type Classifier interface {
	Classify(ctx context.Context, text, subject, sender string) (ClassificationResult, error)
}

// ExclusionFilter decides whether a message skips classification
type ExclusionFilter interface {
	ShouldExclude(senderAddress, subject string) bool
}

// Store defines the persistence contract of the pipeline
type Store interface {
	// IsMessageRecorded reports whether a message with this external id exists
	IsMessageRecorded(ctx context.Context, externalID string) (bool, error)

	// SaveMessage inserts the message unless it exists and returns its internal id
	SaveMessage(ctx context.Context, msg *Message) (int64, error)

	// SaveClassification stores a result for a saved message
	SaveClassification(ctx context.Context, messageID int64, result ClassificationResult) (int64, error)

	// LastSuccessfulRunCompletion returns nil when no run has succeeded yet
	LastSuccessfulRunCompletion(ctx context.Context) (*time.Time, error)

	// RecordRun persists a finished run
	RecordRun(ctx context.Context, run *ProcessingRun) error

	// ListClassifications returns stored results joined with their message
	ListClassifications(ctx context.Context, filter ClassificationFilter) ([]ClassifiedMessage, error)
}
