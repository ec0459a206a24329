package core

import (
	"time"
)

// Category values a classification may carry
const (
	CategoryDamagedGoods   = "damaged_goods"
	CategoryDeliveryIssue  = "delivery_issue"
	CategoryWrongItem      = "wrong_item"
	CategoryBilling        = "billing"
	CategoryServiceQuality = "service_quality"
	CategoryRefundRequest  = "refund_request"
	CategoryOther          = "other"
	CategoryExcluded       = "excluded"
)

// Severity values a classification may carry
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
	SeverityNone   = "none"
)

// Run statuses
const (
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// Categories lists the categories the model is allowed to answer with
var Categories = []string{
	CategoryDamagedGoods,
	CategoryDeliveryIssue,
	CategoryWrongItem,
	CategoryBilling,
	CategoryServiceQuality,
	CategoryRefundRequest,
	CategoryOther,
}

// IsKnownCategory reports whether c is one of the model categories.
// "excluded" is not a model category and is rejected here.
func IsKnownCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// MessageSummary is what the mail source returns when listing a mailbox
type MessageSummary struct {
	ExternalID        string
	InternetMessageID string
	Subject           string
	SenderAddress     string
	SenderName        string
	ReceivedAt        time.Time
	HasAttachments    bool
	Mailbox           string
}

// MessageDetail is the full message as fetched from the mail source
type MessageDetail struct {
	MessageSummary
	Recipients []string
	TextBody   string
	HTMLBody   string
}

// Message is an inbound email as persisted by the store
type Message struct {
	ExternalID        string
	InternetMessageID string
	Subject           string
	SenderAddress     string
	SenderName        string
	Recipients        []string
	ReceivedAt        time.Time
	Body              string
	HasAttachments    bool
	Mailbox           string
}

// ClassificationResult represents the result of claim analysis
type ClassificationResult struct {
	IsClaim     bool     `json:"isClaim"`
	Confidence  int      `json:"confidence"`
	Category    string   `json:"category"`
	Severity    string   `json:"severity"`
	Reason      string   `json:"reason"`
	Keywords    []string `json:"keywords"`
	Summary     string   `json:"summary"`
	RawResponse string   `json:"rawResponse,omitempty"`
	ParseError  string   `json:"parseError,omitempty"`
}

// DefaultResult returns a fully populated result that says "not a claim".
func DefaultResult() ClassificationResult {
	return ClassificationResult{
		IsClaim:    false,
		Confidence: 0,
		Category:   CategoryOther,
		Severity:   SeverityLow,
		Keywords:   []string{},
	}
}

// ExcludedResult is persisted for messages the exclusion filter exempts.
func ExcludedResult() ClassificationResult {
	return ClassificationResult{
		IsClaim:    false,
		Confidence: 0,
		Category:   CategoryExcluded,
		Severity:   SeverityNone,
		Reason:     "sender or subject matched an exclusion rule",
		Keywords:   []string{},
	}
}

// FailedResult converts a classification failure into a result.
func FailedResult(err error) ClassificationResult {
	r := DefaultResult()
	r.Reason = "classification failed: " + err.Error()
	r.ParseError = err.Error()
	return r
}

// ProcessingRun is the audit record of one pipeline invocation
type ProcessingRun struct {
	ID             string
	StartedAt      time.Time
	CompletedAt    time.Time
	Processed      int
	ClaimsDetected int
	Error          string
	Status         string
}

// ClassifiedMessage joins a stored classification with its message fields
type ClassifiedMessage struct {
	ID           int64
	MessageID    int64
	ExternalID   string
	Subject      string
	Sender       string
	ReceivedAt   time.Time
	ClassifiedAt time.Time
	Result       ClassificationResult
}

// ClassificationFilter narrows ListClassifications
type ClassificationFilter struct {
	ClaimsOnly    bool
	Category      string
	Since         time.Time
	MinConfidence int
	Limit         int
}
