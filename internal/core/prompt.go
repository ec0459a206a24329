package core

import (
	"fmt"
	"strings"
)

const systemPromptFormat = `You are a customer complaint detection system for a retailer's support mailbox.
Decide whether the email is a customer claim (a complaint about an order, product, delivery,
invoice or service that expects a remedy).
Respond with a single JSON object containing:
- isClaim: boolean
- confidence: integer between 0 and 100
- category: one of %s
- severity: one of "low", "medium", "high"
- reason: short explanation of the decision
- keywords: array of the words or phrases that drove the decision
- summary: one sentence summary of the customer's request

Respond only with the JSON object and nothing else.`

// SystemPrompt returns the instruction prompt shared by every backend
func SystemPrompt() string {
	quoted := make([]string, len(Categories))
	for i, c := range Categories {
		quoted[i] = `"` + c + `"`
	}
	return fmt.Sprintf(systemPromptFormat, strings.Join(quoted, ", "))
}

// UserPrompt formats the email for the model
func UserPrompt(text, subject, sender string) string {
	return fmt.Sprintf("Email:\nFrom: %s\nSubject: %s\nBody:\n%s", sender, subject, text)
}
