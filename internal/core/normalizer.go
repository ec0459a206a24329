package core

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// jsonSpan matches from the first '{' to the last '}'
var jsonSpan = regexp.MustCompile(`(?s)\{.*\}`)

// Normalize extracts a ClassificationResult from free-form model output.
// It never fails: malformed input yields a default result carrying ParseError.
func Normalize(raw string) ClassificationResult {
	if strings.TrimSpace(raw) == "" {
		r := DefaultResult()
		r.Reason = "empty response"
		r.ParseError = "Empty or null response"
		return r
	}

	span := jsonSpan.FindString(raw)
	if span == "" {
		r := DefaultResult()
		r.Reason = "no JSON structure found in model response"
		r.ParseError = "No JSON structure found in response"
		r.RawResponse = raw
		return r
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		r := DefaultResult()
		r.Reason = "failed to parse model response: " + err.Error()
		r.ParseError = err.Error()
		r.RawResponse = raw
		return r
	}

	result := ClassificationResult{
		IsClaim:     truthy(fields["isClaim"]),
		Confidence:  clampConfidence(toInt(fields["confidence"])),
		Category:    CategoryOther,
		Severity:    SeverityMedium,
		Reason:      toString(fields["reason"]),
		Keywords:    toStrings(fields["keywords"]),
		Summary:     toString(fields["summary"]),
		RawResponse: raw,
	}

	if c, ok := fields["category"].(string); ok && IsKnownCategory(c) {
		result.Category = c
	}
	if s, ok := fields["severity"].(string); ok {
		switch s {
		case SeverityLow, SeverityMedium, SeverityHigh:
			result.Severity = s
		}
	}

	return result
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
		return t != ""
	case []interface{}:
		return true
	case map[string]interface{}:
		return true
	default:
		return false
	}
}

// toInt parses like a lenient integer parser: leading sign and digits only.
func toInt(v interface{}) int {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		if t > math.MaxInt32 {
			return math.MaxInt32
		}
		if t < math.MinInt32 {
			return math.MinInt32
		}
		return int(t)
	case string:
		return leadingInt(strings.TrimSpace(t))
	case bool:
		return 0
	default:
		return 0
	}
}

func leadingInt(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// overflow
		if s[0] == '-' {
			return math.MinInt32
		}
		return math.MaxInt32
	}
	return n
}

func clampConfidence(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toStrings(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
